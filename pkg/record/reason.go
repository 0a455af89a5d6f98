package record

import (
	"fmt"
	"io"
)

// Reason identifies the first validation rule a record failed.
type Reason string

const (
	ReasonMissingName     Reason = "MISSING_NAME"
	ReasonNoAddress       Reason = "NO_ADDRESS"
	ReasonNoCity          Reason = "NO_CITY"
	ReasonNoState         Reason = "NO_STATE"
	ReasonNoZip           Reason = "NO_ZIP"
	ReasonInvalidBirthday Reason = "INVALID_BIRTHDAY"
	ReasonNoTags          Reason = "NO_TAGS"
)

// Reasons lists every reason code in declaration order.
var Reasons = []Reason{
	ReasonMissingName,
	ReasonNoAddress,
	ReasonNoCity,
	ReasonNoState,
	ReasonNoZip,
	ReasonInvalidBirthday,
	ReasonNoTags,
}

// Rejection pairs a record with the reason it was excluded.
type Rejection struct {
	Reason   Reason
	Customer Customer
}

// String formats the rejection as one line of the rejection log, without the
// trailing newline.
func (r Rejection) String() string {
	return fmt.Sprintf("%-20s: %s", r.Reason, r.Customer.Summary())
}

// WriteRejections writes one line per rejection to w.
func WriteRejections(w io.Writer, rejected []Rejection) error {
	for _, r := range rejected {
		if _, err := fmt.Fprintln(w, r.String()); err != nil {
			return fmt.Errorf("write rejection: %w", err)
		}
	}
	return nil
}
