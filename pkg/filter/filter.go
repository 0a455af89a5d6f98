// Package filter selects the customers whose birthday falls in a target month
// and whose mailing address is complete.
package filter

import (
	"strings"
	"time"

	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var recordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shopkit_filter_records_total",
	Help: "Records processed by the birthday filter by outcome",
}, []string{"outcome"})

// Mode selects where the birth month is read from.
type Mode int

const (
	// ModeBirthday parses Customer.Birthday (point-of-sale CSV export).
	ModeBirthday Mode = iota

	// ModeTag matches a month name among Customer.Tags (commerce API).
	ModeTag
)

func (m Mode) String() string {
	if m == ModeTag {
		return "tag"
	}
	return "birthday"
}

// Target is the immutable selection criteria for one run.
type Target struct {
	Month time.Month
	Mode  Mode
}

// Result holds the outcome of Filter.
type Result struct {
	// Accepted are rendered mailing addresses in input order.
	Accepted []string

	// Rejected are data quality failures in input order.
	Rejected []record.Rejection

	// Dropped counts records outside the target month (or with a blank
	// birthday). They are not rejections.
	Dropped int
}

// Filter applies the month match and the field presence checks to customers.
// Each record is either accepted, dropped, or rejected once with the first
// rule it violates.
func Filter(customers []record.Customer, target Target) Result {
	logger := log.With().Str("component", "filter").Logger()

	var res Result
	for _, c := range customers {
		matched, reason := matchMonth(c, target)
		if reason == "" && matched {
			reason = checkFields(c)
		}

		switch {
		case reason != "":
			logger.Warn().
				Str("reason", string(reason)).
				Str("customer", c.FullName()).
				Msg("Skipping record")
			res.Rejected = append(res.Rejected, record.Rejection{Reason: reason, Customer: c})
			recordsTotal.WithLabelValues(string(reason)).Inc()
		case !matched:
			res.Dropped++
			recordsTotal.WithLabelValues("dropped").Inc()
		default:
			res.Accepted = append(res.Accepted, c.MailingAddress())
			recordsTotal.WithLabelValues("accepted").Inc()
		}
	}

	logger.Info().
		Str("month", target.Month.String()).
		Str("mode", target.Mode.String()).
		Int("accepted", len(res.Accepted)).
		Int("rejected", len(res.Rejected)).
		Int("dropped", res.Dropped).
		Msg("Filter complete")

	return res
}

// matchMonth reports whether c belongs to the target month. A non-empty
// reason means the month could not be determined.
func matchMonth(c record.Customer, target Target) (bool, record.Reason) {
	if target.Mode == ModeTag {
		if len(c.Tags) == 0 {
			return false, record.ReasonNoTags
		}
		name := target.Month.String()
		for _, tag := range c.Tags {
			if strings.EqualFold(strings.TrimSpace(tag), name) {
				return true, ""
			}
		}
		return false, ""
	}

	if strings.TrimSpace(c.Birthday) == "" {
		return false, ""
	}
	month, err := record.BirthMonth(c.Birthday)
	if err != nil {
		log.Debug().Err(err).Str("customer", c.FullName()).Msg("No birthday layout matched")
		return false, record.ReasonInvalidBirthday
	}
	return month == target.Month, ""
}

// checkFields returns the first missing address component.
func checkFields(c record.Customer) record.Reason {
	switch {
	case blank(c.FirstName) || blank(c.LastName):
		return record.ReasonMissingName
	case blank(c.Address1):
		return record.ReasonNoAddress
	case blank(c.City):
		return record.ReasonNoCity
	case blank(c.Region):
		return record.ReasonNoState
	case blank(c.PostalCode):
		return record.ReasonNoZip
	}
	return ""
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
