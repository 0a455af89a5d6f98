// Package record defines the canonical customer record shared by the CSV and
// API sources, the rejection reasons, and CSV encoding for both header styles.
package record

import (
	"fmt"
	"strings"
)

// Customer is a normalized customer address record.
type Customer struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Address1   string   `json:"address1"`
	Address2   string   `json:"address2,omitempty"`
	City       string   `json:"city"`
	Region     string   `json:"province_code"`
	PostalCode string   `json:"zip"`
	Birthday   string   `json:"birthday,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// FullName returns "first last" with surrounding space trimmed.
func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// MailingAddress renders the label text:
//
//	First Last
//	Address1
//	[Address2]
//	City, Region Postal
func (c Customer) MailingAddress() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s\n", c.FirstName, c.LastName, c.Address1)
	if c.Address2 != "" {
		b.WriteString(c.Address2)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s, %s %s", c.City, c.Region, c.PostalCode)
	return b.String()
}

// Summary is the one-line form used in the rejection log.
func (c Customer) Summary() string {
	return fmt.Sprintf("%s %s, %s, %s, %s, %s", c.FirstName, c.LastName, c.Address1, c.City, c.Region, c.PostalCode)
}

// SplitTags splits a comma-separated tag list, dropping blanks.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
