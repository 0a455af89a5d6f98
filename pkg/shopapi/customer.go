// Package shopapi reads customers from the commerce platform's REST API.
package shopapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Sternrassler/shopkit/pkg/record"
)

// Address is the default_address object of an API customer.
type Address struct {
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ProvinceCode string `json:"province_code"`
	Zip          string `json:"zip"`
}

// Customer is a customer as the API returns it. Fields may be null.
type Customer struct {
	FirstName      *string  `json:"first_name"`
	LastName       *string  `json:"last_name"`
	Tags           string   `json:"tags"`
	DefaultAddress *Address `json:"default_address"`
}

// customersPage is the body of one customers.json page.
type customersPage struct {
	Customers *[]Customer `json:"customers"`
}

// Normalize flattens an API customer into a record. A missing address
// leaves the address fields blank so the filter can reject the record.
func Normalize(c Customer) record.Customer {
	out := record.Customer{
		FirstName: strings.TrimSpace(deref(c.FirstName)),
		LastName:  strings.TrimSpace(deref(c.LastName)),
		Tags:      record.SplitTags(c.Tags),
	}
	if a := c.DefaultAddress; a != nil {
		out.Address1 = strings.TrimSpace(a.Address1)
		out.Address2 = strings.TrimSpace(a.Address2)
		out.City = strings.TrimSpace(a.City)
		out.Region = strings.TrimSpace(a.ProvinceCode)
		out.PostalCode = strings.TrimSpace(a.Zip)
	}
	return out
}

// DecodePage decodes a customers page body into normalized records.
func DecodePage(body []byte) ([]record.Customer, error) {
	var page customersPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode customers page: %w", err)
	}
	if page.Customers == nil {
		return nil, fmt.Errorf("decode customers page: no customers field")
	}

	customers := make([]record.Customer, 0, len(*page.Customers))
	for _, c := range *page.Customers {
		customers = append(customers, Normalize(c))
	}
	return customers, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
