package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// field identifies a Customer attribute a CSV column can map to.
type field int

const (
	fieldFirstName field = iota
	fieldLastName
	fieldAddress1
	fieldAddress2
	fieldCity
	fieldRegion
	fieldPostalCode
	fieldBirthday
	fieldTags
)

// columnAliases maps lower-cased header names to fields. Both the POS export
// ("First Name", "State", "Zip") and the API export ("first_name",
// "province_code", "zip") header styles are accepted.
var columnAliases = map[string]field{
	"first name":    fieldFirstName,
	"first_name":    fieldFirstName,
	"last name":     fieldLastName,
	"last_name":     fieldLastName,
	"address":       fieldAddress1,
	"address1":      fieldAddress1,
	"address 1":     fieldAddress1,
	"address2":      fieldAddress2,
	"address 2":     fieldAddress2,
	"city":          fieldCity,
	"state":         fieldRegion,
	"province":      fieldRegion,
	"province_code": fieldRegion,
	"zip":           fieldPostalCode,
	"zip code":      fieldPostalCode,
	"postal code":   fieldPostalCode,
	"birthday":      fieldBirthday,
	"tags":          fieldTags,
}

var requiredFields = map[field]string{
	fieldFirstName:  "First Name",
	fieldLastName:   "Last Name",
	fieldAddress1:   "Address",
	fieldCity:       "City",
	fieldRegion:     "State",
	fieldPostalCode: "Zip",
}

// ExportHeader is the header written by WriteCSV.
var ExportHeader = []string{"first_name", "last_name", "address1", "address2", "city", "province_code", "zip", "tags"}

// ErrEmptyInput is returned for a CSV without a header row.
var ErrEmptyInput = errors.New("csv input has no header row")

// ColumnError reports a required column missing from the header row.
type ColumnError struct {
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("csv input missing required column %q", e.Column)
}

// ReadCSV reads customers from a CSV file with a header row. Columns are
// located by header name, so their order does not matter. Short rows are
// padded with empty cells.
func ReadCSV(r io.Reader) ([]Customer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	index, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var customers []Customer
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(customers)+2, err)
		}
		customers = append(customers, fromRow(row, index))
	}
	return customers, nil
}

func mapColumns(header []string) (map[field]int, error) {
	index := make(map[field]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		f, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		// First occurrence wins.
		if _, seen := index[f]; !seen {
			index[f] = i
		}
	}

	for _, f := range []field{fieldFirstName, fieldLastName, fieldAddress1, fieldCity, fieldRegion, fieldPostalCode} {
		if _, ok := index[f]; !ok {
			return nil, &ColumnError{Column: requiredFields[f]}
		}
	}
	_, hasBirthday := index[fieldBirthday]
	_, hasTags := index[fieldTags]
	if !hasBirthday && !hasTags {
		return nil, &ColumnError{Column: "Birthday"}
	}
	return index, nil
}

func fromRow(row []string, index map[field]int) Customer {
	cell := func(f field) string {
		i, ok := index[f]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	return Customer{
		FirstName:  cell(fieldFirstName),
		LastName:   cell(fieldLastName),
		Address1:   cell(fieldAddress1),
		Address2:   cell(fieldAddress2),
		City:       cell(fieldCity),
		Region:     cell(fieldRegion),
		PostalCode: cell(fieldPostalCode),
		Birthday:   cell(fieldBirthday),
		Tags:       SplitTags(cell(fieldTags)),
	}
}

// WriteCSV writes customers with ExportHeader. Tags are joined with ", ".
func WriteCSV(w io.Writer, customers []Customer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range customers {
		row := []string{c.FirstName, c.LastName, c.Address1, c.Address2, c.City, c.Region, c.PostalCode, strings.Join(c.Tags, ", ")}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
