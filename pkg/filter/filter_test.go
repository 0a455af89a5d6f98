package filter

import (
	"testing"
	"time"

	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func complete(first, birthday string) record.Customer {
	return record.Customer{
		FirstName:  first,
		LastName:   "Stitch",
		Address1:   "1 Needle Ln",
		City:       "Quilton",
		Region:     "OH",
		PostalCode: "44101",
		Birthday:   birthday,
	}
}

func TestFilter_BirthdayMode(t *testing.T) {
	customers := []record.Customer{
		complete("Ann", "03/15/2020"),
		complete("Bea", "03/15/20"),
		complete("Cal", "03/15"),
		complete("Dot", "15-Mar"),
		complete("Eve", "not-a-date"),
		complete("Fay", "04/01/1990"),
		complete("Gus", ""),
	}

	res := Filter(customers, Target{Month: time.March, Mode: ModeBirthday})

	assert.Len(t, res.Accepted, 4)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, record.ReasonInvalidBirthday, res.Rejected[0].Reason)
	assert.Equal(t, "Eve", res.Rejected[0].Customer.FirstName)
	assert.Equal(t, 2, res.Dropped)
	assert.Equal(t, "Ann Stitch\n1 Needle Ln\nQuilton, OH 44101", res.Accepted[0])
}

func TestFilter_FirstViolatedRule(t *testing.T) {
	base := complete("Ann", "03/01/1980")

	tests := []struct {
		name   string
		mutate func(c *record.Customer)
		want   record.Reason
	}{
		{"missing first name", func(c *record.Customer) { c.FirstName = "" }, record.ReasonMissingName},
		{"missing last name", func(c *record.Customer) { c.LastName = " " }, record.ReasonMissingName},
		{"name checked before address", func(c *record.Customer) { c.FirstName = ""; c.Address1 = "" }, record.ReasonMissingName},
		{"no address", func(c *record.Customer) { c.Address1 = "" }, record.ReasonNoAddress},
		{"address checked before city", func(c *record.Customer) { c.Address1 = ""; c.City = "" }, record.ReasonNoAddress},
		{"no city", func(c *record.Customer) { c.City = "" }, record.ReasonNoCity},
		{"no state", func(c *record.Customer) { c.Region = "" }, record.ReasonNoState},
		{"no zip", func(c *record.Customer) { c.PostalCode = "" }, record.ReasonNoZip},
		{"everything missing", func(c *record.Customer) { *c = record.Customer{Birthday: c.Birthday} }, record.ReasonMissingName},
		{"bad birthday wins over bad address", func(c *record.Customer) { c.Birthday = "soon"; c.City = "" }, record.ReasonInvalidBirthday},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)

			res := Filter([]record.Customer{c}, Target{Month: time.March})

			assert.Empty(t, res.Accepted)
			require.Len(t, res.Rejected, 1)
			assert.Equal(t, tt.want, res.Rejected[0].Reason)
		})
	}
}

func TestFilter_MonthMismatchNotRejected(t *testing.T) {
	c := complete("Ann", "06/01/1980")
	c.PostalCode = ""

	res := Filter([]record.Customer{c}, Target{Month: time.March})

	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Rejected)
	assert.Equal(t, 1, res.Dropped)
}

func TestFilter_TagMode(t *testing.T) {
	tagged := func(first string, tags ...string) record.Customer {
		c := complete(first, "")
		c.Tags = tags
		return c
	}
	noZip := tagged("Dot", "March")
	noZip.PostalCode = ""

	customers := []record.Customer{
		tagged("Ann", "VIP", "March"),
		tagged("Bea", " march "),
		tagged("Cal", "April"),
		tagged("Dee"),
		noZip,
		tagged("Eli", "Marches"),
	}

	res := Filter(customers, Target{Month: time.March, Mode: ModeTag})

	assert.Len(t, res.Accepted, 2)
	got := make([]record.Reason, 0, len(res.Rejected))
	for _, r := range res.Rejected {
		got = append(got, r.Reason)
	}
	if diff := cmp.Diff([]record.Reason{record.ReasonNoTags, record.ReasonNoZip}, got); diff != "" {
		t.Errorf("rejection reasons mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, res.Dropped)
}

func TestFilter_EveryRecordAccountedOnce(t *testing.T) {
	var customers []record.Customer
	for i, b := range []string{"03/02/1990", "", "bad", "04/04", "3/9", "9-Mar"} {
		c := complete(string(rune('A'+i)), b)
		if i%2 == 0 {
			c.City = ""
		}
		customers = append(customers, c)
	}

	res := Filter(customers, Target{Month: time.March})

	assert.Equal(t, len(customers), len(res.Accepted)+len(res.Rejected)+res.Dropped)
	for _, addr := range res.Accepted {
		assert.NotContains(t, addr, "\n, ")
	}
}

func TestFilter_Empty(t *testing.T) {
	res := Filter(nil, Target{Month: time.January})
	assert.Empty(t, res.Accepted)
	assert.Empty(t, res.Rejected)
	assert.Zero(t, res.Dropped)
}

func TestMode_String(t *testing.T) {
	assert.Equal(t, "birthday", ModeBirthday.String())
	assert.Equal(t, "tag", ModeTag.String())
}
