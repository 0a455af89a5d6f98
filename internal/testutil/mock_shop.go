// Package testutil provides testing utilities for the shop API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// CustomersPath is the endpoint served by MockShop.
const CustomersPath = "/admin/api/2021-04/customers.json"

// MockAddress is the default_address object of a mock customer.
type MockAddress struct {
	Address1     string `json:"address1"`
	Address2     string `json:"address2"`
	City         string `json:"city"`
	ProvinceCode string `json:"province_code"`
	Zip          string `json:"zip"`
}

// MockCustomer is a customer as the API serves it.
type MockCustomer struct {
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Tags           string       `json:"tags"`
	DefaultAddress *MockAddress `json:"default_address,omitempty"`
}

// NewMockCustomer builds a customer with a complete address.
func NewMockCustomer(first, last, tags string) MockCustomer {
	return MockCustomer{
		FirstName: first,
		LastName:  last,
		Tags:      tags,
		DefaultAddress: &MockAddress{
			Address1:     "1 Main St",
			City:         "Springfield",
			ProvinceCode: "IL",
			Zip:          "62701",
		},
	}
}

// MockShop is a paginated customer endpoint for testing. Page n (1-based) is
// requested with page_info "page-n"; the first page has no token.
type MockShop struct {
	server *httptest.Server
	mu     sync.RWMutex

	customers []MockCustomer

	// CallLimit is sent as X-Shopify-Shop-Api-Call-Limit. Empty sends the
	// request count over 40.
	CallLimit string

	// FailPage answers page FailPage with FailStatus.
	FailPage   int
	FailStatus int

	// MalformedPage answers page MalformedPage with a non-JSON body.
	MalformedPage int

	// StuckToken makes every page advertise itself as next.
	StuckToken bool

	// OmitLink drops the Link header from every response.
	OmitLink bool

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	LastUser          string
	Tokens            []string
}

// NewMockShop creates a mock shop serving customers.
func NewMockShop(customers []MockCustomer) *MockShop {
	m := &MockShop{customers: customers}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL.
func (m *MockShop) URL() string {
	return m.server.URL
}

// CustomersURL returns the full endpoint URL with user as API key.
func (m *MockShop) CustomersURL(user string) string {
	if user == "" {
		return m.server.URL + CustomersPath
	}
	return "http://" + user + "@" + m.server.Listener.Addr().String() + CustomersPath
}

// Close shuts down the mock server.
func (m *MockShop) Close() {
	m.server.Close()
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockShop) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetTokens returns the page_info values received, in order.
func (m *MockShop) GetTokens() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.Tokens...)
}

func (m *MockShop) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.RequestCount++
	m.LastRequestHeader = r.Header.Clone()
	if user, _, ok := r.BasicAuth(); ok {
		m.LastUser = user
	}
	token := r.URL.Query().Get("page_info")
	m.Tokens = append(m.Tokens, token)
	count := m.RequestCount
	m.mu.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if r.URL.Path != CustomersPath {
		http.NotFound(w, r)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 250 {
			http.Error(w, `{"errors":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}

	page := 1
	if token != "" {
		if _, err := fmt.Sscanf(token, "page-%d", &page); err != nil || page < 1 {
			http.Error(w, `{"errors":"invalid page_info"}`, http.StatusBadRequest)
			return
		}
	}

	callLimit := m.CallLimit
	if callLimit == "" {
		callLimit = fmt.Sprintf("%d/40", min(count, 40))
	}
	w.Header().Set("X-Shopify-Shop-Api-Call-Limit", callLimit)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if page == m.FailPage && m.FailStatus != 0 {
		w.WriteHeader(m.FailStatus)
		w.Write([]byte(`{"errors":"mock failure"}`))
		return
	}

	start := (page - 1) * limit
	end := min(start+limit, len(m.customers))
	if start > end {
		start = end
	}

	if !m.OmitLink {
		if link := m.linkHeader(page, limit, end < len(m.customers)); link != "" {
			w.Header().Set("Link", link)
		}
	}

	if page == m.MalformedPage {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`<html>maintenance</html>`))
		return
	}

	body, err := json.Marshal(map[string][]MockCustomer{"customers": m.customers[start:end]})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func (m *MockShop) linkHeader(page, limit int, more bool) string {
	pageURL := func(n int) string {
		return fmt.Sprintf("<%s%s?limit=%d&page_info=page-%d>", m.server.URL, CustomersPath, limit, n)
	}

	var link string
	if page > 1 {
		link = pageURL(page-1) + `; rel="previous"`
	}
	next := 0
	switch {
	case m.StuckToken:
		next = max(page, 2)
	case more:
		next = page + 1
	}
	if next > 0 {
		if link != "" {
			link += ", "
		}
		link += pageURL(next) + `; rel="next"`
	}
	return link
}
