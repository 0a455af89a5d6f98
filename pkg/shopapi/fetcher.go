package shopapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/shopkit/pkg/client"
	"github.com/Sternrassler/shopkit/pkg/pagination"
	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// MaxPageSize is the largest limit the API accepts.
	MaxPageSize = 250

	// DefaultAPIVersion is the REST API version requested.
	DefaultAPIVersion = "2021-04"

	// DefaultUserAgent is sent when no client is supplied.
	DefaultUserAgent = "shopkit/1.0"
)

// Doer executes HTTP requests. *client.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CustomersURL builds the customers endpoint for domain with the API key in
// the credential segment of the URL. apiKey may be "key" or "key:password".
func CustomersURL(domain, apiVersion, apiKey string) string {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	u := url.URL{
		Scheme: "https",
		Host:   domain,
		Path:   "/admin/api/" + apiVersion + "/customers.json",
	}
	return WithCredentials(&u, apiKey).String()
}

// WithCredentials returns a copy of u carrying apiKey ("key" or
// "key:password") as its user info. Credentials already in u are kept.
func WithCredentials(u *url.URL, apiKey string) *url.URL {
	out := *u
	if apiKey == "" || out.User != nil {
		return &out
	}
	if user, pass, ok := strings.Cut(apiKey, ":"); ok {
		out.User = url.UserPassword(user, pass)
	} else {
		out.User = url.User(apiKey)
	}
	return &out
}

// ClampPageSize limits n to 1..MaxPageSize.
func ClampPageSize(n int) int {
	switch {
	case n < 1:
		return 1
	case n > MaxPageSize:
		return MaxPageSize
	default:
		return n
	}
}

// Fetcher requests customer pages. It implements pagination.PageFetcher.
type Fetcher struct {
	doer     Doer
	baseURL  *url.URL
	pageSize int
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher for baseURL. pageSize is clamped to
// 1..MaxPageSize.
func NewFetcher(doer Doer, baseURL string, pageSize int) (*Fetcher, error) {
	if doer == nil {
		return nil, fmt.Errorf("http client is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", client.RedactURL(u))
	}

	f := &Fetcher{
		doer:     doer,
		baseURL:  u,
		pageSize: ClampPageSize(pageSize),
		logger:   log.With().Str("component", "shopapi").Logger(),
	}
	if f.pageSize != pageSize {
		f.logger.Warn().
			Int("requested", pageSize).
			Int("page_size", f.pageSize).
			Msg("Page size clamped")
	}
	return f, nil
}

// PageSize returns the effective page size.
func (f *Fetcher) PageSize() int {
	return f.pageSize
}

// PageURL returns the URL requesting the page identified by token.
func (f *Fetcher) PageURL(token pagination.Token) string {
	u := *f.baseURL
	q := u.Query()
	q.Set("limit", strconv.Itoa(f.pageSize))
	q.Set(pagination.TokenParam, string(token))
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage requests one page. Non-2xx responses surface as *client.FetchError.
func (f *Fetcher) FetchPage(ctx context.Context, token pagination.Token) (*pagination.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.PageURL(token), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if class := client.ClassifyStatus(resp.StatusCode); class != "" {
		return nil, &client.FetchError{
			StatusCode: resp.StatusCode,
			Class:      class,
			URL:        client.RedactURL(req.URL),
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &client.FetchError{
			StatusCode: resp.StatusCode,
			Class:      client.ErrorClassNetwork,
			URL:        client.RedactURL(req.URL),
			Message:    "read body",
			Err:        err,
		}
	}

	return &pagination.Response{Body: body, Header: resp.Header}, nil
}

// FetchAll walks every page and returns the normalized customers in page
// order. The first failure aborts the walk.
func (f *Fetcher) FetchAll(ctx context.Context) ([]record.Customer, error) {
	var customers []record.Customer
	pages := 0

	for page, err := range pagination.NewPager(f).Pages(ctx) {
		if err != nil {
			return nil, err
		}
		batch, err := DecodePage(page.Body)
		if err != nil {
			return nil, &client.FetchError{
				StatusCode: http.StatusOK,
				Class:      client.ErrorClassDecode,
				URL:        client.RedactURL(f.baseURL),
				Message:    fmt.Sprintf("page %d", page.Number),
				Err:        err,
			}
		}
		pages++
		customers = append(customers, batch...)
	}

	f.logger.Info().
		Int("pages", pages).
		Int("customers", len(customers)).
		Msg("Fetched customers")
	return customers, nil
}

// FetchAll fetches every customer from baseURL with a default client.
func FetchAll(ctx context.Context, baseURL string, pageSize int) ([]record.Customer, error) {
	c, err := client.New(client.DefaultConfig(nil, DefaultUserAgent))
	if err != nil {
		return nil, err
	}
	f, err := NewFetcher(c, baseURL, pageSize)
	if err != nil {
		return nil, err
	}
	return f.FetchAll(ctx)
}
