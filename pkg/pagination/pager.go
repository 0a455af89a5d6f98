package pagination

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "shopkit_pages_fetched_total",
	Help: "Total number of list pages fetched",
})

// Response is the raw result of one page request.
type Response struct {
	Body   []byte
	Header http.Header
}

// PageFetcher fetches the page identified by token.
type PageFetcher interface {
	FetchPage(ctx context.Context, token Token) (*Response, error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc func(ctx context.Context, token Token) (*Response, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, token Token) (*Response, error) {
	return f(ctx, token)
}

// Page is one fetched page.
type Page struct {
	// Number is 1-based.
	Number int

	// Token is the token used to request this page.
	Token Token

	Body []byte
}

// Pager walks a cursor-paginated endpoint sequentially.
type Pager struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewPager creates a pager over fetcher.
func NewPager(fetcher PageFetcher) *Pager {
	return &Pager{
		fetcher: fetcher,
		logger:  log.With().Str("component", "pagination").Logger(),
	}
}

// Pages returns a lazy sequence of pages. The next page is only requested
// after the consumer has handled the current one. The sequence ends after the
// last page, or after yielding the first error.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[Page, error] {
	return func(yield func(Page, error) bool) {
		start := time.Now()
		seen := map[Token]bool{}
		var token Token

		for number := 1; ; number++ {
			if err := ctx.Err(); err != nil {
				yield(Page{}, fmt.Errorf("page %d: %w", number, err))
				return
			}

			resp, err := p.fetcher.FetchPage(ctx, token)
			if err != nil {
				p.logger.Error().Err(err).Int("page", number).Msg("Page fetch failed")
				yield(Page{}, fmt.Errorf("page %d: %w", number, err))
				return
			}
			pagesFetchedTotal.Inc()
			seen[token] = true

			p.logger.Debug().
				Int("page", number).
				Str("page_info", string(token)).
				Int("bytes", len(resp.Body)).
				Msg("Fetched page")

			if !yield(Page{Number: number, Token: token, Body: resp.Body}, nil) {
				return
			}

			next, ok := NextToken(resp.Header.Values("Link")...)
			if !ok || next == token {
				p.logger.Info().
					Int("pages", number).
					Dur("duration", time.Since(start)).
					Msg("Fetch complete")
				return
			}
			if seen[next] {
				p.logger.Warn().
					Int("pages", number).
					Str("page_info", string(next)).
					Msg("Continuation token repeated, stopping")
				return
			}
			token = next
		}
	}
}

// Collect fetches every page and returns their bodies in order.
func (p *Pager) Collect(ctx context.Context) ([][]byte, error) {
	var bodies [][]byte
	for page, err := range p.Pages(ctx) {
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, page.Body)
	}
	return bodies, nil
}
