// Package pagination walks Spotify's offset-paginated collections.
//
// A [Fetcher] returns one [Page] for a limit and offset. [CollectAll] requests pages of [PageSize] from offset
// zero, advancing by each page's limit while the page reports a next link, and returns the concatenated items
// in upstream order. Items that are nil, or that implement [Validator] and report themselves invalid, are
// dropped.
package pagination

import (
	"context"
	"fmt"

	"github.com/desertthunder/spotlink/internal/shared"
)

// PageSize is the page size requested by [CollectAll]. It is Spotify's maximum for paged endpoints.
const PageSize = 50

// ErrPageLimit is returned when a collection needs more pages than allowed by [WithMaxPages].
var ErrPageLimit = shared.ErrPageLimit

// Page is one slice of a remote collection, decoded from a Spotify paging object.
type Page[T any] struct {
	Items    []*T    `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}

// HasNext reports whether another page follows this one.
func (p *Page[T]) HasNext() bool { return p.Next != nil }

// Fetcher retrieves the page starting at offset.
type Fetcher[T any] func(ctx context.Context, limit, offset int) (*Page[T], error)

// Validator is implemented by items that can be present but unusable, such as a playlist entry whose track
// was removed upstream.
type Validator interface {
	Valid() bool
}

type options struct {
	maxPages int
}

// Option configures [CollectAll].
type Option func(*options)

// WithMaxPages stops aggregation with [ErrPageLimit] once n pages have been fetched and another is still
// advertised. Zero means unbounded.
func WithMaxPages(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxPages = n
		}
	}
}

// CollectAll fetches every page of a collection and returns the usable items in order.
//
// The first error from fetch aborts the walk and nothing collected so far is returned.
func CollectAll[T any](ctx context.Context, fetch Fetcher[T], opts ...Option) ([]T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var (
		items  []T
		offset int
	)

	for pages := 0; ; pages++ {
		if o.maxPages > 0 && pages == o.maxPages {
			return nil, fmt.Errorf("%w: stopped after %d pages at offset %d", ErrPageLimit, pages, offset)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page at offset %d: %w", offset, err)
		}

		items = appendUsable(items, page.Items)

		if !page.HasNext() {
			return items, nil
		}

		step := page.Limit
		if step <= 0 {
			step = PageSize
		}
		offset += step
	}
}

func appendUsable[T any](dst []T, src []*T) []T {
	for _, item := range src {
		if item == nil {
			continue
		}
		if v, ok := any(item).(Validator); ok && !v.Valid() {
			continue
		}
		dst = append(dst, *item)
	}
	return dst
}
