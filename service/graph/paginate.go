package graph

import (
	"context"
	"fmt"
)

const (
	// DefaultCursor is the lowest possible subgraph ID.
	DefaultCursor = "0x00"

	// DefaultPageSize is the number of records requested per page.
	DefaultPageSize = 1000

	// DefaultMaxResults bounds one auto-paginated fetch.
	DefaultMaxResults = 100000
)

// PageQuery fetches records with ID >= cursor, in ascending ID order.
type PageQuery[T Identifiable] func(ctx context.Context, cursor string) ([]T, error)

// PaginationOptions controls AutoPaginate.
type PaginationOptions struct {
	PageSize   int
	MaxResults int
}

func (o PaginationOptions) withDefaults() PaginationOptions {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// PaginationResult is everything fetched by AutoPaginate, duplicates included.
// HitCeiling is set when fetching stopped at MaxResults while more records
// may remain.
type PaginationResult[T Identifiable] struct {
	Items      []T
	Pages      int
	HitCeiling bool
}

// AutoPaginate fetches pages starting at cursor until a page comes back
// short or empty, or the accumulated count reaches MaxResults. A full page
// moves the cursor to its last ID, so consecutive pages overlap by one
// record; callers deduplicate. A full page that ends on its own cursor
// returns ErrCursorStalled.
func AutoPaginate[T Identifiable](ctx context.Context, query PageQuery[T], cursor string, opts PaginationOptions) (PaginationResult[T], error) {
	opts = opts.withDefaults()
	if cursor == "" {
		cursor = DefaultCursor
	}

	var res PaginationResult[T]
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		page, err := query(ctx, cursor)
		if err != nil {
			return res, fmt.Errorf("failed to fetch page at cursor %s: %w", cursor, err)
		}
		res.Pages++
		if len(page) == 0 {
			return res, nil
		}

		res.Items = append(res.Items, page...)
		if len(res.Items) >= opts.MaxResults {
			res.HitCeiling = len(page) == opts.PageSize
			return res, nil
		}
		if len(page) != opts.PageSize {
			return res, nil
		}
		next := res.Items[len(res.Items)-1].GetID()
		if next == cursor {
			return res, fmt.Errorf("%w: cursor %s", ErrCursorStalled, cursor)
		}
		cursor = next
	}
}

// RemoveDuplicatesByID drops every record whose ID was already seen,
// keeping the first occurrence and preserving order.
func RemoveDuplicatesByID[T Identifiable](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		id := item.GetID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}
