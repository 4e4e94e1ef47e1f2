package azure

import (
	"context"
	"fmt"
)

// pager is the subset of runtime.Pager used to walk list results.
type pager[T any] interface {
	More() bool
	NextPage(ctx context.Context) (T, error)
}

// drain collects every page. A failure on any page discards what was read so
// far; callers never see a partial listing.
func drain[T any](ctx context.Context, p pager[T]) ([]T, error) {
	var pages []T
	for p.More() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", len(pages)+1, err)
		}
		pages = append(pages, page)
	}
	return pages, nil
}
