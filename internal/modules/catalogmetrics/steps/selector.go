package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
)

const (
	DefaultBatchLimit = 500
	DefaultStaleAfter = 2 * time.Hour
)

type SelectStaleDeps struct {
	Products repos.ProductRepo
	Now      func() time.Time
}

type SelectStaleInput struct {
	Limit      int
	StaleAfter time.Duration
}

type SelectStaleOutput struct {
	ProductIDs []int64 `json:"product_ids"`
	Cutoff     int64   `json:"cutoff"`
}

// SelectStale picks up to Limit published products whose metrics are missing or older
// than StaleAfter, least recently refreshed first.
func SelectStale(ctx context.Context, deps SelectStaleDeps, in SelectStaleInput) (SelectStaleOutput, error) {
	out := SelectStaleOutput{ProductIDs: []int64{}}
	if deps.Products == nil {
		return out, fmt.Errorf("select_stale: missing deps")
	}
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	limit := in.Limit
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	staleAfter := in.StaleAfter
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	out.Cutoff = now().Add(-staleAfter).Unix()
	ids, err := deps.Products.ListStale(dbctx.Context{Ctx: ctx}, types.TrackedProductTypes, out.Cutoff, limit)
	if err != nil {
		return out, fmt.Errorf("select_stale: %w", err)
	}
	out.ProductIDs = ids
	return out, nil
}
