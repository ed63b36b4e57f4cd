package catalogmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics/ordering"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics/steps"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type UsecasesDeps struct {
	Log *logger.Logger

	Products       repos.ProductRepo
	OrderLines     repos.OrderLineRepo
	ProductMetrics repos.ProductMetricsRepo
	Lookup         repos.LookupRepo

	// Optional clock, UTC wall time by default.
	Now func() time.Time
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

func (u Usecases) WithClock(now func() time.Time) Usecases {
	u.deps.Now = now
	return u
}

type (
	RefreshInput  = steps.RefreshInput
	RefreshOutput = steps.RefreshOutput

	BackfillLookupOutput = steps.BackfillLookupOutput
)

func (u Usecases) refreshDeps() steps.RefreshDeps {
	return steps.RefreshDeps{
		Log:        u.deps.Log,
		Products:   u.deps.Products,
		OrderLines: u.deps.OrderLines,
		Metrics:    u.deps.ProductMetrics,
		Lookup:     u.deps.Lookup,
		Now:        u.deps.Now,
	}
}

func (u Usecases) lifecycleDeps() steps.ProductLifecycleDeps {
	return steps.ProductLifecycleDeps{
		Log:     u.deps.Log,
		Metrics: u.deps.ProductMetrics,
		Lookup:  u.deps.Lookup,
		Now:     u.deps.Now,
	}
}

// Refresh runs one recomputation batch. Every call gets fresh memoized state.
func (u Usecases) Refresh(ctx context.Context, in RefreshInput) (RefreshOutput, error) {
	return steps.Refresh(ctx, u.refreshDeps(), in)
}

func (u Usecases) RefreshProduct(ctx context.Context, productID int64) (*steps.ProductResult, error) {
	return steps.RefreshProduct(ctx, u.refreshDeps(), productID)
}

func (u Usecases) ProductSaved(ctx context.Context, productID int64) (bool, error) {
	return steps.EnsureProductDefaults(ctx, u.lifecycleDeps(), productID)
}

func (u Usecases) ProductDuplicated(ctx context.Context, productID int64) error {
	return steps.ResetDuplicatedProduct(ctx, u.lifecycleDeps(), productID)
}

func (u Usecases) ProductsDeleted(ctx context.Context, productIDs []int64) error {
	return steps.ForgetProducts(ctx, u.lifecycleDeps(), productIDs)
}

func (u Usecases) BackfillLookup(ctx context.Context) (BackfillLookupOutput, error) {
	return steps.BackfillLookup(ctx, u.lifecycleDeps())
}

type RankInput struct {
	Key   string
	Limit int
}

type RankOutput struct {
	Key        string  `json:"key"`
	ProductIDs []int64 `json:"product_ids"`
}

// Rank lists published products in the order a storefront sorted by Key would show them.
// An unknown key keeps the default newest-first order.
func (u Usecases) Rank(ctx context.Context, in RankInput) (RankOutput, error) {
	out := RankOutput{Key: in.Key, ProductIDs: []int64{}}
	if u.deps.Products == nil {
		return out, fmt.Errorf("rank: missing deps")
	}
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = 20
	case limit > steps.DefaultBatchLimit:
		limit = steps.DefaultBatchLimit
	}
	ids, err := u.deps.Products.ListPublishedIDs(
		dbctx.Context{Ctx: ctx},
		types.TrackedProductTypes,
		limit,
		ordering.New("product.id").Scope(in.Key),
	)
	if err != nil {
		return out, fmt.Errorf("rank: %w", err)
	}
	out.ProductIDs = ids
	return out, nil
}
