package steps

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

const tracerName = "github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"

// maxReportedErrors caps the per-product errors carried in the output.
const maxReportedErrors = 20

type RefreshDeps struct {
	Log        *logger.Logger
	Products   repos.ProductRepo
	OrderLines repos.OrderLineRepo
	Metrics    repos.ProductMetricsRepo
	Lookup     repos.LookupRepo

	// Optional. Built per call when nil so memoized state never outlives a run.
	Sales  *SalesAggregator
	Scorer *AvailabilityScorer

	Now    func() time.Time
	Tracer trace.Tracer
}

type RefreshInput struct {
	Limit      int
	StaleAfter time.Duration
	// ProductIDs bypasses selection when set.
	ProductIDs []int64
}

type RefreshOutput struct {
	Noop     bool     `json:"noop"`
	Selected int      `json:"selected"`
	Updated  int      `json:"updated"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
	Elapsed  string   `json:"elapsed"`
}

// ProductResult is what one product's pass wrote.
type ProductResult struct {
	ProductID int64
	Sales     types.SalesFields
	Derived   types.DerivedFields
	Lookup    *types.LookupRow
}

// Refresh recomputes metrics for a batch of stale products. Products are processed one
// at a time; a failing product is logged and counted and the batch carries on. Writes
// already made for a failing product are not rolled back.
func Refresh(ctx context.Context, deps RefreshDeps, in RefreshInput) (RefreshOutput, error) {
	out := RefreshOutput{}
	if deps.Log == nil || deps.Products == nil || deps.OrderLines == nil || deps.Metrics == nil || deps.Lookup == nil {
		return out, fmt.Errorf("metrics_refresh: missing deps")
	}
	r := newRefresher(deps)
	started := r.now()

	ctx, span := r.tracer.Start(ctx, "catalogmetrics.refresh")
	defer span.End()

	ids := in.ProductIDs
	if len(ids) == 0 {
		sel, err := SelectStale(ctx, SelectStaleDeps{Products: deps.Products, Now: r.now}, SelectStaleInput{
			Limit:      in.Limit,
			StaleAfter: in.StaleAfter,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "select")
			return out, err
		}
		ids = sel.ProductIDs
	}
	out.Selected = len(ids)
	span.SetAttributes(attribute.Int("catalog.selected", out.Selected))
	if len(ids) == 0 {
		out.Noop = true
		out.Elapsed = r.now().Sub(started).String()
		return out, nil
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := r.refreshProduct(ctx, id)
		switch {
		case err != nil:
			out.Failed++
			if len(out.Errors) < maxReportedErrors {
				out.Errors = append(out.Errors, fmt.Sprintf("%d: %v", id, err))
			}
			r.log.Warn("product refresh failed", "product_id", id, "error", err)
		case res == nil:
			out.Skipped++
			r.log.Debug("product vanished before refresh", "product_id", id)
		default:
			out.Updated++
		}
	}

	span.SetAttributes(
		attribute.Int("catalog.updated", out.Updated),
		attribute.Int("catalog.skipped", out.Skipped),
		attribute.Int("catalog.failed", out.Failed),
	)
	out.Elapsed = r.now().Sub(started).String()
	r.log.Info("metrics refresh finished",
		"selected", out.Selected,
		"updated", out.Updated,
		"skipped", out.Skipped,
		"failed", out.Failed,
		"elapsed", out.Elapsed,
	)
	return out, nil
}

// RefreshProduct runs the per-product pass on its own, outside a batch.
func RefreshProduct(ctx context.Context, deps RefreshDeps, productID int64) (*ProductResult, error) {
	if deps.Log == nil || deps.Products == nil || deps.OrderLines == nil || deps.Metrics == nil || deps.Lookup == nil {
		return nil, fmt.Errorf("metrics_refresh: missing deps")
	}
	return newRefresher(deps).refreshProduct(ctx, productID)
}

type refresher struct {
	deps   RefreshDeps
	log    *logger.Logger
	now    func() time.Time
	tracer trace.Tracer
	sales  *SalesAggregator
	scorer *AvailabilityScorer
	ages   map[int64]int64
}

func newRefresher(deps RefreshDeps) *refresher {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	r := &refresher{
		deps:   deps,
		log:    deps.Log.With("step", "metrics_refresh"),
		now:    now,
		tracer: tracer,
		sales:  deps.Sales,
		scorer: deps.Scorer,
		ages:   map[int64]int64{},
	}
	if r.sales == nil {
		r.sales = NewSalesAggregator(deps.OrderLines, deps.Log, now)
	}
	if r.scorer == nil {
		r.scorer = NewAvailabilityScorer(deps.Products, deps.OrderLines, now)
	}
	return r
}

func (r *refresher) age(p *types.Product) int64 {
	if a, ok := r.ages[p.ID]; ok {
		return a
	}
	a := ProductAge(p.PublishedAt, r.now())
	r.ages[p.ID] = a
	return a
}

// refreshProduct returns nil, nil when the product no longer exists.
func (r *refresher) refreshProduct(ctx context.Context, id int64) (*ProductResult, error) {
	ctx, span := r.tracer.Start(ctx, "catalogmetrics.refresh_product",
		trace.WithAttributes(attribute.Int64("catalog.product_id", id)))
	defer span.End()

	res, err := r.doRefreshProduct(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh_product")
	}
	return res, err
}

func (r *refresher) doRefreshProduct(ctx context.Context, id int64) (*ProductResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	p, err := r.deps.Products.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if p == nil {
		return nil, nil
	}

	sales, err := r.sales.SalesFieldsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if err := r.deps.Metrics.UpsertSales(dbc, p.ID, sales); err != nil {
		return nil, fmt.Errorf("write sales: %w", err)
	}

	stock := p.Stock()
	if p.Is(types.ProductTypeVariable) {
		if stock, err = r.deps.Products.TotalStock(dbc, p.ID); err != nil {
			return nil, fmt.Errorf("total stock: %w", err)
		}
	}
	age := r.age(p)

	availability, err := r.scorer.Score(ctx, p)
	if err != nil {
		return nil, err
	}
	availability = RoundScore(availability)

	derived := types.DerivedFields{
		Overstock:         Overstock(stock, sales.Sales30),
		StockDays:         StockDays(stock, sales.Sales30, age),
		AvailabilityScore: availability,
		Trending: Trending(TrendingInput{
			Age:          age,
			Profit7:      sales.Profit7,
			Profit30:     sales.Profit30,
			Availability: availability,
		}),
		SalesDataUpdated: r.now().Unix(),
	}
	if err := r.deps.Metrics.UpsertDerived(dbc, p.ID, derived); err != nil {
		return nil, fmt.Errorf("write derived: %w", err)
	}

	row := &types.LookupRow{
		ProductID: p.ID,
		Trending:  derived.Trending,
		Sales7:    sales.Sales7,
		Sales30:   sales.Sales30,
		Total7:    sales.Total7,
		Total30:   sales.Total30,
		Profit7:   sales.Profit7,
		Profit30:  sales.Profit30,
	}
	if err := r.deps.Lookup.Upsert(dbc, row); err != nil {
		return nil, fmt.Errorf("upsert lookup: %w", err)
	}

	return &ProductResult{ProductID: p.ID, Sales: sales, Derived: derived, Lookup: row}, nil
}
