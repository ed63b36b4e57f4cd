package steps

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/yungbote/catalog-metrics/internal/data/repos"
	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
)

// VariationSalesWindow is the lookback used when weighting variations by sales.
const VariationSalesWindow = LongWindow

type AvailabilityScorer struct {
	products repos.ProductRepo
	orders   repos.OrderLineRepo
	now      func() time.Time
}

func NewAvailabilityScorer(products repos.ProductRepo, orders repos.OrderLineRepo, now func() time.Time) *AvailabilityScorer {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityScorer{products: products, orders: orders, now: now}
}

// Score returns the sales-weighted share of a product that can be bought right now, in [0,1].
// Simple products are 1 or 0. Variable products weight each variation by how often it
// sold; with no sales history at all they are treated as fully available. Anything
// else scores 1.
func (s *AvailabilityScorer) Score(ctx context.Context, p *types.Product) (float64, error) {
	if s == nil || s.products == nil || s.orders == nil {
		return 0, fmt.Errorf("availability_score: missing deps")
	}
	if p == nil {
		return 0, nil
	}
	switch p.Type {
	case types.ProductTypeSimple:
		if p.InStock() {
			return 1, nil
		}
		return 0, nil
	case types.ProductTypeVariable:
		return s.scoreVariable(ctx, p)
	default:
		return 1, nil
	}
}

func (s *AvailabilityScorer) scoreVariable(ctx context.Context, p *types.Product) (float64, error) {
	dbc := dbctx.Context{Ctx: ctx}
	variations, err := s.products.GetVariations(dbc, p.ID)
	if err != nil {
		return 0, fmt.Errorf("load variations of %d: %w", p.ID, err)
	}
	if len(variations) == 0 {
		return 1, nil
	}
	ids := make([]int64, 0, len(variations))
	for _, v := range variations {
		ids = append(ids, v.ID)
	}
	sales, err := s.orders.CountVariationSales(dbc, ids, types.CountedOrderStatuses, WindowStart(s.now(), VariationSalesWindow))
	if err != nil {
		return 0, fmt.Errorf("count variation sales of %d: %w", p.ID, err)
	}
	if len(sales) == 0 {
		return 1, nil
	}

	var total, available int64
	for _, v := range variations {
		n := sales[v.ID]
		total += n
		if v.InStock() && v.Visible() {
			available += n
		}
	}
	if total == 0 {
		return 1, nil
	}
	return float64(available) / float64(total), nil
}

// RoundScore rounds to the two decimals the score is stored with.
func RoundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
