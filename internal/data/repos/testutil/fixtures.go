package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
)

// Day is the fixed clock most tests run against.
var Day = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func Clock(t time.Time) func() time.Time { return func() time.Time { return t } }

type ProductOpt func(p *types.Product)

func WithStock(qty int64) ProductOpt {
	return func(p *types.Product) { p.StockQuantity = &qty }
}

func WithStockStatus(status string) ProductOpt {
	return func(p *types.Product) { p.StockStatus = status }
}

func WithStatus(status string) ProductOpt {
	return func(p *types.Product) { p.Status = status }
}

func WithPrice(price float64) ProductOpt {
	return func(p *types.Product) {
		d := decimal.NewFromFloat(price)
		p.Price = &d
	}
}

func WithoutPrice() ProductOpt {
	return func(p *types.Product) { p.Price = nil }
}

func PublishedAt(t time.Time) ProductOpt {
	return func(p *types.Product) { p.PublishedAt = t.UTC() }
}

func SeedProduct(tb testing.TB, ctx context.Context, tx *gorm.DB, productType string, opts ...ProductOpt) *types.Product {
	tb.Helper()
	p := &types.Product{
		Type:        productType,
		Status:      types.ProductStatusPublish,
		Name:        productType,
		StockStatus: types.StockStatusInStock,
		PublishedAt: Day.AddDate(0, -6, 0),
	}
	WithPrice(10)(p)
	for _, opt := range opts {
		opt(p)
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed product: %v", err)
	}
	return p
}

func SeedVariation(tb testing.TB, ctx context.Context, tx *gorm.DB, parent *types.Product, opts ...ProductOpt) *types.Product {
	tb.Helper()
	parentID := parent.ID
	all := append([]ProductOpt{func(p *types.Product) { p.ParentID = &parentID }}, opts...)
	return SeedProduct(tb, ctx, tx, types.ProductTypeVariation, all...)
}

// Line describes one order line for SeedOrder. Cost < 0 leaves the cost unset.
type Line struct {
	ProductID   int64
	VariationID int64
	Qty         int64
	Subtotal    float64
	Cost        float64
	ItemType    string
}

func SeedOrder(tb testing.TB, ctx context.Context, tx *gorm.DB, status string, placedAt time.Time, lines ...Line) *types.Order {
	tb.Helper()
	o := &types.Order{Status: status, PlacedAt: placedAt.UTC()}
	if err := tx.WithContext(ctx).Create(o).Error; err != nil {
		tb.Fatalf("seed order: %v", err)
	}
	for _, l := range lines {
		row := &types.OrderLine{
			OrderID:      o.ID,
			ItemType:     l.ItemType,
			ProductID:    l.ProductID,
			Quantity:     l.Qty,
			LineSubtotal: decimal.NewFromFloat(l.Subtotal),
		}
		if row.ItemType == "" {
			row.ItemType = types.OrderItemLine
		}
		if l.VariationID > 0 {
			v := l.VariationID
			row.VariationID = &v
		}
		if l.Cost >= 0 {
			c := decimal.NewFromFloat(l.Cost)
			row.CostTotal = &c
		}
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed order line: %v", err)
		}
	}
	return o
}

func SeedMetrics(tb testing.TB, ctx context.Context, tx *gorm.DB, m *types.ProductMetrics) *types.ProductMetrics {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed metrics: %v", err)
	}
	return m
}

