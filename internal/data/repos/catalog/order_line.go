package catalog

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type OrderLineRepo interface {
	CreateOrder(dbc dbctx.Context, order *types.Order, lines []*types.OrderLine) error

	AggregateSales(dbc dbctx.Context, statuses []string, since time.Time) ([]types.SalesAggregate, error)
	CountVariationSales(dbc dbctx.Context, variationIDs []int64, statuses []string, since time.Time) (map[int64]int64, error)
}

type orderLineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOrderLineRepo(db *gorm.DB, baseLog *logger.Logger) OrderLineRepo {
	return &orderLineRepo{db: db, log: baseLog.With("repo", "OrderLineRepo")}
}

func (r *orderLineRepo) CreateOrder(dbc dbctx.Context, order *types.Order, lines []*types.OrderLine) error {
	if order == nil {
		return nil
	}
	return dbc.Or(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}
		for _, l := range lines {
			l.OrderID = order.ID
		}
		return tx.Create(&lines).Error
	})
}

// AggregateSales sums line items of orders placed at or after since, grouped by product.
// Lines with a non-positive subtotal are bundle placeholders and are left out.
func (r *orderLineRepo) AggregateSales(dbc dbctx.Context, statuses []string, since time.Time) ([]types.SalesAggregate, error) {
	out := []types.SalesAggregate{}
	if len(statuses) == 0 {
		return out, nil
	}
	err := dbc.Or(r.db).
		Table("order_line AS ol").
		Select(`ol.product_id AS product_id,
			COALESCE(SUM(ol.quantity), 0) AS units,
			COALESCE(SUM(ol.line_subtotal), 0) AS revenue,
			COALESCE(SUM(COALESCE(ol.cost_total, 0)), 0) AS cost`).
		Joins("JOIN shop_order o ON o.id = ol.order_id").
		Where("o.status IN ?", statuses).
		Where("o.placed_at >= ?", since).
		Where("ol.item_type = ?", types.OrderItemLine).
		Where("ol.line_subtotal > 0").
		Group("ol.product_id").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountVariationSales counts order-line occurrences per variation id.
func (r *orderLineRepo) CountVariationSales(dbc dbctx.Context, variationIDs []int64, statuses []string, since time.Time) (map[int64]int64, error) {
	out := map[int64]int64{}
	if len(variationIDs) == 0 || len(statuses) == 0 {
		return out, nil
	}
	var rows []struct {
		VariationID int64 `gorm:"column:variation_id"`
		Sales       int64 `gorm:"column:sales"`
	}
	err := dbc.Or(r.db).
		Table("order_line AS ol").
		Select("ol.variation_id AS variation_id, COUNT(*) AS sales").
		Joins("JOIN shop_order o ON o.id = ol.order_id").
		Where("ol.variation_id IN ?", variationIDs).
		Where("o.status IN ?", statuses).
		Where("o.placed_at >= ?", since).
		Group("ol.variation_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.VariationID] = row.Sales
	}
	return out, nil
}
