package catalog

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
	"github.com/yungbote/catalog-metrics/internal/pkg/pointers"
)

type ProductMetricsRepo interface {
	Get(dbc dbctx.Context, productID int64) (*types.ProductMetrics, error)

	UpsertSales(dbc dbctx.Context, productID int64, f types.SalesFields) error
	UpsertDerived(dbc dbctx.Context, productID int64, f types.DerivedFields) error

	EnsureDefaults(dbc dbctx.Context, productID int64, marker int64) (bool, error)
	ResetForDuplicate(dbc dbctx.Context, productID int64) error

	DeleteByProductIDs(dbc dbctx.Context, productIDs []int64) error
}

type productMetricsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductMetricsRepo(db *gorm.DB, baseLog *logger.Logger) ProductMetricsRepo {
	return &productMetricsRepo{db: db, log: baseLog.With("repo", "ProductMetricsRepo")}
}

func (r *productMetricsRepo) Get(dbc dbctx.Context, productID int64) (*types.ProductMetrics, error) {
	if productID <= 0 {
		return nil, nil
	}
	var out []*types.ProductMetrics
	if err := dbc.Or(r.db).Where("product_id = ?", productID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *productMetricsRepo) UpsertSales(dbc dbctx.Context, productID int64, f types.SalesFields) error {
	if productID <= 0 {
		return nil
	}
	row := &types.ProductMetrics{
		ProductID: productID,
		Sales7:    f.Sales7,
		Sales30:   f.Sales30,
		Total7:    f.Total7,
		Total30:   f.Total30,
		Profit7:   f.Profit7,
		Profit30:  f.Profit30,
		UpdatedAt: time.Now().UTC(),
	}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"sales_7",
				"sales_30",
				"total_7",
				"total_30",
				"profit_7",
				"profit_30",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *productMetricsRepo) UpsertDerived(dbc dbctx.Context, productID int64, f types.DerivedFields) error {
	if productID <= 0 {
		return nil
	}
	row := &types.ProductMetrics{
		ProductID:         productID,
		Overstock:         f.Overstock,
		StockDays:         f.StockDays,
		AvailabilityScore: f.AvailabilityScore,
		Trending:          f.Trending,
		SalesDataUpdated:  pointers.Ptr(f.SalesDataUpdated),
		UpdatedAt:         time.Now().UTC(),
	}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"overstock",
				"stock_days",
				"availability_score",
				"trending",
				"sales_data_updated",
				"updated_at",
			}),
		}).
		Create(row).Error
}

// EnsureDefaults gives a freshly saved product a zeroed record and the supplied
// freshness marker. An existing marker is never moved. Reports whether anything changed.
func (r *productMetricsRepo) EnsureDefaults(dbc dbctx.Context, productID int64, marker int64) (bool, error) {
	if productID <= 0 {
		return false, nil
	}
	t := dbc.Or(r.db)
	res := t.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoNothing: true,
	}).Create(&types.ProductMetrics{
		ProductID:        productID,
		SalesDataUpdated: &marker,
		UpdatedAt:        time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	upd := t.Model(&types.ProductMetrics{}).
		Where("product_id = ? AND sales_data_updated IS NULL", productID).
		Updates(map[string]interface{}{
			"sales_data_updated": marker,
			"updated_at":         time.Now().UTC(),
		})
	if upd.Error != nil {
		return false, upd.Error
	}
	return upd.RowsAffected > 0, nil
}

// ResetForDuplicate zeroes every metric so a copied product does not inherit the
// source's ranking. The freshness marker is left alone.
func (r *productMetricsRepo) ResetForDuplicate(dbc dbctx.Context, productID int64) error {
	if productID <= 0 {
		return nil
	}
	row := &types.ProductMetrics{ProductID: productID, UpdatedAt: time.Now().UTC()}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"trending",
				"availability_score",
				"sales_7",
				"sales_30",
				"total_7",
				"total_30",
				"profit_7",
				"profit_30",
				"overstock",
				"stock_days",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *productMetricsRepo) DeleteByProductIDs(dbc dbctx.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	return dbc.Or(r.db).Where("product_id IN ?", productIDs).Delete(&types.ProductMetrics{}).Error
}
