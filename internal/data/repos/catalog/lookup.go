package catalog

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	apperrors "github.com/yungbote/catalog-metrics/internal/pkg/errors"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type LookupRepo interface {
	Upsert(dbc dbctx.Context, row *types.LookupRow) error
	Ensure(dbc dbctx.Context, productID int64) (bool, error)
	GetByProductID(dbc dbctx.Context, productID int64) (*types.LookupRow, error)
	ListSorted(dbc dbctx.Context, metric string, desc bool, limit, offset int) ([]*types.LookupRow, error)
	DeleteByProductIDs(dbc dbctx.Context, productIDs []int64) error
	Backfill(dbc dbctx.Context) (int64, error)
}

type lookupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLookupRepo(db *gorm.DB, baseLog *logger.Logger) LookupRepo {
	return &lookupRepo{db: db, log: baseLog.With("repo", "LookupRepo")}
}

// Upsert replaces the whole row for the product; there is no field merge.
func (r *lookupRepo) Upsert(dbc dbctx.Context, row *types.LookupRow) error {
	if row == nil || row.ProductID <= 0 {
		return nil
	}
	return dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns(types.LookupMetrics),
		}).
		Create(row).Error
}

// Ensure inserts a zeroed row when the product has none. Existing rows are untouched.
func (r *lookupRepo) Ensure(dbc dbctx.Context, productID int64) (bool, error) {
	if productID <= 0 {
		return false, nil
	}
	res := dbc.Or(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&types.LookupRow{ProductID: productID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *lookupRepo) GetByProductID(dbc dbctx.Context, productID int64) (*types.LookupRow, error) {
	if productID <= 0 {
		return nil, nil
	}
	var out []*types.LookupRow
	if err := dbc.Or(r.db).Where("product_id = ?", productID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// ListSorted pages through the table by one metric. product_id DESC always breaks ties
// so pages stay stable between requests.
func (r *lookupRepo) ListSorted(dbc dbctx.Context, metric string, desc bool, limit, offset int) ([]*types.LookupRow, error) {
	metric = strings.ToLower(strings.TrimSpace(metric))
	if !types.IsLookupMetric(metric) {
		return nil, fmt.Errorf("list sorted by %q: %w", metric, apperrors.ErrInvalidArgument)
	}
	q := dbc.Or(r.db).Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: metric}, Desc: desc},
		{Column: clause.Column{Name: "product_id"}, Desc: true},
	}})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*types.LookupRow
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *lookupRepo) DeleteByProductIDs(dbc dbctx.Context, productIDs []int64) error {
	if len(productIDs) == 0 {
		return nil
	}
	return dbc.Or(r.db).Where("product_id IN ?", productIDs).Delete(&types.LookupRow{}).Error
}

// Backfill inserts a row for every product that lacks one, seeded from the stored
// metrics record (missing values become 0). Returns the number of rows inserted.
func (r *lookupRepo) Backfill(dbc dbctx.Context) (int64, error) {
	res := dbc.Or(r.db).Exec(fmt.Sprintf(`
		INSERT INTO %[1]s (product_id, trending, sales_7, sales_30, total_7, total_30, profit_7, profit_30)
		SELECT p.id,
			COALESCE(m.trending, 0),
			COALESCE(m.sales_7, 0),
			COALESCE(m.sales_30, 0),
			COALESCE(m.total_7, 0),
			COALESCE(m.total_30, 0),
			COALESCE(m.profit_7, 0),
			COALESCE(m.profit_30, 0)
		FROM product p
		LEFT JOIN product_metrics m ON m.product_id = p.id
		LEFT JOIN %[1]s l ON l.product_id = p.id
		WHERE l.product_id IS NULL`, types.LookupTable))
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
