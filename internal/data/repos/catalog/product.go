package catalog

import (
	"gorm.io/gorm"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type ProductRepo interface {
	Create(dbc dbctx.Context, rows []*types.Product) ([]*types.Product, error)

	GetByID(dbc dbctx.Context, id int64) (*types.Product, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Product, error)
	GetVariations(dbc dbctx.Context, parentID int64) ([]*types.Product, error)

	TotalStock(dbc dbctx.Context, id int64) (int64, error)
	ListStale(dbc dbctx.Context, productTypes []string, cutoffUnix int64, limit int) ([]int64, error)
	ListPublishedIDs(dbc dbctx.Context, productTypes []string, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]int64, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) Create(dbc dbctx.Context, rows []*types.Product) ([]*types.Product, error) {
	if len(rows) == 0 {
		return []*types.Product{}, nil
	}
	if err := dbc.Or(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *productRepo) GetByID(dbc dbctx.Context, id int64) (*types.Product, error) {
	if id <= 0 {
		return nil, nil
	}
	var out []*types.Product
	if err := dbc.Or(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *productRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Product, error) {
	var out []*types.Product
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Or(r.db).Where("id IN ?", ids).Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetVariations returns the non-trashed children of a variable product.
func (r *productRepo) GetVariations(dbc dbctx.Context, parentID int64) ([]*types.Product, error) {
	var out []*types.Product
	if parentID <= 0 {
		return out, nil
	}
	if err := dbc.Or(r.db).
		Where("parent_id = ? AND type = ? AND status <> ?", parentID, types.ProductTypeVariation, types.ProductStatusTrash).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TotalStock sums the product's own stock with that of its live variations.
func (r *productRepo) TotalStock(dbc dbctx.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, nil
	}
	var total int64
	err := dbc.Or(r.db).
		Model(&types.Product{}).
		Select("COALESCE(SUM(COALESCE(stock_quantity, 0)), 0)").
		Where("(id = ? OR parent_id = ?) AND status <> ?", id, id, types.ProductStatusTrash).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListStale returns published products whose freshness marker is absent or at or
// before cutoffUnix, oldest first. A missing marker sorts as 0.
func (r *productRepo) ListStale(dbc dbctx.Context, productTypes []string, cutoffUnix int64, limit int) ([]int64, error) {
	ids := []int64{}
	if limit <= 0 || len(productTypes) == 0 {
		return ids, nil
	}
	err := dbc.Or(r.db).
		Table("product AS p").
		Joins("LEFT JOIN product_metrics m ON m.product_id = p.id").
		Where("p.type IN ?", productTypes).
		Where("p.status = ?", types.ProductStatusPublish).
		Where("(m.sales_data_updated IS NULL OR m.sales_data_updated <= ?)", cutoffUnix).
		Order("COALESCE(m.sales_data_updated, 0) ASC").
		Order("p.id ASC").
		Limit(limit).
		Pluck("p.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListPublishedIDs lists published products newest first. Scopes may replace the
// ordering; columns are addressed as product.<col>.
func (r *productRepo) ListPublishedIDs(dbc dbctx.Context, productTypes []string, limit int, scopes ...func(*gorm.DB) *gorm.DB) ([]int64, error) {
	ids := []int64{}
	if limit <= 0 || len(productTypes) == 0 {
		return ids, nil
	}
	err := dbc.Or(r.db).
		Table("product").
		Where("product.type IN ?", productTypes).
		Where("product.status = ?", types.ProductStatusPublish).
		Order("product.id DESC").
		Scopes(scopes...).
		Limit(limit).
		Pluck("product.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
