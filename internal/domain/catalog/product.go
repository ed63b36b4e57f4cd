package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductTypeSimple    = "simple"
	ProductTypeVariable  = "variable"
	ProductTypeVariation = "variation"
	ProductTypeGrouped   = "grouped"
	ProductTypeExternal  = "external"
)

const (
	ProductStatusPublish = "publish"
	ProductStatusDraft   = "draft"
	ProductStatusPrivate = "private"
	ProductStatusTrash   = "trash"
)

const (
	StockStatusInStock     = "instock"
	StockStatusOutOfStock  = "outofstock"
	StockStatusOnBackorder = "onbackorder"
)

// TrackedProductTypes are the catalog types whose metrics are recomputed.
// Variations are scored through their parent.
var TrackedProductTypes = []string{ProductTypeSimple, ProductTypeVariable}

type Product struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID *int64 `gorm:"column:parent_id;index" json:"parent_id,omitempty"`

	Type   string `gorm:"column:type;not null;index:idx_product_type_status,priority:1" json:"type"`
	Status string `gorm:"column:status;not null;index:idx_product_type_status,priority:2" json:"status"`
	Name   string `gorm:"column:name;not null;default:''" json:"name"`

	StockQuantity *int64           `gorm:"column:stock_quantity" json:"stock_quantity,omitempty"`
	StockStatus   string           `gorm:"column:stock_status;not null;default:instock" json:"stock_status"`
	Price         *decimal.Decimal `gorm:"column:price;type:decimal(20,4)" json:"price,omitempty"`

	PublishedAt time.Time `gorm:"column:published_at;not null" json:"published_at"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "product" }

func (p *Product) Is(productType string) bool { return p != nil && p.Type == productType }

// InStock treats backorders as purchasable.
func (p *Product) InStock() bool { return p != nil && p.StockStatus != StockStatusOutOfStock }

// Visible reports whether a variation can be shown and bought from the storefront.
func (p *Product) Visible() bool {
	return p != nil && p.Status == ProductStatusPublish && p.Price != nil
}

func (p *Product) Stock() int64 {
	if p == nil || p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}
