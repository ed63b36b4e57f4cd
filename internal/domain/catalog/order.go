package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending       = "pending"
	OrderStatusProcessing    = "processing"
	OrderStatusOnHold        = "on-hold"
	OrderStatusPackable      = "packable"
	OrderStatusPacking       = "packing"
	OrderStatusCompleted     = "completed"
	OrderStatusAwaitingStock = "awaiting-stock"
	OrderStatusCancelled     = "cancelled"
	OrderStatusRefunded      = "refunded"
	OrderStatusFailed        = "failed"
)

// CountedOrderStatuses are the order states that count as a sale.
var CountedOrderStatuses = []string{
	OrderStatusProcessing,
	OrderStatusOnHold,
	OrderStatusPackable,
	OrderStatusPacking,
	OrderStatusCompleted,
	OrderStatusAwaitingStock,
}

const (
	OrderItemLine     = "line_item"
	OrderItemShipping = "shipping"
	OrderItemFee      = "fee"
)

type Order struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Status   string    `gorm:"column:status;not null;index:idx_shop_order_status_placed,priority:1" json:"status"`
	PlacedAt time.Time `gorm:"column:placed_at;not null;index:idx_shop_order_status_placed,priority:2" json:"placed_at"`
}

func (Order) TableName() string { return "shop_order" }

type OrderLine struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64  `gorm:"column:order_id;not null;index" json:"order_id"`
	ItemType    string `gorm:"column:item_type;not null;default:line_item" json:"item_type"`
	ProductID   int64  `gorm:"column:product_id;not null;index" json:"product_id"`
	VariationID *int64 `gorm:"column:variation_id;index" json:"variation_id,omitempty"`

	Quantity     int64            `gorm:"column:quantity;not null;default:0" json:"quantity"`
	LineSubtotal decimal.Decimal  `gorm:"column:line_subtotal;type:decimal(20,4);not null;default:0" json:"line_subtotal"`
	CostTotal    *decimal.Decimal `gorm:"column:cost_total;type:decimal(20,4)" json:"cost_total,omitempty"`
}

func (OrderLine) TableName() string { return "order_line" }

// SalesAggregate is one product's summed order lines over a trailing window.
type SalesAggregate struct {
	ProductID int64           `gorm:"column:product_id"`
	Units     int64           `gorm:"column:units"`
	Revenue   decimal.Decimal `gorm:"column:revenue"`
	Cost      decimal.Decimal `gorm:"column:cost"`
}

func (s SalesAggregate) Profit() decimal.Decimal { return s.Revenue.Sub(s.Cost) }
