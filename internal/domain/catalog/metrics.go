package catalog

import "time"

// ProductMetrics is the per-product attribute record written back by the refresh job.
// SalesDataUpdated is the freshness marker in unix seconds; nil means never refreshed.
type ProductMetrics struct {
	ProductID int64 `gorm:"column:product_id;primaryKey;autoIncrement:false" json:"product_id"`

	Trending          int64   `gorm:"column:trending;not null;default:0" json:"trending"`
	AvailabilityScore float64 `gorm:"column:availability_score;not null;default:0" json:"availability_score"`

	Sales7   int64 `gorm:"column:sales_7;not null;default:0" json:"sales_7"`
	Sales30  int64 `gorm:"column:sales_30;not null;default:0" json:"sales_30"`
	Total7   int64 `gorm:"column:total_7;not null;default:0" json:"total_7"`
	Total30  int64 `gorm:"column:total_30;not null;default:0" json:"total_30"`
	Profit7  int64 `gorm:"column:profit_7;not null;default:0" json:"profit_7"`
	Profit30 int64 `gorm:"column:profit_30;not null;default:0" json:"profit_30"`

	Overstock int64 `gorm:"column:overstock;not null;default:0" json:"overstock"`
	StockDays int64 `gorm:"column:stock_days;not null;default:0" json:"stock_days"`

	SalesDataUpdated *int64    `gorm:"column:sales_data_updated;index" json:"sales_data_updated,omitempty"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ProductMetrics) TableName() string { return "product_metrics" }

// SalesFields is the write-back of one pass of the sales aggregator.
type SalesFields struct {
	Sales7, Sales30   int64
	Total7, Total30   int64
	Profit7, Profit30 int64
}

// DerivedFields is the write-back of the stock, availability and trending step.
type DerivedFields struct {
	Overstock         int64
	StockDays         int64
	AvailabilityScore float64
	Trending          int64
	SalesDataUpdated  int64
}

// LookupRow projects the metrics record into the sort-indexed lookup table.
func (m *ProductMetrics) LookupRow() *LookupRow {
	if m == nil {
		return nil
	}
	return &LookupRow{
		ProductID: m.ProductID,
		Trending:  m.Trending,
		Sales7:    m.Sales7,
		Sales30:   m.Sales30,
		Total7:    m.Total7,
		Total30:   m.Total30,
		Profit7:   m.Profit7,
		Profit30:  m.Profit30,
	}
}
