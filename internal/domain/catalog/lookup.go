package catalog

const LookupTable = "catalog_lookup"

// Lookup columns, one index each.
const (
	MetricTrending = "trending"
	MetricSales7   = "sales_7"
	MetricSales30  = "sales_30"
	MetricTotal7   = "total_7"
	MetricTotal30  = "total_30"
	MetricProfit7  = "profit_7"
	MetricProfit30 = "profit_30"
)

var LookupMetrics = []string{
	MetricTrending,
	MetricSales7,
	MetricSales30,
	MetricTotal7,
	MetricTotal30,
	MetricProfit7,
	MetricProfit30,
}

func IsLookupMetric(name string) bool {
	for _, m := range LookupMetrics {
		if m == name {
			return true
		}
	}
	return false
}

type LookupRow struct {
	ProductID int64 `gorm:"column:product_id;primaryKey;autoIncrement:false" json:"product_id"`
	Trending  int64 `gorm:"column:trending;not null;default:0" json:"trending"`
	Sales7    int64 `gorm:"column:sales_7;not null;default:0" json:"sales_7"`
	Sales30   int64 `gorm:"column:sales_30;not null;default:0" json:"sales_30"`
	Total7    int64 `gorm:"column:total_7;not null;default:0" json:"total_7"`
	Total30   int64 `gorm:"column:total_30;not null;default:0" json:"total_30"`
	Profit7   int64 `gorm:"column:profit_7;not null;default:0" json:"profit_7"`
	Profit30  int64 `gorm:"column:profit_30;not null;default:0" json:"profit_30"`
}

func (LookupRow) TableName() string { return LookupTable }
