// Package ordering lets catalog listings sort by the precomputed lookup metrics.
package ordering

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
)

const (
	KeyTrending   = "trending"
	KeyPopularity = "popularity"
)

// keyMetrics maps accepted sort keys to lookup columns.
var keyMetrics = map[string]string{
	KeyTrending:          types.MetricTrending,
	KeyPopularity:        types.MetricSales30,
	types.MetricSales7:   types.MetricSales7,
	types.MetricSales30:  types.MetricSales30,
	types.MetricTotal7:   types.MetricTotal7,
	types.MetricTotal30:  types.MetricTotal30,
	types.MetricProfit7:  types.MetricProfit7,
	types.MetricProfit30: types.MetricProfit30,
}

// Metric resolves a sort key to its lookup column.
func Metric(key string) (string, bool) {
	m, ok := keyMetrics[strings.ToLower(strings.TrimSpace(key))]
	return m, ok
}

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// DropdownOptions adds the trending sort to a storefront's sort options, labelled
// "Recommended". An existing trending entry is relabelled in place.
func DropdownOptions(existing []Option) []Option {
	out := make([]Option, 0, len(existing)+1)
	found := false
	for _, o := range existing {
		if o.Key == KeyTrending {
			o.Label = "Recommended"
			found = true
		}
		out = append(out, o)
	}
	if !found {
		out = append(out, Option{Key: KeyTrending, Label: "Recommended"})
	}
	return out
}

type Adapter struct {
	// ProductIDColumn is the product id expression of the outer query, "product.id" by default.
	ProductIDColumn string
}

func New(productIDColumn string) Adapter {
	return Adapter{ProductIDColumn: productIDColumn}
}

// Scope returns a gorm scope ordering the query by key. Unknown keys leave the query as is.
func (a Adapter) Scope(key string) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		out, _ := a.Apply(q, key)
		return out
	}
}

// Apply joins the lookup table once and replaces the query's ordering with
// "<metric> DESC, product_id DESC". Reports whether the key was handled.
func (a Adapter) Apply(q *gorm.DB, key string) (*gorm.DB, bool) {
	metric, ok := Metric(key)
	if !ok || q == nil {
		return q, false
	}
	// Work on a copy so the caller's statement keeps its own joins and order.
	q = q.Session(&gorm.Session{}).Clauses()
	idCol := strings.TrimSpace(a.ProductIDColumn)
	if idCol == "" {
		idCol = "product.id"
	}
	if !hasLookupJoin(q) {
		q = q.Joins(fmt.Sprintf("LEFT JOIN %[1]s ON %[1]s.product_id = %[2]s", types.LookupTable, idCol))
	}
	// Replace, not append to, whatever ordering the listing already had.
	delete(q.Statement.Clauses, "ORDER BY")
	return q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Table: types.LookupTable, Name: metric}, Desc: true},
		{Column: clause.Column{Table: types.LookupTable, Name: "product_id"}, Desc: true},
	}}), true
}

func hasLookupJoin(q *gorm.DB) bool {
	if q == nil || q.Statement == nil {
		return false
	}
	for _, j := range q.Statement.Joins {
		if strings.Contains(j.Name, types.LookupTable) {
			return true
		}
	}
	return false
}
