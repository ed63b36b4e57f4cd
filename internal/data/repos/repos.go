package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/catalog-metrics/internal/data/repos/catalog"
	"github.com/yungbote/catalog-metrics/internal/data/repos/jobs"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type ProductRepo = catalog.ProductRepo
type OrderLineRepo = catalog.OrderLineRepo
type ProductMetricsRepo = catalog.ProductMetricsRepo
type LookupRepo = catalog.LookupRepo

type MetricsRefreshRunRepo = jobs.MetricsRefreshRunRepo

type Set struct {
	Products       ProductRepo
	OrderLines     OrderLineRepo
	ProductMetrics ProductMetricsRepo
	Lookup         LookupRepo
	Runs           MetricsRefreshRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		Products:       catalog.NewProductRepo(db, log),
		OrderLines:     catalog.NewOrderLineRepo(db, log),
		ProductMetrics: catalog.NewProductMetricsRepo(db, log),
		Lookup:         catalog.NewLookupRepo(db, log),
		Runs:           jobs.NewMetricsRefreshRunRepo(db, log),
	}
}
