package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/catalog-metrics/internal/domain/catalog"
)

// AutoMigrateAll creates or updates every table the service owns or reads.
func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Catalog (owned by the storefront; migrated here for local and test setups)
		&catalog.Product{},
		&catalog.Order{},
		&catalog.OrderLine{},

		// Metrics
		&catalog.ProductMetrics{},
		&catalog.LookupRow{},

		// Jobs
		&catalog.MetricsRefreshRun{},
	)
}

// EnsureLookupIndexes creates one descending index per sortable metric.
// product_id rides along so ORDER BY metric DESC, product_id DESC is served by the index.
func EnsureLookupIndexes(db *gorm.DB) error {
	for _, metric := range catalog.LookupMetrics {
		stmt := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS idx_%[1]s_%[2]s ON %[1]s (%[2]s DESC, product_id DESC);`,
			catalog.LookupTable, metric,
		)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create idx_%s_%s: %w", catalog.LookupTable, metric, err)
		}
	}
	return nil
}

// Provision is safe to re-run.
func Provision(db *gorm.DB) error {
	if err := AutoMigrateAll(db); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	if err := EnsureLookupIndexes(db); err != nil {
		return err
	}
	return nil
}

// Teardown drops the lookup table and its indexes. Product metrics stay with the products.
func Teardown(db *gorm.DB) error {
	if err := db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, catalog.LookupTable)).Error; err != nil {
		return fmt.Errorf("drop %s: %w", catalog.LookupTable, err)
	}
	return nil
}
