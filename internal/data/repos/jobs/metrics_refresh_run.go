package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/catalog-metrics/internal/domain/catalog"
	"github.com/yungbote/catalog-metrics/internal/pkg/dbctx"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

type MetricsRefreshRunRepo interface {
	Create(dbc dbctx.Context, run *types.MetricsRefreshRun) (*types.MetricsRefreshRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MetricsRefreshRun, error)
	GetLatest(dbc dbctx.Context, jobType string) (*types.MetricsRefreshRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type metricsRefreshRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricsRefreshRunRepo(db *gorm.DB, baseLog *logger.Logger) MetricsRefreshRunRepo {
	return &metricsRefreshRunRepo{db: db, log: baseLog.With("repo", "MetricsRefreshRunRepo")}
}

func (r *metricsRefreshRunRepo) Create(dbc dbctx.Context, run *types.MetricsRefreshRun) (*types.MetricsRefreshRun, error) {
	if run == nil {
		return nil, nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = types.RunStatusRunning
	}
	if err := dbc.Or(r.db).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *metricsRefreshRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MetricsRefreshRun, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.MetricsRefreshRun
	if err := dbc.Or(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *metricsRefreshRunRepo) GetLatest(dbc dbctx.Context, jobType string) (*types.MetricsRefreshRun, error) {
	if jobType == "" {
		return nil, nil
	}
	var out []*types.MetricsRefreshRun
	err := dbc.Or(r.db).
		Where("job_type = ?", jobType).
		Order("started_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *metricsRefreshRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.Or(r.db).
		Model(&types.MetricsRefreshRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}
