package metrics_refresh

import (
	"time"

	"github.com/yungbote/catalog-metrics/internal/jobs/lock"
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

const (
	JobType  = "metrics_refresh"
	LockName = "catalog-metrics-refresh"
)

type Config struct {
	BatchLimit int
	StaleAfter time.Duration
	LockTTL    time.Duration
}

type Pipeline struct {
	log     *logger.Logger
	cfg     Config
	locker  lock.Locker
	metrics *observability.Metrics
	uc      catalogmetrics.Usecases
}

func New(
	baseLog *logger.Logger,
	cfg Config,
	locker lock.Locker,
	metrics *observability.Metrics,
	uc catalogmetrics.Usecases,
) *Pipeline {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	log := baseLog.With("job", JobType)
	return &Pipeline{
		log:     log,
		cfg:     cfg,
		locker:  locker,
		metrics: metrics,
		uc:      uc.WithLog(log),
	}
}

func (p *Pipeline) Type() string { return JobType }
