package lookup_backfill

import (
	"github.com/yungbote/catalog-metrics/internal/modules/catalogmetrics"
	"github.com/yungbote/catalog-metrics/internal/observability"
	"github.com/yungbote/catalog-metrics/internal/pkg/logger"
)

const JobType = "lookup_backfill"

type Pipeline struct {
	log     *logger.Logger
	metrics *observability.Metrics
	uc      catalogmetrics.Usecases
}

func New(baseLog *logger.Logger, metrics *observability.Metrics, uc catalogmetrics.Usecases) *Pipeline {
	log := baseLog.With("job", JobType)
	return &Pipeline{log: log, metrics: metrics, uc: uc.WithLog(log)}
}

func (p *Pipeline) Type() string { return JobType }
