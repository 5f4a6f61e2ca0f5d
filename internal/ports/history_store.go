package ports

import (
	"context"
	"time"

	"github.com/bnema/limitwatch/internal/domain"
)

type HistoryStore interface {
	Record(ctx context.Context, records []domain.HistoryRecord) error
	Query(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error)
	Aggregate(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryAggregate, error)
	Info(ctx context.Context) (domain.HistoryInfo, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
	Close() error
}
