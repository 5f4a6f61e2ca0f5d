// Package history persists quota observations in a sqlite database, one row
// per (account, quota, hour). Re-fetching inside the same hour updates the
// row in place, so the table grows with wall time rather than fetch count.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

// Snapshot is the persisted form of one quota observation.
type Snapshot struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	RunID        string `gorm:"index"`
	Account      string `gorm:"uniqueIndex:idx_snapshot_dedup;index"`
	Provider     string `gorm:"index"`
	QuotaName    string `gorm:"uniqueIndex:idx_snapshot_dedup"`
	DisplayName  string
	RemainingPct *float64
	Used         *float64
	LimitValue   *float64 `gorm:"column:limit_value"`
	ResetAt      *time.Time
	HourBucket   time.Time `gorm:"uniqueIndex:idx_snapshot_dedup;index"`
	Timestamp    time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Store struct {
	db   *gorm.DB
	path string
}

// Open opens or creates the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open history database: %v", domain.ErrStoreIO, err)
	}

	if err := db.AutoMigrate(&Snapshot{}); err != nil {
		return nil, fmt.Errorf("%w: migrate history schema: %v", domain.ErrStoreIO, err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Record(ctx context.Context, records []domain.HistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	snapshots := make([]Snapshot, 0, len(records))
	for _, rec := range records {
		timestamp := rec.Timestamp.UTC()
		snapshots = append(snapshots, Snapshot{
			RunID:        rec.RunID,
			Account:      string(rec.Account),
			Provider:     string(rec.Provider),
			QuotaName:    rec.QuotaName,
			DisplayName:  rec.DisplayName,
			RemainingPct: rec.RemainingPct,
			Used:         rec.Used,
			LimitValue:   rec.Limit,
			ResetAt:      rec.ResetAt,
			HourBucket:   timestamp.Truncate(time.Hour),
			Timestamp:    timestamp,
		})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}, {Name: "quota_name"}, {Name: "hour_bucket"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "display_name", "remaining_pct", "used", "limit_value",
			"reset_at", "timestamp", "updated_at",
		}),
	}).Create(&snapshots).Error
	if err != nil {
		return fmt.Errorf("%w: record snapshots: %v", domain.ErrStoreIO, err)
	}

	return nil
}

func (s *Store) Query(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	var rows []Snapshot
	err := applyFilter(s.db.WithContext(ctx).Model(&Snapshot{}), filter).
		Order("timestamp ASC, account ASC, quota_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query history: %v", domain.ErrStoreIO, err)
	}

	records := make([]domain.HistoryRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.HistoryRecord{
			RunID:        row.RunID,
			Account:      domain.AccountID(row.Account),
			Provider:     domain.ProviderKind(row.Provider),
			QuotaName:    row.QuotaName,
			DisplayName:  row.DisplayName,
			RemainingPct: row.RemainingPct,
			Used:         row.Used,
			Limit:        row.LimitValue,
			ResetAt:      row.ResetAt,
			Timestamp:    row.Timestamp,
		})
	}

	return records, nil
}

type aggregateRow struct {
	Account      string
	Provider     string
	QuotaName    string
	Samples      int64
	MinRemaining float64
	MaxRemaining float64
	AvgRemaining float64
	First        time.Time
	Last         time.Time
}

// Aggregate summarizes remaining percentages per quota over the filtered
// window. Balance-only rows carry no percentage and are left out.
func (s *Store) Aggregate(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryAggregate, error) {
	var rows []aggregateRow
	err := applyFilter(s.db.WithContext(ctx).Model(&Snapshot{}), filter).
		Select("account, provider, quota_name, COUNT(*) AS samples, " +
			"MIN(remaining_pct) AS min_remaining, MAX(remaining_pct) AS max_remaining, " +
			"AVG(remaining_pct) AS avg_remaining, MIN(timestamp) AS first, MAX(timestamp) AS last").
		Where("remaining_pct IS NOT NULL").
		Group("account, provider, quota_name").
		Order("account ASC, provider ASC, quota_name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: aggregate history: %v", domain.ErrStoreIO, err)
	}

	aggregates := make([]domain.HistoryAggregate, 0, len(rows))
	for _, row := range rows {
		aggregates = append(aggregates, domain.HistoryAggregate{
			Account:      domain.AccountID(row.Account),
			Provider:     domain.ProviderKind(row.Provider),
			QuotaName:    row.QuotaName,
			Samples:      row.Samples,
			MinRemaining: row.MinRemaining,
			MaxRemaining: row.MaxRemaining,
			AvgRemaining: row.AvgRemaining,
			First:        row.First,
			Last:         row.Last,
		})
	}

	return aggregates, nil
}

func (s *Store) Info(ctx context.Context) (domain.HistoryInfo, error) {
	var summary struct {
		Records int64
		Oldest  *time.Time
		Newest  *time.Time
	}
	err := s.db.WithContext(ctx).Model(&Snapshot{}).
		Select("COUNT(*) AS records, MIN(timestamp) AS oldest, MAX(timestamp) AS newest").
		Scan(&summary).Error
	if err != nil {
		return domain.HistoryInfo{}, fmt.Errorf("%w: summarize history: %v", domain.ErrStoreIO, err)
	}

	info := domain.HistoryInfo{Path: s.path, Records: summary.Records}
	if summary.Oldest != nil {
		info.Oldest = *summary.Oldest
	}
	if summary.Newest != nil {
		info.Newest = *summary.Newest
	}

	if err := s.db.WithContext(ctx).Model(&Snapshot{}).
		Distinct("account").Order("account ASC").
		Pluck("account", &info.Accounts).Error; err != nil {
		return domain.HistoryInfo{}, fmt.Errorf("%w: list history accounts: %v", domain.ErrStoreIO, err)
	}
	if err := s.db.WithContext(ctx).Model(&Snapshot{}).
		Distinct("provider").Order("provider ASC").
		Pluck("provider", &info.Providers).Error; err != nil {
		return domain.HistoryInfo{}, fmt.Errorf("%w: list history providers: %v", domain.ErrStoreIO, err)
	}

	return info, nil
}

func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&Snapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("%w: purge history: %v", domain.ErrStoreIO, result.Error)
	}

	return result.RowsAffected, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("%w: close history database: %v", domain.ErrStoreIO, err)
	}

	return nil
}

func applyFilter(q *gorm.DB, filter domain.HistoryFilter) *gorm.DB {
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until.UTC())
	}
	if filter.Account != "" {
		q = q.Where("account = ?", filter.Account)
	}
	if filter.Provider != "" {
		q = q.Where("provider = ?", string(filter.Provider))
	}
	if filter.Quota != "" {
		q = q.Where("quota_name = ?", filter.Quota)
	}

	return q
}

var _ ports.HistoryStore = (*Store)(nil)
