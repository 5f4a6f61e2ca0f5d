package domain

import "time"

// HistoryRecord is one persisted quota observation. Records are deduplicated
// per (account, quota, hour bucket): re-running a fetch inside the same hour
// updates the row instead of appending.
type HistoryRecord struct {
	RunID        string
	Account      AccountID
	Provider     ProviderKind
	QuotaName    string
	DisplayName  string
	RemainingPct *float64
	Used         *float64
	Limit        *float64
	ResetAt      *time.Time
	Timestamp    time.Time
}

type HistoryFilter struct {
	Since    time.Time
	Until    time.Time
	Account  string
	Provider ProviderKind
	Quota    string
}

// HistoryAggregate summarizes the remaining percentage of one quota over the
// filtered window.
type HistoryAggregate struct {
	Account      AccountID
	Provider     ProviderKind
	QuotaName    string
	Samples      int64
	MinRemaining float64
	MaxRemaining float64
	AvgRemaining float64
	First        time.Time
	Last         time.Time
}

type HistoryInfo struct {
	Path      string
	Records   int64
	Oldest    time.Time
	Newest    time.Time
	Accounts  []string
	Providers []string
}
