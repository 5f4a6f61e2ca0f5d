package application

import (
	"time"

	"github.com/bnema/limitwatch/internal/domain"
)

// ReportItem is the structured-output view of one quota item. Hidden items
// are included with Visible false instead of being dropped, so machine
// consumers see the full picture regardless of display filters.
type ReportItem struct {
	Provider         string     `json:"provider" yaml:"provider"`
	Account          string     `json:"account" yaml:"account"`
	Alias            string     `json:"alias,omitempty" yaml:"alias,omitempty"`
	Group            string     `json:"group,omitempty" yaml:"group,omitempty"`
	Source           string     `json:"source" yaml:"source"`
	Label            string     `json:"label" yaml:"label"`
	RemainingPercent *float64   `json:"remaining_percent" yaml:"remaining_percent"`
	Used             *float64   `json:"used,omitempty" yaml:"used,omitempty"`
	Total            *float64   `json:"total,omitempty" yaml:"total,omitempty"`
	ResetAt          *time.Time `json:"reset_at,omitempty" yaml:"reset_at,omitempty"`
	Detail           string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	Tier             string     `json:"tier" yaml:"tier"`
	Visible          bool       `json:"visible" yaml:"visible"`
}

// ReportFailure surfaces a failed account as data. Accounts are never
// silently omitted from a report; a failure entry takes the place of the
// items the account could not deliver.
type ReportFailure struct {
	Provider string `json:"provider" yaml:"provider"`
	Account  string `json:"account" yaml:"account"`
	Alias    string `json:"alias,omitempty" yaml:"alias,omitempty"`
	Group    string `json:"group,omitempty" yaml:"group,omitempty"`
	Error    string `json:"error" yaml:"error"`
}

type Report struct {
	RunID       string          `json:"run_id" yaml:"run_id"`
	GeneratedAt time.Time       `json:"generated_at" yaml:"generated_at"`
	Items       []ReportItem    `json:"items" yaml:"items"`
	Failures    []ReportFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// BuildReport flattens a run result into the structured-output shape shared
// by the JSON and YAML writers.
func BuildReport(result *Result) Report {
	report := Report{
		RunID:       result.RunID.String(),
		GeneratedAt: result.FetchedAt,
		Items:       make([]ReportItem, 0, len(result.Items)),
	}

	for _, item := range result.Items {
		report.Items = append(report.Items, reportItem(item))
	}
	for _, failure := range result.Failures {
		report.Failures = append(report.Failures, ReportFailure{
			Provider: string(failure.Account.Kind),
			Account:  string(failure.Account.ID),
			Alias:    failure.Account.Alias,
			Group:    failure.Account.Group,
			Error:    failure.Err.Error(),
		})
	}

	return report
}

func reportItem(item domain.QuotaItem) ReportItem {
	return ReportItem{
		Provider:         string(item.Account.Kind),
		Account:          string(item.Account.ID),
		Alias:            item.Account.Alias,
		Group:            item.Account.Group,
		Source:           item.Source,
		Label:            item.Label,
		RemainingPercent: item.RemainingPercent(),
		Used:             item.Used,
		Total:            item.Total,
		ResetAt:          item.ResetAt,
		Detail:           item.Detail,
		Tier:             string(item.Tier),
		Visible:          item.Visible,
	}
}
