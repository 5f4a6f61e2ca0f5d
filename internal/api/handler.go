package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleQuotas(w http.ResponseWriter, r *http.Request) {
	filter := reportFilter{
		account:  strings.TrimSpace(r.URL.Query().Get("account")),
		provider: strings.TrimSpace(r.URL.Query().Get("provider")),
		group:    strings.TrimSpace(r.URL.Query().Get("group")),
	}
	if filter.provider != "" {
		if _, err := domain.ParseProviderKind(filter.provider); err != nil {
			apiError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if report, ok := s.cache.Get(); ok {
		writeReport(w, filterReport(report, filter), "HIT")
		return
	}

	report, err := s.fetch(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNoAccounts) {
			apiError(w, http.StatusNotFound, "no accounts configured")
			return
		}
		apiError(w, http.StatusInternalServerError, "fetch failed: "+err.Error())
		return
	}
	s.cache.Set(report)

	writeReport(w, filterReport(report, filter), "MISS")
}

func writeReport(w http.ResponseWriter, report application.Report, cacheState string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cacheState)
	_ = json.NewEncoder(w).Encode(report)
}

func apiError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

type reportFilter struct {
	account  string
	provider string
	group    string
}

func (f reportFilter) isZero() bool {
	return f.account == "" && f.provider == "" && f.group == ""
}

// filterReport narrows a cached full report to the requested slice, using
// the CLI filter rules: account matches ID or alias, an account ref beats
// a group, provider compares the kind name.
func filterReport(report application.Report, filter reportFilter) application.Report {
	if filter.isZero() {
		return report
	}

	filtered := report
	filtered.Items = make([]application.ReportItem, 0, len(report.Items))
	filtered.Failures = nil
	for _, item := range report.Items {
		if filter.matches(item.Provider, item.Account, item.Alias, item.Group) {
			filtered.Items = append(filtered.Items, item)
		}
	}
	for _, failure := range report.Failures {
		if filter.matches(failure.Provider, failure.Account, failure.Alias, failure.Group) {
			filtered.Failures = append(filtered.Failures, failure)
		}
	}

	return filtered
}

func (f reportFilter) matches(provider, account, alias, group string) bool {
	if f.provider != "" && !strings.EqualFold(provider, f.provider) {
		return false
	}
	if f.account != "" {
		return strings.EqualFold(account, f.account) ||
			(alias != "" && strings.EqualFold(alias, f.account))
	}
	if f.group != "" && !strings.EqualFold(group, f.group) {
		return false
	}

	return true
}
