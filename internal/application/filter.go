package application

import (
	"strings"

	"github.com/bnema/limitwatch/internal/domain"
)

// Filter narrows the account set before any network call is issued.
// Account takes an ID or alias; Group is ignored whenever Account is set,
// since a direct reference is already as narrow as it gets.
type Filter struct {
	Account  string
	Provider string
	Group    string
}

func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Account) == "" &&
		strings.TrimSpace(f.Provider) == "" &&
		strings.TrimSpace(f.Group) == ""
}

// FilterAccounts returns the accounts selected by the filter, preserving
// input order. An unknown provider name is an input error; a filter that
// matches nothing returns an empty slice and leaves the verdict to the
// caller.
func FilterAccounts(accounts []domain.Account, filter Filter) ([]domain.Account, error) {
	accountRef := strings.TrimSpace(filter.Account)
	group := strings.TrimSpace(filter.Group)

	var kind domain.ProviderKind
	if providerRaw := strings.TrimSpace(filter.Provider); providerRaw != "" {
		parsed, err := domain.ParseProviderKind(providerRaw)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}

	filtered := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if kind != "" && account.Kind != kind {
			continue
		}
		if accountRef != "" {
			if !account.MatchesRef(accountRef) {
				continue
			}
		} else if group != "" && !strings.EqualFold(account.Group, group) {
			continue
		}
		filtered = append(filtered, account)
	}

	return filtered, nil
}
