package application

import (
	"testing"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterAccounts(t *testing.T) {
	t.Parallel()

	accounts := []domain.Account{
		{Kind: domain.ProviderOpenRouter, ID: "alice@example.com", Alias: "work", Group: "team"},
		{Kind: domain.ProviderGoogle, ID: "alice@example.com", Group: "team"},
		{Kind: domain.ProviderGoogle, ID: "bob@example.com", Alias: "personal"},
		{Kind: domain.ProviderChutes, ID: "0xabc", Group: "gpu"},
	}

	testCases := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{
			name:    "empty filter keeps everything in order",
			filter:  Filter{},
			wantIDs: []string{"alice@example.com", "alice@example.com", "bob@example.com", "0xabc"},
		},
		{
			name:    "account ref matches id across providers",
			filter:  Filter{Account: "alice@example.com"},
			wantIDs: []string{"alice@example.com", "alice@example.com"},
		},
		{
			name:    "account ref matches alias",
			filter:  Filter{Account: "personal"},
			wantIDs: []string{"bob@example.com"},
		},
		{
			name:    "provider narrows an account ref",
			filter:  Filter{Account: "alice@example.com", Provider: "google"},
			wantIDs: []string{"alice@example.com"},
		},
		{
			name:    "group filter",
			filter:  Filter{Group: "team"},
			wantIDs: []string{"alice@example.com", "alice@example.com"},
		},
		{
			name:    "group ignored when account ref is set",
			filter:  Filter{Account: "personal", Group: "team"},
			wantIDs: []string{"bob@example.com"},
		},
		{
			name:    "provider alone",
			filter:  Filter{Provider: "google"},
			wantIDs: []string{"alice@example.com", "bob@example.com"},
		},
		{
			name:    "group matching is case-insensitive",
			filter:  Filter{Group: "TEAM"},
			wantIDs: []string{"alice@example.com", "alice@example.com"},
		},
		{
			name:    "nothing matches",
			filter:  Filter{Account: "nobody"},
			wantIDs: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filtered, err := FilterAccounts(accounts, tc.filter)
			require.NoError(t, err)

			ids := make([]string, 0, len(filtered))
			for _, account := range filtered {
				ids = append(ids, string(account.ID))
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}

func TestFilterAccountsRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := FilterAccounts([]domain.Account{{Kind: domain.ProviderGoogle, ID: "a@example.com"}}, Filter{Provider: "anthropic"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFilterIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, Filter{}.IsZero())
	assert.True(t, Filter{Account: "  "}.IsZero())
	assert.False(t, Filter{Group: "team"}.IsZero())
}
