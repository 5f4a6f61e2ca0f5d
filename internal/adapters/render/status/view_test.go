package status

import (
	"testing"
	"time"

	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestRenderShowsAccountsBarsAndCountdowns(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(&application.Result{
		Items: []domain.QuotaItem{
			{
				Account:   domain.AccountRef{Kind: domain.ProviderOpenAI, ID: "alice@example.com", Alias: "work", Group: "team-a"},
				Source:    "openai",
				Label:     "Primary (5h)",
				Fraction:  domain.Float(0.42),
				ResetAt:   timePtr(now.Add(3 * time.Hour)),
				Detail:    "plus plan",
				Color:     "green",
				Indicator: "O",
				Tier:      domain.TierPrimary,
				Visible:   true,
			},
			{
				Account:   domain.AccountRef{Kind: domain.ProviderOpenAI, ID: "alice@example.com", Alias: "work", Group: "team-a"},
				Source:    "openai",
				Label:     "Credits",
				Detail:    "$12.50 remaining",
				Color:     "green",
				Indicator: "O",
				Tier:      domain.TierPrimary,
				Visible:   true,
			},
			{
				Account:   domain.AccountRef{Kind: domain.ProviderGoogle, ID: "bob@gmail.com"},
				Source:    "gemini-cli",
				Label:     "Gemini 3 Pro",
				Fraction:  domain.Float(0.9),
				ResetAt:   timePtr(now.Add(26 * time.Hour)),
				Color:     "cyan",
				Indicator: "G",
				Tier:      domain.TierPrimary,
				Visible:   true,
			},
			{
				Account:   domain.AccountRef{Kind: domain.ProviderGoogle, ID: "bob@gmail.com"},
				Source:    "gemini-cli",
				Label:     "Gemini 1.5 Flash",
				Fraction:  domain.Float(0.1),
				Color:     "cyan",
				Indicator: "G",
				Tier:      domain.TierHidden,
			},
		},
		Failures: []application.AccountFailure{
			{
				Account: domain.AccountRef{Kind: domain.ProviderChutes, ID: "fp-9"},
				Err:     domain.ErrLoginRejected,
			},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "Usage Quotas")
	assert.Contains(t, output, "accounts: 3")
	assert.Contains(t, output, "O work (alice@example.com)")
	assert.Contains(t, output, "[team-a]")
	assert.Contains(t, output, "Primary (5h)")
	assert.Contains(t, output, "58% left")
	assert.Contains(t, output, "resets in 3h (14:00)")
	assert.Contains(t, output, "plus plan")
	assert.Contains(t, output, "$12.50 remaining")
	assert.Contains(t, output, "G bob@gmail.com")
	assert.Contains(t, output, "10% left")
	assert.Contains(t, output, "resets in 1d 2h (13:00 on 15 Feb)")
	assert.Contains(t, output, "+1 hidden")
	assert.Contains(t, output, "chutes fp-9 failed:")
	assert.NotContains(t, output, "Gemini 1.5 Flash")
}

func TestRenderAccountWithOnlyHiddenItems(t *testing.T) {
	output, err := Render(&application.Result{
		Items: []domain.QuotaItem{
			{
				Account:   domain.AccountRef{Kind: domain.ProviderGoogle, ID: "bob@gmail.com"},
				Source:    "gemini-cli",
				Label:     "Gemini 2.0 Flash",
				Fraction:  domain.Float(0.3),
				Color:     "cyan",
				Indicator: "G",
				Tier:      domain.TierHidden,
			},
		},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "G bob@gmail.com")
	assert.Contains(t, output, "hidden quotas only (use --show-all)")
	assert.NotContains(t, output, "Gemini 2.0 Flash")
}

func TestRenderEmptyResult(t *testing.T) {
	output, err := Render(&application.Result{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "accounts: 0")
	assert.Contains(t, output, "No quota data available.")
}

func TestRenderPastResetShowsDue(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(&application.Result{
		Items: []domain.QuotaItem{
			{
				Account:   domain.AccountRef{Kind: domain.ProviderOpenAI, ID: "alice@example.com"},
				Source:    "openai",
				Label:     "Primary (5h)",
				Fraction:  domain.Float(1),
				ResetAt:   timePtr(now.Add(-5 * time.Minute)),
				Color:     "green",
				Indicator: "O",
				Tier:      domain.TierPrimary,
				Visible:   true,
			},
		},
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "0% left")
	assert.Contains(t, output, "reset due")
}

func TestRenderProgressBarFillsRemainingShare(t *testing.T) {
	s := newStyles()

	assert.Equal(t, "[======----]", renderProgressBar(58, 10, s.percentLow, s))
	assert.Equal(t, "[==========]", renderProgressBar(100, 10, s.percentLow, s))
	assert.Equal(t, "[----------]", renderProgressBar(0, 10, s.percentLow, s))
	assert.Equal(t, "[==========]", renderProgressBar(140, 10, s.percentLow, s))
	assert.Equal(t, "[----------]", renderProgressBar(-20, 10, s.percentLow, s))
}

func TestUsageStylePicksThresholdBand(t *testing.T) {
	s := newStyles()

	assert.Equal(t, s.percentLow, s.usageStyle(10, 80))
	assert.Equal(t, s.percentMid, s.usageStyle(50, 80))
	assert.Equal(t, s.percentHigh, s.usageStyle(90, 80))
	assert.Equal(t, s.percentMid, s.usageStyle(90, 95))
}

func TestShortDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{45 * time.Second, "1m"},
		{5 * time.Minute, "5m"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{26 * time.Hour, "1d 2h"},
		{48 * time.Hour, "2d"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, shortDuration(tc.d), "duration %s", tc.d)
	}
}
