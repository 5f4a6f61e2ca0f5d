package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/limitwatch/internal/adapters/history"
	"github.com/bnema/limitwatch/internal/adapters/providers"
	statusadapter "github.com/bnema/limitwatch/internal/adapters/render/status"
	tomlrepo "github.com/bnema/limitwatch/internal/adapters/repo/toml"
	chainstore "github.com/bnema/limitwatch/internal/adapters/secrets/chain"
	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/config"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
	"github.com/bnema/limitwatch/internal/ports/mocks"
)

type stubUnit struct {
	kind     domain.ProviderKind
	metadata domain.ProviderMetadata
	account  domain.Account
	cred     domain.Credential
	facts    []domain.QuotaFact
	fetchErr error
	delay    time.Duration
}

func (u *stubUnit) Kind() domain.ProviderKind         { return u.kind }
func (u *stubUnit) Metadata() domain.ProviderMetadata { return u.metadata }

func (u *stubUnit) Authenticate(_ context.Context, _ ports.AuthParams) (domain.Account, domain.Credential, error) {
	return u.account, u.cred, nil
}

func (u *stubUnit) Refresh(_ context.Context, cred domain.Credential) (domain.Credential, error) {
	return cred, nil
}

func (u *stubUnit) Fetch(ctx context.Context, _ domain.Account, _ domain.Credential) ([]domain.QuotaFact, error) {
	if u.delay > 0 {
		select {
		case <-time.After(u.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if u.fetchErr != nil {
		return nil, u.fetchErr
	}
	return u.facts, nil
}

func stubOpenAIUnit() *stubUnit {
	reset := time.Now().Add(3 * time.Hour).UTC()
	return &stubUnit{
		kind: domain.ProviderOpenAI,
		metadata: domain.ProviderMetadata{
			Kind:                 domain.ProviderOpenAI,
			DisplayName:          "OpenAI",
			Color:                "green",
			Indicator:            "O",
			SortPriority:         3,
			PrimaryLabelPatterns: []string{"primary", "credits"},
		},
		account: domain.Account{Kind: domain.ProviderOpenAI, ID: "alice@example.com"},
		cred:    domain.Credential{APIKey: "key-alice"},
		facts: []domain.QuotaFact{
			{Source: "openai", Label: "Primary (5h)", Fraction: domain.Float(0.42), ResetAt: &reset, Detail: "pro plan"},
		},
	}
}

func stubOpenRouterUnit() *stubUnit {
	return &stubUnit{
		kind: domain.ProviderOpenRouter,
		metadata: domain.ProviderMetadata{
			Kind:                 domain.ProviderOpenRouter,
			DisplayName:          "OpenRouter",
			Color:                "cyan",
			Indicator:            "R",
			SortPriority:         2,
			PrimaryLabelPatterns: []string{"credits"},
		},
		account: domain.Account{Kind: domain.ProviderOpenRouter, ID: "or-bob"},
		cred:    domain.Credential{APIKey: "key-bob"},
		facts: []domain.QuotaFact{
			{Source: "openrouter", Label: "Credits", Used: domain.Float(12.5), Total: domain.Float(100)},
		},
	}
}

func executeCLI(t *testing.T, dir string, units []ports.ProviderUnit, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("LIMITWATCH_CONFIG_DIR", dir)

	return executeWithApp(t, newTestApp(t, dir, units), args...)
}

func executeWithApp(t *testing.T, app *app, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmdWithApp(app)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func newTestApp(t *testing.T, dir string, units []ports.ProviderUnit) *app {
	t.Helper()

	cfg, err := config.Load()
	require.NoError(t, err)

	repo, err := tomlrepo.NewRepository(viper.New())
	require.NoError(t, err)

	secretStore, err := chainstore.ForBackend("file", config.SecretsDir(dir))
	require.NoError(t, err)

	registry := providers.NewRegistry()
	for _, unit := range units {
		require.NoError(t, registry.Register(unit))
	}

	service := application.NewService(repo, secretStore, registry, ports.SystemClock{})

	return &app{
		cfg:          cfg,
		service:      service,
		orchestrator: application.NewOrchestrator(service, registry, ports.SystemClock{}),
		secretStore:  secretStore,
		registry:     registry,
		openHistory: func() (ports.HistoryStore, error) {
			if !cfg.History.Enabled {
				return nil, errHistoryDisabled
			}
			return history.Open(cfg.History.Path)
		},
		statusRenderer: statusadapter.Render,
		now:            time.Now,
	}
}

func writeAccountsFixture(t *testing.T, dir string) {
	t.Helper()

	accounts := `version = 1

[[accounts]]
provider = "openai"
id = "alice@example.com"
alias = "work"
group = "team-a"
secret_ref = "openai/alice@example.com"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "accounts.toml"), []byte(accounts), 0o600))
}

func writeConfigFixture(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
}

func TestVersionPrintsVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), nil, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "dev")
}

func TestStatusWithoutAccountsSuggestsLogin(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "status")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoAccounts)
	assert.Contains(t, err.Error(), "lw login")
}

func TestLoginStoresAccountAndCredential(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	stdout, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged in to openai as alice@example.com")

	data, err := os.ReadFile(filepath.Join(dir, "accounts.toml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice@example.com")

	stdout, _, err = executeCLI(t, dir, units, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "openai\talice@example.com")
}

func TestLoginRejectsUnknownProvider(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "login", "gemini")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestStatusFetchesAndRendersQuotas(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit(), stubOpenRouterUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "login", "openrouter")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage Quotas")
	assert.Contains(t, stdout, "accounts: 2")
	assert.Contains(t, stdout, "alice@example.com")
	assert.Contains(t, stdout, "Primary (5h)")
	assert.Contains(t, stdout, "58% left")
	assert.Contains(t, stdout, "or-bob")
}

func TestBareRootRunsStatus(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Usage Quotas")
	assert.Contains(t, stdout, "Primary (5h)")
}

func TestStatusJSONOutput(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(stdout)))
	assert.Contains(t, stdout, "\"run_id\"")
	assert.Contains(t, stdout, "\"provider\": \"openai\"")
	assert.Contains(t, stdout, "\"label\": \"Primary (5h)\"")
}

func TestStatusYAMLOutput(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status", "--output", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "run_id:")
	assert.Contains(t, stdout, "provider: openai")
	assert.Contains(t, stdout, "label: Primary (5h)")
}

func TestStatusRejectsUnknownOutputFormat(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	_, _, err = executeCLI(t, dir, units, "status", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestStatusFiltersByProvider(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit(), stubOpenRouterUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "login", "openrouter")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status", "--provider", "openrouter")
	require.NoError(t, err)
	assert.Contains(t, stdout, "or-bob")
	assert.NotContains(t, stdout, "alice@example.com")
}

func TestStatusAccountFilterMatchesAlias(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit(), stubOpenRouterUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "login", "openrouter")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "account", "alias", "alice@example.com", "work")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status", "-a", "work")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice@example.com")
	assert.NotContains(t, stdout, "or-bob")
}

func TestStatusFilterMatchingNothingFails(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	_, _, err = executeCLI(t, dir, units, "status", "--group", "nosuch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match the given filters")
}

func TestStatusShowsSpinnerMessage(t *testing.T) {
	dir := t.TempDir()
	unit := stubOpenAIUnit()
	unit.delay = 200 * time.Millisecond
	units := []ports.ProviderUnit{unit}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	_, stderr, err := executeCLI(t, dir, units, "status")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Fetching quotas")
}

func TestStatusKeepsFailedAccountsInOutput(t *testing.T) {
	dir := t.TempDir()
	failing := stubOpenRouterUnit()
	failing.fetchErr = domain.ErrRateLimited
	units := []ports.ProviderUnit{stubOpenAIUnit(), failing}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "login", "openrouter")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "status")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Primary (5h)")
	assert.Contains(t, stdout, "or-bob failed:")
	assert.Contains(t, stdout, "rate limited")
}

func TestStatusWarnsWhenHistoryUnwritable(t *testing.T) {
	dir := t.TempDir()
	writeConfigFixture(t, dir, "[history]\npath = \""+dir+"\"\n")
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, stderr, err := executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "history not recorded")
	assert.Contains(t, stdout, "Primary (5h)")
}

func TestStatusWarnsWhenHistoryRecordFails(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIMITWATCH_CONFIG_DIR", dir)
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	app := newTestApp(t, dir, units)
	_, _, err := executeWithApp(t, app, "login", "openai")
	require.NoError(t, err)

	store := mocks.NewMockHistoryStore(t)
	store.EXPECT().Record(mock.Anything, mock.Anything).Return(errors.New("database locked"))
	store.EXPECT().Close().Return(nil)
	app.openHistory = func() (ports.HistoryStore, error) { return store, nil }

	stdout, stderr, err := executeWithApp(t, app, "status", "--json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "history not recorded: database locked")
	assert.Contains(t, stdout, "Primary (5h)")
}

func TestLogoutRemovesAccount(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "logout", "alice@example.com")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Logged out alice@example.com")

	stdout, _, err = executeCLI(t, dir, units, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No accounts configured")
}

func TestLogoutAllRemovesEverything(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit(), stubOpenRouterUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "login", "openrouter")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "logout", "--all")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice@example.com")
	assert.Contains(t, stdout, "or-bob")

	stdout, _, err = executeCLI(t, dir, units, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No accounts configured")
}

func TestLogoutWithoutTargetFails(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "logout")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass an account ID or alias, or --all")
}

func TestAccountListShowsFixtureAccount(t *testing.T) {
	dir := t.TempDir()
	writeAccountsFixture(t, dir)

	stdout, _, err := executeCLI(t, dir, nil, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "openai\talice@example.com\twork\tteam-a")
}

func TestAccountAliasSetAndClear(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "account", "alias", "alice@example.com", "work")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Set alias \"work\" for alice@example.com")

	stdout, _, err = executeCLI(t, dir, units, "account", "alias", "work", "")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared alias for alice@example.com")
}

func TestAccountGroupAssignAndClear(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "account", "group", "alice@example.com", "team-a")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Moved alice@example.com to group \"team-a\"")

	stdout, _, err = executeCLI(t, dir, units, "account", "group", "alice@example.com", "none")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Cleared group for alice@example.com")
}

func TestStatusRunRecordsHistory(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alice@example.com")
	assert.Contains(t, stdout, "Primary (5h)")
	assert.Contains(t, stdout, "58.0% left")

	stdout, _, err = executeCLI(t, dir, units, "history", "--aggregate")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SAMPLES")
	assert.Contains(t, stdout, "58.0%")

	stdout, _, err = executeCLI(t, dir, units, "history", "--info")
	require.NoError(t, err)
	assert.Contains(t, stdout, "records: 1")
	assert.Contains(t, stdout, "accounts: alice@example.com")
}

func TestHistoryEmptyDatabase(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), nil, "history")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No matching history records")
}

func TestHistoryDisabledFails(t *testing.T) {
	dir := t.TempDir()
	writeConfigFixture(t, dir, "[history]\nenabled = false\n")

	_, _, err := executeCLI(t, dir, nil, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history is disabled")
}

func TestHistoryRejectsConflictingWindows(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "history", "--last", "24h", "--since", "2026-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--last and --since are mutually exclusive")
}

func TestHistoryPurgeRequiresBefore(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "history", "purge")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"before\" not set")
}

func TestHistoryPurgeReportsCount(t *testing.T) {
	stdout, _, err := executeCLI(t, t.TempDir(), nil, "history", "purge", "--before", "30d")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Purged 0 records older than")
}

func TestExportCSV(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "export")
	require.NoError(t, err)
	assert.Contains(t, stdout, "timestamp,account,provider,quota_name,display_name,remaining_pct,used,limit,reset_at")
	assert.Contains(t, stdout, "alice@example.com,openai,Primary (5h)")
}

func TestExportMarkdown(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)

	stdout, _, err := executeCLI(t, dir, units, "export", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# Quota History Export")
	assert.Contains(t, stdout, "| Timestamp | Account | Provider | Quota | Remaining % | Used | Limit |")
	assert.Contains(t, stdout, "| alice | openai | Primary (5h) | 58.0% | N/A | N/A |")
	assert.Contains(t, stdout, "*Total records: 1*")
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	units := []ports.ProviderUnit{stubOpenAIUnit()}

	_, _, err := executeCLI(t, dir, units, "login", "openai")
	require.NoError(t, err)
	_, _, err = executeCLI(t, dir, units, "status", "--json")
	require.NoError(t, err)

	target := filepath.Join(dir, "out", "quotas.csv")
	stdout, _, err := executeCLI(t, dir, units, "export", "--output", target)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Exported 1 records to "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "alice@example.com")
}

func TestExportWithoutRecordsWarns(t *testing.T) {
	stdout, stderr, err := executeCLI(t, t.TempDir(), nil, "export")
	require.NoError(t, err)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No matching history records to export")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, _, err := executeCLI(t, t.TempDir(), nil, "export", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export format")
}
