package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

func TestOpenRouterAuthenticateUsesKeyLabelAsIdentity(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/key", r.URL.Path)
		assert.Equal(t, "Bearer sk-or-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"label":"my-key","usage":1.5}}`))
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	account, cred, err := unit.Authenticate(context.Background(), ports.AuthParams{APIKey: "sk-or-123"})
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderOpenRouter, account.Kind)
	assert.Equal(t, domain.AccountID("my-key"), account.ID)
	assert.Equal(t, "sk-or-123", cred.APIKey)
}

func TestOpenRouterAuthenticateRejectsBadKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	_, _, err := unit.Authenticate(context.Background(), ports.AuthParams{APIKey: "sk-or-bad"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLoginRejected)
}

func TestOpenRouterAuthenticateRequiresKey(t *testing.T) {
	t.Parallel()

	unit := NewOpenRouterUnit(http.DefaultClient)
	_, _, err := unit.Authenticate(context.Background(), ports.AuthParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenRouterFetchPrefersCreditsLedger(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/credits", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"total_credits":100,"total_usage":25}}`))
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	facts, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{APIKey: "sk-or-mgmt"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Credits", facts[0].Label)
	require.NotNil(t, facts[0].Used)
	assert.Equal(t, 25.0, *facts[0].Used)
	require.NotNil(t, facts[0].Total)
	assert.Equal(t, 100.0, *facts[0].Total)
	assert.Equal(t, "$75.00 remaining", facts[0].Detail)
}

func TestOpenRouterFetchFallsBackToKeyUsage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/credits":
			w.WriteHeader(http.StatusUnauthorized)
		case "/auth/key":
			_, _ = w.Write([]byte(`{"data":{"label":"team-key","usage":10,"limit":50}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	facts, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{APIKey: "sk-or-key"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Key", facts[0].Label)
	require.NotNil(t, facts[0].Used)
	assert.Equal(t, 10.0, *facts[0].Used)
	require.NotNil(t, facts[0].Total)
	assert.Equal(t, 50.0, *facts[0].Total)
	assert.Equal(t, "team-key: $40.00 remaining", facts[0].Detail)
}

func TestOpenRouterFetchKeyWithoutLimitReportsSpend(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/credits":
			w.WriteHeader(http.StatusForbidden)
		case "/auth/key":
			_, _ = w.Write([]byte(`{"data":{"name":"ad-hoc","usage":3.25,"limit":null}}`))
		}
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	facts, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{APIKey: "sk-or-key"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Key", facts[0].Label)
	assert.Nil(t, facts[0].Used)
	assert.Nil(t, facts[0].Total)
	assert.Equal(t, "ad-hoc: $3.25 spent", facts[0].Detail)
}

func TestOpenRouterFetchRevokedKeyMapsUnauthorized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	unit := NewOpenRouterUnit(http.DefaultClient)
	unit.baseURL = server.URL

	_, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{APIKey: "sk-or-dead"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
