package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

// loginURLSink captures the login URL a unit prints for the user so the test
// can play the browser side of the flow.
type loginURLSink struct {
	ch chan string
}

func newLoginURLSink() *loginURLSink {
	return &loginURLSink{ch: make(chan string, 1)}
}

func (s *loginURLSink) Write(p []byte) (int, error) {
	for _, field := range strings.Fields(string(p)) {
		if strings.HasPrefix(field, "http") {
			select {
			case s.ch <- field:
			default:
			}
		}
	}
	return len(p), nil
}

func (s *loginURLSink) wait(t *testing.T) string {
	t.Helper()
	select {
	case u := <-s.ch:
		return u
	case <-time.After(5 * time.Second):
		t.Fatal("login url was never printed")
		return ""
	}
}

func fakeIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return "header." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestOpenAIAuthenticateExchangesCallbackCode(t *testing.T) {
	t.Parallel()

	idToken := fakeIDToken(t, map[string]any{
		"email": "dev@example.com",
		"https://api.openai.com/auth": map[string]any{
			"chatgpt_account_id": "ws-42",
		},
	})

	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		assert.Equal(t, openAIClientID, r.Form.Get("client_id"))
		assert.Equal(t, "test-code", r.Form.Get("code"))
		assert.NotEmpty(t, r.Form.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","id_token":"` + idToken + `","token_type":"Bearer","expires_in":3600}`))
	}))
	defer issuer.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.issuer = issuer.URL
	unit.callbackAddr = "127.0.0.1:0"
	unit.loginTimeout = 5 * time.Second

	sink := newLoginURLSink()
	type loginResult struct {
		account domain.Account
		cred    domain.Credential
		err     error
	}
	done := make(chan loginResult, 1)
	go func() {
		account, cred, err := unit.Authenticate(context.Background(), ports.AuthParams{Out: sink})
		done <- loginResult{account, cred, err}
	}()

	authURL, err := url.Parse(sink.wait(t))
	require.NoError(t, err)

	q := authURL.Query()
	assert.Equal(t, openAIClientID, q.Get("client_id"))
	assert.Equal(t, "true", q.Get("codex_cli_simplified_flow"))
	assert.Equal(t, "lw", q.Get("originator"))
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("redirect_uri"))

	resp, err := http.Get(q.Get("redirect_uri") + "?code=test-code&state=" + q.Get("state"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	result := <-done
	require.NoError(t, result.err)
	assert.Equal(t, domain.ProviderOpenAI, result.account.Kind)
	assert.Equal(t, domain.AccountID("dev@example.com"), result.account.ID)
	assert.Equal(t, "at-1", result.cred.AccessToken)
	assert.Equal(t, "rt-1", result.cred.RefreshToken)
	assert.Equal(t, idToken, result.cred.Extra[openAIIDTokenKey])
	assert.False(t, result.cred.ExpiresAt.IsZero())
}

func TestOpenAIAuthenticateRequiresInteractiveSession(t *testing.T) {
	t.Parallel()

	unit := NewOpenAIUnit(http.DefaultClient)
	_, _, err := unit.Authenticate(context.Background(), ports.AuthParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestOpenAIFetchParsesUsagePayload(t *testing.T) {
	t.Parallel()

	idToken := fakeIDToken(t, map[string]any{
		"https://api.openai.com/auth": map[string]any{"chatgpt_account_id": "ws-42"},
	})

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/wham/usage", r.URL.Path)
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		assert.Equal(t, "lw/usage", r.Header.Get("User-Agent"))
		assert.Equal(t, "ws-42", r.Header.Get("ChatGPT-Account-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"plan_type": "plus",
			"rate_limit": {
				"primary_window": {"used_percent": 42.5, "limit_window_seconds": 18000, "reset_at": 1710000000},
				"secondary_window": {"used_percent": 10, "limit_window_seconds": 604800, "reset_at": 1710600000}
			},
			"additional_rate_limits": [
				{"name": "gpt-5.1-codex", "rate_limit": {"primary_window": {"used_percent": 5, "limit_window_seconds": 3600}}}
			],
			"credits": {"has_credits": true, "balance": 12.5, "unlimited": false}
		}`))
	}))
	defer backend.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.backendURL = backend.URL

	cred := domain.Credential{
		AccessToken: "at-1",
		Extra:       map[string]string{openAIIDTokenKey: idToken},
	}
	facts, err := unit.Fetch(context.Background(), domain.Account{Kind: domain.ProviderOpenAI}, cred)
	require.NoError(t, err)
	require.Len(t, facts, 4)

	assert.Equal(t, "Primary (5h)", facts[0].Label)
	require.NotNil(t, facts[0].Fraction)
	assert.InDelta(t, 0.425, *facts[0].Fraction, 1e-9)
	assert.Equal(t, "plus plan", facts[0].Detail)
	require.NotNil(t, facts[0].ResetAt)
	assert.Equal(t, time.Unix(1710000000, 0).UTC(), *facts[0].ResetAt)

	assert.Equal(t, "Secondary (7d)", facts[1].Label)
	require.NotNil(t, facts[1].Fraction)
	assert.InDelta(t, 0.10, *facts[1].Fraction, 1e-9)

	assert.Equal(t, "gpt-5.1-codex (1h)", facts[2].Label)
	require.NotNil(t, facts[2].Fraction)
	assert.InDelta(t, 0.05, *facts[2].Fraction, 1e-9)
	assert.Nil(t, facts[2].ResetAt)

	assert.Equal(t, "Credits", facts[3].Label)
	assert.Nil(t, facts[3].Fraction)
	assert.Equal(t, "$12.50 remaining", facts[3].Detail)
}

func TestOpenAIFetchEmptyPayloadReportsFreeTier(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer backend.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.backendURL = backend.URL

	facts, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{AccessToken: "at-1"})
	require.NoError(t, err)
	require.Len(t, facts, 1)
	assert.Equal(t, "Usage", facts[0].Label)
	assert.Equal(t, "free tier", facts[0].Detail)
	require.NotNil(t, facts[0].Fraction)
	assert.Zero(t, *facts[0].Fraction)
}

func TestOpenAIFetchMapsUnauthorized(t *testing.T) {
	t.Parallel()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.backendURL = backend.URL

	_, err := unit.Fetch(context.Background(), domain.Account{}, domain.Credential{AccessToken: "stale"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOpenAIRefreshRotatesTokens(t *testing.T) {
	t.Parallel()

	newIDToken := fakeIDToken(t, map[string]any{"email": "dev@example.com"})
	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "rt-1", r.Form.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","id_token":"` + newIDToken + `","token_type":"Bearer","expires_in":3600}`))
	}))
	defer issuer.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.issuer = issuer.URL

	cred := domain.Credential{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		Extra:        map[string]string{openAIIDTokenKey: "old-id-token"},
	}
	next, err := unit.Refresh(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, "at-2", next.AccessToken)
	assert.Equal(t, "rt-2", next.RefreshToken)
	assert.Equal(t, newIDToken, next.Extra[openAIIDTokenKey])
	assert.False(t, next.ExpiresAt.IsZero())

	// The original credential must not be mutated.
	assert.Equal(t, "old-id-token", cred.Extra[openAIIDTokenKey])
}

func TestOpenAIRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	t.Parallel()

	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-2","token_type":"Bearer","expires_in":600}`))
	}))
	defer issuer.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.issuer = issuer.URL

	next, err := unit.Refresh(context.Background(), domain.Credential{AccessToken: "at-1", RefreshToken: "rt-1"})
	require.NoError(t, err)
	assert.Equal(t, "at-2", next.AccessToken)
	assert.Equal(t, "rt-1", next.RefreshToken)
}

func TestOpenAIRefreshInvalidGrantMapsUnauthorized(t *testing.T) {
	t.Parallel()

	issuer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"revoked"}`))
	}))
	defer issuer.Close()

	unit := NewOpenAIUnit(http.DefaultClient)
	unit.issuer = issuer.URL

	_, err := unit.Refresh(context.Background(), domain.Credential{RefreshToken: "rt-dead"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOpenAIWindowLabelFormatsSpan(t *testing.T) {
	t.Parallel()

	cases := []struct {
		seconds int64
		want    string
	}{
		{18000, "Primary (5h)"},
		{604800, "Primary (7d)"},
		{1800, "Primary (30m)"},
		{0, "Primary"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, openAIWindowLabel("Primary", tc.seconds))
	}
}
