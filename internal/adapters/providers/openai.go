package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/limitwatch/internal/adapters/auth"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

const (
	openAIClientID     = "app_EMoamEEZ73f0CkXaXp7hrann"
	openAIIssuer       = "https://auth.openai.com"
	openAIBackendURL   = "https://chatgpt.com/backend-api"
	openAICallbackAddr = "127.0.0.1:1455"
	openAILoginTimeout = 15 * time.Minute

	// Extra key that carries the id token alongside the oauth pair; the
	// usage endpoint wants the workspace id from its claims.
	openAIIDTokenKey = "id_token"
)

var openAIScopes = []string{"openid", "profile", "email", "offline_access"}

// OpenAIUnit reads ChatGPT plan usage windows and credits for accounts
// signed in through the auth.openai.com browser flow.
type OpenAIUnit struct {
	client       *http.Client
	issuer       string
	backendURL   string
	callbackAddr string
	loginTimeout time.Duration
}

func NewOpenAIUnit(client *http.Client) *OpenAIUnit {
	return &OpenAIUnit{
		client:       client,
		issuer:       openAIIssuer,
		backendURL:   openAIBackendURL,
		callbackAddr: openAICallbackAddr,
		loginTimeout: openAILoginTimeout,
	}
}

func (u *OpenAIUnit) Kind() domain.ProviderKind { return domain.ProviderOpenAI }

func (u *OpenAIUnit) Metadata() domain.ProviderMetadata {
	return domain.ProviderMetadata{
		Kind:         domain.ProviderOpenAI,
		DisplayName:  "OpenAI",
		Color:        "green",
		Indicator:    "O",
		SortPriority: 3,
		// Model-specific additional windows stay behind --show-all.
		PrimaryLabelPatterns: []string{"primary", "secondary", "credits", "usage"},
	}
}

func (u *OpenAIUnit) Authenticate(ctx context.Context, params ports.AuthParams) (domain.Account, domain.Credential, error) {
	if params.Out == nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: openai login needs an interactive session", domain.ErrInvalidInput)
	}

	state, err := auth.NewState()
	if err != nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("generate state: %w", err)
	}
	pkce, err := auth.NewPKCEPair()
	if err != nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("generate pkce pair: %w", err)
	}

	callback, err := auth.StartCallbackServer(u.callbackAddr, state)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}
	defer func() { _ = callback.Close() }()

	authURL, err := auth.BuildAuthorizationURL(auth.AuthorizationRequest{
		AuthURL:       u.issuer + "/oauth/authorize",
		ClientID:      openAIClientID,
		RedirectURI:   callback.RedirectURI(),
		Scopes:        openAIScopes,
		State:         state,
		CodeChallenge: pkce.Challenge,
		ExtraParams: map[string]string{
			"id_token_add_organizations": "true",
			"codex_cli_simplified_flow":  "true",
			"originator":                 "lw",
		},
	})
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	fmt.Fprintf(params.Out, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)

	code, err := callback.WaitForCode(u.loginTimeout)
	if err != nil {
		if errors.Is(err, auth.ErrCallbackTimeout) {
			return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginCancelled, err)
		}
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginRejected, err)
	}

	tokens, err := auth.ExchangeCodeForTokens(ctx, u.client, auth.TokenExchangeRequest{
		TokenURL:     u.issuer + "/oauth/token",
		ClientID:     openAIClientID,
		RedirectURI:  callback.RedirectURI(),
		Code:         code,
		CodeVerifier: pkce.Verifier,
	})
	if err != nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginRejected, err)
	}
	if tokens.RefreshToken == "" || tokens.IDToken == "" {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: token response missing refresh or id token", domain.ErrLoginRejected)
	}

	identity := openAIIdentity(tokens.IDToken)
	if identity == "" {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: id token carries no usable identity", domain.ErrMalformedResponse)
	}

	account := domain.Account{
		Kind: domain.ProviderOpenAI,
		ID:   domain.AccountID(identity),
	}
	cred := domain.Credential{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
		Extra:        map[string]string{openAIIDTokenKey: tokens.IDToken},
	}
	if tokens.ExpiresIn > 0 {
		cred.ExpiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second).UTC()
	}

	return account, cred, nil
}

func (u *OpenAIUnit) Refresh(ctx context.Context, cred domain.Credential) (domain.Credential, error) {
	if cred.RefreshToken == "" {
		return domain.Credential{}, fmt.Errorf("%w: credential has no refresh token", domain.ErrUnauthorized)
	}

	tokens, err := auth.RefreshTokens(ctx, u.client, auth.RefreshTokenRequest{
		TokenURL:     u.issuer + "/oauth/token",
		ClientID:     openAIClientID,
		RefreshToken: cred.RefreshToken,
		Scopes:       []string{"openid", "profile", "email"},
	})
	if err != nil {
		if errors.Is(err, auth.ErrRefreshTokenInvalid) {
			return domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return domain.Credential{}, err
	}

	next := cred
	next.AccessToken = tokens.AccessToken
	next.TokenType = tokens.TokenType
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	next.ExpiresAt = time.Time{}
	if tokens.ExpiresIn > 0 {
		next.ExpiresAt = time.Now().Add(time.Duration(tokens.ExpiresIn) * time.Second).UTC()
	}
	if tokens.IDToken != "" {
		next.Extra = maps.Clone(cred.Extra)
		if next.Extra == nil {
			next.Extra = make(map[string]string, 1)
		}
		next.Extra[openAIIDTokenKey] = tokens.IDToken
	}

	return next, nil
}

type openAIWindow struct {
	UsedPercent        float64 `json:"used_percent"`
	LimitWindowSeconds int64   `json:"limit_window_seconds"`
	ResetAt            int64   `json:"reset_at"`
}

type openAIRateLimit struct {
	PrimaryWindow   *openAIWindow `json:"primary_window"`
	SecondaryWindow *openAIWindow `json:"secondary_window"`
}

type openAIAdditionalLimit struct {
	Name          string           `json:"name"`
	RateLimit     *openAIRateLimit `json:"rate_limit"`
	PrimaryWindow *openAIWindow    `json:"primary_window"`
}

type openAICredits struct {
	HasCredits bool    `json:"has_credits"`
	Balance    float64 `json:"balance"`
	Unlimited  bool    `json:"unlimited"`
}

type openAIUsagePayload struct {
	PlanType             string                  `json:"plan_type"`
	RateLimit            *openAIRateLimit        `json:"rate_limit"`
	AdditionalRateLimits []openAIAdditionalLimit `json:"additional_rate_limits"`
	Credits              *openAICredits          `json:"credits"`
}

func (u *OpenAIUnit) Fetch(ctx context.Context, account domain.Account, cred domain.Credential) ([]domain.QuotaFact, error) {
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: credential has no access token", domain.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.backendURL+"/wham/usage", nil)
	if err != nil {
		return nil, fmt.Errorf("create usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("User-Agent", "lw/usage")
	if workspaceID := openAIWorkspaceID(cred.Extra[openAIIDTokenKey]); workspaceID != "" {
		req.Header.Set("ChatGPT-Account-Id", workspaceID)
	}

	status, body, err := do(u.client, req)
	if err != nil {
		return nil, err
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var payload openAIUsagePayload
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}

	return openAIFacts(payload), nil
}

func openAIFacts(payload openAIUsagePayload) []domain.QuotaFact {
	facts := make([]domain.QuotaFact, 0, 4)
	planDetail := ""
	if plan := strings.TrimSpace(payload.PlanType); plan != "" {
		planDetail = plan + " plan"
	}

	if payload.RateLimit != nil {
		if fact, ok := openAIWindowFact("Primary", payload.RateLimit.PrimaryWindow); ok {
			fact.Detail = planDetail
			facts = append(facts, fact)
		}
		if fact, ok := openAIWindowFact("Secondary", payload.RateLimit.SecondaryWindow); ok {
			facts = append(facts, fact)
		}
	}

	for _, additional := range payload.AdditionalRateLimits {
		window := additional.PrimaryWindow
		if additional.RateLimit != nil && additional.RateLimit.PrimaryWindow != nil {
			window = additional.RateLimit.PrimaryWindow
		}
		name := strings.TrimSpace(additional.Name)
		if name == "" {
			name = "Additional"
		}
		if fact, ok := openAIWindowFact(name, window); ok {
			facts = append(facts, fact)
		}
	}

	if credits := payload.Credits; credits != nil && credits.HasCredits {
		fact := domain.QuotaFact{Source: "openai", Label: "Credits"}
		if credits.Unlimited {
			fact.Detail = "unlimited"
		} else {
			fact.Detail = domain.FormatMoney(credits.Balance) + " remaining"
		}
		facts = append(facts, fact)
	}

	// An empty payload is what the free tier looks like, not an error.
	if len(facts) == 0 {
		facts = append(facts, domain.QuotaFact{
			Source:   "openai",
			Label:    "Usage",
			Fraction: domain.Float(0),
			Detail:   "free tier",
		})
	}

	return facts
}

func openAIWindowFact(name string, window *openAIWindow) (domain.QuotaFact, bool) {
	if window == nil {
		return domain.QuotaFact{}, false
	}

	fact := domain.QuotaFact{
		Source:   "openai",
		Label:    openAIWindowLabel(name, window.LimitWindowSeconds),
		Fraction: domain.Float(window.UsedPercent / 100),
	}
	if window.ResetAt > 0 {
		reset := time.Unix(window.ResetAt, 0).UTC()
		fact.ResetAt = &reset
	}

	return fact, true
}

func openAIWindowLabel(name string, seconds int64) string {
	span := openAIWindowSpan(seconds)
	if span == "" {
		return name
	}

	return fmt.Sprintf("%s (%s)", name, span)
}

func openAIWindowSpan(seconds int64) string {
	const day = 24 * 60 * 60
	switch {
	case seconds <= 0:
		return ""
	case seconds >= day:
		return fmt.Sprintf("%dd", seconds/day)
	case seconds >= 60*60:
		return fmt.Sprintf("%dh", seconds/(60*60))
	default:
		return fmt.Sprintf("%dm", seconds/60)
	}
}

type openAITokenClaims struct {
	Email            string `json:"email"`
	Subject          string `json:"sub"`
	ChatGPTAccountID string `json:"chatgpt_account_id"`
	APIAuth          struct {
		ChatGPTAccountID string `json:"chatgpt_account_id"`
	} `json:"https://api.openai.com/auth"`
}

func openAIIdentity(idToken string) string {
	claims := parseOpenAIClaims(idToken)
	if email := strings.TrimSpace(claims.Email); email != "" {
		return email
	}

	return strings.TrimSpace(claims.Subject)
}

func openAIWorkspaceID(idToken string) string {
	claims := parseOpenAIClaims(idToken)
	if claims.ChatGPTAccountID != "" {
		return claims.ChatGPTAccountID
	}

	return claims.APIAuth.ChatGPTAccountID
}

func parseOpenAIClaims(token string) openAITokenClaims {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return openAITokenClaims{}
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return openAITokenClaims{}
	}

	var claims openAITokenClaims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return openAITokenClaims{}
	}

	return claims
}
