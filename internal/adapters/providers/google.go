package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/limitwatch/internal/adapters/auth"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

const (
	googleClientID     = "1071006060591-tmhssin2h21lcre235vtolojh4g403ep.apps.googleusercontent.com"
	googleClientSecret = "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"
	googleAuthURL      = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL     = "https://oauth2.googleapis.com/token"
	googleUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	cloudCodeBaseURL   = "https://cloudcode-pa.googleapis.com"

	googleLoginTimeout = 5 * time.Minute

	// The two quota surfaces one Google account can expose.
	SourceGeminiCLI   = "gemini-cli"
	SourceAntigravity = "antigravity"
)

var googleScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/cclog",
	"https://www.googleapis.com/auth/experimentsandconfigs",
}

// GoogleUnit reads per-model quota buckets from the cloudcode API for the
// Gemini CLI and Antigravity surfaces of one Google account.
type GoogleUnit struct {
	client       *http.Client
	authURL      string
	tokenURL     string
	userInfoURL  string
	cloudCodeURL string
	callbackAddr string
	loginTimeout time.Duration
}

func NewGoogleUnit(client *http.Client) *GoogleUnit {
	return &GoogleUnit{
		client:       client,
		authURL:      googleAuthURL,
		tokenURL:     googleTokenURL,
		userInfoURL:  googleUserInfoURL,
		cloudCodeURL: cloudCodeBaseURL,
		callbackAddr: "127.0.0.1:0",
		loginTimeout: googleLoginTimeout,
	}
}

func (u *GoogleUnit) Kind() domain.ProviderKind { return domain.ProviderGoogle }

func (u *GoogleUnit) Metadata() domain.ProviderMetadata {
	return domain.ProviderMetadata{
		Kind:         domain.ProviderGoogle,
		DisplayName:  "Google",
		Color:        "cyan",
		Indicator:    "G",
		SortPriority: 1,
		// Current generation always shows, the previous one only when the
		// current is absent for that surface, legacy only on demand.
		PrimaryLabelPatterns:  []string{"gemini 3", "claude"},
		FallbackLabelPatterns: []string{"2.5"},
		HiddenLabelPatterns:   []string{"2.0", "1.5"},
	}
}

func (u *GoogleUnit) Authenticate(ctx context.Context, params ports.AuthParams) (domain.Account, domain.Credential, error) {
	if params.Out == nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: google login needs an interactive session", domain.ErrInvalidInput)
	}

	state, err := auth.NewState()
	if err != nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("generate state: %w", err)
	}

	callback, err := auth.StartCallbackServer(u.callbackAddr, state)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}
	defer func() { _ = callback.Close() }()

	cfg := u.oauthConfig(callback.RedirectURI())
	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)

	fmt.Fprintf(params.Out, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)

	code, err := callback.WaitForCode(u.loginTimeout)
	if err != nil {
		if errors.Is(err, auth.ErrCallbackTimeout) {
			return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginCancelled, err)
		}
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginRejected, err)
	}

	token, err := cfg.Exchange(u.oauthContext(ctx), code)
	if err != nil {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrLoginRejected, err)
	}
	if token.RefreshToken == "" {
		// Google only hands the refresh token out on first consent.
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: no refresh token granted, revoke app access and retry", domain.ErrLoginRejected)
	}

	email, err := u.fetchUserEmail(ctx, token.AccessToken)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	services := params.Services
	if len(services) == 0 {
		services = []string{SourceGeminiCLI, SourceAntigravity}
	}

	account := domain.Account{
		Kind:     domain.ProviderGoogle,
		ID:       domain.AccountID(email),
		Services: services,
	}
	cred := domain.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry.UTC(),
	}

	return account, cred, nil
}

func (u *GoogleUnit) Refresh(ctx context.Context, cred domain.Credential) (domain.Credential, error) {
	if cred.RefreshToken == "" {
		return domain.Credential{}, fmt.Errorf("%w: credential has no refresh token", domain.ErrUnauthorized)
	}

	cfg := u.oauthConfig("")
	source := cfg.TokenSource(u.oauthContext(ctx), &oauth2.Token{RefreshToken: cred.RefreshToken})
	token, err := source.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return domain.Credential{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return domain.Credential{}, fmt.Errorf("refresh google tokens: %w", err)
	}

	next := cred
	next.AccessToken = token.AccessToken
	next.TokenType = token.TokenType
	next.ExpiresAt = token.Expiry.UTC()
	if token.RefreshToken != "" {
		next.RefreshToken = token.RefreshToken
	}

	return next, nil
}

type googleQuotaBuckets struct {
	Buckets []struct {
		ModelID           string   `json:"modelId"`
		RemainingFraction *float64 `json:"remainingFraction"`
		ResetTime         string   `json:"resetTime"`
	} `json:"buckets"`
}

type googleModelCatalog struct {
	Models map[string]struct {
		DisplayName string `json:"displayName"`
		QuotaInfo   *struct {
			RemainingFraction *float64 `json:"remainingFraction"`
			ResetTime         string   `json:"resetTime"`
		} `json:"quotaInfo"`
	} `json:"models"`
}

type googleProjectInfo struct {
	ProjectID string `json:"cloudaicompanionProject"`
}

func (u *GoogleUnit) Fetch(ctx context.Context, account domain.Account, cred domain.Credential) ([]domain.QuotaFact, error) {
	if cred.AccessToken == "" {
		return nil, fmt.Errorf("%w: credential has no access token", domain.ErrUnauthorized)
	}

	services := account.Services
	if len(services) == 0 {
		services = []string{SourceGeminiCLI, SourceAntigravity}
	}

	// Best effort: some accounts only answer with a project in the body.
	projectID := u.discoverProject(ctx, cred.AccessToken)

	results := make([][]domain.QuotaFact, len(services))
	serviceErrs := make([]error, len(services))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, service := range services {
		group.Go(func() error {
			var facts []domain.QuotaFact
			var err error
			switch service {
			case SourceGeminiCLI:
				facts, err = u.fetchGeminiCLI(groupCtx, cred.AccessToken, projectID)
			case SourceAntigravity:
				facts, err = u.fetchAntigravity(groupCtx, cred.AccessToken, projectID)
			default:
				return nil
			}

			// A stale token or throttling hits every surface alike, so
			// those cancel the whole account fetch. Anything else stays a
			// single-surface problem.
			if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrRateLimited) {
				return err
			}
			results[i] = facts
			serviceErrs[i] = err
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	facts := make([]domain.QuotaFact, 0, 8)
	var firstErr error
	failed := 0
	for i := range services {
		if serviceErrs[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = serviceErrs[i]
			}
			continue
		}
		facts = append(facts, results[i]...)
	}
	if failed == len(services) && firstErr != nil {
		return nil, firstErr
	}

	return facts, nil
}

func (u *GoogleUnit) fetchGeminiCLI(ctx context.Context, accessToken, projectID string) ([]domain.QuotaFact, error) {
	headers := map[string]string{"User-Agent": geminiCLIUserAgent()}
	status, body, err := u.postWithProjectRetry(ctx, "/v1internal:retrieveUserQuota", accessToken, projectID, headers)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden {
		// Account has no Gemini CLI access, nothing to report.
		return nil, nil
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var payload googleQuotaBuckets
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}

	groups := newFamilyGroups()
	for _, bucket := range payload.Buckets {
		family := geminiFamily(bucket.ModelID)
		if family == "" {
			continue
		}
		groups.observe(family, bucket.RemainingFraction, bucket.ResetTime)
	}

	return groups.facts(SourceGeminiCLI), nil
}

func (u *GoogleUnit) fetchAntigravity(ctx context.Context, accessToken, projectID string) ([]domain.QuotaFact, error) {
	headers := map[string]string{
		"User-Agent":        "antigravity/1.15.8 linux/x64",
		"X-Goog-Api-Client": "google-cloud-sdk vscode/1.96.0",
		"Client-Metadata":   `{"ideType":"IDE_UNSPECIFIED","platform":"PLATFORM_UNSPECIFIED","pluginType":"GEMINI"}`,
	}
	status, body, err := u.postWithProjectRetry(ctx, "/v1internal:fetchAvailableModels", accessToken, projectID, headers)
	if err != nil {
		return nil, err
	}
	if status == http.StatusForbidden {
		return nil, nil
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var payload googleModelCatalog
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}

	// Map order is random, sort so the report stays stable between runs.
	modelIDs := make([]string, 0, len(payload.Models))
	for modelID := range payload.Models {
		modelIDs = append(modelIDs, modelID)
	}
	slices.Sort(modelIDs)

	groups := newFamilyGroups()
	for _, modelID := range modelIDs {
		info := payload.Models[modelID]
		if info.QuotaInfo == nil {
			continue
		}
		if !antigravityModelRelevant(modelID, info.DisplayName) {
			continue
		}
		family := antigravityFamily(modelID, info.DisplayName)
		groups.observe(family, info.QuotaInfo.RemainingFraction, info.QuotaInfo.ResetTime)
	}

	return groups.facts(SourceAntigravity), nil
}

func (u *GoogleUnit) discoverProject(ctx context.Context, accessToken string) string {
	payload := map[string]any{"metadata": map[string]string{"ideType": "ANTIGRAVITY"}}
	status, body, err := u.post(ctx, "/v1internal:loadCodeAssist", accessToken, payload, nil)
	if err != nil || status != http.StatusOK {
		return ""
	}

	var info googleProjectInfo
	if json.Unmarshal(body, &info) != nil {
		return ""
	}

	return info.ProjectID
}

func (u *GoogleUnit) postWithProjectRetry(ctx context.Context, path, accessToken, projectID string, headers map[string]string) (int, []byte, error) {
	payload := map[string]string{}
	if projectID != "" {
		payload["project"] = projectID
	}

	status, body, err := u.post(ctx, path, accessToken, payload, headers)
	if err != nil {
		return 0, nil, err
	}
	if (status < http.StatusOK || status >= http.StatusMultipleChoices) && projectID != "" {
		// Some accounts reject an explicit project, retry bare.
		return u.post(ctx, path, accessToken, map[string]string{}, headers)
	}

	return status, body, nil
}

func (u *GoogleUnit) post(ctx context.Context, path, accessToken string, payload any, headers map[string]string) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.cloudCodeURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return do(u.client, req)
}

func (u *GoogleUnit) fetchUserEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	status, body, err := do(u.client, req)
	if err != nil {
		return "", err
	}
	if err := statusError(status, body); err != nil {
		return "", err
	}

	var info struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(body, &info); err != nil {
		return "", err
	}
	if strings.TrimSpace(info.Email) == "" {
		return "", fmt.Errorf("%w: userinfo response carries no email", domain.ErrMalformedResponse)
	}

	return info.Email, nil
}

func (u *GoogleUnit) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     googleClientID,
		ClientSecret: googleClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  u.authURL,
			TokenURL: u.tokenURL,
		},
		RedirectURL: redirectURI,
		Scopes:      googleScopes,
	}
}

// oauthContext pins the oauth2 transport to our client so timeouts and test
// servers apply to token requests too.
func (u *GoogleUnit) oauthContext(ctx context.Context) context.Context {
	if u.client == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, u.client)
}

// familyGroups keeps the most constrained bucket per model family; when one
// family spans several concrete models the lowest remaining fraction is the
// honest number to show.
type familyGroups struct {
	order     []string
	remaining map[string]float64
	reset     map[string]string
}

func newFamilyGroups() *familyGroups {
	return &familyGroups{
		remaining: make(map[string]float64),
		reset:     make(map[string]string),
	}
}

func (g *familyGroups) observe(family string, remainingFraction *float64, resetTime string) {
	remaining := 1.0
	if remainingFraction != nil {
		remaining = *remainingFraction
	}

	current, seen := g.remaining[family]
	if !seen {
		g.order = append(g.order, family)
	}
	if !seen || remaining < current {
		g.remaining[family] = remaining
		g.reset[family] = resetTime
	}
}

func (g *familyGroups) facts(source string) []domain.QuotaFact {
	facts := make([]domain.QuotaFact, 0, len(g.order))
	for _, family := range g.order {
		fact := domain.QuotaFact{
			Source:   source,
			Label:    family,
			Fraction: domain.Float(1 - g.remaining[family]),
		}
		if reset, err := time.Parse(time.RFC3339, g.reset[family]); err == nil {
			resetUTC := reset.UTC()
			fact.ResetAt = &resetUTC
		}
		facts = append(facts, fact)
	}

	return facts
}

var geminiFamilies = []struct {
	fragment string
	family   string
}{
	{"gemini-3-pro", "Gemini 3 Pro"},
	{"gemini-3-flash", "Gemini 3 Flash"},
	{"gemini-2.5-pro", "Gemini 2.5 Pro"},
	{"gemini-2.5-flash", "Gemini 2.5 Flash"},
	{"gemini-2.0-flash", "Gemini 2.0 Flash"},
	{"gemini-1.5-pro", "Gemini 1.5 Pro"},
	{"gemini-1.5-flash", "Gemini 1.5 Flash"},
}

func geminiFamily(modelID string) string {
	lowered := strings.ToLower(modelID)
	for _, candidate := range geminiFamilies {
		if strings.Contains(lowered, candidate.fragment) {
			return candidate.family
		}
	}

	return ""
}

func antigravityModelRelevant(modelID, displayName string) bool {
	loweredID := strings.ToLower(modelID)
	loweredName := strings.ToLower(displayName)

	relevant := false
	for _, keyword := range []string{"gemini", "claude"} {
		if strings.Contains(loweredID, keyword) || strings.Contains(loweredName, keyword) {
			relevant = true
			break
		}
	}
	if !relevant {
		return false
	}

	for _, keyword := range []string{"tab_", "chat_", "image", "rev19"} {
		if strings.Contains(loweredID, keyword) || strings.Contains(loweredName, keyword) {
			return false
		}
	}

	return true
}

func antigravityFamily(modelID, displayName string) string {
	loweredID := strings.ToLower(modelID)
	loweredName := strings.ToLower(displayName)

	switch {
	case strings.Contains(loweredID, "claude") || strings.Contains(loweredName, "claude"):
		return "Claude"
	case strings.Contains(loweredName, "gemini 3 pro") || strings.Contains(loweredID, "gemini-3-pro"):
		return "Gemini 3 Pro"
	case strings.Contains(loweredName, "gemini 3 flash") || strings.Contains(loweredID, "gemini-3-flash"):
		return "Gemini 3 Flash"
	case strings.Contains(loweredName, "gemini 2.5 flash") || strings.Contains(loweredID, "gemini-2.5-flash"):
		return "Gemini 2.5 Flash"
	case strings.Contains(loweredName, "gemini 2.5 pro") || strings.Contains(loweredID, "gemini-2.5-pro"):
		return "Gemini 2.5 Pro"
	default:
		return displayName
	}
}

func geminiCLIUserAgent() string {
	osName := "linux"
	switch runtime.GOOS {
	case "windows":
		osName = "win32"
	case "darwin":
		osName = "darwin"
	}

	arch := "x64"
	if strings.Contains(runtime.GOARCH, "arm") {
		arch = "arm64"
	}

	return fmt.Sprintf("GeminiCLI/1.0.0/gemini-2.5-pro (%s; %s)", osName, arch)
}
