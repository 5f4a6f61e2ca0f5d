package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/limitwatch/internal/adapters/auth"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

const (
	// Client ID of the public gh CLI OAuth app; device-flow tokens minted
	// through it can read the Copilot endpoints.
	githubDeviceClientID = "178c6fc778ccc68e1d6a"
	githubOAuthBaseURL   = "https://github.com"
	githubAPIBaseURL     = "https://api.github.com"
	githubLoginTimeout   = 15 * time.Minute

	// Services entry marking an org-level quota subscription.
	orgServicePrefix = "org:"
)

var githubScopes = []string{"read:org", "read:user"}

// Individual plans whose premium snapshot reflects personal usage. Business
// and enterprise seats report the shared org pool there instead.
var copilotPersonalPlans = map[string]bool{
	"individual":     true,
	"individual_pro": true,
	"pro":            true,
	"pro+":           true,
}

// GitHubCopilotUnit reads premium request quota for a personal Copilot plan
// and seat usage for one organization.
type GitHubCopilotUnit struct {
	client       *http.Client
	oauthBaseURL string
	apiBaseURL   string
	loginTimeout time.Duration
	now          func() time.Time
}

func NewGitHubCopilotUnit(client *http.Client) *GitHubCopilotUnit {
	return &GitHubCopilotUnit{
		client:       client,
		oauthBaseURL: githubOAuthBaseURL,
		apiBaseURL:   githubAPIBaseURL,
		loginTimeout: githubLoginTimeout,
		now:          time.Now,
	}
}

func (u *GitHubCopilotUnit) Kind() domain.ProviderKind { return domain.ProviderGitHubCopilot }

func (u *GitHubCopilotUnit) Metadata() domain.ProviderMetadata {
	return domain.ProviderMetadata{
		Kind:                 domain.ProviderGitHubCopilot,
		DisplayName:          "GitHub Copilot",
		Color:                "white",
		Indicator:            "H",
		SortPriority:         2,
		PrimaryLabelPatterns: []string{"personal", "org"},
	}
}

func (u *GitHubCopilotUnit) Authenticate(ctx context.Context, params ports.AuthParams) (domain.Account, domain.Credential, error) {
	token := strings.TrimSpace(params.APIKey)
	if token == "" {
		var err error
		token, err = u.deviceLogin(ctx, params)
		if err != nil {
			return domain.Account{}, domain.Credential{}, err
		}
	}

	login, err := u.fetchViewerLogin(ctx, token)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	var services []string
	if org := strings.TrimSpace(params.Organization); org != "" {
		services = append(services, orgServicePrefix+org)
	}

	account := domain.Account{
		Kind:     domain.ProviderGitHubCopilot,
		ID:       domain.AccountID(login),
		Services: services,
	}
	cred := domain.Credential{AccessToken: token, TokenType: "bearer"}

	return account, cred, nil
}

func (u *GitHubCopilotUnit) deviceLogin(ctx context.Context, params ports.AuthParams) (string, error) {
	if params.Out == nil {
		return "", fmt.Errorf("%w: github login needs a token or an interactive session", domain.ErrInvalidInput)
	}

	flow := auth.DeviceFlowAdapter{
		API: auth.API{
			BaseURL:        u.oauthBaseURL,
			DeviceCodePath: "/login/device/code",
			TokenPath:      "/login/oauth/access_token",
		},
		HTTPClient: u.client,
	}

	code, err := flow.RequestDeviceCode(ctx, githubDeviceClientID, githubScopes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}

	fmt.Fprintf(params.Out, "Visit %s and enter code %s\n", code.VerificationURL, code.UserCode)

	token, err := flow.PollToken(ctx, auth.DevicePollRequest{
		ClientID:     githubDeviceClientID,
		DeviceAuthID: code.DeviceAuthID,
		PollInterval: code.PollInterval,
		Timeout:      u.loginTimeout,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDeviceFlowTimeout) {
			return "", fmt.Errorf("%w: %v", domain.ErrLoginCancelled, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrLoginRejected, err)
	}

	return token.AccessToken, nil
}

// Refresh is a no-op: device-flow tokens from the gh app and classic personal
// access tokens stay valid until revoked.
func (u *GitHubCopilotUnit) Refresh(_ context.Context, cred domain.Credential) (domain.Credential, error) {
	return cred, nil
}

type githubViewer struct {
	Login string `json:"login"`
	Email string `json:"email"`
}

type copilotPremiumSnapshot struct {
	PercentRemaining *float64 `json:"percent_remaining"`
	Entitlement      *float64 `json:"entitlement"`
	Remaining        *float64 `json:"remaining"`
	OverageCount     float64  `json:"overage_count"`
	OveragePermitted bool     `json:"overage_permitted"`
}

type copilotInternalUser struct {
	CopilotPlan           string   `json:"copilot_plan"`
	QuotaResetDate        string   `json:"quota_reset_date"`
	OrganizationLoginList []string `json:"organization_login_list"`
	QuotaSnapshots        struct {
		PremiumInteractions *copilotPremiumSnapshot `json:"premium_interactions"`
	} `json:"quota_snapshots"`
}

type copilotSeatBilling struct {
	SeatBreakdown struct {
		Total           float64 `json:"total"`
		ActiveThisCycle float64 `json:"active_this_cycle"`
	} `json:"seat_breakdown"`
}

func (u *GitHubCopilotUnit) Fetch(ctx context.Context, account domain.Account, cred domain.Credential) ([]domain.QuotaFact, error) {
	token := cred.AccessToken
	if token == "" {
		token = cred.APIKey
	}
	if token == "" {
		return nil, fmt.Errorf("%w: credential has no token", domain.ErrUnauthorized)
	}

	org := orgFromServices(account.Services)

	facts := make([]domain.QuotaFact, 0, 2)

	personal, err := u.fetchPersonal(ctx, token, org)
	if err != nil {
		return nil, err
	}
	switch {
	case personal != nil:
		facts = append(facts, *personal)
	case org == "":
		// No personal meter and no org to blame it on, report headroom.
		facts = append(facts, domain.QuotaFact{
			Source:   sourceCopilot,
			Label:    "Personal",
			Fraction: domain.Float(0),
			Detail:   "available",
		})
	}

	if org != "" {
		orgFact, err := u.fetchOrg(ctx, token, org, string(account.ID))
		if err != nil {
			return nil, err
		}
		facts = append(facts, orgFact)
	}

	return facts, nil
}

const sourceCopilot = "copilot"

func (u *GitHubCopilotUnit) fetchPersonal(ctx context.Context, token, org string) (*domain.QuotaFact, error) {
	internal, err := u.fetchCopilotInternal(ctx, token)
	if err != nil {
		return nil, err
	}

	if internal != nil {
		plan := strings.ToLower(internal.CopilotPlan)
		resetAt := parseCopilotReset(internal.QuotaResetDate)

		if plan == "free" {
			// Free plan has no premium allotment to consume.
			return &domain.QuotaFact{
				Source:   sourceCopilot,
				Label:    "Personal",
				Fraction: domain.Float(0),
				ResetAt:  resetAt,
				Detail:   "free plan",
			}, nil
		}

		usable := plan == "" || copilotPersonalPlans[plan]
		if plan == "" && org != "" && containsFold(internal.OrganizationLoginList, org) {
			// The snapshot mirrors the shared org pool here, the org meter
			// below reports it instead.
			usable = false
		}

		if usable {
			if fact := premiumSnapshotFact(internal, "Personal", resetAt); fact != nil {
				return fact, nil
			}
		}
	}

	return u.fetchSeatBilling(ctx, token, "/user/copilot/billing", "Personal")
}

func premiumSnapshotFact(internal *copilotInternalUser, label string, resetAt *time.Time) *domain.QuotaFact {
	premium := internal.QuotaSnapshots.PremiumInteractions
	if premium == nil || premium.PercentRemaining == nil {
		return nil
	}

	fact := domain.QuotaFact{
		Source:   sourceCopilot,
		Label:    label,
		Fraction: domain.Float((100 - *premium.PercentRemaining) / 100),
		ResetAt:  resetAt,
	}
	if premium.Entitlement != nil {
		fact.Total = premium.Entitlement
		if premium.Remaining != nil {
			used := *premium.Entitlement - *premium.Remaining
			fact.Used = &used
			fact.Detail = fmt.Sprintf("%.0f of %.0f left", *premium.Remaining, *premium.Entitlement)
		}
	}
	if premium.OverageCount > 0 {
		detail := fmt.Sprintf("%.0f overage used", premium.OverageCount)
		if fact.Detail != "" {
			detail = fact.Detail + ", " + detail
		}
		fact.Detail = detail
	}

	return &fact
}

func (u *GitHubCopilotUnit) fetchOrg(ctx context.Context, token, org, login string) (domain.QuotaFact, error) {
	label := fmt.Sprintf("Org (%s)", org)

	status, body, err := u.get(ctx, "/orgs/"+org+"/copilot/billing", "Bearer "+token, "2022-11-28")
	if err != nil {
		return domain.QuotaFact{}, err
	}

	switch {
	case status == http.StatusOK:
		return u.seatFact(body, label)
	case status == http.StatusNotFound || status == http.StatusForbidden:
		// Billing needs org owner rights; members fall back to their own
		// seat record, then to the internal org list.
		if seat, err := u.fetchMemberSeat(ctx, token, org, login); err != nil {
			return domain.QuotaFact{}, err
		} else if seat {
			return domain.QuotaFact{
				Source:   sourceCopilot,
				Label:    label,
				Fraction: domain.Float(0),
				Detail:   "seat active",
			}, nil
		}

		internal, err := u.fetchCopilotInternal(ctx, token)
		if err != nil {
			return domain.QuotaFact{}, err
		}
		if internal != nil && containsFold(internal.OrganizationLoginList, org) {
			resetAt := parseCopilotReset(internal.QuotaResetDate)
			if fact := premiumSnapshotFact(internal, label, resetAt); fact != nil {
				return *fact, nil
			}
		}

		return domain.QuotaFact{
			Source: sourceCopilot,
			Label:  label,
			Detail: "no billing access",
		}, nil
	default:
		return domain.QuotaFact{}, statusError(status, body)
	}
}

// fetchCopilotInternal reads the endpoint the Copilot extensions use. It wants
// the legacy token auth scheme and a newer API version than the rest.
func (u *GitHubCopilotUnit) fetchCopilotInternal(ctx context.Context, token string) (*copilotInternalUser, error) {
	status, body, err := u.get(ctx, "/copilot_internal/user", "token "+token, "2025-04-01")
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, statusError(status, body)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	var payload copilotInternalUser
	if err := decodeJSON(body, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

func (u *GitHubCopilotUnit) fetchSeatBilling(ctx context.Context, token, path, label string) (*domain.QuotaFact, error) {
	status, body, err := u.get(ctx, path, "Bearer "+token, "2022-11-28")
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, statusError(status, body)
	}
	if status != http.StatusOK {
		return nil, nil
	}

	fact, err := u.seatFact(body, label)
	if err != nil {
		return nil, err
	}

	return &fact, nil
}

func (u *GitHubCopilotUnit) seatFact(body []byte, label string) (domain.QuotaFact, error) {
	var billing copilotSeatBilling
	if err := decodeJSON(body, &billing); err != nil {
		return domain.QuotaFact{}, err
	}

	resetAt := firstOfNextMonthUTC(u.now())
	fact := domain.QuotaFact{
		Source:  sourceCopilot,
		Label:   label,
		ResetAt: &resetAt,
	}

	total := billing.SeatBreakdown.Total
	active := billing.SeatBreakdown.ActiveThisCycle
	if total > 0 {
		fact.Used = &active
		fact.Total = &total
		fact.Detail = fmt.Sprintf("%.0f of %.0f seats active", active, total)
	} else {
		fact.Fraction = domain.Float(0)
	}

	return fact, nil
}

func (u *GitHubCopilotUnit) fetchMemberSeat(ctx context.Context, token, org, login string) (bool, error) {
	if login == "" {
		return false, nil
	}

	status, _, err := u.get(ctx, "/orgs/"+org+"/members/"+login+"/copilot", "Bearer "+token, "2022-11-28")
	if err != nil {
		return false, err
	}

	return status == http.StatusOK, nil
}

func (u *GitHubCopilotUnit) fetchViewerLogin(ctx context.Context, token string) (string, error) {
	status, body, err := u.get(ctx, "/user", "Bearer "+token, "2022-11-28")
	if err != nil {
		return "", err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return "", fmt.Errorf("%w: github rejected the token", domain.ErrLoginRejected)
	}
	if err := statusError(status, body); err != nil {
		return "", err
	}

	var viewer githubViewer
	if err := decodeJSON(body, &viewer); err != nil {
		return "", err
	}

	switch {
	case viewer.Login != "":
		return viewer.Login, nil
	case viewer.Email != "":
		return viewer.Email, nil
	default:
		return "GitHub User", nil
	}
}

func (u *GitHubCopilotUnit) get(ctx context.Context, path, authorization, apiVersion string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.apiBaseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	return do(u.client, req)
}

func orgFromServices(services []string) string {
	for _, service := range services {
		if org, ok := strings.CutPrefix(service, orgServicePrefix); ok {
			return strings.TrimSpace(org)
		}
	}

	return ""
}

func containsFold(list []string, want string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, want) {
			return true
		}
	}

	return false
}

// parseCopilotReset accepts the date-only and timestamp forms the quota reset
// field shows up in.
func parseCopilotReset(raw string) *time.Time {
	if raw == "" {
		return nil
	}

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}

	return nil
}

func firstOfNextMonthUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
