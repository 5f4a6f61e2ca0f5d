package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

const chutesBaseURL = "https://api.chutes.ai"

// Strategy values for the per-chute quota walk. The credential bundle's
// extra field can pin one; auto probes the personal quota first and only
// walks the list when that meter is absent.
const (
	chutesStrategyExtraKey = "quota_strategy"

	chutesStrategyAuto     = "auto"
	chutesStrategyFull     = "full"
	chutesStrategyFallback = "fallback"
)

// ChutesUnit reads the credit balance and the daily request quota behind a
// Chutes.ai api key. The api wants the raw key in the Authorization header,
// no Bearer prefix.
type ChutesUnit struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

func NewChutesUnit(client *http.Client) *ChutesUnit {
	return &ChutesUnit{client: client, baseURL: chutesBaseURL, now: time.Now}
}

func (u *ChutesUnit) Kind() domain.ProviderKind { return domain.ProviderChutes }

func (u *ChutesUnit) Metadata() domain.ProviderMetadata {
	return domain.ProviderMetadata{
		Kind:                 domain.ProviderChutes,
		DisplayName:          "Chutes",
		Color:                "yellow",
		Indicator:            "C",
		SortPriority:         0,
		PrimaryLabelPatterns: []string{"credits", "quota"},
	}
}

type chutesUser struct {
	ID       string  `json:"user_id"`
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}

type chutesQuotaEntry struct {
	ChuteID string `json:"chute_id"`
	ID      string `json:"id"`
}

type chutesQuotaUsage struct {
	ChuteID string  `json:"chute_id"`
	Quota   float64 `json:"quota"`
	Limit   float64 `json:"limit"`
	Used    float64 `json:"used"`
}

func (u *ChutesUnit) Authenticate(ctx context.Context, params ports.AuthParams) (domain.Account, domain.Credential, error) {
	apiKey := strings.TrimSpace(params.APIKey)
	if apiKey == "" {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: chutes login needs an api key", domain.ErrInvalidInput)
	}

	status, body, err := u.get(ctx, "/users/me", apiKey)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: chutes rejected the api key", domain.ErrLoginRejected)
	}
	if err := statusError(status, body); err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	var user chutesUser
	if err := decodeJSON(body, &user); err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	account := domain.Account{
		Kind: domain.ProviderChutes,
		ID:   domain.AccountID(chutesIdentity(user)),
	}
	cred := domain.Credential{APIKey: apiKey}

	return account, cred, nil
}

func (u *ChutesUnit) Refresh(_ context.Context, cred domain.Credential) (domain.Credential, error) {
	return cred, nil
}

// Fetch reports whatever sub-requests delivered. The balance and the
// personal quota are independent meters; one failing does not drop the
// other. Only a rejected key aborts the whole fetch.
func (u *ChutesUnit) Fetch(ctx context.Context, _ domain.Account, cred domain.Credential) ([]domain.QuotaFact, error) {
	if cred.APIKey == "" {
		return nil, fmt.Errorf("%w: credential has no api key", domain.ErrUnauthorized)
	}

	var balanceFact, personalFact *domain.QuotaFact
	var balanceErr, personalErr error

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		balanceFact, balanceErr = u.fetchBalance(groupCtx, cred.APIKey)
		if errors.Is(balanceErr, domain.ErrUnauthorized) {
			return balanceErr
		}
		return nil
	})
	group.Go(func() error {
		personalFact, personalErr = u.fetchPersonalQuota(groupCtx, cred.APIKey)
		if errors.Is(personalErr, domain.ErrUnauthorized) {
			return personalErr
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var listFacts []domain.QuotaFact
	strategy := chutesStrategy(cred)
	if strategy == chutesStrategyFull || (strategy == chutesStrategyAuto && personalFact == nil && personalErr == nil) {
		listFacts = u.fetchQuotaList(ctx, cred.APIKey)
	}

	facts := make([]domain.QuotaFact, 0, 1+len(listFacts))
	if balanceFact != nil {
		facts = append(facts, *balanceFact)
	}
	switch {
	case len(listFacts) > 0:
		facts = append(facts, listFacts...)
	case personalFact != nil:
		facts = append(facts, *personalFact)
	}

	if len(facts) == 0 && balanceErr != nil && personalErr != nil {
		return nil, balanceErr
	}

	return facts, nil
}

func chutesStrategy(cred domain.Credential) string {
	switch strategy := cred.ExtraValue(chutesStrategyExtraKey); strategy {
	case chutesStrategyFull, chutesStrategyFallback:
		return strategy
	default:
		return chutesStrategyAuto
	}
}

func (u *ChutesUnit) fetchBalance(ctx context.Context, apiKey string) (*domain.QuotaFact, error) {
	status, body, err := u.get(ctx, "/users/me", apiKey)
	if err != nil {
		return nil, err
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var user chutesUser
	if err := decodeJSON(body, &user); err != nil {
		return nil, err
	}
	if user.Balance <= 0 {
		return nil, nil
	}

	return &domain.QuotaFact{
		Source: "chutes",
		Label:  "Credits",
		Detail: domain.FormatMoney(user.Balance),
	}, nil
}

func (u *ChutesUnit) fetchPersonalQuota(ctx context.Context, apiKey string) (*domain.QuotaFact, error) {
	status, body, err := u.get(ctx, "/users/me/quota_usage/me", apiKey)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		// Accounts without a request quota answer 404 here.
		return nil, nil
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var usage chutesQuotaUsage
	if err := decodeJSON(body, &usage); err != nil {
		return nil, err
	}
	if usage.ChuteID == "" {
		usage.ChuteID = "*"
	}

	return chutesQuotaFact(usage.ChuteID, usage, nextMidnightUTC(u.now())), nil
}

// fetchQuotaList walks the per-chute quotas. Nothing here is fatal; the
// entries that resolved in time are reported and the rest are skipped.
func (u *ChutesUnit) fetchQuotaList(ctx context.Context, apiKey string) []domain.QuotaFact {
	status, body, err := u.get(ctx, "/users/me/quotas", apiKey)
	if err != nil || statusError(status, body) != nil {
		return nil
	}

	var entries []chutesQuotaEntry
	if err := decodeJSON(body, &entries); err != nil {
		return nil
	}
	if len(entries) == 0 {
		return nil
	}

	reset := nextMidnightUTC(u.now())
	resolved := make([]*domain.QuotaFact, len(entries))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, entry := range entries {
		group.Go(func() error {
			id := entry.ChuteID
			if id == "" {
				id = entry.ID
			}
			if id == "" {
				return nil
			}

			usage, err := u.fetchQuotaUsage(groupCtx, apiKey, id)
			if err != nil {
				return nil
			}
			resolved[i] = chutesQuotaFact(usage.ChuteID, usage, reset)
			return nil
		})
	}
	_ = group.Wait()

	facts := make([]domain.QuotaFact, 0, len(resolved))
	for _, fact := range resolved {
		if fact != nil {
			facts = append(facts, *fact)
		}
	}

	return facts
}

func (u *ChutesUnit) fetchQuotaUsage(ctx context.Context, apiKey, chuteID string) (chutesQuotaUsage, error) {
	status, body, err := u.get(ctx, "/users/me/quota_usage/"+chuteID, apiKey)
	if err != nil {
		return chutesQuotaUsage{}, err
	}
	if err := statusError(status, body); err != nil {
		return chutesQuotaUsage{}, err
	}

	var usage chutesQuotaUsage
	if err := decodeJSON(body, &usage); err != nil {
		return chutesQuotaUsage{}, err
	}
	if usage.ChuteID == "" {
		usage.ChuteID = chuteID
	}

	return usage, nil
}

func chutesQuotaFact(chuteID string, usage chutesQuotaUsage, reset time.Time) *domain.QuotaFact {
	limit := usage.Quota
	if limit <= 0 {
		limit = usage.Limit
	}
	if limit <= 0 {
		return nil
	}

	remaining := limit - usage.Used
	if remaining < 0 {
		remaining = 0
	}

	return &domain.QuotaFact{
		Source:  "chutes",
		Label:   chutesQuotaLabel(chuteID),
		Used:    domain.Float(usage.Used),
		Total:   domain.Float(limit),
		ResetAt: &reset,
		Detail:  strconv.Itoa(int(remaining)) + "/" + strconv.Itoa(int(limit)) + " left",
	}
}

func chutesQuotaLabel(chuteID string) string {
	if chuteID == "" || chuteID == "*" {
		return "Quota"
	}
	if len(chuteID) > 8 {
		chuteID = chuteID[:8]
	}

	return "Quota: " + chuteID
}

func (u *ChutesUnit) get(ctx context.Context, path string, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", apiKey)
	req.Header.Set("Content-Type", "application/json")

	return do(u.client, req)
}

func chutesIdentity(user chutesUser) string {
	for _, candidate := range []string{user.Email, user.Username, user.ID} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}

	return "Chutes User"
}

// nextMidnightUTC is when the daily request quota rolls over.
func nextMidnightUTC(now time.Time) time.Time {
	now = now.UTC()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
}
