package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterUnit monitors the credit balance behind an OpenRouter API key.
// Management keys answer /credits with the full ledger; regular keys only
// expose their own usage through /auth/key, so fetch tries both in order.
type OpenRouterUnit struct {
	client  *http.Client
	baseURL string
}

func NewOpenRouterUnit(client *http.Client) *OpenRouterUnit {
	return &OpenRouterUnit{client: client, baseURL: openRouterBaseURL}
}

func (u *OpenRouterUnit) Kind() domain.ProviderKind { return domain.ProviderOpenRouter }

func (u *OpenRouterUnit) Metadata() domain.ProviderMetadata {
	return domain.ProviderMetadata{
		Kind:                 domain.ProviderOpenRouter,
		DisplayName:          "OpenRouter",
		Color:                "cyan",
		Indicator:            "R",
		SortPriority:         0,
		PrimaryLabelPatterns: []string{"credits", "key"},
	}
}

type openRouterKeyInfo struct {
	Data struct {
		Label string   `json:"label"`
		Name  string   `json:"name"`
		Usage float64  `json:"usage"`
		Limit *float64 `json:"limit"`
	} `json:"data"`
}

type openRouterCredits struct {
	Data struct {
		TotalCredits float64 `json:"total_credits"`
		TotalUsage   float64 `json:"total_usage"`
	} `json:"data"`
}

func (u *OpenRouterUnit) Authenticate(ctx context.Context, params ports.AuthParams) (domain.Account, domain.Credential, error) {
	apiKey := strings.TrimSpace(params.APIKey)
	if apiKey == "" {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: openrouter login needs an api key", domain.ErrInvalidInput)
	}

	status, body, err := u.get(ctx, "/auth/key", apiKey)
	if err != nil {
		return domain.Account{}, domain.Credential{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.Account{}, domain.Credential{}, fmt.Errorf("%w: openrouter rejected the api key", domain.ErrLoginRejected)
	}
	if err := statusError(status, body); err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	var info openRouterKeyInfo
	if err := decodeJSON(body, &info); err != nil {
		return domain.Account{}, domain.Credential{}, err
	}

	identity := openRouterKeyLabel(info)
	account := domain.Account{
		Kind: domain.ProviderOpenRouter,
		ID:   domain.AccountID(identity),
	}
	cred := domain.Credential{APIKey: apiKey}

	return account, cred, nil
}

// Refresh is a no-op: api keys stay valid until revoked, and a revoked key
// only shows up as unauthorized on the next fetch.
func (u *OpenRouterUnit) Refresh(_ context.Context, cred domain.Credential) (domain.Credential, error) {
	return cred, nil
}

func (u *OpenRouterUnit) Fetch(ctx context.Context, account domain.Account, cred domain.Credential) ([]domain.QuotaFact, error) {
	if cred.APIKey == "" {
		return nil, fmt.Errorf("%w: credential has no api key", domain.ErrUnauthorized)
	}

	// Management keys see the whole ledger.
	status, body, err := u.get(ctx, "/credits", cred.APIKey)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		if err := statusError(status, body); err != nil {
			return nil, err
		}

		var credits openRouterCredits
		if err := decodeJSON(body, &credits); err != nil {
			return nil, err
		}

		total := credits.Data.TotalCredits
		used := credits.Data.TotalUsage
		remaining := total - used
		if remaining < 0 {
			remaining = 0
		}

		return []domain.QuotaFact{{
			Source: "openrouter",
			Label:  "Credits",
			Used:   domain.Float(used),
			Total:  domain.Float(total),
			Detail: domain.FormatMoney(remaining) + " remaining",
		}}, nil
	}

	// Regular key: fall back to the key's own usage view.
	status, body, err = u.get(ctx, "/auth/key", cred.APIKey)
	if err != nil {
		return nil, err
	}
	if err := statusError(status, body); err != nil {
		return nil, err
	}

	var info openRouterKeyInfo
	if err := decodeJSON(body, &info); err != nil {
		return nil, err
	}

	label := openRouterKeyLabel(info)
	fact := domain.QuotaFact{Source: "openrouter", Label: "Key"}
	if info.Data.Limit != nil {
		limit := *info.Data.Limit
		remaining := limit - info.Data.Usage
		if remaining < 0 {
			remaining = 0
		}
		fact.Used = domain.Float(info.Data.Usage)
		fact.Total = domain.Float(limit)
		fact.Detail = fmt.Sprintf("%s: %s remaining", label, domain.FormatMoney(remaining))
	} else {
		// No credit limit on the key, only spend to report.
		fact.Detail = fmt.Sprintf("%s: %s spent", label, domain.FormatMoney(info.Data.Usage))
	}

	return []domain.QuotaFact{fact}, nil
}

func (u *OpenRouterUnit) get(ctx context.Context, path string, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+path, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	return do(u.client, req)
}

func openRouterKeyLabel(info openRouterKeyInfo) string {
	if label := strings.TrimSpace(info.Data.Label); label != "" {
		return label
	}
	if name := strings.TrimSpace(info.Data.Name); name != "" {
		return name
	}

	return "OpenRouter Key"
}
