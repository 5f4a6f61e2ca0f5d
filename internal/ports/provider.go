package ports

import (
	"context"
	"io"

	"github.com/bnema/limitwatch/internal/domain"
)

// AuthParams carries the inputs a login flow may need. Providers ignore
// fields that do not apply to them.
type AuthParams struct {
	// APIKey skips interactive flows for key-based providers.
	APIKey string
	// Organization enables org-level quota lookups where supported.
	Organization string
	// Services restricts which provider surfaces are fetched later.
	Services []string
	// Out receives interactive instructions (device codes, login URLs).
	// A nil Out means the flow must not prompt.
	Out io.Writer
}

// ProviderUnit is the full contract one provider integration implements.
// Authenticate runs the provider's login flow and returns the discovered
// identity with its credential bundle; Refresh renews a stale credential
// without user interaction; Fetch reports current quota facts.
//
// All errors surface through the domain sentinels so callers can branch on
// errors.Is without knowing the provider.
type ProviderUnit interface {
	Kind() domain.ProviderKind
	Metadata() domain.ProviderMetadata
	Authenticate(ctx context.Context, params AuthParams) (domain.Account, domain.Credential, error)
	Refresh(ctx context.Context, cred domain.Credential) (domain.Credential, error)
	Fetch(ctx context.Context, account domain.Account, cred domain.Credential) ([]domain.QuotaFact, error)
}

// UnitRegistry resolves the provider unit serving a given kind.
type UnitRegistry interface {
	Unit(kind domain.ProviderKind) (ProviderUnit, error)
}
