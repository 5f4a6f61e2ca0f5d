package domain

import (
	"maps"
	"strings"
	"time"
)

// Credential is the opaque secret bundle a provider hands back from login.
// It is serialized as JSON into the secret store; the accounts file only
// carries the reference.
type Credential struct {
	APIKey       string            `json:"api_key,omitempty"`
	AccessToken  string            `json:"access_token,omitempty"`
	RefreshToken string            `json:"refresh_token,omitempty"`
	TokenType    string            `json:"token_type,omitempty"`
	ExpiresAt    time.Time         `json:"expires_at,omitzero"`
	Extra        map[string]string `json:"extra,omitempty"`
}

func (c Credential) IsZero() bool {
	return c.APIKey == "" && c.AccessToken == "" && c.RefreshToken == ""
}

// Equal reports whether two bundles carry the same secret material. Used to
// detect that another caller already rotated a rejected credential.
func (c Credential) Equal(other Credential) bool {
	return c.APIKey == other.APIKey &&
		c.AccessToken == other.AccessToken &&
		c.RefreshToken == other.RefreshToken &&
		c.TokenType == other.TokenType &&
		c.ExpiresAt.Equal(other.ExpiresAt) &&
		maps.Equal(c.Extra, other.Extra)
}

// ExpiresWithin reports whether the credential expires before now+skew.
// Credentials without an expiry never expire here; API keys are static.
func (c Credential) ExpiresWithin(now time.Time, skew time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}

	return !c.ExpiresAt.After(now.Add(skew))
}

// Refreshable reports whether a stale credential can be renewed without a
// fresh login.
func (c Credential) Refreshable() bool {
	return strings.TrimSpace(c.RefreshToken) != ""
}

func (c Credential) ExtraValue(key string) string {
	if c.Extra == nil {
		return ""
	}

	return c.Extra[key]
}

// WithExtra returns a copy with key set, allocating the map on first use so
// zero-value credentials stay cheap.
func (c Credential) WithExtra(key, value string) Credential {
	extra := make(map[string]string, len(c.Extra)+1)
	for k, v := range c.Extra {
		extra[k] = v
	}
	extra[key] = value
	c.Extra = extra

	return c
}
