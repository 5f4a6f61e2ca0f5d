package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

// Account is the stored record for one authenticated provider account.
// Secret material never lives here; SecretRef points into the secret store.
type Account struct {
	Kind            ProviderKind
	ID              AccountID
	Alias           string
	Group           string
	SecretRef       string
	Services        []string
	LastRefreshedAt time.Time
}

// Key identifies an account record. Logging in twice with the same identity
// updates the record in place instead of duplicating it.
func (a Account) Key() AccountKey {
	return AccountKey{Kind: a.Kind, ID: a.ID}
}

type AccountKey struct {
	Kind ProviderKind
	ID   AccountID
}

func (k AccountKey) String() string {
	return fmt.Sprintf("%s/%s", k.Kind, k.ID)
}

// DisplayName renders the account header: the alias when one is set, with the
// real identity in parentheses, falling back to the raw ID.
func (a Account) DisplayName() string {
	alias := strings.TrimSpace(a.Alias)
	if alias == "" {
		return string(a.ID)
	}

	return fmt.Sprintf("%s (%s)", alias, a.ID)
}

// MatchesRef reports whether ref selects this account. A ref matches the
// account ID or its alias, case-insensitively.
func (a Account) MatchesRef(ref string) bool {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return false
	}

	if strings.EqualFold(string(a.ID), trimmed) {
		return true
	}

	return a.Alias != "" && strings.EqualFold(a.Alias, trimmed)
}

// AccountRef is the slice of account identity that travels with quota items,
// enough for rendering and history without dragging the full record along.
type AccountRef struct {
	Kind  ProviderKind
	ID    AccountID
	Alias string
	Group string
}

func (a Account) Ref() AccountRef {
	return AccountRef{Kind: a.Kind, ID: a.ID, Alias: a.Alias, Group: a.Group}
}

func (r AccountRef) DisplayName() string {
	alias := strings.TrimSpace(r.Alias)
	if alias == "" {
		return string(r.ID)
	}

	return fmt.Sprintf("%s (%s)", alias, r.ID)
}
