package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

// refreshSkew is how close to expiry a credential may get before EnsureValid
// renews it ahead of use.
const refreshSkew = 5 * time.Minute

// Service owns the credential lifecycle: login, refresh, logout, and the
// account metadata edits. All store mutations for one account are serialized
// through a per-account lock so a refresh never overwrites a bundle another
// caller just rotated.
type Service struct {
	repo    ports.AccountRepository
	secrets ports.SecretStore
	units   ports.UnitRegistry
	clock   ports.Clock

	refreshMu    sync.Mutex
	refreshLocks map[domain.AccountKey]*sync.Mutex
}

func NewService(repo ports.AccountRepository, secrets ports.SecretStore, units ports.UnitRegistry, clock ports.Clock) *Service {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Service{
		repo:         repo,
		secrets:      secrets,
		units:        units,
		clock:        clock,
		refreshLocks: make(map[domain.AccountKey]*sync.Mutex),
	}
}

// Login runs the provider's authentication flow and persists the resulting
// identity. Logging in again with an identity that already has a record
// updates the stored bundle while keeping the alias and group edits.
func (s *Service) Login(ctx context.Context, kind domain.ProviderKind, params ports.AuthParams) (domain.Account, error) {
	unit, err := s.units.Unit(kind)
	if err != nil {
		return domain.Account{}, err
	}

	account, cred, err := unit.Authenticate(ctx, params)
	if err != nil {
		return domain.Account{}, fmt.Errorf("authenticate with %s: %w", kind, err)
	}
	if cred.IsZero() {
		return domain.Account{}, fmt.Errorf("%w: %s login produced an empty credential", domain.ErrLoginRejected, kind)
	}
	account.SecretRef = account.Key().String()

	existing, err := s.repo.Get(ctx, account.Key())
	switch {
	case err == nil:
		account.Alias = existing.Alias
		account.Group = existing.Group
	case !errors.Is(err, domain.ErrAccountNotFound):
		return domain.Account{}, fmt.Errorf("look up existing account: %w", err)
	}
	account.LastRefreshedAt = s.clock.Now()

	encoded, err := encodeCredential(cred)
	if err != nil {
		return domain.Account{}, err
	}
	if err := s.secrets.Put(ctx, account.SecretRef, encoded); err != nil {
		return domain.Account{}, fmt.Errorf("store credential bundle: %w", err)
	}

	if err := s.repo.Save(ctx, account); err != nil {
		if rollbackErr := s.secrets.Delete(ctx, account.SecretRef); rollbackErr != nil {
			return domain.Account{}, fmt.Errorf("save account and rollback stored secret: %w", errors.Join(err, rollbackErr))
		}

		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}

	return account, nil
}

// EnsureValid returns a credential ready for fetching. A bundle not within
// the expiry skew is returned as stored without touching the provider; a
// stale one is refreshed once and persisted before returning.
func (s *Service) EnsureValid(ctx context.Context, account domain.Account) (domain.Credential, error) {
	lock := s.refreshLock(account.Key())
	lock.Lock()
	defer lock.Unlock()

	cred, err := s.loadCredential(ctx, account)
	if err != nil {
		return domain.Credential{}, err
	}
	if !cred.ExpiresWithin(s.clock.Now(), refreshSkew) {
		return cred, nil
	}

	return s.refreshLocked(ctx, account, cred)
}

// ForceRefresh rotates a bundle the provider just rejected. If the stored
// bundle already differs from the rejected one, another caller refreshed in
// the meantime and its result is returned instead of burning a second
// refresh.
func (s *Service) ForceRefresh(ctx context.Context, account domain.Account, rejected domain.Credential) (domain.Credential, error) {
	lock := s.refreshLock(account.Key())
	lock.Lock()
	defer lock.Unlock()

	cred, err := s.loadCredential(ctx, account)
	if err != nil {
		return domain.Credential{}, err
	}
	if !cred.Equal(rejected) {
		return cred, nil
	}

	return s.refreshLocked(ctx, account, cred)
}

// Logout removes the account selected by ref together with its stored
// bundle and returns the removed record.
func (s *Service) Logout(ctx context.Context, ref string) (domain.Account, error) {
	account, err := s.Resolve(ctx, ref)
	if err != nil {
		return domain.Account{}, err
	}

	if err := s.removeAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}

	return account, nil
}

// LogoutAll removes every stored account and bundle, returning the records
// that were removed before any failure.
func (s *Service) LogoutAll(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	removed := make([]domain.Account, 0, len(accounts))
	for _, account := range accounts {
		if err := s.removeAccount(ctx, account); err != nil {
			return removed, fmt.Errorf("logout %s: %w", account.Key(), err)
		}
		removed = append(removed, account)
	}

	return removed, nil
}

// SetAlias renames the account selected by ref. An empty alias clears it.
func (s *Service) SetAlias(ctx context.Context, ref, alias string) (domain.Account, error) {
	account, err := s.Resolve(ctx, ref)
	if err != nil {
		return domain.Account{}, err
	}

	alias = strings.TrimSpace(alias)
	if alias != "" {
		if err := s.checkAliasFree(ctx, account.Key(), alias); err != nil {
			return domain.Account{}, err
		}
	}
	account.Alias = alias

	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account alias: %w", err)
	}

	return account, nil
}

// SetGroup tags the account selected by ref. An empty value or "none"
// clears the tag.
func (s *Service) SetGroup(ctx context.Context, ref, group string) (domain.Account, error) {
	account, err := s.Resolve(ctx, ref)
	if err != nil {
		return domain.Account{}, err
	}

	group = strings.TrimSpace(group)
	if strings.EqualFold(group, "none") {
		group = ""
	}
	account.Group = group

	if err := s.repo.Save(ctx, account); err != nil {
		return domain.Account{}, fmt.Errorf("save account group: %w", err)
	}

	return account, nil
}

// List returns every stored account in file order. That order doubles as the
// display order, so it stays stable run to run.
func (s *Service) List(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

// Resolve selects one account by reference: an explicit "kind/id" pair, an
// account ID, or an alias. A ref matching several accounts is rejected so
// mutations never hit a record the user did not mean.
func (s *Service) Resolve(ctx context.Context, ref string) (domain.Account, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return domain.Account{}, fmt.Errorf("%w: empty account reference", domain.ErrInvalidInput)
	}

	accounts, err := s.repo.List(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list accounts: %w", err)
	}

	if kindRaw, id, ok := strings.Cut(ref, "/"); ok {
		if kind, kindErr := domain.ParseProviderKind(kindRaw); kindErr == nil {
			for _, account := range accounts {
				if account.Kind == kind && strings.EqualFold(string(account.ID), id) {
					return account, nil
				}
			}

			return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrAccountNotFound, ref)
		}
	}

	var matches []domain.Account
	for _, account := range accounts {
		if account.MatchesRef(ref) {
			matches = append(matches, account)
		}
	}

	switch len(matches) {
	case 0:
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrAccountNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		keys := make([]string, 0, len(matches))
		for _, match := range matches {
			keys = append(keys, match.Key().String())
		}

		return domain.Account{}, fmt.Errorf("%w: %q matches %s; use provider/id", domain.ErrInvalidInput, ref, strings.Join(keys, ", "))
	}
}

func (s *Service) refreshLock(key domain.AccountKey) *sync.Mutex {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	lock, ok := s.refreshLocks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.refreshLocks[key] = lock
	}

	return lock
}

func (s *Service) refreshLocked(ctx context.Context, account domain.Account, cred domain.Credential) (domain.Credential, error) {
	unit, err := s.units.Unit(account.Kind)
	if err != nil {
		return domain.Credential{}, err
	}

	refreshed, err := unit.Refresh(ctx, cred)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("refresh %s credential: %w", account.Kind, err)
	}

	if err := s.storeCredential(ctx, account, refreshed); err != nil {
		return domain.Credential{}, err
	}

	return refreshed, nil
}

func (s *Service) storeCredential(ctx context.Context, account domain.Account, cred domain.Credential) error {
	encoded, err := encodeCredential(cred)
	if err != nil {
		return err
	}

	ref := secretRefFor(account)
	if err := s.secrets.Put(ctx, ref, encoded); err != nil {
		return fmt.Errorf("store credential bundle: %w", err)
	}

	// Re-read before saving so metadata edits made since our snapshot
	// survive the refresh.
	stored, err := s.repo.Get(ctx, account.Key())
	if err != nil {
		return fmt.Errorf("reload account after refresh: %w", err)
	}
	stored.SecretRef = ref
	stored.LastRefreshedAt = s.clock.Now()

	if err := s.repo.Save(ctx, stored); err != nil {
		return fmt.Errorf("save refreshed account: %w", err)
	}

	return nil
}

func (s *Service) loadCredential(ctx context.Context, account domain.Account) (domain.Credential, error) {
	value, err := s.secrets.Get(ctx, secretRefFor(account))
	if err != nil {
		return domain.Credential{}, fmt.Errorf("load credential bundle for %s: %w", account.Key(), err)
	}

	return decodeCredential(value)
}

func (s *Service) removeAccount(ctx context.Context, account domain.Account) error {
	ref := secretRefFor(account)

	value, err := s.secrets.Get(ctx, ref)
	secretMissing := errors.Is(err, domain.ErrSecretNotFound)
	if err != nil && !secretMissing {
		return fmt.Errorf("load credential bundle: %w", err)
	}

	if !secretMissing {
		if err := s.secrets.Delete(ctx, ref); err != nil {
			return fmt.Errorf("delete credential bundle: %w", err)
		}
	}

	if err := s.repo.Delete(ctx, account.Key()); err != nil {
		if !secretMissing {
			if restoreErr := s.secrets.Put(ctx, ref, value); restoreErr != nil {
				return fmt.Errorf("delete account and restore credential bundle: %w", errors.Join(err, restoreErr))
			}
		}

		return fmt.Errorf("delete account: %w", err)
	}

	return nil
}

func (s *Service) checkAliasFree(ctx context.Context, key domain.AccountKey, alias string) error {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	for _, other := range accounts {
		if other.Key() == key {
			continue
		}
		if strings.EqualFold(other.Alias, alias) || strings.EqualFold(string(other.ID), alias) {
			return fmt.Errorf("%w: alias %q already identifies %s", domain.ErrInvalidInput, alias, other.Key())
		}
	}

	return nil
}

func secretRefFor(account domain.Account) string {
	if account.SecretRef != "" {
		return account.SecretRef
	}

	return account.Key().String()
}

func encodeCredential(cred domain.Credential) (string, error) {
	encoded, err := json.Marshal(cred)
	if err != nil {
		return "", fmt.Errorf("encode credential bundle: %w", err)
	}

	return string(encoded), nil
}

func decodeCredential(value string) (domain.Credential, error) {
	var cred domain.Credential
	if err := json.Unmarshal([]byte(value), &cred); err != nil {
		return domain.Credential{}, fmt.Errorf("%w: decode credential bundle: %w", domain.ErrStoreCorrupt, err)
	}

	return cred, nil
}
