package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/normalize"
	"github.com/bnema/limitwatch/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultFetchTimeout bounds one whole fetch run.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultConcurrency caps in-flight provider calls across accounts.
	DefaultConcurrency = 16
)

// FetchOptions tunes one orchestrated run. Zero values fall back to the
// defaults above.
type FetchOptions struct {
	ShowAll     bool
	Timeout     time.Duration
	Concurrency int
}

// AccountFailure is one account's error summary for a run. Failures ride
// alongside the items so a report can show every account, quota bars or not.
type AccountFailure struct {
	Account domain.AccountRef
	Err     error
}

// Result is one completed run: normalized items in their final order plus
// the per-account failures, stamped with a run ID for history recording.
type Result struct {
	RunID     uuid.UUID
	FetchedAt time.Time
	Items     []domain.QuotaItem
	Failures  []AccountFailure
}

// Orchestrator fans fetches out across accounts and folds the raw facts
// through the normalization engine. One account failing never disturbs the
// others; results land at their account's input index so output order never
// depends on completion timing.
type Orchestrator struct {
	service *Service
	units   ports.UnitRegistry
	clock   ports.Clock
}

func NewOrchestrator(service *Service, units ports.UnitRegistry, clock ports.Clock) *Orchestrator {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Orchestrator{
		service: service,
		units:   units,
		clock:   clock,
	}
}

type accountFetch struct {
	facts    []domain.QuotaFact
	metadata domain.ProviderMetadata
	err      error
}

// FetchQuotas runs one fetch across the given accounts. The slice order is
// the account input order for the final item ordering, so callers pass the
// filtered set as listed.
func (o *Orchestrator) FetchQuotas(ctx context.Context, accounts []domain.Account, opts FetchOptions) (*Result, error) {
	if len(accounts) == 0 {
		return nil, domain.ErrNoAccounts
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]accountFetch, len(accounts))
	group, groupCtx := errgroup.WithContext(runCtx)
	group.SetLimit(concurrency)

	for i, account := range accounts {
		group.Go(func() error {
			results[i] = o.fetchAccount(groupCtx, account)
			// Failures stay in the slot; returning them would cancel
			// the siblings.
			return nil
		})
	}
	_ = group.Wait()

	inputs := make([]normalize.AccountFacts, 0, len(accounts))
	var failures []AccountFailure
	for i, account := range accounts {
		fetched := results[i]
		if fetched.err != nil {
			failures = append(failures, AccountFailure{Account: account.Ref(), Err: fetched.err})
			continue
		}
		inputs = append(inputs, normalize.AccountFacts{
			Account:  account.Ref(),
			Metadata: fetched.metadata,
			Facts:    fetched.facts,
		})
	}

	return &Result{
		RunID:     uuid.New(),
		FetchedAt: o.clock.Now(),
		Items:     normalize.Items(inputs, normalize.Options{ShowAll: opts.ShowAll}),
		Failures:  failures,
	}, nil
}

func (o *Orchestrator) fetchAccount(ctx context.Context, account domain.Account) accountFetch {
	unit, err := o.units.Unit(account.Kind)
	if err != nil {
		return accountFetch{err: err}
	}
	metadata := unit.Metadata()

	if err := ctx.Err(); err != nil {
		return accountFetch{metadata: metadata, err: deadlineError(err)}
	}

	cred, err := o.service.EnsureValid(ctx, account)
	if err != nil {
		return accountFetch{metadata: metadata, err: o.describeFailure(ctx, err)}
	}

	facts, err := unit.Fetch(ctx, account, cred)
	if errors.Is(err, domain.ErrUnauthorized) {
		refreshed, refreshErr := o.service.ForceRefresh(ctx, account, cred)
		if refreshErr != nil {
			return accountFetch{metadata: metadata, err: o.describeFailure(ctx, fmt.Errorf("refresh rejected credential: %w", refreshErr))}
		}
		facts, err = unit.Fetch(ctx, account, refreshed)
	}
	if err != nil {
		return accountFetch{metadata: metadata, err: o.describeFailure(ctx, err)}
	}

	return accountFetch{facts: facts, metadata: metadata}
}

// describeFailure folds run-deadline cancellations into the unreachable
// bucket; an account cut off mid-flight did not answer in time.
func (o *Orchestrator) describeFailure(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrUnreachable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}

	return err
}

func deadlineError(err error) error {
	return fmt.Errorf("%w: run cancelled before fetch started: %w", domain.ErrUnreachable, err)
}
