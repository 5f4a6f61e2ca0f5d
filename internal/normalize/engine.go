// Package normalize converts raw provider quota facts into the canonical,
// ordered item list the render and export layers consume. It is pure: no
// clocks, no network, no stored state.
package normalize

import (
	"sort"

	"github.com/bnema/limitwatch/internal/domain"
)

// AccountFacts carries one account's raw facts together with the static
// metadata of the provider unit that produced them. The slice order passed
// to Items is the account input order and is the second ordering key of
// the result, so callers must hand accounts over in their filtered order.
type AccountFacts struct {
	Account  domain.AccountRef
	Metadata domain.ProviderMetadata
	Facts    []domain.QuotaFact
}

// Options tunes visibility promotion. ShowAll marks every item visible
// while leaving the computed tier intact, so renderers can still dim
// items that would normally stay hidden.
type Options struct {
	ShowAll bool
}

type sourceKey struct {
	kind   domain.ProviderKind
	id     domain.AccountID
	source string
}

type rankedItem struct {
	item         domain.QuotaItem
	accountOrder int
}

// Items maps facts to quota items, assigns visibility tiers, and returns
// the full item list in its final deterministic order. Hidden items are
// returned too, flagged not visible, so structured outputs can opt in via
// Options.ShowAll without a second pass.
//
// Tier rules, per item label against the provider's patterns:
//   - a hidden pattern match always wins, even over a primary match
//   - otherwise a primary pattern match makes the item primary
//   - otherwise a fallback pattern match makes the item fallback, but only
//     when the same account and source produced no primary item; with a
//     primary present the fallback variant stays hidden
//   - no match at all means hidden
//
// Ordering: provider sort priority ascending, then account input order,
// then label, then source.
func Items(inputs []AccountFacts, opts Options) []domain.QuotaItem {
	entries := make([]rankedItem, 0, factCount(inputs))
	hasPrimary := make(map[sourceKey]bool)
	var fallbacks []int

	for order, input := range inputs {
		for _, fact := range input.Facts {
			item := newItem(input, fact)
			switch {
			case input.Metadata.MatchesHidden(fact.Label):
				item.Tier = domain.TierHidden
			case input.Metadata.MatchesPrimary(fact.Label):
				item.Tier = domain.TierPrimary
				hasPrimary[keyFor(input.Account, fact.Source)] = true
			case input.Metadata.MatchesFallback(fact.Label):
				// Resolved below once primary presence is known.
				fallbacks = append(fallbacks, len(entries))
			default:
				item.Tier = domain.TierHidden
			}
			entries = append(entries, rankedItem{item: item, accountOrder: order})
		}
	}

	for _, i := range fallbacks {
		entry := &entries[i]
		if hasPrimary[keyFor(entry.item.Account, entry.item.Source)] {
			entry.item.Tier = domain.TierHidden
		} else {
			entry.item.Tier = domain.TierFallback
		}
	}

	for i := range entries {
		entry := &entries[i]
		entry.item.Visible = opts.ShowAll || entry.item.Tier != domain.TierHidden
	}

	sort.Slice(entries, func(i, j int) bool {
		left, right := entries[i], entries[j]
		if left.item.Priority != right.item.Priority {
			return left.item.Priority < right.item.Priority
		}
		if left.accountOrder != right.accountOrder {
			return left.accountOrder < right.accountOrder
		}
		if left.item.Label != right.item.Label {
			return left.item.Label < right.item.Label
		}
		return left.item.Source < right.item.Source
	})

	items := make([]domain.QuotaItem, len(entries))
	for i, entry := range entries {
		items[i] = entry.item
	}

	return items
}

// Visible filters an already-normalized item list down to the visible
// subset, preserving order.
func Visible(items []domain.QuotaItem) []domain.QuotaItem {
	visible := make([]domain.QuotaItem, 0, len(items))
	for _, item := range items {
		if item.Visible {
			visible = append(visible, item)
		}
	}

	return visible
}

func newItem(input AccountFacts, fact domain.QuotaFact) domain.QuotaItem {
	fraction := fact.Fraction
	if fraction == nil {
		fraction = domain.ConsumedFraction(fact.Used, fact.Total)
	} else {
		clamped := domain.ClampFraction(*fraction)
		fraction = &clamped
	}

	return domain.QuotaItem{
		Account:   input.Account,
		Source:    fact.Source,
		Label:     fact.Label,
		Fraction:  fraction,
		Used:      fact.Used,
		Total:     fact.Total,
		ResetAt:   fact.ResetAt,
		Detail:    fact.Detail,
		Priority:  input.Metadata.SortPriority,
		Color:     input.Metadata.Color,
		Indicator: input.Metadata.Indicator,
	}
}

func keyFor(account domain.AccountRef, source string) sourceKey {
	return sourceKey{kind: account.Kind, id: account.ID, source: source}
}

func factCount(inputs []AccountFacts) int {
	total := 0
	for _, input := range inputs {
		total += len(input.Facts)
	}

	return total
}
