package domain

import (
	"fmt"
	"time"
)

// QuotaFact is what one provider fetch reports for one meter, before
// normalization. Fraction is the consumed share when the provider states one
// directly; otherwise Used/Total carry the raw pair and the fraction is
// derived later.
type QuotaFact struct {
	Source   string
	Label    string
	Used     *float64
	Total    *float64
	Fraction *float64
	ResetAt  *time.Time
	Detail   string
}

type VisibilityTier string

const (
	TierPrimary  VisibilityTier = "primary"
	TierFallback VisibilityTier = "fallback"
	TierHidden   VisibilityTier = "hidden"
)

// QuotaItem is the canonical, render-ready shape. Fraction is the consumed
// share clamped to [0,1], nil for balance-only meters with no ceiling.
type QuotaItem struct {
	Account  AccountRef
	Source   string
	Label    string
	Fraction *float64
	Used     *float64
	Total    *float64
	ResetAt  *time.Time
	Detail   string

	Priority  int
	Color     string
	Indicator string
	Tier      VisibilityTier
	Visible   bool
}

// RemainingPercent is 100*(1-Fraction), nil for balance-only items.
func (i QuotaItem) RemainingPercent() *float64 {
	if i.Fraction == nil {
		return nil
	}

	pct := (1 - *i.Fraction) * 100
	return &pct
}

// ClampFraction bounds a consumed fraction to [0,1]. Overconsumption past the
// ceiling reads as fully used, never more.
func ClampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ConsumedFraction derives a clamped fraction from a used/total pair. A nil
// result means balance-only: no ceiling to consume against.
func ConsumedFraction(used, total *float64) *float64 {
	if used == nil || total == nil || *total <= 0 {
		return nil
	}

	f := ClampFraction(*used / *total)
	return &f
}

func Float(v float64) *float64 {
	return &v
}

func FormatMoney(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
