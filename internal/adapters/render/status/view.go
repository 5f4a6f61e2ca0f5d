package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/limitwatch/internal/application"
	"github.com/bnema/limitwatch/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth              = 10
	defaultAlertThreshold = 80
)

type RenderOptions struct {
	Now time.Time
	// AlertThreshold is the used percentage above which a quota renders
	// red. Zero falls back to the default.
	AlertThreshold float64
}

func (o RenderOptions) threshold() float64 {
	if o.AlertThreshold <= 0 {
		return defaultAlertThreshold
	}

	return o.AlertThreshold
}

// accountSection is one account's block: its visible items in final order
// plus a count of the ones display filters suppressed.
type accountSection struct {
	ref       domain.AccountRef
	color     string
	indicator string
	items     []domain.QuotaItem
	hidden    int
}

func renderView(items []domain.QuotaItem, failures []application.AccountFailure, opts RenderOptions, s styles) string {
	sections := groupByAccount(items)

	lines := []string{
		s.title.Render("Usage Quotas"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(sections)+len(failures))),
	}

	if len(sections) == 0 && len(failures) == 0 {
		lines = append(lines, s.empty.Render("No quota data available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, section := range sections {
		lines = append(lines, s.section.Render(renderSection(section, opts, s)))
	}
	if len(failures) > 0 {
		lines = append(lines, s.section.Render(renderFailures(failures, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// groupByAccount splits the normalized item stream into per-account blocks.
// Items arrive sorted with each account's run contiguous, so one linear
// pass preserves the final ordering.
func groupByAccount(items []domain.QuotaItem) []accountSection {
	var sections []accountSection
	for _, item := range items {
		last := len(sections) - 1
		if last < 0 || sections[last].ref.Kind != item.Account.Kind || sections[last].ref.ID != item.Account.ID {
			sections = append(sections, accountSection{
				ref:       item.Account,
				color:     item.Color,
				indicator: item.Indicator,
			})
			last++
		}

		if !item.Visible {
			sections[last].hidden++
			continue
		}
		sections[last].items = append(sections[last].items, item)
	}

	return sections
}

func renderSection(section accountSection, opts RenderOptions, s styles) string {
	parts := []string{renderAccountHeader(section, s)}

	labelWidth := 0
	for _, item := range section.items {
		if len(item.Label) > labelWidth {
			labelWidth = len(item.Label)
		}
	}

	for _, item := range section.items {
		parts = append(parts, renderItemLine(item, labelWidth, opts, s))
	}
	if len(section.items) == 0 {
		parts = append(parts, s.empty.Render("  hidden quotas only (use --show-all)"))
	} else if section.hidden > 0 {
		parts = append(parts, s.empty.Render(fmt.Sprintf("  +%d hidden", section.hidden)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderAccountHeader(section accountSection, s styles) string {
	indicator := lipgloss.NewStyle().
		Bold(true).
		Foreground(providerColor(section.color)).
		Render(section.indicator)

	header := lipgloss.JoinHorizontal(
		lipgloss.Top,
		indicator,
		" ",
		s.account.Render(section.ref.DisplayName()),
	)
	if group := strings.TrimSpace(section.ref.Group); group != "" {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", s.group.Render("["+group+"]"))
	}

	return header
}

func renderItemLine(item domain.QuotaItem, labelWidth int, opts RenderOptions, s styles) string {
	parts := []string{s.limitKey.Render(fmt.Sprintf("  %-*s", labelWidth, item.Label))}

	if remaining := item.RemainingPercent(); remaining != nil {
		used := 100 - *remaining
		style := s.usageStyle(used, opts.threshold())
		parts = append(parts,
			" ",
			renderProgressBar(*remaining, barWidth, style, s),
			" ",
			style.Render(fmt.Sprintf("%3.0f%% left", *remaining)),
		)
	}
	if item.ResetAt != nil {
		parts = append(parts, "  ", s.limitMeta.Render(formatCountdown(*item.ResetAt, opts.Now)))
	}
	if item.Detail != "" {
		parts = append(parts, "  ", s.detail.Render(item.Detail))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func renderFailures(failures []application.AccountFailure, s styles) string {
	lines := make([]string, 0, len(failures))
	for _, failure := range failures {
		lines = append(lines, s.warning.Render(fmt.Sprintf(
			"%s %s failed: %s",
			failure.Account.Kind,
			failure.Account.DisplayName(),
			failure.Err,
		)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderProgressBar fills with the remaining share, so a draining quota
// visibly empties left to right.
func renderProgressBar(remainingPercent float64, width int, fillStyle lipgloss.Style, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(remainingPercent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillStyle.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatCountdown(resetAt, now time.Time) string {
	if now.IsZero() {
		return "resets " + formatClock(resetAt, now)
	}
	if !resetAt.After(now) {
		return "reset due"
	}

	return fmt.Sprintf("resets in %s (%s)", shortDuration(resetAt.Sub(now)), formatClock(resetAt, now))
}

func formatClock(resetAt, now time.Time) string {
	if resetAt.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return resetAt.Format(time.RFC3339)
	}

	yearA, monthA, dayA := now.Date()
	yearB, monthB, dayB := resetAt.Date()
	if yearA == yearB && monthA == monthB && dayA == dayB {
		return resetAt.Format("15:04")
	}

	return resetAt.Format("15:04 on 02 Jan")
}

func shortDuration(d time.Duration) string {
	if d < time.Minute {
		return "1m"
	}

	d = d.Round(time.Minute)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0 && hours > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
