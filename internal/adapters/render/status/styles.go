package status

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title       lipgloss.Style
	header      lipgloss.Style
	account     lipgloss.Style
	group       lipgloss.Style
	detail      lipgloss.Style
	warning     lipgloss.Style
	section     lipgloss.Style
	empty       lipgloss.Style
	limitKey    lipgloss.Style
	limitMeta   lipgloss.Style
	barBracket  lipgloss.Style
	barEmpty    lipgloss.Style
	percentLow  lipgloss.Style
	percentMid  lipgloss.Style
	percentHigh lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true),
		header:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		account:     lipgloss.NewStyle().Bold(true),
		group:       lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		detail:      lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		warning:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		section:     lipgloss.NewStyle().MarginTop(1),
		empty:       lipgloss.NewStyle().Faint(true),
		limitKey:    lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		limitMeta:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		barBracket:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barEmpty:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		percentLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		percentMid:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		percentHigh: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
	}
}

// usageStyle picks the percent color: comfortably low usage is green,
// anything past the alert threshold is red, the band between is yellow.
func (s styles) usageStyle(usedPercent, threshold float64) lipgloss.Style {
	switch {
	case usedPercent <= 20:
		return s.percentLow
	case usedPercent <= threshold:
		return s.percentMid
	default:
		return s.percentHigh
	}
}

// Provider metadata names its color; the terminal mapping lives here.
var providerColors = map[string]lipgloss.Color{
	"green":   lipgloss.Color("42"),
	"cyan":    lipgloss.Color("51"),
	"yellow":  lipgloss.Color("220"),
	"white":   lipgloss.Color("255"),
	"blue":    lipgloss.Color("39"),
	"magenta": lipgloss.Color("201"),
	"red":     lipgloss.Color("203"),
}

func providerColor(name string) lipgloss.Color {
	if color, ok := providerColors[strings.ToLower(strings.TrimSpace(name))]; ok {
		return color
	}

	return lipgloss.Color("255")
}
