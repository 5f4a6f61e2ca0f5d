package domain

import (
	"fmt"
	"strings"
)

type ProviderKind string

const (
	ProviderOpenAI        ProviderKind = "openai"
	ProviderOpenRouter    ProviderKind = "openrouter"
	ProviderChutes        ProviderKind = "chutes"
	ProviderGoogle        ProviderKind = "google"
	ProviderGitHubCopilot ProviderKind = "github_copilot"
)

func AllProviderKinds() []ProviderKind {
	return []ProviderKind{
		ProviderOpenAI,
		ProviderOpenRouter,
		ProviderChutes,
		ProviderGoogle,
		ProviderGitHubCopilot,
	}
}

func ParseProviderKind(raw string) (ProviderKind, error) {
	kind := ProviderKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case ProviderOpenAI, ProviderOpenRouter, ProviderChutes, ProviderGoogle, ProviderGitHubCopilot:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, raw)
	}
}

func (k ProviderKind) Valid() bool {
	_, err := ParseProviderKind(string(k))
	return err == nil
}

// ProviderMetadata is the static display contract a provider publishes once;
// the normalization engine never asks the provider anything else.
type ProviderMetadata struct {
	Kind         ProviderKind
	DisplayName  string
	Color        string
	Indicator    string
	SortPriority int

	// Label patterns drive visibility tiers. Matching is case-insensitive
	// substring. Hidden wins over primary and fallback.
	PrimaryLabelPatterns  []string
	FallbackLabelPatterns []string
	HiddenLabelPatterns   []string
}

func (m ProviderMetadata) MatchesPrimary(label string) bool {
	return matchesAny(label, m.PrimaryLabelPatterns)
}

func (m ProviderMetadata) MatchesFallback(label string) bool {
	return matchesAny(label, m.FallbackLabelPatterns)
}

func (m ProviderMetadata) MatchesHidden(label string) bool {
	return matchesAny(label, m.HiddenLabelPatterns)
}

func matchesAny(label string, patterns []string) bool {
	lowered := strings.ToLower(label)
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(pattern)) {
			return true
		}
	}

	return false
}
