package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	Provider        string   `toml:"provider"`
	ID              string   `toml:"id"`
	Alias           string   `toml:"alias,omitempty"`
	Group           string   `toml:"group,omitempty"`
	SecretRef       string   `toml:"secret_ref"`
	Services        []string `toml:"services,omitempty"`
	LastRefreshedAt string   `toml:"last_refreshed_at,omitempty"`
}
