package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int            `toml:"version"`
	Records []recordSchema `toml:"records"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported records schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type recordSchema struct {
	ID           string `toml:"id"`
	Name         string `toml:"name"`
	Stage        string `toml:"stage"`
	BudgetCents  int64  `toml:"budget_cents"`
	Interest     string `toml:"interest,omitempty"`
	AssignedTo   string `toml:"assigned_to,omitempty"`
	LastContact  string `toml:"last_contact,omitempty"`
	NextFollowUp string `toml:"next_follow_up,omitempty"`
	ClosedAt     string `toml:"closed_at,omitempty"`
	Version      int64  `toml:"version"`
}
