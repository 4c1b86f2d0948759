package domain

import "time"

// AliasesVersion is the current alias table schema version.
const AliasesVersion = 1

// AliasRow maps one normalized alias onto a canonical entity.
type AliasRow struct {
	Alias       string `json:"alias" yaml:"alias"`
	Canonical   string `json:"canonical" yaml:"canonical"`
	DisplayName string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
}

// EntityAliases is the user-maintained alias table of a space.
// Alias and Canonical are stored normalized and never equal.
type EntityAliases struct {
	Version      int        `json:"version"`
	UpdatedAtISO string     `json:"updatedAtISO"`
	Aliases      []AliasRow `json:"aliases"`
}

// NewEntityAliases returns an empty alias table.
func NewEntityAliases(now time.Time) *EntityAliases {
	return &EntityAliases{
		Version:      AliasesVersion,
		UpdatedAtISO: FormatTime(now),
		Aliases:      []AliasRow{},
	}
}
