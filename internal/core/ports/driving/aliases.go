package driving

import (
	"context"

	"github.com/custodia-labs/distill/internal/core/domain"
)

// AddAliasesResult reports which rows were stored.
type AddAliasesResult struct {
	Added    []domain.AliasRow
	Rejected []domain.AliasRow
	Table    *domain.EntityAliases
}

// AliasService manages the alias table of a space.
type AliasService interface {
	// Load returns the space's alias table (empty if none exists).
	Load(ctx context.Context, spaceID string) (*domain.EntityAliases, error)

	// Add normalizes, validates and merges rows into the table.
	Add(ctx context.Context, spaceID string, rows []domain.AliasRow) (*AddAliasesResult, error)

	// Resolve canonicalizes one free-text entity name against the space's table.
	Resolve(ctx context.Context, spaceID string, entity domain.Entity) (domain.Entity, error)
}
