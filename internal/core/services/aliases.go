package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/core/ports/driving"
	"github.com/custodia-labs/distill/internal/logger"
	"github.com/custodia-labs/distill/internal/resilience"
)

// Ensure AliasService implements the interface.
var _ driving.AliasService = (*AliasService)(nil)

// AliasService manages the entity alias table of a space.
type AliasService struct {
	store driven.ObjectStore
	now   func() time.Time
}

// NewAliasService creates a new alias service over store.
func NewAliasService(store driven.ObjectStore) *AliasService {
	return &AliasService{store: store, now: time.Now}
}

// Load returns the space's alias table. A missing or unreadable table
// yields an empty one.
func (s *AliasService) Load(ctx context.Context, spaceID string) (*domain.EntityAliases, error) {
	table, _, err := s.load(ctx, spaceID)
	return table, err
}

func (s *AliasService) load(ctx context.Context, spaceID string) (*domain.EntityAliases, string, error) {
	meta, found, err := findByName(ctx, s.store, spaceID, domain.AliasesDocumentName)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return domain.NewEntityAliases(s.now()), "", nil
	}

	body, _, err := readInSpace(ctx, s.store, spaceID, meta.ID)
	if err != nil {
		if resilience.IsNotFound(err) {
			return domain.NewEntityAliases(s.now()), "", nil
		}
		return nil, "", err
	}
	table, err := domain.DecodeAliases(body)
	if err != nil {
		logger.Warn("Ignoring unreadable alias table %s: %v", meta.ID, err)
		return domain.NewEntityAliases(s.now()), meta.ID, nil
	}
	return table, meta.ID, nil
}

// Add normalizes rows, rejects those whose alias and canonical coincide,
// and merges the rest into the table without duplicates.
func (s *AliasService) Add(ctx context.Context, spaceID string, rows []domain.AliasRow) (*driving.AddAliasesResult, error) {
	table, docID, err := s.load(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	added, rejected := NormalizeAliasRows(table.Aliases, rows)
	res := &driving.AddAliasesResult{Added: added, Rejected: rejected, Table: table}
	if len(added) == 0 {
		return res, nil
	}

	table.Aliases = append(table.Aliases, added...)
	table.UpdatedAtISO = domain.FormatTime(s.now())
	body, err := domain.EncodeAliases(table)
	if err != nil {
		return nil, fmt.Errorf("encode aliases: %w", err)
	}

	if docID != "" {
		_, err = s.store.Update(ctx, docID, body)
	} else {
		_, err = s.store.Create(ctx, domain.AliasesDocumentName, spaceID, driven.MimeJSON, body)
	}
	if err != nil {
		return nil, fmt.Errorf("write aliases: %w", err)
	}

	logger.Debug("Alias table updated: %s", logger.KV("space", spaceID, "added", len(added), "rejected", len(rejected)))
	return res, nil
}

// Resolve canonicalizes one entity against the space's table.
func (s *AliasService) Resolve(ctx context.Context, spaceID string, entity domain.Entity) (domain.Entity, error) {
	table, err := s.Load(ctx, spaceID)
	if err != nil {
		return domain.Entity{}, err
	}
	out := Canonicalize([]domain.Entity{entity}, table)
	if len(out) == 0 {
		return domain.Entity{}, domain.InvalidRequest("aliases.resolve", "entity name is empty", []string{"name"})
	}
	return out[0], nil
}
