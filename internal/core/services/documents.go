package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/distill/internal/core/domain"
	"github.com/custodia-labs/distill/internal/core/ports/driven"
	"github.com/custodia-labs/distill/internal/resilience"
)

// maxDocumentBytes bounds any single document read from the store.
const maxDocumentBytes = 8 << 20

// readInSpace fetches a document by id after checking that it lives
// directly inside the space. Ids supplied by callers are never trusted to
// stay within the space on their own.
func readInSpace(
	ctx context.Context, store driven.ObjectStore, spaceID, documentID string,
) ([]byte, *driven.ObjectMetadata, error) {
	meta, err := store.GetMetadata(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !meta.InParent(spaceID) || meta.Trashed {
		e := domain.InvalidRequest("document.read",
			fmt.Sprintf("document %s is not in space %s", documentID, spaceID), []string{documentID})
		e.Err = domain.ErrOutsideSpace
		return nil, nil, e
	}
	if meta.Size > maxDocumentBytes {
		return nil, nil, resilience.MapError(
			fmt.Errorf("document %s is %d bytes: %w", documentID, meta.Size, domain.ErrPayloadTooLarge), "document.read")
	}
	body, err := store.GetContent(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	return body, meta, nil
}

// findByName returns the most recently modified document in the space whose
// name is exactly name.
func findByName(ctx context.Context, store driven.ObjectStore, spaceID, name string) (*driven.ObjectMetadata, bool, error) {
	var best *driven.ObjectMetadata
	token := ""
	for {
		page, err := store.List(ctx, driven.ListQuery{ParentID: spaceID, NameContains: name}, token, 50)
		if err != nil {
			return nil, false, err
		}
		for i := range page.Items {
			item := page.Items[i]
			if item.Name != name || item.Trashed {
				continue
			}
			if best == nil || item.ModifiedTime.After(best.ModifiedTime) {
				best = &item
			}
		}
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}
	return best, best != nil, nil
}

// isSkippable reports whether a per-document failure should be isolated
// rather than failing the surrounding scan.
func isSkippable(err error) bool {
	return domain.IsParseError(err) ||
		resilience.IsNotFound(err) ||
		errors.Is(err, domain.ErrOutsideSpace) ||
		errors.Is(err, domain.ErrPayloadTooLarge)
}
