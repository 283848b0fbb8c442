package driven

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// DocumentStore persists document metadata with exactly-once semantics
// keyed by content-hash id. Backed by SQLite.
type DocumentStore interface {
	// IsProcessed reports whether a document id has already been stored.
	IsProcessed(ctx context.Context, documentID string) (bool, error)

	// MarkProcessed inserts the document record iff not already present.
	// Calling twice with the same id has no additional effect and does
	// not error.
	MarkProcessed(ctx context.Context, documentID, title, sourcePath string) error

	// ListDocuments returns one entry per logical document, ordered by id.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Delete removes the metadata row only. Vectors in the index are not
	// touched; the retrieval path tolerates the resulting dangling slots.
	Delete(ctx context.Context, documentID string) error

	// LookupMetadata returns metadata for a batch of ids. Ids not found
	// are silently omitted, not an error.
	LookupMetadata(ctx context.Context, documentIDs []string) ([]domain.Document, error)

	// Count returns the number of document records. Used to distinguish
	// "no matches" from "nothing indexed yet".
	Count(ctx context.Context) (int, error)

	// Clear removes all document records.
	Clear(ctx context.Context) error
}

// ConversationStore persists the append-only chat log.
type ConversationStore interface {
	// Append records one prompt/response exchange for a session.
	Append(ctx context.Context, sessionID, prompt, response string) error

	// Recent returns up to limit entries for a session in chronological
	// order (oldest first within the returned window).
	Recent(ctx context.Context, sessionID string, limit int) ([]domain.ConversationEntry, error)

	// Clear removes all entries for a session.
	Clear(ctx context.Context, sessionID string) error
}
