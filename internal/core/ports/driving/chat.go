package driving

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// ChatService answers questions against the indexed documents and keeps
// a per-session conversation log.
type ChatService interface {
	// Ask retrieves the documents most relevant to the question, generates
	// a response over them and appends the exchange to the session log.
	Ask(ctx context.Context, sessionID, question string) (string, error)

	// History returns up to limit past exchanges in chronological order.
	History(ctx context.Context, sessionID string, limit int) ([]domain.ConversationEntry, error)

	// ClearHistory removes the session's log.
	ClearHistory(ctx context.Context, sessionID string) error
}
