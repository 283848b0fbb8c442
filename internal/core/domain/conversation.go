package domain

import "time"

// ConversationEntry is one prompt/response exchange in a chat session.
// Entries are append-only and queried in chronological order.
type ConversationEntry struct {
	// SessionID groups entries belonging to one conversation.
	SessionID string

	// Prompt is the user's question.
	Prompt string

	// Response is the generated answer.
	Response string

	// Timestamp is when the exchange was recorded.
	Timestamp time.Time
}
