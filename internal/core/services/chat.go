package services

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driving"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

// Ensure Chat implements the interface.
var _ driving.ChatService = (*Chat)(nil)

// DefaultSystemPrompt instructs the model to answer strictly from the
// indexed documents.
const DefaultSystemPrompt = "You are a knowledgeable assistant. Your primary function is to provide " +
	"information strictly based on the indexed documents. Keep answers concise and directly " +
	"related to the document content, and name the source document where possible. If a " +
	"question cannot be answered from the documents, say so explicitly."

// snippetLength bounds how much of each document is quoted in a prompt.
const snippetLength = 500

// noDocumentsResponse is returned when retrieval finds nothing relevant.
const noDocumentsResponse = "I could not find any relevant documents for that question."

// Chat answers questions against the indexed documents: it retrieves the
// most relevant documents, generates a per-document answer and joins
// them. Every exchange is appended to the session's conversation log.
type Chat struct {
	retriever     driving.Retriever
	registry      driven.ExtractorRegistry
	llm           driven.LLMService
	conversations driven.ConversationStore
	systemPrompt  string
}

// NewChat creates a new chat service. The retriever and conversation
// store are required; llm may be nil, in which case Ask fails with
// domain.ErrLLMUnavailable.
func NewChat(
	retriever driving.Retriever,
	registry driven.ExtractorRegistry,
	llm driven.LLMService,
	conversations driven.ConversationStore,
) *Chat {
	return &Chat{
		retriever:     retriever,
		registry:      registry,
		llm:           llm,
		conversations: conversations,
		systemPrompt:  DefaultSystemPrompt,
	}
}

// SetSystemPrompt overrides the default system prompt.
func (c *Chat) SetSystemPrompt(prompt string) {
	if prompt != "" {
		c.systemPrompt = prompt
	}
}

// Ask retrieves relevant documents, generates one answer per document on
// a bounded worker pool (generation calls share no mutable state), joins
// the answers in rank order and logs the exchange.
func (c *Chat) Ask(ctx context.Context, sessionID, question string) (string, error) {
	if c.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	docs, err := c.retriever.Retrieve(ctx, question, domain.RetrieveOptions{})
	if err != nil {
		return "", fmt.Errorf("retrieving documents: %w", err)
	}

	var response string
	if len(docs) == 0 {
		response = noDocumentsResponse
	} else {
		response, err = c.generateAll(ctx, question, docs)
		if err != nil {
			return "", err
		}
	}

	if err := c.conversations.Append(ctx, sessionID, question, response); err != nil {
		return "", fmt.Errorf("logging exchange: %w", err)
	}
	return response, nil
}

// generateAll fans generation out across the retrieved documents and
// joins the answers in rank order.
func (c *Chat) generateAll(ctx context.Context, question string, docs []domain.RetrievedDocument) (string, error) {
	workers := runtime.NumCPU()
	if workers > len(docs) {
		workers = len(docs)
	}

	answers := make([]string, len(docs))
	errs := make([]error, len(docs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				answers[i], errs[i] = c.generateOne(ctx, question, docs[i].Document)
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	parts := make([]string, 0, len(docs))
	for i, doc := range docs {
		if errs[i] != nil {
			// One document's generation failure degrades the answer,
			// it does not abort the whole response.
			logger.Warn("Generation failed for %s: %v", doc.Document.ID, errs[i])
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:\n%s", doc.Document.Title, answers[i]))
	}

	if len(parts) == 0 {
		if err := firstErr(errs); err != nil {
			return "", fmt.Errorf("generating response: %w", err)
		}
		return noDocumentsResponse, nil
	}

	return strings.Join(parts, "\n\n"), nil
}

// generateOne prompts the model with a snippet of one document.
func (c *Chat) generateOne(ctx context.Context, question string, doc domain.Document) (string, error) {
	content, err := c.registry.Extract(ctx, doc.SourcePath)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", doc.SourcePath, err)
	}

	snippet := content
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength]
	}

	prompt := fmt.Sprintf("Based on the following content from %q:\n\n%s\n\nAnswer the question: %s",
		doc.Title, snippet, question)

	return c.llm.Generate(ctx, prompt, driven.GenerateOptions{
		SystemPrompt: c.systemPrompt,
		MaxTokens:    300,
		Temperature:  0.7,
	})
}

// History returns up to limit past exchanges in chronological order.
func (c *Chat) History(ctx context.Context, sessionID string, limit int) ([]domain.ConversationEntry, error) {
	return c.conversations.Recent(ctx, sessionID, limit)
}

// ClearHistory removes the session's log.
func (c *Chat) ClearHistory(ctx context.Context, sessionID string) error {
	return c.conversations.Clear(ctx, sessionID)
}

func firstErr(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
