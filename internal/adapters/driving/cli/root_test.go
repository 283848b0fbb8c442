package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
)

// --- Mock services shared by the command tests ---

type mockIngestor struct {
	outcomes []domain.IngestOutcome
	err      error
}

func (m *mockIngestor) IngestFile(_ context.Context, path string) (domain.IngestOutcome, error) {
	if len(m.outcomes) > 0 {
		return m.outcomes[0], m.err
	}
	return domain.IngestOutcome{Path: path, State: domain.IngestProcessed}, m.err
}

func (m *mockIngestor) IngestDir(_ context.Context, _ string) ([]domain.IngestOutcome, error) {
	return m.outcomes, m.err
}

type mockRetriever struct {
	results []domain.RetrievedDocument
	err     error

	gotCtx context.Context
}

func (m *mockRetriever) Retrieve(ctx context.Context, _ string, _ domain.RetrieveOptions) ([]domain.RetrievedDocument, error) {
	m.gotCtx = ctx
	return m.results, m.err
}

type mockChat struct {
	response string
	history  []domain.ConversationEntry
	err      error

	askedSession string
	cleared      string
}

func (m *mockChat) Ask(_ context.Context, sessionID, _ string) (string, error) {
	m.askedSession = sessionID
	return m.response, m.err
}

func (m *mockChat) History(_ context.Context, _ string, _ int) ([]domain.ConversationEntry, error) {
	return m.history, m.err
}

func (m *mockChat) ClearHistory(_ context.Context, sessionID string) error {
	m.cleared = sessionID
	return m.err
}

type mockDocumentStore struct {
	docs     []domain.Document
	deleted  []string
	cleared  bool
	countErr error
}

func (m *mockDocumentStore) IsProcessed(_ context.Context, _ string) (bool, error) { return false, nil }

func (m *mockDocumentStore) MarkProcessed(_ context.Context, _, _, _ string) error { return nil }

func (m *mockDocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockDocumentStore) Delete(_ context.Context, documentID string) error {
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *mockDocumentStore) LookupMetadata(_ context.Context, _ []string) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockDocumentStore) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.docs), nil
}

func (m *mockDocumentStore) Clear(_ context.Context) error {
	m.cleared = true
	m.docs = nil
	return nil
}

type mockVectorIndex struct {
	size  int
	reset bool
}

func (m *mockVectorIndex) Insert(_ context.Context, vectors [][]float32) (int, error) {
	first := m.size
	m.size += len(vectors)
	return first, nil
}

func (m *mockVectorIndex) Search(_ context.Context, _ []float32, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockVectorIndex) Size() int       { return m.size }
func (m *mockVectorIndex) Dimensions() int { return 4 }

func (m *mockVectorIndex) Reset(_ context.Context) error {
	m.size = 0
	m.reset = true
	return nil
}

func (m *mockVectorIndex) Persist() error { return nil }

type mockIDMap struct {
	size  int
	reset bool
}

func (m *mockIDMap) Record(_ int, _ string)        { m.size++ }
func (m *mockIDMap) SlotToID(_ int) (string, bool) { return "", false }
func (m *mockIDMap) IDToSlot(_ string) (int, bool) { return 0, false }
func (m *mockIDMap) Size() int                     { return m.size }

func (m *mockIDMap) Reset() error {
	m.size = 0
	m.reset = true
	return nil
}

func (m *mockIDMap) Persist() error { return nil }

// testServices bundles the mocks wired by setupTestServices.
type testServices struct {
	ingestor  *mockIngestor
	retriever *mockRetriever
	chat      *mockChat
	docs      *mockDocumentStore
	index     *mockVectorIndex
	idMap     *mockIDMap
}

// setupTestServices wires mocks into the package-level service vars and
// returns them with a cleanup restoring the previous wiring.
func setupTestServices() (*testServices, func()) {
	s := &testServices{
		ingestor:  &mockIngestor{},
		retriever: &mockRetriever{},
		chat:      &mockChat{},
		docs:      &mockDocumentStore{},
		index:     &mockVectorIndex{},
		idMap:     &mockIDMap{},
	}

	prevIngest := ingestService
	prevRetriever := retrieverService
	prevChat := chatService
	prevDocs := documentStore
	prevIndex := vectorIndex
	prevIDMap := slotIDMap
	prevEmbedder := embedderService

	Configure(Deps{
		Ingestor:      s.ingestor,
		Retriever:     s.retriever,
		Chat:          s.chat,
		DocumentStore: s.docs,
		VectorIndex:   s.index,
		IDMap:         s.idMap,
	})

	return s, func() {
		ingestService = prevIngest
		retrieverService = prevRetriever
		chatService = prevChat
		documentStore = prevDocs
		vectorIndex = prevIndex
		slotIDMap = prevIDMap
		embedderService = prevEmbedder
	}
}

// resetCommandContexts clears the context cobra caches on each command
// after an execution; a subcommand only inherits the context passed to
// ExecuteContext while its own cached context is nil.
func resetCommandContexts(c *cobra.Command) {
	c.SetContext(nil)
	for _, sub := range c.Commands() {
		resetCommandContexts(sub)
	}
}

// execute runs the root command with args and captures combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	defer resetCommandContexts(rootCmd)

	err := rootCmd.Execute()
	return buf.String(), err
}
