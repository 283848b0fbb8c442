// Package cli provides the cobra command tree for the embedx CLI.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driving"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by cmd/embedx before Execute. Commands check for nil
// so the tree stays testable without a full backend.
var (
	ingestService    driving.Ingestor
	retrieverService driving.Retriever
	chatService      driving.ChatService
	documentStore    driven.DocumentStore
	vectorIndex      driven.VectorIndex
	slotIDMap        driven.IDMap
	embedderService  driven.EmbeddingService
	defaultTopK      = 3
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "embedx",
	Short: "Embed and search local documents",
	Long: `embedx ingests text-bearing documents (PDF, TXT, Markdown), embeds
them into a local vector index and answers similarity queries against
the indexed content.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose pipeline logging")
}

// Deps holds the wired services for the command tree.
type Deps struct {
	Ingestor      driving.Ingestor
	Retriever     driving.Retriever
	Chat          driving.ChatService
	DocumentStore driven.DocumentStore
	VectorIndex   driven.VectorIndex
	IDMap         driven.IDMap
	Embedder      driven.EmbeddingService
	TopK          int
}

// Configure injects the services the commands run against.
func Configure(deps Deps) {
	ingestService = deps.Ingestor
	retrieverService = deps.Retriever
	chatService = deps.Chat
	documentStore = deps.DocumentStore
	vectorIndex = deps.VectorIndex
	slotIDMap = deps.IDMap
	embedderService = deps.Embedder
	if deps.TopK > 0 {
		defaultTopK = deps.TopK
	}
}

// pingEmbedder checks the embedding backend is reachable before a
// command commits to embedding work, so unreachable backends fail fast
// with a clear message instead of mid-pipeline.
func pingEmbedder(ctx context.Context) error {
	if embedderService == nil {
		return nil
	}
	if err := embedderService.Ping(ctx); err != nil {
		return fmt.Errorf("embedding service %q unreachable: %w", embedderService.ModelName(), err)
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
