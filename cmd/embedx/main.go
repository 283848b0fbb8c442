// Command embedx ingests local documents into a flat vector index and
// answers similarity queries and questions against the indexed content.
package main

import (
	"fmt"
	"os"

	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/config/file"
	ollamaembed "github.com/embedx-labs/embedx-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/embedx-labs/embedx-cli/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/embedx-labs/embedx-cli/internal/adapters/driven/llm/ollama"
	openaillm "github.com/embedx-labs/embedx-cli/internal/adapters/driven/llm/openai"
	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/storage/sqlite"
	"github.com/embedx-labs/embedx-cli/internal/adapters/driven/vectorindex/flat"
	"github.com/embedx-labs/embedx-cli/internal/adapters/driving/cli"
	"github.com/embedx-labs/embedx-cli/internal/chunker"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/core/services"
	"github.com/embedx-labs/embedx-cli/internal/extractors"
	"github.com/embedx-labs/embedx-cli/internal/extractors/markdown"
	"github.com/embedx-labs/embedx-cli/internal/extractors/pdf"
	"github.com/embedx-labs/embedx-cli/internal/extractors/plaintext"
)

// passagePrefix is prepended to document chunks before embedding.
// Retrieval-tuned models score passages against queries better with an
// instruction prefix on the passage side only; queries embed bare.
const passagePrefix = "Represent this sentence for searching relevant passages: "

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "embedx: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := file.Load(os.Getenv("EMBEDX_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	store, err := sqlite.NewStore(cfg.MetadataStorePath)
	if err != nil {
		return fmt.Errorf("opening metadata store: %w", err)
	}
	defer store.Close()

	// Fails with ErrIndexCorrupted when the index and id-map snapshots
	// disagree in size; that needs manual intervention, not a silent
	// rebuild over inconsistent state.
	index, idMap, err := flat.Open(cfg.VectorIndexPath, cfg.IDMapPath(), cfg.EmbeddingDimension)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}

	ingestEmbedder, queryEmbedder, err := buildEmbedders(cfg)
	if err != nil {
		return err
	}
	// With the openai provider both are the same instance; Close is
	// idempotent so the double defer is harmless.
	defer ingestEmbedder.Close()
	defer queryEmbedder.Close()

	llm, err := buildLLM(cfg)
	if err != nil {
		return err
	}
	if llm != nil {
		defer llm.Close()
	}

	registry := extractors.NewRegistry(
		plaintext.New(),
		markdown.New(),
		pdf.New(),
	)
	chnk := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.Overlap()),
	)

	docs := store.DocumentStore()
	ingestor := services.NewIngestionPipeline(registry, chnk, ingestEmbedder, index, idMap, docs)
	retriever := services.NewRetrievalService(queryEmbedder, index, idMap, docs, cfg.TopK)
	chat := services.NewChat(retriever, registry, llm, store.ConversationStore())

	cli.Configure(cli.Deps{
		Ingestor:      ingestor,
		Retriever:     retriever,
		Chat:          chat,
		DocumentStore: docs,
		VectorIndex:   index,
		IDMap:         idMap,
		Embedder:      queryEmbedder,
		TopK:          cfg.TopK,
	})

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
	return nil
}

// buildEmbedders returns the embedding services for the ingestion and
// query paths. With the ollama provider the two differ: chunks carry the
// passage instruction prefix, queries do not. OpenAI models take no
// prefix, so one instance serves both paths.
func buildEmbedders(cfg *file.Config) (ingest, query driven.EmbeddingService, err error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		ingest = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			Model:        cfg.EmbeddingModel,
			Dimensions:   cfg.EmbeddingDimension,
			PromptPrefix: passagePrefix,
		})
		query = ollamaembed.NewEmbeddingService(ollamaembed.Config{
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimension,
		})
		return ingest, query, nil
	case "openai":
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimension,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configuring openai embeddings: %w", err)
		}
		return svc, svc, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.EmbeddingProvider)
	}
}

// buildLLM returns the response-generation backend, or nil when no
// provider is configured. Chat commands fail gracefully without one.
func buildLLM(cfg *file.Config) (driven.LLMService, error) {
	switch cfg.LLMProvider {
	case "":
		return nil, nil
	case "ollama":
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			Model: cfg.LLMModel,
		}), nil
	case "openai":
		svc, err := openaillm.NewLLMService(openaillm.Config{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.LLMModel,
		})
		if err != nil {
			return nil, fmt.Errorf("configuring openai llm: %w", err)
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
	}
}
