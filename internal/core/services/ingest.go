package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driven"
	"github.com/embedx-labs/embedx-cli/internal/core/ports/driving"
	"github.com/embedx-labs/embedx-cli/internal/extractors"
	"github.com/embedx-labs/embedx-cli/internal/logger"
)

// Ensure IngestionPipeline implements the interface.
var _ driving.Ingestor = (*IngestionPipeline)(nil)

// IngestionPipeline orchestrates extract -> dedup -> chunk -> embed ->
// persist for documents. Extraction and chunking may run unserialized,
// but the commit sequence {insert vectors -> record id map -> persist
// id map -> mark processed} takes a single mutex: slot assignment is
// append-only and must match insertion order exactly for the id mapping
// to stay correct.
type IngestionPipeline struct {
	registry driven.ExtractorRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	idMap    driven.IDMap
	docStore driven.DocumentStore

	// commitMu serializes vector/id-map/metadata mutation across
	// concurrently ingested documents.
	commitMu sync.Mutex
}

// NewIngestionPipeline creates a new ingestion pipeline.
func NewIngestionPipeline(
	registry driven.ExtractorRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	idMap driven.IDMap,
	docStore driven.DocumentStore,
) *IngestionPipeline {
	return &IngestionPipeline{
		registry: registry,
		chunker:  chunker,
		embedder: embedder,
		index:    index,
		idMap:    idMap,
		docStore: docStore,
	}
}

// IngestFile runs one file through the full pipeline.
func (p *IngestionPipeline) IngestFile(ctx context.Context, path string) (domain.IngestOutcome, error) {
	text, err := p.registry.Extract(ctx, path)
	if err != nil {
		return domain.IngestOutcome{Path: path, State: domain.IngestFailed, Err: err}, nil
	}
	return p.ingestExtracted(ctx, path, text)
}

// IngestDir processes every regular file in a directory. Subdirectories
// and unsupported extensions are skipped. Text extraction fans out on a
// bounded worker pool (the extractors share no mutable state); the commit
// sequence still serializes on the pipeline mutex. One file's failure is
// recorded in its outcome and never aborts the batch.
func (p *IngestionPipeline) IngestDir(ctx context.Context, dir string) ([]domain.IngestOutcome, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !p.registry.Supports(path) {
			logger.Debug("Skipping unsupported file: %s", path)
			continue
		}
		paths = append(paths, path)
	}

	logger.Section("Ingestion")
	logger.Info("Ingesting %d files from %s", len(paths), dir)

	extracted := p.extractAll(ctx, paths)

	outcomes := make([]domain.IngestOutcome, 0, len(extracted))
	for _, e := range extracted {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}

		if e.err != nil {
			logger.Warn("Extraction failed for %s: %v", e.path, e.err)
			outcomes = append(outcomes, domain.IngestOutcome{
				Path:  e.path,
				State: domain.IngestFailed,
				Err:   e.err,
			})
			continue
		}

		outcome, err := p.ingestExtracted(ctx, e.path, e.text)
		if err != nil {
			// Storage or index integrity failure: this affects every
			// subsequent file, so the batch stops here.
			return outcomes, err
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// extractedFile carries a parallel extraction result.
type extractedFile struct {
	path string
	text string
	err  error
}

// extractAll extracts text from all paths on a worker pool bounded by
// file count and available parallelism. Results come back in path order.
func (p *IngestionPipeline) extractAll(ctx context.Context, paths []string) []extractedFile {
	workers := runtime.NumCPU()
	if workers > len(paths) {
		workers = len(paths)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]extractedFile, len(paths))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				text, err := p.registry.Extract(ctx, paths[i])
				results[i] = extractedFile{path: paths[i], text: text, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })
	return results
}

// ingestExtracted runs the pipeline after extraction: hash, dedup,
// chunk, embed, validate, commit.
func (p *IngestionPipeline) ingestExtracted(ctx context.Context, path, text string) (domain.IngestOutcome, error) {
	if text == "" {
		// Empty content never reaches the embedder.
		return domain.IngestOutcome{
			Path:  path,
			State: domain.IngestFailed,
			Err:   fmt.Errorf("%w: %s: empty content", domain.ErrExtractionFailed, path),
		}, nil
	}

	documentID := domain.ContentID(text)

	// Dedup short-circuit: re-ingesting byte-identical content is a
	// no-op. This is the single most important cost control in the
	// pipeline; everything below it costs embedding inference.
	processed, err := p.docStore.IsProcessed(ctx, documentID)
	if err != nil {
		return domain.IngestOutcome{}, err
	}
	if processed {
		logger.Debug("Skipping duplicate content: %s (%s)", path, documentID)
		return domain.IngestOutcome{
			Path:       path,
			DocumentID: documentID,
			State:      domain.IngestSkipped,
		}, nil
	}

	chunks, err := p.chunker.Split(ctx, documentID, text)
	if err != nil {
		return domain.IngestOutcome{Path: path, DocumentID: documentID, State: domain.IngestFailed, Err: err}, nil
	}
	if len(chunks) == 0 {
		return domain.IngestOutcome{
			Path:       path,
			DocumentID: documentID,
			State:      domain.IngestFailed,
			Err:        fmt.Errorf("%w: %s: no chunks produced", domain.ErrExtractionFailed, path),
		}, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	// One batched call: embedding backends are internally vectorized,
	// so this beats per-chunk fan-out.
	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.IngestOutcome{Path: path, DocumentID: documentID, State: domain.IngestFailed, Err: err}, nil
	}

	if err := validateEmbeddings(embeddings, len(chunks), p.index.Dimensions()); err != nil {
		logger.Warn("Rejecting embeddings for %s: %v", path, err)
		return domain.IngestOutcome{Path: path, DocumentID: documentID, State: domain.IngestFailed, Err: err}, nil
	}

	if err := p.commit(ctx, documentID, path, embeddings); err != nil {
		return domain.IngestOutcome{}, err
	}

	logger.Info("Processed %s: %d chunks (%s)", path, len(chunks), documentID)
	return domain.IngestOutcome{
		Path:       path,
		DocumentID: documentID,
		State:      domain.IngestProcessed,
		Chunks:     len(chunks),
	}, nil
}

// commit persists one document's vectors and metadata under the pipeline
// mutex. Ordering is load-bearing: vectors are inserted and both
// snapshots persisted before the metadata row appears, so a crash at any
// point leaves the document unprocessed and safe to retry — never
// falsely marked complete.
func (p *IngestionPipeline) commit(ctx context.Context, documentID, path string, embeddings [][]float32) error {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	firstSlot, err := p.index.Insert(ctx, embeddings)
	if err != nil {
		return err
	}

	for i := range embeddings {
		p.idMap.Record(firstSlot+i, documentID)
	}

	if err := p.index.Persist(); err != nil {
		return fmt.Errorf("persisting vector index: %w", err)
	}
	// The id map is saved strictly after the index mutation to keep the
	// crash window between the two snapshots minimal.
	if err := p.idMap.Persist(); err != nil {
		return fmt.Errorf("persisting id map: %w", err)
	}

	if err := p.docStore.MarkProcessed(ctx, documentID, extractors.Title(path), path); err != nil {
		return err
	}
	return nil
}

// validateEmbeddings rejects malformed batches before anything touches
// the index: wrong row count, wrong width, NaN values, or an all-zero
// vector all fail the document rather than being silently stored.
func validateEmbeddings(embeddings [][]float32, chunkCount, dimension int) error {
	if len(embeddings) != chunkCount {
		return fmt.Errorf("%w: got %d embeddings for %d chunks",
			domain.ErrInvalidEmbedding, len(embeddings), chunkCount)
	}

	for i, row := range embeddings {
		if len(row) != dimension {
			return fmt.Errorf("%w: row %d has width %d, expected %d",
				domain.ErrDimensionMismatch, i, len(row), dimension)
		}

		allZero := true
		for _, v := range row {
			if math.IsNaN(float64(v)) {
				return fmt.Errorf("%w: row %d contains NaN", domain.ErrInvalidEmbedding, i)
			}
			if v != 0 {
				allZero = false
			}
		}
		if allZero {
			return fmt.Errorf("%w: row %d is all-zero", domain.ErrInvalidEmbedding, i)
		}
	}
	return nil
}
