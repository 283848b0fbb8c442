package driving

import (
	"context"

	"github.com/embedx-labs/embedx-cli/internal/core/domain"
)

// Ingestor drives the document ingestion pipeline.
type Ingestor interface {
	// IngestFile runs one file through extract -> dedup -> chunk -> embed
	// -> persist and returns its terminal outcome. Only storage and index
	// integrity failures are returned as errors; per-document failures are
	// reported in the outcome.
	IngestFile(ctx context.Context, path string) (domain.IngestOutcome, error)

	// IngestDir processes every regular file in a directory, skipping
	// subdirectories and unsupported extensions. Files are processed
	// independently: one file's failure never aborts the batch.
	IngestDir(ctx context.Context, dir string) ([]domain.IngestOutcome, error)
}
