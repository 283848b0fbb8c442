package domain

// IngestState is the terminal state of a single file's ingestion.
type IngestState int

const (
	// IngestProcessed indicates the document's vectors were stored and
	// its metadata marked processed.
	IngestProcessed IngestState = iota

	// IngestSkipped indicates the content hash was already processed and
	// the file was deduplicated without re-embedding.
	IngestSkipped

	// IngestFailed indicates extraction, embedding or persistence failed.
	// The failure is isolated to this file during batch ingestion.
	IngestFailed
)

// String returns a human-readable state name.
func (s IngestState) String() string {
	switch s {
	case IngestProcessed:
		return "processed"
	case IngestSkipped:
		return "skipped"
	case IngestFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IngestOutcome records the result of ingesting one file. Batch ingestion
// collects one outcome per file and never aborts on a single failure.
type IngestOutcome struct {
	// Path is the ingested file.
	Path string

	// DocumentID is the content-hash id, empty when extraction failed.
	DocumentID string

	// State is the terminal ingestion state.
	State IngestState

	// Chunks is the number of vectors stored (zero unless processed).
	Chunks int

	// Err is the failure cause when State is IngestFailed.
	Err error
}
