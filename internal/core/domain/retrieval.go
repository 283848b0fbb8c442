package domain

// RetrievedDocument is one ranked retrieval result: the metadata of a
// document whose chunk vector was near the query vector.
type RetrievedDocument struct {
	// Document is the metadata row for the matched document.
	Document Document

	// Distance is the squared Euclidean distance of the best-ranked chunk
	// that mapped to this document. Lower is closer.
	Distance float32

	// Rank is the 1-based position in the result ordering.
	Rank int
}

// RetrieveOptions configures a retrieval call.
type RetrieveOptions struct {
	// TopK is the number of nearest vectors to consider. Zero or negative
	// uses the configured default.
	TopK int
}
