package domain

import "errors"

var (
	// ErrStoreUnavailable signals that the vector index cannot be reached.
	// Non-fatal for a request (degrade to empty result), fatal-by-configuration
	// at startup.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrEmbeddingUnavailable signals an embedding provider failure.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrCatalogUpstream signals a failed call to the course catalog API.
	ErrCatalogUpstream = errors.New("catalog upstream error")
	// ErrIngestRunning signals that an ingestion run is already active.
	ErrIngestRunning = errors.New("ingestion already running")
	// ErrIndexNotReady signals that the courses index has not been created yet.
	ErrIndexNotReady = errors.New("courses index not ready")
)
