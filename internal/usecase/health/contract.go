package health

import "context"

// Status is the aggregated service health.
type Status string

const (
	// Healthy means every wired component passed its check.
	Healthy Status = "ok"
	// Degraded means at least one component failed.
	Degraded Status = "degraded"
)

// CheckResult is a single component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// IndexProber checks that the courses index exists.
type IndexProber interface {
	Ready(ctx context.Context) (bool, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
