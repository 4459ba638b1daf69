package health

import "context"

// Report aggregates individual component check outcomes.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs component health checks.
type Service struct {
	db        DBPinger
	index     IndexProber
	embedding EmbeddingChecker
}

// New creates a Service. index and embedding may be nil when the component
// is not wired, their checks are then omitted from the report.
func New(db DBPinger, index IndexProber, embedding EmbeddingChecker) *Service {
	return &Service{db: db, index: index, embedding: embedding}
}

// Check probes every wired component. The index check doubles as the
// readiness signal: without a courses index retrieval cannot serve.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{
		"database": resultOf(s.db.Ping(ctx) == nil),
	}

	if s.index != nil {
		ready, err := s.index.Ready(ctx)
		checks["index"] = resultOf(err == nil && ready)
	}
	if s.embedding != nil {
		checks["embedding"] = resultOf(s.embedding.HealthCheck(ctx) == nil)
	}

	status := Healthy
	for _, res := range checks {
		if res == CheckError {
			status = Degraded
			break
		}
	}
	return Report{Status: status, Checks: checks}
}

func resultOf(ok bool) CheckResult {
	if ok {
		return CheckOK
	}
	return CheckError
}
