package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockProber struct {
	ready bool
	err   error
}

func (m *mockProber) Ready(_ context.Context) (bool, error) { return m.ready, m.err }

type mockChecker struct{ err error }

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockProber{ready: true}, &mockChecker{})

	report := svc.Check(context.Background())
	if report.Status != Healthy {
		t.Fatalf("expected ok, got %s", report.Status)
	}
	for name, res := range report.Checks {
		if res != CheckOK {
			t.Errorf("check %s = %s", name, res)
		}
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("refused")}, &mockProber{ready: true}, &mockChecker{})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if report.Checks["database"] != CheckError {
		t.Errorf("database check = %s", report.Checks["database"])
	}
}

func TestCheck_MissingIndexDegrades(t *testing.T) {
	svc := New(&mockPinger{}, &mockProber{ready: false}, nil)

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if report.Checks["index"] != CheckError {
		t.Errorf("index check = %s", report.Checks["index"])
	}
	if _, ok := report.Checks["embedding"]; ok {
		t.Error("nil embedding checker must not report")
	}
}

func TestCheck_EmbeddingDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockProber{ready: true}, &mockChecker{err: errors.New("502")})

	report := svc.Check(context.Background())
	if report.Status != Degraded {
		t.Fatalf("expected degraded, got %s", report.Status)
	}
	if report.Checks["embedding"] != CheckError {
		t.Errorf("embedding check = %s", report.Checks["embedding"])
	}
}
