package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/courses/search" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}

		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Area != "backend" {
			t.Errorf("area = %q", req.Area)
		}

		json.NewEncoder(w).Encode([]Course{{ID: 42, Title: "Go"}})
	}))
	defer srv.Close()

	client := New(srv.URL, WithAPIKey("secret"))
	courses, err := client.Search(context.Background(), SearchRequest{Area: "backend"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != 42 {
		t.Errorf("unexpected courses: %v", courses)
	}
}

func TestReloadCatalog(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := New(srv.URL)
	if err := client.ReloadCatalog(context.Background(), true); err != nil {
		t.Fatalf("ReloadCatalog: %v", err)
	}
	if gotPath != "/catalog/reload?recreate=true" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(HealthReport{
			Status: "ok",
			Checks: map[string]string{"database": "ok"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	report, err := client.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != "ok" || report.Checks["database"] != "ok" {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"code":    "ingest_running",
			"message": "catalog reload already in progress",
		})
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.ReloadCatalog(context.Background(), false)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict || apiErr.Code != "ingest_running" {
		t.Errorf("unexpected error: %+v", apiErr)
	}
}
