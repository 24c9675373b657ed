package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dunamismax/deckrender/internal/domain"
)

type fakeExporter struct {
	exportJob  domain.ExportJob
	exportErr  error
	jobs       map[string]domain.ExportJob
	deleted    []string
	lastConfig domain.ExportConfig
}

func (f *fakeExporter) Export(pres domain.Presentation, cfg domain.ExportConfig) (domain.ExportJob, error) {
	f.lastConfig = cfg
	if f.exportErr != nil {
		return domain.ExportJob{}, f.exportErr
	}
	job := f.exportJob
	job.PresentationID = pres.ID
	job.Format = cfg.Format
	return job, nil
}

func (f *fakeExporter) GetJob(jobID string) (domain.ExportJob, bool) {
	job, ok := f.jobs[jobID]
	return job, ok
}

func (f *fakeExporter) ListJobs() []domain.ExportJob {
	out := make([]domain.ExportJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, job)
	}
	return out
}

func (f *fakeExporter) DeleteJob(jobID string) bool {
	if _, ok := f.jobs[jobID]; !ok {
		return false
	}
	delete(f.jobs, jobID)
	f.deleted = append(f.deleted, jobID)
	return true
}

type fakePresentations map[string]domain.Presentation

func (f fakePresentations) Get(id string) (domain.Presentation, bool) {
	p, ok := f[id]
	return p, ok
}

func newTestServer(exporter *fakeExporter, presentations fakePresentations) *Server {
	logger := log.New(io.Discard, "", 0)
	return NewServer(logger, exporter, presentations)
}

func postJSON(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateExportAccepted(t *testing.T) {
	exporter := &fakeExporter{
		exportJob: domain.ExportJob{ID: "j1", Status: domain.JobStatusPending},
		jobs:      map[string]domain.ExportJob{},
	}
	srv := newTestServer(exporter, fakePresentations{"p1": {ID: "p1", Title: "deck"}})

	rec := postJSON(t, srv.Handler(), "/v1/exports", `{"presentationId":"p1","format":"pdf","options":{"quality":"high"}}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var job domain.ExportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.ID != "j1" || job.Format != domain.FormatPDF || job.PresentationID != "p1" {
		t.Fatalf("job = %+v", job)
	}
	if exporter.lastConfig.Options.Quality != domain.QualityHigh {
		t.Fatalf("options not forwarded: %+v", exporter.lastConfig)
	}
}

func TestCreateExportUnknownPresentation(t *testing.T) {
	srv := newTestServer(&fakeExporter{jobs: map[string]domain.ExportJob{}}, fakePresentations{})

	rec := postJSON(t, srv.Handler(), "/v1/exports", `{"presentationId":"ghost","format":"pdf"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateExportInvalidRequests(t *testing.T) {
	srv := newTestServer(&fakeExporter{jobs: map[string]domain.ExportJob{}}, fakePresentations{"p1": {ID: "p1"}})

	cases := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "unknown field", body: `{"presentationId":"p1","format":"pdf","bogus":true}`},
		{name: "bad format", body: `{"presentationId":"p1","format":"docx"}`},
		{name: "bad fps", body: `{"presentationId":"p1","format":"video","options":{"videoFps":500}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, srv.Handler(), "/v1/exports", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetExport(t *testing.T) {
	exporter := &fakeExporter{jobs: map[string]domain.ExportJob{
		"j1": {ID: "j1", Status: domain.JobStatusProcessing, Progress: 40},
	}}
	srv := newTestServer(exporter, fakePresentations{})

	req := httptest.NewRequest(http.MethodGet, "/v1/exports/j1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var job domain.ExportJob
	if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.Progress != 40 {
		t.Fatalf("job = %+v", job)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/exports/missing", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", rec.Code)
	}
}

func TestListExports(t *testing.T) {
	exporter := &fakeExporter{jobs: map[string]domain.ExportJob{
		"j1": {ID: "j1"},
		"j2": {ID: "j2"},
	}}
	srv := newTestServer(exporter, fakePresentations{})

	req := httptest.NewRequest(http.MethodGet, "/v1/exports", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Jobs  []domain.ExportJob `json:"jobs"`
		Count int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || len(body.Jobs) != 2 {
		t.Fatalf("body = %+v", body)
	}
}

func TestDeleteExport(t *testing.T) {
	exporter := &fakeExporter{jobs: map[string]domain.ExportJob{"j1": {ID: "j1"}}}
	srv := newTestServer(exporter, fakePresentations{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/exports/j1", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/exports/j1", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestDownloadExport(t *testing.T) {
	artifact := filepath.Join(t.TempDir(), "deck_j1.pdf")
	if err := os.WriteFile(artifact, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	exporter := &fakeExporter{jobs: map[string]domain.ExportJob{
		"done":    {ID: "done", Status: domain.JobStatusCompleted, Progress: 100, FilePath: artifact},
		"running": {ID: "running", Status: domain.JobStatusProcessing, Progress: 50},
		"gone":    {ID: "gone", Status: domain.JobStatusCompleted, Progress: 100, FilePath: filepath.Join(t.TempDir(), "removed.pdf")},
	}}
	srv := newTestServer(exporter, fakePresentations{})

	req := httptest.NewRequest(http.MethodGet, "/v1/exports/done/download", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content-type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "deck_j1.pdf") {
		t.Fatalf("content-disposition = %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "%PDF-1.4") {
		t.Fatalf("body = %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/exports/running/download", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("in-flight download status = %d, want 409", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/exports/gone/download", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing artifact status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/exports/ghost/download", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job download status = %d, want 404", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeExporter{jobs: map[string]domain.ExportJob{}}, fakePresentations{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(&fakeExporter{jobs: map[string]domain.ExportJob{}}, fakePresentations{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	cases := map[string]string{
		"/v1/exports":              "/v1/exports",
		"/v1/exports/abc":          "/v1/exports/{id}",
		"/v1/exports/abc/download": "/v1/exports/{id}/download",
		"/healthz":                 "/healthz",
		"/metrics":                 "/metrics",
		"/other":                   "/other",
	}
	for in, want := range cases {
		if got := routeLabel(in); got != want {
			t.Fatalf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
