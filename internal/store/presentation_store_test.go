package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dunamismax/deckrender/internal/domain"
)

func TestPresentationStorePutGet(t *testing.T) {
	s := NewMemoryPresentationStore()
	s.Put(domain.Presentation{ID: "p1", Title: "Quarterly Review"})

	p, ok := s.Get("p1")
	if !ok || p.Title != "Quarterly Review" {
		t.Fatalf("got %+v ok=%v", p, ok)
	}
	if _, ok := s.Get("p2"); ok {
		t.Fatalf("unknown presentation resolved")
	}
}

func TestPresentationStoreLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.json")
	data := `[
		{"id":"p1","title":"One","theme":{"colors":{"background":"#fff","text":"#000"},"fonts":{"heading":"Arial","body":"Arial"}},"slides":[]},
		{"id":"p2","title":"Two","theme":{"colors":{"background":"#fff","text":"#000"},"fonts":{"heading":"Arial","body":"Arial"}},"slides":[]}
	]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}

	s := NewMemoryPresentationStore()
	n, err := s.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if n != 2 {
		t.Fatalf("loaded %d presentations, want 2", n)
	}
	if _, ok := s.Get("p2"); !ok {
		t.Fatalf("p2 missing after load")
	}
}

func TestPresentationStoreLoadFileErrors(t *testing.T) {
	s := NewMemoryPresentationStore()
	if _, err := s.LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write bad file: %v", err)
	}
	if _, err := s.LoadFile(path); err == nil {
		t.Fatalf("expected error for malformed file")
	}
}
