package artifacts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestArtifactPathSanitizesTitle(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := m.ArtifactPath("Q3 Review: Final!", "abcdef1234567890", ".pdf")
	base := filepath.Base(path)
	if base != "Q3_Review__Final__abcdef12.pdf" {
		t.Fatalf("artifact name = %q", base)
	}
	if filepath.Dir(path) != m.Dir() {
		t.Fatalf("artifact outside managed dir: %s", path)
	}
}

func TestArtifactPathEmptyTitle(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	base := filepath.Base(m.ArtifactPath("   ", "12345678", ".html"))
	if !strings.HasPrefix(base, "untitled_") {
		t.Fatalf("artifact name = %q, want untitled_ prefix", base)
	}
}

func TestScratchLifecycle(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	dir, err := m.ScratchDir("job-1")
	if err != nil {
		t.Fatalf("ScratchDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "frame_000000.png"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	if err := m.RemoveScratch("job-1"); err != nil {
		t.Fatalf("RemoveScratch: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir still exists")
	}

	// Removing again is fine.
	if err := m.RemoveScratch("job-1"); err != nil {
		t.Fatalf("second RemoveScratch: %v", err)
	}
}

func TestRemoveArtifact(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	path := m.ArtifactPath("deck", "job12345", ".pdf")
	if err := os.WriteFile(path, []byte("pdf"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	if err := m.RemoveArtifact(path); err != nil {
		t.Fatalf("RemoveArtifact: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("artifact still exists")
	}

	// Missing artifact is not an error.
	if err := m.RemoveArtifact(path); err != nil {
		t.Fatalf("RemoveArtifact on missing file: %v", err)
	}
}

func TestRemoveArtifactRefusesOutsidePaths(t *testing.T) {
	m, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	outside := filepath.Join(t.TempDir(), "other.pdf")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := m.RemoveArtifact(outside); err == nil {
		t.Fatalf("expected refusal for path outside export dir")
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("outside file was removed")
	}
}
