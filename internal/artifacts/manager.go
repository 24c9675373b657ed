package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Manager owns the flat artifact output directory and per-job scratch
// subdirectories (video frame sequences). Artifact filenames are namespaced
// by presentation title plus the job id, so concurrent jobs never collide.
type Manager struct {
	dir string
}

func NewManager(dir string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Manager{dir: dir}, nil
}

func (m *Manager) Dir() string {
	return m.dir
}

// ArtifactPath derives a filesystem-safe output path from the presentation
// title, with the job id as uniqueness suffix. ext includes the dot.
func (m *Manager) ArtifactPath(title, jobID, ext string) string {
	name := fmt.Sprintf("%s_%s%s", sanitizeToken(title), shortID(jobID), ext)
	return filepath.Join(m.dir, name)
}

// ScratchDir creates (if needed) and returns the job's private frame
// directory. It is owned exclusively by that job's task.
func (m *Manager) ScratchDir(jobID string) (string, error) {
	dir := filepath.Join(m.dir, "frames_"+sanitizeToken(jobID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}
	return dir, nil
}

// RemoveScratch recursively deletes the job's scratch directory.
func (m *Manager) RemoveScratch(jobID string) error {
	return os.RemoveAll(filepath.Join(m.dir, "frames_"+sanitizeToken(jobID)))
}

// RemoveArtifact unlinks a produced artifact, refusing paths outside the
// managed directory. A missing file is not an error.
func (m *Manager) RemoveArtifact(path string) error {
	rel, err := filepath.Rel(m.dir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("artifact path %s is outside the export directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func sanitizeToken(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "untitled"
	}

	var b strings.Builder
	b.Grow(len(in))
	for _, r := range in {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func shortID(jobID string) string {
	id := sanitizeToken(jobID)
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
