package render

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestChromeRasterizerDefaults(t *testing.T) {
	r := NewChromeRasterizer(ChromeConfig{})
	if r.cfg.LaunchTimeout != 30*time.Second {
		t.Fatalf("launch timeout = %s, want 30s", r.cfg.LaunchTimeout)
	}
	if r.cfg.CaptureTimeout != 30*time.Second {
		t.Fatalf("capture timeout = %s, want 30s", r.cfg.CaptureTimeout)
	}
}

func TestChromeSessionLaunchTimesOut(t *testing.T) {
	// A binary that starts but never exposes DevTools must not block the
	// session open forever.
	bin := filepath.Join(t.TempDir(), "wedged-browser.sh")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\nsleep 60\n"), 0o755); err != nil {
		t.Fatalf("write fake browser: %v", err)
	}

	r := NewChromeRasterizer(ChromeConfig{
		ExecPath:      bin,
		NoSandbox:     true,
		LaunchTimeout: 300 * time.Millisecond,
	})

	start := time.Now()
	sess, err := r.NewSession(context.Background())
	if err == nil {
		sess.Close()
		t.Fatalf("expected launch error from wedged binary")
	}
	if !strings.Contains(err.Error(), "start headless browser") {
		t.Fatalf("err = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("session open blocked for %s", elapsed)
	}
}
