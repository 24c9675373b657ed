package render

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const maxImageBytes = 32 << 20

// imageLoader resolves slide asset references (data URIs, http(s) URLs and
// local paths) to raw bytes for embedding. Fetched assets are cached for the
// loader's lifetime since decks commonly reuse the same image on many slides.
type imageLoader struct {
	client   *http.Client
	maxBytes int64

	mu    sync.Mutex
	cache map[string]cachedImage
}

type cachedImage struct {
	data []byte
	mime string
}

func newImageLoader() *imageLoader {
	return &imageLoader{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: maxImageBytes,
		cache:    make(map[string]cachedImage),
	}
}

func (l *imageLoader) Load(ctx context.Context, src string) ([]byte, string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, "", errors.New("empty image source")
	}

	l.mu.Lock()
	if hit, ok := l.cache[src]; ok {
		l.mu.Unlock()
		return hit.data, hit.mime, nil
	}
	l.mu.Unlock()

	data, mime, err := l.fetch(ctx, src)
	if err != nil {
		return nil, "", err
	}

	l.mu.Lock()
	l.cache[src] = cachedImage{data: data, mime: mime}
	l.mu.Unlock()
	return data, mime, nil
}

func (l *imageLoader) fetch(ctx context.Context, src string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return l.fetchHTTP(ctx, src)
	default:
		data, err := os.ReadFile(src)
		if err != nil {
			return nil, "", fmt.Errorf("read image %s: %w", src, err)
		}
		return data, mimeForExt(filepath.Ext(src)), nil
	}
}

func (l *imageLoader) fetchHTTP(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image %s: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image %s: status=%d", src, resp.StatusCode)
	}
	// Read one byte past the cap so an oversize asset is rejected rather
	// than silently truncated into a corrupt embed.
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image %s: %w", src, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("image %s exceeds %d byte limit", src, l.maxBytes)
	}

	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

func decodeDataURI(src string) ([]byte, string, error) {
	head, payload, ok := strings.Cut(src, ",")
	if !ok {
		return nil, "", errors.New("malformed data URI")
	}
	mime := "image/png"
	meta := strings.TrimPrefix(head, "data:")
	if m, _, _ := strings.Cut(meta, ";"); m != "" {
		mime = m
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data URI: %w", err)
	}
	return data, mime, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}
