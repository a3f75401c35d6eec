// Package media contains the image ingestion pipeline: source resolution,
// content hashing, variant generation, and the per-SKU orchestration that
// pushes derived variants into object storage.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hollandwest/skadi/internal/domain"
)

// FetchError reports a non-2xx response while fetching a remote source.
// Server-side failures are retryable; client errors are not.
type FetchError struct {
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the fetch may succeed on a later attempt.
func (e *FetchError) Retryable() bool {
	return e.StatusCode >= 500
}

// SourceResolver turns an image descriptor into a local file on disk.
// Remote URLs are fetched into the scratch directory; local paths are
// resolved against baseDir and verified to exist.
type SourceResolver struct {
	client  *http.Client
	baseDir string
}

// NewSourceResolver creates a resolver. A nil client falls back to
// http.DefaultClient; baseDir anchors relative local source paths.
func NewSourceResolver(client *http.Client, baseDir string) *SourceResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &SourceResolver{client: client, baseDir: baseDir}
}

// Resolve returns a local file path for the descriptor's source. Fetched
// bytes are written under scratchDir; failure affects only this one image.
func (r *SourceResolver) Resolve(ctx context.Context, desc domain.ImageDescriptor, scratchDir string) (string, error) {
	source := strings.TrimSpace(desc.Source)
	if source == "" {
		return "", fmt.Errorf("image source is empty")
	}

	if isRemote(source) {
		return r.fetch(ctx, source, scratchDir)
	}

	local := source
	if !filepath.IsAbs(local) {
		local = filepath.Join(r.baseDir, local)
	}
	if _, err := os.Stat(local); err != nil {
		return "", fmt.Errorf("local source %s: %w", desc.Source, err)
	}
	return local, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (r *SourceResolver) fetch(ctx context.Context, rawURL, scratchDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", rawURL, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	dest := filepath.Join(scratchDir, sourceFileName(rawURL))
	file, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating scratch file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("writing %s: %w", dest, err)
	}

	return dest, nil
}

// sourceFileName derives a safe scratch file name from the URL path,
// falling back to a fixed name when the path has no usable basename.
func sourceFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "source"
	}
	name := path.Base(u.Path)
	if name == "" || name == "." || name == "/" {
		return "source"
	}
	return name
}
