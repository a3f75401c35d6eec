package media

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollandwest/skadi/internal/domain"
)

func TestResolve_RemoteFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	r := NewSourceResolver(srv.Client(), "")
	scratch := t.TempDir()

	path, err := r.Resolve(context.Background(), domain.ImageDescriptor{Source: srv.URL + "/photos/a.jpg"}, scratch)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(scratch, "a.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image bytes"), data)
}

func TestResolve_RemoteStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"not found is permanent", http.StatusNotFound, false},
		{"forbidden is permanent", http.StatusForbidden, false},
		{"server error is retryable", http.StatusInternalServerError, true},
		{"bad gateway is retryable", http.StatusBadGateway, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			r := NewSourceResolver(srv.Client(), "")
			_, err := r.Resolve(context.Background(), domain.ImageDescriptor{Source: srv.URL + "/a.jpg"}, t.TempDir())
			require.Error(t, err)

			var fetchErr *FetchError
			require.True(t, errors.As(err, &fetchErr))
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Equal(t, tt.retryable, fetchErr.Retryable())
		})
	}
}

func TestResolve_LocalPath(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "img.png"), []byte("png"), 0644))

	r := NewSourceResolver(nil, base)

	// Relative path resolves against the base dir
	path, err := r.Resolve(context.Background(), domain.ImageDescriptor{Source: "img.png"}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "img.png"), path)

	// Absolute path is used as-is
	abs := filepath.Join(base, "img.png")
	path, err = r.Resolve(context.Background(), domain.ImageDescriptor{Source: abs}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestResolve_LocalPathMissing(t *testing.T) {
	r := NewSourceResolver(nil, t.TempDir())
	_, err := r.Resolve(context.Background(), domain.ImageDescriptor{Source: "missing.png"}, t.TempDir())
	assert.Error(t, err)
}

func TestResolve_EmptySource(t *testing.T) {
	r := NewSourceResolver(nil, "")
	_, err := r.Resolve(context.Background(), domain.ImageDescriptor{Source: "   "}, t.TempDir())
	assert.Error(t, err)
}

func TestSourceFileName(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"http://host/photos/a.jpg", "a.jpg"},
		{"http://host/", "source"},
		{"http://host", "source"},
	}
	for _, tt := range tests {
		if got := sourceFileName(tt.url); got != tt.expected {
			t.Errorf("sourceFileName(%q) = %q, want %q", tt.url, got, tt.expected)
		}
	}
}
