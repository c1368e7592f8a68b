// Package textextract provides tests for text extraction functionality
package textextract

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig tests the default configuration
func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, "http://localhost:9998", config.TikaServerURL)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, int64(32<<20), config.MaxFileSize)
}

// TestNewClient tests client creation
func TestNewClient(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		client := NewClient(nil)
		assert.NotNil(t, client)
		assert.Equal(t, "http://localhost:9998", client.config.TikaServerURL)
	})

	t.Run("with custom config", func(t *testing.T) {
		config := &Config{
			TikaServerURL: "http://example.com:9998",
			Timeout:       60 * time.Second,
		}
		client := NewClient(config)
		assert.Equal(t, "http://example.com:9998", client.config.TikaServerURL)
		assert.Equal(t, 60*time.Second, client.httpClient.Timeout)
	})
}

// TestIsSupported tests MIME type support checking
func TestIsSupported(t *testing.T) {
	client := NewClient(nil)

	for _, mimeType := range []string{"application/pdf", "APPLICATION/PDF", "text/html", "application/rtf"} {
		t.Run(mimeType, func(t *testing.T) {
			assert.True(t, client.IsSupported(mimeType))
		})
	}
	for _, mimeType := range []string{"image/png", "video/mp4", ""} {
		t.Run("unsupported "+mimeType, func(t *testing.T) {
			assert.False(t, client.IsSupported(mimeType))
		})
	}
}

func TestLoadPlainText(t *testing.T) {
	client := NewClient(&Config{TikaServerURL: ""})

	result, err := client.Load(context.Background(), []byte("Café opens next Monday."), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Café opens next Monday.", result.Text)
	assert.Equal(t, "text/plain", result.ContentType)
	assert.Equal(t, 23, result.CharCount)
}

func TestLoadInvalidUTF8(t *testing.T) {
	client := NewClient(nil)

	_, err := client.Load(context.Background(), []byte{0xff, 0xfe, 0x00}, "text/plain")
	assert.Error(t, err)
}

func TestLoadUnsupported(t *testing.T) {
	client := NewClient(nil)

	_, err := client.Load(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestLoadThroughTika(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/tika":
			_, _ = io.WriteString(w, "Signed on 4 July 2021.")
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"dc:title":"Contract","dcterms:created":["2021-07-04T09:00:00Z"],"xmpTPg:NPages":"2"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(&Config{TikaServerURL: server.URL, Timeout: 5 * time.Second})
	result, err := client.Load(context.Background(), []byte("%PDF-1.7"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, "Signed on 4 July 2021.", result.Text)
	assert.Equal(t, "Contract", result.Title)
	assert.Equal(t, "2021-07-04T09:00:00Z", result.Created)
	assert.Equal(t, "2", result.Metadata["xmpTPg:NPages"])
	assert.Equal(t, 22, result.CharCount)
}

func TestLoadTikaError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "parse failure", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := NewClient(&Config{TikaServerURL: server.URL}).Load(context.Background(), []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(path, []byte("Due tomorrow."), 0o600))

	result, err := NewClient(nil).LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Due tomorrow.", result.Text)

	t.Run("too large", func(t *testing.T) {
		client := NewClient(&Config{MaxFileSize: 4})
		_, err := client.LoadFile(context.Background(), path)
		assert.Error(t, err)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := NewClient(nil).LoadFile(context.Background(), filepath.Join(dir, "missing.txt"))
		assert.Error(t, err)
	})
}

// TestConfigFromEnv tests environment variable configuration
func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TIMEXTAG_TIKA_URL", "http://test:9999")
	t.Setenv("TIMEXTAG_TIKA_TIMEOUT", "60s")

	config := ConfigFromEnv()

	assert.Equal(t, "http://test:9999", config.TikaServerURL)
	assert.Equal(t, 60*time.Second, config.Timeout)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "text/plain", detectContentType("a.txt", nil))
	assert.Equal(t, "text/plain", detectContentType("a.md", nil))
	assert.Equal(t, "application/pdf", detectContentType("a.pdf", nil))
	assert.Equal(t, "text/plain; charset=utf-8", detectContentType("noext", []byte("hello")))
}

// BenchmarkIsSupported benchmarks MIME type checking
func BenchmarkIsSupported(b *testing.B) {
	client := NewClient(nil)
	mimeTypes := []string{
		"application/pdf",
		"image/png",
		"text/plain",
		"application/msword",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, mimeType := range mimeTypes {
			client.IsSupported(mimeType)
		}
	}
}

func TestServerVersion(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		checkOK bool
	}{
		{"current", "Apache Tika 2.9.1\n", "2.9.1", true},
		{"legacy", "Apache Tika 1.28.5", "1.28.5", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/version", r.URL.Path)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer server.Close()

			client := NewClient(&Config{TikaServerURL: server.URL, Timeout: time.Second})
			got, err := client.ServerVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			err = client.CheckServerVersion(context.Background())
			if tt.checkOK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
