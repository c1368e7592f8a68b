// Package textextract loads the text content of documents to be tagged.
// Plain text is read directly; other formats go through an Apache Tika server.
package textextract

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/hrygo/timextag/internal/version"
)

// MinTikaVersion is the oldest Tika server whose /tika and /meta endpoints are relied on.
const MinTikaVersion = "2.0.0"

// SupportedMimeTypes lists the content types Tika is asked to convert.
var SupportedMimeTypes = []string{
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.oasis.opendocument.text",
	"application/rtf",
	"text/html",
	"text/rtf",
	"application/xhtml+xml",
}

// Config holds the text extraction configuration
type Config struct {
	// TikaServerURL is the URL of the Tika server (e.g., http://localhost:9998)
	TikaServerURL string
	// Timeout is the HTTP timeout for Tika server requests
	Timeout time.Duration
	// MaxFileSize bounds the documents read into memory, in bytes
	MaxFileSize int64
}

// DefaultConfig returns the default text extraction configuration
func DefaultConfig() *Config {
	return &Config{
		TikaServerURL: "http://localhost:9998",
		Timeout:       30 * time.Second,
		MaxFileSize:   32 << 20,
	}
}

// ConfigFromEnv creates extraction config from environment variables
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if url := os.Getenv("TIMEXTAG_TIKA_URL"); url != "" {
		config.TikaServerURL = url
	}
	if timeout := os.Getenv("TIMEXTAG_TIKA_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Timeout = d
		}
	}

	return config
}

// Client loads document text.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new text extraction client
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Result is the text of a document and what Tika knows about it.
type Result struct {
	Text        string            `json:"text"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ContentType string            `json:"content_type"`
	Title       string            `json:"title,omitempty"`
	Created     string            `json:"created,omitempty"`
	Modified    string            `json:"modified,omitempty"`
	// CharCount is the text length in characters, the unit of annotation offsets.
	CharCount int `json:"char_count"`
}

// LoadFile reads the document at path and returns its text.
func (c *Client) LoadFile(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat file")
	}
	if c.config.MaxFileSize > 0 && info.Size() > c.config.MaxFileSize {
		return nil, errors.Errorf("file %s is %d bytes, limit is %d", path, info.Size(), c.config.MaxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	return c.Load(ctx, data, detectContentType(path, data))
}

// Load returns the text of data. Plain text must be valid UTF-8.
func (c *Client) Load(ctx context.Context, data []byte, contentType string) (*Result, error) {
	mediaType := baseMediaType(contentType)

	if mediaType == "text/plain" || mediaType == "" && utf8.Valid(data) {
		if !utf8.Valid(data) {
			return nil, errors.New("plain text document is not valid UTF-8")
		}
		result := &Result{Text: string(data), ContentType: "text/plain"}
		result.calculateStats()
		return result, nil
	}

	if !c.IsSupported(mediaType) {
		return nil, errors.Errorf("unsupported content type: %s", contentType)
	}
	return c.extractFromServer(ctx, data, mediaType)
}

// extractFromServer extracts text using Tika server
func (c *Client) extractFromServer(ctx context.Context, data []byte, contentType string) (*Result, error) {
	if c.config.TikaServerURL == "" {
		return nil, errors.New("no Tika server configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		strings.TrimRight(c.config.TikaServerURL, "/")+"/tika",
		bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "tika server request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("tika server returned status %d: %s", resp.StatusCode, string(body))
	}

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	result := &Result{
		Text:        string(text),
		ContentType: contentType,
	}
	result.calculateStats()

	metadata, err := c.getMetadata(ctx, data, contentType)
	if err != nil {
		slog.Warn("tika metadata request failed", "content_type", contentType, "error", err)
		return result, nil
	}
	result.Metadata = metadata
	result.Title = firstNonEmpty(metadata["dc:title"], metadata["title"])
	result.Created = firstNonEmpty(metadata["dcterms:created"], metadata["Creation-Date"])
	result.Modified = firstNonEmpty(metadata["dcterms:modified"], metadata["Last-Modified"])

	return result, nil
}

// getMetadata retrieves document metadata from Tika
func (c *Client) getMetadata(ctx context.Context, data []byte, contentType string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		strings.TrimRight(c.config.TikaServerURL, "/")+"/meta",
		bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("metadata request returned status %d", resp.StatusCode)
	}

	var metadata map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, err
	}

	result := make(map[string]string, len(metadata))
	for k, v := range metadata {
		switch val := v.(type) {
		case string:
			result[k] = val
		case []any:
			if len(val) > 0 {
				if s, ok := val[0].(string); ok {
					result[k] = s
				}
			}
		}
	}
	return result, nil
}

// IsAvailable checks if the Tika server answers.
func (c *Client) IsAvailable(ctx context.Context) bool {
	if c.config.TikaServerURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.TikaServerURL, "/")+"/version", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ServerVersion returns the version reported by the Tika server, e.g. "2.9.1".
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.TikaServerURL, "/")+"/version", nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to create version request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to query tika version")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("tika version returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", errors.Wrap(err, "failed to read tika version")
	}
	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return "", errors.New("empty tika version")
	}
	return fields[len(fields)-1], nil
}

// CheckServerVersion fails when the Tika server is older than MinTikaVersion.
func (c *Client) CheckServerVersion(ctx context.Context) error {
	v, err := c.ServerVersion(ctx)
	if err != nil {
		return err
	}
	if !version.IsVersionGreaterOrEqualThan(v, MinTikaVersion) {
		return errors.Errorf("tika server %s is older than %s", v, MinTikaVersion)
	}
	return nil
}

// IsSupported checks if a MIME type is converted through Tika.
func (c *Client) IsSupported(contentType string) bool {
	for _, supported := range SupportedMimeTypes {
		if strings.EqualFold(contentType, supported) {
			return true
		}
	}
	return false
}

// detectContentType detects the content type of a file
func detectContentType(filePath string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".txt", ".text", ".md", ".log":
		return "text/plain"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func baseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

// calculateStats counts characters the way annotation offsets do.
func (r *Result) calculateStats() {
	r.CharCount = utf8.RuneCountInString(r.Text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
