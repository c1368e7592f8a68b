// Package corenlp extracts temporal expressions through a Stanford CoreNLP server.
// SUTime runs as part of the server's ner annotator; its TIMEX3 output is
// returned as entity mentions carrying a timex object.
package corenlp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/timextag/plugin/temporal"
)

// DefaultAnnotators is the minimal pipeline that runs SUTime.
const DefaultAnnotators = "tokenize,ssplit,pos,lemma,ner"

// Config holds the CoreNLP client configuration.
type Config struct {
	// ServerURL is the URL of the CoreNLP server (e.g., http://localhost:9000)
	ServerURL string
	// Annotators is the annotator pipeline requested per document
	Annotators string
	// Timeout is the HTTP timeout for a single annotation request
	Timeout time.Duration
	// Username and Password enable basic auth when the server requires it
	Username string
	Password string
}

// DefaultConfig returns the default CoreNLP configuration.
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  "http://localhost:9000",
		Annotators: DefaultAnnotators,
		Timeout:    2 * time.Minute,
	}
}

// ConfigFromEnv creates a CoreNLP config from environment variables.
func ConfigFromEnv() *Config {
	config := DefaultConfig()

	if u := os.Getenv("TIMEXTAG_CORENLP_URL"); u != "" {
		config.ServerURL = u
	}
	if a := os.Getenv("TIMEXTAG_CORENLP_ANNOTATORS"); a != "" {
		config.Annotators = a
	}
	if timeout := os.Getenv("TIMEXTAG_CORENLP_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Timeout = d
		}
	}
	config.Username = os.Getenv("TIMEXTAG_CORENLP_USERNAME")
	config.Password = os.Getenv("TIMEXTAG_CORENLP_PASSWORD")

	return config
}

// Client calls a CoreNLP server.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a new CoreNLP client.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Annotators == "" {
		config.Annotators = DefaultAnnotators
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Extract annotates text with referenceDate as the document date and returns
// the temporal expressions in document order. Token offsets are rune offsets
// into text.
func (c *Client) Extract(ctx context.Context, text string, referenceDate string) ([]temporal.Expression, error) {
	endpoint, err := c.annotateURL(referenceDate)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "corenlp request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("corenlp server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var doc document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "failed to decode corenlp response")
	}

	expressions := doc.expressions(newOffsetIndex(text))
	slog.Debug("corenlp annotation finished",
		"sentences", len(doc.Sentences),
		"expressions", len(expressions),
		"reference_date", referenceDate,
	)
	return expressions, nil
}

func (c *Client) annotateURL(referenceDate string) (string, error) {
	base, err := url.Parse(strings.TrimRight(c.config.ServerURL, "/") + "/")
	if err != nil {
		return "", errors.Wrapf(err, "invalid corenlp server url %s", c.config.ServerURL)
	}

	props := map[string]string{
		"annotators":   c.config.Annotators,
		"outputFormat": "json",
	}
	if referenceDate != "" {
		props["ner.docdate.useFixedDate"] = referenceDate
	}
	encoded, err := json.Marshal(props)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode properties")
	}

	q := base.Query()
	q.Set("properties", string(encoded))
	if referenceDate != "" {
		q.Set("date", referenceDate)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// IsAvailable checks the server's readiness endpoint.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.ServerURL, "/")+"/ready", nil)
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
