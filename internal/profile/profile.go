package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hrygo/timextag/server/timezone"
)

// Profile is the configuration of a tagging run or server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where timextag stores documents and annotations
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// Timezone turns instants (now, file times) into calendar dates. Empty means local.
	Timezone string

	// Tagging configuration
	ReferenceDate        string // TIMEXTAG_REFERENCE_DATE (default: today)
	InputAnnotationSet   string // TIMEXTAG_INPUT_ANNOTATION_SET
	InputAnnotationName  string // TIMEXTAG_INPUT_ANNOTATION_NAME
	InputFeatureName     string // TIMEXTAG_INPUT_FEATURE_NAME
	OutputAnnotationSet  string // TIMEXTAG_OUTPUT_ANNOTATION_SET (default: SUTime)
	OutputAnnotationName string // TIMEXTAG_OUTPUT_ANNOTATION_NAME (default: TIMEX3)
	WriteReferenceDate   bool   // TIMEXTAG_WRITE_REFERENCE_DATE (default: false)

	// Collaborators
	CoreNLPURL     string        // TIMEXTAG_CORENLP_URL (default: http://localhost:9000)
	TikaServerURL  string        // TIMEXTAG_TIKA_URL (default: http://localhost:9998)
	ExtractTimeout time.Duration // TIMEXTAG_EXTRACT_TIMEOUT (default: 2m)
	ExtractRate    float64       // TIMEXTAG_EXTRACT_RATE, extractor calls per second (default: 4)
	Concurrency    int           // TIMEXTAG_CONCURRENCY, documents tagged in parallel (default: 2)
}

const (
	DefaultReferenceDate        = "today"
	DefaultOutputAnnotationSet  = "SUTime"
	DefaultOutputAnnotationName = "TIMEX3"
	DefaultCoreNLPURL           = "http://localhost:9000"
	DefaultTikaServerURL        = "http://localhost:9998"
	DefaultExtractTimeout       = 2 * time.Minute
	DefaultExtractRate          = 4.0
	DefaultConcurrency          = 2
)

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FromEnv loads the tagging and collaborator configuration from TIMEXTAG_* variables.
// Values already set on the profile are kept when the variable is unset.
func (p *Profile) FromEnv() {
	str := func(key string, field *string, defaultValue string) {
		*field = getEnvOrDefault(key, firstNonEmpty(*field, defaultValue))
	}

	str("TIMEXTAG_REFERENCE_DATE", &p.ReferenceDate, DefaultReferenceDate)
	str("TIMEXTAG_INPUT_ANNOTATION_SET", &p.InputAnnotationSet, "")
	str("TIMEXTAG_INPUT_ANNOTATION_NAME", &p.InputAnnotationName, "")
	str("TIMEXTAG_INPUT_FEATURE_NAME", &p.InputFeatureName, "")
	str("TIMEXTAG_OUTPUT_ANNOTATION_SET", &p.OutputAnnotationSet, DefaultOutputAnnotationSet)
	str("TIMEXTAG_OUTPUT_ANNOTATION_NAME", &p.OutputAnnotationName, DefaultOutputAnnotationName)
	str("TIMEXTAG_CORENLP_URL", &p.CoreNLPURL, DefaultCoreNLPURL)
	str("TIMEXTAG_TIKA_URL", &p.TikaServerURL, DefaultTikaServerURL)
	str("TIMEXTAG_TIMEZONE", &p.Timezone, "")

	if v := os.Getenv("TIMEXTAG_WRITE_REFERENCE_DATE"); v != "" {
		p.WriteReferenceDate = v == "true"
	}
	if v, err := time.ParseDuration(os.Getenv("TIMEXTAG_EXTRACT_TIMEOUT")); err == nil {
		p.ExtractTimeout = v
	} else if p.ExtractTimeout == 0 {
		p.ExtractTimeout = DefaultExtractTimeout
	}
	if v, err := strconv.ParseFloat(os.Getenv("TIMEXTAG_EXTRACT_RATE"), 64); err == nil {
		p.ExtractRate = v
	} else if p.ExtractRate == 0 {
		p.ExtractRate = DefaultExtractRate
	}
	if v, err := strconv.Atoi(os.Getenv("TIMEXTAG_CONCURRENCY")); err == nil {
		p.Concurrency = v
	} else if p.Concurrency == 0 {
		p.Concurrency = DefaultConcurrency
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Location returns the configured timezone, falling back to the local one.
func (p *Profile) Location() (*time.Location, error) {
	loc, err := timezone.ParseTimezone(p.Timezone)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load timezone")
	}
	return loc, nil
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Concurrency < 1 {
		return errors.Errorf("concurrency must be positive, got %d", p.Concurrency)
	}
	if p.ExtractTimeout <= 0 {
		return errors.Errorf("extract timeout must be positive, got %s", p.ExtractTimeout)
	}
	if p.OutputAnnotationName == "" {
		return errors.New("output annotation name is required")
	}
	if !timezone.IsValidTimezone(p.Timezone) {
		return errors.Errorf("unknown timezone %q", p.Timezone)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "timextag")
		} else {
			p.Data = "/var/opt/timextag"
		}
	}
	if p.Data == "" {
		p.Data = "."
	}
	if p.Mode == "prod" {
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check dsn", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("timextag_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	return nil
}
