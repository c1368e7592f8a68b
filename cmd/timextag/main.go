package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/timextag/internal/profile"
	"github.com/hrygo/timextag/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "timextag",
		Short: "Temporal expression tagger",
		Long: `timextag finds temporal expressions (dates, times, durations, sets)
in documents and stores them as TIMEX3 annotations.

Relative expressions such as "tomorrow" are normalized against a
reference date taken from the current day, a file timestamp, an existing
annotation of the document, or an explicit YYYY-MM-DD value.`,
		Version:       version.GetCurrentVersion("prod"),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cfg := v.GetString("config"); cfg != "" {
				v.SetConfigFile(cfg)
				if err := v.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "failed to read config %s", cfg)
				}
			}
			if v.GetBool("verbose") {
				slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.Bool("verbose", false, "log debug messages")
	flags.String("mode", "dev", `mode of the program, "dev" or "prod"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("timezone", "", "timezone of file and current dates (default local)")
	flags.String("reference-date", profile.DefaultReferenceDate,
		"today, creationDate, lastAccessDate, lastModifiedDate, annotation or YYYY-MM-DD")
	flags.String("input-annotation-set", "", "annotation set holding the reference date annotation")
	flags.String("input-annotation-name", "", "type of the reference date annotation")
	flags.String("input-feature-name", "", "feature of the reference date annotation holding the date")
	flags.String("output-annotation-set", profile.DefaultOutputAnnotationSet, "annotation set receiving the results")
	flags.String("output-annotation-name", profile.DefaultOutputAnnotationName, "type of the result annotations")
	flags.Bool("write-reference-date", false, "record the reference date as a DOCINFO annotation")
	flags.String("corenlp-url", profile.DefaultCoreNLPURL, "CoreNLP server URL")
	flags.String("tika-url", profile.DefaultTikaServerURL, "Tika server URL")
	flags.Duration("extract-timeout", profile.DefaultExtractTimeout, "timeout of one extraction request")
	flags.Float64("extract-rate", profile.DefaultExtractRate, "extraction requests per second")
	flags.Int("concurrency", profile.DefaultConcurrency, "documents tagged in parallel")

	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	v.SetEnvPrefix("timextag")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd.AddCommand(tagCmd(v))
	rootCmd.AddCommand(resolveCmd(v))
	rootCmd.AddCommand(annotationsCmd(v))
	rootCmd.AddCommand(validateDateCmd())
	rootCmd.AddCommand(serveCmd(v))
	return rootCmd
}

// loadProfile builds the profile from environment defaults, then applies
// everything set through flags, environment or config file.
func loadProfile(v *viper.Viper) (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:   v.GetString("mode"),
		Addr:   v.GetString("addr"),
		Port:   v.GetInt("port"),
		Data:   v.GetString("data"),
		Driver: v.GetString("driver"),
		DSN:    v.GetString("dsn"),
	}
	p.FromEnv()

	strs := map[string]*string{
		"timezone":               &p.Timezone,
		"reference-date":         &p.ReferenceDate,
		"input-annotation-set":   &p.InputAnnotationSet,
		"input-annotation-name":  &p.InputAnnotationName,
		"input-feature-name":     &p.InputFeatureName,
		"output-annotation-set":  &p.OutputAnnotationSet,
		"output-annotation-name": &p.OutputAnnotationName,
		"corenlp-url":            &p.CoreNLPURL,
		"tika-url":               &p.TikaServerURL,
	}
	for key, field := range strs {
		if v.IsSet(key) {
			*field = v.GetString(key)
		}
	}
	if v.IsSet("write-reference-date") {
		p.WriteReferenceDate = v.GetBool("write-reference-date")
	}
	if v.IsSet("extract-timeout") {
		p.ExtractTimeout = v.GetDuration("extract-timeout")
	}
	if v.IsSet("extract-rate") {
		p.ExtractRate = v.GetFloat64("extract-rate")
	}
	if v.IsSet("concurrency") {
		p.Concurrency = v.GetInt("concurrency")
	}

	p.Version = version.GetCurrentVersion(p.Mode)
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return p, nil
}
