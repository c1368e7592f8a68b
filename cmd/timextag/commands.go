package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/timextag/plugin/temporal"
	"github.com/hrygo/timextag/server"
	"github.com/hrygo/timextag/server/service/tagger"
	"github.com/hrygo/timextag/store"
)

func tagCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tag FILE...",
		Short: "Tag temporal expressions in documents",
		Long: `Tag loads each file, resolves its reference date, extracts temporal
expressions and stores them as annotations. One JSON result is printed
per file. A failing file does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			results := a.tagger.TagFiles(ctx, args, func(path string) temporal.ProgressSink {
				return temporal.LogProgress{Logger: slog.With(slog.String("file", path))}
			})
			return writeFileResults(cmd.OutOrStdout(), results)
		},
	}
}

// writeFileResults prints one JSON line per file and fails when any file failed.
func writeFileResults(w io.Writer, results []*tagger.FileResult) error {
	enc := json.NewEncoder(w)
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
		if err := enc.Encode(r); err != nil {
			return errors.Wrap(err, "failed to write result")
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func resolveCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE",
		Short: "Print the reference date a document would be tagged with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := a.tagger.ResolveFile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), date)
			return nil
		},
	}
}

func annotationsCmd(v *viper.Viper) *cobra.Command {
	var (
		set            string
		annotationType string
		filter         string
		limit          int
	)
	cmd := &cobra.Command{
		Use:   "annotations DOCUMENT_ID",
		Short: "List the stored annotations of a document",
		Long: `Annotations prints the annotations of a document as JSON, in document order.

The --filter flag takes a CEL expression over kind, set, start, end and
features, for example:

  timextag annotations 6f1c... --filter 'features["Type"] == "DATE"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			compiled, err := store.CompileAnnotationFilter(filter)
			if err != nil {
				return err
			}

			a, err := newApp(ctx, v, false)
			if err != nil {
				return err
			}
			defer a.Close()

			find := &store.FindAnnotation{DocumentID: args[0]}
			if set != "" {
				find.SetName = &set
			}
			if annotationType != "" {
				find.Type = &annotationType
			}
			if limit > 0 {
				find.Limit = &limit
			}
			if _, err := a.store.GetDocument(ctx, args[0]); err != nil {
				return err
			}
			list, err := a.store.ListAnnotationsFiltered(ctx, find, compiled)
			if err != nil {
				return err
			}

			annotations := make([]temporal.Annotation, 0, len(list))
			for _, annotation := range list {
				annotations = append(annotations, annotation.ToTemporal())
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(annotations)
		},
	}
	cmd.Flags().StringVar(&set, "set", "", "annotation set name")
	cmd.Flags().StringVar(&annotationType, "type", "", "annotation type, e.g. TIMEX3")
	cmd.Flags().StringVar(&filter, "filter", "", "CEL filter expression")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of annotations")
	return cmd
}

func validateDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-date DATE",
		Short: "Check that a value is a real YYYY-MM-DD calendar date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !temporal.ValidateDate(args[0]) {
				return errors.Errorf("%q is not a valid YYYY-MM-DD date", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

func serveCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tagging HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, v, true)
			if err != nil {
				return err
			}

			s := server.NewServer(a.profile, a.store, a.tagger)
			if err := s.Start(ctx); err != nil {
				a.Close()
				return err
			}
			printGreetings(cmd.OutOrStdout(), a)

			<-ctx.Done()
			// Shutdown closes the store.
			s.Shutdown(context.Background())
			return nil
		},
	}
	cmd.Flags().String("addr", "", "address of server")
	cmd.Flags().Int("port", 8081, "port of server")
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(err)
	}
	return cmd
}

func printGreetings(w io.Writer, a *app) {
	fmt.Fprintf(w, "timextag %s started successfully!\n", a.profile.Version)
	fmt.Fprintf(w, "Data directory: %s\n", a.profile.Data)
	fmt.Fprintf(w, "Database driver: %s\n", a.profile.Driver)
	fmt.Fprintf(w, "Reference date: %s\n", a.profile.ReferenceDate)
	fmt.Fprintf(w, "Server running on port %d\n", a.profile.Port)
}
