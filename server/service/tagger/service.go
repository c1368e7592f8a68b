// Package tagger runs the per-document tagging pipeline: resolve the reference
// date, call the extraction engine, map its output to annotations and persist them.
package tagger

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hrygo/timextag/internal/profile"
	"github.com/hrygo/timextag/plugin/filemeta"
	"github.com/hrygo/timextag/plugin/temporal"
	"github.com/hrygo/timextag/plugin/textextract"
	"github.com/hrygo/timextag/server/internal/observability"
	"github.com/hrygo/timextag/store"
)

// EngineName is the extraction engine named in status messages.
const EngineName = "SUTime"

// progressBuffer is the number of mapper progress events queued for the caller's sink.
const progressBuffer = 64

type service struct {
	profile   *profile.Profile
	store     *store.Store
	extractor Extractor
	loader    Loader
	resolver  *temporal.Resolver
	limiter   *rate.Limiter
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Option configures the service.
type Option func(*service)

// WithLoader replaces the Tika-backed file loader.
func WithLoader(loader Loader) Option {
	return func(s *service) { s.loader = loader }
}

// WithResolver replaces the reference date resolver.
func WithResolver(resolver *temporal.Resolver) Option {
	return func(s *service) { s.resolver = resolver }
}

// WithMetrics replaces the global metrics collector.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *service) { s.metrics = metrics }
}

// WithLogger sets the logger of per-document request contexts.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) { s.logger = logger }
}

// NewService creates the tagging service.
func NewService(p *profile.Profile, st *store.Store, extractor Extractor, opts ...Option) (Service, error) {
	if p == nil || st == nil || extractor == nil {
		return nil, errors.New("profile, store and extractor are required")
	}

	limit := rate.Inf
	if p.ExtractRate > 0 {
		limit = rate.Limit(p.ExtractRate)
	}
	s := &service{
		profile:   p,
		store:     st,
		extractor: extractor,
		limiter:   rate.NewLimiter(limit, max(p.Concurrency, 1)),
		metrics:   observability.GlobalMetrics(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		config := textextract.DefaultConfig()
		if p.TikaServerURL != "" {
			config.TikaServerURL = p.TikaServerURL
		}
		s.loader = textextract.NewClient(config)
	}
	if s.resolver == nil {
		loc, err := p.Location()
		if err != nil {
			return nil, err
		}
		s.resolver = temporal.NewResolver(
			temporal.WithFileMetadata(filemeta.NewReader()),
			temporal.WithAnnotationReader(st.AnnotationReader()),
			temporal.WithLocation(loc),
		)
	}
	return s, nil
}

// strategy returns the configured reference date strategy.
func (s *service) strategy() temporal.Strategy {
	return temporal.ParseStrategy(s.profile.ReferenceDate, temporal.FromAnnotation{
		AnnotationSet:  s.profile.InputAnnotationSet,
		AnnotationType: s.profile.InputAnnotationName,
		FeatureName:    s.profile.InputFeatureName,
	})
}

// strategyLabel names a strategy for logs and metrics; explicit dates share one label.
func strategyLabel(strategy temporal.Strategy) string {
	switch strategy.(type) {
	case nil:
		return "none"
	case temporal.Explicit:
		return "explicit"
	default:
		return strategy.Selector()
	}
}

func (s *service) Tag(ctx context.Context, req *TagRequest) (*TagResult, error) {
	if req == nil || req.Text == "" {
		return nil, ErrNoDocumentText
	}

	strategy := req.Strategy
	if strategy == nil {
		strategy = s.strategy()
	}
	label := strategyLabel(strategy)

	doc, err := s.store.UpsertDocument(ctx, &store.Document{
		ID:          req.DocumentID,
		Name:        req.Name,
		SourcePath:  req.SourcePath,
		ContentType: req.ContentType,
		Length:      utf8.RuneCountInString(req.Text),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to save document")
	}

	reqCtx := observability.NewRequestContext(s.logger, doc.ID, doc.Name, label)
	ctx = observability.WithRequestContext(ctx, reqCtx)
	s.metrics.RecordDocument(label)

	result, err := s.tag(ctx, reqCtx, doc, req, strategy)
	s.metrics.RecordDuration(label, reqCtx.Duration())
	if err != nil {
		s.metrics.RecordFailure(label)
		attrs := []slog.Attr{slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs())}
		if kind := temporal.KindOf(err); kind != "" {
			attrs = append(attrs, slog.String(observability.LogFieldErrorCode, string(kind)))
		}
		reqCtx.Error("tagging failed", err, attrs...)
		return nil, err
	}

	s.metrics.RecordAnnotations(result.Summary.AnnotationCount, result.Summary.SkippedCount)
	reqCtx.Info("tagging finished",
		slog.String(observability.LogFieldReferenceDate, result.ReferenceDate),
		slog.Int(observability.LogFieldAnnotations, result.Summary.AnnotationCount),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return result, nil
}

func (s *service) tag(ctx context.Context, reqCtx *observability.RequestContext, doc *store.Document, req *TagRequest, strategy temporal.Strategy) (*TagResult, error) {
	progress := req.Progress
	if progress == nil {
		progress = temporal.NopProgress{}
	}
	name := displayName(doc)

	temporal.ReportStatus(progress, fmt.Sprintf("Performing temporal expressions tagging with %s in %s", EngineName, name))
	temporal.ReportProgress(progress, 0)

	if len(req.InputAnnotations) > 0 {
		if err := s.storeInputAnnotations(ctx, doc, strategy, req.InputAnnotations); err != nil {
			return nil, err
		}
	}

	referenceDate, err := s.resolver.Resolve(ctx, strategy, temporal.DocumentContext{
		ID:         doc.ID,
		Name:       doc.Name,
		Length:     doc.Length,
		SourcePath: doc.SourcePath,
	})
	if err != nil {
		return nil, err
	}
	reqCtx.Debug("reference date resolved", slog.String(observability.LogFieldReferenceDate, referenceDate))

	expressions, err := s.extract(ctx, doc, req.Text, referenceDate)
	if err != nil {
		return nil, err
	}

	// Previous results are only replaced once the extractor has answered.
	outputSet := s.profile.OutputAnnotationSet
	if err := s.store.DeleteAnnotations(ctx, &store.DeleteAnnotation{DocumentID: doc.ID, SetName: &outputSet}); err != nil {
		return nil, errors.Wrap(err, "failed to clear previous annotations")
	}

	writeReferenceDate := s.profile.WriteReferenceDate
	if req.WriteReferenceDate != nil {
		writeReferenceDate = *req.WriteReferenceDate
	}
	mapper := temporal.NewMapper(
		temporal.WithSink(s.store.AnnotationWriter(doc, outputSet)),
		temporal.WithAnnotationName(s.profile.OutputAnnotationName),
		temporal.WithReferenceDateRecord(writeReferenceDate),
	)
	// The mapper reports through a buffered sink so a slow caller sink cannot stall it.
	asyncProgress := temporal.NewAsyncProgress(progress, progressBuffer)
	mapped, err := mapper.Map(ctx, temporal.Input{
		Expressions:    expressions,
		DocumentLength: doc.Length,
		ReferenceDate:  referenceDate,
	}, asyncProgress)
	asyncProgress.Close()
	if err != nil {
		return nil, err
	}

	seconds := humanize.FtoaWithDigits(reqCtx.Duration().Seconds(), 2)
	if countTimex(mapped.Annotations) == 0 {
		temporal.ReportStatus(progress, fmt.Sprintf("No temporal expressions detected for %s in %s seconds!", name, seconds))
	} else {
		temporal.ReportStatus(progress, fmt.Sprintf("Temporal expressions detected and normalized for %s in %s seconds!", name, seconds))
	}
	temporal.ReportProgress(progress, 1)

	return &TagResult{
		DocumentID:    doc.ID,
		Name:          doc.Name,
		ReferenceDate: referenceDate,
		Annotations:   mapped.Annotations,
		Summary: Summary{
			AnnotationCount: mapped.Summary.AnnotationCount,
			SkippedCount:    len(mapped.Summary.Skipped),
			ElapsedSeconds:  reqCtx.Duration().Seconds(),
		},
	}, nil
}

// extract calls the extraction engine, paced by the shared limiter and bounded
// by the configured timeout.
func (s *service) extract(ctx context.Context, doc *store.Document, text, referenceDate string) ([]temporal.Expression, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "extraction rate limit")
	}

	extractCtx := ctx
	if s.profile.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		extractCtx, cancel = context.WithTimeout(ctx, s.profile.ExtractTimeout)
		defer cancel()
	}

	expressions, err := s.extractor.Extract(extractCtx, text, referenceDate)
	if err != nil {
		cause := err
		if ctxErr := extractCtx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			cause = errors.Wrap(ctxErr, err.Error())
		}
		return nil, &ExtractionError{DocumentID: doc.ID, Cause: cause}
	}
	return expressions, nil
}

// storeInputAnnotations replaces the input annotation set with the given annotations.
func (s *service) storeInputAnnotations(ctx context.Context, doc *store.Document, strategy temporal.Strategy, annotations []temporal.Annotation) error {
	set := s.profile.InputAnnotationSet
	if from, ok := strategy.(temporal.FromAnnotation); ok && from.AnnotationSet != "" {
		set = from.AnnotationSet
	}
	if err := s.store.DeleteAnnotations(ctx, &store.DeleteAnnotation{DocumentID: doc.ID, SetName: &set}); err != nil {
		return errors.Wrap(err, "failed to clear input annotations")
	}

	writer := s.store.AnnotationWriter(doc, set)
	for i, a := range annotations {
		if err := writer.AddAnnotation(ctx, a); err != nil {
			return errors.Wrapf(err, "input annotation %d", i)
		}
	}
	return nil
}

func (s *service) TagFile(ctx context.Context, path string, progress temporal.ProgressSink) (*TagResult, error) {
	localPath, err := s.localPath(path)
	if err != nil {
		return nil, err
	}

	loaded, err := s.loader.LoadFile(ctx, localPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load %s", localPath)
	}

	existing, err := s.store.FindDocumentBySource(ctx, localPath)
	if err != nil {
		return nil, err
	}
	req := &TagRequest{
		Name:        filepath.Base(localPath),
		SourcePath:  localPath,
		ContentType: loaded.ContentType,
		Text:        loaded.Text,
		Progress:    progress,
	}
	if existing != nil {
		req.DocumentID = existing.ID
	}
	return s.Tag(ctx, req)
}

func (s *service) TagFiles(ctx context.Context, paths []string, progress ProgressFactory) []*FileResult {
	results := make([]*FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.profile.Concurrency, 1))
	for i, path := range paths {
		g.Go(func() error {
			var sink temporal.ProgressSink
			if progress != nil {
				sink = progress(path)
			}
			result, err := s.TagFile(gctx, path, sink)
			fr := &FileResult{Path: path, Result: result, Err: err}
			if err != nil {
				fr.Error = err.Error()
			}
			results[i] = fr
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *service) ResolveFile(ctx context.Context, path string) (string, error) {
	localPath, err := s.localPath(path)
	if err != nil {
		return "", err
	}

	docCtx := temporal.DocumentContext{Name: filepath.Base(localPath), SourcePath: localPath}
	existing, err := s.store.FindDocumentBySource(ctx, localPath)
	if err != nil {
		return "", err
	}
	if existing != nil {
		docCtx.ID = existing.ID
		docCtx.Length = existing.Length
	}
	return s.resolver.Resolve(ctx, s.strategy(), docCtx)
}

func (s *service) localPath(path string) (string, error) {
	local, err := filemeta.LocalPath(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(local)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", local)
	}
	return abs, nil
}

// countTimex counts the emitted annotations other than the DOCINFO record.
func countTimex(annotations []temporal.Annotation) int {
	n := 0
	for _, a := range annotations {
		if a.Kind != temporal.KindDocInfo {
			n++
		}
	}
	return n
}

func displayName(doc *store.Document) string {
	if doc.Name != "" {
		return doc.Name
	}
	return doc.ID
}
