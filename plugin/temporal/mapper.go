package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// AnnotationSink persists annotations. It may reject a single annotation
// without affecting the others.
type AnnotationSink interface {
	AddAnnotation(ctx context.Context, annotation Annotation) error
}

// Input is one document's extractor output.
type Input struct {
	Expressions    []Expression
	DocumentLength int
	// ReferenceDate is recorded as DOCINFO when the mapper is configured to.
	ReferenceDate string
}

// Result is the materialized output of a mapping run.
type Result struct {
	ReferenceDate string       `json:"referenceDate,omitempty"`
	Annotations   []Annotation `json:"annotations"`
	Summary       Summary      `json:"summary"`
}

// Mapper converts token-anchored expressions into absolute annotations.
type Mapper struct {
	sink               AnnotationSink
	annotationName     string
	writeReferenceDate bool
	now                func() time.Time
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithSink sets where annotations are written in addition to the returned result.
func WithSink(sink AnnotationSink) MapperOption {
	return func(m *Mapper) { m.sink = sink }
}

// WithAnnotationName overrides the TIMEX3 annotation kind.
func WithAnnotationName(name string) MapperOption {
	return func(m *Mapper) {
		if name != "" {
			m.annotationName = name
		}
	}
}

// WithReferenceDateRecord emits a DOCINFO annotation holding the reference date.
func WithReferenceDateRecord(enabled bool) MapperOption {
	return func(m *Mapper) { m.writeReferenceDate = enabled }
}

// WithMapperClock overrides the clock used for elapsed time.
func WithMapperClock(now func() time.Time) MapperOption {
	return func(m *Mapper) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMapper creates a Mapper.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{
		annotationName: KindTimex3,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map emits one annotation per expression, in input order. An empty input is a
// successful run with no annotations and never touches the sink. A span that
// cannot be emitted is recorded in Summary.Skipped and the run continues.
// The returned error is non-nil only when ctx is done; the partial result is
// returned alongside it.
func (m *Mapper) Map(ctx context.Context, in Input, progress ProgressSink) (*Result, error) {
	start := m.now()
	result := &Result{
		ReferenceDate: in.ReferenceDate,
		Annotations:   []Annotation{},
	}
	finish := func() *Result {
		result.Summary.AnnotationCount = len(result.Annotations)
		result.Summary.Elapsed = m.now().Sub(start)
		return result
	}

	if len(in.Expressions) == 0 {
		return finish(), nil
	}

	if m.writeReferenceDate && in.ReferenceDate != "" {
		docInfo := Annotation{
			Start:    0,
			End:      in.DocumentLength,
			Kind:     KindDocInfo,
			Features: map[string]string{FeatureReferenceDate: in.ReferenceDate},
		}
		m.emit(ctx, result, -1, docInfo, in.DocumentLength)
	}

	for i, expr := range in.Expressions {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}

		begin, end, ok := expr.Span()
		if !ok {
			m.skip(result, i, begin, end, invalidSpan("expression has no tokens"))
			continue
		}

		if in.DocumentLength > 0 {
			ReportProgress(progress, float64(end)/float64(in.DocumentLength))
		}

		annotation := Annotation{
			Start: begin,
			End:   end,
			Kind:  m.annotationName,
			Features: map[string]string{
				FeatureType:  string(expr.Type),
				FeatureValue: expr.Value,
			},
		}
		if expr.AltValue != "" {
			annotation.Features[FeatureAltValue] = expr.AltValue
		}
		m.emit(ctx, result, i, annotation, in.DocumentLength)
	}

	return finish(), nil
}

func (m *Mapper) emit(ctx context.Context, result *Result, index int, annotation Annotation, docLength int) {
	if err := checkSpan(annotation.Start, annotation.End, docLength); err != nil {
		m.skip(result, index, annotation.Start, annotation.End, err)
		return
	}
	if m.sink != nil {
		if err := m.sink.AddAnnotation(ctx, annotation); err != nil {
			m.skip(result, index, annotation.Start, annotation.End, &Error{
				Kind:    KindInvalidSpan,
				Message: "annotation store rejected span",
				Cause:   err,
			})
			return
		}
	}
	result.Annotations = append(result.Annotations, annotation)
}

func (m *Mapper) skip(result *Result, index, start, end int, err error) {
	slog.Warn("skipping temporal annotation",
		"index", index,
		"start", start,
		"end", end,
		"error", err,
	)
	result.Summary.Skipped = append(result.Summary.Skipped, &SpanError{
		Index: index,
		Start: start,
		End:   end,
		Err:   err,
	})
}

// checkSpan enforces 0 <= start < end <= docLength.
func checkSpan(start, end, docLength int) error {
	switch {
	case start < 0:
		return invalidSpan(fmt.Sprintf("start offset %d is negative", start))
	case end <= start:
		return invalidSpan(fmt.Sprintf("end offset %d is not after start offset %d", end, start))
	case end > docLength:
		return invalidSpan(fmt.Sprintf("end offset %d exceeds document length %d", end, docLength))
	}
	return nil
}
