package temporal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu          sync.Mutex
	annotations []Annotation
	reject      func(Annotation) error
}

func (s *recordingSink) AddAnnotation(_ context.Context, a Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reject != nil {
		if err := s.reject(a); err != nil {
			return err
		}
	}
	s.annotations = append(s.annotations, a)
	return nil
}

func (s *recordingSink) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.annotations)
}

type recordingProgress struct {
	mu        sync.Mutex
	fractions []float64
	messages  []string
}

func (p *recordingProgress) Progress(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fractions = append(p.fractions, f)
}

func (p *recordingProgress) Status(m string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
}

func expr(begin, end int, typ TimexType, value string) Expression {
	return Expression{
		Tokens: []Token{{Begin: begin, End: end}},
		Type:   typ,
		Value:  value,
	}
}

func TestMapper_EmptyInput(t *testing.T) {
	sink := &recordingSink{}
	m := NewMapper(WithSink(sink), WithReferenceDateRecord(true))

	result, err := m.Map(context.Background(), Input{DocumentLength: 50, ReferenceDate: "2021-07-04"}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Annotations)
	assert.NotNil(t, result.Annotations)
	assert.Equal(t, 0, result.Summary.AnnotationCount)
	assert.Empty(t, result.Summary.Skipped)
	assert.Equal(t, 0, sink.calls())
}

func TestMapper_EndToEndScenario(t *testing.T) {
	sink := &recordingSink{}
	m := NewMapper(WithSink(sink))

	result, err := m.Map(context.Background(), Input{
		Expressions:    []Expression{expr(10, 15, TimexDate, "2021-07-04")},
		DocumentLength: 50,
	}, nil)
	require.NoError(t, err)

	require.Len(t, result.Annotations, 1)
	assert.Equal(t, Annotation{
		Start: 10,
		End:   15,
		Kind:  "TIMEX3",
		Features: map[string]string{
			"Type":  "DATE",
			"Value": "2021-07-04",
		},
	}, result.Annotations[0])
	assert.Equal(t, 1, result.Summary.AnnotationCount)
	assert.Equal(t, result.Annotations, sink.annotations)
}

func TestMapper_MultiTokenOffsetsAndOrder(t *testing.T) {
	text := "We met three weeks ago and will meet again next Tuesday at 5pm every day."
	exprs := []Expression{
		{
			Tokens: []Token{{Begin: 7, End: 12, Text: "three"}, {Begin: 13, End: 18, Text: "weeks"}, {Begin: 19, End: 22, Text: "ago"}},
			Type:   TimexDate,
			Value:  "2021-06-13",
		},
		{
			Tokens: []Token{{Begin: 43, End: 47, Text: "next"}, {Begin: 48, End: 55, Text: "Tuesday"}},
			Type:   TimexDate,
			Value:  "2021-07-06",
		},
		{
			Tokens: []Token{{Begin: 59, End: 62, Text: "5pm"}},
			Type:   TimexTime,
			Value:  "T17:00",
		},
		{
			Tokens: []Token{{Begin: 63, End: 68, Text: "every"}, {Begin: 69, End: 72, Text: "day"}},
			Type:   TimexSet,
			Value:  "P1D",
		},
	}

	m := NewMapper()
	result, err := m.Map(context.Background(), Input{Expressions: exprs, DocumentLength: len(text)}, nil)
	require.NoError(t, err)
	require.Len(t, result.Annotations, 4)

	for i, e := range exprs {
		start, end, ok := e.Span()
		require.True(t, ok)
		assert.Equal(t, start, result.Annotations[i].Start)
		assert.Equal(t, end, result.Annotations[i].End)
		assert.Equal(t, string(e.Type), result.Annotations[i].Features["Type"])
		assert.Equal(t, e.Value, result.Annotations[i].Features["Value"])
	}
	assert.Equal(t, "three weeks ago", text[result.Annotations[0].Start:result.Annotations[0].End])
	assert.Equal(t, "next Tuesday", text[result.Annotations[1].Start:result.Annotations[1].End])
}

func TestMapper_ValuePreservedVerbatim(t *testing.T) {
	m := NewMapper()
	values := []string{"P3W", "2021-W27", "XXXX-XX-XXT17:00", "PRESENT_REF", "2021-07-04T10:00-05:00"}
	exprs := make([]Expression, 0, len(values))
	for i, v := range values {
		exprs = append(exprs, expr(i*2, i*2+1, TimexDuration, v))
	}

	result, err := m.Map(context.Background(), Input{Expressions: exprs, DocumentLength: 20}, nil)
	require.NoError(t, err)
	for i, v := range values {
		assert.Equal(t, v, result.Annotations[i].Features[FeatureValue])
	}
}

func TestMapper_AltValueFeature(t *testing.T) {
	m := NewMapper()
	unresolved := expr(0, 13, TimexSet, "")
	unresolved.AltValue = "XXXX-WXX-2"
	exprs := []Expression{unresolved, expr(14, 20, TimexDate, "2021-07-06")}

	result, err := m.Map(context.Background(), Input{Expressions: exprs, DocumentLength: 20}, nil)
	require.NoError(t, err)
	require.Len(t, result.Annotations, 2)

	assert.Equal(t, "", result.Annotations[0].Features[FeatureValue])
	assert.Equal(t, "XXXX-WXX-2", result.Annotations[0].Features[FeatureAltValue])
	assert.NotContains(t, result.Annotations[1].Features, FeatureAltValue)
	assert.Equal(t, "2021-07-06", result.Annotations[1].Features[FeatureValue])
}

func TestMapper_InvalidSpansAreSkipped(t *testing.T) {
	tests := []struct {
		name string
		bad  Expression
	}{
		{"out of bounds", expr(45, 60, TimexDate, "2021")},
		{"negative start", expr(-1, 3, TimexDate, "2021")},
		{"empty span", expr(5, 5, TimexDate, "2021")},
		{"reversed span", expr(8, 4, TimexDate, "2021")},
		{"no tokens", Expression{Type: TimexDate, Value: "2021"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exprs := []Expression{
				expr(0, 4, TimexDate, "2021"),
				tt.bad,
				expr(20, 30, TimexDuration, "P1D"),
			}
			sink := &recordingSink{}
			m := NewMapper(WithSink(sink))

			result, err := m.Map(context.Background(), Input{Expressions: exprs, DocumentLength: 50}, nil)
			require.NoError(t, err)
			assert.Equal(t, 2, result.Summary.AnnotationCount)
			assert.Len(t, result.Annotations, 2)
			assert.Equal(t, 2, sink.calls())

			require.Len(t, result.Summary.Skipped, 1)
			skipped := result.Summary.Skipped[0]
			assert.Equal(t, 1, skipped.Index)
			assert.ErrorIs(t, skipped, ErrInvalidSpan)
		})
	}
}

func TestMapper_SinkRejectionIsPerItem(t *testing.T) {
	sink := &recordingSink{
		reject: func(a Annotation) error {
			if a.Start == 10 {
				return errors.New("invalid offset")
			}
			return nil
		},
	}
	m := NewMapper(WithSink(sink))

	result, err := m.Map(context.Background(), Input{
		Expressions: []Expression{
			expr(0, 4, TimexDate, "a"),
			expr(10, 14, TimexDate, "b"),
			expr(20, 24, TimexDate, "c"),
		},
		DocumentLength: 30,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.AnnotationCount)
	require.Len(t, result.Summary.Skipped, 1)
	assert.True(t, IsKind(result.Summary.Skipped[0], KindInvalidSpan))
	assert.Equal(t, "a", result.Annotations[0].Features[FeatureValue])
	assert.Equal(t, "c", result.Annotations[1].Features[FeatureValue])
}

func TestMapper_DocInfo(t *testing.T) {
	sink := &recordingSink{}
	m := NewMapper(WithSink(sink), WithReferenceDateRecord(true))

	result, err := m.Map(context.Background(), Input{
		Expressions:    []Expression{expr(10, 15, TimexDate, "2021-07-04")},
		DocumentLength: 50,
		ReferenceDate:  "2021-07-04",
	}, nil)
	require.NoError(t, err)
	require.Len(t, result.Annotations, 2)

	docInfo := result.Annotations[0]
	assert.Equal(t, "DOCINFO", docInfo.Kind)
	assert.Equal(t, 0, docInfo.Start)
	assert.Equal(t, 50, docInfo.End)
	assert.Equal(t, "2021-07-04", docInfo.Features["ReferenceDate"])
	assert.Equal(t, "TIMEX3", result.Annotations[1].Kind)
	assert.Equal(t, 2, result.Summary.AnnotationCount)
}

func TestMapper_CustomAnnotationName(t *testing.T) {
	m := NewMapper(WithAnnotationName("Timex"))

	result, err := m.Map(context.Background(), Input{
		Expressions:    []Expression{expr(0, 4, TimexDate, "2021")},
		DocumentLength: 4,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Timex", result.Annotations[0].Kind)
}

func TestMapper_Progress(t *testing.T) {
	progress := &recordingProgress{}
	m := NewMapper()

	_, err := m.Map(context.Background(), Input{
		Expressions: []Expression{
			expr(0, 10, TimexDate, "a"),
			expr(20, 25, TimexDate, "b"),
			expr(30, 40, TimexDate, "c"),
			expr(90, 120, TimexDate, "out of bounds"),
		},
		DocumentLength: 40,
	}, progress)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 0.625, 1, 1}, progress.fractions)
}

type panickingProgress struct{}

func (panickingProgress) Progress(float64) { panic("sink is broken") }
func (panickingProgress) Status(string)    { panic("sink is broken") }

func TestMapper_FailingProgressDoesNotAbort(t *testing.T) {
	m := NewMapper()

	result, err := m.Map(context.Background(), Input{
		Expressions:    []Expression{expr(0, 4, TimexDate, "a"), expr(5, 9, TimexDate, "b")},
		DocumentLength: 10,
	}, panickingProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.AnnotationCount)
}

func TestMapper_ElapsedUsesClock(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	clock := func() time.Time {
		calls++
		return base.Add(time.Duration(calls-1) * 1500 * time.Millisecond)
	}
	m := NewMapper(WithMapperClock(clock))

	result, err := m.Map(context.Background(), Input{
		Expressions:    []Expression{expr(0, 4, TimexDate, "a")},
		DocumentLength: 4,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, result.Summary.ElapsedSeconds())
}

func TestMapper_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMapper()

	result, err := m.Map(ctx, Input{
		Expressions:    []Expression{expr(0, 4, TimexDate, "a")},
		DocumentLength: 4,
	}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Summary.AnnotationCount)
}
