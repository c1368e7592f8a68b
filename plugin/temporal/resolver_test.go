package temporal

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFileMetadata implements FileMetadata for testing.
type MockFileMetadata struct {
	mock.Mock
}

func (m *MockFileMetadata) Stat(ctx context.Context, path string) (*FileTimes, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileTimes), args.Error(1)
}

// MockAnnotationReader implements AnnotationReader for testing.
type MockAnnotationReader struct {
	mock.Mock
}

func (m *MockAnnotationReader) ListAnnotations(ctx context.Context, documentID, set, annotationType string) ([]Annotation, error) {
	args := m.Called(ctx, documentID, set, annotationType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Annotation), args.Error(1)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func timePtr(t time.Time) *time.Time {
	return &t
}

var testDoc = DocumentContext{
	ID:         "doc-1",
	Name:       "report.txt",
	Length:     50,
	SourcePath: "/data/report.txt",
}

func TestResolver_Today(t *testing.T) {
	now := time.Date(2026, 1, 27, 10, 0, 0, 0, time.UTC)
	r := NewResolver(WithClock(fixedClock(now)), WithLocation(time.UTC))

	got, err := r.Resolve(context.Background(), Today{}, testDoc)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-27", got)

	// Deterministic for a fixed clock.
	again, err := r.Resolve(context.Background(), Today{}, testDoc)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestResolver_TodayUsesLocation(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	now := time.Date(2026, 1, 27, 20, 0, 0, 0, time.UTC)
	r := NewResolver(WithClock(fixedClock(now)), WithLocation(tokyo))

	got, err := r.Resolve(context.Background(), Today{}, testDoc)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-28", got)
}

func TestResolver_NilStrategy(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(context.Background(), nil, testDoc)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoReferenceDate))
	assert.ErrorIs(t, err, ErrNoReferenceDate)
	assert.Contains(t, err.Error(), "report.txt")
}

func TestResolver_ParsedEmptySelector(t *testing.T) {
	r := NewResolver()

	_, err := r.Resolve(context.Background(), ParseStrategy("", FromAnnotation{}), testDoc)
	assert.True(t, IsKind(err, KindNoReferenceDate))
}

func TestResolver_Explicit(t *testing.T) {
	r := NewResolver()

	got, err := r.Resolve(context.Background(), Explicit{Date: "2021-07-04"}, testDoc)
	require.NoError(t, err)
	assert.Equal(t, "2021-07-04", got)

	for _, bad := range []string{"2023-02-30", "2023-13-01", "2023-00-10", "04/07/2021", "2021-07-04 "} {
		t.Run(bad, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), Explicit{Date: bad}, testDoc)
			require.Error(t, err)
			assert.True(t, IsKind(err, KindInvalidDateFormat))

			var te *Error
			require.ErrorAs(t, err, &te)
			assert.Equal(t, bad, te.Value)
		})
	}
}

func TestResolver_FileDates(t *testing.T) {
	created := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	accessed := time.Date(2022, 5, 6, 12, 0, 0, 0, time.UTC)
	modified := time.Date(2021, 11, 30, 12, 0, 0, 0, time.UTC)

	files := &MockFileMetadata{}
	files.On("Stat", mock.Anything, "/data/report.txt").Return(&FileTimes{
		Created:  timePtr(created),
		Accessed: timePtr(accessed),
		Modified: timePtr(modified),
	}, nil)

	r := NewResolver(WithFileMetadata(files), WithLocation(time.UTC))

	tests := []struct {
		strategy Strategy
		want     string
	}{
		{FileCreationDate{}, "2020-03-01"},
		{FileLastAccessDate{}, "2022-05-06"},
		{FileLastModifiedDate{}, "2021-11-30"},
	}
	for _, tt := range tests {
		t.Run(tt.strategy.Selector(), func(t *testing.T) {
			got, err := r.Resolve(context.Background(), tt.strategy, testDoc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	files.AssertNumberOfCalls(t, "Stat", 3)
}

func TestResolver_MissingFileDate(t *testing.T) {
	t.Run("attribute not tracked", func(t *testing.T) {
		files := &MockFileMetadata{}
		files.On("Stat", mock.Anything, mock.Anything).Return(&FileTimes{
			Modified: timePtr(time.Now()),
		}, nil)
		r := NewResolver(WithFileMetadata(files))

		_, err := r.Resolve(context.Background(), FileCreationDate{}, testDoc)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindMissingFileDate))
		assert.Contains(t, err.Error(), "creationDate")
	})

	t.Run("io fault is translated", func(t *testing.T) {
		ioErr := errors.New("permission denied")
		files := &MockFileMetadata{}
		files.On("Stat", mock.Anything, mock.Anything).Return(nil, ioErr)
		r := NewResolver(WithFileMetadata(files))

		_, err := r.Resolve(context.Background(), FileLastModifiedDate{}, testDoc)
		require.Error(t, err)
		assert.True(t, IsKind(err, KindMissingFileDate))
		assert.ErrorIs(t, err, ioErr)
	})

	t.Run("no backing file", func(t *testing.T) {
		files := &MockFileMetadata{}
		r := NewResolver(WithFileMetadata(files))
		doc := testDoc
		doc.SourcePath = ""

		_, err := r.Resolve(context.Background(), FileLastAccessDate{}, doc)
		assert.True(t, IsKind(err, KindMissingFileDate))
		files.AssertNotCalled(t, "Stat", mock.Anything, mock.Anything)
	})

	t.Run("no metadata source", func(t *testing.T) {
		r := NewResolver()

		_, err := r.Resolve(context.Background(), FileCreationDate{}, testDoc)
		assert.True(t, IsKind(err, KindMissingFileDate))
	})
}

func TestResolver_FromAnnotation(t *testing.T) {
	s := FromAnnotation{AnnotationSet: "Original markups", AnnotationType: "meta", FeatureName: "date"}

	dated := func(v string) Annotation {
		return Annotation{Kind: "meta", Features: map[string]string{"date": v}}
	}

	tests := []struct {
		name        string
		annotations []Annotation
		want        string
		wantErr     bool
	}{
		{
			name:        "first valid wins",
			annotations: []Annotation{dated("2021-07-04"), dated("2022-01-01")},
			want:        "2021-07-04",
		},
		{
			name:        "skips invalid candidates",
			annotations: []Annotation{dated("2023-02-30"), {Kind: "meta"}, dated("July 4"), dated("2019-12-31"), dated("2020-01-01")},
			want:        "2019-12-31",
		},
		{
			name:        "none valid",
			annotations: []Annotation{dated("2023-13-01"), dated("not a date"), {Kind: "meta", Features: map[string]string{"other": "2021-07-04"}}},
			wantErr:     true,
		},
		{
			name:        "no candidates",
			annotations: []Annotation{},
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &MockAnnotationReader{}
			reader.On("ListAnnotations", mock.Anything, "doc-1", "Original markups", "meta").Return(tt.annotations, nil)
			r := NewResolver(WithAnnotationReader(reader))

			got, err := r.Resolve(context.Background(), s, testDoc)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindNoValidDateInAnnotations))
				// Exhaustion is terminal: never reported as a format error on the last candidate.
				assert.False(t, IsKind(err, KindInvalidDateFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolver_FromAnnotationReaderError(t *testing.T) {
	reader := &MockAnnotationReader{}
	reader.On("ListAnnotations", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("set not found"))
	r := NewResolver(WithAnnotationReader(reader))

	_, err := r.Resolve(context.Background(), FromAnnotation{AnnotationSet: "x", AnnotationType: "y", FeatureName: "z"}, testDoc)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoValidDateInAnnotations))
	assert.Contains(t, err.Error(), "set not found")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInvalidSpan, KindOf(errors.Wrap(invalidSpan("x"), "context")))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}
