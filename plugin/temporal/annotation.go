package temporal

import "time"

// Annotation kinds and feature names written by the mapper.
const (
	KindTimex3  = "TIMEX3"
	KindDocInfo = "DOCINFO"

	FeatureType          = "Type"
	FeatureValue         = "Value"
	FeatureAltValue      = "AltValue"
	FeatureReferenceDate = "ReferenceDate"
)

// TimexType is the TIMEX3 type of an extracted expression.
type TimexType string

const (
	TimexDate     TimexType = "DATE"
	TimexTime     TimexType = "TIME"
	TimexDuration TimexType = "DURATION"
	TimexSet      TimexType = "SET"
)

// Valid reports whether t is one of the four TIMEX3 types.
func (t TimexType) Valid() bool {
	switch t {
	case TimexDate, TimexTime, TimexDuration, TimexSet:
		return true
	}
	return false
}

// Token is one extractor token with character offsets into the original text.
type Token struct {
	Begin int    `json:"begin"`
	End   int    `json:"end"`
	Text  string `json:"text,omitempty"`
}

// Expression is a temporal expression as returned by the extraction engine.
type Expression struct {
	TID    string    `json:"tid,omitempty"`
	Text   string    `json:"text,omitempty"`
	Tokens []Token   `json:"tokens"`
	Type   TimexType `json:"type"`
	Value  string    `json:"value"`

	// AltValue is the extractor's fallback when it cannot resolve Value, e.g. "XXXX-WXX-2".
	AltValue string `json:"altValue,omitempty"`
}

// Span returns the character offsets covered by the expression's tokens.
// ok is false when the expression has no tokens.
func (e Expression) Span() (start, end int, ok bool) {
	if len(e.Tokens) == 0 {
		return 0, 0, false
	}
	return e.Tokens[0].Begin, e.Tokens[len(e.Tokens)-1].End, true
}

// Annotation is a document-absolute span with a kind and features.
type Annotation struct {
	Start    int               `json:"start"`
	End      int               `json:"end"`
	Kind     string            `json:"kind"`
	Features map[string]string `json:"features,omitempty"`
}

// Summary describes a finished mapping run.
type Summary struct {
	AnnotationCount int           `json:"annotationCount"`
	Elapsed         time.Duration `json:"-"`
	Skipped         []*SpanError  `json:"-"`
}

// ElapsedSeconds returns the elapsed wall clock time in seconds.
func (s Summary) ElapsedSeconds() float64 {
	return s.Elapsed.Seconds()
}
