package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAnnotationFilter(t *testing.T) {
	a := &Annotation{
		SetName:     "SUTime",
		Type:        "TIMEX3",
		StartOffset: 10,
		EndOffset:   15,
		Features:    map[string]string{"Type": "DATE", "Value": "2021-07-04"},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`kind == "TIMEX3"`, true},
		{`set == "Original markups"`, false},
		{`features["Type"] == "DATE" && features["Value"].startsWith("2021")`, true},
		{`start >= 10 && end <= 15`, true},
		{`end - start > 5`, false},
		{`"Value" in features`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			filter, err := CompileAnnotationFilter(tt.expr)
			require.NoError(t, err)
			got, err := filter.Match(a)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, filter.String())
		})
	}
}

func TestCompileAnnotationFilterErrors(t *testing.T) {
	filter, err := CompileAnnotationFilter("")
	require.NoError(t, err)
	assert.Nil(t, filter)

	_, err = CompileAnnotationFilter(`unknown == 1`)
	assert.Error(t, err)

	_, err = CompileAnnotationFilter(`kind ==`)
	assert.Error(t, err)

	filter, err = CompileAnnotationFilter(`kind`)
	require.NoError(t, err)
	_, err = filter.Match(&Annotation{Type: "TIMEX3"})
	assert.Error(t, err)
}

func TestValidateSpan(t *testing.T) {
	assert.NoError(t, ValidateSpan(0, 1, 1))
	assert.ErrorIs(t, ValidateSpan(0, 0, 1), ErrInvalidSpan)
	assert.ErrorIs(t, ValidateSpan(-1, 1, 1), ErrInvalidSpan)
	assert.ErrorIs(t, ValidateSpan(0, 2, 1), ErrInvalidSpan)
}

func TestFeaturesEncoding(t *testing.T) {
	raw, err := MarshalFeatures(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", raw)

	features, err := UnmarshalFeatures([]byte(`{"Type":"DATE"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Type": "DATE"}, features)

	_, err = UnmarshalFeatures([]byte(`not json`))
	assert.Error(t, err)
}
