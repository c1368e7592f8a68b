package store

import (
	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
)

// AnnotationFilter is a compiled CEL predicate over annotations.
//
// Available variables:
//
//	kind     string              annotation type, e.g. "TIMEX3"
//	set      string              annotation set name
//	start    int                 start offset
//	end      int                 end offset
//	features map(string, string) annotation features
//
// Example: kind == "TIMEX3" && features["Type"] == "DATE" && start < 100
type AnnotationFilter struct {
	source  string
	program cel.Program
}

var filterEnvOptions = []cel.EnvOption{
	cel.Variable("kind", cel.StringType),
	cel.Variable("set", cel.StringType),
	cel.Variable("start", cel.IntType),
	cel.Variable("end", cel.IntType),
	cel.Variable("features", cel.MapType(cel.StringType, cel.StringType)),
}

// CompileAnnotationFilter compiles expr. An empty expression yields a nil filter.
func CompileAnnotationFilter(expr string) (*AnnotationFilter, error) {
	if expr == "" {
		return nil, nil
	}

	env, err := cel.NewEnv(filterEnvOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create filter environment")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "invalid filter %q", expr)
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build filter %q", expr)
	}
	return &AnnotationFilter{source: expr, program: program}, nil
}

// String returns the filter source.
func (f *AnnotationFilter) String() string {
	return f.source
}

// Match evaluates the filter against a.
func (f *AnnotationFilter) Match(a *Annotation) (bool, error) {
	features := a.Features
	if features == nil {
		features = map[string]string{}
	}
	out, _, err := f.program.Eval(map[string]any{
		"kind":     a.Type,
		"set":      a.SetName,
		"start":    int64(a.StartOffset),
		"end":      int64(a.EndOffset),
		"features": features,
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to evaluate filter %q", f.source)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("filter %q does not evaluate to a bool", f.source)
	}
	return matched, nil
}
