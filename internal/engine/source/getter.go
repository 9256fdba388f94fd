package source

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.trai.ch/zerr"
)

// Getter extracts one field from a raw record.
type Getter func(record map[string]any) (any, error)

// CompileGetter builds a Getter from a field spec. A spec starting with "="
// is an expression evaluated with the record as environment; otherwise it
// is a comma-separated list of dotted paths, the first non-nil one winning.
func CompileGetter(spec string) (Getter, error) {
	if code, ok := strings.CutPrefix(spec, "="); ok {
		return compileExpr(code)
	}
	return pathGetter(spec), nil
}

func compileExpr(code string) (Getter, error) {
	program, err := expr.Compile(code, expr.Env(map[string]any{}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to compile field expression"), "expr", code)
	}
	return func(record map[string]any) (any, error) {
		return run(program, code, record)
	}, nil
}

func run(program *vm.Program, code string, record map[string]any) (any, error) {
	out, err := expr.Run(program, record)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to evaluate field expression"), "expr", code)
	}
	return out, nil
}

func pathGetter(spec string) Getter {
	var paths [][]string
	for cand := range strings.SplitSeq(spec, ",") {
		paths = append(paths, strings.Split(strings.TrimSpace(cand), "."))
	}
	return func(record map[string]any) (any, error) {
		for _, path := range paths {
			if v := lookup(record, path); v != nil {
				return v, nil
			}
		}
		return nil, nil
	}
}

func lookup(record map[string]any, path []string) any {
	var cur any = record
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
