package attributes

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mrzor/buildlens/internal/result"
)

// Filter selects results with a boolean expression, for example
//
//	tfm startsWith "net8" && succeeded
type Filter struct {
	program *vm.Program
	environ map[string]string
}

// NewFilter compiles exprStr. An empty expression matches every result.
func NewFilter(exprStr string, environ map[string]string) (*Filter, error) {
	f := &Filter{environ: environ}
	if exprStr == "" {
		return f, nil
	}

	program, err := expr.Compile(exprStr, expr.Env(map[string]interface{}(typeEnv())), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}
	f.program = program
	return f, nil
}

// Match reports whether r satisfies the filter.
func (f *Filter) Match(r *result.Result) (bool, error) {
	if f.program == nil {
		return true, nil
	}

	output, err := expr.Run(f.program, map[string]interface{}(ResultEnv(r, f.environ)))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate filter for %s: %w", r.TargetFramework(), err)
	}
	return output.(bool), nil
}

// Apply returns the results that satisfy the filter, in order.
func (f *Filter) Apply(results []*result.Result) ([]*result.Result, error) {
	if f.program == nil {
		return results, nil
	}

	var kept []*result.Result
	for _, r := range results {
		ok, err := f.Match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
