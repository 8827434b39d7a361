package attributes

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/mrzor/buildlens/internal/config"
	"go.opentelemetry.io/otel/attribute"
)

// Evaluator handles compilation and evaluation of custom attribute expressions.
type Evaluator struct {
	customAttrs   []config.CustomAttribute
	compiledExprs []*vm.Program
}

// NewEvaluator creates a new attribute evaluator.
// It pre-compiles all custom attribute expressions for efficiency.
func NewEvaluator(customAttrs []config.CustomAttribute) (*Evaluator, error) {
	compiledExprs := make([]*vm.Program, len(customAttrs))
	for i, attr := range customAttrs {
		program, err := expr.Compile(attr.Expression, expr.Env(map[string]interface{}(typeEnv())))
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression for attribute %q: %w", attr.Name, err)
		}
		compiledExprs[i] = program
	}

	return &Evaluator{
		customAttrs:   customAttrs,
		compiledExprs: compiledExprs,
	}, nil
}

// Len returns the number of configured attributes.
func (e *Evaluator) Len() int { return len(e.customAttrs) }

// EvaluateCustomAttributes evaluates every custom attribute against env.
// An attribute whose expression fails is skipped; the failures are joined
// into the returned error alongside the attributes that did evaluate.
func (e *Evaluator) EvaluateCustomAttributes(env Env) ([]attribute.KeyValue, error) {
	if len(e.customAttrs) == 0 || env == nil {
		return nil, nil
	}

	var attrs []attribute.KeyValue
	var errs []error
	for i, customAttr := range e.customAttrs {
		output, err := expr.Run(e.compiledExprs[i], map[string]interface{}(env))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to evaluate expression for attribute %q: %w", customAttr.Name, err))
			continue
		}
		attrs = append(attrs, toAttributes(customAttr.Name, output)...)
	}

	return attrs, errors.Join(errs...)
}

// toAttributes converts an expression output. Maps expand into one attribute
// per key using dot notation, sorted by key.
func toAttributes(name string, output interface{}) []attribute.KeyValue {
	outputValue := reflect.ValueOf(output)
	if outputValue.Kind() != reflect.Map {
		return []attribute.KeyValue{scalarAttribute(name, output)}
	}

	keys := outputValue.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, key := range keys {
		attrName := name + "." + sanitizeAttributeName(fmt.Sprint(key.Interface()))
		attrs = append(attrs, attribute.String(attrName, fmt.Sprint(outputValue.MapIndex(key).Interface())))
	}
	return attrs
}

// scalarAttribute keeps booleans, integers and string slices typed; anything
// else is rendered as a string.
func scalarAttribute(name string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case bool:
		return attribute.Bool(name, val)
	case int:
		return attribute.Int(name, val)
	case int64:
		return attribute.Int64(name, val)
	case []string:
		return attribute.StringSlice(name, val)
	default:
		return attribute.String(name, fmt.Sprint(v))
	}
}

// sanitizeAttributeName replaces non-alphanumeric characters with underscores.
// This ensures attribute names are safe for OpenTelemetry.
func sanitizeAttributeName(name string) string {
	result := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			result[i] = c
		} else {
			result[i] = '_'
		}
	}
	return string(result)
}
