package attributes

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var errNoEnv = errors.New("no environment available")

func compileID(kind, exprStr string) (*vm.Program, error) {
	if exprStr == "" {
		return nil, nil
	}
	program, err := expr.Compile(exprStr, expr.Env(map[string]interface{}(typeEnv())))
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s expression: %w", kind, err)
	}
	return program, nil
}

func runID(kind string, program *vm.Program, env Env) (string, error) {
	if env == nil {
		return "", errNoEnv
	}
	output, err := expr.Run(program, map[string]interface{}(env))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate %s expression: %w", kind, err)
	}
	return fmt.Sprint(output), nil
}

// TraceIDEvaluator handles evaluation and validation of trace ID expressions.
type TraceIDEvaluator struct {
	program *vm.Program
}

// NewTraceIDEvaluator creates a new trace ID evaluator.
// If exprStr is empty, the evaluator will generate random trace IDs.
func NewTraceIDEvaluator(exprStr string) (*TraceIDEvaluator, error) {
	program, err := compileID("trace-id", exprStr)
	if err != nil {
		return nil, err
	}
	return &TraceIDEvaluator{program: program}, nil
}

// EvaluateAndValidate evaluates the trace-id expression and validates the result.
// Returns the trace ID, any warnings to attach to the span, and an error.
// If no expression is configured, returns a zero trace ID (caller should generate random).
func (e *TraceIDEvaluator) EvaluateAndValidate(env Env) (trace.TraceID, []attribute.KeyValue, error) {
	if e.program == nil {
		return trace.TraceID{}, nil, nil
	}

	resultStr, err := runID("trace-id", e.program, env)
	if err != nil {
		return trace.TraceID{}, nil, err
	}

	if len(resultStr) == 32 {
		if traceID, err := trace.TraceIDFromHex(resultStr); err == nil {
			return traceID, nil, nil
		}
	}

	// Invalid trace ID - hash it with SHA-256 and use first 32 hex chars
	hash := sha256.Sum256([]byte(resultStr))
	traceID, err := trace.TraceIDFromHex(hex.EncodeToString(hash[:16]))
	if err != nil {
		return trace.TraceID{}, nil, fmt.Errorf("failed to create trace ID from hash: %w", err)
	}

	warnings := []attribute.KeyValue{
		attribute.String("_trace_id_expr_result", resultStr),
		attribute.String("_trace_id_invalid_warning", fmt.Sprintf("Expression result %q is not a valid 32-char hex trace ID, used SHA-256 hash instead", resultStr)),
	}
	return traceID, warnings, nil
}

// ParentIDEvaluator handles evaluation and validation of parent span ID expressions.
type ParentIDEvaluator struct {
	program *vm.Program
}

// NewParentIDEvaluator creates a new parent ID evaluator.
// If exprStr is empty, the evaluator will return no parent ID (zero span ID).
func NewParentIDEvaluator(exprStr string) (*ParentIDEvaluator, error) {
	program, err := compileID("parent-id", exprStr)
	if err != nil {
		return nil, err
	}
	return &ParentIDEvaluator{program: program}, nil
}

// EvaluateAndValidate evaluates the parent-id expression and validates the result.
// If no expression is configured or the result is invalid, returns zero span ID (no parent).
func (e *ParentIDEvaluator) EvaluateAndValidate(env Env) (trace.SpanID, []attribute.KeyValue, error) {
	if e.program == nil {
		return trace.SpanID{}, nil, nil
	}

	resultStr, err := runID("parent-id", e.program, env)
	if err != nil {
		return trace.SpanID{}, nil, err
	}

	if len(resultStr) == 16 {
		if spanID, err := trace.SpanIDFromHex(resultStr); err == nil {
			return spanID, nil, nil
		}
	}

	warnings := []attribute.KeyValue{
		attribute.String("_parent_id_expr_result", resultStr),
		attribute.String("_parent_id_invalid_warning", fmt.Sprintf("Expression result %q is not a valid 16-char hex span ID, using null parent ID instead", resultStr)),
	}
	return trace.SpanID{}, warnings, nil
}
