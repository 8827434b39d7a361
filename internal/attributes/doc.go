// Package attributes provides expression evaluation for custom span
// attributes, result filters, trace IDs and parent span IDs.
//
// Expressions use the expr language and are evaluated against an Env
// describing one analyzed result (properties, items, compiler invocation,
// outcome) plus the analyzer's own environment variables.
//
// Four evaluators:
//   - Evaluator: Evaluates custom attribute expressions
//   - Filter: Selects results with a boolean expression
//   - TraceIDEvaluator: Evaluates and validates trace ID expressions (32 hex chars)
//   - ParentIDEvaluator: Evaluates and validates parent span ID expressions (16 hex chars)
//
// Invalid trace IDs are automatically hashed with SHA-256 to produce valid IDs.
// Invalid parent IDs result in a null parent (zero span ID).
package attributes
