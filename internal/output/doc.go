// Package output turns analyzer results into something a person or a backend
// can consume.
//
// OTELFormatter is a buildevent.Listener. It mirrors the build timeline as
// OpenTelemetry spans while the events are delivered:
//
//	build                    first event .. BuildFinished
//	└── project A.csproj     ProjectStarted .. ProjectFinished
//	    └── target Build     TargetStarted .. TargetFinished
//	        └── ...          nested projects and targets
//
// Structured task command lines and engine errors become span events on the
// innermost open span. Custom attributes are evaluated when a span ends.
//
// Reports (Write, WriteTable, WriteJSON, WriteYAML) render the final Results.
package output
