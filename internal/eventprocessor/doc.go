// Package eventprocessor correlates a build's event stream into per-framework results.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│      buildevent.Source                  │
//	│      (Dispatcher, replayed event log)   │
//	└─────────────────┬───────────────────────┘
//	                  │ Subscribe(kind)
//	                  ▼
//	┌─────────────────────────────────────────┐
//	│   eventprocessor.Processor              │  ← Event correlation
//	│   - Routes by event kind                │
//	│   - Tracks project and target stacks    │
//	└─────────┬───────────────────────────────┘
//	          │
//	          ├──→ EvaluationFinished ──→ evaluation side-table
//	          │                           - Snapshot per evaluation id
//	          │
//	          ├──→ ProjectStarted ──────→ result.Registry
//	          │    ProjectFinished        - One Result per TFM
//	          │                           - Status on finish
//	          │
//	          ├──→ TargetStarted ───────→ target stack
//	          │    TargetFinished         - Mismatch is fatal
//	          │
//	          ├──→ MessageRaised ───────→ compiler extractors
//	          │                           - First command wins
//	          │
//	          ├──→ ErrorRaised ─────────→ diagnostic sink
//	          │
//	          └──→ BuildFinished ───────→ overall success
//
// Listeners passed in Options are initialized against the same source and shut
// down by Close, typically the OTEL formatter and the event log recorder.
package eventprocessor
