// Package buildevent defines the build engine's event stream as consumed by buildlens.
package buildevent

import (
	"time"
)

// Kind identifies one of the eight build lifecycle events.
type Kind uint8

// Event kinds in the order the engine typically emits them.
const (
	KindEvaluationFinished Kind = iota + 1
	KindProjectStarted
	KindProjectFinished
	KindTargetStarted
	KindTargetFinished
	KindMessageRaised
	KindErrorRaised
	KindBuildFinished
)

// Kinds lists every event kind.
var Kinds = []Kind{
	KindEvaluationFinished,
	KindProjectStarted,
	KindProjectFinished,
	KindTargetStarted,
	KindTargetFinished,
	KindMessageRaised,
	KindErrorRaised,
	KindBuildFinished,
}

var kindNames = map[Kind]string{
	KindEvaluationFinished: "EvaluationFinished",
	KindProjectStarted:     "ProjectStarted",
	KindProjectFinished:    "ProjectFinished",
	KindTargetStarted:      "TargetStarted",
	KindTargetFinished:     "TargetFinished",
	KindMessageRaised:      "MessageRaised",
	KindErrorRaised:        "ErrorRaised",
	KindBuildFinished:      "BuildFinished",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// Meta holds the fields every event carries.
type Meta struct {
	ProjectFile  string
	EvaluationID int
	Timestamp    time.Time
}

// Event is implemented by the eight concrete event types.
type Event interface {
	Kind() Kind
	Header() Meta
}

// Property is a raw evaluated property as logged by the engine.
type Property struct {
	Name  string
	Value any
}

// Item is a raw evaluated item record as logged by the engine.
type Item struct {
	Type     string
	Spec     string
	Metadata map[string]string
}

// EvaluationFinished carries the properties and items computed by one evaluation.
type EvaluationFinished struct {
	Meta
	Properties []Property
	Items      []Item
}

// ProjectStarted marks the start of a project build. Properties and Items are
// nil when the engine did not log them inline; the evaluation id then links the
// project to an earlier EvaluationFinished.
type ProjectStarted struct {
	Meta
	Properties []Property
	Items      []Item
}

// ProjectFinished marks the end of a project build.
type ProjectFinished struct {
	Meta
	Succeeded bool
}

// TargetStarted marks the start of a target.
type TargetStarted struct {
	Meta
	TargetName string
}

// TargetFinished marks the end of a target.
type TargetFinished struct {
	Meta
	TargetName string
	Succeeded  bool
}

// MessageRaised is a free-form message. Structured task command-line messages
// also set TaskName and CommandLine.
type MessageRaised struct {
	Meta
	SenderName  string
	Message     string
	TaskName    string
	CommandLine string
}

// IsCommandLine reports whether the message is a structured task command line.
func (m *MessageRaised) IsCommandLine() bool {
	return m.TaskName != ""
}

// ErrorRaised is an error reported by the engine.
type ErrorRaised struct {
	Meta
	Code    string
	File    string
	Line    int
	Message string
}

// BuildFinished marks the end of the whole build.
type BuildFinished struct {
	Meta
	Succeeded bool
}

func (e *EvaluationFinished) Kind() Kind { return KindEvaluationFinished }
func (e *ProjectStarted) Kind() Kind     { return KindProjectStarted }
func (e *ProjectFinished) Kind() Kind    { return KindProjectFinished }
func (e *TargetStarted) Kind() Kind      { return KindTargetStarted }
func (e *TargetFinished) Kind() Kind     { return KindTargetFinished }
func (e *MessageRaised) Kind() Kind      { return KindMessageRaised }
func (e *ErrorRaised) Kind() Kind        { return KindErrorRaised }
func (e *BuildFinished) Kind() Kind      { return KindBuildFinished }

func (e *EvaluationFinished) Header() Meta { return e.Meta }
func (e *ProjectStarted) Header() Meta     { return e.Meta }
func (e *ProjectFinished) Header() Meta    { return e.Meta }
func (e *TargetStarted) Header() Meta      { return e.Meta }
func (e *TargetFinished) Header() Meta     { return e.Meta }
func (e *MessageRaised) Header() Meta      { return e.Meta }
func (e *ErrorRaised) Header() Meta        { return e.Meta }
func (e *BuildFinished) Header() Meta      { return e.Meta }
