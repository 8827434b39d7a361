package output

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mrzor/buildlens/internal/attributes"
	"github.com/mrzor/buildlens/internal/buildevent"
	buildotel "github.com/mrzor/buildlens/internal/otel"
	"github.com/mrzor/buildlens/internal/projectpath"
	"github.com/mrzor/buildlens/internal/result"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ResultSource exposes the results correlated so far. *eventprocessor.Processor
// satisfies it.
type ResultSource interface {
	Results() (*result.Results, error)
}

// OTELOptions configures an OTELFormatter.
type OTELOptions struct {
	Evaluator *attributes.Evaluator
	TraceID   *attributes.TraceIDEvaluator
	ParentID  *attributes.ParentIDEvaluator
	// Environ is exposed to expressions as env.
	Environ map[string]string
	// ProjectFile is reported on the build span before any project starts.
	ProjectFile string
}

type spanFrame struct {
	ctx     context.Context
	span    trace.Span
	name    string // project file or target name
	tfm     string
	project bool
}

// OTELFormatter mirrors the build timeline as OpenTelemetry spans.
// Like every listener it is driven by the source's serialized delivery.
type OTELFormatter struct {
	tracer  trace.Tracer
	opts    OTELOptions
	results ResultSource

	unsubs []func()

	build       *spanFrame
	projectFile string
	frames      []*spanFrame // open projects and targets, innermost last
	evaluations map[int]string
	last        time.Time
	spans       int
}

// NewOTELFormatter creates a formatter that starts spans on tracer.
func NewOTELFormatter(tracer trace.Tracer, opts OTELOptions) *OTELFormatter {
	return &OTELFormatter{
		tracer: tracer,
		opts:   opts,
	}
}

// Bind gives project spans access to correlated results, so custom attributes
// can see the compiler invocation and derived data.
func (f *OTELFormatter) Bind(results ResultSource) {
	f.results = results
}

// Initialize implements buildevent.Listener.
func (f *OTELFormatter) Initialize(src buildevent.Source) error {
	if f.tracer == nil {
		return fmt.Errorf("otel formatter: no tracer")
	}
	f.reset()
	for _, kind := range buildevent.Kinds {
		f.unsubs = append(f.unsubs, src.Subscribe(kind, f.handle))
	}
	return nil
}

// Shutdown implements buildevent.Listener. Spans still open, because the
// build never finished, are ended as incomplete.
func (f *OTELFormatter) Shutdown() error {
	for _, unsubscribe := range f.unsubs {
		unsubscribe()
	}
	f.unsubs = nil

	if f.build != nil {
		for len(f.frames) > 0 {
			f.endFrame(f.pop(), f.last, false, true)
		}
		f.endBuild(f.last, false, true)
	}
	return nil
}

// Spans returns how many spans were ended during the current build.
func (f *OTELFormatter) Spans() int { return f.spans }

func (f *OTELFormatter) reset() {
	f.build = nil
	f.projectFile = projectpath.Normalize(f.opts.ProjectFile)
	f.frames = nil
	f.evaluations = make(map[int]string)
	f.last = time.Time{}
	f.spans = 0
}

func (f *OTELFormatter) handle(ev buildevent.Event) error {
	ts := ev.Header().Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	f.last = ts
	f.startBuild(ts)

	switch e := ev.(type) {
	case *buildevent.EvaluationFinished:
		f.evaluations[e.EvaluationID] = result.NewProperties(e.Properties).Value("TargetFrameworkMoniker")
	case *buildevent.ProjectStarted:
		f.projectStarted(e, ts)
	case *buildevent.ProjectFinished:
		f.projectFinished(e, ts)
	case *buildevent.TargetStarted:
		f.targetStarted(e, ts)
	case *buildevent.TargetFinished:
		f.targetFinished(e, ts)
	case *buildevent.MessageRaised:
		f.messageRaised(e, ts)
	case *buildevent.ErrorRaised:
		f.errorRaised(e, ts)
	case *buildevent.BuildFinished:
		for len(f.frames) > 0 {
			f.endFrame(f.pop(), ts, false, true)
		}
		f.endBuild(ts, e.Succeeded, false)
	}
	return nil
}

// startBuild opens the root span on the first event of a build.
func (f *OTELFormatter) startBuild(ts time.Time) {
	if f.build != nil {
		return
	}

	ctx := context.Background()
	var warnings []attribute.KeyValue
	env := attributes.BuildEnv(f.projectFile, f.opts.Environ)

	if f.opts.TraceID != nil {
		traceID, warn, err := f.opts.TraceID.EvaluateAndValidate(env)
		warnings = append(warnings, warn...)
		if err != nil {
			warnings = append(warnings, attribute.String("_trace_id_error", err.Error()))
		}
		var parentID trace.SpanID
		if f.opts.ParentID != nil {
			var perr error
			parentID, warn, perr = f.opts.ParentID.EvaluateAndValidate(env)
			warnings = append(warnings, warn...)
			if perr != nil {
				warnings = append(warnings, attribute.String("_parent_id_error", perr.Error()))
			}
		}
		if traceID.IsValid() && parentID.IsValid() {
			ctx = trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    traceID,
				SpanID:     parentID,
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			}))
		} else {
			ctx = buildotel.ContextWithTraceID(ctx, traceID)
		}
	}

	ctx, span := f.tracer.Start(ctx, "build",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(ts),
	)
	if len(warnings) > 0 {
		span.SetAttributes(warnings...)
	}
	f.build = &spanFrame{ctx: ctx, span: span}
}

func (f *OTELFormatter) endBuild(ts time.Time, succeeded, incomplete bool) {
	if f.build == nil {
		return
	}
	span := f.build.span

	span.SetAttributes(attribute.String("buildlens.project.file", f.projectFile))
	if incomplete {
		span.SetAttributes(attribute.Bool("buildlens.incomplete", true))
	}
	setStatus(span, succeeded, incomplete, "build failed")

	if f.opts.Evaluator != nil {
		attrs, err := f.opts.Evaluator.EvaluateCustomAttributes(attributes.BuildEnv(f.projectFile, f.opts.Environ))
		span.SetAttributes(attrs...)
		setError(span, err)
	}

	span.End(trace.WithTimestamp(ts))
	f.spans++
	f.build = nil
}

func (f *OTELFormatter) parent() context.Context {
	if n := len(f.frames); n > 0 {
		return f.frames[n-1].ctx
	}
	return f.build.ctx
}

func (f *OTELFormatter) pop() *spanFrame {
	n := len(f.frames)
	frame := f.frames[n-1]
	f.frames = f.frames[:n-1]
	return frame
}

func (f *OTELFormatter) projectStarted(e *buildevent.ProjectStarted, ts time.Time) {
	if f.projectFile == "" {
		f.projectFile = projectpath.Normalize(e.ProjectFile)
	}

	tfm, ok := f.evaluations[e.EvaluationID]
	if e.Properties != nil {
		tfm, ok = result.NewProperties(e.Properties).Value("TargetFrameworkMoniker"), true
	}

	attrs := []attribute.KeyValue{
		attribute.String("msbuild.project.file", e.ProjectFile),
		attribute.Int("msbuild.evaluation.id", e.EvaluationID),
	}
	if ok {
		attrs = append(attrs, attribute.String("msbuild.target_framework", tfm))
	}

	ctx, span := f.tracer.Start(f.parent(), "project "+filepath.Base(filepath.FromSlash(e.ProjectFile)),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(ts),
		trace.WithAttributes(attrs...),
	)
	f.frames = append(f.frames, &spanFrame{ctx: ctx, span: span, name: e.ProjectFile, tfm: tfm, project: true})
}

// projectFinished ends the innermost project span. Target spans left open
// inside it are ended first.
func (f *OTELFormatter) projectFinished(e *buildevent.ProjectFinished, ts time.Time) {
	idx := -1
	for i := len(f.frames) - 1; i >= 0; i-- {
		if f.frames[i].project {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	for len(f.frames) > idx+1 {
		f.endFrame(f.pop(), ts, false, true)
	}

	frame := f.pop()
	if f.opts.Evaluator != nil {
		attrs, err := f.opts.Evaluator.EvaluateCustomAttributes(f.projectEnv(frame, e.Succeeded))
		frame.span.SetAttributes(attrs...)
		setError(frame.span, err)
	}
	f.endFrame(frame, ts, e.Succeeded, false)
}

// projectEnv describes a finishing project to expressions. The analyzed
// project exposes its correlated result; the event decides the status since
// the processor may not have seen it yet.
func (f *OTELFormatter) projectEnv(frame *spanFrame, succeeded bool) attributes.Env {
	var env attributes.Env
	if f.results != nil {
		if rs, _ := f.results.Results(); rs != nil && projectpath.Equal(rs.ProjectFile(), frame.name) {
			if r, ok := rs.Get(frame.tfm); ok {
				env = attributes.ResultEnv(r, f.opts.Environ)
			}
		}
	}
	if env == nil {
		env = attributes.BuildEnv(frame.name, f.opts.Environ)
		env["tfm"] = frame.tfm
	}

	status := result.StatusFailed
	if succeeded {
		status = result.StatusSucceeded
	}
	env["status"] = status.String()
	env["succeeded"] = succeeded
	return env
}

func (f *OTELFormatter) targetStarted(e *buildevent.TargetStarted, ts time.Time) {
	ctx, span := f.tracer.Start(f.parent(), "target "+e.TargetName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(ts),
		trace.WithAttributes(
			attribute.String("msbuild.target.name", e.TargetName),
			attribute.String("msbuild.project.file", e.ProjectFile),
		),
	)
	f.frames = append(f.frames, &spanFrame{ctx: ctx, span: span, name: e.TargetName})
}

// targetFinished ends the innermost span when it is the named target. A
// mismatch is left for the processor to report.
func (f *OTELFormatter) targetFinished(e *buildevent.TargetFinished, ts time.Time) {
	n := len(f.frames)
	if n == 0 || f.frames[n-1].project || f.frames[n-1].name != e.TargetName {
		return
	}
	f.endFrame(f.pop(), ts, e.Succeeded, false)
}

func (f *OTELFormatter) messageRaised(e *buildevent.MessageRaised, ts time.Time) {
	if !e.IsCommandLine() {
		return
	}
	f.current().AddEvent("task.command_line",
		trace.WithTimestamp(ts),
		trace.WithAttributes(
			attribute.String("msbuild.task.name", e.TaskName),
			attribute.String("process.command_line", e.CommandLine),
		),
	)
}

func (f *OTELFormatter) errorRaised(e *buildevent.ErrorRaised, ts time.Time) {
	f.current().AddEvent("build.error",
		trace.WithTimestamp(ts),
		trace.WithAttributes(
			attribute.String("msbuild.error.code", e.Code),
			attribute.String("code.filepath", e.File),
			attribute.Int("code.lineno", e.Line),
			attribute.String("msbuild.error.message", e.Message),
		),
	)
}

func (f *OTELFormatter) current() trace.Span {
	return trace.SpanFromContext(f.parent())
}

func (f *OTELFormatter) endFrame(frame *spanFrame, ts time.Time, succeeded, incomplete bool) {
	if incomplete {
		frame.span.SetAttributes(attribute.Bool("buildlens.incomplete", true))
	}
	setStatus(frame.span, succeeded, incomplete, "failed")
	frame.span.End(trace.WithTimestamp(ts))
	f.spans++
}

func setStatus(span trace.Span, succeeded, incomplete bool, failure string) {
	switch {
	case incomplete:
		span.SetStatus(codes.Unset, "")
	case succeeded:
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Error, failure)
	}
}

// setError records custom attribute failures the way the tracer reports
// collection problems: as attributes, not as span status.
func setError(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("_tracing_error_0", err.Error()))
	}
}
