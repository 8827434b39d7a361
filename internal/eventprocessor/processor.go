package eventprocessor

import (
	"errors"
	"fmt"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/compiler"
	"github.com/mrzor/buildlens/internal/projectpath"
	"github.com/mrzor/buildlens/internal/result"
)

// coreCompile is the target inside which the real compiler invocation happens.
const coreCompile = "CoreCompile"

// Sink receives the errors the build engine reports.
// *log.Logger from charmbracelet/log satisfies it.
type Sink interface {
	Error(msg interface{}, keyvals ...interface{})
}

// Options configures a Processor.
type Options struct {
	// ProjectFile is the project to analyze. When empty, the first
	// ProjectStarted event decides.
	ProjectFile string

	// Sink receives ErrorRaised events. Nil drops them.
	Sink Sink

	// Listeners are attached to the source for the lifetime of the processor.
	Listeners []buildevent.Listener

	// DisableAnalysis attaches the listeners only.
	DisableAnalysis bool
}

// Processor correlates the events of one build into results.
// It is driven by its source and is not safe for concurrent delivery;
// buildevent.Dispatcher serializes delivery.
type Processor struct {
	listeners []buildevent.Listener
	sink      Sink
	subs      []func()
	closed    bool

	projectFile string // normalized; empty until known
	registry    *result.Registry
	extractors  []compiler.Extractor
	evaluations map[int]*result.PropertiesAndItems // evaluation id -> snapshot

	current stack[*result.Result] // nil entries stand for projects without data
	targets stack[string]

	overallSuccess bool
	buildFinished  bool
	err            error
}

// New attaches a processor and its listeners to src.
func New(src buildevent.Source, opts Options) (*Processor, error) {
	p := &Processor{
		sink:        opts.Sink,
		projectFile: projectpath.Normalize(opts.ProjectFile),
		registry:    result.NewRegistry(projectpath.Absolute(opts.ProjectFile)),
		extractors:  compiler.Extractors(),
		evaluations: make(map[int]*result.PropertiesAndItems),
	}

	for _, l := range opts.Listeners {
		if err := l.Initialize(src); err != nil {
			_ = p.shutdownListeners()
			return nil, fmt.Errorf("failed to initialize listener %T: %w", l, err)
		}
		p.listeners = append(p.listeners, l)
	}

	if opts.DisableAnalysis {
		return p, nil
	}

	on(p, src, buildevent.KindEvaluationFinished, p.evaluationFinished)
	on(p, src, buildevent.KindProjectStarted, p.projectStarted)
	on(p, src, buildevent.KindProjectFinished, p.projectFinished)
	on(p, src, buildevent.KindTargetStarted, p.targetStarted)
	on(p, src, buildevent.KindTargetFinished, p.targetFinished)
	on(p, src, buildevent.KindMessageRaised, p.messageRaised)
	on(p, src, buildevent.KindBuildFinished, p.buildFinishedEvent)
	if p.sink != nil {
		on(p, src, buildevent.KindErrorRaised, p.errorRaised)
	}

	return p, nil
}

// on subscribes a typed handler. Once a handler fails the processor is
// poisoned and every later event returns the same error.
func on[E buildevent.Event](p *Processor, src buildevent.Source, kind buildevent.Kind, fn func(E) error) {
	unsubscribe := src.Subscribe(kind, func(ev buildevent.Event) error {
		if p.err != nil {
			return p.err
		}
		e, ok := ev.(E)
		if !ok {
			p.err = fmt.Errorf("%w: %s event has type %T", ErrMalformedEventStream, kind, ev)
			return p.err
		}
		if err := fn(e); err != nil {
			p.err = err
			return err
		}
		return nil
	})
	p.subs = append(p.subs, unsubscribe)
}

// ProjectFile returns the normalized path of the analyzed project, or "" if
// no project has started yet.
func (p *Processor) ProjectFile() string { return p.projectFile }

// BuildFinished reports whether a BuildFinished event was seen.
func (p *Processor) BuildFinished() bool { return p.buildFinished }

// Results returns what has been learned so far. After a fatal stream error the
// partial results are returned together with that error.
func (p *Processor) Results() (*result.Results, error) {
	return p.registry.Snapshot(p.overallSuccess), p.err
}

// Close removes every subscription and shuts the listeners down. It is safe to
// call more than once.
func (p *Processor) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	for _, unsubscribe := range p.subs {
		unsubscribe()
	}
	p.subs = nil

	return p.shutdownListeners()
}

func (p *Processor) shutdownListeners() error {
	var errs []error
	for _, l := range p.listeners {
		if err := l.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down listener %T: %w", l, err))
		}
	}
	p.listeners = nil
	return errors.Join(errs...)
}

func (p *Processor) isTracked(projectFile string) bool {
	return p.projectFile != "" && projectpath.Normalize(projectFile) == p.projectFile
}

func (p *Processor) evaluationFinished(e *buildevent.EvaluationFinished) error {
	p.evaluations[e.EvaluationID] = result.NewPropertiesAndItems(e.Properties, e.Items)
	return nil
}

func (p *Processor) projectStarted(e *buildevent.ProjectStarted) error {
	if p.projectFile == "" {
		if path := projectpath.Normalize(e.ProjectFile); path != "" {
			p.projectFile = path
			p.registry.SetProjectFile(projectpath.Absolute(e.ProjectFile))
		}
	}
	if !p.isTracked(e.ProjectFile) {
		return nil
	}

	data := p.snapshotFor(e)
	if data == nil {
		p.current.push(nil)
		return nil
	}

	r := p.registry.GetOrCreate(data.TargetFramework())
	r.ProcessProject(data)
	p.current.push(r)
	return nil
}

// snapshotFor prefers data logged inline with the event and falls back to the
// evaluation the event refers to.
func (p *Processor) snapshotFor(e *buildevent.ProjectStarted) *result.PropertiesAndItems {
	if e.Properties != nil || e.Items != nil {
		return result.NewPropertiesAndItems(e.Properties, e.Items)
	}
	return p.evaluations[e.EvaluationID]
}

func (p *Processor) projectFinished(e *buildevent.ProjectFinished) error {
	if !p.isTracked(e.ProjectFile) {
		return nil
	}

	r, ok := p.current.pop()
	if !ok {
		return fmt.Errorf("%w: project %q finished but was never started", ErrMalformedEventStream, e.ProjectFile)
	}
	if r != nil {
		r.Finish(e.Succeeded)
	}
	return nil
}

func (p *Processor) targetStarted(e *buildevent.TargetStarted) error {
	p.targets.push(e.TargetName)
	return nil
}

func (p *Processor) targetFinished(e *buildevent.TargetFinished) error {
	top, ok := p.targets.peek()
	if !ok || top != e.TargetName {
		return &MismatchedTargetError{Expected: top, Actual: e.TargetName}
	}
	p.targets.pop()
	return nil
}

func (p *Processor) messageRaised(e *buildevent.MessageRaised) error {
	r, ok := p.current.peek()
	if !ok || r == nil {
		return nil
	}

	// Until a command is recorded, messages attributed to other projects are
	// accepted too. Once recorded, the command is never replaced.
	if r.HasCompiler() {
		return nil
	}

	inCoreCompile := contains(&p.targets, coreCompile)
	for _, x := range p.extractors {
		if !x.Matches(e) {
			continue
		}
		if cmd, ok := x.Extract(e, inCoreCompile); ok {
			r.RecordCompiler(cmd)
			return nil
		}
	}
	return nil
}

func (p *Processor) errorRaised(e *buildevent.ErrorRaised) error {
	p.sink.Error(e.Message,
		"code", e.Code,
		"file", e.File,
		"line", e.Line,
		"project", e.ProjectFile,
	)
	return nil
}

func (p *Processor) buildFinishedEvent(e *buildevent.BuildFinished) error {
	p.overallSuccess = e.Succeeded
	p.buildFinished = true
	return nil
}
