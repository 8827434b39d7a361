package eventstream

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/timesync"

	"github.com/tidwall/sjson"
)

// Recorder is a buildevent.Listener writing every event it sees as one line
// of an event log.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	conv   *timesync.Converter
	unsubs []func()
	count  int
}

// NewRecorder creates a recorder writing to w. Timestamps are written as ticks
// in conv's location.
func NewRecorder(w io.Writer, conv *timesync.Converter) *Recorder {
	if conv == nil {
		conv = timesync.NewConverter(nil)
	}
	return &Recorder{
		w:    bufio.NewWriter(w),
		conv: conv,
	}
}

// Initialize subscribes to every event kind.
func (r *Recorder) Initialize(src buildevent.Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range buildevent.Kinds {
		r.unsubs = append(r.unsubs, src.Subscribe(kind, r.record))
	}
	return nil
}

// Shutdown unsubscribes and flushes buffered lines.
func (r *Recorder) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, unsubscribe := range r.unsubs {
		unsubscribe()
	}
	r.unsubs = nil

	if err := r.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush event log: %w", err)
	}
	return nil
}

// Count returns the number of events recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Recorder) record(ev buildevent.Event) error {
	line, err := Encode(ev, r.conv)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write event log: %w", err)
	}
	r.count++
	return nil
}

// Encode renders ev as a single-line JSON object understood by Decoder.
func Encode(ev buildevent.Event, conv *timesync.Converter) ([]byte, error) {
	enc := encoder{buf: []byte(`{}`)}
	h := ev.Header()

	enc.set("kind", ev.Kind().String())
	if h.ProjectFile != "" {
		enc.set("projectFile", h.ProjectFile)
	}
	if h.EvaluationID != 0 {
		enc.set("evaluationId", h.EvaluationID)
	}
	if !h.Timestamp.IsZero() {
		enc.set("timestamp", conv.WallClockToTicks(h.Timestamp))
	}

	switch e := ev.(type) {
	case *buildevent.EvaluationFinished:
		enc.properties(e.Properties)
		enc.items(e.Items)
	case *buildevent.ProjectStarted:
		enc.properties(e.Properties)
		enc.items(e.Items)
	case *buildevent.ProjectFinished:
		enc.set("succeeded", e.Succeeded)
	case *buildevent.TargetStarted:
		enc.set("targetName", e.TargetName)
	case *buildevent.TargetFinished:
		enc.set("targetName", e.TargetName)
		enc.set("succeeded", e.Succeeded)
	case *buildevent.MessageRaised:
		enc.setNonEmpty("senderName", e.SenderName)
		enc.setNonEmpty("message", e.Message)
		enc.setNonEmpty("taskName", e.TaskName)
		enc.setNonEmpty("commandLine", e.CommandLine)
	case *buildevent.ErrorRaised:
		enc.setNonEmpty("code", e.Code)
		enc.setNonEmpty("file", e.File)
		if e.Line != 0 {
			enc.set("lineNumber", e.Line)
		}
		enc.set("message", e.Message)
	case *buildevent.BuildFinished:
		enc.set("succeeded", e.Succeeded)
	}

	if enc.err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Kind(), enc.err)
	}
	return enc.buf, nil
}

type encoder struct {
	buf []byte
	err error
}

func (e *encoder) set(path string, value interface{}) {
	if e.err != nil {
		return
	}
	e.buf, e.err = sjson.SetBytes(e.buf, path, value)
}

func (e *encoder) setNonEmpty(path, value string) {
	if value != "" {
		e.set(path, value)
	}
}

func (e *encoder) setRaw(path string, raw []byte) {
	if e.err != nil {
		return
	}
	e.buf, e.err = sjson.SetRawBytes(e.buf, path, raw)
}

// properties are written as an array to keep their order; nil is omitted so
// that ProjectStarted round-trips "not inline".
func (e *encoder) properties(props []buildevent.Property) {
	if props == nil {
		return
	}
	e.setRaw("properties", []byte(`[]`))
	for _, p := range props {
		elem := encoder{buf: []byte(`{}`)}
		elem.set("name", p.Name)
		elem.set("value", p.Value)
		if elem.err != nil {
			e.err = elem.err
			return
		}
		e.setRaw("properties.-1", elem.buf)
	}
}

func (e *encoder) items(items []buildevent.Item) {
	if items == nil {
		return
	}
	e.setRaw("items", []byte(`[]`))
	for _, it := range items {
		elem := encoder{buf: []byte(`{}`)}
		elem.set("type", it.Type)
		elem.set("spec", it.Spec)
		if len(it.Metadata) > 0 {
			elem.set("metadata", it.Metadata)
		}
		if elem.err != nil {
			e.err = elem.err
			return
		}
		e.setRaw("items.-1", elem.buf)
	}
}
