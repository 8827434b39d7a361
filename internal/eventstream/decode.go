package eventstream

import (
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/timesync"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned for a line that is not a JSON object.
	ErrInvalidJSON = errors.New("invalid JSON")
	// ErrUnknownKind is returned for an event whose kind is missing or unknown.
	ErrUnknownKind = errors.New("unknown event kind")
)

// DecodeError reports a line of an event log that could not be decoded.
type DecodeError struct {
	Line int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder turns event log lines into events.
type Decoder struct {
	conv *timesync.Converter
}

// NewDecoder creates a decoder converting tick timestamps with conv.
func NewDecoder(conv *timesync.Converter) *Decoder {
	if conv == nil {
		conv = timesync.NewConverter(nil)
	}
	return &Decoder{conv: conv}
}

// Decode decodes one line.
func (d *Decoder) Decode(line []byte) (buildevent.Event, error) {
	if !gjson.ValidBytes(line) {
		return nil, ErrInvalidJSON
	}
	obj := gjson.ParseBytes(line)
	if !obj.IsObject() {
		return nil, ErrInvalidJSON
	}

	name := field(obj, "kind").String()
	if name == "" {
		name = field(obj, "type").String()
	}
	kind, ok := buildevent.ParseKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}

	m, err := d.meta(obj)
	if err != nil {
		return nil, err
	}

	switch kind {
	case buildevent.KindEvaluationFinished:
		return &buildevent.EvaluationFinished{
			Meta:       m,
			Properties: properties(obj),
			Items:      items(obj),
		}, nil
	case buildevent.KindProjectStarted:
		return &buildevent.ProjectStarted{
			Meta:       m,
			Properties: properties(obj),
			Items:      items(obj),
		}, nil
	case buildevent.KindProjectFinished:
		return &buildevent.ProjectFinished{Meta: m, Succeeded: field(obj, "succeeded").Bool()}, nil
	case buildevent.KindTargetStarted:
		return &buildevent.TargetStarted{Meta: m, TargetName: field(obj, "targetName").String()}, nil
	case buildevent.KindTargetFinished:
		return &buildevent.TargetFinished{
			Meta:       m,
			TargetName: field(obj, "targetName").String(),
			Succeeded:  field(obj, "succeeded").Bool(),
		}, nil
	case buildevent.KindMessageRaised:
		return &buildevent.MessageRaised{
			Meta:        m,
			SenderName:  field(obj, "senderName").String(),
			Message:     field(obj, "message").String(),
			TaskName:    field(obj, "taskName").String(),
			CommandLine: field(obj, "commandLine").String(),
		}, nil
	case buildevent.KindErrorRaised:
		return &buildevent.ErrorRaised{
			Meta:    m,
			Code:    field(obj, "code").String(),
			File:    field(obj, "file").String(),
			Line:    int(field(obj, "lineNumber", "line").Int()),
			Message: field(obj, "message").String(),
		}, nil
	default:
		return &buildevent.BuildFinished{Meta: m, Succeeded: field(obj, "succeeded").Bool()}, nil
	}
}

func (d *Decoder) meta(obj gjson.Result) (buildevent.Meta, error) {
	m := buildevent.Meta{
		ProjectFile:  field(obj, "projectFile").String(),
		EvaluationID: int(field(obj, "evaluationId", "evaluationID").Int()),
	}

	ts := field(obj, "timestamp")
	switch ts.Type {
	case gjson.Number:
		m.Timestamp = d.conv.TicksToWallClock(ts.Int())
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, ts.String())
		if err != nil {
			return m, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return m, nil
}

// properties accepts an object (name -> value, in document order) or an array
// of {name, value}. Absence yields nil, which ProjectStarted reads as "not inline".
func properties(obj gjson.Result) []buildevent.Property {
	raw := field(obj, "properties")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil
	}

	props := []buildevent.Property{}
	switch {
	case raw.IsObject():
		raw.ForEach(func(key, value gjson.Result) bool {
			props = append(props, buildevent.Property{Name: key.String(), Value: scalar(value)})
			return true
		})
	case raw.IsArray():
		raw.ForEach(func(_, p gjson.Result) bool {
			props = append(props, buildevent.Property{
				Name:  field(p, "name").String(),
				Value: scalar(field(p, "value")),
			})
			return true
		})
	}
	return props
}

// items accepts an array of {type, spec, metadata} or an object mapping an item
// type to an array of {spec, metadata}.
func items(obj gjson.Result) []buildevent.Item {
	raw := field(obj, "items")
	if !raw.Exists() || raw.Type == gjson.Null {
		return nil
	}

	list := []buildevent.Item{}
	switch {
	case raw.IsArray():
		raw.ForEach(func(_, it gjson.Result) bool {
			list = append(list, item(field(it, "type", "itemType").String(), it))
			return true
		})
	case raw.IsObject():
		raw.ForEach(func(itemType, group gjson.Result) bool {
			group.ForEach(func(_, it gjson.Result) bool {
				list = append(list, item(itemType.String(), it))
				return true
			})
			return true
		})
	}
	return list
}

func item(itemType string, it gjson.Result) buildevent.Item {
	if it.Type == gjson.String {
		return buildevent.Item{Type: itemType, Spec: it.String()}
	}

	out := buildevent.Item{
		Type: itemType,
		Spec: field(it, "spec", "itemSpec", "include").String(),
	}
	if meta := field(it, "metadata"); meta.IsObject() {
		out.Metadata = make(map[string]string)
		meta.ForEach(func(key, value gjson.Result) bool {
			out.Metadata[key.String()] = value.String()
			return true
		})
	}
	return out
}

// scalar keeps strings, numbers and booleans typed and renders anything
// nested as its raw JSON.
func scalar(v gjson.Result) any {
	switch v.Type {
	case gjson.Null:
		return nil
	case gjson.JSON:
		return v.Raw
	default:
		return v.Value()
	}
}

// field returns the first of names present on obj, trying each name as
// written and with an upper-case first letter.
func field(obj gjson.Result, names ...string) gjson.Result {
	for _, name := range names {
		if r := obj.Get(name); r.Exists() {
			return r
		}
		if r := obj.Get(pascal(name)); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

func pascal(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
