package eventstream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/mrzor/buildlens/internal/buildevent"

	"github.com/charmbracelet/log"
)

const (
	initialLineBuffer = 64 * 1024
	maxLineBuffer     = 64 * 1024 * 1024
)

// Stats counts what a Run consumed.
type Stats struct {
	Lines   int
	Events  int
	Skipped int
}

// Option configures a Stream.
type Option func(*Stream)

// WithDecoder replaces the default decoder.
func WithDecoder(d *Decoder) Option {
	return func(s *Stream) { s.decoder = d }
}

// WithLogger sets the logger used to report skipped lines.
func WithLogger(l *log.Logger) Option {
	return func(s *Stream) { s.logger = l }
}

// SkipInvalid makes undecodable lines a warning instead of an error.
func SkipInvalid() Option {
	return func(s *Stream) { s.skipInvalid = true }
}

// Stream reads an event log and dispatches its events.
type Stream struct {
	reader      io.Reader
	dispatcher  *buildevent.Dispatcher
	decoder     *Decoder
	logger      *log.Logger
	skipInvalid bool
	stats       Stats
}

// New creates a Stream reading from r and dispatching to d.
func New(r io.Reader, d *buildevent.Dispatcher, opts ...Option) *Stream {
	s := &Stream{
		reader:     r,
		dispatcher: d,
		decoder:    NewDecoder(nil),
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run dispatches every event of the log in order. It stops at the first
// dispatch error, at the first undecodable line unless SkipInvalid is set,
// or when ctx is cancelled. Events dispatched before stopping stay applied.
func (s *Stream) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.stats.Lines++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, err := s.decoder.Decode(line)
		if err != nil {
			derr := &DecodeError{Line: s.stats.Lines, Err: err}
			if !s.skipInvalid {
				return derr
			}
			s.stats.Skipped++
			s.logger.Warn("skipping event", "err", derr)
			continue
		}

		if err := s.dispatcher.Dispatch(ev); err != nil {
			return fmt.Errorf("line %d: %w", s.stats.Lines, err)
		}
		s.stats.Events++
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading event log: %w", err)
	}
	return nil
}

// Stats returns the counters of the last Run.
func (s *Stream) Stats() Stats {
	return s.stats
}
