package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrzor/buildlens/internal/attributes"
	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/config"
	"github.com/mrzor/buildlens/internal/eventprocessor"
	"github.com/mrzor/buildlens/internal/eventstream"
	"github.com/mrzor/buildlens/internal/logging"
	"github.com/mrzor/buildlens/internal/output"
	"github.com/mrzor/buildlens/internal/result"
	"github.com/mrzor/buildlens/internal/storage"
	"github.com/mrzor/buildlens/internal/timesync"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type replayOptions struct {
	project     string
	format      string
	db          string
	record      string
	timezone    string
	traceID     string
	parentID    string
	where       string
	attrs       []string
	otel        bool
	skipInvalid bool
	verbose     bool
	noAnalysis  bool
}

func newReplayCmd(g *globalOptions) *cobra.Command {
	o := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl|->",
		Short: "Replay a recorded event log and report the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if err := o.apply(cmd, cfg); err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, o, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.project, "project", "p", "", "project file to analyze (default: first project in the log)")
	f.StringVarP(&o.format, "format", "f", "", "report format: table, json, yaml")
	f.StringVar(&o.db, "db", "", "SQLite database to store the results in")
	f.StringVar(&o.record, "record", "", "re-record the decoded events to this JSONL file")
	f.StringVar(&o.timezone, "timezone", "", "time zone the event timestamps were recorded in")
	f.StringVar(&o.traceID, "trace-id", "", "expression producing the trace ID")
	f.StringVar(&o.parentID, "parent-id", "", "expression producing the parent span ID")
	f.StringVar(&o.where, "where", "", "boolean expression selecting the reported results")
	f.StringArrayVarP(&o.attrs, "attr", "a", nil, "custom attribute NAME=EXPR (repeatable)")
	f.BoolVar(&o.otel, "otel", false, "export the build timeline as OpenTelemetry spans")
	f.BoolVar(&o.skipInvalid, "skip-invalid", false, "skip undecodable lines instead of failing")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "include every property and item in the report")
	f.BoolVar(&o.noAnalysis, "no-analysis", false, "only run listeners (--record, --otel); report nothing")
	return cmd
}

// apply layers the flags that were set on top of cfg.
func (o *replayOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("project") {
		cfg.ProjectFile = o.project
	}
	if changed("format") {
		cfg.Format = o.format
	}
	if changed("db") {
		cfg.Database = o.db
	}
	if changed("timezone") {
		cfg.TimeZone = o.timezone
	}
	if changed("trace-id") {
		cfg.TraceID = o.traceID
	}
	if changed("parent-id") {
		cfg.ParentID = o.parentID
	}
	if changed("where") {
		cfg.Where = o.where
	}
	if changed("otel") {
		cfg.OTEL = o.otel
	}
	if changed("skip-invalid") {
		cfg.SkipInvalid = o.skipInvalid
	}
	for _, s := range o.attrs {
		attr, err := config.ParseCustomAttribute(s)
		if err != nil {
			return fmt.Errorf("invalid --attr: %w", err)
		}
		cfg.CustomAttributes = append(cfg.CustomAttributes, attr)
	}
	return cfg.Validate()
}

// components are the pieces one replay wires together.
type components struct {
	dispatcher *buildevent.Dispatcher
	processor  *eventprocessor.Processor
	stream     *eventstream.Stream
	recorder   *eventstream.Recorder
	evaluator  *attributes.Evaluator
	filter     *attributes.Filter
	environ    map[string]string
	cleanup    []func()
}

func (c *components) close() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
}

// setupComponents initializes the listeners and the processor and returns the event stream.
func setupComponents(cfg *config.Config, o *replayOptions, in io.Reader, logger *log.Logger) (*components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	converter := timesync.NewConverter(loc)

	c := &components{
		dispatcher: buildevent.NewDispatcher(),
		environ:    environMap(),
	}

	if c.evaluator, err = attributes.NewEvaluator(cfg.CustomAttributes); err != nil {
		return nil, err
	}
	if c.filter, err = attributes.NewFilter(cfg.Where, c.environ); err != nil {
		return nil, err
	}

	var listeners []buildevent.Listener

	if o.record != "" {
		file, err := os.Create(o.record)
		if err != nil {
			return nil, fmt.Errorf("failed to create recording: %w", err)
		}
		c.cleanup = append(c.cleanup, func() {
			if err := file.Close(); err != nil {
				logger.Error("error closing recording", "err", err)
			}
		})
		c.recorder = eventstream.NewRecorder(file, converter)
		listeners = append(listeners, c.recorder)
	}

	var formatter *output.OTELFormatter
	if cfg.OTEL {
		tracer, cleanupOTEL, err := setupOTEL(logger)
		if err != nil {
			c.close()
			return nil, err
		}
		c.cleanup = append(c.cleanup, cleanupOTEL)

		traceID, err := attributes.NewTraceIDEvaluator(cfg.TraceID)
		if err != nil {
			c.close()
			return nil, err
		}
		parentID, err := attributes.NewParentIDEvaluator(cfg.ParentID)
		if err != nil {
			c.close()
			return nil, err
		}

		formatter = output.NewOTELFormatter(tracer, output.OTELOptions{
			Evaluator:   c.evaluator,
			TraceID:     traceID,
			ParentID:    parentID,
			Environ:     c.environ,
			ProjectFile: cfg.ProjectFile,
		})
		listeners = append(listeners, formatter)
	}

	c.processor, err = eventprocessor.New(c.dispatcher, eventprocessor.Options{
		ProjectFile:     cfg.ProjectFile,
		Sink:            logging.Component(logger, "engine"),
		Listeners:       listeners,
		DisableAnalysis: o.noAnalysis,
	})
	if err != nil {
		c.close()
		return nil, err
	}
	if formatter != nil {
		formatter.Bind(c.processor)
	}

	opts := []eventstream.Option{
		eventstream.WithDecoder(eventstream.NewDecoder(converter)),
		eventstream.WithLogger(logging.Component(logger, "stream")),
	}
	if cfg.SkipInvalid {
		opts = append(opts, eventstream.SkipInvalid())
	}
	c.stream = eventstream.New(in, c.dispatcher, opts...)

	return c, nil
}

func runReplay(ctx context.Context, cfg *config.Config, o *replayOptions, source string, stdin io.Reader, stdout io.Writer, logger *log.Logger) error {
	in := stdin
	if source != "-" {
		file, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}
		defer file.Close()
		in = file
	}

	c, err := setupComponents(cfg, o, in, logger)
	if err != nil {
		return err
	}
	defer c.close()

	start := time.Now()
	runErr := c.stream.Run(ctx)
	closeErr := c.processor.Close()

	stats := c.stream.Stats()
	logger.Debug("replay finished", "lines", stats.Lines, "events", stats.Events, "skipped", stats.Skipped, "elapsed", time.Since(start))
	if c.recorder != nil {
		logger.Info("recorded events", "path", o.record, "events", c.recorder.Count())
	}
	if closeErr != nil {
		logger.Error("error shutting down listeners", "err", closeErr)
	}

	if o.noAnalysis {
		return runErr
	}

	rs, procErr := c.processor.Results()
	analysisErr := errors.Join(runErr, procErr)
	if runErr != nil && errors.Is(runErr, procErr) {
		analysisErr = runErr
	}

	if cfg.Database != "" {
		if err := saveBuild(ctx, cfg.Database, source, rs, c.processor.BuildFinished(), analysisErr, logger); err != nil {
			return err
		}
	}

	report, attrErr := output.NewReport(rs, output.ReportOptions{
		Filter:        c.filter,
		Evaluator:     c.evaluator,
		Environ:       c.environ,
		Verbose:       o.verbose,
		BuildFinished: c.processor.BuildFinished(),
		Err:           analysisErr,
	})
	if report == nil {
		return attrErr
	}
	if attrErr != nil {
		logger.Warn("custom attributes", "err", attrErr)
	}
	if err := output.Write(stdout, cfg.Format, report); err != nil {
		return err
	}

	return analysisErr
}

func saveBuild(ctx context.Context, dbPath, source string, rs *result.Results, finished bool, analysisErr error, logger *log.Logger) error {
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	b := storage.Build{Source: source, Finished: finished}
	if analysisErr != nil {
		b.Error = analysisErr.Error()
	}
	id, err := store.SaveBuild(context.WithoutCancel(ctx), b, rs)
	if err != nil {
		return fmt.Errorf("failed to save build: %w", err)
	}
	logger.Info("saved build", "id", id, "db", dbPath, "results", rs.Len())
	return nil
}
