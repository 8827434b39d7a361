// buildlens replays build engine event logs and reports, per target framework,
// the evaluated properties and items, the compiler invocation and the outcome.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mrzor/buildlens/internal/config"
	"github.com/mrzor/buildlens/internal/logging"
	"github.com/mrzor/buildlens/internal/otel"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

// Version information injected by GoReleaser at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:           "buildlens",
		Short:         "Correlate build engine events into per-target-framework results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newReplayCmd(g))
	root.AddCommand(newBuildsCmd(g))
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "buildlens %s (commit: %s, built: %s)\n", version, commit, date)
			return err
		},
	}
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig(cmd *cobra.Command, g *globalOptions) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// setupOTEL initializes the OTEL provider and returns a tracer and cleanup function.
func setupOTEL(logger *log.Logger) (trace.Tracer, func(), error) {
	otelCfg, err := config.ParseOTELConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OTEL config: %w", err)
	}

	versionInfo := fmt.Sprintf("%s (%s)", version, commit)
	tp, err := otel.InitProvider(otelCfg, versionInfo, logging.Component(logger, "otel"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize OTEL provider: %w", err)
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.ShutdownProvider(shutdownCtx, tp); err != nil {
			logger.Error("error shutting down OTEL provider", "err", err)
		}
	}

	return tp.Tracer("buildlens"), cleanup, nil
}

// environMap exposes the process environment to expressions.
func environMap() map[string]string {
	environ := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			environ[k] = v
		}
	}
	return environ
}
