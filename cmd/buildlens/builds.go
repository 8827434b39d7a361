package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mrzor/buildlens/internal/config"
	"github.com/mrzor/buildlens/internal/output"
	"github.com/mrzor/buildlens/internal/storage"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

const defaultDatabase = "buildlens.db"

type buildsOptions struct {
	db      string
	project string
	limit   int
	format  string
	verbose bool
}

func newBuildsCmd(g *globalOptions) *cobra.Command {
	o := &buildsOptions{}

	cmd := &cobra.Command{
		Use:   "builds",
		Short: "List stored builds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, _, err := o.open(cmd, g)
			if err != nil {
				return err
			}
			defer store.Close()

			builds, err := store.ListBuilds(cmd.Context(), o.project, o.limit)
			if err != nil {
				return err
			}
			return writeBuilds(cmd, builds)
		},
	}
	cmd.PersistentFlags().StringVar(&o.db, "db", "", "SQLite database (default "+defaultDatabase+")")
	cmd.Flags().StringVarP(&o.project, "project", "p", "", "only list builds of this project file")
	cmd.Flags().IntVarP(&o.limit, "limit", "n", 20, "maximum number of builds; 0 lists all")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Report a stored build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, cfg, err := o.open(cmd, g)
			if err != nil {
				return err
			}
			defer store.Close()

			b, rs, err := store.LoadBuild(cmd.Context(), id)
			if err != nil {
				return err
			}
			report, err := output.NewReport(rs, output.ReportOptions{
				Verbose:       o.verbose,
				BuildFinished: b.Finished,
			})
			if err != nil {
				return err
			}
			report.Error = b.Error

			format := cfg.Format
			if cmd.Flags().Changed("format") {
				format = o.format
			}
			return output.Write(cmd.OutOrStdout(), format, report)
		},
	}
	show.Flags().StringVarP(&o.format, "format", "f", "", "report format: table, json, yaml")
	show.Flags().BoolVarP(&o.verbose, "verbose", "v", false, "include every property and item")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a stored build",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, _, err := o.open(cmd, g)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.DeleteBuild(cmd.Context(), id)
		},
	}

	cmd.AddCommand(show, rm)
	return cmd
}

// open resolves the database from the flag, then the configuration, then the default.
func (o *buildsOptions) open(cmd *cobra.Command, g *globalOptions) (*storage.Store, *config.Config, error) {
	cfg, _, err := loadConfig(cmd, g)
	if err != nil {
		return nil, nil, err
	}

	path := o.db
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = defaultDatabase
	}

	store, err := storage.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid build id %q", s)
	}
	return id, nil
}

func writeBuilds(cmd *cobra.Command, builds []storage.Build) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "no builds stored")
		return err
	}

	rows := make([][]string, len(builds))
	for i, b := range builds {
		status := "failed"
		if b.OverallSuccess {
			status = "succeeded"
		}
		if b.Error != "" {
			status = "error"
		}
		rows[i] = []string{
			strconv.FormatInt(b.ID, 10),
			b.AnalyzedAt.Local().Format(time.DateTime),
			b.ProjectFile,
			status,
			strconv.Itoa(b.Results),
			b.Source,
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "ANALYZED", "PROJECT", "STATUS", "RESULTS", "SOURCE").
		Rows(rows...)

	_, err := fmt.Fprintln(cmd.OutOrStdout(), t.Render())
	return err
}
