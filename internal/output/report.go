package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mrzor/buildlens/internal/attributes"
	"github.com/mrzor/buildlens/internal/result"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"
)

// Report is the serializable view of one analyzed build.
type Report struct {
	ProjectFile    string         `json:"projectFile" yaml:"projectFile"`
	OverallSuccess bool           `json:"overallSuccess" yaml:"overallSuccess"`
	BuildFinished  bool           `json:"buildFinished" yaml:"buildFinished"`
	Error          string         `json:"error,omitempty" yaml:"error,omitempty"`
	Results        []ResultReport `json:"results" yaml:"results"`
}

// ResultReport describes one target framework.
type ResultReport struct {
	TargetFramework   string              `json:"targetFramework" yaml:"targetFramework"`
	Status            string              `json:"status" yaml:"status"`
	Compiler          *CompilerReport     `json:"compiler,omitempty" yaml:"compiler,omitempty"`
	SourceFiles       []string            `json:"sourceFiles,omitempty" yaml:"sourceFiles,omitempty"`
	References        []string            `json:"references,omitempty" yaml:"references,omitempty"`
	ProjectReferences []string            `json:"projectReferences,omitempty" yaml:"projectReferences,omitempty"`
	PackageReferences map[string]string   `json:"packageReferences,omitempty" yaml:"packageReferences,omitempty"`
	Attributes        map[string]string   `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Properties        map[string]string   `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items             map[string][]string `json:"items,omitempty" yaml:"items,omitempty"`
}

// CompilerReport describes the recorded compiler invocation.
type CompilerReport struct {
	Language         string   `json:"language" yaml:"language"`
	Command          string   `json:"command" yaml:"command"`
	Arguments        []string `json:"arguments" yaml:"arguments"`
	WorkingDirectory string   `json:"workingDirectory" yaml:"workingDirectory"`
}

// ReportOptions controls what NewReport includes.
type ReportOptions struct {
	// Filter drops results that do not match. Nil keeps everything.
	Filter *attributes.Filter
	// Evaluator adds custom attributes to every result.
	Evaluator *attributes.Evaluator
	// Environ is exposed to expressions as env.
	Environ map[string]string
	// Verbose includes every property and item.
	Verbose bool
	// BuildFinished and Err describe how the analysis ended.
	BuildFinished bool
	Err           error
}

// NewReport builds a report from rs. Custom attribute failures are returned
// joined, alongside the report.
func NewReport(rs *result.Results, opts ReportOptions) (*Report, error) {
	report := &Report{
		ProjectFile:    rs.ProjectFile(),
		OverallSuccess: rs.OverallSuccess(),
		BuildFinished:  opts.BuildFinished,
		Results:        []ResultReport{},
	}
	if opts.Err != nil {
		report.Error = opts.Err.Error()
	}

	all := rs.All()
	if opts.Filter != nil {
		var err error
		if all, err = opts.Filter.Apply(all); err != nil {
			return nil, err
		}
	}

	var errs []error
	for _, r := range all {
		rr := ResultReport{
			TargetFramework:   r.TargetFramework(),
			Status:            r.Status().String(),
			SourceFiles:       r.SourceFiles(),
			References:        r.References(),
			ProjectReferences: r.ProjectReferences(),
			PackageReferences: r.PackageReferences(),
		}
		if cmd, ok := r.Compiler(); ok {
			rr.Compiler = &CompilerReport{
				Language:         cmd.Language.String(),
				Command:          cmd.Command,
				Arguments:        cmd.Arguments,
				WorkingDirectory: cmd.WorkingDirectory,
			}
		}
		if opts.Verbose {
			rr.Properties = r.Properties().Map()
			rr.Items = r.Items().Specs()
		}
		if opts.Evaluator != nil && opts.Evaluator.Len() > 0 {
			attrs, err := opts.Evaluator.EvaluateCustomAttributes(attributes.ResultEnv(r, opts.Environ))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.TargetFramework(), err))
			}
			if len(attrs) > 0 {
				rr.Attributes = make(map[string]string, len(attrs))
				for _, kv := range attrs {
					rr.Attributes[string(kv.Key)] = kv.Value.Emit()
				}
			}
		}
		report.Results = append(report.Results, rr)
	}

	return report, errors.Join(errs...)
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

var (
	colorMuted   = lipgloss.Color("241")
	colorSuccess = lipgloss.Color("78")
	colorFailure = lipgloss.Color("196")

	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
)

func statusStyle(status string) lipgloss.Style {
	switch status {
	case result.StatusSucceeded.String():
		return cellStyle.Foreground(colorSuccess)
	case result.StatusFailed.String():
		return cellStyle.Foreground(colorFailure)
	default:
		return cellStyle.Foreground(colorMuted)
	}
}

// WriteTable writes a one-row-per-target-framework summary.
func WriteTable(w io.Writer, report *Report) error {
	overall := result.StatusFailed.String()
	if report.OverallSuccess {
		overall = result.StatusSucceeded.String()
	}
	title := titleStyle.Render(report.ProjectFile) + " " + statusStyle(overall).UnsetPadding().Render(overall)
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	if report.Error != "" {
		if _, err := fmt.Fprintln(w, statusStyle(result.StatusFailed.String()).UnsetPadding().Render("error: "+report.Error)); err != nil {
			return err
		}
	}
	if !report.BuildFinished {
		if _, err := fmt.Fprintln(w, mutedStyle.Render("build did not finish")); err != nil {
			return err
		}
	}
	if len(report.Results) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no results"))
		return err
	}

	rows := make([][]string, len(report.Results))
	for i, rr := range report.Results {
		tfm := rr.TargetFramework
		if tfm == "" {
			tfm = "-"
		}
		compilerCol, argsCol := "-", "-"
		if rr.Compiler != nil {
			compilerCol = rr.Compiler.Command
			argsCol = fmt.Sprint(len(rr.Compiler.Arguments))
		}
		rows[i] = []string{
			tfm,
			statusStyle(rr.Status).UnsetPadding().Render(rr.Status),
			compilerCol,
			argsCol,
			fmt.Sprint(len(rr.SourceFiles)),
			fmt.Sprint(len(rr.References)),
			fmt.Sprint(len(rr.PackageReferences)),
			formatAttributes(rr.Attributes),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers("TFM", "STATUS", "COMPILER", "ARGS", "SOURCES", "REFS", "PACKAGES", "ATTRIBUTES").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatAttributes(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + attrs[k]
	}
	return strings.Join(parts, " ")
}
