package result

import (
	"path/filepath"
	"strings"

	"github.com/mrzor/buildlens/internal/compiler"
)

// Status is the tri-state outcome of a project build.
type Status int

const (
	StatusUnknown Status = iota
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of Status.String; unrecognized input is StatusUnknown.
func ParseStatus(s string) Status {
	switch s {
	case "succeeded":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Result is what the analyzer learned about one target framework of a project.
type Result struct {
	projectFile     string
	targetFramework string
	status          Status
	data            *PropertiesAndItems
	compiler        *compiler.Command
}

// New creates an empty result.
func New(projectFile, targetFramework string) *Result {
	return &Result{
		projectFile:     projectFile,
		targetFramework: targetFramework,
	}
}

// Restore rebuilds a result from persisted state.
func Restore(projectFile, targetFramework string, status Status, data *PropertiesAndItems, cmd *compiler.Command) *Result {
	r := New(projectFile, targetFramework)
	r.status = status
	r.data = data
	if cmd != nil {
		c := *cmd
		r.compiler = &c
	}
	return r
}

func (r *Result) clone() *Result {
	c := *r
	if r.compiler != nil {
		cmd := *r.compiler
		cmd.Arguments = append([]string(nil), r.compiler.Arguments...)
		c.compiler = &cmd
	}
	return &c
}

func (r *Result) ProjectFile() string     { return r.projectFile }
func (r *Result) TargetFramework() string { return r.targetFramework }
func (r *Result) Status() Status          { return r.status }

// Succeeded reports whether the project build was observed to succeed.
func (r *Result) Succeeded() bool { return r.status == StatusSucceeded }

// ProcessProject replaces the property/item snapshot.
func (r *Result) ProcessProject(data *PropertiesAndItems) {
	r.data = data
}

// Finish records the project build outcome.
func (r *Result) Finish(succeeded bool) {
	if succeeded {
		r.status = StatusSucceeded
	} else {
		r.status = StatusFailed
	}
}

// Properties returns the evaluated properties.
func (r *Result) Properties() Properties {
	if r.data == nil {
		return Properties{}
	}
	return r.data.Properties
}

// Items returns the evaluated items.
func (r *Result) Items() Items {
	if r.data == nil {
		return Items{}
	}
	return r.data.Items
}

// Property returns the string value of a property, or "".
func (r *Result) Property(name string) string {
	return r.Properties().Value(name)
}

// HasCompiler reports whether a compiler invocation has been recorded.
func (r *Result) HasCompiler() bool { return r.compiler != nil }

// Compiler returns the recorded compiler invocation.
func (r *Result) Compiler() (compiler.Command, bool) {
	if r.compiler == nil {
		return compiler.Command{}, false
	}
	return *r.compiler, true
}

// RecordCompiler stores cmd unless an invocation is already recorded; the first
// writer wins. A missing working directory defaults to the project directory.
func (r *Result) RecordCompiler(cmd compiler.Command) bool {
	if r.compiler != nil {
		return false
	}
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = r.ProjectDirectory()
	}
	cmd.Arguments = append([]string(nil), cmd.Arguments...)
	r.compiler = &cmd
	return true
}

// ProjectDirectory returns the directory the engine evaluated the project in.
func (r *Result) ProjectDirectory() string {
	if dir := r.Property("MSBuildProjectDirectory"); dir != "" {
		return dir
	}
	if r.projectFile == "" {
		return ""
	}
	return filepath.Dir(r.projectFile)
}

var sourceExtensions = map[compiler.Language][]string{
	compiler.CSharp:      {".cs"},
	compiler.VisualBasic: {".vb"},
	compiler.FSharp:      {".fs", ".fsi", ".fsx"},
}

// SourceFiles returns the source files passed to the compiler, made absolute
// against the compiler's working directory.
func (r *Result) SourceFiles() []string {
	cmd, ok := r.Compiler()
	if !ok {
		return nil
	}

	var files []string
	for _, arg := range cmd.Arguments {
		if isOption(arg) || !hasExtension(arg, sourceExtensions[cmd.Language]) {
			continue
		}
		files = append(files, absolute(cmd.WorkingDirectory, arg))
	}
	return files
}

// References returns the assemblies referenced on the compiler command line.
func (r *Result) References() []string {
	cmd, ok := r.Compiler()
	if !ok {
		return nil
	}

	var refs []string
	for _, arg := range cmd.Arguments {
		if value, ok := optionValue(arg, "reference", "r"); ok {
			for _, ref := range strings.Split(value, ",") {
				if ref = strings.Trim(ref, `" `); ref != "" {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}

// ProjectReferences returns the absolute paths of referenced projects.
func (r *Result) ProjectReferences() []string {
	var refs []string
	for _, item := range r.Items().Get("ProjectReference") {
		refs = append(refs, filepath.Clean(absolute(r.ProjectDirectory(), filepath.FromSlash(strings.ReplaceAll(item.Spec, `\`, "/")))))
	}
	return refs
}

// PackageReferences returns package name -> requested version.
func (r *Result) PackageReferences() map[string]string {
	items := r.Items().Get("PackageReference")
	if len(items) == 0 {
		return nil
	}
	pkgs := make(map[string]string, len(items))
	for _, item := range items {
		pkgs[item.Spec] = item.Meta("Version")
	}
	return pkgs
}

// isOption reports whether arg is a compiler switch. Switches start with '-'
// or with '/' followed by a name that contains no further separator, so that
// rooted unix paths are not mistaken for switches.
func isOption(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return true
	}
	if !strings.HasPrefix(arg, "/") {
		return false
	}
	name := arg[1:]
	if i := strings.IndexAny(name, ":+"); i >= 0 {
		name = name[:i]
	}
	return !strings.ContainsAny(name, `/\.`)
}

// optionValue returns the value of a switch written as /name:value or -name:value.
func optionValue(arg string, names ...string) (string, bool) {
	if len(arg) < 2 || (arg[0] != '/' && arg[0] != '-') {
		return "", false
	}
	body := strings.TrimPrefix(arg[1:], "-")
	i := strings.IndexByte(body, ':')
	if i < 0 {
		return "", false
	}
	for _, n := range names {
		if strings.EqualFold(body[:i], n) {
			return body[i+1:], true
		}
	}
	return "", false
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func absolute(dir, path string) string {
	if filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
