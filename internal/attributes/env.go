package attributes

import (
	"github.com/mrzor/buildlens/internal/compiler"
	"github.com/mrzor/buildlens/internal/result"
)

// Env is the variable set expressions are evaluated against:
//
//	env        map[string]string    analyzer environment variables
//	project    string               project file
//	tfm        string               target framework moniker
//	status     string               "succeeded", "failed" or "unknown"
//	succeeded  bool
//	props      map[string]string    evaluated properties
//	items      map[string][]string  item type -> item specs
//	compiler   map[string]any       language, command, args, cmdline, cwd
//	sources    []string             compiled source files
//	references []string             referenced assemblies
//	packages   map[string]string    package -> version
type Env map[string]interface{}

// typeEnv is used to type-check expressions at compile time.
func typeEnv() Env {
	return BuildEnv("", nil)
}

// BuildEnv returns the environment for build-wide expressions, where no
// particular result applies.
func BuildEnv(projectFile string, environ map[string]string) Env {
	if environ == nil {
		environ = map[string]string{}
	}
	return Env{
		"env":        environ,
		"project":    projectFile,
		"tfm":        "",
		"status":     result.StatusUnknown.String(),
		"succeeded":  false,
		"props":      map[string]string{},
		"items":      map[string][]string{},
		"compiler":   compilerEnv(nil),
		"sources":    []string{},
		"references": []string{},
		"packages":   map[string]string{},
	}
}

// ResultEnv returns the environment describing r.
func ResultEnv(r *result.Result, environ map[string]string) Env {
	env := BuildEnv(r.ProjectFile(), environ)
	env["tfm"] = r.TargetFramework()
	env["status"] = r.Status().String()
	env["succeeded"] = r.Succeeded()
	env["props"] = r.Properties().Map()
	env["items"] = r.Items().Specs()

	if cmd, ok := r.Compiler(); ok {
		env["compiler"] = compilerEnv(&cmd)
	}
	if sources := r.SourceFiles(); sources != nil {
		env["sources"] = sources
	}
	if refs := r.References(); refs != nil {
		env["references"] = refs
	}
	if pkgs := r.PackageReferences(); pkgs != nil {
		env["packages"] = pkgs
	}
	return env
}

func compilerEnv(cmd *compiler.Command) map[string]interface{} {
	if cmd == nil {
		return map[string]interface{}{
			"language": "",
			"command":  "",
			"args":     []string{},
			"cmdline":  "",
			"cwd":      "",
		}
	}
	args := cmd.Arguments
	if args == nil {
		args = []string{}
	}
	return map[string]interface{}{
		"language": cmd.Language.String(),
		"command":  cmd.Command,
		"args":     args,
		"cmdline":  cmd.CommandLine,
		"cwd":      cmd.WorkingDirectory,
	}
}
