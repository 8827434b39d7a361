package compiler

import (
	"strings"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/cmdline"
)

// Entry points of each compiler, matched as case-insensitive suffixes.
var (
	cscEntryPoints = []string{"csc.dll", "csc.exe"}
	vbcEntryPoints = []string{"vbc.dll", "vbc.exe"}
	fscEntryPoints = []string{"fsc.dll", "fsc.exe"}
)

// CSharpExtractor handles structured Csc task command lines.
type CSharpExtractor struct{}

func (CSharpExtractor) Language() Language { return CSharp }

func (CSharpExtractor) Matches(msg *buildevent.MessageRaised) bool {
	return msg.IsCommandLine() && isMatch(msg.TaskName, "Csc")
}

// Extract only accepts invocations made inside CoreCompile; other targets may
// run Csc for unrelated purposes.
func (x CSharpExtractor) Extract(msg *buildevent.MessageRaised, inCoreCompile bool) (Command, bool) {
	if !inCoreCompile {
		return Command{}, false
	}
	return fromTaskCommandLine(x.Language(), msg.CommandLine, cscEntryPoints)
}

// VisualBasicExtractor handles structured Vbc task command lines.
type VisualBasicExtractor struct{}

func (VisualBasicExtractor) Language() Language { return VisualBasic }

func (VisualBasicExtractor) Matches(msg *buildevent.MessageRaised) bool {
	return msg.IsCommandLine() && isMatch(msg.TaskName, "Vbc")
}

func (x VisualBasicExtractor) Extract(msg *buildevent.MessageRaised, _ bool) (Command, bool) {
	return fromTaskCommandLine(x.Language(), msg.CommandLine, vbcEntryPoints)
}

// FSharpExtractor handles the free-form text logged by the Fsc task.
type FSharpExtractor struct{}

func (FSharpExtractor) Language() Language { return FSharp }

func (FSharpExtractor) Matches(msg *buildevent.MessageRaised) bool {
	return isMatch(msg.SenderName, "Fsc")
}

func (x FSharpExtractor) Extract(msg *buildevent.MessageRaised, inCoreCompile bool) (Command, bool) {
	if !inCoreCompile || strings.TrimSpace(msg.Message) == "" {
		return Command{}, false
	}

	args, ok := cmdline.SplitCompilerCommandLine(msg.Message, fscEntryPoints...)
	if !ok {
		return Command{}, false
	}
	return Command{
		Language:    x.Language(),
		Command:     args[0],
		Arguments:   args[1:],
		CommandLine: msg.Message,
	}, true
}

// fromTaskCommandLine splits a structured command line. The command is the
// compiler entry point when one is present (dropping a host such as dotnet),
// otherwise the first argument.
func fromTaskCommandLine(lang Language, commandLine string, entryPoints []string) (Command, bool) {
	args := cmdline.Split(commandLine)
	if len(args) == 0 {
		return Command{}, false
	}
	if trimmed, ok := cmdline.TrimToEntryPoint(args, entryPoints...); ok {
		args = trimmed
	}
	return Command{
		Language:    lang,
		Command:     args[0],
		Arguments:   args[1:],
		CommandLine: commandLine,
	}, true
}
