package compiler

import (
	"testing"

	"github.com/mrzor/buildlens/internal/buildevent"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSharpExtractor(t *testing.T) {
	x := CSharpExtractor{}
	msg := &buildevent.MessageRaised{
		TaskName:    "Csc",
		CommandLine: "csc.exe /out:a.dll a.cs",
	}

	require.True(t, x.Matches(msg))

	cmd, ok := x.Extract(msg, true)
	require.True(t, ok)
	assert.Equal(t, CSharp, cmd.Language)
	assert.Equal(t, "csc.exe", cmd.Command)
	assert.Equal(t, []string{"/out:a.dll", "a.cs"}, cmd.Arguments)
	assert.Equal(t, msg.CommandLine, cmd.CommandLine)

	_, ok = x.Extract(msg, false)
	assert.False(t, ok, "Csc outside CoreCompile is ignored")
}

func TestCSharpExtractor_DropsHost(t *testing.T) {
	msg := &buildevent.MessageRaised{
		TaskName:    "csc",
		CommandLine: `/usr/share/dotnet/dotnet exec "/usr/share/dotnet/sdk/8.0.100/Roslyn/bincore/csc.dll" /noconfig /out:obj/a.dll Program.cs`,
	}

	cmd, ok := CSharpExtractor{}.Extract(msg, true)
	require.True(t, ok)
	assert.Equal(t, "/usr/share/dotnet/sdk/8.0.100/Roslyn/bincore/csc.dll", cmd.Command)
	assert.Equal(t, []string{"/noconfig", "/out:obj/a.dll", "Program.cs"}, cmd.Arguments)
}

func TestCSharpExtractor_Matches(t *testing.T) {
	x := CSharpExtractor{}
	assert.False(t, x.Matches(&buildevent.MessageRaised{SenderName: "Csc", Message: "csc.exe a.cs"}), "plain messages are not task command lines")
	assert.False(t, x.Matches(&buildevent.MessageRaised{TaskName: "Vbc", CommandLine: "vbc.exe"}))
}

func TestCSharpExtractor_EmptyCommandLine(t *testing.T) {
	_, ok := CSharpExtractor{}.Extract(&buildevent.MessageRaised{TaskName: "Csc", CommandLine: "   "}, true)
	assert.False(t, ok)
}

func TestVisualBasicExtractor(t *testing.T) {
	x := VisualBasicExtractor{}
	msg := &buildevent.MessageRaised{
		TaskName:    "Vbc",
		CommandLine: `"C:\Program Files\Roslyn\vbc.exe" /out:b.dll "Module 1.vb"`,
	}

	require.True(t, x.Matches(msg))

	cmd, ok := x.Extract(msg, false)
	require.True(t, ok, "Vbc is not gated on CoreCompile")
	assert.Equal(t, VisualBasic, cmd.Language)
	assert.Equal(t, `C:\Program Files\Roslyn\vbc.exe`, cmd.Command)
	assert.Equal(t, []string{"/out:b.dll", "Module 1.vb"}, cmd.Arguments)
}

func TestFSharpExtractor(t *testing.T) {
	x := FSharpExtractor{}
	msg := &buildevent.MessageRaised{
		SenderName: "Fsc",
		Message:    "dotnet /sdk/FSharp/fsc.dll -o:obj/c.dll --target:library\r\nLibrary.fs\r\nProgram.fs",
	}

	require.True(t, x.Matches(msg))

	cmd, ok := x.Extract(msg, true)
	require.True(t, ok)
	assert.Equal(t, FSharp, cmd.Language)
	assert.Equal(t, "/sdk/FSharp/fsc.dll", cmd.Command)
	assert.Equal(t, []string{"-o:obj/c.dll", "--target:library", "Library.fs", "Program.fs"}, cmd.Arguments)
}

func TestFSharpExtractor_Declines(t *testing.T) {
	x := FSharpExtractor{}

	tests := []struct {
		name          string
		message       string
		inCoreCompile bool
	}{
		{"outside CoreCompile", "fsc.dll a.fs", false},
		{"blank message", "  \r\n ", true},
		{"no compiler location", "Skipping because all outputs are up-to-date", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := x.Extract(&buildevent.MessageRaised{SenderName: "Fsc", Message: tt.message}, tt.inCoreCompile)
			assert.False(t, ok)
		})
	}
}

func TestExtractors_ClosedSet(t *testing.T) {
	var langs []Language
	for _, x := range Extractors() {
		langs = append(langs, x.Language())
	}
	assert.Equal(t, []Language{CSharp, VisualBasic, FSharp}, langs)
}

func TestLanguage_String(t *testing.T) {
	assert.Equal(t, "csharp", CSharp.String())
	assert.Equal(t, "visualbasic", VisualBasic.String())
	assert.Equal(t, "fsharp", FSharp.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestParseLanguage(t *testing.T) {
	for _, l := range []Language{CSharp, VisualBasic, FSharp, Unknown} {
		assert.Equal(t, l, ParseLanguage(l.String()))
	}
	assert.Equal(t, FSharp, ParseLanguage("FSharp"))
	assert.Equal(t, Unknown, ParseLanguage("cobol"))
}
