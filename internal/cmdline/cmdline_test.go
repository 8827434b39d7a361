package cmdline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"quoted group", `"a b" c`, []string{"a b", "c"}},
		{"empty", "", nil},
		{"whitespace only", "    ", nil},
		{"plain", "fsc.dll -o x", []string{"fsc.dll", "-o", "x"}},
		{"empty quotes dropped", `a "" b`, []string{"a", "b"}},
		{"unterminated quote", `a "b c`, []string{"a", "b c"}},
		{"quote mid token drops the prefix", `--out:"my dir/a.dll" x`, []string{"my dir/a.dll", "x"}},
		{"text after closing quote", `"a b"c d`, []string{"a b", "c", "d"}},
		{"repeated spaces", "a    b", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.in))
		})
	}
}

func TestSplitCompilerCommandLine(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   []string
		wantOK bool
	}{
		{
			name:   "drops tokens before entry point and keeps the match",
			in:     "foo fsc.dll -o x",
			want:   []string{"fsc.dll", "-o", "x"},
			wantOK: true,
		},
		{
			name:   "suffix match tolerates path prefix and case",
			in:     `dotnet "C:\Program Files\dotnet\sdk\FSharp\FSC.DLL" -o:obj/a.dll`,
			want:   []string{`C:\Program Files\dotnet\sdk\FSharp\FSC.DLL`, "-o:obj/a.dll"},
			wantOK: true,
		},
		{
			name:   "following lines become positional arguments",
			in:     "/usr/share/dotnet/sdk/fsc.dll -o:a.dll\r\n  --target:library \n\n Program.fs \r\n",
			want:   []string{"/usr/share/dotnet/sdk/fsc.dll", "-o:a.dll", "--target:library", "Program.fs"},
			wantOK: true,
		},
		{
			name:   "leading blank lines are skipped",
			in:     "\n\n   \nfsc.exe a.fs",
			want:   []string{"fsc.exe", "a.fs"},
			wantOK: true,
		},
		{
			name:   "quoted value glued to a switch keeps only the quoted text",
			in:     `fsc.exe --out:"my dir/a.dll" a.fs`,
			want:   []string{"fsc.exe", "my dir/a.dll", "a.fs"},
			wantOK: true,
		},
		{name: "no entry point", in: "dotnet build -c Release", wantOK: false},
		{name: "empty", in: "", wantOK: false},
		{name: "whitespace", in: " \r\n\t ", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SplitCompilerCommandLine(tt.in, "fsc.dll", "fsc.exe")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrimToEntryPoint(t *testing.T) {
	rest, ok := TrimToEntryPoint([]string{"dotnet", "exec", "/sdk/csc.dll", "/out:a.dll"}, "csc.dll", "csc.exe")
	assert.True(t, ok)
	assert.Equal(t, []string{"/sdk/csc.dll", "/out:a.dll"}, rest)

	_, ok = TrimToEntryPoint([]string{"dotnet", "build"}, "csc.dll")
	assert.False(t, ok)

	_, ok = TrimToEntryPoint(nil, "csc.dll")
	assert.False(t, ok)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "csc.exe /out:a.dll a.cs", []string{"csc.exe", "/out:a.dll", "a.cs"}},
		{"quoted path", `"C:\Program Files\csc.exe" /noconfig "My File.cs"`, []string{`C:\Program Files\csc.exe`, "/noconfig", "My File.cs"}},
		{"quotes inside argument", `/reference:"C:\lib\a b.dll"`, []string{`/reference:C:\lib\a b.dll`}},
		{"escaped quote", `a\"b c`, []string{`a"b`, "c"}},
		{"even backslashes before quote", `"a\\" b`, []string{`a\`, "b"}},
		{"trailing backslashes kept", `C:\dir\ x`, []string{`C:\dir\`, "x"}},
		{"tabs and newlines", "a\tb\r\nc", []string{"a", "b", "c"}},
		{"empty quoted argument", `a "" b`, []string{"a", "", "b"}},
		{"hash comment", "csc.exe a.cs # trailing comment", []string{"csc.exe", "a.cs"}},
		{"hash inside token", "/define:A#B x", []string{"/define:A#B", "x"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}
