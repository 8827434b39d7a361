package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrzor/buildlens/internal/eventprocessor"
	"github.com/mrzor/buildlens/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventLog = `{"kind":"EvaluationFinished","projectFile":"/src/A/A.csproj","evaluationId":1,"properties":{"TargetFrameworkMoniker":"net8.0"},"items":{"Compile":[{"spec":"a.cs"}]}}
{"kind":"ProjectStarted","projectFile":"/src/A/A.csproj","evaluationId":1}
{"kind":"TargetStarted","projectFile":"/src/A/A.csproj","targetName":"CoreCompile"}
{"kind":"MessageRaised","projectFile":"/src/A/A.csproj","taskName":"Csc","commandLine":"csc.exe /out:a.dll a.cs"}
{"kind":"TargetFinished","projectFile":"/src/A/A.csproj","targetName":"CoreCompile","succeeded":true}
{"kind":"ProjectFinished","projectFile":"/src/A/A.csproj","succeeded":true}
{"kind":"BuildFinished","succeeded":true}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(args ...string) (string, string, error) {
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestReplay_JSON(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "builds.db")
	recording := filepath.Join(dir, "recorded.jsonl")

	stdout, _, err := execute("replay", writeLog(t, eventLog),
		"--format", "json",
		"--db", db,
		"--record", recording,
		"--attr", "cmd=compiler.command",
	)
	require.NoError(t, err)

	var report output.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.True(t, report.OverallSuccess)
	assert.True(t, report.BuildFinished)
	require.Len(t, report.Results, 1)
	rr := report.Results[0]
	assert.Equal(t, "net8.0", rr.TargetFramework)
	assert.Equal(t, "succeeded", rr.Status)
	require.NotNil(t, rr.Compiler)
	assert.Equal(t, "csc.exe", rr.Compiler.Command)
	assert.Equal(t, []string{"/out:a.dll", "a.cs"}, rr.Compiler.Arguments)
	assert.Equal(t, map[string]string{"cmd": "csc.exe"}, rr.Attributes)

	recorded, err := os.ReadFile(recording)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(recorded)), "\n"), 7)

	// The recording replays to the same result.
	stdout, _, err = execute("replay", recording, "--format", "json")
	require.NoError(t, err)
	var again output.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &again))
	require.Len(t, again.Results, 1)
	assert.Equal(t, rr.Compiler, again.Results[0].Compiler)

	stdout, _, err = execute("builds", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "A.csproj")
	assert.Contains(t, stdout, "succeeded")

	stdout, _, err = execute("builds", "show", "1", "--db", db, "--format", "yaml")
	require.NoError(t, err)
	assert.Contains(t, stdout, "command: csc.exe")

	_, _, err = execute("builds", "rm", "1", "--db", db)
	require.NoError(t, err)
	stdout, _, err = execute("builds", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no builds stored")
}

func TestReplay_Where(t *testing.T) {
	stdout, _, err := execute("replay", writeLog(t, eventLog), "--format", "json", "--where", `tfm == "net48"`)
	require.NoError(t, err)

	var report output.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Empty(t, report.Results)
}

func TestReplay_MalformedStream(t *testing.T) {
	log := `{"kind":"ProjectStarted","projectFile":"/src/A/A.csproj","evaluationId":1}
{"kind":"TargetFinished","projectFile":"/src/A/A.csproj","targetName":"Build","succeeded":true}
`
	stdout, _, err := execute("replay", writeLog(t, log))
	require.Error(t, err)
	assert.ErrorIs(t, err, eventprocessor.ErrMalformedEventStream)
	assert.Contains(t, stdout, "A.csproj", "partial results are still reported")
	assert.Contains(t, stdout, "build did not finish")
}

func TestReplay_NoAnalysis(t *testing.T) {
	recording := filepath.Join(t.TempDir(), "recorded.jsonl")
	stdout, _, err := execute("replay", writeLog(t, eventLog), "--no-analysis", "--record", recording)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	recorded, err := os.ReadFile(recording)
	require.NoError(t, err)
	assert.NotEmpty(t, recorded)
}

func TestReplay_InvalidFlags(t *testing.T) {
	path := writeLog(t, eventLog)

	_, _, err := execute("replay", path, "--attr", "no-equals-sign")
	assert.Error(t, err)

	_, _, err = execute("replay", path, "--format", "xml")
	assert.Error(t, err)

	_, _, err = execute("replay", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}

func TestBuilds_InvalidID(t *testing.T) {
	_, _, err := execute("builds", "show", "abc", "--db", filepath.Join(t.TempDir(), "b.db"))
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute("version")
	require.NoError(t, err)
	assert.Equal(t, "buildlens dev (commit: unknown, built: unknown)\n", stdout)
}
