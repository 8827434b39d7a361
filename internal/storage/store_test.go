package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mrzor/buildlens/internal/buildevent"
	"github.com/mrzor/buildlens/internal/compiler"
	"github.com/mrzor/buildlens/internal/result"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "buildlens.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleResults() *result.Results {
	reg := result.NewRegistry("/src/A/A.csproj")

	net8 := reg.GetOrCreate("net8.0")
	net8.ProcessProject(result.NewPropertiesAndItems(
		[]buildevent.Property{
			{Name: "TargetFrameworkMoniker", Value: ".NETCoreApp,Version=v8.0"},
			{Name: "LangVersion", Value: int64(12)},
			{Name: "Deterministic", Value: true},
		},
		[]buildevent.Item{
			{Type: "Compile", Spec: "Program.cs"},
			{Type: "PackageReference", Spec: "Newtonsoft.Json", Metadata: map[string]string{"Version": "13.0.3"}},
			{Type: "Compile", Spec: "Util.cs"},
		},
	))
	net8.RecordCompiler(compiler.Command{
		Language:    compiler.CSharp,
		Command:     "csc.dll",
		Arguments:   []string{"/out:a.dll", "Program.cs", "Util.cs"},
		CommandLine: "csc.dll /out:a.dll Program.cs Util.cs",
	})
	net8.Finish(true)

	reg.GetOrCreate("net48").Finish(false)

	return reg.Snapshot(true)
}

func TestOpen(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	for _, table := range []string{"builds", "results"} {
		var name string
		err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buildlens.db")
	ctx := context.Background()

	st, err := Open(path)
	require.NoError(t, err)
	_, err = st.SaveBuild(ctx, Build{Source: "a.jsonl"}, sampleResults())
	require.NoError(t, err)
	require.NoError(t, st.Close())

	st, err = Open(path)
	require.NoError(t, err)
	defer st.Close()

	builds, err := st.ListBuilds(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, builds, 1)
}

func TestSaveAndLoadBuild(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 1, 4, 21, 20, 0, 0, time.UTC)

	id, err := st.SaveBuild(ctx, Build{Source: "build.jsonl", Finished: true, AnalyzedAt: at}, sampleResults())
	require.NoError(t, err)

	b, rs, err := st.LoadBuild(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, b.ID)
	assert.Equal(t, "/src/A/A.csproj", b.ProjectFile)
	assert.Equal(t, "build.jsonl", b.Source)
	assert.True(t, b.OverallSuccess)
	assert.True(t, b.Finished)
	assert.True(t, at.Equal(b.AnalyzedAt), "analyzed_at = %v", b.AnalyzedAt)
	assert.Equal(t, 2, b.Results)

	assert.Equal(t, "/src/A/A.csproj", rs.ProjectFile())
	assert.True(t, rs.OverallSuccess())
	assert.Equal(t, []string{"net8.0", "net48"}, rs.TargetFrameworks())

	net8, ok := rs.Get("net8.0")
	require.True(t, ok)
	assert.Equal(t, result.StatusSucceeded, net8.Status())
	assert.Equal(t, ".NETCoreApp,Version=v8.0", net8.Property("TargetFrameworkMoniker"))

	lang, ok := net8.Properties().Get("LangVersion")
	require.True(t, ok)
	assert.Equal(t, int64(12), lang.Value)
	deterministic, _ := net8.Properties().Get("Deterministic")
	assert.Equal(t, true, deterministic.Value)

	assert.Equal(t, []string{"Compile", "PackageReference"}, net8.Items().Types())
	assert.Equal(t, map[string][]string{
		"Compile":          {"Program.cs", "Util.cs"},
		"PackageReference": {"Newtonsoft.Json"},
	}, net8.Items().Specs())
	assert.Equal(t, map[string]string{"Newtonsoft.Json": "13.0.3"}, net8.PackageReferences())

	cmd, ok := net8.Compiler()
	require.True(t, ok)
	assert.Equal(t, compiler.CSharp, cmd.Language)
	assert.Equal(t, "csc.dll", cmd.Command)
	assert.Equal(t, []string{"/out:a.dll", "Program.cs", "Util.cs"}, cmd.Arguments)
	assert.Equal(t, "/src/A", cmd.WorkingDirectory)

	net48, ok := rs.Get("net48")
	require.True(t, ok)
	assert.Equal(t, result.StatusFailed, net48.Status())
	assert.False(t, net48.HasCompiler())
	assert.Equal(t, 0, net48.Properties().Len())
}

func TestSaveBuild_NilResults(t *testing.T) {
	st := openTemp(t)
	_, err := st.SaveBuild(context.Background(), Build{}, nil)
	assert.Error(t, err)
}

func TestSaveBuild_RecordsError(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	id, err := st.SaveBuild(ctx, Build{Error: "malformed event stream"}, sampleResults())
	require.NoError(t, err)

	b, _, err := st.LoadBuild(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "malformed event stream", b.Error)
	assert.False(t, b.Finished)
}

func TestListBuilds(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := st.SaveBuild(ctx, Build{AnalyzedAt: base.Add(time.Duration(i) * time.Hour)}, sampleResults())
		require.NoError(t, err)
	}
	other := result.NewRegistry("/src/B/B.fsproj")
	other.GetOrCreate("net8.0")
	_, err := st.SaveBuild(ctx, Build{AnalyzedAt: base}, other.Snapshot(false))
	require.NoError(t, err)

	all, err := st.ListBuilds(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "/src/A/A.csproj", all[0].ProjectFile)
	assert.True(t, all[0].AnalyzedAt.After(all[1].AnalyzedAt), "newest first")
	assert.Equal(t, 2, all[0].Results)

	limited, err := st.ListBuilds(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	onlyB, err := st.ListBuilds(ctx, "/src/B/B.fsproj", 0)
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.False(t, onlyB[0].OverallSuccess)
	assert.Equal(t, 1, onlyB[0].Results)
}

func TestLoadBuild_NotFound(t *testing.T) {
	st := openTemp(t)
	_, _, err := st.LoadBuild(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBuild(t *testing.T) {
	st := openTemp(t)
	ctx := context.Background()

	id, err := st.SaveBuild(ctx, Build{}, sampleResults())
	require.NoError(t, err)

	require.NoError(t, st.DeleteBuild(ctx, id))

	_, _, err = st.LoadBuild(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, st.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&n))
	assert.Zero(t, n)

	assert.ErrorIs(t, st.DeleteBuild(ctx, id), ErrNotFound)
}
