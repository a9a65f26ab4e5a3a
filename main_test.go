package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sherpa/internal/model"
	"github.com/phobologic/sherpa/internal/tour"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "app.py", `import service

def main():
    service.run()

if __name__ == "__main__":
    main()
`)
	writeTestFile(t, dir, "service.py", `from db import query

def run():
    query()
`)
	writeTestFile(t, dir, "db.py", `def query():
    pass
`)
	return dir
}

func runOK(t *testing.T, args ...string) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(args, &stdout, &stderr), "run %v\nstderr: %s", args, stderr.String())
	return stdout.String()
}

func decodeModel(t *testing.T, out string) model.UnifiedModel {
	t.Helper()
	var m model.UnifiedModel
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

// ageSources backdates the sample sources so a cache written now is fresh
// even on filesystems with coarse timestamps.
func ageSources(t *testing.T, dir string) {
	t.Helper()
	old := time.Now().Add(-time.Hour)
	for _, name := range []string{"app.py", "service.py", "db.py"} {
		require.NoError(t, os.Chtimes(filepath.Join(dir, name), old, old))
	}
}

func TestRunMapJSON(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	m := decodeModel(t, runOK(t, "map", dir))

	assert.Equal(t, "app.py", m.Entry())
	require.Len(t, m.Files, 3)
	assert.Equal(t, []string{"service.py"}, m.Files["app.py"].DependsOn)
	assert.Equal(t, []string{"db.query"}, m.Files["service.py"].Functions["run"].ResolvedCalls)
	assert.Equal(t, []model.CallEdge{
		{From: "app.main", To: "service.run"},
		{From: "service.run", To: "db.query"},
	}, m.Metadata.ResolvedCallEdges)
}

func TestRunMapDeterministic(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	assert.Equal(t, runOK(t, "map", dir), runOK(t, "map", dir))
}

func TestRunMapTOON(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "map", "-f", "toon", dir)
	assert.True(t, strings.HasPrefix(out, "repo: "+filepath.Base(dir)), "missing repo header:\n%s", out)
	assert.Contains(t, out, "entry_point: app.py")
	assert.Contains(t, out, "files[3]")
	assert.Contains(t, out, "app.main,service.run")
}

func TestRunMapMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "map", "-f", "toon", "-n", "1", dir)
	assert.Contains(t, out, "files[1]")
}

func TestRunMapFileFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	m := decodeModel(t, runOK(t, "map", "--file", "SERVICE", dir))
	require.Len(t, m.Files, 1)
	assert.Contains(t, m.Files, "service.py")
}

func TestRunMapSymbolFilter(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	m := decodeModel(t, runOK(t, "map", "--symbol", "service.run", dir))
	for _, p := range []string{"app.py", "service.py", "db.py"} {
		assert.Contains(t, m.Files, p, "%s missing from symbol neighbourhood", p)
	}
}

func TestRunMapSymbolFilterNoMatch(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"map", "--symbol", "nonexistent", dir}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no function matches")
}

func TestRunMapUnsupportedFormat(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"map", "-f", "xml", t.TempDir()}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestRunMapCache(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	ageSources(t, dir)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	first := runOK(t, "map", "--cache", cachePath, dir)
	data, err := os.ReadFile(cachePath)
	require.NoError(t, err, "cache not created")
	assert.Equal(t, string(cacheHeader("json"))+first, string(data))

	// A fresh cache is served without its header.
	cached := append(cacheHeader("json"), "cached\n"...)
	require.NoError(t, os.WriteFile(cachePath, cached, 0o644))
	assert.Equal(t, "cached\n", runOK(t, "map", "--cache", cachePath, dir))

	// Filters bypass the cache.
	assert.NotEqual(t, "cached\n", runOK(t, "map", "--cache", cachePath, "--file", "db", dir))
}

func TestRunMapCacheKeyedByFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	ageSources(t, dir)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	toonOut := runOK(t, "map", "-f", "toon", "--cache", cachePath, dir)
	assert.True(t, strings.HasPrefix(toonOut, "repo: "), toonOut)

	// The toon cache is fresh but must not answer a json request.
	m := decodeModel(t, runOK(t, "map", "--cache", cachePath, dir))
	assert.Len(t, m.Files, 3)

	data, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, cacheHeader("json")), "cache not rewritten for json")
}

func TestRunMapCacheSkipsMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	ageSources(t, dir)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	// A truncated map neither writes the cache...
	runOK(t, "map", "-n", "1", "--cache", cachePath, dir)
	_, err := os.Stat(cachePath)
	assert.True(t, os.IsNotExist(err), "truncated map wrote the cache")

	// ...nor reads it.
	cached := append(cacheHeader("json"), "cached\n"...)
	require.NoError(t, os.WriteFile(cachePath, cached, 0o644))
	m := decodeModel(t, runOK(t, "map", "-n", "1", "--cache", cachePath, dir))
	assert.Len(t, m.Files, 1)
}

func TestRunInvalidRoot(t *testing.T) {
	t.Parallel()
	f := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(f, []byte("hi"), 0o644))

	var stdout, stderr bytes.Buffer
	assert.Error(t, run([]string{"map", f}, &stdout, &stderr), "non-directory root")
	assert.Error(t, run([]string{"map", filepath.Join(t.TempDir(), "missing")}, &stdout, &stderr), "missing root")
}

func TestRunEmptyRepo(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing here")

	m := decodeModel(t, runOK(t, "map", dir))
	assert.Empty(t, m.Files)
	assert.Nil(t, m.EntryPoint)
}

func TestRunConfigSizeGuard(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".sherpa.yaml", "max_file_size: 100\n")
	writeTestFile(t, dir, "small.py", "x = 1\n")
	writeTestFile(t, dir, "big.py", strings.Repeat("x = 1\n", 200))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"map", dir}, &stdout, &stderr))
	m := decodeModel(t, stdout.String())

	require.Len(t, m.Metadata.ParseErrors, 1)
	assert.Equal(t, "big.py", m.Metadata.ParseErrors[0].File)
	assert.Contains(t, m.Metadata.ParseErrors[0].Error, "exceeds 100 bytes")
	assert.Contains(t, m.Files, "big.py", "big.py should stay in the file set")
	assert.Contains(t, stderr.String(), "big.py", "expected a warning for big.py")
}

func TestRunBadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, ".sherpa.yaml", "max_hops: 0\n")

	var stdout, stderr bytes.Buffer
	assert.Error(t, run([]string{"map", dir}, &stdout, &stderr))
}

func TestRunPath(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "path", "app.main", "db.query", dir)
	assert.Equal(t, "app.main -> service.run -> db.query", strings.TrimSpace(out))

	var stdout, stderr bytes.Buffer
	err := run([]string{"path", "app.main", "db.query", dir, "--max-hops", "1"}, &stdout, &stderr)
	assert.ErrorIs(t, err, errNoPath)
}

func TestRunPathFromDatabase(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := t.TempDir()
	db := filepath.Join(out, "runs", "sherpa.db")

	runOK(t, "analyze", "-o", filepath.Join(out, "artifacts"), "--db", db, dir)

	// The stored run answers even after the source changes.
	require.NoError(t, os.Remove(filepath.Join(dir, "db.py")))
	got := runOK(t, "path", "--db", db, "app.main", "db.query", dir)
	assert.Equal(t, "app.main -> service.run -> db.query", strings.TrimSpace(got))
}

func TestRunAnalyze(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := filepath.Join(t.TempDir(), "demo")

	runOK(t, "analyze", "--output-dir", out, dir)

	for _, name := range []string{analysisFile, learningFile, flowchartFile} {
		assert.FileExists(t, filepath.Join(out, name))
	}
	assert.NoFileExists(t, filepath.Join(out, annotationsFile), "written without --enrich")

	data, err := os.ReadFile(filepath.Join(out, learningFile))
	require.NoError(t, err)
	var tr tour.Tour
	require.NoError(t, json.Unmarshal(data, &tr))
	require.Len(t, tr.LearningOrder, 3)
	assert.Equal(t, "app.py", tr.LearningOrder[0].File)
	assert.True(t, tr.LearningOrder[0].IsEntry)

	chart, err := os.ReadFile(filepath.Join(out, flowchartFile))
	require.NoError(t, err)
	assert.Contains(t, string(chart), "app_py --> service_py")
}

func TestRunAnalyzeEnrich(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	out := t.TempDir()

	runOK(t, "analyze", "-o", out, "--enrich", dir)

	data, err := os.ReadFile(filepath.Join(out, annotationsFile))
	require.NoError(t, err, "annotations not written")
	m := decodeModel(t, string(data))
	assert.NotEmpty(t, m.Files["app.py"].Explanation, "entry file has no explanation")
	assert.NotEmpty(t, m.Files["db.py"].Functions["query"].Explanation, "function has no explanation")

	plain, err := os.ReadFile(filepath.Join(out, analysisFile))
	require.NoError(t, err)
	assert.NotContains(t, string(plain), "explanation", "analysis.json must not carry explanations")
}

func TestRunTour(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	var tr tour.Tour
	require.NoError(t, json.Unmarshal([]byte(runOK(t, "tour", dir)), &tr))
	assert.Equal(t, 3, tr.Metadata.FileCount)
	require.NotNil(t, tr.Metadata.EntryPoint)
	assert.Equal(t, "app.py", *tr.Metadata.EntryPoint)
}

func TestRunFlowchart(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "flowchart", dir)
	assert.True(t, strings.HasPrefix(out, "graph TD\n"), out)
	assert.Contains(t, out, "service_py --> db_py")
}

func TestRunSummary(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out := runOK(t, "summary", dir)
	for _, want := range []string{
		"files: 3\n",
		"functions: 3\n",
		"dependency_edges: 2\n",
		"call_edges: 2\n",
		"entry_point: app.py\n",
		"most_dependent: app.py (1)\n",
		"leaf_files[1]: db.py\n",
		"central[3]:\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestSummarizeMostCentral(t *testing.T) {
	t.Parallel()
	m := &model.UnifiedModel{Files: map[string]model.FileView{
		"a.py": {DependsOn: []string{"c.py"}},
		"b.py": {DependsOn: []string{"c.py"}},
		"c.py": {DependsOn: []string{}},
	}}

	s := summarize(m, 1)
	require.Len(t, s.Central, 1)
	assert.Equal(t, "c.py", s.Central[0].Path)
	assert.Equal(t, "a.py", s.MostDependent)
	assert.Empty(t, s.EntryPoint)
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out := runOK(t, "--version")
	assert.True(t, strings.HasPrefix(out, "sherpa "), out)
}

func TestCacheIsFresh(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	assert.False(t, cacheIsFresh(filepath.Join(dir, "missing.cache"), dir, []string{"app.py"}), "missing cache")
	assert.False(t, cacheIsFresh(filepath.Join(dir, "app.py"), dir, []string{"gone.py"}), "missing source")
}
