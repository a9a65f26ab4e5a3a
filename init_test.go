package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/sherpa/internal/config"
)

// TestApplySectionCreate verifies that applySection on empty content wraps the
// section in sentinels with a trailing newline.
func TestApplySectionCreate(t *testing.T) {
	t.Parallel()
	section := sentinelStart + "\nbody\n" + sentinelEnd
	got := applySection("", section)
	assert.Contains(t, got, sentinelStart)
	assert.Contains(t, got, sentinelEnd)
	assert.True(t, strings.HasSuffix(got, sentinelEnd+"\n"), "missing trailing newline: %q", got)
}

// TestApplySectionAppend verifies that existing content without a sentinel block
// is preserved and the section is appended.
func TestApplySectionAppend(t *testing.T) {
	t.Parallel()
	existing := "# My Project\n\nSome existing content."
	section := sentinelStart + "\nnew content\n" + sentinelEnd
	got := applySection(existing, section)

	assert.True(t, strings.HasPrefix(got, existing+"\n\n"), "existing content should be preserved and separated:\n%s", got)
	assert.Contains(t, got, "new content")
}

// TestApplySectionUpdate verifies that an existing sentinel block is replaced
// precisely, leaving surrounding content intact.
func TestApplySectionUpdate(t *testing.T) {
	t.Parallel()
	before := "# Project\n\n"
	after := "\n\n## Other Section\n"
	old := before + sentinelStart + "\nold content\n" + sentinelEnd + after

	section := sentinelStart + "\nnew content\n" + sentinelEnd
	assert.Equal(t, before+section+after, applySection(old, section))
}

func TestInitWritesConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", dir}, &stdout, &stderr))

	cfg, err := config.Load(dir)
	require.NoError(t, err, "loading written config")
	assert.Equal(t, config.Default().MaxHops, cfg.MaxHops)
	assert.Contains(t, stderr.String(), config.FileName)
}

func TestInitRefusesOverwrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte("max_hops: 3\n"), 0o644))

	var stdout, stderr bytes.Buffer
	err := run([]string{"init", dir}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
	data, _ := os.ReadFile(path)
	assert.Equal(t, "max_hops: 3\n", string(data), "existing config was modified")

	require.NoError(t, run([]string{"init", "--force", dir}, &stdout, &stderr))
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxHops, "--force did not rewrite config")
}

// TestInitDryRun verifies that --dry-run prints the would-be files to stdout
// and creates nothing.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run", "--guide", "GUIDE.md", dir}, &stdout, &stderr))

	for _, name := range []string{config.FileName, "GUIDE.md"} {
		assert.NoFileExists(t, filepath.Join(dir, name), "--dry-run should not create %s", name)
	}
	out := stdout.String()
	assert.True(t, strings.HasPrefix(out, "# "+config.FileName), "dry-run output should start with the config header:\n%s", out)
	assert.Contains(t, out, "max_hops: 8")
	assert.Contains(t, out, sentinelStart)
	assert.Contains(t, out, sentinelEnd)
}

// TestInitGuideShowsFullFile verifies that --dry-run on an existing guide
// shows the complete would-be file content, including surrounding text.
func TestInitGuideShowsFullFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "CONTRIBUTING.md")

	existing := "# My Project\n\nSome existing content.\n"
	require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"init", "--dry-run", "--guide", path, dir}, &stdout, &stderr))

	assert.Contains(t, stdout.String(), "# My Project")
	data, _ := os.ReadFile(path)
	assert.Equal(t, existing, string(data), "--dry-run must not modify the file")
}

// TestInitGuideIdempotent verifies that running init twice produces an
// identical guide.
func TestInitGuideIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "GUIDE.md")

	var buf bytes.Buffer
	require.NoError(t, run([]string{"init", "--guide", "GUIDE.md", dir}, &buf, &buf))
	first, _ := os.ReadFile(path)

	require.NoError(t, run([]string{"init", "--force", "--guide", "GUIDE.md", dir}, &buf, &buf))
	second, _ := os.ReadFile(path)

	assert.NotEmpty(t, first)
	assert.Equal(t, string(first), string(second))
}

// TestInitSectionContainsExamples verifies the generated section includes
// example invocations.
func TestInitSectionContainsExamples(t *testing.T) {
	t.Parallel()
	section := generateSection()

	for _, ex := range []string{
		"sherpa summary",
		"sherpa tour",
		"-n 20",
		"--symbol",
		"sherpa path",
		"--cache",
		"--help",
	} {
		assert.Contains(t, section, ex)
	}
}
