package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/shrinktext/fit"
)

const badgeDSL = `doc Badge v1 {
  resources {
    style Title {
      size: 30pt
      max-lines: 1
      overflow: ellipsis
    }
  }
  page A6 landscape margin 5mm {
    fit Title name title width 60mm {
      "Hello ${user.name|World}"
    }
  }
}
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String() + stderr.String(), err
}

func TestRenderMonoPreview(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "badge.st")
	out := filepath.Join(dir, "out", "badge.txt")
	debug := filepath.Join(dir, "layout.json")
	require.NoError(t, os.WriteFile(in, []byte(badgeDSL), 0o644))

	_, err := execute(t, "render", "--in", in, "--out", out, "--backend", "mono", "--debug", debug)
	require.NoError(t, err)

	preview, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(preview), "== page 1")
	assert.Contains(t, string(preview), "title 24.3pt")
	assert.Contains(t, string(preview), "Hello World")

	raw, err := os.ReadFile(debug)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state": "stable"`)
}

func TestRenderWithData(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "badge.st")
	data := filepath.Join(dir, "data.yaml")
	out := filepath.Join(dir, "badge.txt")
	require.NoError(t, os.WriteFile(in, []byte(badgeDSL), 0o644))
	require.NoError(t, os.WriteFile(data, []byte("user:\n  name: Ada\n"), 0o644))

	_, err := execute(t, "render", "--in", in, "--out", out, "--backend", "mono", "--data", data)
	require.NoError(t, err)
	preview, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(preview), "Hello Ada")
	assert.Contains(t, string(preview), "title 30pt")
}

func TestRenderStrictFailsOnUnconverged(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tiny.st")
	out := filepath.Join(dir, "tiny.txt")
	require.NoError(t, os.WriteFile(in, []byte(`doc Tiny v1 {
  page A7 {
    fit name tiny width 1mm max-passes 2 { "Hello" }
  }
}
`), 0o644))

	logs, err := execute(t, "render", "--in", in, "--out", out, "--backend", "mono")
	require.NoError(t, err)
	assert.Contains(t, logs, "未收敛")
	_, statErr := os.Stat(out)
	assert.NoError(t, statErr)

	_, err = execute(t, "render", "--in", in, "--out", out, "--backend", "mono", "--strict")
	assert.ErrorIs(t, err, fit.ErrNotConverged)
}

func TestRenderReportsParseErrors(t *testing.T) {
	_, err := execute(t, "render", "--in", filepath.Join(t.TempDir(), "missing.st"), "--backend", "mono")
	assert.Error(t, err)
}

func TestWatchHelpNamesWatchedFiles(t *testing.T) {
	cmd, _, err := newRootCmd().Find([]string{"watch"})
	require.NoError(t, err)
	assert.Equal(t, "watch", cmd.Name())
	assert.Contains(t, cmd.Short, "DSL 与数据文件")
	assert.NotContains(t, cmd.Short, "配置")
}
