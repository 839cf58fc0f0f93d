package binding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateJSONAndYAML(t *testing.T) {
	fromJSON, err := Decode([]byte(`{"user":{"name":"Ada"},"items":[{"sku":"A-1"},{"sku":"B-2"}],"total":12.5}`))
	require.NoError(t, err)
	fromYAML, err := Decode([]byte("user:\n  name: Ada\nitems:\n  - sku: A-1\n  - sku: B-2\ntotal: 12.5\n"))
	require.NoError(t, err)

	for _, data := range []any{fromJSON, fromYAML} {
		assert.Equal(t, "Hi Ada", Interpolate("Hi ${user.name}", data))
		assert.Equal(t, "B-2", Interpolate("${items[1].sku}", data))
		assert.Equal(t, "12.5", Interpolate("${ total }", data))
	}
}

func TestInterpolateFallback(t *testing.T) {
	data := map[string]any{"user": map[string]any{"name": "Ada"}}
	assert.Equal(t, "Ada", Interpolate("${user.name|Guest}", data))
	assert.Equal(t, "Guest", Interpolate("${user.nick|Guest}", data))
	assert.Equal(t, "", Interpolate("${user.nick|}", data))
	assert.Equal(t, "Guest", Interpolate("${user.name|Guest}", nil))
	// 没有 fallback 时保留占位符
	assert.Equal(t, "${user.nick}", Interpolate("${user.nick}", data))
	assert.Equal(t, "${x[9]}", Interpolate("${x[9]}", map[string]any{"x": []any{1}}))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("title: Badge\n"), 0o644))
	data, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Badge", Interpolate("${title}", data))

	_, err = LoadFile(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
	_, err = Decode([]byte("a: [1, 2"))
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	data := map[string]any{"grid": []any{[]any{"a", "b"}, []any{"c"}}}
	v, ok := Lookup(data, "grid[0][1]")
	require.True(t, ok)
	assert.Equal(t, "b", v)
	_, ok = Lookup(data, "grid[x]")
	assert.False(t, ok)
	_, ok = Lookup(data, "grid[2]")
	assert.False(t, ok)
	_, ok = Lookup(nil, "grid")
	assert.False(t, ok)
}
