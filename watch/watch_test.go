package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) handle(changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
}

func (r *recorder) snapshot() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]string(nil), r.calls...)
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "card.st")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(doc, []byte("a"), 0o644))

	rec := &recorder{}
	w, err := New([]string{doc, ""}, rec.handle, Options{Debounce: 150 * time.Millisecond})
	require.NoError(t, err)
	defer w.Close()

	abs, err := filepath.Abs(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{abs}, w.Files())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(doc, []byte{byte('b' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(other, []byte("ignored"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) > 0 }, 3*time.Second, 20*time.Millisecond)
	calls := rec.snapshot()
	assert.Equal(t, []string{abs}, calls[0])

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("Run 未在取消后退出")
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil, func([]string) {}, Options{})
	assert.Error(t, err)
	_, err = New([]string{"x"}, nil, Options{})
	assert.Error(t, err)
}
