// Package watch re-runs a callback when any of a fixed set of files changes.
// Events are debounced so one editor save triggers one rebuild.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler 收到去重后的变更文件列表（绝对路径，已排序）。
type Handler func(changed []string)

type Options struct {
	// Debounce 为 0 时使用 100ms。
	Debounce time.Duration
	Logger   *slog.Logger
}

const defaultDebounce = 100 * time.Millisecond

// Watcher 监听文件所在目录，只转发属于监听集合的事件。
// 监听目录而非文件本身，编辑器“写临时文件再改名”的保存方式也能被捕获。
type Watcher struct {
	fs       *fsnotify.Watcher
	files    map[string]bool
	handler  Handler
	debounce time.Duration
	log      *slog.Logger

	closeOnce sync.Once
}

// New 创建 Watcher；paths 中的空字符串会被忽略。
func New(paths []string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watch: handler 不能为空")
	}
	files := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: 无法解析路径 %s: %w", p, err)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("watch: 没有需要监听的文件")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch: 无法监听目录 %s: %w", dir, err)
		}
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		fs:       fsw,
		files:    files,
		handler:  handler,
		debounce: debounce,
		log:      logger.With("component", "watch"),
	}, nil
}

// Files returns the watched files, sorted.
func (w *Watcher) Files() []string {
	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Run 阻塞直到 ctx 取消或 Close 被调用。handler 始终在 Run 所在的 goroutine 中串行执行。
// 退出前会先交付尚未触发的变更。
func (w *Watcher) Run(ctx context.Context) error {
	pending := map[string]bool{}
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		changed := make([]string, 0, len(pending))
		for p := range pending {
			changed = append(changed, p)
		}
		sort.Strings(changed)
		clear(pending)
		w.handler(changed)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()
		case event, ok := <-w.fs.Events:
			if !ok {
				flush()
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("文件变更", "path", event.Name, "op", event.Op.String())
			pending[filepath.Clean(event.Name)] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			flush()
		case err, ok := <-w.fs.Errors:
			if !ok {
				flush()
				return nil
			}
			w.log.Error("监听出错，继续监听", "err", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !w.files[filepath.Clean(event.Name)] {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops Run and releases the underlying watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}
