// Package fit implements a text element that shrinks its font size in
// discrete steps until the layout service reports neither a truncated last
// line nor a width overflow.
//
// Each Text owns a single piece of state, the current font size. A pass
// lays the text out at that size and inspects the result; on overflow the
// size is multiplied by the shrink factor and exactly one further pass is
// scheduled. Passes run one at a time inside Render.
package fit

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ByLCY/shrinktext/layout"
)

// ErrNotConverged is returned by Render when an opt-in guard (MinSize or
// MaxPasses) stopped the loop while the text still overflowed.
var ErrNotConverged = errors.New("fit: 文本在保护范围内未能收敛")

// State 表示当前配置下的测量状态。
type State int

const (
	StateMeasuring State = iota // 有待执行的测量
	StateStable                 // 上一轮没有溢出
	StateExhausted              // 保护参数触发，仍然溢出
)

func (s State) String() string {
	switch s {
	case StateMeasuring:
		return "measuring"
	case StateStable:
		return "stable"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Pass 记录一轮测量的结果，供 OnPass 观察。
type Pass struct {
	Index            int
	Size             layout.Length
	Lines            int
	Ellipsized       bool
	OverflowWidth    bool
	InspectionFailed bool
	Shrunk           bool
	Next             layout.Length
	State            State
}

// Text is an auto-shrinking text element. It is safe for concurrent use;
// renders are serialized per instance.
type Text struct {
	mu     sync.Mutex
	engine Engine
	opts   Options
	log    *slog.Logger

	text   layout.RichText
	target layout.Length
	size   layout.Length
	state  State
	// pending 表示字号写入后尚未执行的那一轮测量
	pending bool
	passes  int
	block   *layout.Block
	reports []Pass
}

// NewText creates an element for plain text.
func NewText(text string, opts Options, engine Engine) (*Text, error) {
	return newText(layout.Plain(text), opts, engine)
}

// NewRichText creates an element for text carrying inline formatting spans.
func NewRichText(text layout.RichText, opts Options, engine Engine) (*Text, error) {
	return newText(text, opts, engine)
}

func newText(text layout.RichText, opts Options, engine Engine) (*Text, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: 缺少排版服务", ErrInvalidOptions)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Text{
		engine: engine,
		opts:   opts,
		log:    logger.With("component", "responsive-text"),
		text:   text,
		target: opts.target(),
	}
	t.reset()
	return t, nil
}

// Size returns the current font size.
func (t *Text) Size() layout.Length {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Target returns the configured starting size.
func (t *Text) Target() layout.Length {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

// State returns the measuring state of the current configuration.
func (t *Text) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Passes returns how many passes ran since the last reconfiguration.
func (t *Text) Passes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.passes
}

// Block returns the last rendered block, nil before the first pass.
func (t *Text) Block() *layout.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.block
}

// Render runs every scheduled pass until the size is accepted and returns
// the last block. A stable element renders nothing new.
func (t *Text) Render() (*layout.Block, error) {
	t.mu.Lock()
	block, err := t.drain()
	reports := t.reports
	t.reports = nil
	t.mu.Unlock()

	if t.opts.OnPass != nil {
		for _, p := range reports {
			t.opts.OnPass(p)
		}
	}
	return block, err
}

// SetText replaces the content with plain text.
func (t *Text) SetText(text string) { t.SetRichText(layout.Plain(text)) }

// SetRichText replaces the content. A different text resets the size to the target.
func (t *Text) SetRichText(text layout.RichText) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if text.Equal(t.text) {
		return
	}
	t.text = text
	t.reset()
}

// SetTargetSize changes the starting size; a zero length falls back to the style size.
// A different target resets the size and discards the shrink history.
func (t *Text) SetTargetSize(size layout.Length) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if size.IsZero() {
		size = t.opts.Style.Size
	}
	if size == t.target || size.Value <= 0 {
		return
	}
	t.target = size
	t.reset()
}

// Resize updates the container. The current size is kept and re-measured,
// so a grown box does not grow the text back.
func (t *Text) Resize(box Box) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if box == t.opts.Box {
		return
	}
	t.opts.Box = box
	t.passes = 0
	t.schedule()
}

func (t *Text) reset() {
	t.size = t.target
	t.passes = 0
	t.schedule()
}

// schedule 对应“写入字号即触发一次重绘”。
func (t *Text) schedule() {
	t.state = StateMeasuring
	t.pending = true
}

func (t *Text) setSize(size layout.Length) {
	t.size = size
	t.schedule()
}

// drain 串行执行所有待处理的测量；调用方持有锁。
func (t *Text) drain() (*layout.Block, error) {
	for t.pending {
		t.pending = false
		if err := t.pass(); err != nil {
			// 本轮未完成，下次 Render 重新测量
			t.pending = true
			return t.block, err
		}
	}
	if t.state == StateExhausted {
		return t.block, fmt.Errorf("%w: %d 轮后字号为 %s", ErrNotConverged, t.passes, t.size)
	}
	return t.block, nil
}

func (t *Text) pass() error {
	block, err := t.engine.Layout(t.request())
	if err != nil {
		return fmt.Errorf("fit: 排版失败: %w", err)
	}
	t.passes++
	t.block = block

	report := Pass{Index: t.passes, Size: t.size, Lines: block.LineCount()}
	shrink := t.inspect(block, &report)
	switch {
	case !shrink:
		t.state = StateStable
	case t.opts.MaxPasses > 0 && t.passes >= t.opts.MaxPasses:
		t.state = StateExhausted
		t.log.Warn("已达到最大测量轮数，停止收缩", "passes", t.passes, "size", t.size.String())
	default:
		next, ok := t.shrunk()
		if !ok {
			t.state = StateExhausted
			t.log.Warn("字号已到下限，停止收缩", "size", t.size.String(), "min", t.opts.MinSize.String())
			break
		}
		t.log.Debug("文本溢出，缩小字号", "from", t.size.String(), "to", next.String(), "pass", t.passes)
		report.Shrunk = true
		report.Next = next
		t.setSize(next)
	}
	report.State = t.state
	if t.opts.OnPass != nil {
		t.reports = append(t.reports, report)
	}
	return nil
}

// inspect 根据最后一个可见行是否被省略、以及是否横向溢出决定是否收缩。
// 查询失败时记录日志并按“未溢出”处理。
func (t *Text) inspect(r Result, report *Pass) bool {
	last := r.LineCount() - 1
	ellipsized, ok := r.LineEllipsized(last)
	if !ok {
		report.InspectionFailed = true
		t.log.Error("无法读取排版结果", "line", last, "lineCount", r.LineCount())
		return false
	}
	report.Ellipsized = ellipsized
	report.OverflowWidth = r.DidOverflowWidth()
	return ellipsized || report.OverflowWidth
}

// shrunk 返回下一轮的字号；ok 为 false 表示已处于下限。
func (t *Text) shrunk() (layout.Length, bool) {
	next := t.size.Scale(t.opts.factor())
	floor := t.opts.MinSize
	if floor.Value <= 0 {
		return next, true
	}
	if t.size.ToMM() <= floor.ToMM()+1e-9 {
		return t.size, false
	}
	if next.Less(floor) {
		if t.size.Unit != layout.UnitNone && floor.Unit != layout.UnitNone {
			floor = layout.Length{Value: floor.To(t.size.Unit), Unit: t.size.Unit}
		}
		return floor, true
	}
	return next, true
}

func (t *Text) request() Request {
	return Request{
		Text:     t.text,
		Size:     t.size,
		Style:    t.opts.Style,
		Align:    t.opts.Align,
		SoftWrap: t.opts.softWrap(),
		Wrap:     t.opts.wrap(),
		MaxLines: t.opts.MaxLines,
		MinLines: t.opts.minLines(),
		Overflow: t.opts.Overflow,
		Box:      t.opts.Box,
	}
}
