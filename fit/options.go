package fit

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ByLCY/shrinktext/layout"
)

// DefaultShrinkFactor 是每次溢出后字号乘以的系数。
const DefaultShrinkFactor = 0.9

// ErrInvalidOptions is returned by NewText/NewRichText for contradictory options.
var ErrInvalidOptions = errors.New("fit: 无效的配置")

// Overflow 决定被截断的文本如何显示。
type Overflow string

const (
	OverflowClip     Overflow = "clip"
	OverflowEllipsis Overflow = "ellipsis"
	OverflowVisible  Overflow = "visible"
)

// ParseOverflow 规范化 DSL 中的 overflow 取值，未知值按 clip 处理。
func ParseOverflow(v string) Overflow {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ellipsis", "ellipsize", "...":
		return OverflowEllipsis
	case "visible":
		return OverflowVisible
	default:
		return OverflowClip
	}
}

// Box 是容器给出的尺寸约束（mm）。Height <= 0 表示高度不受限。
type Box struct {
	Width  float64
	Height float64
}

// Options configures an auto-shrinking text element.
type Options struct {
	Style layout.TextStyle
	// TargetSize 为起始字号，零值时使用 Style.Size。
	TargetSize layout.Length
	Align      string
	// SoftWrap 为 nil 时默认允许软换行。
	SoftWrap *bool
	// Wrap 是软换行时的折行策略（layout.WrapAnywhere 或 layout.WrapBreakWord），空值按 anywhere。
	Wrap string
	// MaxLines 为 0 表示不限行数；MinLines 为 0 时按 1 处理。
	MaxLines int
	MinLines int
	Overflow Overflow
	Box      Box

	// ShrinkFactor 为 0 时使用 DefaultShrinkFactor。
	ShrinkFactor float64
	// MinSize 与 MaxPasses 是可选的保护：零值表示不设下限、不限次数。
	MinSize   layout.Length
	MaxPasses int

	Logger *slog.Logger
	// OnPass 在每一轮测量之后按顺序调用，调用时不持有内部锁。
	OnPass func(Pass)
}

func (o Options) softWrap() bool {
	return o.SoftWrap == nil || *o.SoftWrap
}

// wrap 返回实际生效的折行策略，关闭软换行时总是 nowrap。
func (o Options) wrap() string {
	if !o.softWrap() {
		return layout.WrapNone
	}
	if o.Wrap == "" {
		return layout.WrapAnywhere
	}
	return o.Wrap
}

func (o Options) minLines() int {
	if o.MinLines <= 0 {
		return 1
	}
	return o.MinLines
}

func (o Options) factor() float64 {
	if o.ShrinkFactor == 0 {
		return DefaultShrinkFactor
	}
	return o.ShrinkFactor
}

func (o Options) target() layout.Length {
	if o.TargetSize.IsZero() {
		return o.Style.Size
	}
	return o.TargetSize
}

func (o Options) validate() error {
	if o.MinLines < 0 || o.MaxLines < 0 {
		return fmt.Errorf("%w: 行数不能为负", ErrInvalidOptions)
	}
	if o.MaxLines > 0 && o.minLines() > o.MaxLines {
		return fmt.Errorf("%w: 需要 1 <= minLines(%d) <= maxLines(%d)", ErrInvalidOptions, o.minLines(), o.MaxLines)
	}
	if f := o.factor(); f <= 0 || f >= 1 {
		return fmt.Errorf("%w: 收缩系数必须在 (0,1) 之间，实际 %g", ErrInvalidOptions, f)
	}
	if t := o.target(); t.Value <= 0 {
		return fmt.Errorf("%w: 起始字号必须为正数，实际 %s", ErrInvalidOptions, t)
	}
	if o.MinSize.Value < 0 || o.MaxPasses < 0 {
		return fmt.Errorf("%w: 保护参数不能为负", ErrInvalidOptions)
	}
	return nil
}
