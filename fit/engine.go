package fit

import (
	"fmt"

	"github.com/ByLCY/shrinktext/layout"
)

// Result is what the layout service reports after a pass.
type Result interface {
	LineCount() int
	// LineEllipsized 对越界下标返回 ok=false，而不是 panic。
	LineEllipsized(i int) (ellipsized bool, ok bool)
	DidOverflowWidth() bool
}

var _ Result = (*layout.Block)(nil)

// Request 是一轮测量/绘制所需的全部输入。
type Request struct {
	Text     layout.RichText
	Size     layout.Length
	Style    layout.TextStyle
	Align    string
	SoftWrap bool
	// Wrap 仅在 SoftWrap 为 true 时生效，空值按 anywhere。
	Wrap     string
	MaxLines int
	MinLines int
	Overflow Overflow
	Box      Box
}

// Engine lays out and measures text. It is called exactly once per pass.
type Engine interface {
	Layout(req Request) (*layout.Block, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(req Request) (*layout.Block, error)

func (f EngineFunc) Layout(req Request) (*layout.Block, error) { return f(req) }

// TypesetterEngine adapts a layout.Typesetter: it applies maxLines, the box
// height and the overflow policy on top of the raw line breaking.
type TypesetterEngine struct {
	Typesetter layout.Typesetter
	Fonts      map[string]layout.FontResource
}

const overflowEpsilon = 1e-6

// Layout implements Engine.
func (e *TypesetterEngine) Layout(req Request) (*layout.Block, error) {
	if e == nil || e.Typesetter == nil {
		return nil, fmt.Errorf("fit: 缺少排版后端 Typesetter")
	}
	fontSize := req.Size.ToMM()
	lineHeight := req.Style.LineHeight.Resolve(req.Size, layout.UnitMM)
	wrap := layout.WrapNone
	if req.SoftWrap {
		wrap = req.Wrap
		if wrap == "" || wrap == layout.WrapNone {
			wrap = layout.WrapAnywhere
		}
	}

	lines, err := e.Typesetter.LayoutLines(layout.TextRequest{
		Text:          req.Text,
		Width:         req.Box.Width,
		FontSize:      fontSize,
		LineHeight:    lineHeight,
		LetterSpacing: req.Style.LetterSpacing.ToMM(),
		Style:         req.Style,
		Font:          e.font(req.Style.Font),
		Fonts:         e.Fonts,
		Wrap:          wrap,
	})
	if err != nil {
		return nil, err
	}

	total := len(lines)
	visible := visibleLineCount(lines, req.MaxLines, req.Box.Height)
	shown := make([]layout.TextLine, visible)
	copy(shown, lines[:visible])

	block := &layout.Block{
		Text:       req.Text,
		Style:      req.Style,
		FontSize:   req.Size,
		LineHeight: lineHeight,
		Width:      req.Box.Width,
		Align:      req.Align,
		Overflow:   string(req.Overflow),
		Lines:      shown,
		TotalLines: total,
		Truncated:  visible < total,
	}
	if block.Truncated && req.Overflow == OverflowEllipsis {
		shown[visible-1].Ellipsized = true
	}
	for _, ln := range shown {
		if overflowsWidth(ln, req.Box.Width) {
			block.OverflowWidth = true
			break
		}
	}

	height := 0.0
	for _, ln := range shown {
		height += ln.GapBefore + ln.Height
	}
	// minLines 只影响高度：不足的行按行高补齐
	if minLines := max(req.MinLines, 1); visible < minLines {
		height += float64(minLines-visible) * lineHeight
	}
	block.Height = height
	return block, nil
}

// overflowsWidth 在宽度为 0 的盒子里，任何非空行都算溢出，无论字号多小。
func overflowsWidth(ln layout.TextLine, width float64) bool {
	if width <= 0 {
		return ln.Content != "" || ln.Width > 0
	}
	return ln.Width > width+overflowEpsilon
}

// visibleLineCount 取 maxLines 与盒子高度限制中较小者，但至少保留一行（若有）。
func visibleLineCount(lines []layout.TextLine, maxLines int, boxHeight float64) int {
	n := len(lines)
	if maxLines > 0 && n > maxLines {
		n = maxLines
	}
	if boxHeight > 0 {
		used := 0.0
		fit := 0
		for i := 0; i < n; i++ {
			used += lines[i].GapBefore + lines[i].Height
			if used > boxHeight+overflowEpsilon {
				break
			}
			fit++
		}
		if fit == 0 && n > 0 {
			fit = 1
		}
		n = fit
	}
	return n
}

func (e *TypesetterEngine) font(name string) layout.FontResource {
	if font, ok := e.Fonts[name]; ok {
		return font
	}
	if font, ok := e.Fonts["Body"]; ok {
		return font
	}
	for _, font := range e.Fonts {
		return font
	}
	return layout.FontResource{Name: name}
}
