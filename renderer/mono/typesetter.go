// Package mono measures and previews text on a monospace cell grid.
// Widths come from go-runewidth, so CJK and emoji take two cells.
package mono

import (
	"math"

	"github.com/mattn/go-runewidth"

	"github.com/ByLCY/shrinktext/layout"
)

// DefaultAdvance 是单个格子的宽度与字号之比。
const DefaultAdvance = 0.6

// Typesetter implements layout.Typesetter with a fixed advance per terminal cell.
type Typesetter struct {
	// Advance 为 0 时使用 DefaultAdvance。
	Advance float64
	cond    *runewidth.Condition
}

var _ layout.Typesetter = (*Typesetter)(nil)

// NewTypesetter returns a typesetter that treats East Asian ambiguous runes as narrow.
func NewTypesetter() *Typesetter {
	cond := runewidth.NewCondition()
	cond.EastAsianWidth = false
	return &Typesetter{Advance: DefaultAdvance, cond: cond}
}

// Cells 返回字符串占用的格子数。
func (t *Typesetter) Cells(s string) int {
	if t.cond == nil {
		return runewidth.StringWidth(s)
	}
	return t.cond.StringWidth(s)
}

// Width 返回 s 在给定字号与字距下的宽度（mm）。
func (t *Typesetter) Width(s string, fontSize, letterSpacing float64) float64 {
	cells := 0
	runes := 0
	for _, r := range s {
		if t.cond != nil {
			cells += t.cond.RuneWidth(r)
		} else {
			cells += runewidth.RuneWidth(r)
		}
		runes++
	}
	return float64(cells)*t.advance()*fontSize + float64(runes)*letterSpacing
}

func (t *Typesetter) advance() float64 {
	if t.Advance <= 0 {
		return DefaultAdvance
	}
	return t.Advance
}

// LayoutLines 实现 layout.Typesetter：字号/行高/宽度均为 mm，行高取字号本身，行距补到 GapBefore。
func (t *Typesetter) LayoutLines(req layout.TextRequest) ([]layout.TextLine, error) {
	measure := func(text string, _ layout.SpanStyle) float64 {
		return t.Width(text, req.FontSize, req.LetterSpacing)
	}
	lines := layout.WrapRuns(req.Text.Runs(), req.Width, req.Wrap, measure)

	textHeight := req.FontSize
	leading := math.Max(req.LineHeight-textHeight, 0)
	for i := range lines {
		lines[i].Height = textHeight
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}
