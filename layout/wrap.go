package layout

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MeasureFunc 返回一段同样式文本的宽度（mm）。
type MeasureFunc func(text string, style SpanStyle) float64

type piece struct {
	text  string
	style SpanStyle
}

// wrapToken 是折行的最小单位：一个词（可能跨越多个 span）、一段空白或一个显式换行。
type wrapToken struct {
	pieces  []piece
	space   bool
	newline bool
}

// WrapRuns 使用贪心算法把样式片段拆成行，宽度与 limit 均为 mm。
// limit <= 0 表示不限宽度。返回的行只填充 Content/Runs/Width，行高由调用方回填。
func WrapRuns(runs []TextRun, limit float64, wrap string, measure MeasureFunc) []TextLine {
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	w := &lineWriter{measure: measure}

	switch wrap {
	case WrapNone:
		for _, tok := range tokenizeRuns(runs) {
			if tok.newline {
				w.emit(true)
				continue
			}
			w.append(tok.pieces...)
		}
	case WrapBreakWord:
		for _, tok := range tokenizeRuns(runs) {
			if tok.newline {
				w.emit(true)
				continue
			}
			for _, p := range splitPieces(tok.pieces) {
				pw := measure(p.text, p.style)
				if w.width > 0 && w.width+pw > limit {
					w.emit(false)
				}
				w.append(p)
			}
		}
	default:
		for _, tok := range tokenizeRuns(runs) {
			if tok.newline {
				w.emit(true)
				continue
			}
			tw := w.measureAll(tok.pieces)
			if w.width > 0 && w.width+tw > limit {
				w.emit(false)
				if tok.space {
					// 行尾空白不带到下一行
					continue
				}
			}
			if tw <= limit {
				w.append(tok.pieces...)
				continue
			}
			// 单个词比整行还宽：按字符拆分
			for _, p := range splitPieces(tok.pieces) {
				pw := measure(p.text, p.style)
				if w.width > 0 && w.width+pw > limit {
					w.emit(false)
				}
				w.append(p)
			}
		}
	}
	w.emit(true)
	return w.lines
}

type lineWriter struct {
	measure MeasureFunc
	lines   []TextLine
	pieces  []piece
	width   float64
}

func (w *lineWriter) measureAll(ps []piece) float64 {
	total := 0.0
	for _, p := range ps {
		total += w.measure(p.text, p.style)
	}
	return total
}

func (w *lineWriter) append(ps ...piece) {
	for _, p := range ps {
		if p.text == "" {
			continue
		}
		w.width += w.measure(p.text, p.style)
		if n := len(w.pieces); n > 0 && spanStyleEqual(w.pieces[n-1].style, p.style) {
			w.pieces[n-1].text += p.text
			continue
		}
		w.pieces = append(w.pieces, p)
	}
}

// emit 结束当前行；force 为 true 时即使为空也输出一行（显式换行或文本结尾）。
func (w *lineWriter) emit(force bool) {
	if len(w.pieces) == 0 {
		if force {
			w.lines = append(w.lines, TextLine{})
		}
		return
	}
	var builder strings.Builder
	runs := make([]TextRun, 0, len(w.pieces))
	for _, p := range w.pieces {
		builder.WriteString(p.text)
		runs = append(runs, TextRun{Text: p.text, Style: p.style})
	}
	line := TextLine{Content: builder.String(), Width: w.width}
	if len(runs) > 1 || !runs[0].Style.IsZero() {
		line.Runs = runs
	}
	w.lines = append(w.lines, line)
	w.pieces = nil
	w.width = 0
}

// tokenizeRuns 在空白与非空白的边界切分，词可以跨越多个 run。
func tokenizeRuns(runs []TextRun) []wrapToken {
	var tokens []wrapToken
	var cur wrapToken
	var builder strings.Builder
	var style SpanStyle
	started := false

	flushPiece := func() {
		if builder.Len() == 0 {
			return
		}
		cur.pieces = append(cur.pieces, piece{text: builder.String(), style: style})
		builder.Reset()
	}
	flushToken := func() {
		flushPiece()
		if len(cur.pieces) > 0 {
			tokens = append(tokens, cur)
		}
		cur = wrapToken{}
		started = false
	}

	for _, run := range runs {
		flushPiece()
		style = run.Style
		for _, r := range run.Text {
			if r == '\r' {
				continue
			}
			if r == '\n' {
				flushToken()
				tokens = append(tokens, wrapToken{newline: true})
				continue
			}
			isSpace := unicode.IsSpace(r)
			if started && cur.space != isSpace {
				flushToken()
			}
			if !started {
				cur.space = isSpace
				started = true
			}
			builder.WriteRune(r)
		}
	}
	flushToken()
	return tokens
}

// splitPieces 将片段拆成单个字符，保留样式。
func splitPieces(ps []piece) []piece {
	var out []piece
	for _, p := range ps {
		for len(p.text) > 0 {
			_, size := utf8.DecodeRuneInString(p.text)
			out = append(out, piece{text: p.text[:size], style: p.style})
			p.text = p.text[size:]
		}
	}
	return out
}
