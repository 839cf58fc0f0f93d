package layout

import (
	"strings"
	"unicode/utf8"
)

// Decoration 表示文本装饰线。
type Decoration string

const (
	DecorationNone        Decoration = ""
	DecorationUnderline   Decoration = "underline"
	DecorationLineThrough Decoration = "line-through"
)

// ParseDecoration 将 DSL 中的取值规范化，未知值视为无装饰。
func ParseDecoration(v string) Decoration {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "underline":
		return DecorationUnderline
	case "line-through", "strikethrough", "strike":
		return DecorationLineThrough
	default:
		return DecorationNone
	}
}

// TextStyle 是透传给排版服务的完整样式描述。Size 是默认的起始字号。
type TextStyle struct {
	Font          string         `json:"font"`
	Weight        string         `json:"weight,omitempty"`
	Italic        bool           `json:"italic,omitempty"`
	Color         Color          `json:"color"`
	Size          Length         `json:"size"`
	LineHeight    LineHeightSpec `json:"lineHeight"`
	LetterSpacing Length         `json:"letterSpacing,omitempty"`
	Decoration    Decoration     `json:"decoration,omitempty"`
}

// SpanStyle 覆盖行内片段的样式，零值字段表示继承基础样式。
type SpanStyle struct {
	Font       string     `json:"font,omitempty"`
	Weight     string     `json:"weight,omitempty"`
	Italic     *bool      `json:"italic,omitempty"` // nil 表示继承
	Color      *Color     `json:"color,omitempty"`
	Decoration Decoration `json:"decoration,omitempty"`
}

// IsZero reports whether the span overrides nothing.
func (s SpanStyle) IsZero() bool {
	return s.Font == "" && s.Weight == "" && s.Italic == nil && s.Color == nil && s.Decoration == DecorationNone
}

// ItalicOr 返回片段的斜体设置，未设置时取 base。
func (s SpanStyle) ItalicOr(base bool) bool {
	if s.Italic == nil {
		return base
	}
	return *s.Italic
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Span 以 rune 下标 [Start, End) 标注一段格式。
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Style SpanStyle `json:"style"`
}

// RichText 是带行内格式的文本；没有 Spans 时即为纯文本。
type RichText struct {
	Text  string `json:"text"`
	Spans []Span `json:"spans,omitempty"`
}

// Plain wraps a plain string.
func Plain(s string) RichText { return RichText{Text: s} }

// Equal reports whether two rich texts carry the same content and formatting.
func (t RichText) Equal(o RichText) bool {
	if t.Text != o.Text || len(t.Spans) != len(o.Spans) {
		return false
	}
	for i := range t.Spans {
		a, b := t.Spans[i], o.Spans[i]
		if a.Start != b.Start || a.End != b.End || !spanStyleEqual(a.Style, b.Style) {
			return false
		}
	}
	return true
}

func spanStyleEqual(a, b SpanStyle) bool {
	if a.Font != b.Font || a.Weight != b.Weight || a.Decoration != b.Decoration {
		return false
	}
	if (a.Italic == nil) != (b.Italic == nil) || (a.Italic != nil && *a.Italic != *b.Italic) {
		return false
	}
	if (a.Color == nil) != (b.Color == nil) {
		return false
	}
	return a.Color == nil || *a.Color == *b.Color
}

// TextRun 是一段样式一致的连续文本。
type TextRun struct {
	Text  string    `json:"text"`
	Style SpanStyle `json:"style,omitempty"`
}

// Runs 将文本按 span 边界切分成样式一致的片段。重叠的 span 以后声明者为准。
func (t RichText) Runs() []TextRun {
	if t.Text == "" {
		return nil
	}
	if len(t.Spans) == 0 {
		return []TextRun{{Text: t.Text}}
	}
	n := utf8.RuneCountInString(t.Text)
	styles := make([]SpanStyle, n)
	for _, sp := range t.Spans {
		start, end := clampRange(sp.Start, sp.End, n)
		for i := start; i < end; i++ {
			styles[i] = mergeSpanStyle(styles[i], sp.Style)
		}
	}

	var runs []TextRun
	var builder strings.Builder
	idx := 0
	var current SpanStyle
	for _, r := range t.Text {
		st := styles[idx]
		if idx > 0 && !spanStyleEqual(st, current) {
			runs = append(runs, TextRun{Text: builder.String(), Style: current})
			builder.Reset()
		}
		current = st
		builder.WriteRune(r)
		idx++
	}
	if builder.Len() > 0 {
		runs = append(runs, TextRun{Text: builder.String(), Style: current})
	}
	return runs
}

func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

func mergeSpanStyle(base, over SpanStyle) SpanStyle {
	if over.Font != "" {
		base.Font = over.Font
	}
	if over.Weight != "" {
		base.Weight = over.Weight
	}
	if over.Italic != nil {
		base.Italic = Bool(*over.Italic)
	}
	if over.Color != nil {
		c := *over.Color
		base.Color = &c
	}
	if over.Decoration != DecorationNone {
		base.Decoration = over.Decoration
	}
	return base
}

// RichTextBuilder 依次追加片段并记录 span 下标。
type RichTextBuilder struct {
	builder strings.Builder
	count   int
	spans   []Span
}

// Append 追加一段文本；style 为零值时不产生 span。
func (b *RichTextBuilder) Append(s string, style SpanStyle) {
	if s == "" {
		return
	}
	n := utf8.RuneCountInString(s)
	if !style.IsZero() {
		b.spans = append(b.spans, Span{Start: b.count, End: b.count + n, Style: style})
	}
	b.builder.WriteString(s)
	b.count += n
}

// RichText returns the accumulated text.
func (b *RichTextBuilder) RichText() RichText {
	return RichText{Text: b.builder.String(), Spans: append([]Span(nil), b.spans...)}
}
