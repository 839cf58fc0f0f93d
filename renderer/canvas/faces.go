package canvasrenderer

import (
	"fmt"
	"unicode/utf8"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shrinktext/layout"
)

// faceSet 缓存一次排版/绘制中各 span 样式对应的字体面。
type faceSet struct {
	r      *Renderer
	req    layout.TextRequest
	sizePt float64
	cache  map[string]*canvas.FontFace
}

func newFaceSet(r *Renderer, req layout.TextRequest, sizePt float64) *faceSet {
	return &faceSet{r: r, req: req, sizePt: sizePt, cache: map[string]*canvas.FontFace{}}
}

func (f *faceSet) font(style layout.SpanStyle) layout.FontResource {
	if style.Font != "" {
		if font, ok := f.req.Fonts[style.Font]; ok {
			return font
		}
	}
	if f.req.Font.Src != "" {
		return f.req.Font
	}
	return resolveFontResource(f.req.Style.Font, f.req.Fonts)
}

func (f *faceSet) color(style layout.SpanStyle) layout.Color {
	if style.Color != nil {
		return *style.Color
	}
	return f.req.Style.Color
}

func (f *faceSet) decoration(style layout.SpanStyle) layout.Decoration {
	if style.Decoration != layout.DecorationNone {
		return style.Decoration
	}
	return f.req.Style.Decoration
}

func (f *faceSet) face(style layout.SpanStyle) (*canvas.FontFace, error) {
	font := f.font(style)
	weight := f.req.Style.Weight
	if style.Weight != "" {
		weight = style.Weight
	}
	italic := style.ItalicOr(f.req.Style.Italic)
	col := f.color(style)

	key := fmt.Sprintf("%s|%s|%s|%t|%d,%d,%d", font.Name, font.Src, weight, italic, col.R, col.G, col.B)
	if face, ok := f.cache[key]; ok {
		return face, nil
	}
	face, err := f.r.fonts.face(font, weight, italic, f.sizePt, col)
	if err != nil {
		return nil, err
	}
	f.cache[key] = face
	return face, nil
}

// width 与 LayoutLines 的测量保持一致：字形宽度加逐字字距。
func (f *faceSet) width(face *canvas.FontFace, text string) float64 {
	return face.TextWidth(text) + float64(utf8.RuneCountInString(text))*f.req.LetterSpacing
}

// ellipsize 从行尾逐字删除，直到加上省略号后不超过 limit，返回新的片段与总宽度。
func (f *faceSet) ellipsize(runs []layout.TextRun, limit float64) ([]layout.TextRun, float64, error) {
	out := append([]layout.TextRun(nil), runs...)
	for {
		last := len(out) - 1
		total := 0.0
		for _, run := range out {
			face, err := f.face(run.Style)
			if err != nil {
				return nil, 0, err
			}
			total += f.width(face, run.Text)
		}
		var tailStyle layout.SpanStyle
		if last >= 0 {
			tailStyle = out[last].Style
		}
		tail, err := f.face(tailStyle)
		if err != nil {
			return nil, 0, err
		}
		ew := f.width(tail, ellipsis)
		if total+ew <= limit || last < 0 || (last == 0 && out[0].Text == "") {
			out = append(out, layout.TextRun{Text: ellipsis, Style: tailStyle})
			return out, total + ew, nil
		}
		text := out[last].Text
		_, size := utf8.DecodeLastRuneInString(text)
		text = text[:len(text)-size]
		if text == "" && last > 0 {
			out = out[:last]
			continue
		}
		out[last].Text = text
	}
}
