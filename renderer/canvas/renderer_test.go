package canvasrenderer

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shrinktext/fonts"
	"github.com/ByLCY/shrinktext/layout"
)

var bodyFont = layout.FontResource{Name: "Body", Src: "embed:goregular"}

// 这里的宽度/字号/行高均为 mm
func textRequest(content string, width float64) layout.TextRequest {
	fontSizeMM := 12 * layout.PtToMm
	return layout.TextRequest{
		Text:       layout.Plain(content),
		Width:      width,
		FontSize:   fontSizeMM,
		LineHeight: fontSizeMM * 1.2,
		Font:       bodyFont,
	}
}

func TestLayoutLinesGreedyWrapsText(t *testing.T) {
	r := NewRenderer(".")
	lines, err := r.LayoutLines(textRequest("hello world again", 10))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(lines), 2, "expected wrapping into multiple lines")
}

func TestGreedyWrapHonorsNewlines(t *testing.T) {
	r := NewRenderer(".")
	lines, err := r.LayoutLines(textRequest("foo\n\nbar", 100))
	require.NoError(t, err)
	require.Len(t, lines, 3)
	assert.Equal(t, "", lines[1].Content)
}

// TestLineHeightsInvariant 验证：
// 1) 首行 GapBefore == 0；
// 2) 其余行 GapBefore ≈ max(lineHeight - textHeight, 0)；
// 3) 各行的 Height 与 textHeight 一致（渲染器会用字体度量回填）。
func TestLineHeightsInvariant(t *testing.T) {
	r := NewRenderer(".")
	req := textRequest("longlonglong longlonglong longlonglong longlonglong longlonglong", 40)
	req.LineHeight = req.FontSize * 1.3
	lines, err := r.LayoutLines(req)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(lines), 2)

	textHeight := lines[0].Height
	require.Greater(t, textHeight, 0.0)
	wantLeading := math.Max(req.LineHeight-textHeight, 0)
	assert.Equal(t, 0.0, lines[0].GapBefore)
	for i := 1; i < len(lines); i++ {
		assert.InDelta(t, wantLeading, lines[i].GapBefore, 1e-6, "line %d", i)
		assert.InDelta(t, textHeight, lines[i].Height, 1e-6, "line %d", i)
	}
}

// TestGreedyWrapWidthLimit 验证每行宽度不超过限制（mm）。
func TestGreedyWrapWidthLimit(t *testing.T) {
	r := NewRenderer(".")
	limit := 30.0
	lines, err := r.LayoutLines(textRequest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", limit))
	require.NoError(t, err)
	require.NotEmpty(t, lines)
	for i, ln := range lines {
		assert.LessOrEqual(t, ln.Width-limit, 1e-6, "line %d width exceeds limit", i)
	}
}

// 当第一行宽度与容器宽度恰好相等且后面紧跟一个显式换行时，不应产生额外的空行。
func TestNoBlankLineWhenEqualWidthThenNewline(t *testing.T) {
	r := NewRenderer(".")
	first := "SAMPLE-A"
	measured, err := r.LayoutLines(textRequest(first, 1e6))
	require.NoError(t, err)
	require.Len(t, measured, 1)
	limit := measured[0].Width
	require.Greater(t, limit, 0.0)

	lines, err := r.LayoutLines(textRequest(first+"\nSAMPLE-B", limit))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, first, lines[0].Content)
	assert.Equal(t, "SAMPLE-B", lines[1].Content)
}

func TestLetterSpacingWidensLines(t *testing.T) {
	r := NewRenderer(".")
	plain, err := r.LayoutLines(textRequest("spacing", 0))
	require.NoError(t, err)
	req := textRequest("spacing", 0)
	req.LetterSpacing = 0.5
	spaced, err := r.LayoutLines(req)
	require.NoError(t, err)
	assert.InDelta(t, plain[0].Width+7*0.5, spaced[0].Width, 1e-6)
}

func TestBoldSpanIsWider(t *testing.T) {
	r := NewRenderer(".")
	regular, err := r.LayoutLines(textRequest("WWWW", 0))
	require.NoError(t, err)

	req := textRequest("", 0)
	req.Text = layout.RichText{Text: "WWWW", Spans: []layout.Span{{Start: 0, End: 4, Style: layout.SpanStyle{Weight: "bold"}}}}
	bold, err := r.LayoutLines(req)
	require.NoError(t, err)
	require.Len(t, bold[0].Runs, 1)
	assert.Greater(t, bold[0].Width, regular[0].Width)
}

func TestMissingFontFallsBack(t *testing.T) {
	r := NewRenderer("")
	req := textRequest("hello", 0)
	req.Font = layout.FontResource{Name: "Missing", Src: "fonts/missing.ttf"}
	lines, err := r.LayoutLines(req)
	require.NoError(t, err)
	assert.Greater(t, lines[0].Width, 0.0)
}

func TestEllipsizeFitsLimit(t *testing.T) {
	r := NewRenderer(".")
	req := textRequest("", 0)
	faces := newFaceSet(r, req, toPt(req.FontSize))
	face, err := faces.face(layout.SpanStyle{})
	require.NoError(t, err)
	limit := faces.width(face, "Hello")

	runs, width, err := faces.ellipsize([]layout.TextRun{{Text: "Hello World"}}, limit)
	require.NoError(t, err)
	assert.LessOrEqual(t, width, limit+1e-9)
	require.Len(t, runs, 2)
	assert.Equal(t, ellipsis, runs[1].Text)
	assert.NotEmpty(t, runs[0].Text)
}

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(".")
	bg := layout.Color{R: 240, G: 240, B: 240}
	res := &layout.Result{
		Resources: layout.ResourceSet{Fonts: map[string]layout.FontResource{"Body": bodyFont}},
		Meta:      layout.DocumentMeta{Title: "Card"},
		Pages: []layout.Page{{
			Width: 105, Height: 74,
			Boxes: []layout.FitBox{{
				Name: "title", X: 10, Y: 10,
				Frame: layout.Frame{Width: 60, Height: 12, Padding: 1, Background: &bg},
				Block: &layout.Block{
					FontSize: layout.Pt(24.3),
					Style:    layout.TextStyle{Font: "Body", Color: layout.DefaultTextColor, Decoration: layout.DecorationUnderline},
					Align:    "center",
					Lines:    []layout.TextLine{{Content: "Hello Wor", Width: 40, Height: 8, Ellipsized: true}},
				},
			}},
			Rects: []layout.Rect{{X: 5, Y: 5, Width: 95, Height: 64}},
		}},
	}
	out, err := r.Render(res)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = r.Render(&layout.Result{})
	assert.Error(t, err)
}

func TestParseFontStyle(t *testing.T) {
	assert.Equal(t, canvas.FontSemiBold|canvas.FontItalic, parseFontStyle("SemiBold Italic"))
	assert.Equal(t, canvas.FontExtraBold, parseFontStyle("extrabold"))
	assert.Equal(t, canvas.FontBold, parseFontStyle("bold"))
	assert.Equal(t, canvas.FontRegular, parseFontStyle(""))
	assert.Equal(t, "bold", weightName(canvas.FontSemiBold|canvas.FontItalic))
	assert.Equal(t, "", weightName(canvas.FontLight))
}

func TestFontStoreUsesResourceFallback(t *testing.T) {
	r := NewRenderer("")
	fam, err := r.fonts.family(layout.FontResource{Name: "Code", Src: "missing.ttf", Fallback: "embed:gomono"}, canvas.FontRegular)
	require.NoError(t, err)
	builtin, err := r.fonts.builtinFamily()
	require.NoError(t, err)
	assert.NotSame(t, builtin, fam.family)

	_, err = r.fonts.read("ftp:font.ttf", canvas.FontRegular)
	assert.Error(t, err)
	_, err = r.fonts.read("built-in:none", canvas.FontRegular)
	assert.Error(t, err)
}

func TestInjectedFontIsUsed(t *testing.T) {
	data, err := fonts.Load("gomono")
	require.NoError(t, err)
	r := NewRendererWithOptions(Options{Fonts: map[string]Resource{"Mono": {Bytes: data}}})
	req := textRequest("iiii", 0)
	plain, err := r.LayoutLines(req)
	require.NoError(t, err)
	req.Font = layout.FontResource{Name: "Mono", Src: "built-in:Mono"}
	mono, err := r.LayoutLines(req)
	require.NoError(t, err)
	assert.Greater(t, mono[0].Width, plain[0].Width)
}
