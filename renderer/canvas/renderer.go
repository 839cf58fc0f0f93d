// Package canvasrenderer measures text with tdewolff/canvas font metrics and
// draws laid-out pages to PDF.
package canvasrenderer

import (
	"bytes"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"

	"github.com/ByLCY/shrinktext/layout"
	"github.com/ByLCY/shrinktext/renderer"
)

const ellipsis = "…"

// Renderer is both the typesetter used by the fit loop and the PDF writer,
// so measurement and drawing share one set of font faces.
type Renderer struct {
	log   *slog.Logger
	fonts *fontStore
}

var _ renderer.Backend = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	// BaseDir 用于解析字体的相对路径；为空时只允许 embed: 与 built-in: 字体。
	BaseDir string
	// Fonts 通过 `built-in:<名称>` 引用。
	Fonts  map[string]Resource
	Logger *slog.Logger
}

// Resource 提供 Bytes 或 Path 其中之一。
type Resource struct {
	Bytes []byte
	Path  string
}

// NewRenderer creates a renderer that resolves font paths against baseDir.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

func NewRendererWithOptions(opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "canvas-renderer")
	return &Renderer{
		log:   logger,
		fonts: newFontStore(opts.BaseDir, opts.Fonts, logger),
	}
}

// LayoutLines 实现 layout.Typesetter：按 span 样式测量并贪心换行。
// 请求中的长度均为 mm，创建字体面时换算为 pt。
func (r *Renderer) LayoutLines(req layout.TextRequest) ([]layout.TextLine, error) {
	faces := newFaceSet(r, req, toPt(req.FontSize))
	base, err := faces.face(layout.SpanStyle{})
	if err != nil {
		return nil, err
	}

	var measureErr error
	measure := func(text string, style layout.SpanStyle) float64 {
		face, err := faces.face(style)
		if err != nil {
			measureErr = err
			face = base
		}
		return face.TextWidth(text) + float64(utf8.RuneCountInString(text))*req.LetterSpacing
	}
	wrap := req.Wrap
	if wrap == "" {
		wrap = layout.WrapAnywhere
	}
	lines := layout.WrapRuns(req.Text.Runs(), req.Width, wrap, measure)
	if measureErr != nil {
		return nil, measureErr
	}

	// 行高取字体自身的行高，多出的部分作为行前间距
	glyphHeight := base.Metrics().LineHeight
	if glyphHeight <= 0 {
		glyphHeight = req.LineHeight
	}
	leading := math.Max(req.LineHeight-glyphHeight, 0)
	for i := range lines {
		lines[i].Height = glyphHeight
		if i > 0 {
			lines[i].GapBefore = leading
		}
	}
	return lines, nil
}

// Render writes every page of result into one PDF.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	if len(result.Pages) == 0 {
		return nil, fmt.Errorf("缺少可渲染的页面")
	}

	var buf bytes.Buffer
	first := result.Pages[0]
	writer := pdf.New(&buf, first.Width, first.Height, nil)
	meta := result.Meta
	writer.SetInfo(meta.Title, meta.Subject, strings.Join(meta.Keywords, ", "), meta.Author, meta.Creator)

	for i, page := range result.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c := canvas.New(page.Width, page.Height)
		ctx := canvas.NewContext(c)
		// 与布局一致：原点在左上角，y 向下
		ctx.SetCoordSystem(canvas.CartesianIV)
		if err := r.drawPage(ctx, page, result.Resources.Fonts); err != nil {
			return nil, fmt.Errorf("第 %d 页: %w", i+1, err)
		}
		c.RenderTo(writer)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPage(ctx *canvas.Context, page layout.Page, fontMap map[string]layout.FontResource) error {
	for _, s := range pageShapes(page) {
		s.paint(ctx)
	}
	for _, box := range page.Boxes {
		if err := r.drawBox(ctx, box, fontMap); err != nil {
			return fmt.Errorf("绘制文本框 %s 失败: %w", box.Name, err)
		}
	}
	return nil
}

func (r *Renderer) drawBox(ctx *canvas.Context, box layout.FitBox, fontMap map[string]layout.FontResource) error {
	if s, ok := frameShape(box); ok {
		s.paint(ctx)
	}
	block := box.Block
	if block == nil || len(block.Lines) == 0 {
		return nil
	}

	frame := box.Frame
	faces := newFaceSet(r, layout.TextRequest{
		FontSize:      block.FontSize.ToMM(),
		LetterSpacing: block.Style.LetterSpacing.ToMM(),
		Style:         block.Style,
		Font:          resolveFontResource(block.Style.Font, fontMap),
		Fonts:         fontMap,
	}, block.FontSize.ToPT())

	left := box.X + frame.Padding
	inner := frame.Width - 2*frame.Padding
	top := box.Y + frame.Padding
	for _, line := range block.Lines {
		top += line.GapBefore
		runs, lineWidth := line.Runs, line.Width
		if len(runs) == 0 {
			runs = []layout.TextRun{{Text: line.Content}}
		}
		if line.Ellipsized {
			var err error
			if runs, lineWidth, err = faces.ellipsize(runs, inner); err != nil {
				return err
			}
		}

		x := left + alignOffset(block.Align, inner, lineWidth)
		for _, run := range runs {
			face, err := faces.face(run.Style)
			if err != nil {
				return err
			}
			baseline := top + face.Metrics().Ascent
			ctx.DrawText(x, baseline, canvas.NewTextLine(face, run.Text, canvas.Left))
			w := faces.width(face, run.Text)
			decorate(ctx, face, faces.decoration(run.Style), faces.color(run.Style), x, baseline, w)
			x += w
		}
		top += line.Height
	}
	return nil
}

func alignOffset(align string, available, width float64) float64 {
	switch strings.ToLower(align) {
	case "center":
		return (available - width) / 2
	case "right", "end":
		return available - width
	}
	return 0
}

// decorate 用细矩形画下划线或删除线。
func decorate(ctx *canvas.Context, face *canvas.FontFace, deco layout.Decoration, col layout.Color, x, baseline, width float64) {
	if deco == layout.DecorationNone || width <= 0 {
		return
	}
	m := face.Metrics()
	thickness := math.Max(m.Ascent/14, 0.05)
	y := baseline + thickness*1.5
	if deco == layout.DecorationLineThrough {
		y = baseline - m.XHeight/2
	}
	ctx.SetFillColor(toColor(col))
	ctx.SetStrokeColor(transparent)
	ctx.DrawPath(x, y, canvas.Rectangle(width, thickness))
}

func toPt(mm float64) float64 { return mm * layout.MmToPt }
