package canvasrenderer

import (
	"image/color"

	"github.com/tdewolff/canvas"

	"github.com/ByLCY/shrinktext/layout"
)

const defaultStrokeWidth = 0.2

var transparent = color.RGBA{}

// shape 是一个待绘制的路径及其描边/填充，坐标为 mm。
type shape struct {
	x, y   float64
	path   *canvas.Path
	stroke layout.Color
	fill   *layout.Color
	width  float64
}

func (s shape) paint(ctx *canvas.Context) {
	w := s.width
	if w <= 0 {
		w = defaultStrokeWidth
	}
	var fill color.Color = transparent
	if s.fill != nil {
		fill = toColor(*s.fill)
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(toColor(s.stroke))
	ctx.SetStrokeWidth(w)
	ctx.DrawPath(s.x, s.y, s.path)
}

// pageShapes 按线、矩形、圆的顺序返回页面装饰，它们绘制在文本框之下。
func pageShapes(page layout.Page) []shape {
	out := make([]shape, 0, len(page.Lines)+len(page.Rects)+len(page.Circles))
	for _, ln := range page.Lines {
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		out = append(out, shape{x: ln.X1, y: ln.Y1, path: p, stroke: ln.Color, width: ln.Width})
	}
	for _, rc := range page.Rects {
		out = append(out, shape{
			x: rc.X, y: rc.Y, path: canvas.Rectangle(rc.Width, rc.Height),
			stroke: rc.StrokeColor, fill: rc.FillColor, width: rc.StrokeWidth,
		})
	}
	for _, c := range page.Circles {
		out = append(out, shape{
			x: c.CX - c.R, y: c.CY - c.R, path: canvas.Circle(c.R),
			stroke: c.StrokeColor, fill: c.FillColor, width: c.StrokeWidth,
		})
	}
	return out
}

// frameShape 返回文本框的背景与边框；两者都没有时 ok 为 false。
func frameShape(box layout.FitBox) (shape, bool) {
	f := box.Frame
	if f.Background == nil && f.BorderColor == nil {
		return shape{}, false
	}
	s := shape{
		x: box.X, y: box.Y,
		path:  canvas.Rectangle(f.Width, f.Height),
		fill:  f.Background,
		width: f.BorderWidth,
	}
	if f.BorderColor != nil {
		s.stroke = *f.BorderColor
	} else {
		s.stroke = *f.Background
	}
	return s, true
}

func toColor(c layout.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}
