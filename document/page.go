package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/shrinktext/dsl"
	"github.com/ByLCY/shrinktext/layout"
)

var pagePresets = map[string][2]float64{
	"A3":     {297, 420},
	"A4":     {210, 297},
	"A5":     {148, 210},
	"A6":     {105, 148},
	"A7":     {74, 105},
	"LETTER": {215.9, 279.4},
	"CARD":   {85.6, 53.98},
}

// resolvePageSize 支持预设纸张名或 `custom <w> <h>`，landscape 交换宽高。
func resolvePageSize(spec dsl.PageSpec) (float64, float64, error) {
	var width, height float64
	params := spec.Params
	if strings.EqualFold(spec.Size, "custom") {
		if len(params) < 2 {
			return 0, 0, fmt.Errorf("custom 纸张需要宽和高")
		}
		width, height = mm(params[0].Value), mm(params[1].Value)
		if width <= 0 || height <= 0 {
			return 0, 0, fmt.Errorf("custom 纸张尺寸无效：%s x %s", params[0].Value, params[1].Value)
		}
		params = params[2:]
	} else {
		base, ok := pagePresets[strings.ToUpper(spec.Size)]
		if !ok {
			return 0, 0, fmt.Errorf("暂不支持的纸张尺寸：%s", spec.Size)
		}
		width, height = base[0], base[1]
	}
	for _, token := range params {
		if token.Value == "landscape" {
			width, height = height, width
		}
	}
	return width, height, nil
}

func resolveMargin(params []*dsl.Lexeme) layout.Margin {
	// 默认四边 10mm
	margin := layout.Margin{Top: 10, Right: 10, Bottom: 10, Left: 10}
	for i := 0; i < len(params); i++ {
		if params[i].Value != "margin" {
			continue
		}
		vals := []float64{}
		for j := i + 1; j < len(params) && len(vals) < 4; j++ {
			l, err := layout.ParseLength(params[j].Value)
			if err != nil {
				break
			}
			vals = append(vals, l.ToMM())
		}
		// 与 CSS 相同：1/2/3/4 个值
		switch len(vals) {
		case 1:
			v := vals[0]
			margin = layout.Margin{Top: v, Right: v, Bottom: v, Left: v}
		case 2:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[0], Left: vals[1]}
		case 3:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[1]}
		case 4:
			margin = layout.Margin{Top: vals[0], Right: vals[1], Bottom: vals[2], Left: vals[3]}
		}
	}
	return margin
}

// mm 将 DSL 长度转换为毫米，无单位按毫米处理，无法解析时返回 0。
func mm(value string) float64 {
	if value == "" {
		return 0
	}
	l, err := layout.ParseLength(value)
	if err != nil {
		return 0
	}
	return l.ToMM()
}

// dimension 支持相对于 reference 的百分比。
func dimension(value string, reference float64) float64 {
	if strings.HasSuffix(value, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		if err != nil {
			return 0
		}
		return reference * f / 100
	}
	return mm(value)
}

// parseLineShape supports both full form (x1/y1/x2/y2) and simplified form:
//
//	line x <len> y <len> length <len> [dir h|v] [color <..>] [width <len>]
func parseLineShape(attrs map[string]string, res layout.ResourceSet) (layout.Line, bool) {
	var ln layout.Line
	if c, ok := resolveColor(attrs["color"], res); ok {
		ln.Color = c
	}
	ln.Width = mm(attrs["width"])

	x1, y1, x2, y2 := mm(attrs["x1"]), mm(attrs["y1"]), mm(attrs["x2"]), mm(attrs["y2"])
	if x1 != 0 || y1 != 0 || x2 != 0 || y2 != 0 {
		ln.X1, ln.Y1, ln.X2, ln.Y2 = x1, y1, x2, y2
		return ln, true
	}
	x, y, length := mm(attrs["x"]), mm(attrs["y"]), mm(attrs["length"])
	if length <= 0 {
		return layout.Line{}, false
	}
	ln.X1, ln.Y1 = x, y
	switch strings.ToLower(strings.TrimSpace(attrs["dir"])) {
	case "", "h", "hor", "horizontal":
		ln.X2, ln.Y2 = x+length, y
	case "v", "ver", "vertical":
		ln.X2, ln.Y2 = x, y+length
	default:
		return layout.Line{}, false
	}
	return ln, true
}

func parseRectShape(attrs map[string]string, res layout.ResourceSet) (layout.Rect, bool) {
	rc := layout.Rect{
		X:      mm(attrs["x"]),
		Y:      mm(attrs["y"]),
		Width:  mm(attrs["width"]),
		Height: mm(attrs["height"]),
	}
	if rc.Width <= 0 || rc.Height <= 0 {
		return layout.Rect{}, false
	}
	if c, ok := resolveColor(attrs["stroke"], res); ok {
		rc.StrokeColor = c
	}
	rc.StrokeWidth = mm(attrs["stroke-width"])
	if c, ok := resolveColor(attrs["fill"], res); ok {
		rc.FillColor = &c
	}
	return rc, true
}

func parseCircleShape(attrs map[string]string, res layout.ResourceSet) (layout.Circle, bool) {
	c := layout.Circle{
		CX: mm(attrs["cx"]),
		CY: mm(attrs["cy"]),
		R:  mm(attrs["r"]),
	}
	if c.R <= 0 {
		return layout.Circle{}, false
	}
	if col, ok := resolveColor(attrs["stroke"], res); ok {
		c.StrokeColor = col
	}
	c.StrokeWidth = mm(attrs["stroke-width"])
	if col, ok := resolveColor(attrs["fill"], res); ok {
		c.FillColor = &col
	}
	return c, true
}
