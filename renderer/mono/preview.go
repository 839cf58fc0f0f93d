package mono

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ByLCY/shrinktext/layout"
	"github.com/ByLCY/shrinktext/renderer"
)

// Ellipsis 追加在被省略的行尾。
const Ellipsis = "…"

// Renderer draws a plain-text preview of each fit box: a frame sized to the
// widest visible line, the converged size and the number of passes.
type Renderer struct {
	*Typesetter
}

var _ renderer.Backend = (*Renderer)(nil)

// NewRenderer returns a preview backend that measures with the same cell grid it draws.
func NewRenderer() *Renderer {
	return &Renderer{Typesetter: NewTypesetter()}
}

// Render implements renderer.Renderer.
func (r *Renderer) Render(result *layout.Result) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	var buf bytes.Buffer
	if result.Meta.Title != "" {
		fmt.Fprintf(&buf, "# %s\n\n", result.Meta.Title)
	}
	for i, page := range result.Pages {
		fmt.Fprintf(&buf, "== page %d (%gx%gmm) ==\n", i+1, page.Width, page.Height)
		for _, box := range page.Boxes {
			r.writeBox(&buf, box)
		}
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeBox(buf *bytes.Buffer, box layout.FitBox) {
	var rows []string
	if box.Block != nil {
		for _, ln := range box.Block.Lines {
			content := strings.TrimRight(ln.Content, " ")
			if ln.Ellipsized {
				content += Ellipsis
			}
			rows = append(rows, content)
		}
	}
	cols := 0
	for _, row := range rows {
		cols = max(cols, r.Cells(row))
	}

	fmt.Fprintf(buf, "┌%s┐ %s %s · %d passes · %s\n",
		strings.Repeat("─", cols), box.Name, sizeLabel(box.Fit.Final), box.Fit.Passes, box.Fit.State)
	for _, row := range rows {
		fmt.Fprintf(buf, "│%s│\n", r.pad(row, cols, alignOf(box.Block)))
	}
	fmt.Fprintf(buf, "└%s┘\n", strings.Repeat("─", cols))
}

// sizeLabel 保留四位有效数字，避免 0.9 连乘的浮点尾数。
func sizeLabel(l layout.Length) string {
	return fmt.Sprintf("%.4g%s", l.Value, layout.UnitToString(l.Unit))
}

func alignOf(b *layout.Block) string {
	if b == nil {
		return ""
	}
	return strings.ToLower(b.Align)
}

// pad 按对齐方式补空格到 cols 个格子。
func (r *Renderer) pad(s string, cols int, align string) string {
	gap := cols - r.Cells(s)
	if gap <= 0 {
		return s
	}
	switch align {
	case "center":
		left := gap / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", gap-left)
	case "right", "end":
		return strings.Repeat(" ", gap) + s
	default:
		return s + strings.Repeat(" ", gap)
	}
}
