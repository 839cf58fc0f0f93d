package mono

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/shrinktext/layout"
)

func TestCellsCountWideRunes(t *testing.T) {
	ts := NewTypesetter()
	assert.Equal(t, 5, ts.Cells("Hello"))
	assert.Equal(t, 4, ts.Cells("你好"))
	// 4 格 × 0.6 × 5mm + 2 个字 × 1mm 字距
	assert.InDelta(t, 12.0+2, ts.Width("你好", 5, 1), 1e-9)
}

func TestLayoutLinesFillsHeights(t *testing.T) {
	ts := NewTypesetter()
	lines, err := ts.LayoutLines(layout.TextRequest{
		Text:       layout.Plain("aa bb"),
		Width:      2.5,
		FontSize:   2,
		LineHeight: 3,
		Wrap:       layout.WrapAnywhere,
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "aa", lines[0].Content)
	assert.Equal(t, 2.0, lines[0].Height)
	assert.Equal(t, 0.0, lines[0].GapBefore)
	assert.Equal(t, 1.0, lines[1].GapBefore)
}

func TestRenderPreview(t *testing.T) {
	res := &layout.Result{
		Meta: layout.DocumentMeta{Title: "Demo"},
		Pages: []layout.Page{{
			Width: 100, Height: 50,
			Boxes: []layout.FitBox{{
				Name: "title",
				Block: &layout.Block{
					Align: "center",
					Lines: []layout.TextLine{
						{Content: "Hello "},
						{Content: "Wor", Ellipsized: true},
					},
				},
				Fit: layout.FitInfo{Final: layout.Pt(24.3), Passes: 3, State: "stable"},
			}},
		}},
	}
	out, err := NewRenderer().Render(res)
	require.NoError(t, err)
	want := "# Demo\n\n" +
		"== page 1 (100x50mm) ==\n" +
		"┌─────┐ title 24.3pt · 3 passes · stable\n" +
		"│Hello│\n" +
		"│Wor… │\n" +
		"└─────┘\n"
	assert.Equal(t, want, string(out))

	_, err = NewRenderer().Render(nil)
	assert.Error(t, err)
}
