package fit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/shrinktext/fit"
	"github.com/ByLCY/shrinktext/layout"
)

func layoutMono(t *testing.T, req fit.Request) *layout.Block {
	t.Helper()
	block, err := monoEngine().Layout(req)
	require.NoError(t, err)
	return block
}

func TestTypesetterEngineBoxHeightLimitsLines(t *testing.T) {
	// 10mm 字号、1.4 倍行高：行高 10mm，行间距 4mm
	block := layoutMono(t, fit.Request{
		Text:     layout.Plain("a\nb\nc"),
		Size:     layout.Mm(10),
		SoftWrap: true,
		Overflow: fit.OverflowEllipsis,
		Box:      fit.Box{Width: 100, Height: 25},
	})
	assert.Equal(t, 2, block.LineCount())
	assert.Equal(t, 3, block.TotalLines)
	assert.True(t, block.Truncated)
	ellipsized, ok := block.LineEllipsized(1)
	require.True(t, ok)
	assert.True(t, ellipsized)
	assert.InDelta(t, 24, block.Height, 1e-9)
}

func TestTypesetterEngineClipNeverEllipsizes(t *testing.T) {
	for _, overflow := range []fit.Overflow{fit.OverflowClip, fit.OverflowVisible} {
		block := layoutMono(t, fit.Request{
			Text:     layout.Plain("one\ntwo"),
			Size:     layout.Mm(10),
			SoftWrap: true,
			MaxLines: 1,
			Overflow: overflow,
			Box:      fit.Box{Width: 100},
		})
		require.Equal(t, 1, block.LineCount(), string(overflow))
		assert.True(t, block.Truncated, string(overflow))
		ellipsized, ok := block.LineEllipsized(0)
		require.True(t, ok)
		assert.False(t, ellipsized, string(overflow))
	}
}

func TestTypesetterEngineMinLinesPadsHeight(t *testing.T) {
	block := layoutMono(t, fit.Request{
		Text:     layout.Plain("x"),
		Size:     layout.Mm(10),
		SoftWrap: true,
		MinLines: 3,
		Box:      fit.Box{Width: 100},
	})
	assert.Equal(t, 1, block.LineCount())
	// 一行 10mm，再补两行 14mm
	assert.InDelta(t, 38, block.Height, 1e-9)
}

func TestTypesetterEngineWidthOverflow(t *testing.T) {
	req := fit.Request{
		Text: layout.Plain("abcdefghij"),
		Size: layout.Mm(10),
		Box:  fit.Box{Width: 59},
	}
	// 10 格 × 0.6 × 10mm = 60mm
	assert.True(t, layoutMono(t, req).DidOverflowWidth())

	req.Box.Width = 60
	assert.False(t, layoutMono(t, req).DidOverflowWidth())

	req.Box.Width = 0
	req.Size = layout.Mm(1e-9)
	assert.True(t, layoutMono(t, req).DidOverflowWidth())
}

func TestTypesetterEngineSoftWrapBreaksWords(t *testing.T) {
	block := layoutMono(t, fit.Request{
		Text:     layout.Plain("Hello World"),
		Size:     layout.Mm(10),
		SoftWrap: true,
		Box:      fit.Box{Width: 40},
	})
	require.Equal(t, 2, block.LineCount())
	assert.Equal(t, "Hello ", block.Lines[0].Content)
	assert.Equal(t, "World", block.Lines[1].Content)
	assert.False(t, block.DidOverflowWidth())
}

func TestTypesetterEngineBreakWordSplitsInsideWords(t *testing.T) {
	req := fit.Request{
		Text:     layout.Plain("Hello World"),
		Size:     layout.Mm(10),
		SoftWrap: true,
		Wrap:     layout.WrapBreakWord,
		Box:      fit.Box{Width: 45},
	}
	// 每格 6mm：45mm 放得下 7 格
	block := layoutMono(t, req)
	require.Equal(t, 2, block.LineCount())
	assert.Equal(t, "Hello W", block.Lines[0].Content)
	assert.Equal(t, "orld", block.Lines[1].Content)

	req.Wrap = ""
	block = layoutMono(t, req)
	require.Equal(t, 2, block.LineCount())
	assert.Equal(t, "Hello ", block.Lines[0].Content)

	// 关闭软换行时忽略折行策略
	req.SoftWrap = false
	req.Wrap = layout.WrapBreakWord
	block = layoutMono(t, req)
	require.Equal(t, 1, block.LineCount())
	assert.True(t, block.DidOverflowWidth())
}

func TestTypesetterEngineRequiresBackend(t *testing.T) {
	_, err := (&fit.TypesetterEngine{}).Layout(fit.Request{Size: layout.Pt(12)})
	assert.Error(t, err)
}
