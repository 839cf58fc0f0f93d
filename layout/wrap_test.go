package layout

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 每个字符宽 1mm
func runeWidth(text string, _ SpanStyle) float64 {
	return float64(utf8.RuneCountInString(text))
}

func contents(lines []TextLine) []string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = ln.Content
	}
	return out
}

func TestWrapRunsGreedyWords(t *testing.T) {
	lines := WrapRuns(Plain("the quick brown fox").Runs(), 10, WrapAnywhere, runeWidth)
	assert.Equal(t, []string{"the quick ", "brown fox"}, contents(lines))
	assert.Equal(t, 10.0, lines[0].Width)
	assert.Equal(t, 9.0, lines[1].Width)
}

func TestWrapRunsDropsBreakingSpace(t *testing.T) {
	lines := WrapRuns(Plain("abcde fghij").Runs(), 5, WrapAnywhere, runeWidth)
	assert.Equal(t, []string{"abcde", "fghij"}, contents(lines))
}

func TestWrapRunsSplitsLongWord(t *testing.T) {
	lines := WrapRuns(Plain("abcdefgh").Runs(), 3, WrapAnywhere, runeWidth)
	assert.Equal(t, []string{"abc", "def", "gh"}, contents(lines))
}

func TestWrapRunsNoWrapKeepsNewlines(t *testing.T) {
	lines := WrapRuns(Plain("Line one\nLine two").Runs(), 3, WrapNone, runeWidth)
	assert.Equal(t, []string{"Line one", "Line two"}, contents(lines))
	assert.Equal(t, 8.0, lines[0].Width)
}

func TestWrapRunsBreakWord(t *testing.T) {
	lines := WrapRuns(Plain("ab cd").Runs(), 4, WrapBreakWord, runeWidth)
	assert.Equal(t, []string{"ab c", "d"}, contents(lines))
}

func TestWrapRunsUnboundedAndEmpty(t *testing.T) {
	lines := WrapRuns(Plain("a very long line").Runs(), 0, WrapAnywhere, runeWidth)
	assert.Equal(t, []string{"a very long line"}, contents(lines))

	lines = WrapRuns(nil, 10, WrapAnywhere, runeWidth)
	require.Len(t, lines, 1)
	assert.Equal(t, "", lines[0].Content)

	lines = WrapRuns(Plain("a\n\nb").Runs(), 10, WrapAnywhere, runeWidth)
	assert.Equal(t, []string{"a", "", "b"}, contents(lines))
}

func TestWrapRunsKeepsStylesAcrossWords(t *testing.T) {
	bold := SpanStyle{Weight: "bold"}
	var b RichTextBuilder
	b.Append("He", SpanStyle{})
	b.Append("llo", bold)
	b.Append(" World", SpanStyle{})

	lines := WrapRuns(b.RichText().Runs(), 6, WrapAnywhere, runeWidth)
	require.Equal(t, []string{"Hello ", "World"}, contents(lines))
	require.Len(t, lines[0].Runs, 3)
	assert.Equal(t, "llo", lines[0].Runs[1].Text)
	assert.Equal(t, "bold", lines[0].Runs[1].Style.Weight)
	// 无样式的行不记录 Runs
	assert.Nil(t, lines[1].Runs)
}

func TestNormalizeWrap(t *testing.T) {
	assert.Equal(t, WrapNone, NormalizeWrap("nowrap"))
	assert.Equal(t, WrapBreakWord, NormalizeWrap("break-word"))
	assert.Equal(t, WrapAnywhere, NormalizeWrap(""))
}
