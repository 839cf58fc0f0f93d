package layout

// LineCount 返回可见行数。
func (b *Block) LineCount() int {
	if b == nil {
		return 0
	}
	return len(b.Lines)
}

// LineEllipsized reports whether line i was cut with an ellipsis.
// ok is false when i is out of range.
func (b *Block) LineEllipsized(i int) (ellipsized bool, ok bool) {
	if b == nil || i < 0 || i >= len(b.Lines) {
		return false, false
	}
	return b.Lines[i].Ellipsized, true
}

// DidOverflowWidth reports whether any visible line is wider than the block.
func (b *Block) DidOverflowWidth() bool {
	return b != nil && b.OverflowWidth
}
