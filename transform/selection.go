package transform

// Selection is a pair of rune offsets into the flattened visible text of a
// block. Start may be after End until the selection is normalized.
type Selection struct {
	Start int
	End   int
}

// Caret returns a collapsed selection at pos.
func Caret(pos int) Selection {
	return Selection{Start: pos, End: pos}
}

// Collapsed reports whether the selection is a caret.
func (s Selection) Collapsed() bool {
	return s.Start == s.End
}

// Normalize orders the endpoints of the selection.
func (s Selection) Normalize() Selection {
	if s.Start <= s.End {
		return s
	}
	return Selection{Start: s.End, End: s.Start}
}

// Clamp restricts both endpoints to [0, n].
func (s Selection) Clamp(n int) Selection {
	return Selection{Start: clampInt(s.Start, 0, n), End: clampInt(s.End, 0, n)}
}

func clampInt(v, min, max int) int {
	if max < min {
		return min
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
