package transform

import "fmt"

// StepMap records how the runes of a text moved when it became another
// text. Ranges holds one [start, oldSize, newSize] triple per changed chunk,
// ordered and not overlapping, with starts measured in the old text.
type StepMap struct {
	Ranges []int
	// Inverted maps from the new text back to the old one.
	Inverted bool
}

// EmptyStepMap maps every position to itself.
var EmptyStepMap = NewStepMap(nil)

func NewStepMap(ranges []int) *StepMap {
	return &StepMap{Ranges: ranges}
}

// Map moves a rune offset through the change. When pos touches replaced or
// inserted runes, assoc picks the side it sticks to: negative stays before
// them, positive (the default) goes after.
func (sm *StepMap) Map(pos int, assoc ...int) int {
	side := 1
	if len(assoc) > 0 {
		side = assoc[0]
	}
	mapped, _ := sm.walk(pos, side)
	return mapped
}

// Deleted reports whether the runes on the assoc side of pos were removed or
// replaced by the change.
func (sm *StepMap) Deleted(pos, assoc int) bool {
	_, deleted := sm.walk(pos, assoc)
	return deleted
}

func (sm *StepMap) walk(pos, assoc int) (int, bool) {
	from, to := 1, 2
	if sm.Inverted {
		from, to = 2, 1
	}
	shift := 0
	for i := 0; i+2 < len(sm.Ranges); i += 3 {
		start := sm.Ranges[i]
		if sm.Inverted {
			start -= shift
		}
		if start > pos {
			break
		}
		oldSize, newSize := sm.Ranges[i+from], sm.Ranges[i+to]
		end := start + oldSize
		if pos > end {
			shift += newSize - oldSize
			continue
		}

		side := assoc
		if oldSize > 0 && pos == start {
			side = -1
		} else if oldSize > 0 && pos == end {
			side = 1
		}
		mapped := start + shift
		if side >= 0 {
			mapped += newSize
		}
		if assoc < 0 {
			return mapped, pos != start
		}
		return mapped, pos != end
	}
	return pos + shift, false
}

// Invert returns the map from the new text back to the old one.
func (sm *StepMap) Invert() *StepMap {
	return &StepMap{Ranges: sm.Ranges, Inverted: !sm.Inverted}
}

func (sm *StepMap) String() string {
	if sm.Inverted {
		return fmt.Sprintf("-%v", sm.Ranges)
	}
	return fmt.Sprintf("%v", sm.Ranges)
}
