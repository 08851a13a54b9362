package model

import "reflect"

// A mark is a piece of information that can be attached to a node, such as it
// being emphasized, in code font, or a link. It has a type and optionally a
// set of attributes that provide further information (such as the target of
// the link). Marks are created through a Schema, which controls which types
// exist and which attributes they have.
type Mark struct {
	Type  *MarkType
	Attrs map[string]interface{}
}

// Given a set of marks, create a new set which contains this one as well, in
// the right position. If this mark is already in the set, the set itself is
// returned. If a mark of the same type is present, it is replaced by this
// one.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	cpy := make([]*Mark, 0, len(set)+1)
	placed := false
	for _, other := range set {
		if m.Eq(other) {
			return set
		}
		if m.Type.Excludes(other.Type) {
			continue
		}
		if !placed && other.Type.Rank > m.Type.Rank {
			cpy = append(cpy, m)
			placed = true
		}
		cpy = append(cpy, other)
	}
	if !placed {
		cpy = append(cpy, m)
	}
	return cpy
}

// Remove this mark from the given set, returning a new set. If this mark is
// not in the set, the set itself is returned.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			cpy := make([]*Mark, 0, len(set)-1)
			cpy = append(cpy, set[:i]...)
			return append(cpy, set[i+1:]...)
		}
	}
	return set
}

// Test whether this mark has the same type and attributes as another mark.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	if m.Type != other.Type {
		return false
	}
	if len(m.Attrs) == 0 && len(other.Attrs) == 0 {
		return true
	}
	return reflect.DeepEqual(m.Attrs, other.Attrs)
}

// Test whether two sets of marks are identical.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

// Create a properly sorted mark set from nil, a single mark, or an unsorted
// array of marks.
func MarkSetFrom(marks []*Mark) []*Mark {
	if len(marks) == 0 {
		return NoMarks
	}
	if len(marks) == 1 {
		return marks
	}
	var set []*Mark
	for _, m := range marks {
		set = m.AddToSet(set)
	}
	return set
}

// NoMarks is the empty set of marks.
var NoMarks = []*Mark{}
