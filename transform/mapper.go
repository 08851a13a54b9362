package transform

import (
	"unicode/utf8"

	"github.com/cozy/blocknote/internal/grapheme"
	"github.com/cozy/blocknote/model"
)

// Point is a position inside a rendered tree, expressed as a text node and
// a rune offset into it.
type Point struct {
	// The text node holding the position. Nil for the null point of a tree
	// without text.
	Node *model.Node
	// Index of Node among the text nodes of the tree, in document order.
	Index int
	// Rune offset into Node.
	Offset int
	// Rune offset into the flattened text of the tree.
	Pos int
}

// Range is a selection resolved against a rendered tree.
type Range struct {
	Start Point
	End   Point
	// Container is the first textblock of the tree (or the tree itself when
	// it has none). A null range is anchored at its start.
	Container *model.Node
}

// Empty reports whether the range is the null range of a tree without text
// nodes.
func (r Range) Empty() bool {
	return r.Start.Node == nil
}

// Selection returns the flattened text offsets of the range.
func (r Range) Selection() Selection {
	return Selection{Start: r.Start.Pos, End: r.End.Pos}
}

// TextNodes returns the text-bearing nodes of doc in document order.
func TextNodes(doc *model.Node) []*model.Node {
	var nodes []*model.Node
	if doc == nil {
		return nodes
	}
	if doc.IsText() {
		return append(nodes, doc)
	}
	doc.Descendants(func(node, _ *model.Node, _ int) bool {
		if node.IsText() {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// Locate resolves a flattened text offset against doc. The offset belongs to
// the text node whose [count, count+length) contains it. Offsets past the
// end resolve to the end of the last text node, and a tree without text
// nodes yields the null point.
func Locate(doc *model.Node, pos int) Point {
	return locate(TextNodes(doc), pos)
}

func locate(nodes []*model.Node, pos int) Point {
	if len(nodes) == 0 {
		return Point{}
	}
	if pos < 0 {
		pos = 0
	}
	count := 0
	for i, node := range nodes {
		size := utf8.RuneCountInString(*node.Text)
		if pos < count+size {
			return Point{Node: node, Index: i, Offset: pos - count, Pos: pos}
		}
		count += size
	}
	last := nodes[len(nodes)-1]
	size := utf8.RuneCountInString(*last.Text)
	return Point{Node: last, Index: len(nodes) - 1, Offset: size, Pos: count}
}

// Map translates a selection taken against the flattened text of old into a
// range of the rendered tree new.
func Map(old *model.Node, sel Selection, new *model.Node) Range {
	return MapText(old.TextContent(), sel, new)
}

// MapText translates a selection taken against oldText into a range of the
// rendered tree new. When the flattened text of new differs from oldText,
// both endpoints are moved through the alignment of the two texts and
// snapped to a character boundary. Endpoints are resolved independently and
// out of range values are clamped, so MapText never fails.
func MapText(oldText string, sel Selection, new *model.Node) Range {
	sel = sel.Normalize().Clamp(utf8.RuneCountInString(oldText))
	nodes := TextNodes(new)
	rng := Range{Container: container(new)}
	if len(nodes) == 0 {
		return rng
	}

	newText := new.TextContent()
	start, end := sel.Start, sel.End
	if newText != oldText {
		m := TextDiff(oldText, newText)
		if sel.Collapsed() {
			start = grapheme.Snap(newText, m.Map(start, 1), -1)
			end = start
		} else {
			start = grapheme.Snap(newText, m.Map(start, 1), -1)
			end = grapheme.Snap(newText, m.Map(end, -1), 1)
			if end < start {
				end = start
			}
		}
	}
	rng.Start = locate(nodes, start)
	rng.End = locate(nodes, end)
	return rng
}

func container(doc *model.Node) *model.Node {
	if doc == nil {
		return nil
	}
	var found *model.Node
	doc.Descendants(func(node, _ *model.Node, _ int) bool {
		if found != nil {
			return false
		}
		if node.IsTextblock() {
			found = node
			return false
		}
		return true
	})
	if found == nil {
		return doc
	}
	return found
}
