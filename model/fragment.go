package model

import (
	"fmt"
	"strings"
)

// A fragment represents a node's collection of child nodes.
//
// Like nodes, fragments are persistent data structures, and you should not
// mutate them or their content. Rather, you create new instances whenever
// needed.
type Fragment struct {
	Content []*Node
	Size    int
}

// EmptyFragment is an empty fragment. Nodes without children share it.
var EmptyFragment = &Fragment{}

// NewFragment builds a fragment from an array of nodes. Adjacent text nodes
// with the same marks are joined together.
func NewFragment(nodes []*Node) *Fragment {
	if len(nodes) == 0 {
		return EmptyFragment
	}
	joined := make([]*Node, 0, len(nodes))
	size := 0
	for _, node := range nodes {
		size += node.NodeSize()
		if n := len(joined); n > 0 && node.IsText() && joined[n-1].IsText() && SameMarkSet(node.Marks, joined[n-1].Marks) {
			joined[n-1] = joined[n-1].WithText(*joined[n-1].Text + *node.Text)
			continue
		}
		joined = append(joined, node)
	}
	return &Fragment{Content: joined, Size: size}
}

// FragmentFrom creates a fragment from something that can be interpreted as
// a set of nodes: nil, a fragment, a node or a slice of nodes.
func FragmentFrom(nodes interface{}) (*Fragment, error) {
	switch nodes := nodes.(type) {
	case nil:
		return EmptyFragment, nil
	case *Fragment:
		if nodes == nil {
			return EmptyFragment, nil
		}
		return nodes, nil
	case *Node:
		return NewFragment([]*Node{nodes}), nil
	case []*Node:
		return NewFragment(nodes), nil
	}
	return nil, fmt.Errorf("can not convert %T to a Fragment", nodes)
}

// The number of child nodes in this fragment.
func (f *Fragment) ChildCount() int {
	return len(f.Content)
}

// Get the child node at the given index. Returns an error when the index is
// out of range.
func (f *Fragment) Child(index int) (*Node, error) {
	if index < 0 || index >= len(f.Content) {
		return nil, fmt.Errorf("index %d out of range for %s", index, f)
	}
	return f.Content[index], nil
}

// Get the child node at the given index, if it exists.
func (f *Fragment) MaybeChild(index int) *Node {
	if index < 0 || index >= len(f.Content) {
		return nil
	}
	return f.Content[index]
}

// FirstChild returns the first child of the fragment, or nil if it is empty.
func (f *Fragment) FirstChild() *Node {
	return f.MaybeChild(0)
}

// LastChild returns the last child of the fragment, or nil if it is empty.
func (f *Fragment) LastChild() *Node {
	return f.MaybeChild(len(f.Content) - 1)
}

// Call fn for every child node, passing the node, its offset into this
// parent node, and its index.
func (f *Fragment) ForEach(fn func(node *Node, offset, index int)) {
	pos := 0
	for i, child := range f.Content {
		fn(child, pos, i)
		pos += child.NodeSize()
	}
}

// Descendants calls fn for every descendant node, depth first. When fn
// returns false for a node, its children are skipped.
func (f *Fragment) Descendants(fn func(node, parent *Node, index int) bool, parent *Node) {
	for i, child := range f.Content {
		if fn(child, parent, i) && child.Content.Size > 0 {
			child.Content.Descendants(fn, child)
		}
	}
}

// TextContent concatenates the text of all the text nodes in the fragment.
func (f *Fragment) TextContent() string {
	var sb strings.Builder
	f.Descendants(func(node, _ *Node, _ int) bool {
		if node.IsText() {
			sb.WriteString(*node.Text)
		}
		return true
	}, nil)
	return sb.String()
}

// Compare this fragment to another one.
func (f *Fragment) Eq(other *Fragment) bool {
	if len(f.Content) != len(other.Content) {
		return false
	}
	for i, child := range f.Content {
		if !child.Eq(other.Content[i]) {
			return false
		}
	}
	return true
}

// Return a debugging string that describes this fragment.
func (f *Fragment) String() string {
	return "<" + f.toStringInner() + ">"
}

func (f *Fragment) toStringInner() string {
	parts := make([]string, len(f.Content))
	for i, child := range f.Content {
		parts[i] = child.String()
	}
	return strings.Join(parts, ", ")
}
