package model

import (
	"fmt"
	"reflect"
	"unicode/utf8"
)

// This type represents a node in the tree that makes up a rendered block. So
// a rendered block is an instance of Node, with children that are also
// instances of Node.
//
// Nodes are persistent data structures. Instead of changing them, you create
// new ones with the content you want. Old ones keep pointing at the old
// shape. This is made cheaper by sharing structure between the old and new
// data as much as possible, which a tree shape like this (without back
// pointers) makes easy.
//
// Do not directly mutate the properties of a Node object.
type Node struct {
	// The type of node that this is.
	Type *NodeType
	// An object mapping attribute names to values. The kind of attributes
	// allowed and required are determined by the node type.
	Attrs map[string]interface{}
	// A container holding the node's children.
	Content *Fragment
	// For text nodes, this contains the node's text content.
	Text *string
	// The marks (things like whether it is emphasized or part of a link)
	// applied to this node.
	Marks []*Mark
}

func NewNode(typ *NodeType, attrs map[string]interface{}, content *Fragment, marks []*Mark) *Node {
	if content == nil {
		content = EmptyFragment
	}
	return &Node{Type: typ, Attrs: attrs, Content: content, Marks: marks}
}

func NewTextNode(typ *NodeType, attrs map[string]interface{}, text string, marks []*Mark) *Node {
	return &Node{Type: typ, Attrs: attrs, Text: &text, Content: EmptyFragment, Marks: marks}
}

// The size of this node. For text nodes, this is the amount of runes. For
// other leaf nodes, it is one. For non-leaf nodes, it is the size of the
// content plus two (the start and end token).
func (n *Node) NodeSize() int {
	if n.IsText() {
		return utf8.RuneCountInString(*n.Text)
	}
	if n.IsLeaf() {
		return 1
	}
	return 2 + n.Content.Size
}

// The number of children that the node has.
func (n *Node) ChildCount() int {
	return n.Content.ChildCount()
}

// Get the child node at the given index. Returns an error when the index is
// out of range.
func (n *Node) Child(index int) (*Node, error) {
	return n.Content.Child(index)
}

// Get the child node at the given index, if it exists.
func (n *Node) MaybeChild(index int) *Node {
	return n.Content.MaybeChild(index)
}

// Call fn for every child node, passing the node, its offset into this
// parent node, and its index.
func (n *Node) ForEach(fn func(node *Node, offset, index int)) {
	n.Content.ForEach(fn)
}

// Call the given callback for every descendant node. Doesn't descend into a
// node when the callback returns false.
func (n *Node) Descendants(fn func(node, parent *Node, index int) bool) {
	n.Content.Descendants(fn, n)
}

// Concatenates all the text nodes found in this node and its children.
func (n *Node) TextContent() string {
	if n.IsText() {
		return *n.Text
	}
	return n.Content.TextContent()
}

// Test whether two nodes represent the same piece of content.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if other == nil {
		return false
	}
	if n.IsText() != other.IsText() || n.IsText() && *n.Text != *other.Text {
		return false
	}
	return n.SameMarkup(other) && n.Content.Eq(other.Content)
}

// Compare the markup (type, attributes, and marks) of this node to those of
// another. Returns true if both have the same markup.
func (n *Node) SameMarkup(other *Node) bool {
	return n.HasMarkup(other.Type, other.Attrs, other.Marks)
}

// Check whether this node's markup correspond to the given type, attributes,
// and marks.
func (n *Node) HasMarkup(typ *NodeType, attrs map[string]interface{}, marks []*Mark) bool {
	if n.Type != typ {
		return false
	}
	if attrs == nil {
		attrs = typ.DefaultAttrs
	}
	if len(n.Attrs) != 0 || len(attrs) != 0 {
		if !reflect.DeepEqual(n.Attrs, attrs) {
			return false
		}
	}
	return SameMarkSet(n.Marks, marks)
}

// Create a copy of this node, with the given set of marks instead of the
// node's own marks.
func (n *Node) Mark(marks []*Mark) *Node {
	if SameMarkSet(n.Marks, marks) {
		return n
	}
	if n.IsText() {
		return NewTextNode(n.Type, n.Attrs, *n.Text, marks)
	}
	return NewNode(n.Type, n.Attrs, n.Content, marks)
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) interface{} {
	return n.Attrs[name]
}

// True when this is a block (non-inline node).
func (n *Node) IsBlock() bool {
	return n.Type.IsBlock()
}

// True when this is a textblock node, a block node with inline content.
func (n *Node) IsTextblock() bool {
	return n.Type.IsTextblock()
}

// True when this is an inline node (a text node or a node that can appear
// among text).
func (n *Node) IsInline() bool {
	return n.Type.IsInline()
}

// True when this is a text node.
func (n *Node) IsText() bool {
	return n.Text != nil
}

// True when this is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.Type.IsLeaf()
}

// WithText returns a text node with the same markup and the given text.
func (n *Node) WithText(text string) *Node {
	if text == *n.Text {
		return n
	}
	return NewTextNode(n.Type, n.Attrs, text, n.Marks)
}

// Return a string representation of this node for debugging purposes.
func (n *Node) String() string {
	if n.Type.Spec.ToDebugString != nil {
		return n.Type.Spec.ToDebugString(n)
	}
	name := n.Type.Name
	if n.IsText() {
		name = fmt.Sprintf("%q", *n.Text)
	} else if n.Content.ChildCount() > 0 {
		name += fmt.Sprintf("(%s)", n.Content.toStringInner())
	}
	return wrapMarks(n.Marks, name)
}

func wrapMarks(marks []*Mark, str string) string {
	for i := len(marks) - 1; i >= 0; i-- {
		str = fmt.Sprintf("%s(%s)", marks[i].Type.Name, str)
	}
	return str
}
