package model_test

import (
	"testing"

	. "github.com/cozy/blocknote/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeString(t *testing.T) {
	// nests
	assert.Equal(t,
		`doc(bullet_list(list_item(paragraph("hey"), paragraph), list_item(paragraph("foo"))))`,
		doc(ul(li(p("hey"), p()), li(p("foo")))).String(),
	)

	// shows inline children
	assert.Equal(t,
		`doc(paragraph("foo", image, hard_break, "bar"))`,
		doc(p("foo", img, br, "bar")).String(),
	)

	// shows marks
	assert.Equal(t,
		`doc(paragraph("foo", em("bar"), em(strong("quux")), code("baz")))`,
		doc(p("foo", em("bar", strong("quux")), code("baz"))).String(),
	)
}

func TestNodeTextContent(t *testing.T) {
	// works on a whole doc
	assert.Equal(t, "foo", doc(p("foo")).TextContent())

	// works on a text node
	assert.Equal(t, "foo", schema.Text("foo").TextContent())

	// works on a nested element
	assert.Equal(t, "hiab",
		doc(ul(li(p("hi")), li(p(em("a"), "b")))).TextContent())

	// skips leaf nodes
	assert.Equal(t, "ab", doc(p("a", br, "b")).TextContent())
}

func TestNodeSize(t *testing.T) {
	// counts runes in text nodes
	assert.Equal(t, 3, schema.Text("héé").NodeSize())

	// counts leaves as one
	assert.Equal(t, 1, br().NodeSize())

	// adds the open and close tokens
	assert.Equal(t, 7, doc(p("héé")).NodeSize())
}

func TestNodeEq(t *testing.T) {
	// compares structure
	assert.True(t, doc(p("a"), h1("b")).Eq(doc(p("a"), h1("b"))))

	// compares text
	assert.False(t, doc(p("a")).Eq(doc(p("b"))))

	// compares attributes
	assert.False(t, doc(h1("a")).Eq(doc(h2("a"))))

	// compares marks
	assert.False(t, doc(p(em("a"))).Eq(doc(p(strong("a")))))

	// joins adjacent text with the same marks
	assert.True(t, doc(p("a", "b")).Eq(doc(p("ab"))))
}

func TestNodeDescendants(t *testing.T) {
	var names []string
	doc(ul(li(p("a", br)))).Descendants(func(node, _ *Node, _ int) bool {
		names = append(names, node.Type.Name)
		return true
	})
	assert.Equal(t, []string{"bullet_list", "list_item", "paragraph", "text", "hard_break"}, names)

	// stops descending when the callback returns false
	names = nil
	doc(blockquote(p("a")), p("b")).Descendants(func(node, _ *Node, _ int) bool {
		names = append(names, node.Type.Name)
		return node.Type.Name != "blockquote"
	})
	assert.Equal(t, []string{"blockquote", "paragraph", "text"}, names)
}

func TestNodeChild(t *testing.T) {
	d := doc(p("a"), p("b"))
	child, err := d.Child(1)
	require.NoError(t, err)
	assert.Equal(t, "b", child.TextContent())

	_, err = d.Child(2)
	assert.Error(t, err)
	assert.Nil(t, d.MaybeChild(-1))
}

func TestSchemaNode(t *testing.T) {
	// fills in default attributes
	node, err := schema.Node("heading", nil, []interface{}{schema.Text("x")})
	require.NoError(t, err)
	assert.Equal(t, 1, node.Attr("level"))

	// rejects missing required attributes
	_, err = schema.Node("image", nil, nil)
	assert.Error(t, err)

	// rejects unknown types
	_, err = schema.Node("table", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownType)

	// refuses to create text through Create
	_, err = schema.Nodes["text"].Create(nil, nil, nil)
	assert.Error(t, err)
}
