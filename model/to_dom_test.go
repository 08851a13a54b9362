package model_test

import (
	"testing"

	. "github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/test/builder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func TestDOMSerializer(t *testing.T) {
	serializer := DOMSerializerFromSchema(schema)

	test := func(node *Node, expected string) {
		actual, err := serializer.RenderHTML(node)
		require.NoError(t, err)
		assert.Equal(t, expected, actual)
	}

	// represents a simple node
	test(doc(p("hello")), "<p>hello</p>")

	// represents a line break
	test(doc(p("hi", br, "there")), "<p>hi<br/>there</p>")

	// represents an image
	test(doc(p("hi", img(map[string]interface{}{"alt": "x"}), "there")),
		`<p>hi<img src="img.png" alt="x"/>there</p>`)

	// represents simple marks
	test(doc(p(em("emphasis"))), "<p><em>emphasis</em></p>")

	// represents links
	test(doc(p("a ", a("link"))), `<p>a <a href="foo">link</a></p>`)

	// represents an unordered list
	test(doc(ul(li(p("one")), li(p("two", strong("!")))), p("after")),
		"<ul><li><p>one</p></li><li><p>two<strong>!</strong></p></li></ul><p>after</p>")

	// represents an ordered list
	test(doc(ol(li(p("one")), li(p("two")))),
		"<ol><li><p>one</p></li><li><p>two</p></li></ol>")

	// keeps the start of an ordered list
	test(doc(ol(map[string]interface{}{"order": 3}, li(p("three")))),
		`<ol start="3"><li><p>three</p></li></ol>`)

	// represents a nested blockquote
	test(doc(blockquote(blockquote(p("he said")), p("i said"))),
		"<blockquote><blockquote><p>he said</p></blockquote><p>i said</p></blockquote>")

	// represents headings of every level
	test(doc(h1("one"), h2("two"), builder.H3("three"), p("text")),
		"<h1>one</h1><h2>two</h2><h3>three</h3><p>text</p>")
	h5, err := schema.Node("heading", map[string]interface{}{"level": 5}, []interface{}{schema.Text("five")})
	require.NoError(t, err)
	test(doc(h5), "<h5>five</h5>")

	// represents a code block
	test(doc(blockquote(pre("some code")), p("and")),
		"<blockquote><pre><code>some code</code></pre></blockquote><p>and</p>")

	// supports leaf nodes in marks
	test(doc(p(em("hi", br, "x"))), "<p><em>hi<br/>x</em></p>")

	// does not collapse non-breaking spaces
	test(doc(p("   hello ")), "<p>   hello </p>")

	// escapes text
	test(doc(p("<b>&")), "<p>&lt;b&gt;&amp;</p>")

	// renders an empty paragraph
	test(doc(p()), "<p></p>")
}

func TestMarksOnBlockNodes(t *testing.T) {
	commentToDOM := func(n NodeOrMark) *html.Node {
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Div,
			Data:     "div",
			Attr:     []html.Attribute{{Key: "class", Val: "comment"}},
		}
	}
	commentSchema, err := NewSchema(&SchemaSpec{
		Nodes: schema.Spec.Nodes,
		Marks: append(append([]*MarkSpec{}, schema.Spec.Marks...), &MarkSpec{Key: "comment", ToDOM: commentToDOM}),
	})
	require.NoError(t, err)

	out := builder.Builders(commentSchema, nil)
	bComment := out["comment"].(builder.MarkBuilder)
	bParagraph := out["paragraph"].(builder.NodeBuilder)
	bDoc := out["doc"].(builder.NodeBuilder)
	bStrong := out["strong"].(builder.MarkBuilder)

	actual, err := DOMSerializerFromSchema(commentSchema).RenderHTML(
		bDoc(bParagraph("one"), bComment(bParagraph("two"), bParagraph(bStrong("three"))), bParagraph("four")))
	require.NoError(t, err)
	assert.Equal(t,
		`<p>one</p><div class="comment"><p>two</p><p><strong>three</strong></p></div><p>four</p>`,
		actual)
}
