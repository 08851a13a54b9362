package render

import (
	"bytes"
	"testing"

	"github.com/cozy/blocknote/markdown"
	"github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/test/builder"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
)

var (
	doc    = builder.Doc
	p      = builder.P
	h1     = builder.H1
	h2     = builder.H2
	li     = builder.Li
	ul     = builder.Ul
	ol     = builder.Ol
	br     = builder.Br
	strong = builder.Strong
	em     = builder.Em
)

func assertDoc(t *testing.T, expected, actual *model.Node) {
	t.Helper()
	assert.True(t, actual.Eq(expected), "%s != %s", actual, expected)
}

func TestRender(t *testing.T) {
	tr := New()

	test := func(source string, opts Options, expected *model.Node, html string) {
		t.Helper()
		res := tr.Render(source, opts)
		require.NotNil(t, res)
		assert.False(t, res.Fallback, "unexpected fallback: %v", res.Err)
		assertDoc(t, expected, res.Doc)
		assert.Equal(t, html, res.HTML)
	}

	// renders plain text
	test("hello", Options{}, doc(p("hello")), "<p>hello</p>")

	// renders an empty source
	test("", Options{}, doc(p()), "<p></p>")

	// renders inline markup
	test("**bold** and *em*", Options{},
		doc(p(strong("bold"), " and ", em("em"))),
		"<p><strong>bold</strong> and <em>em</em></p>")

	// renders a heading trigger as an empty heading
	test("# ", Options{}, doc(h1()), "<h1></h1>")
	test("## World", Options{}, doc(h2("World")), "<h2>World</h2>")

	// keeps bare hashes verbatim
	test("#", Options{}, doc(p("#")), "<p>#</p>")
	test("###", Options{}, doc(p("###")), "<p>###</p>")
	test("##\nnext", Options{}, doc(p("##", br, "next")), "<p>##<br/>next</p>")

	// does not interpret markup in flat headings
	test("# not *markup*", Options{Kind: KindFlat, Level: 2},
		doc(h2("# not *markup*")), "<h2># not *markup*</h2>")
	test("", Options{Kind: KindFlat}, doc(h1()), "<h1></h1>")

	// wraps bullets in a list item
	test("item **one**", Options{Kind: KindBullet},
		doc(ul(li(p("item ", strong("one"))))),
		"<ul><li><p>item <strong>one</strong></p></li></ul>")

	// wraps numbered blocks with their ordinal
	test("first", Options{Kind: KindNumbered},
		doc(ol(li(p("first")))),
		"<ol><li><p>first</p></li></ol>")
	test("third", Options{Kind: KindNumbered, Order: 3},
		doc(ol(map[string]interface{}{"order": 3}, li(p("third")))),
		`<ol start="3"><li><p>third</p></li></ol>`)
}

func TestRenderIsIdempotent(t *testing.T) {
	tr := New()
	for _, source := range []string{"", "plain", "# Title", "a **b** c", "- x\n- y", "#"} {
		first := tr.Render(source, Options{})
		second := tr.Render(source, Options{})
		assertDoc(t, first.Doc, second.Doc)
		assert.Equal(t, first.HTML, second.HTML)
	}
}

func TestHeadingTrigger(t *testing.T) {
	for source, level := range map[string]int{"# ": 1, "## x": 2, "######\ty": 6} {
		got, ok := HeadingTrigger(source)
		assert.True(t, ok, source)
		assert.Equal(t, level, got, source)
	}
	for _, source := range []string{"", "#", "######", "####### x", "a # b", " # x"} {
		_, ok := HeadingTrigger(source)
		assert.False(t, ok, source)
	}
}

func TestRenderFallback(t *testing.T) {
	mapper := markdown.NodeMapper{}
	for kind, fn := range markdown.DefaultNodeMapper {
		mapper[kind] = fn
	}
	delete(mapper, ast.KindHeading)

	var buf bytes.Buffer
	tr := New(WithNodeMapper(mapper), WithLogger(zerolog.New(&buf)))

	res := tr.Render("# title\nbody", Options{})
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, markdown.ErrUnsupported)
	assertDoc(t, doc(p("# title", br, "body")), res.Doc)
	assert.Equal(t, "<p># title<br/>body</p>", res.HTML)
	assert.Contains(t, buf.String(), `"level":"warn"`)

	// the fallback keeps the list wrapping
	res = tr.Render("# title", Options{Kind: KindBullet})
	assert.True(t, res.Fallback)
	assertDoc(t, doc(ul(li(p("# title")))), res.Doc)
}

func TestRenderRecoversPanics(t *testing.T) {
	mapper := markdown.NodeMapper{}
	for kind, fn := range markdown.DefaultNodeMapper {
		mapper[kind] = fn
	}
	mapper[ast.KindEmphasis] = func(*markdown.ParseState, ast.Node, bool) (ast.WalkStatus, error) {
		panic("boom")
	}

	tr := New(WithNodeMapper(mapper))
	res := tr.Render("an *emphasis*", Options{})
	assert.True(t, res.Fallback)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "boom")
	assertDoc(t, doc(p("an *emphasis*")), res.Doc)
}
