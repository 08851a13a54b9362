// Package markdown turns markdown source into notebook node trees, using
// goldmark for the parsing itself.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/cozy/blocknote/model"
	"github.com/yuin/goldmark/ast"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// ErrUnsupported is returned when the markdown contains a construct that the
// node mapper has no conversion for.
var ErrUnsupported = errors.New("unsupported markdown node")

// NodeMapperFunc converts a goldmark node into nodes of the schema by
// driving the parse state. It is called once when the walk enters the node
// and once when it leaves it, unless it asks to skip the children.
type NodeMapperFunc func(state *ParseState, node ast.Node, entering bool) (ast.WalkStatus, error)

// NodeMapper maps goldmark node kinds to their conversion.
type NodeMapper map[ast.NodeKind]NodeMapperFunc

// ParseMarkdown parses source with the given goldmark parser and converts
// the result into a document of schema.
func ParseMarkdown(p parser.Parser, mapper NodeMapper, source []byte, schema *model.Schema) (*model.Node, error) {
	root := p.Parse(text.NewReader(source))
	state := &ParseState{Schema: schema, Source: source}
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		fn, ok := mapper[n.Kind()]
		if !ok {
			return ast.WalkStop, fmt.Errorf("%w: %s", ErrUnsupported, n.Kind())
		}
		return fn(state, n, entering)
	})
	if err != nil {
		return nil, err
	}
	if state.doc == nil {
		return nil, errors.New("markdown: document was not closed")
	}
	return state.doc, nil
}

type stackEntry struct {
	typ     *model.NodeType
	attrs   map[string]interface{}
	content []*model.Node
}

// ParseState is the builder the node mappers write into. It keeps a stack
// of open nodes and the set of active marks.
type ParseState struct {
	Schema *model.Schema
	Source []byte

	stack []*stackEntry
	marks []*model.Mark
	doc   *model.Node
}

// Open starts a node of the named type. Its content is collected until the
// matching Close.
func (s *ParseState) Open(name string, attrs map[string]interface{}) error {
	typ, err := s.Schema.NodeType(name)
	if err != nil {
		return err
	}
	s.stack = append(s.stack, &stackEntry{typ: typ, attrs: attrs})
	return nil
}

// Close finishes the innermost open node and adds it to its parent.
func (s *ParseState) Close() error {
	if len(s.stack) == 0 {
		return errors.New("markdown: close without open node")
	}
	top := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	node, err := top.typ.Create(top.attrs, top.content, nil)
	if err != nil {
		return err
	}
	if len(s.stack) == 0 {
		s.doc = node
		return nil
	}
	s.push(node)
	return nil
}

// AddNode adds a node of the named type to the innermost open node. Inline
// nodes get the active marks.
func (s *ParseState) AddNode(name string, attrs map[string]interface{}, content ...*model.Node) error {
	typ, err := s.Schema.NodeType(name)
	if err != nil {
		return err
	}
	var marks []*model.Mark
	if typ.IsInline() {
		marks = s.marks
	}
	node, err := typ.Create(attrs, content, marks)
	if err != nil {
		return err
	}
	s.push(node)
	return nil
}

// AddText adds text with the active marks. Empty text is ignored.
func (s *ParseState) AddText(value string) {
	if value == "" {
		return
	}
	s.push(s.Schema.Text(value, s.marks))
}

// OpenMark adds a mark to the set of active marks.
func (s *ParseState) OpenMark(m *model.Mark) {
	s.marks = m.AddToSet(s.marks)
}

// CloseMark removes a mark from the set of active marks.
func (s *ParseState) CloseMark(m *model.Mark) {
	s.marks = m.RemoveFromSet(s.marks)
}

func (s *ParseState) push(node *model.Node) {
	if len(s.stack) == 0 {
		return
	}
	top := s.stack[len(s.stack)-1]
	top.content = append(top.content, node)
}

func (s *ParseState) empty() bool {
	return len(s.stack) > 0 && len(s.stack[len(s.stack)-1].content) == 0
}

// block returns a mapper that wraps the children of a goldmark node in a
// node of the given type.
func block(name string, attrs func(ast.Node) map[string]interface{}) NodeMapperFunc {
	return func(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, s.Close()
		}
		var a map[string]interface{}
		if attrs != nil {
			a = attrs(n)
		}
		return ast.WalkContinue, s.Open(name, a)
	}
}

// mark returns a mapper that applies a mark to the children of a goldmark
// node.
func mark(mk func(s *ParseState, n ast.Node) *model.Mark) NodeMapperFunc {
	return func(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
		m := mk(s, n)
		if entering {
			s.OpenMark(m)
		} else {
			s.CloseMark(m)
		}
		return ast.WalkContinue, nil
	}
}

// passThrough keeps the children of a node without wrapping them.
func passThrough(*ParseState, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func mapDocument(s *ParseState, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		return ast.WalkContinue, s.Open("doc", nil)
	}
	if s.empty() {
		if err := s.AddNode("paragraph", nil); err != nil {
			return ast.WalkStop, err
		}
	}
	return ast.WalkContinue, s.Close()
}

func mapText(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	t := n.(*ast.Text)
	s.AddText(unescape(t.Segment.Value(s.Source)))
	if t.HardLineBreak() || t.SoftLineBreak() {
		return ast.WalkContinue, s.AddNode("hard_break", nil)
	}
	return ast.WalkContinue, nil
}

func mapString(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		s.AddText(string(n.(*ast.String).Value))
	}
	return ast.WalkContinue, nil
}

func mapCodeSpan(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(bytes.ReplaceAll(t.Segment.Value(s.Source), []byte("\n"), []byte(" ")))
		}
	}
	code := s.Schema.Mark("code")
	s.OpenMark(code)
	s.AddText(buf.String())
	s.CloseMark(code)
	return ast.WalkSkipChildren, nil
}

func mapCodeBlock(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	params := ""
	if fenced, ok := n.(*ast.FencedCodeBlock); ok {
		params = string(fenced.Language(s.Source))
	}
	content := strings.TrimSuffix(linesText(n, s.Source), "\n")
	var children []*model.Node
	if content != "" {
		children = append(children, s.Schema.Text(content))
	}
	return ast.WalkSkipChildren, s.AddNode("code_block", map[string]interface{}{"params": params}, children...)
}

func mapHTMLBlock(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	raw := linesText(n, s.Source)
	if h, ok := n.(*ast.HTMLBlock); ok && h.HasClosure() {
		raw += string(h.ClosureLine.Value(s.Source))
	}
	if err := s.Open("paragraph", nil); err != nil {
		return ast.WalkStop, err
	}
	s.AddText(strings.TrimSuffix(raw, "\n"))
	return ast.WalkSkipChildren, s.Close()
}

func mapRawHTML(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	segments := n.(*ast.RawHTML).Segments
	var buf bytes.Buffer
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		buf.Write(seg.Value(s.Source))
	}
	s.AddText(buf.String())
	return ast.WalkSkipChildren, nil
}

func mapImage(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	img := n.(*ast.Image)
	attrs := map[string]interface{}{
		"src": unescape(img.Destination),
		"alt": inlineText(n, s.Source),
	}
	if len(img.Title) > 0 {
		attrs["title"] = unescape(img.Title)
	}
	return ast.WalkSkipChildren, s.AddNode("image", attrs)
}

func mapAutoLink(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	l := n.(*ast.AutoLink)
	m := s.Schema.Mark("link", map[string]interface{}{"href": string(l.URL(s.Source))})
	s.OpenMark(m)
	s.AddText(string(l.Label(s.Source)))
	s.CloseMark(m)
	return ast.WalkSkipChildren, nil
}

func linkMark(s *ParseState, n ast.Node) *model.Mark {
	l := n.(*ast.Link)
	attrs := map[string]interface{}{"href": unescape(l.Destination)}
	if len(l.Title) > 0 {
		attrs["title"] = unescape(l.Title)
	}
	return s.Schema.Mark("link", attrs)
}

func emphasisMark(s *ParseState, n ast.Node) *model.Mark {
	if n.(*ast.Emphasis).Level >= 2 {
		return s.Schema.Mark("strong")
	}
	return s.Schema.Mark("em")
}

func headingAttrs(n ast.Node) map[string]interface{} {
	return map[string]interface{}{"level": n.(*ast.Heading).Level}
}

func mapList(s *ParseState, n ast.Node, entering bool) (ast.WalkStatus, error) {
	list := n.(*ast.List)
	if !entering {
		return ast.WalkContinue, s.Close()
	}
	if list.IsOrdered() {
		return ast.WalkContinue, s.Open("ordered_list", map[string]interface{}{"order": list.Start})
	}
	return ast.WalkContinue, s.Open("bullet_list", nil)
}

func linesText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c := c.(type) {
		case *ast.Text:
			buf.Write(unescapeBytes(c.Segment.Value(source)))
		case *ast.String:
			buf.Write(c.Value)
		default:
			buf.WriteString(inlineText(c, source))
		}
	}
	return buf.String()
}

func unescapeBytes(v []byte) []byte {
	return util.UnescapePunctuations(util.ResolveEntityNames(util.ResolveNumericReferences(v)))
}

func unescape(v []byte) string {
	return string(unescapeBytes(v))
}

// DefaultNodeMapper converts CommonMark plus strikethrough and linkified
// urls into the notebook schema. Soft line breaks are kept as hard breaks,
// so that the rendering follows the lines of the source.
var DefaultNodeMapper = NodeMapper{
	ast.KindDocument:        mapDocument,
	ast.KindParagraph:       block("paragraph", nil),
	ast.KindTextBlock:       block("paragraph", nil),
	ast.KindHeading:         block("heading", headingAttrs),
	ast.KindBlockquote:      block("blockquote", nil),
	ast.KindList:            mapList,
	ast.KindListItem:        block("list_item", nil),
	ast.KindThematicBreak:   mapThematicBreak,
	ast.KindCodeBlock:       mapCodeBlock,
	ast.KindFencedCodeBlock: mapCodeBlock,
	ast.KindHTMLBlock:       mapHTMLBlock,
	ast.KindText:            mapText,
	ast.KindString:          mapString,
	ast.KindCodeSpan:        mapCodeSpan,
	ast.KindEmphasis:        mark(emphasisMark),
	ast.KindLink:            mark(linkMark),
	ast.KindAutoLink:        mapAutoLink,
	ast.KindImage:           mapImage,
	ast.KindRawHTML:         mapRawHTML,
	east.KindStrikethrough:  passThrough,
}

func mapThematicBreak(s *ParseState, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	return ast.WalkContinue, s.AddNode("horizontal_rule", nil)
}
