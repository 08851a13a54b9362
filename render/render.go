// Package render derives the structural representation of a block from its
// source text.
package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cozy/blocknote/markdown"
	"github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/schema/notebook"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Kind selects how a source is rendered.
type Kind int

const (
	// KindMarkdown renders the source as markdown.
	KindMarkdown Kind = iota
	// KindFlat renders the source verbatim inside a heading. No markup is
	// interpreted.
	KindFlat
	// KindBullet renders the source as markdown inside a bullet list item.
	KindBullet
	// KindNumbered renders the source as markdown inside a numbered list
	// item.
	KindNumbered
)

func (k Kind) String() string {
	switch k {
	case KindMarkdown:
		return "markdown"
	case KindFlat:
		return "flat"
	case KindBullet:
		return "bullet"
	case KindNumbered:
		return "numbered"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Options parameterize a render.
type Options struct {
	Kind Kind
	// Heading level for KindFlat, 1 to 6.
	Level int
	// Ordinal of the item for KindNumbered. Zero means 1.
	Order int
}

// Result is the outcome of a render. Doc and HTML are always set.
type Result struct {
	Doc  *model.Node
	HTML string
	// Fallback is true when the source could not be transformed and was
	// rendered verbatim. Err holds the cause.
	Fallback bool
	Err      error
}

var (
	headingTrigger = regexp.MustCompile(`^(#{1,6})[ \t]`)
	bareHeading    = regexp.MustCompile(`^#{1,6}(\r?\n|$)`)
)

// HeadingTrigger reports whether source starts with a heading marker
// followed by whitespace, and the level of that heading.
func HeadingTrigger(source string) (int, bool) {
	m := headingTrigger.FindStringSubmatch(source)
	if m == nil {
		return 0, false
	}
	return len(m[1]), true
}

// Transformer renders block sources. It is safe for concurrent use.
type Transformer struct {
	schema     *model.Schema
	serializer *model.DOMSerializer
	parser     parser.Parser
	mapper     markdown.NodeMapper
	log        zerolog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Transformer) { t.log = log }
}

// WithNodeMapper replaces the markdown node mapper.
func WithNodeMapper(mapper markdown.NodeMapper) Option {
	return func(t *Transformer) { t.mapper = mapper }
}

// New returns a Transformer for the notebook schema.
func New(opts ...Option) *Transformer {
	t := &Transformer{
		schema:     notebook.Schema,
		serializer: notebook.Serializer,
		parser: goldmark.New(goldmark.WithExtensions(
			extension.Strikethrough,
			extension.Linkify,
		)).Parser(),
		mapper: markdown.DefaultNodeMapper,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Render transforms source. It never fails: when the markup can not be
// transformed, the source is rendered verbatim and the result is flagged as
// a fallback. The source itself is never altered.
func (t *Transformer) Render(source string, opts Options) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			res = t.fallback(source, opts, fmt.Errorf("render panic: %v", r))
		}
	}()

	doc, err := t.build(source, opts)
	if err != nil {
		return t.fallback(source, opts, err)
	}
	html, err := t.serializer.RenderHTML(doc)
	if err != nil {
		return t.fallback(source, opts, err)
	}
	return &Result{Doc: doc, HTML: html}
}

func (t *Transformer) build(source string, opts Options) (*model.Node, error) {
	if opts.Kind == KindFlat {
		level := opts.Level
		if level < 1 || level > 6 {
			level = 1
		}
		heading, err := t.schema.Node("heading", map[string]interface{}{"level": level}, []interface{}{t.text(source)})
		if err != nil {
			return nil, err
		}
		return t.schema.Node("doc", nil, []interface{}{heading})
	}

	var doc *model.Node
	if bareHeading.MatchString(source) {
		doc = t.verbatim(source)
	} else {
		parsed, err := markdown.ParseMarkdown(t.parser, t.mapper, []byte(source), t.schema)
		if err != nil {
			return nil, err
		}
		doc = parsed
	}
	return t.wrap(doc, opts)
}

// wrap moves the blocks of doc into a list item for list kinds.
func (t *Transformer) wrap(doc *model.Node, opts Options) (*model.Node, error) {
	var list string
	var attrs map[string]interface{}
	switch opts.Kind {
	case KindBullet:
		list = "bullet_list"
	case KindNumbered:
		list = "ordered_list"
		order := opts.Order
		if order < 1 {
			order = 1
		}
		attrs = map[string]interface{}{"order": order}
	default:
		return doc, nil
	}
	item, err := t.schema.Node("list_item", nil, []interface{}{doc.Content.Content})
	if err != nil {
		return nil, err
	}
	wrapper, err := t.schema.Node(list, attrs, []interface{}{item})
	if err != nil {
		return nil, err
	}
	return t.schema.Node("doc", nil, []interface{}{wrapper})
}

func (t *Transformer) fallback(source string, opts Options, cause error) *Result {
	t.log.Warn().Err(cause).Str("kind", opts.Kind.String()).Msg("rendering source verbatim")
	doc, err := t.wrap(t.verbatim(source), opts)
	if err != nil {
		doc = t.verbatim(source)
	}
	html, err := t.serializer.RenderHTML(doc)
	if err != nil {
		html = ""
	}
	return &Result{Doc: doc, HTML: html, Fallback: true, Err: cause}
}

// verbatim renders source as plain text in a paragraph, with its line breaks
// kept.
func (t *Transformer) verbatim(source string) *model.Node {
	var inline []*model.Node
	for i, line := range strings.Split(source, "\n") {
		if i > 0 {
			inline = append(inline, t.mustNode("hard_break", nil))
		}
		inline = append(inline, t.text(strings.TrimSuffix(line, "\r"))...)
	}
	return t.mustNode("doc", nil, t.mustNode("paragraph", nil, inline...))
}

func (t *Transformer) text(s string) []*model.Node {
	if s == "" {
		return nil
	}
	return []*model.Node{t.schema.Text(s)}
}

func (t *Transformer) mustNode(name string, attrs map[string]interface{}, content ...*model.Node) *model.Node {
	node, err := t.schema.Node(name, attrs, []interface{}{content})
	if err != nil {
		panic(err)
	}
	return node
}
