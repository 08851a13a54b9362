// Package builder provides helpers to write node trees in tests, in the form
// doc(p("foo", em("bar")), h2("baz")).
package builder

import (
	"fmt"

	"github.com/cozy/blocknote/model"
	"github.com/cozy/blocknote/schema/notebook"
)

// Spec describes a named builder: "nodeType" or "markType" selects the type,
// the other entries are attributes.
type Spec map[string]interface{}

// NodeBuilder creates a node. Arguments may be strings (text), nodes, slices
// of nodes (as returned by mark builders) or an attribute map.
type NodeBuilder func(args ...interface{}) *model.Node

// MarkBuilder applies a mark to the given content and returns the marked
// inline nodes.
type MarkBuilder func(args ...interface{}) []*model.Node

func takeAttrs(attrs map[string]interface{}, args []interface{}) (map[string]interface{}, []interface{}) {
	if len(args) == 0 {
		return attrs, args
	}
	extra, ok := args[0].(map[string]interface{})
	if !ok {
		return attrs, args
	}
	merged := make(map[string]interface{}, len(attrs)+len(extra))
	for k, v := range attrs {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged, args[1:]
}

func flatten(schema *model.Schema, args []interface{}, marks []*model.Mark) []*model.Node {
	var out []*model.Node
	for _, arg := range args {
		switch arg := arg.(type) {
		case string:
			if arg != "" {
				out = append(out, schema.Text(arg, marks))
			}
		case *model.Node:
			out = append(out, withMarks(arg, marks))
		case []*model.Node:
			for _, n := range arg {
				out = append(out, withMarks(n, marks))
			}
		case NodeBuilder:
			out = append(out, withMarks(arg(), marks))
		default:
			panic(fmt.Sprintf("builder: unexpected argument %T", arg))
		}
	}
	return out
}

func withMarks(node *model.Node, marks []*model.Mark) *model.Node {
	set := node.Marks
	for _, m := range marks {
		set = m.AddToSet(set)
	}
	return node.Mark(set)
}

func block(schema *model.Schema, typ *model.NodeType, attrs map[string]interface{}) NodeBuilder {
	return func(args ...interface{}) *model.Node {
		a, rest := takeAttrs(attrs, args)
		node, err := typ.Create(a, flatten(schema, rest, nil), nil)
		if err != nil {
			panic(err)
		}
		return node
	}
}

// Create a builder function for marks.
func mark(schema *model.Schema, typ *model.MarkType, attrs map[string]interface{}) MarkBuilder {
	return func(args ...interface{}) []*model.Node {
		a, rest := takeAttrs(attrs, args)
		return flatten(schema, rest, []*model.Mark{typ.Create(a)})
	}
}

// Builders returns a builder for every node and mark type of the schema,
// keyed by type name, plus the named builders given in names.
func Builders(schema *model.Schema, names map[string]Spec) map[string]interface{} {
	result := map[string]interface{}{"schema": schema}
	for name, typ := range schema.Nodes {
		result[name] = block(schema, typ, nil)
	}
	for name, typ := range schema.Marks {
		result[name] = mark(schema, typ, nil)
	}
	for name, spec := range names {
		attrs := map[string]interface{}{}
		for k, v := range spec {
			if k != "nodeType" && k != "markType" {
				attrs[k] = v
			}
		}
		if typeName, ok := spec["nodeType"].(string); ok {
			result[name] = block(schema, schema.Nodes[typeName], attrs)
		} else if typeName, ok := spec["markType"].(string); ok {
			result[name] = mark(schema, schema.Marks[typeName], attrs)
		}
	}
	return result
}

var out = Builders(notebook.Schema, map[string]Spec{
	"p":   {"nodeType": "paragraph"},
	"pre": {"nodeType": "code_block"},
	"h1":  {"nodeType": "heading", "level": 1},
	"h2":  {"nodeType": "heading", "level": 2},
	"h3":  {"nodeType": "heading", "level": 3},
	"li":  {"nodeType": "list_item"},
	"ul":  {"nodeType": "bullet_list"},
	"ol":  {"nodeType": "ordered_list"},
	"br":  {"nodeType": "hard_break"},
	"img": {"nodeType": "image", "src": "img.png"},
	"hr":  {"nodeType": "horizontal_rule"},
	"a":   {"markType": "link", "href": "foo"},
})

var (
	Schema     = out["schema"].(*model.Schema)
	Doc        = out["doc"].(NodeBuilder)
	P          = out["p"].(NodeBuilder)
	Blockquote = out["blockquote"].(NodeBuilder)
	Pre        = out["pre"].(NodeBuilder)
	H1         = out["h1"].(NodeBuilder)
	H2         = out["h2"].(NodeBuilder)
	H3         = out["h3"].(NodeBuilder)
	Li         = out["li"].(NodeBuilder)
	Ul         = out["ul"].(NodeBuilder)
	Ol         = out["ol"].(NodeBuilder)
	Br         = out["br"].(NodeBuilder)
	Img        = out["img"].(NodeBuilder)
	Hr         = out["hr"].(NodeBuilder)
	A          = out["a"].(MarkBuilder)
	Em         = out["em"].(MarkBuilder)
	Strong     = out["strong"].(MarkBuilder)
	Code       = out["code"].(MarkBuilder)
)
