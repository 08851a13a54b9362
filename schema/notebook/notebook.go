// Package notebook defines the schema every block renders into, with HTML
// serialization attached.
//
// A rendered block is a doc node. Paragraph blocks hold whatever the
// markdown of their source produces, heading blocks hold a single heading
// and list blocks wrap their content in a one-item list.
package notebook

import "github.com/cozy/blocknote/model"

var (
	noMarks = ""
	falsy   = false
)

// Nodes are the node types of rendered blocks.
var Nodes = []*model.NodeSpec{
	{Key: "doc", Content: "block+"},

	// <p>. Also the textblock of list items.
	{Key: "paragraph", Content: "inline*", Group: "block"},

	// <h1> to <h6>. Heading blocks use levels 1 to 3, markdown sources any.
	{
		Key: "heading", Content: "inline*", Group: "block",
		Attrs: map[string]*model.AttributeSpec{"level": {Default: 1}},
	},

	{Key: "blockquote", Content: "block+", Group: "block"},
	{Key: "horizontal_rule", Group: "block"},

	// <pre><code>. Fenced and indented code keep their text verbatim.
	{
		Key: "code_block", Content: "text*", Marks: &noMarks, Group: "block",
		Attrs: map[string]*model.AttributeSpec{"params": {Default: ""}},
	},

	// <ol start="order">. Numbered blocks carry their ordinal as order.
	{
		Key: "ordered_list", Content: "list_item+", Group: "block",
		Attrs: map[string]*model.AttributeSpec{"order": {Default: 1}},
	},
	{Key: "bullet_list", Content: "list_item+", Group: "block"},
	{Key: "list_item", Content: "paragraph block*"},

	{Key: "text", Group: "inline"},
	{
		Key: "image", Group: "inline", Inline: true,
		Attrs: map[string]*model.AttributeSpec{
			"src":   {Required: true},
			"alt":   {},
			"title": {},
		},
	},
	// <br>. Line breaks of the source render as hard breaks.
	{Key: "hard_break", Group: "inline", Inline: true},
}

// Marks are the inline marks markdown emphasis, code spans and links map to.
var Marks = []*model.MarkSpec{
	{
		Key: "link", Inclusive: &falsy,
		Attrs: map[string]*model.AttributeSpec{
			"href":  {Required: true},
			"title": {},
		},
	},
	{Key: "em"},
	{Key: "strong"},
	{Key: "code"},
}

// Schema is the notebook schema.
var Schema = mustSchema()

// Serializer renders notebook nodes to HTML.
var Serializer = model.DOMSerializerFromSchema(Schema)

func mustSchema() *model.Schema {
	schema, err := model.NewSchema(&model.SchemaSpec{Nodes: Nodes, Marks: Marks})
	if err != nil {
		panic(err)
	}
	return model.AddDefaultToDOM(schema)
}
