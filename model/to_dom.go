package model

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToDOM function type
type ToDOM = func(NodeOrMark) *html.Node

type NodeOrMark interface {
	GetAttrs([]string) []html.Attribute
}

// GetAttrs returns the selected attributes of the node as HTML attributes,
// or all of them when no selection is given.
func (n *Node) GetAttrs(selected []string) []html.Attribute {
	return collectAttrs(n.Attrs, selected)
}

// GetAttrs returns the selected attributes of the mark as HTML attributes.
func (m *Mark) GetAttrs(selected []string) []html.Attribute {
	return collectAttrs(m.Attrs, selected)
}

func collectAttrs(attrs map[string]interface{}, selected []string) []html.Attribute {
	keys := selected
	if keys == nil {
		for key := range attrs {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	result := []html.Attribute{}
	for _, key := range keys {
		if value, ok := attrs[key]; ok {
			result = addAttr(key, value, result)
		}
	}
	return result
}

func addAttr(key string, value interface{}, attrs []html.Attribute) []html.Attribute {
	newAttr := html.Attribute{Key: key}
	switch v := value.(type) {
	case int:
		newAttr.Val = strconv.Itoa(v)
	case float64:
		newAttr.Val = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		newAttr.Val = v
	default:
		return attrs
	}
	return append(attrs, newAttr)
}

func defaultDOMGenerator(a atom.Atom, attrs []string) ToDOM {
	return func(n NodeOrMark) *html.Node {
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: a,
			Data:     a.String(),
			Attr:     n.GetAttrs(attrs),
		}
	}
}

func defaultCodeBlockDOMGenerator() ToDOM {
	return func(n NodeOrMark) *html.Node {
		outerNode := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Pre,
			Data:     "pre",
		}
		innerNode := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Code,
			Data:     "code",
		}
		outerNode.AppendChild(innerNode)
		return outerNode
	}
}

var headingAtoms = map[string]atom.Atom{
	"1": atom.H1, "2": atom.H2, "3": atom.H3,
	"4": atom.H4, "5": atom.H5, "6": atom.H6,
}

func defaultHeadingDOMGenerator() ToDOM {
	return func(n NodeOrMark) *html.Node {
		level := "1"
		for _, a := range n.GetAttrs([]string{"level"}) {
			level = a.Val
		}
		dataAtom, ok := headingAtoms[level]
		if !ok {
			dataAtom = atom.H1
		}
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: dataAtom,
			Data:     dataAtom.String(),
		}
	}
}

func defaultOrderedListDOMGenerator() ToDOM {
	return func(n NodeOrMark) *html.Node {
		var attrs []html.Attribute
		for _, a := range n.GetAttrs([]string{"order"}) {
			if a.Val != "1" {
				attrs = append(attrs, html.Attribute{Key: "start", Val: a.Val})
			}
		}
		return &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Ol,
			Data:     "ol",
			Attr:     attrs,
		}
	}
}

// Default ToDOM functions
var (
	defaultToDOM = map[string]ToDOM{
		"paragraph":       defaultDOMGenerator(atom.P, nil),
		"blockquote":      defaultDOMGenerator(atom.Blockquote, nil),
		"horizontal_rule": defaultDOMGenerator(atom.Hr, nil),
		"image":           defaultDOMGenerator(atom.Img, []string{"src", "alt", "title"}),
		"hard_break":      defaultDOMGenerator(atom.Br, nil),
		"bullet_list":     defaultDOMGenerator(atom.Ul, []string{}),
		"ordered_list":    defaultOrderedListDOMGenerator(),
		"list_item":       defaultDOMGenerator(atom.Li, nil),
		"code_block":      defaultCodeBlockDOMGenerator(),
		"heading":         defaultHeadingDOMGenerator(),
	}
	defaultMarkToDOM = map[string]ToDOM{
		"link":   defaultDOMGenerator(atom.A, []string{"href", "title"}),
		"em":     defaultDOMGenerator(atom.Em, nil),
		"strong": defaultDOMGenerator(atom.Strong, nil),
		"code":   defaultDOMGenerator(atom.Code, nil),
	}
)

// A DOM serializer knows how to convert nodes and marks of various types to
// HTML nodes.
type DOMSerializer struct {
	// The node serialization functions.
	Nodes map[string]ToDOM

	// The mark serialization functions. A nil entry means marks of that type
	// are not serialized.
	Marks map[string]ToDOM
}

// Helper function to add default ToDOM functions to schema
func AddDefaultToDOM(schema *Schema) *Schema {
	for _, n := range schema.Nodes {
		if n.Spec.ToDOM == nil {
			if toDOM, ok := defaultToDOM[n.Name]; ok {
				n.Spec.ToDOM = toDOM
			}
		}
	}
	for _, m := range schema.Marks {
		if m.Spec.ToDOM == nil {
			if toDOM, ok := defaultMarkToDOM[m.Name]; ok {
				m.Spec.ToDOM = toDOM
			}
		}
	}
	return schema
}

// Build a serializer using the properties in a schema's node and mark specs.
func DOMSerializerFromSchema(schema *Schema) *DOMSerializer {
	return &DOMSerializer{
		Nodes: nodesFromSchema(schema),
		Marks: marksFromSchema(schema),
	}
}

func (d *DOMSerializer) hasMark(markName string) bool {
	return d.Marks[markName] != nil
}

// Serialize the content of this fragment to HTML nodes appended to target.
// When target is nil, a new document node is created.
func (d *DOMSerializer) SerializeFragment(fragment *Fragment, target *html.Node) *html.Node {
	if target == nil {
		target = &html.Node{Type: html.DocumentNode}
	}
	type activeMark struct {
		mark *Mark
		top  *html.Node
	}
	var active []activeMark
	top := target
	fragment.ForEach(func(node *Node, offset, index int) {
		if len(active) > 0 || len(node.Marks) > 0 {
			keep, rendered := 0, 0
			for keep < len(active) && rendered < len(node.Marks) {
				next := node.Marks[rendered]
				if !d.hasMark(next.Type.Name) {
					rendered++
					continue
				}
				if !next.Eq(active[keep].mark) || (next.Type.Spec.Spanning != nil && !*next.Type.Spec.Spanning) {
					break
				}
				keep++
				rendered++
			}
			for keep < len(active) {
				n := len(active)
				top, active = active[n-1].top, active[:n-1]
			}
			for rendered < len(node.Marks) {
				add := node.Marks[rendered]
				rendered++
				if markDOM := d.serializeMark(add); markDOM != nil {
					active = append(active, activeMark{mark: add, top: top})
					top.AppendChild(markDOM)
					top = markDOM
				}
			}
		}
		if child := d.SerializeNode(node); child != nil {
			top.AppendChild(child)
		}
	})
	return target
}

func (d *DOMSerializer) serializeMark(mark *Mark) *html.Node {
	toDOM := d.Marks[mark.Type.Name]
	if toDOM == nil {
		return nil
	}
	return toDOM(mark)
}

// Serialize this node to an HTML node. This can be useful when you need to
// serialize a part of a document, as opposed to the whole document. To
// serialize a whole document, use SerializeFragment on its content.
func (d *DOMSerializer) SerializeNode(node *Node) *html.Node {
	domFn := d.Nodes[node.Type.Name]
	if domFn == nil {
		return nil
	}
	topNode := domFn(node)
	contentNode := topNode
	for contentNode.FirstChild != nil {
		contentNode = contentNode.FirstChild
	}
	d.SerializeFragment(node.Content, contentNode)
	return topNode
}

// RenderHTML serializes the content of a node to an HTML string.
func (d *DOMSerializer) RenderHTML(node *Node) (string, error) {
	root := d.SerializeFragment(node.Content, nil)
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render %s: %w", node.Type.Name, err)
		}
	}
	return buf.String(), nil
}

// Gather the serializers in a schema's node specs into an object.
// This can be useful as a base to build a custom serializer from.
func nodesFromSchema(schema *Schema) map[string]ToDOM {
	result := make(map[string]ToDOM)
	for _, n := range schema.Nodes {
		result[n.Name] = n.Spec.ToDOM
	}
	if result["text"] == nil {
		result["text"] = func(n NodeOrMark) *html.Node {
			node, _ := n.(*Node)
			return &html.Node{
				Type: html.TextNode,
				Data: *node.Text,
			}
		}
	}
	return result
}

// Gather the serializers in a schema's mark specs into an object.
func marksFromSchema(schema *Schema) map[string]ToDOM {
	result := make(map[string]ToDOM)
	for _, m := range schema.Marks {
		result[m.Name] = m.Spec.ToDOM
	}
	return result
}
