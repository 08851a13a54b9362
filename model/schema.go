package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a node or mark name is not part of the
// schema.
var ErrUnknownType = errors.New("unknown type")

// AttributeSpec describes an attribute of a node or mark type.
type AttributeSpec struct {
	// The default value for this attribute, used when no explicit value is
	// provided.
	Default interface{}
	// Required attributes have no default and must be given on creation.
	Required bool
}

// NodeSpec describes a node type.
type NodeSpec struct {
	// The name of the node type.
	Key string
	// The content expression for this node. Only its emptiness matters
	// here: a node without content is a leaf.
	Content string
	// The marks that are allowed inside of this node. Nil means all marks,
	// an empty string means none.
	Marks *string
	// The group or space-separated groups to which this node belongs.
	Group string
	// Should be set to true for inline nodes.
	Inline bool
	// The attributes that nodes of this type get.
	Attrs map[string]*AttributeSpec
	// Defines the default way a node of this type should be serialized to
	// HTML.
	ToDOM ToDOM
	// Defines the default way a node of this type should be serialized to a
	// string representation for debugging.
	ToDebugString func(*Node) string
}

// MarkSpec describes a mark type.
type MarkSpec struct {
	Key   string
	Attrs map[string]*AttributeSpec
	// Whether this mark should be active when the cursor is positioned at
	// its end.
	Inclusive *bool
	// Determines whether marks of this type can span multiple adjacent
	// nodes when serialized to HTML.
	Spanning *bool
	ToDOM    ToDOM
}

// SchemaSpec is an object describing a schema.
type SchemaSpec struct {
	// The node types in this schema. The first one is the default top node
	// unless TopNode is set.
	Nodes []*NodeSpec
	// The mark types that exist in this schema. The order in which they are
	// provided determines the order in which mark sets are sorted.
	Marks []*MarkSpec
	// The name of the default top-level node for the schema.
	TopNode string
}

// NodeType is the type object of a node. Node types are created once per
// schema and used to tag Node instances.
type NodeType struct {
	// The name the node type has in this schema.
	Name string
	// A link back to the Schema the node type belongs to.
	Schema *Schema
	// The spec that this type is based on.
	Spec *NodeSpec
	// The attributes, with their default values filled in.
	DefaultAttrs map[string]interface{}
	groups       []string
}

// IsInline is true if this is an inline type.
func (nt *NodeType) IsInline() bool {
	return nt.Spec.Inline || nt.IsText() || nt.InGroup("inline")
}

// IsBlock is true if this is a block type.
func (nt *NodeType) IsBlock() bool {
	return !nt.IsInline()
}

// IsText is true if this is the text node type.
func (nt *NodeType) IsText() bool {
	return nt.Name == "text"
}

// IsLeaf is true for node types that allow no content.
func (nt *NodeType) IsLeaf() bool {
	return nt.Spec.Content == ""
}

// IsTextblock is true when this is a block type that holds inline content.
func (nt *NodeType) IsTextblock() bool {
	return nt.IsBlock() && strings.Contains(nt.Spec.Content, "inline") ||
		nt.IsBlock() && strings.Contains(nt.Spec.Content, "text")
}

// InGroup tells if the node type belongs to the given group.
func (nt *NodeType) InGroup(group string) bool {
	for _, g := range nt.groups {
		if g == group {
			return true
		}
	}
	return false
}

// AllowsMarkType returns true if the given mark type is allowed in this
// node.
func (nt *NodeType) AllowsMarkType(mt *MarkType) bool {
	if nt.Spec.Marks == nil {
		return true
	}
	allowed := *nt.Spec.Marks
	if allowed == "_" {
		return true
	}
	for _, name := range strings.Fields(allowed) {
		if name == mt.Name {
			return true
		}
	}
	return false
}

// ComputeAttrs fills in the defaults of the type for the missing attributes.
func (nt *NodeType) ComputeAttrs(attrs map[string]interface{}) (map[string]interface{}, error) {
	return computeAttrs(nt.Spec.Attrs, attrs, nt.Name)
}

// Create a Node of this type. The given attributes are checked and
// defaulted. Content may be a *Fragment, a *Node, a []*Node or nil.
func (nt *NodeType) Create(attrs map[string]interface{}, content interface{}, marks []*Mark) (*Node, error) {
	if nt.IsText() {
		return nil, errors.New("NodeType.Create can't construct text nodes")
	}
	computed, err := nt.ComputeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	frag, err := FragmentFrom(content)
	if err != nil {
		return nil, err
	}
	return NewNode(nt, computed, frag, MarkSetFrom(marks)), nil
}

// MarkType is the type object of a mark.
type MarkType struct {
	Name   string
	Rank   int
	Schema *Schema
	Spec   *MarkSpec
}

// Create a mark of this type. Attrs may be nil when every attribute has a
// default.
func (mt *MarkType) Create(attrs map[string]interface{}) *Mark {
	computed, err := computeAttrs(mt.Spec.Attrs, attrs, mt.Name)
	if err != nil {
		panic(err)
	}
	return &Mark{Type: mt, Attrs: computed}
}

// Excludes queries whether a given mark type is excluded by this one. Only
// marks of the same type exclude each other.
func (mt *MarkType) Excludes(other *MarkType) bool {
	return mt == other
}

// Schema holds the node and mark types that a document may contain.
type Schema struct {
	// The spec on which the schema is based.
	Spec *SchemaSpec
	// The node types of this schema, by name.
	Nodes map[string]*NodeType
	// The mark types of this schema, by name.
	Marks map[string]*MarkType
	// The type of the default top node for this schema.
	TopNodeType *NodeType
}

// NewSchema constructs a schema from a schema specification.
func NewSchema(spec *SchemaSpec) (*Schema, error) {
	schema := &Schema{
		Spec:  spec,
		Nodes: make(map[string]*NodeType, len(spec.Nodes)),
		Marks: make(map[string]*MarkType, len(spec.Marks)),
	}
	for _, ns := range spec.Nodes {
		if _, ok := schema.Nodes[ns.Key]; ok {
			return nil, fmt.Errorf("node type %q is defined twice", ns.Key)
		}
		defaults, _ := computeAttrs(ns.Attrs, nil, ns.Key)
		schema.Nodes[ns.Key] = &NodeType{
			Name:         ns.Key,
			Schema:       schema,
			Spec:         ns,
			DefaultAttrs: defaults,
			groups:       strings.Fields(ns.Group),
		}
	}
	for i, ms := range spec.Marks {
		schema.Marks[ms.Key] = &MarkType{Name: ms.Key, Rank: i, Schema: schema, Spec: ms}
	}
	top := spec.TopNode
	if top == "" {
		top = "doc"
	}
	schema.TopNodeType = schema.Nodes[top]
	if schema.TopNodeType == nil {
		return nil, fmt.Errorf("schema is missing its top node type (%q)", top)
	}
	if text, ok := schema.Nodes["text"]; !ok || len(text.Spec.Attrs) > 0 {
		return nil, errors.New("every schema needs a 'text' type without attributes")
	}
	return schema, nil
}

// NodeType returns the node type with the given name.
func (s *Schema) NodeType(name string) (*NodeType, error) {
	if nt, ok := s.Nodes[name]; ok {
		return nt, nil
	}
	return nil, fmt.Errorf("node %q: %w", name, ErrUnknownType)
}

// Node creates a node in this schema. Content items may be nodes or slices
// of nodes.
func (s *Schema) Node(name string, attrs map[string]interface{}, content []interface{}, marks ...[]*Mark) (*Node, error) {
	typ, err := s.NodeType(name)
	if err != nil {
		return nil, err
	}
	var children []*Node
	for _, c := range content {
		switch c := c.(type) {
		case *Node:
			children = append(children, c)
		case []*Node:
			children = append(children, c...)
		case nil:
		default:
			return nil, fmt.Errorf("invalid content %T for node %q", c, name)
		}
	}
	var m []*Mark
	if len(marks) > 0 {
		m = marks[0]
	}
	return typ.Create(attrs, children, m)
}

// Text creates a text node in the schema. Empty text nodes are not allowed,
// callers should skip them.
func (s *Schema) Text(text string, marks ...[]*Mark) *Node {
	var m []*Mark
	if len(marks) > 0 {
		m = marks[0]
	}
	return NewTextNode(s.Nodes["text"], nil, text, MarkSetFrom(m))
}

// Mark creates a mark with the given type and attributes.
func (s *Schema) Mark(name string, attrs ...map[string]interface{}) *Mark {
	var a map[string]interface{}
	if len(attrs) > 0 {
		a = attrs[0]
	}
	return s.Marks[name].Create(a)
}

func computeAttrs(specs map[string]*AttributeSpec, given map[string]interface{}, owner string) (map[string]interface{}, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	built := make(map[string]interface{}, len(specs))
	for name, spec := range specs {
		if v, ok := given[name]; ok {
			built[name] = v
			continue
		}
		if spec != nil && spec.Required {
			return nil, fmt.Errorf("no value supplied for attribute %q of %q", name, owner)
		}
		if spec == nil {
			built[name] = nil
			continue
		}
		built[name] = spec.Default
	}
	return built, nil
}
