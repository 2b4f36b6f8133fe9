// Package element holds the parsed structure of a document: plain prose,
// parameterized objects, their markdown parameters and includes.
//
// Nodes live in an arena owned by a Tree and refer to their parent by
// NodeID. Ownership flows from the tree to the nodes; the parent link is only
// used for lookups.
package element

import (
	"fmt"
	"slices"
	"strings"
)

// NodeID indexes a node in its Tree.
type NodeID int

// NoNode is the parent of top-level nodes.
const NoNode NodeID = -1

// Kind identifies the node variant.
type Kind int

const (
	KindPlain Kind = iota
	KindObject
	KindParam
	KindInclude
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindObject:
		return "object"
	case KindParam:
		return "param"
	case KindInclude:
		return "include"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Origin is the source span a node was parsed from. Start is an offset in
// the document text handed to Parse.
type Origin struct {
	Start int
	Text  string
}

// Len is the length of the source span.
func (o Origin) Len() int { return len(o.Text) }

// End is the offset just past the source span.
func (o Origin) End() int { return o.Start + len(o.Text) }

// Element is implemented by every node variant.
type Element interface {
	ID() NodeID
	Parent() NodeID
	Origin() Origin
	Kind() Kind
	Children() []NodeID

	render(t *Tree, w *strings.Builder, stack *IncludeStack, ctx RenderContext) error
}

type base struct {
	id     NodeID
	parent NodeID
	origin Origin
}

func (b *base) ID() NodeID      { return b.id }
func (b *base) Parent() NodeID  { return b.parent }
func (b *base) Origin() Origin  { return b.origin }
func (b *base) setID(id NodeID) { b.id = id }

// Plain is prose handed to the markdown converter.
type Plain struct {
	base
	Text string
}

func (*Plain) Kind() Kind         { return KindPlain }
func (*Plain) Children() []NodeID { return nil }

// Object instantiates a named template. Literal parameters are kept as
// strings; markdown parameters are Param children.
type Object struct {
	base
	Name string

	literals map[string]string
	params   map[string]NodeID
	order    []string
}

func (*Object) Kind() Kind { return KindObject }

// Children returns the markdown parameters in document order.
func (o *Object) Children() []NodeID {
	ids := make([]NodeID, 0, len(o.params))
	for _, name := range o.order {
		if id, ok := o.params[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Literal returns the dedented content of a literal parameter.
func (o *Object) Literal(name string) (string, bool) {
	v, ok := o.literals[name]
	return v, ok
}

// Param returns the node of a markdown parameter.
func (o *Object) Param(name string) (NodeID, bool) {
	id, ok := o.params[name]
	return id, ok
}

// ParamNames lists every parameter, literal or markdown, in document order.
func (o *Object) ParamNames() []string {
	return slices.Clone(o.order)
}

func (o *Object) hasParam(name string) bool {
	_, lit := o.literals[name]
	_, md := o.params[name]
	return lit || md
}

// Param wraps the markdown content of one object parameter.
type Param struct {
	base
	Name     string
	children []NodeID
}

func (*Param) Kind() Kind           { return KindParam }
func (p *Param) Children() []NodeID { return slices.Clone(p.children) }

// Include references another document by path.
type Include struct {
	base
	Target string
}

func (*Include) Kind() Kind         { return KindInclude }
func (*Include) Children() []NodeID { return nil }

// Tree is the arena of nodes parsed from one document.
type Tree struct {
	nodes []Element
	roots []NodeID
}

type identifiable interface{ setID(NodeID) }

func (t *Tree) add(e Element) NodeID {
	id := NodeID(len(t.nodes))
	e.(identifiable).setID(id)
	t.nodes = append(t.nodes, e)
	return id
}

// Node returns the node with id, or nil.
func (t *Tree) Node(id NodeID) Element {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// ParentOf returns the parent of id, or nil for top-level nodes.
func (t *Tree) ParentOf(id NodeID) Element {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	return t.Node(n.Parent())
}

// Roots returns the top-level nodes in document order.
func (t *Tree) Roots() []NodeID { return slices.Clone(t.roots) }

// Len is the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }
