package graph

import (
	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/protocol"
)

// Node is one vertex of the command graph.
type Node struct {
	id       int32
	typ      protocol.NodeType
	name     string
	children []int32 // registration order
	childSet map[int32]struct{}

	redirect    int32
	hasRedirect bool
	executable  bool

	arg argument.Argument // argument nodes only
}

func newNode(id int32, typ protocol.NodeType) *Node {
	return &Node{id: id, typ: typ, childSet: make(map[int32]struct{})}
}

func newRootNode(id int32) *Node {
	return newNode(id, protocol.NodeRoot)
}

func newLiteralNode(id int32, name string) *Node {
	n := newNode(id, protocol.NodeLiteral)
	n.name = name
	return n
}

func newArgumentNode(id int32, arg argument.Argument) *Node {
	n := newNode(id, protocol.NodeArgument)
	n.name = arg.ID()
	n.arg = arg
	return n
}

func (n *Node) ID() int32               { return n.id }
func (n *Node) Type() protocol.NodeType { return n.typ }
func (n *Node) Name() string            { return n.name }
func (n *Node) Executable() bool        { return n.executable }
func (n *Node) Argument() argument.Argument {
	return n.arg
}

// Redirect returns the redirect target and whether one is set.
func (n *Node) Redirect() (int32, bool) { return n.redirect, n.hasRedirect }

// Children returns child ids in the order they were added.
func (n *Node) Children() []int32 {
	return append([]int32(nil), n.children...)
}

func (n *Node) SetExecutable(executable bool) {
	n.executable = executable
}

func (n *Node) setRedirect(target int32) {
	n.redirect = target
	n.hasRedirect = true
}

// AddChild records the given nodes as children. Adding a child twice is a no-op.
func (n *Node) AddChild(nodes ...*Node) {
	for _, c := range nodes {
		if _, ok := n.childSet[c.id]; ok {
			continue
		}
		n.childSet[c.id] = struct{}{}
		n.children = append(n.children, c.id)
	}
}

// IsParentOf reports whether other was added as a child of n.
func (n *Node) IsParentOf(other *Node) bool {
	_, ok := n.childSet[other.id]
	return ok
}

// ToWire produces the exported record for this node.
func (n *Node) ToWire() protocol.Node {
	suggests := n.typ == protocol.NodeArgument && n.arg.SuggestionType() != ""
	w := protocol.Node{
		Flags:    protocol.Flags(n.typ, n.executable, n.hasRedirect, suggests),
		Children: n.Children(),
		Name:     n.name,
	}
	if w.Children == nil {
		w.Children = []int32{}
	}
	if n.hasRedirect {
		w.Redirect = n.redirect
	}
	if n.typ == protocol.NodeArgument {
		w.Parser = n.arg.Parser()
		w.Properties = n.arg.Properties()
		if suggests {
			w.SuggestionsType = n.arg.SuggestionType()
		}
	}
	return w
}
