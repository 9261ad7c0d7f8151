// Package graph compiles command definitions into the flat, id-addressed
// command graph clients use for local parsing and completion.
//
// A Builder is used in two phases. During registration, literal and argument
// nodes are created and linked, and every redirect is recorded as data.
// CreateProtocolMessage then resolves all recorded redirects in one pass and
// emits the nodes in ascending id order. A Builder is single-use; any change
// to the command set means building a new one.
package graph

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/protocol"
)

// Composite argument capabilities. The argument package's Enum, Group and Loop
// implement them; other kinds are expanded into a single node.
type (
	enumerated interface{ Entries() []string }
	grouped    interface{ Members() []argument.Argument }
	looped     interface{ Body() []argument.Argument }
)

// LiteralOptions configures CreateLiteralNode.
type LiteralOptions struct {
	// Command attaches the literal to the root as a top-level entry point.
	Command    bool
	Executable bool
	// Aliases creates one extra literal per entry redirecting to the primary.
	Aliases  []string
	Redirect *argument.Redirect
}

// Builder owns the node set of one graph. Ids are drawn from an atomic
// counter, but the node set and redirect list are not synchronized: callers
// must serialize registration (see engine's compile queue).
type Builder struct {
	idSource  atomic.Int32
	nodes     map[int32]*Node
	pending   []PendingRedirect
	pendingAt map[int32]int // node id → index into pending
	root      *Node
	finalized bool
}

// NewBuilder creates a Builder with its root node at id 0.
func NewBuilder() *Builder {
	b := &Builder{
		nodes:     make(map[int32]*Node),
		pendingAt: make(map[int32]int),
	}
	b.root = newRootNode(b.nextID())
	b.register(b.root)
	return b
}

// Root returns the root node.
func (b *Builder) Root() *Node { return b.root }

// Node returns a node by id (nil if not found).
func (b *Builder) Node(id int32) *Node { return b.nodes[id] }

// NodeCount returns the number of registered nodes.
func (b *Builder) NodeCount() int { return len(b.nodes) }

// LastID returns the most recently allocated id.
func (b *Builder) LastID() int32 { return b.idSource.Load() - 1 }

// Pending returns the redirects not yet resolved.
func (b *Builder) Pending() []PendingRedirect {
	return append([]PendingRedirect(nil), b.pending...)
}

func (b *Builder) nextID() int32 { return b.idSource.Add(1) - 1 }

func (b *Builder) register(n *Node) { b.nodes[n.id] = n }

func (b *Builder) mustBeOpen() {
	if b.finalized {
		panic("graph: builder already finalized")
	}
}

// deferRedirect records a redirect for later resolution. A second record for
// the same node replaces the first, so loop overrides win over redirects the
// body declared.
func (b *Builder) deferRedirect(rec PendingRedirect) {
	if i, ok := b.pendingAt[rec.Node]; ok {
		b.pending[i] = rec
		return
	}
	b.pendingAt[rec.Node] = len(b.pending)
	b.pending = append(b.pending, rec)
}

// RedirectTo records a symbolic redirect for n, replacing any redirect
// recorded for it earlier. It resolves at finalize time.
func (b *Builder) RedirectTo(n *Node, r *argument.Redirect) {
	b.mustBeOpen()
	b.deferRedirect(PendingRedirect{Node: n.id, Path: r.Path})
}

// CreateLiteralNode creates a literal. With aliases it creates the primary
// literal plus one literal per alias; alias nodes redirect to the primary, are
// never executable and are never attached to the root. The primary is returned.
func (b *Builder) CreateLiteralNode(name string, opts LiteralOptions) *Node {
	b.mustBeOpen()
	if opts.Aliases != nil {
		primary := b.CreateLiteralNode(name, LiteralOptions{
			Command:    opts.Command,
			Executable: opts.Executable,
			Redirect:   opts.Redirect,
		})
		for _, alias := range opts.Aliases {
			n := newLiteralNode(b.nextID(), alias)
			n.setRedirect(primary.id)
			b.register(n)
		}
		return primary
	}

	n := newLiteralNode(b.nextID(), name)
	n.SetExecutable(opts.Executable)
	b.register(n)
	if opts.Redirect != nil {
		b.deferRedirect(PendingRedirect{Node: n.id, Path: opts.Redirect.Path})
	}
	if opts.Command {
		b.root.AddChild(n)
	}
	return n
}

// CreateArgumentNode expands arg into one or more nodes. A loop is anchored on
// the most recently allocated node.
func (b *Builder) CreateArgumentNode(arg argument.Argument, executable bool) []*Node {
	return b.CreateArgumentNodeAnchored(arg, executable, b.LastID())
}

// CreateArgumentNodeAnchored expands arg into one or more nodes:
//   - enumerations: one unattached literal per entry
//   - groups: members expanded in order and concatenated; the group's redirect
//     applies to the final node only
//   - loops: body expanded in order; every produced node redirects to anchor
//   - literal arguments: one literal node; anything else one argument node
//
// Loops nested inside arg are anchored on the node allocated just before they
// expand.
func (b *Builder) CreateArgumentNodeAnchored(arg argument.Argument, executable bool, anchor int32) []*Node {
	b.mustBeOpen()
	var (
		nodes       []*Node
		lastOnly    bool
		hasOverride bool
	)
	switch a := arg.(type) {
	case enumerated:
		for _, entry := range a.Entries() {
			nodes = append(nodes, b.CreateLiteralNode(entry, LiteralOptions{Executable: executable}))
		}
	case grouped:
		for _, m := range a.Members() {
			nodes = append(nodes, b.CreateArgumentNode(m, executable)...)
		}
		lastOnly = true
	case looped:
		hasOverride = true
		for _, m := range a.Body() {
			nodes = append(nodes, b.CreateArgumentNode(m, executable)...)
		}
	case *argument.Literal:
		nodes = []*Node{newLiteralNode(b.nextID(), a.ID())}
	default:
		nodes = []*Node{newArgumentNode(b.nextID(), arg)}
	}

	redirect := arg.Redirect()
	for i, n := range nodes {
		n.SetExecutable(executable)
		b.register(n)
		if !hasOverride && redirect == nil {
			continue
		}
		if lastOnly && i+1 != len(nodes) {
			continue
		}
		if hasOverride {
			b.deferRedirect(PendingRedirect{Node: n.id, Target: anchor, Fixed: true})
		} else {
			b.deferRedirect(PendingRedirect{Node: n.id, Path: redirect.Path})
		}
	}
	return nodes
}

// FinalizeStructure resolves every pending redirect exactly once. Either all
// records resolve and are applied, or none is: on failure the nodes and the
// pending list are left as they were and an *UnresolvedError lists every
// record that failed. Such a graph must not be transmitted.
func (b *Builder) FinalizeStructure() error {
	resolved, failed := resolveRedirects(b.nodes, b.root.id, b.pending)
	if len(failed) > 0 {
		return &UnresolvedError{Failed: failed}
	}
	for node, target := range resolved {
		b.nodes[node].setRedirect(target)
	}
	b.pending = b.pending[:0]
	clear(b.pendingAt)
	return nil
}

// CreateProtocolMessage finalizes the graph and emits every node in ascending
// id order together with the root's position. Wire references are positions
// in that order; the builder allocates ids densely from zero, so they equal
// node ids. After success the builder accepts no further nodes.
func (b *Builder) CreateProtocolMessage() (*protocol.DeclareCommands, error) {
	b.mustBeOpen()
	if err := b.FinalizeStructure(); err != nil {
		return nil, err
	}

	ids := make([]int32, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	index := make(map[int32]int32, len(ids))
	for i, id := range ids {
		index[id] = int32(i)
	}

	msg := &protocol.DeclareCommands{
		Nodes:     make([]protocol.Node, len(ids)),
		RootIndex: index[b.root.id],
	}
	for i, id := range ids {
		w := b.nodes[id].ToWire()
		for j, c := range w.Children {
			pos, ok := index[c]
			if !ok {
				return nil, fmt.Errorf("node %d: child %d was never registered", id, c)
			}
			w.Children[j] = pos
		}
		if w.HasRedirect() {
			w.Redirect = index[w.Redirect]
		}
		msg.Nodes[i] = w
	}
	b.finalized = true
	return msg, nil
}
