// Package command walks a command set and registers it with a graph builder.
package command

import (
	"fmt"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/graph"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/requirement"
)

// Requirements maps node ids to the expression that gates them. Nodes without
// an entry are visible to every viewer.
type Requirements map[int32]requirement.Expr

// Register adds every command in set to b. Argument definitions are built with
// reg. Redirects are only recorded here; they resolve when the builder emits
// its message.
func Register(b *graph.Builder, set *config.CommandSet, reg *argument.Registry) (Requirements, error) {
	r := &registrar{b: b, reg: reg, reqs: make(Requirements)}
	for i := range set.Commands {
		c := &set.Commands[i]
		if err := r.command(c); err != nil {
			return nil, fmt.Errorf("command %s: %w", c.Name, err)
		}
	}
	return r.reqs, nil
}

type registrar struct {
	b    *graph.Builder
	reg  *argument.Registry
	reqs Requirements
}

// gate records src against every node allocated since the id after.
func (r *registrar) gate(src string, after int32) error {
	if src == "" {
		return nil
	}
	e, err := requirement.Parse(src)
	if err != nil {
		return fmt.Errorf("requires: %w", err)
	}
	for id := after + 1; id <= r.b.LastID(); id++ {
		r.reqs[id] = e
	}
	return nil
}

// command adds one top-level command, its aliases and its subtree.
func (r *registrar) command(c *config.CommandDef) error {
	var aliases []string
	if len(c.Aliases) > 0 {
		aliases = c.Aliases
	}
	before := r.b.LastID()
	n := r.b.CreateLiteralNode(c.Name, graph.LiteralOptions{
		Command:    true,
		Executable: c.Executable,
		Aliases:    aliases,
		Redirect:   argument.ParseRedirect(c.Redirect),
	})
	if err := r.gate(c.Requires, before); err != nil {
		return err
	}
	return r.children([]*graph.Node{n}, c.Children)
}

// children attaches defs under every node in parents. Parents holds more
// than one node when the previous level expanded into alternatives.
func (r *registrar) children(parents []*graph.Node, defs []config.NodeDef) error {
	for _, d := range defs {
		before := r.b.LastID()
		switch {
		case d.Literal != "":
			n := r.b.CreateLiteralNode(d.Literal, graph.LiteralOptions{
				Executable: d.Executable,
				Redirect:   argument.ParseRedirect(d.Redirect),
			})
			attach(parents, n)
			if err := r.gate(d.Requires, before); err != nil {
				return fmt.Errorf("literal %s: %w", d.Literal, err)
			}
			if err := r.children([]*graph.Node{n}, d.Children); err != nil {
				return fmt.Errorf("literal %s: %w", d.Literal, err)
			}
		case d.Argument != nil:
			arg, err := r.reg.Build(d.Argument)
			if err != nil {
				return err
			}
			next, err := buildArgument(r.b, parents, arg, d.Executable)
			if err != nil {
				return fmt.Errorf("argument %s: %w", d.Argument.ID, err)
			}
			if err := r.gate(d.Requires, before); err != nil {
				return fmt.Errorf("argument %s: %w", d.Argument.ID, err)
			}
			if err := r.children(next, d.Children); err != nil {
				return fmt.Errorf("argument %s: %w", d.Argument.ID, err)
			}
		default:
			return fmt.Errorf("node definition sets neither literal nor argument")
		}
	}
	return nil
}

// buildArgument expands arg, links the produced nodes under parents and
// returns the nodes further children continue from.
//
// Group members form a chain: each member hangs off whatever the previous
// member continues from, and a redirect declared on the group applies to the
// last member's nodes. Enumeration entries and loop bodies are alternatives.
// A loop is anchored on each parent separately, its body expanded once per
// parent so every copy redirects back to the node it hangs off.
func buildArgument(b *graph.Builder, parents []*graph.Node, arg argument.Argument, executable bool) ([]*graph.Node, error) {
	switch a := arg.(type) {
	case *argument.Group:
		if len(a.Members()) == 0 {
			return nil, fmt.Errorf("group has no members")
		}
		next := parents
		for _, m := range a.Members() {
			var err error
			if next, err = buildArgument(b, next, m, executable); err != nil {
				return nil, fmt.Errorf("member %s: %w", m.ID(), err)
			}
		}
		if r := a.Redirect(); r != nil {
			for _, n := range next {
				b.RedirectTo(n, r)
			}
		}
		return next, nil
	case *argument.Loop:
		var next []*graph.Node
		for _, p := range parents {
			nodes := b.CreateArgumentNodeAnchored(a, executable, p.ID())
			p.AddChild(nodes...)
			next = append(next, nodes...)
		}
		return next, nil
	default:
		nodes := b.CreateArgumentNode(arg, executable)
		attach(parents, nodes...)
		return nodes, nil
	}
}

func attach(parents []*graph.Node, children ...*graph.Node) {
	for _, p := range parents {
		p.AddChild(children...)
	}
}
