package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedRedirect is matched by every finalize failure.
	ErrUnresolvedRedirect = errors.New("graph: unresolved redirect")
	// ErrAmbiguousRedirect means a path segment named more than one sibling.
	ErrAmbiguousRedirect = errors.New("graph: ambiguous redirect")
)

// PendingRedirect is a redirect recorded during construction and applied at
// finalize time. Exactly one of Target (when Fixed) or Path is meaningful.
type PendingRedirect struct {
	Node   int32
	Target int32
	Fixed  bool
	Path   []string
}

func (p PendingRedirect) String() string {
	if p.Fixed {
		return fmt.Sprintf("node %d -> #%d", p.Node, p.Target)
	}
	return fmt.Sprintf("node %d -> /%s", p.Node, strings.Join(p.Path, "/"))
}

// RedirectFailure is one record that could not be resolved.
type RedirectFailure struct {
	Redirect PendingRedirect
	Err      error
}

// UnresolvedError lists every redirect that failed to resolve.
type UnresolvedError struct {
	Failed []RedirectFailure
}

func (e *UnresolvedError) Error() string {
	parts := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		parts[i] = fmt.Sprintf("%s: %v", f.Redirect, f.Err)
	}
	return fmt.Sprintf("could not resolve %d redirect(s): %s", len(e.Failed), strings.Join(parts, "; "))
}

func (e *UnresolvedError) Unwrap() []error {
	errs := []error{ErrUnresolvedRedirect}
	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}
	return errs
}

// resolvePath walks names from the root through recorded children. Children
// are scanned in registration order; a segment matching two siblings is an
// error rather than an arbitrary pick.
func resolvePath(nodes map[int32]*Node, root int32, path []string) (int32, error) {
	target := nodes[root]
	for i, name := range path {
		match := int32(-1)
		for _, c := range target.children {
			child, ok := nodes[c]
			if !ok || child.name != name {
				continue
			}
			if match >= 0 {
				return -1, fmt.Errorf("%w: segment %d %q matches nodes %d and %d", ErrAmbiguousRedirect, i, name, match, c)
			}
			match = c
		}
		if match < 0 {
			return -1, fmt.Errorf("segment %d %q: no such child of node %d", i, name, target.id)
		}
		target = nodes[match]
	}
	return target.id, nil
}

// resolveRedirects resolves every record against the node set without
// mutating it. Records are attempted once, in order.
func resolveRedirects(nodes map[int32]*Node, root int32, pending []PendingRedirect) (map[int32]int32, []RedirectFailure) {
	resolved := make(map[int32]int32, len(pending))
	var failed []RedirectFailure
	for _, p := range pending {
		if p.Fixed {
			if _, ok := nodes[p.Target]; !ok {
				failed = append(failed, RedirectFailure{Redirect: p, Err: fmt.Errorf("target node %d does not exist", p.Target)})
				continue
			}
			resolved[p.Node] = p.Target
			continue
		}
		id, err := resolvePath(nodes, root, p.Path)
		if err != nil {
			failed = append(failed, RedirectFailure{Redirect: p, Err: err})
			continue
		}
		resolved[p.Node] = id
	}
	return resolved, failed
}
