package protocol

import (
	"errors"
	"fmt"
)

// Report is the outcome of Verify. Errors make the message unfit for
// transmission; Unreachable is informational.
type Report struct {
	Errors      []error
	Unreachable []int32
}

// Err folds the collected errors into one, or nil.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

// Verify checks that m is a closed grammar: a root-typed entry point, every
// child and redirect index in range, named non-root nodes. It then walks the
// graph depth-first from the root over children and redirects and lists the
// nodes it never reached.
func Verify(m *DeclareCommands) *Report {
	rep := &Report{}
	n := int32(len(m.Nodes))
	if m.RootIndex < 0 || m.RootIndex >= n {
		rep.Errors = append(rep.Errors, fmt.Errorf("root index %d out of range [0,%d)", m.RootIndex, n))
		return rep
	}
	if t := m.Nodes[m.RootIndex].Type(); t != NodeRoot {
		rep.Errors = append(rep.Errors, fmt.Errorf("root index %d points at %s node", m.RootIndex, t))
	}

	for i := range m.Nodes {
		node := &m.Nodes[i]
		for _, c := range node.Children {
			if c < 0 || c >= n {
				rep.Errors = append(rep.Errors, fmt.Errorf("node %d: child %d out of range", i, c))
			}
		}
		if node.HasRedirect() && (node.Redirect < 0 || node.Redirect >= n) {
			rep.Errors = append(rep.Errors, fmt.Errorf("node %d: redirect %d out of range", i, node.Redirect))
		}
		switch node.Type() {
		case NodeRoot:
			if int32(i) != m.RootIndex {
				rep.Errors = append(rep.Errors, fmt.Errorf("node %d: second root node", i))
			}
		case NodeLiteral, NodeArgument:
			if node.Name == "" {
				rep.Errors = append(rep.Errors, fmt.Errorf("node %d: %s node without name", i, node.Type()))
			}
			if node.Type() == NodeArgument && node.Parser == "" {
				rep.Errors = append(rep.Errors, fmt.Errorf("node %d: argument %q without parser", i, node.Name))
			}
		default:
			rep.Errors = append(rep.Errors, fmt.Errorf("node %d: %w: %d", i, ErrUnknownNodeType, node.Type()))
		}
	}
	if len(rep.Errors) > 0 {
		return rep
	}

	visited := make([]bool, n)
	dfs(m, m.RootIndex, visited, nil)
	for i, ok := range visited {
		if !ok {
			rep.Unreachable = append(rep.Unreachable, int32(i))
		}
	}
	return rep
}

// dfs marks every node reachable from id without passing through a blocked
// node (blocked may be nil). Loop constructs make the graph cyclic, so visited
// doubles as the cycle guard.
func dfs(m *DeclareCommands, id int32, visited, blocked []bool) {
	if visited[id] || (blocked != nil && blocked[id]) {
		return
	}
	visited[id] = true
	node := &m.Nodes[id]
	for _, c := range node.Children {
		dfs(m, c, visited, blocked)
	}
	if node.HasRedirect() {
		dfs(m, node.Redirect, visited, blocked)
	}
}
