package protocol

import "fmt"

// Prune returns a copy of m without the nodes hide selects. Nodes that were
// reachable from the root only through a removed node go too, as does any
// node whose redirect target is gone. Nodes that were never reachable from
// the root (aliases) are kept unless hidden themselves. Indices are
// compacted in their original order. The root cannot be hidden.
func Prune(m *DeclareCommands, hide func(index int32) bool) (*DeclareCommands, error) {
	if rep := Verify(m); rep.Err() != nil {
		return nil, fmt.Errorf("prune: %w", rep.Err())
	}
	n := len(m.Nodes)

	before := make([]bool, n)
	dfs(m, m.RootIndex, before, nil)

	removed := make([]bool, n)
	for i := range m.Nodes {
		if int32(i) != m.RootIndex && hide(int32(i)) {
			removed[i] = true
		}
	}

	keep := make([]bool, n)
	for {
		after := make([]bool, n)
		dfs(m, m.RootIndex, after, removed)
		for i := range keep {
			keep[i] = !removed[i] && (after[i] || !before[i])
		}
		changed := false
		for i := range m.Nodes {
			if keep[i] && m.Nodes[i].HasRedirect() && !keep[m.Nodes[i].Redirect] {
				removed[i] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	index := make([]int32, n)
	out := &DeclareCommands{}
	for i := range m.Nodes {
		index[i] = -1
		if keep[i] {
			index[i] = int32(len(out.Nodes))
			out.Nodes = append(out.Nodes, m.Nodes[i])
		}
	}
	for i := range out.Nodes {
		node := &out.Nodes[i]
		children := make([]int32, 0, len(node.Children))
		for _, c := range node.Children {
			if keep[c] {
				children = append(children, index[c])
			}
		}
		node.Children = children
		if node.HasRedirect() {
			node.Redirect = index[node.Redirect]
		}
	}
	out.RootIndex = index[m.RootIndex]
	return out, nil
}
