package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// root ─ tp ─ target
//      └ execute ─ run ⇢ root
//                └ as ─ who ⇢ execute
// teleport ⇢ tp (alias, not a child of root)
func pruneFixture() *DeclareCommands {
	lit := func(name string, children ...int32) Node {
		return Node{Flags: Flags(NodeLiteral, false, false, false), Children: append([]int32{}, children...), Name: name}
	}
	arg := func(name string, executable bool) Node {
		return Node{Flags: Flags(NodeArgument, executable, false, false), Children: []int32{}, Name: name, Parser: "brigadier:bool"}
	}
	redirect := func(n Node, to int32) Node {
		n.Flags |= FlagRedirect
		n.Redirect = to
		return n
	}
	root := Node{Flags: Flags(NodeRoot, false, false, false), Children: []int32{1, 4}}
	return &DeclareCommands{
		Nodes: []Node{
			root,
			lit("tp", 3),
			redirect(lit("teleport"), 1),
			arg("target", true),
			lit("execute", 5, 6),
			redirect(lit("run"), 0),
			lit("as", 7),
			redirect(arg("who", false), 4),
		},
	}
}

func names(m *DeclareCommands) []string {
	out := make([]string, len(m.Nodes))
	for i := range m.Nodes {
		out[i] = m.Nodes[i].Name
	}
	return out
}

func hideNames(m *DeclareCommands, hidden ...string) func(int32) bool {
	set := make(map[string]bool)
	for _, h := range hidden {
		set[h] = true
	}
	return func(i int32) bool { return set[m.Nodes[i].Name] }
}

func TestPrune(t *testing.T) {
	t.Run("nothing hidden", func(t *testing.T) {
		m := pruneFixture()
		got, err := Prune(m, func(int32) bool { return false })
		require.NoError(t, err)
		assert.Equal(t, m, got)
	})

	t.Run("hidden command takes its subtree and aliases", func(t *testing.T) {
		m := pruneFixture()
		got, err := Prune(m, hideNames(m, "tp"))
		require.NoError(t, err)
		require.NoError(t, Verify(got).Err())
		assert.Equal(t, []string{"", "execute", "run", "as", "who"}, names(got))
		assert.Equal(t, []int32{1}, got.Nodes[0].Children)
		assert.Equal(t, []int32{2, 3}, got.Nodes[1].Children)
		assert.Equal(t, int32(0), got.Nodes[2].Redirect)
		assert.Equal(t, int32(1), got.Nodes[4].Redirect)
	})

	t.Run("hidden branch", func(t *testing.T) {
		m := pruneFixture()
		got, err := Prune(m, hideNames(m, "as"))
		require.NoError(t, err)
		assert.Equal(t, []string{"", "tp", "teleport", "target", "execute", "run"}, names(got))
		assert.Equal(t, []int32{5}, got.Nodes[4].Children)
	})

	t.Run("redirect into hidden node", func(t *testing.T) {
		m := pruneFixture()
		got, err := Prune(m, hideNames(m, "execute"))
		require.NoError(t, err)
		assert.Equal(t, []string{"", "tp", "teleport", "target"}, names(got))
	})

	t.Run("root cannot be hidden", func(t *testing.T) {
		m := pruneFixture()
		got, err := Prune(m, func(i int32) bool { return i == 0 })
		require.NoError(t, err)
		assert.Len(t, got.Nodes, len(m.Nodes))
	})

	t.Run("input is not modified", func(t *testing.T) {
		m := pruneFixture()
		_, err := Prune(m, hideNames(m, "tp", "as"))
		require.NoError(t, err)
		assert.Equal(t, pruneFixture(), m)
	})

	t.Run("invalid message", func(t *testing.T) {
		_, err := Prune(&DeclareCommands{RootIndex: 3}, func(int32) bool { return false })
		assert.Error(t, err)
	})
}
