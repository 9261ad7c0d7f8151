package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/argument"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/command"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/graph"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/protocol"
)

const commandsYAML = `
version: v1
commands:
  - name: tp
    aliases: [teleport]
    children:
      - argument: {id: target, type: entity, single: true}
        executable: true
  - name: gamemode
    children:
      - argument: {id: mode, type: enum, entries: [survival, creative, adventure]}
        executable: true
        children:
          - argument: {id: player, type: entity, players_only: true}
            executable: true
  - name: say
    children:
      - argument:
          id: words
          type: loop
          body:
            - {id: word, type: word}
        executable: true
  - name: execute
    children:
      - literal: as
        children:
          - argument: {id: targets, type: entity, redirect: execute}
      - literal: run
        redirect: /
  - name: setblock
    children:
      - argument:
          id: pos
          type: group
          members:
            - {id: x, type: integer}
            - {id: y, type: integer, min: -64, max: 320}
            - {id: z, type: integer}
        executable: true
`

func compile(t *testing.T, src string) (*graph.Builder, *protocol.DeclareCommands) {
	t.Helper()
	set, err := config.Parse("commands.yaml", []byte(src))
	require.NoError(t, err)
	require.NoError(t, config.Validate(set))

	b := graph.NewBuilder()
	_, err = command.Register(b, set, argument.DefaultRegistry())
	require.NoError(t, err)
	msg, err := b.CreateProtocolMessage()
	require.NoError(t, err)
	return b, msg
}

func childByName(t *testing.T, msg *protocol.DeclareCommands, parent int32, name string) int32 {
	t.Helper()
	for _, c := range msg.Nodes[parent].Children {
		if msg.Nodes[c].Name == name {
			return c
		}
	}
	t.Fatalf("node %d has no child %q", parent, name)
	return -1
}

func TestRegister(t *testing.T) {
	_, msg := compile(t, commandsYAML)
	require.NoError(t, protocol.Verify(msg).Err())
	root := msg.RootIndex

	t.Run("root children are the commands only", func(t *testing.T) {
		var names []string
		for _, c := range msg.Nodes[root].Children {
			names = append(names, msg.Nodes[c].Name)
		}
		assert.Equal(t, []string{"tp", "gamemode", "say", "execute", "setblock"}, names)
	})

	t.Run("alias redirects to command", func(t *testing.T) {
		tp := childByName(t, msg, root, "tp")
		alias := msg.Nodes[tp+1]
		assert.Equal(t, "teleport", alias.Name)
		assert.True(t, alias.HasRedirect())
		assert.Equal(t, tp, alias.Redirect)
	})

	t.Run("enum entries continue with shared children", func(t *testing.T) {
		gm := childByName(t, msg, root, "gamemode")
		require.Len(t, msg.Nodes[gm].Children, 3)
		var player []int32
		for _, c := range msg.Nodes[gm].Children {
			assert.Equal(t, protocol.NodeLiteral, msg.Nodes[c].Type())
			require.Len(t, msg.Nodes[c].Children, 1)
			player = append(player, msg.Nodes[c].Children[0])
		}
		assert.Equal(t, player[0], player[1])
		assert.Equal(t, player[1], player[2])
		assert.Equal(t, []byte{0x02}, msg.Nodes[player[0]].Properties)
	})

	t.Run("loop redirects to its parent", func(t *testing.T) {
		say := childByName(t, msg, root, "say")
		word := childByName(t, msg, say, "word")
		assert.True(t, msg.Nodes[word].HasRedirect())
		assert.Equal(t, say, msg.Nodes[word].Redirect)
		assert.True(t, msg.Nodes[word].Executable())
	})

	t.Run("symbolic redirects", func(t *testing.T) {
		execute := childByName(t, msg, root, "execute")
		as := childByName(t, msg, execute, "as")
		targets := childByName(t, msg, as, "targets")
		assert.Equal(t, execute, msg.Nodes[targets].Redirect)

		run := childByName(t, msg, execute, "run")
		assert.True(t, msg.Nodes[run].HasRedirect())
		assert.Equal(t, root, msg.Nodes[run].Redirect)
	})

	t.Run("group forms a chain", func(t *testing.T) {
		sb := childByName(t, msg, root, "setblock")
		x := childByName(t, msg, sb, "x")
		y := childByName(t, msg, x, "y")
		z := childByName(t, msg, y, "z")
		assert.Empty(t, msg.Nodes[z].Children)
		// min -64, max 320
		assert.Equal(t, []byte{0x03, 0xff, 0xff, 0xff, 0xc0, 0x00, 0x00, 0x01, 0x40}, msg.Nodes[y].Properties)
	})
}

func TestRegister_UnresolvedRedirect(t *testing.T) {
	set, err := config.Parse("commands.yaml", []byte(`
version: v1
commands:
  - name: back
    redirect: home
`))
	require.NoError(t, err)

	b := graph.NewBuilder()
	_, err = command.Register(b, set, argument.DefaultRegistry())
	require.NoError(t, err)
	_, err = b.CreateProtocolMessage()
	assert.ErrorIs(t, err, graph.ErrUnresolvedRedirect)
}

func TestRegister_UnknownArgumentType(t *testing.T) {
	set := &config.CommandSet{
		Version: "v1",
		Commands: []config.CommandDef{{
			Name: "x",
			Children: []config.NodeDef{{
				Argument: &config.ArgumentDef{ID: "a", Type: "vector"},
			}},
		}},
	}
	_, err := command.Register(graph.NewBuilder(), set, argument.DefaultRegistry())
	assert.ErrorContains(t, err, `no argument type "vector"`)
}

func TestRegister_Requirements(t *testing.T) {
	set, err := config.Parse("commands.yaml", []byte(`
version: v1
commands:
  - name: op
    aliases: [deop]
    requires: op_level >= 3
    children:
      - argument: {id: target, type: entity}
        executable: true
  - name: gamemode
    children:
      - argument: {id: mode, type: enum, entries: [survival, creative]}
        requires: permissions contains "gamemode.change"
        executable: true
      - literal: query
        executable: true
`))
	require.NoError(t, err)

	b := graph.NewBuilder()
	reqs, err := command.Register(b, set, argument.DefaultRegistry())
	require.NoError(t, err)

	// op=1, deop=2, target=3, gamemode=4, survival=5, creative=6, query=7
	gated := make([]int32, 0, len(reqs))
	for id := range reqs {
		gated = append(gated, id)
	}
	assert.ElementsMatch(t, []int32{1, 2, 5, 6}, gated)
	assert.Equal(t, "op_level >= 3", reqs[2].String())
	assert.Equal(t, `permissions contains "gamemode.change"`, reqs[5].String())
	assert.Equal(t, "query", b.Node(7).Name())

	t.Run("bad expression", func(t *testing.T) {
		set.Commands[0].Requires = "op_level >"
		_, err := command.Register(graph.NewBuilder(), set, argument.DefaultRegistry())
		assert.ErrorContains(t, err, "requires")
	})
}

func TestRegister_GroupMembersChainPerMember(t *testing.T) {
	_, msg := compile(t, `
version: v1
commands:
  - name: weather
    children:
      - argument:
          id: spec
          type: group
          redirect: weather
          members:
            - {id: kind, type: enum, entries: [clear, rain]}
            - {id: secs, type: integer}
        executable: true
  - name: chat
    children:
      - argument:
          id: line
          type: group
          members:
            - {id: target, type: word}
            - id: words
              type: loop
              body:
                - {id: word, type: word}
                - {id: number, type: integer}
        executable: true
`)
	require.NoError(t, protocol.Verify(msg).Err())
	root := msg.RootIndex

	t.Run("enum member entries are siblings", func(t *testing.T) {
		weather := childByName(t, msg, root, "weather")
		clearEntry := childByName(t, msg, weather, "clear")
		rain := childByName(t, msg, weather, "rain")
		assert.Len(t, msg.Nodes[weather].Children, 2)

		secs := childByName(t, msg, clearEntry, "secs")
		assert.Equal(t, []int32{secs}, msg.Nodes[clearEntry].Children)
		assert.Equal(t, []int32{secs}, msg.Nodes[rain].Children)
		// The group redirect lands on the last member only.
		assert.False(t, msg.Nodes[clearEntry].HasRedirect())
		assert.True(t, msg.Nodes[secs].HasRedirect())
		assert.Equal(t, weather, msg.Nodes[secs].Redirect)
	})

	t.Run("loop member body is alternatives anchored on the previous member", func(t *testing.T) {
		chat := childByName(t, msg, root, "chat")
		target := childByName(t, msg, chat, "target")
		word := childByName(t, msg, target, "word")
		number := childByName(t, msg, target, "number")
		assert.Len(t, msg.Nodes[target].Children, 2)
		assert.Empty(t, msg.Nodes[word].Children)
		assert.Equal(t, target, msg.Nodes[word].Redirect)
		assert.Equal(t, target, msg.Nodes[number].Redirect)
	})
}

func TestRegister_LoopAfterAlternatives(t *testing.T) {
	_, msg := compile(t, `
version: v1
commands:
  - name: tag
    children:
      - argument: {id: op, type: enum, entries: [add, remove]}
        children:
          - argument:
              id: names
              type: loop
              body:
                - {id: n, type: word}
            executable: true
`)
	require.NoError(t, protocol.Verify(msg).Err())
	tag := childByName(t, msg, msg.RootIndex, "tag")

	for _, op := range []string{"add", "remove"} {
		t.Run(op, func(t *testing.T) {
			parent := childByName(t, msg, tag, op)
			n := childByName(t, msg, parent, "n")
			assert.True(t, msg.Nodes[n].Executable())
			assert.Equal(t, parent, msg.Nodes[n].Redirect)
		})
	}
	add := childByName(t, msg, tag, "add")
	remove := childByName(t, msg, tag, "remove")
	assert.NotEqual(t, msg.Nodes[add].Children, msg.Nodes[remove].Children)
}
