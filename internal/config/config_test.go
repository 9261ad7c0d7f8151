package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
version: v1
commands:
  - name: tp
    aliases: [teleport]
    children:
      - argument: {id: target, type: entity, single: true}
        executable: true
  - name: execute
    children:
      - literal: run
        redirect: /
`

const sampleHCL = `
version = "v1"

protocol {
  packet_id             = 18
  compression_threshold = -1
}

command "tp" {
  aliases = ["teleport"]

  node {
    executable = true
    argument "target" {
      type   = "entity"
      single = true
    }
  }
}

command "setblock" {
  node {
    executable = true
    argument "pos" {
      type = "group"
      member "x" {
        type = "integer"
      }
      member "y" {
        type = "integer"
        min  = -64
        max  = 320
      }
    }
  }
}
`

func TestParse_YAMLDefaults(t *testing.T) {
	cfg, err := Parse("commands.yaml", []byte(sampleYAML))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	require.NotNil(t, cfg.Protocol)
	assert.Equal(t, DefaultPacketID, cfg.Protocol.PacketID)
	assert.Equal(t, DefaultCompressionThreshold, cfg.Protocol.Threshold())

	require.Len(t, cfg.Commands, 2)
	assert.Equal(t, []string{"teleport"}, cfg.Commands[0].Aliases)
	arg := cfg.Commands[0].Children[0].Argument
	require.NotNil(t, arg)
	assert.Equal(t, "entity", arg.Type)
	assert.True(t, arg.Single)
	assert.Equal(t, "/", cfg.Commands[1].Children[0].Redirect)
}

func TestParse_HCL(t *testing.T) {
	cfg, err := Parse("commands.hcl", []byte(sampleHCL))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))

	assert.Equal(t, int32(18), cfg.Protocol.PacketID)
	assert.Equal(t, -1, cfg.Protocol.Threshold())
	require.Len(t, cfg.Commands, 2)
	assert.Equal(t, "tp", cfg.Commands[0].Name)

	pos := cfg.Commands[1].Children[0].Argument
	require.NotNil(t, pos)
	require.Len(t, pos.Members, 2)
	assert.Equal(t, "y", pos.Members[1].ID)
	require.NotNil(t, pos.Members[1].Min)
	assert.Equal(t, -64.0, *pos.Members[1].Min)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("commands.yaml", []byte("commands: [oops"))
	assert.Error(t, err)

	_, err = Parse("commands.hcl", []byte(`command "tp" { bogus = 1 }`))
	assert.Error(t, err)
}

func TestThreshold_NilSafe(t *testing.T) {
	var p *ProtocolConf
	assert.Equal(t, DefaultCompressionThreshold, p.Threshold())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing version", "commands: []", "version is required"},
		{"name with space", `
version: v1
commands:
  - name: "a b"`, "must not contain spaces"},
		{"duplicate alias", `
version: v1
commands:
  - name: tp
  - name: teleport
    aliases: [tp]`, `duplicate name "tp"`},
		{"both literal and argument", `
version: v1
commands:
  - name: x
    children:
      - literal: a
        argument: {id: b, type: word}`, "only one of literal/argument"},
		{"neither literal nor argument", `
version: v1
commands:
  - name: x
    children:
      - executable: true`, "one of literal/argument must be set"},
		{"duplicate siblings", `
version: v1
commands:
  - name: x
    children:
      - literal: a
      - argument: {id: a, type: word}`, "duplicate sibling name"},
		{"node redirect on argument", `
version: v1
commands:
  - name: x
    children:
      - argument: {id: a, type: word}
        redirect: x`, "set redirect on the argument"},
		{"missing type", `
version: v1
commands:
  - name: x
    children:
      - argument: {id: a}`, "type is required"},
		{"min above max", `
version: v1
commands:
  - name: x
    children:
      - argument: {id: n, type: integer, min: 5, max: 1}`, "greater than max"},
		{"empty enum", `
version: v1
commands:
  - name: x
    children:
      - argument: {id: e, type: enum}`, "entries must not be empty"},
		{"empty loop", `
version: v1
commands:
  - name: x
    children:
      - argument: {id: l, type: loop}`, "loop must declare at least one argument"},
		{"bad requirement", `
version: v1
commands:
  - name: x
    requires: op_level >`, "command x: requires:"},
		{"bad nested requirement", `
version: v1
commands:
  - name: x
    children:
      - literal: y
        requires: "world matches \"[\""`, "command x literal y: requires:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse("commands.yaml", []byte(tt.yaml))
			require.NoError(t, err)
			assert.ErrorContains(t, Validate(cfg), tt.wantErr)
		})
	}
}

func writeSample(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoader_Reload(t *testing.T) {
	path := writeSample(t, sampleYAML)
	l, err := NewLoader(path)
	require.NoError(t, err)
	assert.Equal(t, path, l.Path())
	require.Len(t, l.Config().Commands, 2)

	called := false
	l.OnChange(func(*CommandSet) { called = true })

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"  - name: spawn\n"), 0o644))
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Len(t, cfg.Commands, 3)
	assert.Same(t, cfg, l.Config())
	assert.False(t, called, "Reload does not run OnChange callbacks")

	require.NoError(t, os.WriteFile(path, []byte("commands: [oops"), 0o644))
	_, err = l.Reload()
	assert.Error(t, err)
	assert.Same(t, cfg, l.Config())
}

func TestLoader_Watch(t *testing.T) {
	path := writeSample(t, sampleYAML)
	l, err := NewLoader(path)
	require.NoError(t, err)

	changed := make(chan *CommandSet, 8)
	l.OnChange(func(c *CommandSet) { changed <- c })
	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"  - name: spawn\n"), 0o644))

	var got *CommandSet
	require.Eventually(t, func() bool {
		select {
		case c := <-changed:
			got = c
		default:
		}
		return got != nil && len(got.Commands) == 3
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, l.Config().Commands, 3)
}

func TestLoader_WatchReplacedFile(t *testing.T) {
	path := writeSample(t, sampleYAML)
	l, err := NewLoader(path)
	require.NoError(t, err)

	changed := make(chan *CommandSet, 8)
	l.OnChange(func(c *CommandSet) { changed <- c })
	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	t.Run("other files in the directory are ignored", func(t *testing.T) {
		other := filepath.Join(filepath.Dir(path), "notes.txt")
		require.NoError(t, os.WriteFile(other, []byte("hello"), 0o644))
		assert.Never(t, func() bool { return len(changed) > 0 }, 300*time.Millisecond, 10*time.Millisecond)
	})

	t.Run("save by rename is picked up", func(t *testing.T) {
		tmp := filepath.Join(filepath.Dir(path), ".commands.yaml.swp")
		require.NoError(t, os.WriteFile(tmp, []byte(sampleYAML+"  - name: spawn\n"), 0o644))
		require.NoError(t, os.Rename(tmp, path))

		require.Eventually(t, func() bool {
			return len(l.Config().Commands) == 3
		}, 5*time.Second, 10*time.Millisecond)
		got := <-changed
		assert.Len(t, got.Commands, 3)
	})

	stop()
	stop()
}

func TestNewLoader_MissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("CMDGRAPH_ADDR", ":9999")
	t.Setenv("CMDGRAPH_LOG_LEVEL", "debug")
	s, err := LoadSettings()
	require.NoError(t, err)
	assert.Equal(t, ":9999", s.Addr)
	assert.Equal(t, "configs/commands.yaml", s.ConfigPath)
	assert.Equal(t, 6, s.ReloadPerMinute)
	assert.Equal(t, "DEBUG", s.Level().String())

	s.LogLevel = "loud"
	assert.Equal(t, "INFO", s.Level().String())
}
