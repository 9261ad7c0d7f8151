package config

// CommandSet is the top-level structure of a command file. The same structs
// decode from YAML and from HCL.
type CommandSet struct {
	Version  string        `yaml:"version" hcl:"version,optional"`
	Protocol *ProtocolConf `yaml:"protocol" hcl:"protocol,block"`
	Commands []CommandDef  `yaml:"commands" hcl:"command,block"`
}

// ProtocolConf controls how the compiled graph is framed for clients.
type ProtocolConf struct {
	PacketID int32 `yaml:"packet_id" hcl:"packet_id,optional"`
	// CompressionThreshold < 0 disables the compressed packet format.
	CompressionThreshold *int `yaml:"compression_threshold" hcl:"compression_threshold,optional"`
}

// Threshold returns the effective compression threshold.
func (p *ProtocolConf) Threshold() int {
	if p == nil || p.CompressionThreshold == nil {
		return DefaultCompressionThreshold
	}
	return *p.CompressionThreshold
}

const (
	DefaultPacketID             int32 = 0x11
	DefaultCompressionThreshold       = 256
)

// CommandDef is a top-level command: a literal attached to the root.
type CommandDef struct {
	Name       string   `yaml:"name" hcl:"name,label"`
	Aliases    []string `yaml:"aliases" hcl:"aliases,optional"`
	Executable bool     `yaml:"executable" hcl:"executable,optional"`
	Redirect   string   `yaml:"redirect" hcl:"redirect,optional"`
	// Requires hides the command (and its aliases) from viewers that do not
	// satisfy it. See package requirement for the syntax.
	Requires string    `yaml:"requires" hcl:"requires,optional"`
	Children []NodeDef `yaml:"children" hcl:"node,block"`
}

// NodeDef is a discriminated union: exactly one of Literal or Argument is set.
type NodeDef struct {
	Literal    string       `yaml:"literal,omitempty" hcl:"literal,optional"`
	Argument   *ArgumentDef `yaml:"argument,omitempty" hcl:"argument,block"`
	Executable bool         `yaml:"executable" hcl:"executable,optional"`
	// Redirect applies to literal nodes; arguments declare their own.
	Redirect string    `yaml:"redirect" hcl:"redirect,optional"`
	Requires string    `yaml:"requires" hcl:"requires,optional"`
	Children []NodeDef `yaml:"children" hcl:"node,block"`
}

// ArgumentDef declares one argument. Which fields apply depends on Type.
type ArgumentDef struct {
	ID          string        `yaml:"id" hcl:"id,label"`
	Type        string        `yaml:"type" hcl:"type"`
	Min         *float64      `yaml:"min" hcl:"min,optional"`
	Max         *float64      `yaml:"max" hcl:"max,optional"`
	Single      bool          `yaml:"single" hcl:"single,optional"`
	PlayersOnly bool          `yaml:"players_only" hcl:"players_only,optional"`
	Entries     []string      `yaml:"entries" hcl:"entries,optional"`
	Members     []ArgumentDef `yaml:"members" hcl:"member,block"`
	Body        []ArgumentDef `yaml:"body" hcl:"body,block"`
	Suggestions string        `yaml:"suggestions" hcl:"suggestions,optional"`
	Redirect    string        `yaml:"redirect" hcl:"redirect,optional"`
}
