// Package protocol implements the wire format of the declare-commands message:
// the flat, id-ordered node list a client uses to parse and complete commands
// locally.
package protocol

import (
	"errors"
	"fmt"
	"io"
)

// NodeType is the node-type tag stored in the low two flag bits.
type NodeType byte

const (
	NodeRoot     NodeType = 0
	NodeLiteral  NodeType = 1
	NodeArgument NodeType = 2
)

func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "root"
	case NodeLiteral:
		return "literal"
	case NodeArgument:
		return "argument"
	}
	return fmt.Sprintf("NodeType(%d)", byte(t))
}

// Flag bits.
const (
	FlagTypeMask    byte = 0x03
	FlagExecutable  byte = 0x04
	FlagRedirect    byte = 0x08
	FlagSuggestions byte = 0x10
)

// Flags packs the node type and the three presence bits.
func Flags(t NodeType, executable, redirect, suggestions bool) byte {
	f := byte(t) & FlagTypeMask
	if executable {
		f |= FlagExecutable
	}
	if redirect {
		f |= FlagRedirect
	}
	if suggestions {
		f |= FlagSuggestions
	}
	return f
}

// Node is one exported vertex. Field presence on the wire is driven by Flags.
type Node struct {
	Flags           byte    `json:"flags"`
	Children        []int32 `json:"children"`
	Redirect        int32   `json:"redirect,omitempty"`
	Name            string  `json:"name,omitempty"`
	Parser          string  `json:"parser,omitempty"`
	Properties      []byte  `json:"properties,omitempty"`
	SuggestionsType string  `json:"suggestions_type,omitempty"`
}

func (n *Node) Type() NodeType      { return NodeType(n.Flags & FlagTypeMask) }
func (n *Node) Executable() bool    { return n.Flags&FlagExecutable != 0 }
func (n *Node) HasRedirect() bool   { return n.Flags&FlagRedirect != 0 }
func (n *Node) HasSuggestions() bool { return n.Flags&FlagSuggestions != 0 }

// DeclareCommands is the full grammar message: nodes in ascending id order and
// the index of the root node.
type DeclareCommands struct {
	Nodes     []Node `json:"nodes"`
	RootIndex int32  `json:"root_index"`
}

// PropertiesReader consumes the properties blob of an argument node with the
// given parser and returns its raw bytes.
type PropertiesReader func(parser string, r *Reader) ([]byte, error)

var ErrUnknownNodeType = errors.New("protocol: unknown node type")

// Encode writes the message payload (without packet id or framing).
func (m *DeclareCommands) Encode() ([]byte, error) {
	buf := NewBuffer()
	buf.WriteVarInt(int32(len(m.Nodes)))
	for i := range m.Nodes {
		if err := m.Nodes[i].encode(buf); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	buf.WriteVarInt(m.RootIndex)
	return buf.Bytes(), nil
}

// WriteTo implements io.WriterTo.
func (m *DeclareCommands) WriteTo(w io.Writer) (int64, error) {
	p, err := m.Encode()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(p)
	return int64(n), err
}

func (n *Node) encode(buf *Buffer) error {
	buf.WriteByte(n.Flags)
	buf.WriteVarInt(int32(len(n.Children)))
	for _, c := range n.Children {
		buf.WriteVarInt(c)
	}
	if n.HasRedirect() {
		buf.WriteVarInt(n.Redirect)
	}
	switch n.Type() {
	case NodeRoot:
		return nil
	case NodeLiteral, NodeArgument:
		if err := buf.WriteString(n.Name); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownNodeType, n.Type())
	}
	if n.Type() == NodeArgument {
		if err := buf.WriteString(n.Parser); err != nil {
			return fmt.Errorf("parser: %w", err)
		}
		buf.WriteRaw(n.Properties)
		if n.HasSuggestions() {
			if err := buf.WriteString(n.SuggestionsType); err != nil {
				return fmt.Errorf("suggestions type: %w", err)
			}
		}
	}
	return nil
}

// Decode parses a payload produced by Encode. Argument properties are opaque,
// so props must know how many bytes each parser writes.
func Decode(r io.Reader, props PropertiesReader) (*DeclareCommands, error) {
	rd := NewReader(r)
	count, err := rd.ReadVarInt()
	if err != nil {
		return nil, fmt.Errorf("node count: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("negative node count %d", count)
	}
	m := &DeclareCommands{Nodes: make([]Node, count)}
	for i := range m.Nodes {
		if err := m.Nodes[i].decode(rd, props); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
	}
	if m.RootIndex, err = rd.ReadVarInt(); err != nil {
		return nil, fmt.Errorf("root index: %w", err)
	}
	return m, nil
}

func (n *Node) decode(rd *Reader, props PropertiesReader) error {
	var err error
	if n.Flags, err = rd.ReadByte(); err != nil {
		return err
	}
	cc, err := rd.ReadVarInt()
	if err != nil {
		return fmt.Errorf("children: %w", err)
	}
	if cc < 0 {
		return fmt.Errorf("negative child count %d", cc)
	}
	n.Children = make([]int32, cc)
	for i := range n.Children {
		if n.Children[i], err = rd.ReadVarInt(); err != nil {
			return fmt.Errorf("child %d: %w", i, err)
		}
	}
	if n.HasRedirect() {
		if n.Redirect, err = rd.ReadVarInt(); err != nil {
			return fmt.Errorf("redirect: %w", err)
		}
	}
	switch n.Type() {
	case NodeRoot:
		return nil
	case NodeLiteral, NodeArgument:
		if n.Name, err = rd.ReadString(); err != nil {
			return fmt.Errorf("name: %w", err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownNodeType, n.Type())
	}
	if n.Type() != NodeArgument {
		return nil
	}
	if n.Parser, err = rd.ReadString(); err != nil {
		return fmt.Errorf("parser: %w", err)
	}
	if props == nil {
		return fmt.Errorf("no properties reader for parser %q", n.Parser)
	}
	if n.Properties, err = props(n.Parser, rd); err != nil {
		return fmt.Errorf("properties of %q: %w", n.Parser, err)
	}
	if n.HasSuggestions() {
		if n.SuggestionsType, err = rd.ReadString(); err != nil {
			return fmt.Errorf("suggestions type: %w", err)
		}
	}
	return nil
}
