package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarInt(t *testing.T) {
	cases := []struct {
		v    int32
		wire []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{25565, []byte{0xdd, 0xc7, 0x01}},
		{2147483647, []byte{0xff, 0xff, 0xff, 0xff, 0x07}},
		{-1, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
	}
	for _, tc := range cases {
		buf := NewBuffer()
		buf.WriteVarInt(tc.v)
		assert.Equal(t, tc.wire, buf.Bytes(), "encode %d", tc.v)
		assert.Equal(t, len(tc.wire), VarIntSize(tc.v))

		got, err := NewReader(bytes.NewReader(tc.wire)).ReadVarInt()
		require.NoError(t, err)
		assert.Equal(t, tc.v, got)
	}
}

func TestReadVarInt_TooBig(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0x01})).ReadVarInt()
	assert.ErrorIs(t, err, ErrVarIntTooBig)
}

func TestWriteString_TooLong(t *testing.T) {
	err := NewBuffer().WriteString(strings.Repeat("a", MaxStringLength+1))
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestFlags(t *testing.T) {
	assert.Equal(t, byte(0x00), Flags(NodeRoot, false, false, false))
	assert.Equal(t, byte(0x05), Flags(NodeLiteral, true, false, false))
	assert.Equal(t, byte(0x09), Flags(NodeLiteral, false, true, false))
	assert.Equal(t, byte(0x1e), Flags(NodeArgument, true, true, true))

	n := Node{Flags: 0x1e}
	assert.Equal(t, NodeArgument, n.Type())
	assert.True(t, n.Executable())
	assert.True(t, n.HasRedirect())
	assert.True(t, n.HasSuggestions())
}

// fixedProps treats every parser as writing a single VarInt.
func fixedProps(parser string, r *Reader) ([]byte, error) {
	v, err := r.ReadVarInt()
	if err != nil {
		return nil, err
	}
	b := NewBuffer()
	b.WriteVarInt(v)
	return b.Bytes(), nil
}

func sampleMessage() *DeclareCommands {
	return &DeclareCommands{
		Nodes: []Node{
			{Flags: Flags(NodeRoot, false, false, false), Children: []int32{1}},
			{Flags: Flags(NodeLiteral, false, false, false), Children: []int32{3}, Name: "tp"},
			{Flags: Flags(NodeLiteral, false, true, false), Children: []int32{}, Redirect: 1, Name: "teleport"},
			{
				Flags:           Flags(NodeArgument, true, false, true),
				Children:        []int32{},
				Name:            "target",
				Parser:          "brigadier:string",
				Properties:      []byte{0x00},
				SuggestionsType: "minecraft:ask_server",
			},
		},
		RootIndex: 0,
	}
}

func TestEncodeDecode(t *testing.T) {
	msg := sampleMessage()
	payload, err := msg.Encode()
	require.NoError(t, err)

	// count, root flags, 1 child, child id
	assert.Equal(t, []byte{0x04, 0x00, 0x01, 0x01}, payload[:4])
	// trailing root index
	assert.Equal(t, byte(0x00), payload[len(payload)-1])

	got, err := Decode(bytes.NewReader(payload), fixedProps)
	require.NoError(t, err)
	assert.Equal(t, msg, got)
}

func TestDecode_NoPropertiesReader(t *testing.T) {
	payload, err := sampleMessage().Encode()
	require.NoError(t, err)
	_, err = Decode(bytes.NewReader(payload), nil)
	assert.ErrorContains(t, err, "no properties reader")
}

func TestDecode_Truncated(t *testing.T) {
	payload, err := sampleMessage().Encode()
	require.NoError(t, err)
	_, err = Decode(bytes.NewReader(payload[:len(payload)-3]), fixedProps)
	assert.Error(t, err)
}

func TestEncode_UnknownType(t *testing.T) {
	msg := &DeclareCommands{Nodes: []Node{{Flags: 0x03}}}
	_, err := msg.Encode()
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}
