package argument

import (
	"github.com/gyaneshwarpardhi/cmdgraph/internal/protocol"
)

// Parser identifiers.
const (
	ParserBool             = "brigadier:bool"
	ParserInteger          = "brigadier:integer"
	ParserLong             = "brigadier:long"
	ParserFloat            = "brigadier:float"
	ParserDouble           = "brigadier:double"
	ParserString           = "brigadier:string"
	ParserResourceLocation = "minecraft:resource_location"
	ParserEntity           = "minecraft:entity"
)

// Number range flags.
const (
	flagMin byte = 0x01
	flagMax byte = 0x02
)

// Bool accepts true or false.
type Bool struct{ Base }

func NewBool(id string) *Bool { return &Bool{Base{id: id}} }

func (*Bool) Parser() string { return ParserBool }

// Number is a bounded numeric argument. The bounds are encoded in the width of
// the concrete parser.
type Number[T int32 | int64 | float32 | float64] struct {
	Base
	parser string
	min    *T
	max    *T
}

func NewInteger(id string) *Number[int32]  { return &Number[int32]{Base: Base{id: id}, parser: ParserInteger} }
func NewLong(id string) *Number[int64]     { return &Number[int64]{Base: Base{id: id}, parser: ParserLong} }
func NewFloat(id string) *Number[float32]  { return &Number[float32]{Base: Base{id: id}, parser: ParserFloat} }
func NewDouble(id string) *Number[float64] { return &Number[float64]{Base: Base{id: id}, parser: ParserDouble} }

// Min sets the inclusive lower bound.
func (a *Number[T]) Min(v T) *Number[T] { a.min = &v; return a }

// Max sets the inclusive upper bound.
func (a *Number[T]) Max(v T) *Number[T] { a.max = &v; return a }

func (a *Number[T]) Parser() string { return a.parser }

func (a *Number[T]) Properties() []byte {
	buf := protocol.NewBuffer()
	var flags byte
	if a.min != nil {
		flags |= flagMin
	}
	if a.max != nil {
		flags |= flagMax
	}
	buf.WriteByte(flags)
	if a.min != nil {
		writeNumber(buf, *a.min)
	}
	if a.max != nil {
		writeNumber(buf, *a.max)
	}
	return buf.Bytes()
}

func writeNumber[T int32 | int64 | float32 | float64](buf *protocol.Buffer, v T) {
	switch n := any(v).(type) {
	case int32:
		buf.WriteInt32(n)
	case int64:
		buf.WriteInt64(n)
	case float32:
		buf.WriteFloat32(n)
	case float64:
		buf.WriteFloat64(n)
	}
}

// StringMode selects how much input a String argument consumes.
type StringMode int32

const (
	SingleWord StringMode = iota
	QuotablePhrase
	GreedyPhrase
)

// String is a textual argument.
type String struct {
	Base
	mode StringMode
}

func NewWord(id string) *String   { return &String{Base: Base{id: id}, mode: SingleWord} }
func NewString(id string) *String { return &String{Base: Base{id: id}, mode: QuotablePhrase} }
func NewGreedy(id string) *String { return &String{Base: Base{id: id}, mode: GreedyPhrase} }

func (*String) Parser() string { return ParserString }

func (a *String) Properties() []byte {
	buf := protocol.NewBuffer()
	buf.WriteVarInt(int32(a.mode))
	return buf.Bytes()
}

// ResourceLocation is a namespaced id such as minecraft:stone.
type ResourceLocation struct{ Base }

func NewResourceLocation(id string) *ResourceLocation {
	return &ResourceLocation{Base{id: id}}
}

func (*ResourceLocation) Parser() string { return ParserResourceLocation }

// Entity selects entities by name, uuid or selector.
type Entity struct {
	Base
	single      bool
	playersOnly bool
}

func NewEntity(id string) *Entity { return &Entity{Base: Base{id: id}} }

// Single restricts the selector to one entity.
func (a *Entity) Single() *Entity { a.single = true; return a }

// PlayersOnly restricts the selector to players.
func (a *Entity) PlayersOnly() *Entity { a.playersOnly = true; return a }

func (*Entity) Parser() string { return ParserEntity }

func (a *Entity) Properties() []byte {
	var flags byte
	if a.single {
		flags |= 0x01
	}
	if a.playersOnly {
		flags |= 0x02
	}
	return []byte{flags}
}

// ReadProperties consumes the properties blob written by the parser and
// returns it verbatim. It is the protocol.PropertiesReader for this package.
func ReadProperties(parser string, r *protocol.Reader) ([]byte, error) {
	switch parser {
	case ParserBool, ParserResourceLocation:
		return nil, nil
	case ParserEntity:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return []byte{b}, nil
	case ParserString:
		mode, err := r.ReadVarInt()
		if err != nil {
			return nil, err
		}
		buf := protocol.NewBuffer()
		buf.WriteVarInt(mode)
		return buf.Bytes(), nil
	case ParserInteger, ParserFloat:
		return readRange(r, 4)
	case ParserLong, ParserDouble:
		return readRange(r, 8)
	}
	return nil, &UnknownParserError{Parser: parser}
}

func readRange(r *protocol.Reader, width int) ([]byte, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	n := 0
	if flags&flagMin != 0 {
		n += width
	}
	if flags&flagMax != 0 {
		n += width
	}
	rest, err := r.ReadRaw(n)
	if err != nil {
		return nil, err
	}
	return append([]byte{flags}, rest...), nil
}

// UnknownParserError reports a parser id with no known properties layout.
type UnknownParserError struct {
	Parser string
}

func (e *UnknownParserError) Error() string {
	return "argument: unknown parser " + e.Parser
}
