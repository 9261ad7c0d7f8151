package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// MaxStringLength is the longest string (in runes) the client accepts.
const MaxStringLength = 32767

const maxVarIntBytes = 5

var (
	ErrVarIntTooBig  = errors.New("protocol: varint too big")
	ErrStringTooLong = errors.New("protocol: string too long")
)

// Buffer accumulates wire-encoded values.
type Buffer struct {
	buf bytes.Buffer
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

func (b *Buffer) Bytes() []byte { return b.buf.Bytes() }
func (b *Buffer) Len() int      { return b.buf.Len() }

func (b *Buffer) WriteByte(v byte) error {
	return b.buf.WriteByte(v)
}

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.buf.WriteByte(1)
		return
	}
	b.buf.WriteByte(0)
}

// WriteVarInt writes v as an unsigned LEB128 over its two's-complement bits.
func (b *Buffer) WriteVarInt(v int32) {
	u := uint32(v)
	for {
		if u&^0x7F == 0 {
			b.buf.WriteByte(byte(u))
			return
		}
		b.buf.WriteByte(byte(u&0x7F | 0x80))
		u >>= 7
	}
}

func (b *Buffer) WriteInt32(v int32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(v))
	b.buf.Write(tmp[:])
}

func (b *Buffer) WriteInt64(v int64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	b.buf.Write(tmp[:])
}

func (b *Buffer) WriteFloat32(v float32) { b.WriteInt32(int32(math.Float32bits(v))) }
func (b *Buffer) WriteFloat64(v float64) { b.WriteInt64(int64(math.Float64bits(v))) }

// WriteString writes a VarInt byte length followed by UTF-8 bytes.
func (b *Buffer) WriteString(s string) error {
	if utf8.RuneCountInString(s) > MaxStringLength {
		return fmt.Errorf("%w: %d runes", ErrStringTooLong, utf8.RuneCountInString(s))
	}
	b.WriteVarInt(int32(len(s)))
	b.buf.WriteString(s)
	return nil
}

// WriteRaw appends p unchanged.
func (b *Buffer) WriteRaw(p []byte) {
	b.buf.Write(p)
}

// Reader decodes wire values from an underlying stream.
type Reader struct {
	r io.ByteReader
	// full reader for bulk reads
	src io.Reader
}

// NewReader wraps r; it is buffered unless it already implements io.ByteReader.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(interface {
		io.Reader
		io.ByteReader
	}); ok {
		return &Reader{r: br, src: br}
	}
	br := bufio.NewReader(r)
	return &Reader{r: br, src: br}
}

func (r *Reader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.r.ReadByte()
	return v != 0, err
}

func (r *Reader) ReadVarInt() (int32, error) {
	var u uint32
	for i := 0; i < maxVarIntBytes; i++ {
		c, err := r.r.ReadByte()
		if err != nil {
			return 0, err
		}
		u |= uint32(c&0x7F) << (7 * i)
		if c&0x80 == 0 {
			return int32(u), nil
		}
	}
	return 0, ErrVarIntTooBig
}

func (r *Reader) ReadInt32() (int32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r.src, tmp[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(tmp[:])), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r.src, tmp[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(tmp[:])), nil
}

func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarInt()
	if err != nil {
		return "", err
	}
	if n < 0 || n > MaxStringLength*4 {
		return "", fmt.Errorf("%w: %d bytes", ErrStringTooLong, n)
	}
	p, err := r.ReadRaw(int(n))
	if err != nil {
		return "", err
	}
	return string(p), nil
}

// ReadRaw reads exactly n bytes.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	p := make([]byte, n)
	if _, err := io.ReadFull(r.src, p); err != nil {
		return nil, err
	}
	return p, nil
}

// VarIntSize reports how many bytes v occupies on the wire.
func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u&^0x7F != 0 {
		u >>= 7
		n++
	}
	return n
}
