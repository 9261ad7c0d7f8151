package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// MaxDataLength caps the uncompressed size a compressed frame may declare.
const MaxDataLength = 1 << 23

// ErrBadLength reports a length prefix that does not fit the packet.
var ErrBadLength = errors.New("protocol: bad length prefix")

// Frame wraps payload into a length-prefixed packet with the given id.
//
// threshold < 0 selects the uncompressed format. Otherwise the compressed format
// is used and bodies of at least threshold bytes are zlib-compressed; smaller
// bodies carry a zero data length.
func Frame(packetID int32, payload []byte, threshold int) ([]byte, error) {
	body := NewBuffer()
	body.WriteVarInt(packetID)
	body.WriteRaw(payload)

	out := NewBuffer()
	if threshold < 0 {
		out.WriteVarInt(int32(body.Len()))
		out.WriteRaw(body.Bytes())
		return out.Bytes(), nil
	}

	inner := NewBuffer()
	if body.Len() < threshold {
		inner.WriteVarInt(0)
		inner.WriteRaw(body.Bytes())
	} else {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(body.Bytes()); err != nil {
			return nil, fmt.Errorf("compress packet: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("compress packet: %w", err)
		}
		inner.WriteVarInt(int32(body.Len()))
		inner.WriteRaw(z.Bytes())
	}
	out.WriteVarInt(int32(inner.Len()))
	out.WriteRaw(inner.Bytes())
	return out.Bytes(), nil
}

// Unframe reverses Frame and returns the packet id and payload.
func Unframe(packet []byte, threshold int) (int32, []byte, error) {
	rd := NewReader(bytes.NewReader(packet))
	length, err := rd.ReadVarInt()
	if err != nil {
		return 0, nil, fmt.Errorf("packet length: %w", err)
	}
	if length < 0 || int(length) > len(packet)-VarIntSize(length) {
		return 0, nil, fmt.Errorf("%w: header says %d bytes, %d remain", ErrBadLength, length, len(packet)-VarIntSize(length))
	}
	frame, err := rd.ReadRaw(int(length))
	if err != nil {
		return 0, nil, fmt.Errorf("packet body: %w", err)
	}

	body := frame
	if threshold >= 0 {
		fr := NewReader(bytes.NewReader(frame))
		dataLen, err := fr.ReadVarInt()
		if err != nil {
			return 0, nil, fmt.Errorf("data length: %w", err)
		}
		if dataLen < 0 || dataLen > MaxDataLength {
			return 0, nil, fmt.Errorf("%w: data length %d", ErrBadLength, dataLen)
		}
		rest := frame[VarIntSize(dataLen):]
		if dataLen == 0 {
			body = rest
		} else {
			zr, err := zlib.NewReader(bytes.NewReader(rest))
			if err != nil {
				return 0, nil, fmt.Errorf("decompress packet: %w", err)
			}
			defer zr.Close()
			// One byte past the declared size is enough to detect a lying header.
			body, err = io.ReadAll(io.LimitReader(zr, int64(dataLen)+1))
			if err != nil {
				return 0, nil, fmt.Errorf("decompress packet: %w", err)
			}
			if len(body) != int(dataLen) {
				return 0, nil, fmt.Errorf("decompressed %d bytes, header says %d", len(body), dataLen)
			}
		}
	}

	br := NewReader(bytes.NewReader(body))
	id, err := br.ReadVarInt()
	if err != nil {
		return 0, nil, fmt.Errorf("packet id: %w", err)
	}
	return id, body[VarIntSize(id):], nil
}
