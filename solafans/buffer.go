package solafans

import (
	"encoding/binary"
	"io"
)

// Buffer is a forward-only cursor over a response frame.
type Buffer []byte

func NewBuffer(data []byte) *Buffer {
	buf := Buffer(data)
	return &buf
}

var (
	order = binary.BigEndian
)

func (b *Buffer) Len() int {
	return len(*b)
}

// Skip discards n reserved bytes.
func (b *Buffer) Skip(n int) error {
	if len(*b) < n {
		return io.ErrUnexpectedEOF
	}
	*b = (*b)[n:]
	return nil
}

func (b *Buffer) ReadRaw(tv ...interface{}) error {
	for _, t := range tv {
		switch v := t.(type) {
		case *uint8:
			if len(*b) < 1 {
				return io.ErrUnexpectedEOF
			}
			*v = (*b)[0]
			*b = (*b)[1:]
		case *uint16:
			if len(*b) < 2 {
				return io.ErrUnexpectedEOF
			}
			*v = order.Uint16((*b)[0:2])
			*b = (*b)[2:]
		case *uint32:
			if len(*b) < 4 {
				return io.ErrUnexpectedEOF
			}
			*v = order.Uint32((*b)[0:4])
			*b = (*b)[4:]
		case []byte:
			if len(*b) < len(v) {
				return io.ErrUnexpectedEOF
			}
			copy(v, *b)
			*b = (*b)[len(v):]
		default:
			return ErrUnsupportedType
		}
	}
	return nil
}

