package solafans

import (
	"fmt"
)

// Command is a fixed size query addressed to one controller.
type Command [CommandSize]byte

// BuildCommand returns the query for the given controller address.
// Byte 2 is the read control code, bytes 3-6 are zero.
func BuildCommand(address, function uint8) Command {
	var c Command
	c[0] = address
	c[1] = function
	c[2] = controlRead
	c[CommandSize-1] = Checksum(c[:CommandSize-1])
	return c
}

func (c Command) Bytes() []byte {
	return c[:]
}

func (c Command) Address() uint8 {
	return c[0]
}

// Checksum is the low byte of the sum of b.
func Checksum(b []byte) uint8 {
	var sum uint8
	for _, v := range b {
		sum += v
	}
	return sum
}

// Frame is a response that passed length and checksum validation.
type Frame []byte

// Validate checks length and checksum of a response. Only a Frame returned
// by Validate may be decoded.
func Validate(data []byte) (Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(data), FrameSize)
	}
	want := data[FrameSize-1]
	if got := Checksum(data[:FrameSize-1]); got != want {
		return nil, fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X", ErrChecksum, got, want)
	}
	return Frame(data), nil
}
