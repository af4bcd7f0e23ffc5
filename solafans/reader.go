package solafans

import (
	"io"
)

// ReadResponse reads one response from r. A serial port returns 0 bytes
// (or io.EOF) once its read timeout expires; the bytes received so far are
// then returned without an error and the short length is left for
// Validate to reject.
func ReadResponse(r io.Reader) ([]byte, error) {
	buf := make([]byte, FrameSize)
	n := 0
	for n < FrameSize {
		m, err := r.Read(buf[n:])
		n += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return buf[:n], err
		}
		if m == 0 {
			// Timed out
			break
		}
	}
	return buf[:n], nil
}
