package protocol

import (
	"bufio"
	"fmt"
	"io"

	"github.com/marmos91/wirecache/pkg/wire"
)

// Conn is a framed view over a byte stream. It owns a buffered reader and
// writer pair; command handlers decode their arguments from R and encode
// their replies to W, then the read loop flushes.
//
// A Conn is owned by exactly one goroutine at a time. Nothing here is
// synchronized.
type Conn struct {
	R *bufio.Reader
	W *bufio.Writer
}

// NewConn wraps rw in buffered framing.
func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{
		R: bufio.NewReader(rw),
		W: bufio.NewWriter(rw),
	}
}

// ReadOpcode reads the next command byte. EOF is returned unwrapped so
// callers can detect a normal peer disconnect.
func (c *Conn) ReadOpcode() (Opcode, error) {
	b, err := c.R.ReadByte()
	if err != nil {
		return 0, err
	}
	return OpcodeFromByte(b), nil
}

// ReadRequestOpcode reads the next command byte strictly: bytes that name
// no request command are an error.
func (c *Conn) ReadRequestOpcode() (Opcode, error) {
	b, err := c.R.ReadByte()
	if err != nil {
		return 0, err
	}
	return RequestOpcode(b)
}

// WriteOpcode writes a command byte. The caller flushes.
func (c *Conn) WriteOpcode(op Opcode) error {
	return c.W.WriteByte(uint8(op))
}

// ReadNamespace reads the one-byte namespace id that follows every opcode
// except Ping.
func (c *Conn) ReadNamespace() (uint8, error) {
	b, err := c.R.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read namespace id: %w", err)
	}
	return b, nil
}

// WriteNamespace writes a namespace id byte.
func (c *Conn) WriteNamespace(id uint8) error {
	return c.W.WriteByte(id)
}

// Flush pushes buffered writes to the underlying stream.
func (c *Conn) Flush() error {
	return c.W.Flush()
}

// Ping sends the one-byte Ping frame and waits for the reply. Any
// successfully read byte counts as alive; a read failure does not.
func (c *Conn) Ping() error {
	if err := c.WriteOpcode(OpPing); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	if err := c.Flush(); err != nil {
		return fmt.Errorf("send ping: %w", err)
	}
	if _, err := c.R.ReadByte(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadPingReply, err)
	}
	return nil
}

// Pong answers a received Ping with the one-byte Pong frame and flushes,
// so the reply cannot sit behind a later command's bytes.
func (c *Conn) Pong() error {
	if err := c.WriteOpcode(OpPong); err != nil {
		return fmt.Errorf("send pong: %w", err)
	}
	return c.Flush()
}

// WriteStatus writes the one-byte status reply used by the write commands.
// Zero means success.
func (c *Conn) WriteStatus(status uint8) error {
	return wire.WriteUint8(c.W, status)
}

// ReadStatus reads a one-byte status reply.
func (c *Conn) ReadStatus() (uint8, error) {
	return wire.ReadUint8(c.R)
}
