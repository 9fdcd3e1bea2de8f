package wire

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// WriteString encodes a string as its raw UTF-8 bytes followed by a single
// 0x00 terminator. The value itself must not contain a zero byte, since
// the decoder treats the first one it sees as the end of the string.
func WriteString(w io.Writer, s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return ErrEmbeddedZero
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return WriteUint8(w, 0)
}

// ReadString decodes a zero-terminated UTF-8 string. It scans the stream
// byte by byte until the 0x00 sentinel, which is consumed but not part of
// the returned value. Input that is not valid UTF-8 fails with
// ErrInvalidUTF8.
func ReadString(r Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", fmt.Errorf("read string: %w", err)
		}
		if b == 0 {
			break
		}
		sb.WriteByte(b)
	}
	s := sb.String()
	if !utf8.ValidString(s) {
		return "", ErrInvalidUTF8
	}
	return s, nil
}
