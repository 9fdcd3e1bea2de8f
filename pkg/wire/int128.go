package wire

import (
	"fmt"
	"io"
)

// Uint128 is an unsigned 128-bit integer split into two 64-bit halves.
// Go has no native 128-bit integer type; the wire layout is the sixteen
// big-endian bytes of Hi followed by Lo.
type Uint128 struct {
	Hi uint64
	Lo uint64
}

// Int128 is a signed 128-bit integer in two's complement. Hi carries the
// sign; the wire layout matches Uint128.
type Int128 struct {
	Hi int64
	Lo uint64
}

// WriteUint128 encodes a 128-bit unsigned integer, big-endian.
func WriteUint128(w io.Writer, v Uint128) error {
	if err := WriteUint64(w, v.Hi); err != nil {
		return fmt.Errorf("write u128: %w", err)
	}
	if err := WriteUint64(w, v.Lo); err != nil {
		return fmt.Errorf("write u128: %w", err)
	}
	return nil
}

// ReadUint128 decodes a 128-bit unsigned integer, big-endian.
func ReadUint128(r Reader) (Uint128, error) {
	hi, err := ReadUint64(r)
	if err != nil {
		return Uint128{}, fmt.Errorf("read u128: %w", err)
	}
	lo, err := ReadUint64(r)
	if err != nil {
		return Uint128{}, fmt.Errorf("read u128: %w", err)
	}
	return Uint128{Hi: hi, Lo: lo}, nil
}

// WriteInt128 encodes a 128-bit signed integer, big-endian two's complement.
func WriteInt128(w io.Writer, v Int128) error {
	return WriteUint128(w, Uint128{Hi: uint64(v.Hi), Lo: v.Lo})
}

// ReadInt128 decodes a 128-bit signed integer, big-endian two's complement.
func ReadInt128(r Reader) (Int128, error) {
	v, err := ReadUint128(r)
	return Int128{Hi: int64(v.Hi), Lo: v.Lo}, err
}
