package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// WriteUint8 encodes a single unsigned byte.
func WriteUint8(w io.Writer, v uint8) error {
	if _, err := w.Write([]byte{v}); err != nil {
		return fmt.Errorf("write u8: %w", err)
	}
	return nil
}

// ReadUint8 decodes a single unsigned byte.
func ReadUint8(r Reader) (uint8, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("read u8: %w", err)
	}
	return b, nil
}

// WriteUint16 encodes a 16-bit unsigned integer, big-endian.
func WriteUint16(w io.Writer, v uint16) error {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write u16: %w", err)
	}
	return nil
}

// ReadUint16 decodes a 16-bit unsigned integer, big-endian.
func ReadUint16(r Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u16: %w", err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

// WriteUint32 encodes a 32-bit unsigned integer, big-endian.
func WriteUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write u32: %w", err)
	}
	return nil
}

// ReadUint32 decodes a 32-bit unsigned integer, big-endian.
func ReadUint32(r Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u32: %w", err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteUint64 encodes a 64-bit unsigned integer, big-endian.
func WriteUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return fmt.Errorf("write u64: %w", err)
	}
	return nil
}

// ReadUint64 decodes a 64-bit unsigned integer, big-endian.
func ReadUint64(r Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read u64: %w", err)
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// WriteInt8 encodes an 8-bit signed integer, two's complement.
func WriteInt8(w io.Writer, v int8) error {
	return WriteUint8(w, uint8(v))
}

// ReadInt8 decodes an 8-bit signed integer, two's complement.
func ReadInt8(r Reader) (int8, error) {
	v, err := ReadUint8(r)
	return int8(v), err
}

// WriteInt16 encodes a 16-bit signed integer, big-endian two's complement.
func WriteInt16(w io.Writer, v int16) error {
	return WriteUint16(w, uint16(v))
}

// ReadInt16 decodes a 16-bit signed integer, big-endian two's complement.
func ReadInt16(r Reader) (int16, error) {
	v, err := ReadUint16(r)
	return int16(v), err
}

// WriteInt32 encodes a 32-bit signed integer, big-endian two's complement.
func WriteInt32(w io.Writer, v int32) error {
	return WriteUint32(w, uint32(v))
}

// ReadInt32 decodes a 32-bit signed integer, big-endian two's complement.
func ReadInt32(r Reader) (int32, error) {
	v, err := ReadUint32(r)
	return int32(v), err
}

// WriteInt64 encodes a 64-bit signed integer, big-endian two's complement.
func WriteInt64(w io.Writer, v int64) error {
	return WriteUint64(w, uint64(v))
}

// ReadInt64 decodes a 64-bit signed integer, big-endian two's complement.
func ReadInt64(r Reader) (int64, error) {
	v, err := ReadUint64(r)
	return int64(v), err
}

// WriteFloat32 encodes an IEEE-754 single-precision float, big-endian.
func WriteFloat32(w io.Writer, v float32) error {
	return WriteUint32(w, math.Float32bits(v))
}

// ReadFloat32 decodes an IEEE-754 single-precision float, big-endian.
func ReadFloat32(r Reader) (float32, error) {
	v, err := ReadUint32(r)
	return math.Float32frombits(v), err
}

// WriteFloat64 encodes an IEEE-754 double-precision float, big-endian.
func WriteFloat64(w io.Writer, v float64) error {
	return WriteUint64(w, math.Float64bits(v))
}

// ReadFloat64 decodes an IEEE-754 double-precision float, big-endian.
func ReadFloat64(r Reader) (float64, error) {
	v, err := ReadUint64(r)
	return math.Float64frombits(v), err
}

// WriteBool encodes a boolean as one byte, 0x01 for true and 0x00 for false.
func WriteBool(w io.Writer, v bool) error {
	var b uint8
	if v {
		b = 1
	}
	return WriteUint8(w, b)
}

// ReadBool decodes a boolean. 0x01 is true; any other byte is false.
func ReadBool(r Reader) (bool, error) {
	b, err := ReadUint8(r)
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

// WriteUnit encodes the unit value, which occupies zero bytes.
func WriteUnit(io.Writer) error { return nil }

// ReadUnit decodes the unit value, consuming nothing.
func ReadUnit(Reader) error { return nil }

// WriteEmpty writes the single marker byte that stands in for a fieldless
// aggregate or a payload-less variant.
func WriteEmpty(w io.Writer) error {
	return WriteUint8(w, 0)
}

// ReadEmpty consumes the marker byte of a fieldless aggregate or a
// payload-less variant. The byte's value is ignored.
func ReadEmpty(r Reader) error {
	_, err := ReadUint8(r)
	return err
}

// WriteVariantTag writes the u8 discriminant of a tagged variant.
func WriteVariantTag(w io.Writer, tag uint8) error {
	return WriteUint8(w, tag)
}

// ReadVariantTag reads a variant discriminant and rejects tags at or above
// numVariants.
func ReadVariantTag(r Reader, numVariants uint8) (uint8, error) {
	tag, err := ReadUint8(r)
	if err != nil {
		return 0, err
	}
	if tag >= numVariants {
		return 0, fmt.Errorf("%w: tag %d, %d variants declared", ErrVariantTag, tag, numVariants)
	}
	return tag, nil
}
