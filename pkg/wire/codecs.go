package wire

import (
	"fmt"
	"io"
)

// Ready-made codecs for the primitive types. Composite codecs are built
// with SeqCodec and MapCodec, or by hand for aggregates.
var (
	Uint8Codec   = Codec[uint8]{Encode: WriteUint8, Decode: ReadUint8}
	Uint16Codec  = Codec[uint16]{Encode: WriteUint16, Decode: ReadUint16}
	Uint32Codec  = Codec[uint32]{Encode: WriteUint32, Decode: ReadUint32}
	Uint64Codec  = Codec[uint64]{Encode: WriteUint64, Decode: ReadUint64}
	Uint128Codec = Codec[Uint128]{Encode: WriteUint128, Decode: ReadUint128}

	Int8Codec   = Codec[int8]{Encode: WriteInt8, Decode: ReadInt8}
	Int16Codec  = Codec[int16]{Encode: WriteInt16, Decode: ReadInt16}
	Int32Codec  = Codec[int32]{Encode: WriteInt32, Decode: ReadInt32}
	Int64Codec  = Codec[int64]{Encode: WriteInt64, Decode: ReadInt64}
	Int128Codec = Codec[Int128]{Encode: WriteInt128, Decode: ReadInt128}

	Float32Codec = Codec[float32]{Encode: WriteFloat32, Decode: ReadFloat32}
	Float64Codec = Codec[float64]{Encode: WriteFloat64, Decode: ReadFloat64}

	BoolCodec   = Codec[bool]{Encode: WriteBool, Decode: ReadBool}
	StringCodec = Codec[string]{Encode: WriteString, Decode: ReadString}
)

// BytesCodec carries a byte slice with the Sequence-of-u8 layout, reading
// and writing the body in one call instead of per element.
var BytesCodec = Codec[[]byte]{
	Encode: func(w io.Writer, v []byte) error {
		if err := WriteUint32(w, uint32(len(v))); err != nil {
			return fmt.Errorf("write bytes length: %w", err)
		}
		if _, err := w.Write(v); err != nil {
			return fmt.Errorf("write bytes: %w", err)
		}
		return nil
	},
	Decode: func(r Reader) ([]byte, error) {
		n, err := ReadUint32(r)
		if err != nil {
			return nil, fmt.Errorf("read bytes length: %w", err)
		}
		if n > MaxSequenceLen {
			return nil, fmt.Errorf("%w: bytes length %d", ErrLengthLimit, n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read bytes: %w", err)
		}
		return buf, nil
	},
}

// SeqCodec derives a slice codec from an element codec.
func SeqCodec[T any](c Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Encode: func(w io.Writer, v []T) error {
			return WriteSeq(w, c, v)
		},
		Decode: func(r Reader) ([]T, error) {
			return ReadSeq(r, c)
		},
	}
}

// MapCodec derives a map codec from key and value codecs.
func MapCodec[K comparable, V any](kc Codec[K], vc Codec[V]) Codec[map[K]V] {
	return Codec[map[K]V]{
		Encode: func(w io.Writer, v map[K]V) error {
			return WriteMap(w, kc, vc, v)
		},
		Decode: func(r Reader) (map[K]V, error) {
			return ReadMap(r, kc, vc)
		},
	}
}
