// Package wire implements the binary serialization format spoken between
// cache clients and the server.
//
// The format is big-endian throughout and carries no framing, length header,
// or type tag at the top level: both sides know the expected type from the
// command schema, and decoding is driven by that knowledge. Values compose
// recursively from a small set of layouts:
//
//   - Fixed-width integers (u8..u128, i8..i128) and IEEE-754 floats,
//     big-endian.
//   - bool as a single byte, 0x01 meaning true.
//   - Strings as raw UTF-8 terminated by a single 0x00 sentinel. The
//     terminator is not part of the value, and values must not contain
//     embedded zero bytes.
//   - Sequences as a u32 element count followed by the elements.
//   - Maps as a u32 pair count followed by key/value pairs. Duplicate keys
//     are a decode error.
//   - Options as a bool presence flag, followed by the value when present.
//   - Results as a bool flag, followed by the ok value or the error value.
//   - Aggregates as the concatenation of their fields in declaration order;
//     a single-field wrapper is transparent; a fieldless aggregate is one
//     marker byte whose value is ignored on read.
//   - Tagged variants as a u8 tag followed by the payload encoding, or a
//     marker byte when the variant carries no payload.
//
// User-defined types participate by composing these helpers into a
// [Codec]. For example, a two-field record:
//
//	type Entry struct {
//		ID   uint32
//		Name string
//	}
//
//	var EntryCodec = wire.Codec[Entry]{
//		Encode: func(w io.Writer, e Entry) error {
//			if err := wire.WriteUint32(w, e.ID); err != nil {
//				return err
//			}
//			return wire.WriteString(w, e.Name)
//		},
//		Decode: func(r wire.Reader) (Entry, error) {
//			var e Entry
//			var err error
//			if e.ID, err = wire.ReadUint32(r); err != nil {
//				return e, err
//			}
//			e.Name, err = wire.ReadString(r)
//			return e, err
//		},
//	}
//
// Because the stream is not self-describing, a decode failure leaves the
// stream position undefined. Callers must treat any error as fatal to the
// underlying connection.
package wire

import (
	"errors"
	"io"
)

// Reader is the byte source decoders consume. A *bufio.Reader satisfies it;
// so does *bytes.Reader. The ByteReader half is required by the string
// decoder, which scans for its terminator one byte at a time.
type Reader interface {
	io.Reader
	io.ByteReader
}

// MaxSequenceLen bounds the element count a sequence or map decoder accepts.
// The u32 length field allows counts up to ~4G, far more than any honest
// peer sends; rejecting early protects the decoder from allocating huge
// buffers on behalf of a corrupt or malicious stream.
const MaxSequenceLen = 1 << 24

// preallocLimit caps the capacity handed to make() before any element has
// been read. Large sequences below MaxSequenceLen still decode; they just
// grow incrementally instead of trusting the length field up front.
const preallocLimit = 4096

// Codec errors. All of them are fatal to the stream they occurred on.
var (
	// ErrInvalidUTF8 reports a decoded string that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("wire: string is not valid UTF-8")

	// ErrEmbeddedZero reports an encode of a string containing a 0x00 byte,
	// which would collide with the terminator.
	ErrEmbeddedZero = errors.New("wire: string contains embedded zero byte")

	// ErrDuplicateKey reports a decoded map carrying the same key twice.
	ErrDuplicateKey = errors.New("wire: duplicate map key")

	// ErrLengthLimit reports a sequence or map length above MaxSequenceLen.
	ErrLengthLimit = errors.New("wire: length exceeds limit")

	// ErrVariantTag reports a variant tag outside the declared range.
	ErrVariantTag = errors.New("wire: variant tag out of range")
)

// Codec pairs the encode and decode halves for one type. The two halves
// must be symmetric: Decode(Encode(v)) yields v for every value v.
type Codec[T any] struct {
	Encode func(w io.Writer, v T) error
	Decode func(r Reader) (T, error)
}
