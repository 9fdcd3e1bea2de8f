package wire

import (
	"fmt"
	"io"
)

// WriteSeq encodes a slice as a u32 element count followed by each element
// in order.
func WriteSeq[T any](w io.Writer, c Codec[T], items []T) error {
	if err := WriteUint32(w, uint32(len(items))); err != nil {
		return fmt.Errorf("write seq length: %w", err)
	}
	for i, item := range items {
		if err := c.Encode(w, item); err != nil {
			return fmt.Errorf("write seq[%d]: %w", i, err)
		}
	}
	return nil
}

// ReadSeq decodes a slice written by WriteSeq. Lengths above MaxSequenceLen
// are rejected before any element is read.
func ReadSeq[T any](r Reader, c Codec[T]) ([]T, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read seq length: %w", err)
	}
	if n > MaxSequenceLen {
		return nil, fmt.Errorf("%w: seq length %d", ErrLengthLimit, n)
	}
	items := make([]T, 0, min(int(n), preallocLimit))
	for i := uint32(0); i < n; i++ {
		item, err := c.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("read seq[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// WriteMap encodes a map as a u32 pair count followed by key/value pairs.
// Iteration order is unspecified; decoders accept any order.
func WriteMap[K comparable, V any](w io.Writer, kc Codec[K], vc Codec[V], m map[K]V) error {
	if err := WriteUint32(w, uint32(len(m))); err != nil {
		return fmt.Errorf("write map length: %w", err)
	}
	for k, v := range m {
		if err := kc.Encode(w, k); err != nil {
			return fmt.Errorf("write map key: %w", err)
		}
		if err := vc.Encode(w, v); err != nil {
			return fmt.Errorf("write map value: %w", err)
		}
	}
	return nil
}

// ReadMap decodes a map written by WriteMap. A key appearing twice fails
// with ErrDuplicateKey; lengths above MaxSequenceLen are rejected before
// any pair is read.
func ReadMap[K comparable, V any](r Reader, kc Codec[K], vc Codec[V]) (map[K]V, error) {
	n, err := ReadUint32(r)
	if err != nil {
		return nil, fmt.Errorf("read map length: %w", err)
	}
	if n > MaxSequenceLen {
		return nil, fmt.Errorf("%w: map length %d", ErrLengthLimit, n)
	}
	m := make(map[K]V, min(int(n), preallocLimit))
	for i := uint32(0); i < n; i++ {
		k, err := kc.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("read map key: %w", err)
		}
		if _, exists := m[k]; exists {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, k)
		}
		v, err := vc.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("read map value: %w", err)
		}
		m[k] = v
	}
	return m, nil
}

// WriteOption encodes an optional value as a presence bool, followed by the
// value when present.
func WriteOption[T any](w io.Writer, c Codec[T], v T, ok bool) error {
	if err := WriteBool(w, ok); err != nil {
		return fmt.Errorf("write option flag: %w", err)
	}
	if !ok {
		return nil
	}
	return c.Encode(w, v)
}

// ReadOption decodes an optional value written by WriteOption. When the
// presence flag is false, the zero value is returned with ok false.
func ReadOption[T any](r Reader, c Codec[T]) (v T, ok bool, err error) {
	ok, err = ReadBool(r)
	if err != nil {
		return v, false, fmt.Errorf("read option flag: %w", err)
	}
	if !ok {
		return v, false, nil
	}
	v, err = c.Decode(r)
	return v, err == nil, err
}

// WriteResult encodes a success-or-error value as a bool flag followed by
// the ok value (flag true) or the error value (flag false).
func WriteResult[T, E any](w io.Writer, tc Codec[T], ec Codec[E], v T, e E, ok bool) error {
	if err := WriteBool(w, ok); err != nil {
		return fmt.Errorf("write result flag: %w", err)
	}
	if ok {
		return tc.Encode(w, v)
	}
	return ec.Encode(w, e)
}

// ReadResult decodes a value written by WriteResult. Exactly one of the two
// returned payloads is meaningful, selected by ok.
func ReadResult[T, E any](r Reader, tc Codec[T], ec Codec[E]) (v T, e E, ok bool, err error) {
	ok, err = ReadBool(r)
	if err != nil {
		return v, e, false, fmt.Errorf("read result flag: %w", err)
	}
	if ok {
		v, err = tc.Decode(r)
		return v, e, true, err
	}
	e, err = ec.Decode(r)
	return v, e, false, err
}
