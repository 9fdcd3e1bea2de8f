package wire

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(b []byte) Reader {
	return bufio.NewReader(bytes.NewReader(b))
}

func TestUintRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteUint8(&buf, 0x12))
	require.NoError(t, WriteUint16(&buf, 0x1234))
	require.NoError(t, WriteUint32(&buf, 0x12345678))
	require.NoError(t, WriteUint64(&buf, 0x123456789abcdef0))

	r := reader(buf.Bytes())

	v8, err := ReadUint8(r)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x12), v8)

	v16, err := ReadUint16(r)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v32, err := ReadUint32(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v32)

	v64, err := ReadUint64(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x123456789abcdef0), v64)
}

func TestUint32IsBigEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 7))
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x07}, buf.Bytes())
}

func TestIntRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteInt8(&buf, -1))
	require.NoError(t, WriteInt16(&buf, -2))
	require.NoError(t, WriteInt32(&buf, -3))
	require.NoError(t, WriteInt64(&buf, -4))

	r := reader(buf.Bytes())

	v8, err := ReadInt8(r)
	require.NoError(t, err)
	assert.Equal(t, int8(-1), v8)

	v16, err := ReadInt16(r)
	require.NoError(t, err)
	assert.Equal(t, int16(-2), v16)

	v32, err := ReadInt32(r)
	require.NoError(t, err)
	assert.Equal(t, int32(-3), v32)

	v64, err := ReadInt64(r)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), v64)
}

func TestInt128RoundTrip(t *testing.T) {
	cases := []Int128{
		{Hi: 0, Lo: 0},
		{Hi: 0, Lo: 42},
		{Hi: -1, Lo: math.MaxUint64}, // -1 in two's complement
		{Hi: math.MinInt64, Lo: 0},
	}

	for _, want := range cases {
		var buf bytes.Buffer
		require.NoError(t, WriteInt128(&buf, want))
		assert.Len(t, buf.Bytes(), 16)

		got, err := ReadInt128(reader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestUint128Layout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint128(&buf, Uint128{Hi: 1, Lo: 2}))

	want := make([]byte, 16)
	binary.BigEndian.PutUint64(want[0:8], 1)
	binary.BigEndian.PutUint64(want[8:16], 2)
	assert.Equal(t, want, buf.Bytes())
}

func TestFloatRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFloat32(&buf, 3.5))
	require.NoError(t, WriteFloat64(&buf, -1.25))

	r := reader(buf.Bytes())

	f32, err := ReadFloat32(r)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), f32)

	f64, err := ReadFloat64(r)
	require.NoError(t, err)
	assert.Equal(t, -1.25, f64)
}

func TestBool(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBool(&buf, true))
	require.NoError(t, WriteBool(&buf, false))
	assert.Equal(t, []byte{0x01, 0x00}, buf.Bytes())

	r := reader(buf.Bytes())
	v, err := ReadBool(r)
	require.NoError(t, err)
	assert.True(t, v)
	v, err = ReadBool(r)
	require.NoError(t, err)
	assert.False(t, v)

	// Any byte other than 0x01 reads as false.
	v, err = ReadBool(reader([]byte{0x7f}))
	require.NoError(t, err)
	assert.False(t, v)
}

func TestStringRoundTrip(t *testing.T) {
	for _, want := range []string{"", "hello", "grüße", "日本語"} {
		var buf bytes.Buffer
		require.NoError(t, WriteString(&buf, want))
		assert.Equal(t, byte(0), buf.Bytes()[buf.Len()-1])

		got, err := ReadString(reader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStringEmbeddedZeroRejected(t *testing.T) {
	var buf bytes.Buffer
	err := WriteString(&buf, "a\x00b")
	assert.ErrorIs(t, err, ErrEmbeddedZero)
}

func TestStringInvalidUTF8Rejected(t *testing.T) {
	_, err := ReadString(reader([]byte{0xff, 0xfe, 0x00}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestStringMissingTerminator(t *testing.T) {
	_, err := ReadString(reader([]byte("no terminator")))
	assert.Error(t, err)
}

func TestUnitAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUnit(&buf))
	assert.Zero(t, buf.Len())

	require.NoError(t, WriteEmpty(&buf))
	assert.Equal(t, 1, buf.Len())

	// The marker byte's value is ignored on read.
	require.NoError(t, ReadEmpty(reader([]byte{0xab})))

	err := ReadEmpty(reader(nil))
	assert.Error(t, err)
}

func TestSeqRoundTrip(t *testing.T) {
	want := []uint32{10, 20, 30}

	var buf bytes.Buffer
	require.NoError(t, WriteSeq(&buf, Uint32Codec, want))
	assert.Equal(t, 4+3*4, buf.Len())

	got, err := ReadSeq(reader(buf.Bytes()), Uint32Codec)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSeqEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSeq(&buf, StringCodec, nil))

	got, err := ReadSeq(reader(buf.Bytes()), StringCodec)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSeqLengthLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, math.MaxUint32-1))

	_, err := ReadSeq(reader(buf.Bytes()), Uint32Codec)
	assert.ErrorIs(t, err, ErrLengthLimit)
}

func TestSeqTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 3))
	require.NoError(t, WriteUint32(&buf, 1)) // only one of three elements

	_, err := ReadSeq(reader(buf.Bytes()), Uint32Codec)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMapRoundTrip(t *testing.T) {
	want := map[uint32]string{1: "one", 2: "two", 3: "three"}

	var buf bytes.Buffer
	require.NoError(t, WriteMap(&buf, Uint32Codec, StringCodec, want))

	got, err := ReadMap(reader(buf.Bytes()), Uint32Codec, StringCodec)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMapDuplicateKeyRejected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 2))
	require.NoError(t, WriteUint32(&buf, 7))
	require.NoError(t, WriteUint32(&buf, 1))
	require.NoError(t, WriteUint32(&buf, 7)) // same key again
	require.NoError(t, WriteUint32(&buf, 2))

	_, err := ReadMap(reader(buf.Bytes()), Uint32Codec, Uint32Codec)
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestMapLengthLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, math.MaxUint32))

	_, err := ReadMap(reader(buf.Bytes()), Uint32Codec, Uint32Codec)
	assert.ErrorIs(t, err, ErrLengthLimit)
}

func TestOptionRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteOption(&buf, Uint32Codec, 7, true))
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x07}, buf.Bytes())

	v, ok, err := ReadOption(reader(buf.Bytes()), Uint32Codec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), v)

	buf.Reset()
	require.NoError(t, WriteOption(&buf, Uint32Codec, 0, false))
	assert.Equal(t, []byte{0x00}, buf.Bytes())

	_, ok, err = ReadOption(reader(buf.Bytes()), Uint32Codec)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResult(&buf, Uint32Codec, StringCodec, 9, "", true))

	v, _, ok, err := ReadResult(reader(buf.Bytes()), Uint32Codec, StringCodec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint32(9), v)

	buf.Reset()
	require.NoError(t, WriteResult(&buf, Uint32Codec, StringCodec, 0, "boom", false))

	_, e, ok, err := ReadResult(reader(buf.Bytes()), Uint32Codec, StringCodec)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "boom", e)
}

func TestVariantTag(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteVariantTag(&buf, 2))

	tag, err := ReadVariantTag(reader(buf.Bytes()), 3)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), tag)

	_, err = ReadVariantTag(reader(buf.Bytes()), 2)
	assert.ErrorIs(t, err, ErrVariantTag)
}

func TestBytesCodecRoundTrip(t *testing.T) {
	want := []byte{0xde, 0xad, 0xbe, 0xef}

	var buf bytes.Buffer
	require.NoError(t, BytesCodec.Encode(&buf, want))

	got, err := BytesCodec.Decode(reader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// Concatenating two encodings and decoding twice must yield the originals
// in order; there is no padding or framing between values.
func TestPrefixFreeWithinSchema(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, "first"))
	require.NoError(t, WriteString(&buf, "second"))
	require.NoError(t, WriteSeq(&buf, Uint32Codec, []uint32{1, 2}))
	require.NoError(t, WriteSeq(&buf, Uint32Codec, []uint32{3}))

	r := reader(buf.Bytes())

	s1, err := ReadString(r)
	require.NoError(t, err)
	s2, err := ReadString(r)
	require.NoError(t, err)
	assert.Equal(t, "first", s1)
	assert.Equal(t, "second", s2)

	q1, err := ReadSeq(r, Uint32Codec)
	require.NoError(t, err)
	q2, err := ReadSeq(r, Uint32Codec)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2}, q1)
	assert.Equal(t, []uint32{3}, q2)

	_, err = r.ReadByte()
	assert.ErrorIs(t, err, io.EOF)
}

// An aggregate codec composed by hand, exercising the field concatenation
// layout.
type testEntry struct {
	ID   uint32
	Name string
	Tags []string
}

var testEntryCodec = Codec[testEntry]{
	Encode: func(w io.Writer, e testEntry) error {
		if err := WriteUint32(w, e.ID); err != nil {
			return err
		}
		if err := WriteString(w, e.Name); err != nil {
			return err
		}
		return WriteSeq(w, StringCodec, e.Tags)
	},
	Decode: func(r Reader) (testEntry, error) {
		var e testEntry
		var err error
		if e.ID, err = ReadUint32(r); err != nil {
			return e, err
		}
		if e.Name, err = ReadString(r); err != nil {
			return e, err
		}
		e.Tags, err = ReadSeq(r, StringCodec)
		return e, err
	},
}

func TestAggregateRoundTrip(t *testing.T) {
	want := testEntry{ID: 99, Name: "widget", Tags: []string{"a", "b"}}

	var buf bytes.Buffer
	require.NoError(t, testEntryCodec.Encode(&buf, want))

	got, err := testEntryCodec.Decode(reader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAggregateInsideSeq(t *testing.T) {
	want := []testEntry{
		{ID: 1, Name: "one"},
		{ID: 2, Name: "two", Tags: []string{"x"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSeq(&buf, testEntryCodec, want))

	got, err := ReadSeq(reader(buf.Bytes()), testEntryCodec)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, want[0].ID, got[0].ID)
	assert.Equal(t, want[1].Name, got[1].Name)
	assert.Equal(t, want[1].Tags, got[1].Tags)
}

func TestLongStringRoundTrip(t *testing.T) {
	want := strings.Repeat("wirecache ", 1000)

	var buf bytes.Buffer
	require.NoError(t, WriteString(&buf, want))

	got, err := ReadString(reader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
