package wire

import (
	"bufio"
	"bytes"
	"testing"
)

func BenchmarkWriteUint32(b *testing.B) {
	var buf bytes.Buffer
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		_ = WriteUint32(&buf, uint32(i))
	}
}

func BenchmarkStringRoundTrip(b *testing.B) {
	var buf bytes.Buffer
	_ = WriteString(&buf, "a moderately sized cache value")
	encoded := buf.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := bufio.NewReader(bytes.NewReader(encoded))
		if _, err := ReadString(r); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSeqDecode(b *testing.B) {
	items := make([]uint32, 1024)
	for i := range items {
		items[i] = uint32(i)
	}

	var buf bytes.Buffer
	_ = WriteSeq(&buf, Uint32Codec, items)
	encoded := buf.Bytes()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r := bufio.NewReader(bytes.NewReader(encoded))
		if _, err := ReadSeq(r, Uint32Codec); err != nil {
			b.Fatal(err)
		}
	}
}
