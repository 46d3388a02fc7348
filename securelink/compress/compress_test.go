package compress

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestCompressRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("securelink compresses repetitive chat text. "), 200)
	for _, level := range []Level{LevelFast, LevelDefault, LevelBest} {
		c, err := Compress(data, level)
		if err != nil {
			t.Fatalf("Compress level %d: %v", level, err)
		}
		if len(c) >= len(data) {
			t.Fatalf("level %d did not shrink repetitive input", level)
		}
		d, err := Decompress(c)
		if err != nil {
			t.Fatalf("Decompress level %d: %v", level, err)
		}
		if !bytes.Equal(d, data) {
			t.Fatalf("level %d round trip mismatch", level)
		}
	}
}

func TestShrinkSkipsIncompressible(t *testing.T) {
	data := make([]byte, 512)
	_, _ = rand.Read(data)
	out, ok := Shrink(data, LevelDefault)
	if ok {
		t.Fatalf("random data should not shrink")
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected original data back")
	}
}

func TestDecompressGarbage(t *testing.T) {
	if _, err := Decompress([]byte("not an lz4 frame")); err != ErrDecompressionFailed {
		t.Fatalf("expected ErrDecompressionFailed, got %v", err)
	}
}

func TestDecompressBound(t *testing.T) {
	c, err := Compress(make([]byte, MaxDecompressed+1024), LevelFast)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if _, err := Decompress(c); err != ErrTooLarge {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func BenchmarkCompress(b *testing.B) {
	data := bytes.Repeat([]byte("hello world "), 1000)
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Compress(data, LevelFast)
	}
}
