// Package compress wraps LZ4 for message payloads.
package compress

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/pierrec/lz4/v4"
)

var (
	ErrCompressionFailed   = errors.New("compress: compression failed")
	ErrDecompressionFailed = errors.New("compress: decompression failed")
	ErrTooLarge            = errors.New("compress: decompressed payload too large")
)

// Level controls the speed/ratio tradeoff.
type Level int

const (
	LevelFast    Level = iota // Fastest, lower ratio
	LevelDefault              // Balanced
	LevelBest                 // Best ratio, slower
)

// MaxDecompressed bounds the output of Decompress.
const MaxDecompressed = 4 << 20

// compressorPool reuses LZ4 writers to reduce allocations.
var compressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewWriter(nil)
	},
}

var decompressorPool = sync.Pool{
	New: func() interface{} {
		return lz4.NewReader(nil)
	},
}

// Compress compresses data using an LZ4 frame.
func Compress(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w := compressorPool.Get().(*lz4.Writer)
	defer compressorPool.Put(w)

	w.Reset(&buf)

	switch level {
	case LevelFast:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Fast))
	case LevelBest:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Level9))
	default:
		_ = w.Apply(lz4.CompressionLevelOption(lz4.Level4))
	}

	if _, err := w.Write(data); err != nil {
		return nil, ErrCompressionFailed
	}
	if err := w.Close(); err != nil {
		return nil, ErrCompressionFailed
	}
	return buf.Bytes(), nil
}

// Decompress decompresses an LZ4 frame, refusing output above MaxDecompressed.
func Decompress(data []byte) ([]byte, error) {
	r := decompressorPool.Get().(*lz4.Reader)
	defer decompressorPool.Put(r)

	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, MaxDecompressed+1))
	if err != nil {
		return nil, ErrDecompressionFailed
	}
	if n > MaxDecompressed {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

// Shrink compresses data and reports whether the result is smaller.
// When it is not, the original slice is returned unchanged.
func Shrink(data []byte, level Level) ([]byte, bool) {
	out, err := Compress(data, level)
	if err != nil || len(out) >= len(data) {
		return data, false
	}
	return out, true
}
