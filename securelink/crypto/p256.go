package crypto

import (
	"crypto/elliptic"
	"errors"
	"math/big"
)

// PointSize is the size of a SEC1 compressed P-256 point.
const PointSize = 33

var ErrInvalidPoint = errors.New("crypto: invalid P-256 point")

// CompressPoint converts a SEC1 uncompressed P-256 point (0x04 || X || Y)
// to its 33-byte compressed form.
func CompressPoint(uncompressed []byte) ([PointSize]byte, error) {
	var out [PointSize]byte
	if len(uncompressed) != 65 || uncompressed[0] != 4 {
		return out, ErrInvalidPoint
	}
	out[0] = 2 | uncompressed[64]&1
	copy(out[1:], uncompressed[1:33])
	return out, nil
}

// DecompressPoint returns the affine coordinates of a compressed P-256 point.
// It fails for encodings that are not on the curve.
func DecompressPoint(compressed [PointSize]byte) (x, y *big.Int, err error) {
	x, y = elliptic.UnmarshalCompressed(elliptic.P256(), compressed[:])
	if x == nil {
		return nil, nil, ErrInvalidPoint
	}
	return x, y, nil
}

// UncompressPoint expands a compressed point to 0x04 || X || Y.
func UncompressPoint(compressed [PointSize]byte) ([]byte, error) {
	x, y, err := DecompressPoint(compressed)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 65)
	out[0] = 4
	x.FillBytes(out[1:33])
	y.FillBytes(out[33:])
	return out, nil
}
