package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

const sessionKeyInfo = "securelink-session-key"

// DeriveKey derives a key of the specified length using HKDF-SHA256.
// salt can be nil (uses zero salt), info provides context binding.
func DeriveKey(secret, salt, info []byte, length int) ([]byte, error) {
	hk := hkdf.New(sha256.New, secret, salt, info)
	key := make([]byte, length)
	if _, err := io.ReadFull(hk, key); err != nil {
		return nil, err
	}
	return key, nil
}

// DeriveSessionKey expands a raw ECDH secret into a session key bound to
// both ephemeral public keys.
func DeriveSessionKey(shared [KeySize]byte, initiatorEph, responderEph [PointSize]byte) ([KeySize]byte, error) {
	var out [KeySize]byte

	info := make([]byte, 0, len(sessionKeyInfo)+2*PointSize)
	info = append(info, sessionKeyInfo...)
	info = append(info, initiatorEph[:]...)
	info = append(info, responderEph[:]...)

	key, err := DeriveKey(shared[:], nil, info, KeySize)
	if err != nil {
		return out, err
	}
	copy(out[:], key)
	Wipe(key)
	return out, nil
}
