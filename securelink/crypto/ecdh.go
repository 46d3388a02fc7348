package crypto

import (
	"crypto/ecdh"
	"crypto/rand"
	"errors"
	"sync"
)

var (
	ErrInvalidPublicKey = errors.New("crypto: invalid ECDH public key")
	ErrKeyDiscarded     = errors.New("crypto: ephemeral key already discarded")
)

// EphemeralKeyPair is a single-use P-256 ECDH key pair. The private half is
// dropped by Discard and after the first successful SharedSecret.
type EphemeralKeyPair struct {
	Public [PointSize]byte

	mu   sync.Mutex
	priv *ecdh.PrivateKey
}

// GenerateEphemeral generates a new ephemeral key pair.
func GenerateEphemeral() (*EphemeralKeyPair, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	pub, err := CompressPoint(priv.PublicKey().Bytes())
	if err != nil {
		return nil, err
	}
	return &EphemeralKeyPair{Public: pub, priv: priv}, nil
}

// SharedSecret computes the 32-byte ECDH shared secret (the x-coordinate)
// with a peer's compressed public key and discards the private half.
func (e *EphemeralKeyPair) SharedSecret(peer [PointSize]byte) ([KeySize]byte, error) {
	var out [KeySize]byte

	raw, err := UncompressPoint(peer)
	if err != nil {
		return out, ErrInvalidPublicKey
	}
	pk, err := ecdh.P256().NewPublicKey(raw)
	if err != nil {
		return out, ErrInvalidPublicKey
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.priv == nil {
		return out, ErrKeyDiscarded
	}
	shared, err := e.priv.ECDH(pk)
	if err != nil {
		return out, err
	}
	e.priv = nil
	copy(out[:], shared)
	Wipe(shared)
	return out, nil
}

// Discard drops the private key. It is safe to call more than once.
func (e *EphemeralKeyPair) Discard() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.priv = nil
	e.mu.Unlock()
}

// Discarded reports whether the private key is gone.
func (e *EphemeralKeyPair) Discarded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.priv == nil
}
