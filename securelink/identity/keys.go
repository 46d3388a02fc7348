package identity

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/failure"
)

const (
	PublicKeySize  = crypto.PointSize
	PrivateKeySize = 32
	SignatureSize  = 64
)

var (
	ErrInvalidPrivateKey = errors.New("identity: invalid P-256 private key")
	ErrInvalidPublicKey  = errors.New("identity: invalid P-256 public key")
)

// PublicKey is a SEC1 compressed P-256 point.
type PublicKey [PublicKeySize]byte

// PrivateKey is a big-endian P-256 scalar.
type PrivateKey [PrivateKeySize]byte

// Signature is an ECDSA signature encoded as r || s.
type Signature [SignatureSize]byte

// KeyPair is the long-term signing identity of a peer.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// Generate returns a fresh identity key pair.
func Generate() (KeyPair, error) {
	sk, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, failure.New(failure.KeygenFailed, "identity.Generate", err)
	}
	kp, err := NewKeyPair(sk.Bytes())
	if err != nil {
		return KeyPair{}, failure.New(failure.KeygenFailed, "identity.Generate", err)
	}
	return kp, nil
}

// NewKeyPair rebuilds a key pair from its private scalar, deriving the public key.
func NewKeyPair(private []byte) (KeyPair, error) {
	if len(private) != PrivateKeySize {
		return KeyPair{}, ErrInvalidPrivateKey
	}
	sk, err := ecdh.P256().NewPrivateKey(private)
	if err != nil {
		return KeyPair{}, ErrInvalidPrivateKey
	}
	pub, err := crypto.CompressPoint(sk.PublicKey().Bytes())
	if err != nil {
		return KeyPair{}, err
	}
	var kp KeyPair
	kp.Public = pub
	copy(kp.Private[:], private)
	return kp, nil
}

func (kp KeyPair) PeerID() PeerID {
	return PeerIDFromPublicKey(kp.Public)
}

// Sign signs a 32-byte digest with the private key.
func (kp KeyPair) Sign(digest [32]byte) (Signature, error) {
	pub, err := kp.Public.ecdsa()
	if err != nil {
		return Signature{}, failure.New(failure.SignFailed, "identity.Sign", err)
	}
	priv := &ecdsa.PrivateKey{PublicKey: *pub, D: new(big.Int).SetBytes(kp.Private[:])}
	r, s, err := ecdsa.Sign(rand.Reader, priv, digest[:])
	if err != nil {
		return Signature{}, failure.New(failure.SignFailed, "identity.Sign", err)
	}
	var sig Signature
	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:])
	return sig, nil
}

// Wipe zeroes the private key in place.
func (kp *KeyPair) Wipe() {
	for i := range kp.Private {
		kp.Private[i] = 0
	}
}

// Verify reports whether sig is a valid signature of digest under pub.
// Malformed public keys never verify.
func Verify(pub PublicKey, digest [32]byte, sig Signature) bool {
	pk, err := pub.ecdsa()
	if err != nil {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:])
	return ecdsa.Verify(pk, digest[:], r, s)
}

// Valid reports whether the key decodes to a point on the curve.
func (p PublicKey) Valid() bool {
	_, err := p.ecdsa()
	return err == nil
}

func (p PublicKey) ecdsa() (*ecdsa.PublicKey, error) {
	x, y, err := crypto.DecompressPoint(p)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}, nil
}

func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// ParsePublicKeyHex decodes and validates a hex-encoded public key.
func ParsePublicKeyHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, err
	}
	if len(b) != PublicKeySize {
		return PublicKey{}, ErrInvalidPublicKey
	}
	var p PublicKey
	copy(p[:], b)
	if !p.Valid() {
		return PublicKey{}, ErrInvalidPublicKey
	}
	return p, nil
}
