package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/TheusHen/securelink/securelink/failure"
)

const (
	// KeySize is the symmetric key size shared by every variant.
	KeySize = 32
	// NonceSize is the nonce size shared by every variant.
	NonceSize = 12
	// Overhead is the authentication tag size shared by every variant.
	Overhead = 16
)

var (
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")
	ErrInvalidKeySize     = errors.New("crypto: invalid key size")
	ErrInvalidNonceSize   = errors.New("crypto: invalid nonce size")
)

// Variant selects the AEAD algorithm. New variants must keep the 12-byte
// nonce and 16-byte tag so the Message envelope stays the same.
type Variant uint8

const (
	VariantChaCha20Poly1305 Variant = 1
	VariantAES256GCM        Variant = 2
)

// DefaultVariant is used when no variant is configured.
const DefaultVariant = VariantChaCha20Poly1305

func (v Variant) String() string {
	switch v {
	case VariantChaCha20Poly1305:
		return "chacha20-poly1305"
	case VariantAES256GCM:
		return "aes-256-gcm"
	default:
		return "unsupported"
	}
}

// Supported reports whether v names an implemented algorithm.
func (v Variant) Supported() bool {
	return v == VariantChaCha20Poly1305 || v == VariantAES256GCM
}

// Variants lists every supported variant.
func Variants() []Variant {
	return []Variant{VariantChaCha20Poly1305, VariantAES256GCM}
}

// ParseVariant maps a name as returned by String back to a Variant.
func ParseVariant(name string) (Variant, error) {
	for _, v := range Variants() {
		if v.String() == name {
			return v, nil
		}
	}
	return 0, failure.Newf(failure.UnsupportedCipher, "crypto.ParseVariant", "%q", name)
}

// AEAD is a keyed instance of one variant. Nonces are supplied by the caller;
// it is the caller's job never to seal twice under the same nonce.
type AEAD struct {
	variant Variant
	aead    cipher.AEAD
}

// NewAEAD creates an AEAD for variant v under a 32-byte key.
func NewAEAD(v Variant, key []byte) (*AEAD, error) {
	if !v.Supported() {
		return nil, failure.Newf(failure.UnsupportedCipher, "crypto.NewAEAD", "variant %d", uint8(v))
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	var (
		a   cipher.AEAD
		err error
	)
	switch v {
	case VariantChaCha20Poly1305:
		a, err = chacha20poly1305.New(key)
	case VariantAES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err == nil {
			a, err = cipher.NewGCM(block)
		}
	}
	if err != nil {
		return nil, err
	}
	return &AEAD{variant: v, aead: a}, nil
}

// Variant returns the algorithm of this instance.
func (a *AEAD) Variant() Variant { return a.variant }

// Seal encrypts and authenticates plaintext, binding ad.
// Returns: ciphertext || tag (16 bytes)
func (a *AEAD) Seal(nonce, plaintext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonceSize
	}
	return a.aead.Seal(nil, nonce, plaintext, ad), nil
}

// Open authenticates and decrypts ciphertext. On any failure no plaintext is
// returned and the error is of kind AuthenticationFailed.
func (a *AEAD) Open(nonce, ciphertext, ad []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, failure.New(failure.AuthenticationFailed, "crypto.Open", ErrInvalidNonceSize)
	}
	if len(ciphertext) < a.aead.Overhead() {
		return nil, failure.New(failure.AuthenticationFailed, "crypto.Open", ErrCiphertextTooShort)
	}
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, ad)
	if err != nil {
		return nil, failure.New(failure.AuthenticationFailed, "crypto.Open", err)
	}
	return plaintext, nil
}

// Overhead returns the authentication tag overhead.
func (a *AEAD) Overhead() int { return a.aead.Overhead() }

// Encrypt is a one-shot Seal. It must never be called twice with the same
// (key, nonce) pair.
func Encrypt(v Variant, key, nonce, plaintext, ad []byte) ([]byte, error) {
	a, err := NewAEAD(v, key)
	if err != nil {
		return nil, err
	}
	return a.Seal(nonce, plaintext, ad)
}

// Decrypt is a one-shot Open.
func Decrypt(v Variant, key, nonce, ciphertext, ad []byte) ([]byte, error) {
	a, err := NewAEAD(v, key)
	if err != nil {
		return nil, err
	}
	return a.Open(nonce, ciphertext, ad)
}
