package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/TheusHen/securelink/securelink/crypto"
)

const (
	// The current supported version of the encrypted blob format stored on disk.
	formatVersion = 1

	saltSize = 16

	kdfArgon2id = "argon2id"
	kdfScrypt   = "scrypt"

	// Ceilings for parameters read back from an envelope.
	maxArgonTime    = 10
	maxArgonMemory  = 1 << 21 // KiB
	maxArgonThreads = 64
	maxScryptN      = 1 << 20
	maxScryptR      = 32
	maxScryptP      = 16
)

var (
	// Returned when the passphrase is incorrect or the ciphertext has been modified / corrupted.
	ErrWrongPassphrase = errors.New("keystore: wrong passphrase or corrupted key file")
	ErrUnsupportedKDF  = errors.New("keystore: unsupported key derivation function")
	ErrKDFParams       = errors.New("keystore: key derivation parameters out of range")
)

// KDFParams selects the passphrase key derivation for new envelopes.
// Existing envelopes always open with the parameters recorded in them.
type KDFParams struct {
	Name string `json:"name"`

	// argon2id
	Time    uint32 `json:"time,omitempty"`
	Memory  uint32 `json:"memory,omitempty"` // KiB
	Threads uint8  `json:"threads,omitempty"`

	// scrypt
	N int `json:"n,omitempty"`
	R int `json:"r,omitempty"`
	P int `json:"p,omitempty"`
}

// DefaultKDF is Argon2id with the RFC 9106 second recommended option.
func DefaultKDF() KDFParams {
	return KDFParams{Name: kdfArgon2id, Time: 3, Memory: 64 * 1024, Threads: 4}
}

// ScryptKDF returns interactive-login scrypt parameters.
func ScryptKDF() KDFParams {
	return KDFParams{Name: kdfScrypt, N: 1 << 15, R: 8, P: 1}
}

// validate rejects parameters the KDFs would panic on or that would make
// derivation unreasonably expensive.
func (p KDFParams) validate() error {
	switch p.Name {
	case kdfArgon2id:
		if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
			return fmt.Errorf("%w: argon2id parameters missing", ErrUnsupportedKDF)
		}
		if p.Time > maxArgonTime || p.Memory > maxArgonMemory || p.Threads > maxArgonThreads {
			return fmt.Errorf("%w: argon2id t=%d m=%d p=%d", ErrKDFParams, p.Time, p.Memory, p.Threads)
		}
	case kdfScrypt:
		if p.N <= 1 || p.N&(p.N-1) != 0 || p.N > maxScryptN ||
			p.R <= 0 || p.R > maxScryptR || p.P <= 0 || p.P > maxScryptP {
			return fmt.Errorf("%w: scrypt N=%d r=%d p=%d", ErrKDFParams, p.N, p.R, p.P)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKDF, p.Name)
	}
	return nil
}

func (p KDFParams) derive(passphrase string, salt []byte) ([]byte, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	switch p.Name {
	case kdfArgon2id:
		return argon2.IDKey([]byte(passphrase), salt, p.Time, p.Memory, p.Threads, chacha20poly1305.KeySize), nil
	case kdfScrypt:
		return scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKDF, p.Name)
	}
}

// envelope is the on-disk JSON structure holding the ciphertext and KDF parameters.
type envelope struct {
	V      int       `json:"v"`
	KDF    KDFParams `json:"kdf"`
	Salt   []byte    `json:"salt"`
	Cipher []byte    `json:"cipher"`
}

// seal derives a key from passphrase and seals raw into a JSON envelope.
func seal(passphrase string, raw []byte, params KDFParams) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := params.derive(passphrase, salt)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; salt-bound key guarantees uniqueness
	ct := aead.Seal(nil, nonce[:], raw, salt)

	return json.Marshal(envelope{
		V:      formatVersion,
		KDF:    params,
		Salt:   salt,
		Cipher: ct,
	})
}

// open decrypts a JSON envelope using a key derived from passphrase.
func open(passphrase string, b []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	if env.V != formatVersion {
		return nil, fmt.Errorf("keystore: unsupported format version %d", env.V)
	}
	if len(env.Salt) != saltSize {
		return nil, errors.New("keystore: invalid salt size")
	}

	key, err := env.KDF.derive(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], env.Cipher, env.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}
