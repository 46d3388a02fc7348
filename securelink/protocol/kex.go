package protocol

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
)

var (
	ErrKexNotOK        = errors.New("protocol: kex message carries an error code")
	ErrKexBadSignature = errors.New("protocol: kex invalid signature")
	ErrKexBadKey       = errors.New("protocol: kex invalid public key")
	ErrKexAddrTooLong  = errors.New("protocol: kex ip address too long")
)

// KexMessage is one leg of the handshake. Field order is part of the wire
// format and of the signed digest.
type KexMessage struct {
	_msgpack struct{} `msgpack:",as_array"`

	ErrorCode      ErrorCode
	PublicKey      identity.PublicKey
	PublicEcdheKey [crypto.PointSize]byte
	IPAddress      string
	Port           int32
	Signature      identity.Signature
}

// NewKex builds an unsigned OK message.
func NewKex(pub identity.PublicKey, ecdhePub [crypto.PointSize]byte, ip string, port int32) KexMessage {
	return KexMessage{
		ErrorCode:      ErrorCodeOK,
		PublicKey:      pub,
		PublicEcdheKey: ecdhePub,
		IPAddress:      ip,
		Port:           port,
	}
}

// Failed returns an unsigned message that only reports code.
func Failed(code ErrorCode) KexMessage {
	return KexMessage{ErrorCode: code}
}

// Digest hashes every field except the signature, in wire order.
// The IP address is length-prefixed so field boundaries are unambiguous.
func (k KexMessage) Digest() ([32]byte, error) {
	if len(k.IPAddress) > math.MaxUint16 {
		return [32]byte{}, ErrKexAddrTooLong
	}
	h := sha256.New()
	h.Write([]byte{byte(k.ErrorCode)})
	h.Write(k.PublicKey[:])
	h.Write(k.PublicEcdheKey[:])
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(k.IPAddress)))
	h.Write(l[:])
	h.Write([]byte(k.IPAddress))
	var p [4]byte
	binary.BigEndian.PutUint32(p[:], uint32(k.Port))
	h.Write(p[:])

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Sign signs the digest with kp. The message's PublicKey must be kp's.
func (k *KexMessage) Sign(kp identity.KeyPair) error {
	digest, err := k.Digest()
	if err != nil {
		return err
	}
	sig, err := kp.Sign(digest)
	if err != nil {
		return err
	}
	k.Signature = sig
	return nil
}

// Verify checks the error code and the signature against the claimed
// PublicKey. Only a message that passes Verify may feed key derivation.
func (k KexMessage) Verify() error {
	if k.ErrorCode != ErrorCodeOK {
		return ErrKexNotOK
	}
	if !k.PublicKey.Valid() {
		return ErrKexBadKey
	}
	digest, err := k.Digest()
	if err != nil {
		return err
	}
	if !identity.Verify(k.PublicKey, digest, k.Signature) {
		return ErrKexBadSignature
	}
	return nil
}
