package protocol

import (
	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
)

// Message is a self-describing ciphertext envelope.
type Message struct {
	_msgpack struct{} `msgpack:",as_array"`

	MsgType       MsgType
	CipherVariant crypto.Variant
	Nonce         [crypto.NonceSize]byte
	EncryptedData []byte
}

// AssociatedData returns the bytes authenticated alongside the ciphertext.
func (m Message) AssociatedData() []byte {
	return AssociatedData(m.MsgType, m.CipherVariant)
}

// AssociatedData binds the unencrypted header fields to the AEAD tag.
func AssociatedData(t MsgType, v crypto.Variant) []byte {
	return []byte{byte(t), byte(v)}
}

// Delivery is the payload of a "deliver" call. Sender only routes the
// message to a session; authenticity comes from the AEAD.
type Delivery struct {
	_msgpack struct{} `msgpack:",as_array"`

	Sender  identity.PublicKey
	Message Message
}
