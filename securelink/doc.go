// Package securelink provides authenticated, encrypted messaging between
// peers identified by P-256 keys.
//
// A peer proves its identity by signing an ephemeral ECDH key during a
// single request/response handshake. The resulting session key seals text
// messages with ChaCha20-Poly1305 or AES-256-GCM. Handshake and message
// delivery both travel over QUIC, one stream per call.
//
// The subpackages can be used on their own: identity and keystore for key
// management, session for the handshake and channel over any
// transport.Caller, protocol for the wire format.
package securelink
