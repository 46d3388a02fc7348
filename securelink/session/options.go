package session

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/TheusHen/securelink/securelink/compress"
	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/transport"
)

// DefaultHandshakeTimeout bounds the wait for a handshake reply.
const DefaultHandshakeTimeout = 10 * time.Second

// KeyDerivation selects how the ECDH output becomes the session key.
// Both peers must use the same mode.
type KeyDerivation uint8

const (
	// KeyDerivationRaw uses the 32-byte ECDH x-coordinate as the key.
	KeyDerivationRaw KeyDerivation = iota
	// KeyDerivationHKDF expands the ECDH output with HKDF-SHA256 bound to
	// both ephemeral public keys.
	KeyDerivationHKDF
)

func (k KeyDerivation) String() string {
	if k == KeyDerivationHKDF {
		return "hkdf"
	}
	return "raw"
}

// Endpoint is the address a peer advertises in its KexMessage so the other
// side can deliver messages back to it.
type Endpoint struct {
	Host string
	Port int32
}

// Addr returns host:port, or "" when the endpoint is unset.
func (e Endpoint) Addr() string {
	if e.Host == "" || e.Port <= 0 {
		return ""
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(int(e.Port)))
}

type Options struct {
	// Cipher is the variant used for outbound messages. Inbound messages
	// may use any supported variant.
	Cipher crypto.Variant

	KeyDerivation KeyDerivation

	// Transport carries handshake and deliver calls.
	Transport transport.Caller

	// Local is advertised in outgoing KexMessages.
	Local Endpoint

	// HandshakeTimeout bounds the wait for the peer's KexMessage.
	HandshakeTimeout time.Duration

	// Compress sends payloads LZ4-compressed when that makes them smaller.
	Compress      bool
	CompressLevel compress.Level

	// DisableReplayWindow accepts duplicate nonces within a session.
	DisableReplayWindow bool

	// InboxLimit caps queued plaintexts; 0 means unbounded.
	InboxLimit int

	// ExpectedPeer pins the remote identity when set.
	ExpectedPeer *identity.PublicKey

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Cipher == 0 {
		o.Cipher = crypto.DefaultVariant
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
