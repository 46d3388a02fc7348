// Package transport defines the boundary between securelink sessions and
// whatever moves bytes between peers.
//
// A transport needs exactly two outbound calls, "handshake" and "deliver",
// each a single request/response pair, and an inbound dispatch that hands
// received payloads to a Handler.
package transport

import (
	"context"
	"errors"

	"github.com/TheusHen/securelink/securelink/protocol"
)

var (
	ErrClosed     = errors.New("transport: closed")
	ErrNoHandler  = errors.New("transport: no handler")
	ErrRemote     = errors.New("transport: remote rejected request")
	ErrUnexpected = errors.New("transport: unexpected reply")
)

// Caller performs outbound calls to a peer address.
type Caller interface {
	// Handshake sends one KexMessage and returns the peer's reply.
	Handshake(ctx context.Context, addr string, kex protocol.KexMessage) (protocol.KexMessage, error)
	// Deliver sends one Message and waits for its acknowledgement.
	Deliver(ctx context.Context, addr string, d protocol.Delivery) error
}

// Handler receives inbound calls.
type Handler interface {
	// HandleKex answers a handshake request. The reply is always sent back,
	// including failure replies.
	HandleKex(ctx context.Context, kex protocol.KexMessage) protocol.KexMessage
	// HandleDelivery consumes a delivered message. A non-nil error is
	// reported to the caller instead of an acknowledgement.
	HandleDelivery(ctx context.Context, d protocol.Delivery) error
}
