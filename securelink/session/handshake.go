package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/protocol"
	"github.com/TheusHen/securelink/securelink/transport"
)

var (
	ErrUnexpectedPeer = errors.New("session: remote identity does not match the pinned peer")
	ErrReflectedKex   = errors.New("session: peer echoed our own ephemeral key")
)

// Handshake is a single attempt at the signed ECDHE exchange. It owns the
// ephemeral key pair and wipes it on abort or once the shared secret has
// been computed.
type Handshake struct {
	role  crypto.Direction
	kp    identity.KeyPair
	opts  Options
	state atomic.Int32
	eph   atomic.Pointer[crypto.EphemeralKeyPair]
}

func newHandshake(role crypto.Direction, kp identity.KeyPair, opts Options) *Handshake {
	return &Handshake{role: role, kp: kp, opts: opts}
}

// State returns the current position of the attempt.
func (h *Handshake) State() State { return State(h.state.Load()) }

// Role reports which side of the exchange this attempt plays.
func (h *Handshake) Role() crypto.Direction { return h.role }

// advance moves to next unless the attempt already ended.
func (h *Handshake) advance(next State) bool {
	for {
		cur := h.State()
		if cur.Terminal() {
			return false
		}
		if h.state.CompareAndSwap(int32(cur), int32(next)) {
			return true
		}
	}
}

// abort ends the attempt and destroys the ephemeral private key. It is a
// no-op after Established.
func (h *Handshake) abort() {
	h.advance(StateAborted)
	if eph := h.eph.Load(); eph != nil && h.State() == StateAborted {
		eph.Discard()
	}
}

func (h *Handshake) fail(kind failure.Kind, op string, err error) error {
	h.abort()
	return failure.New(kind, op, err)
}

// initiate runs the initiator side against addr and returns the keys on
// success. The caller publishes them and moves the attempt to Established.
func (h *Handshake) initiate(ctx context.Context, caller transport.Caller, addr string) (*established, error) {
	const op = "session.Initiate"

	eph, err := crypto.GenerateEphemeral()
	if err != nil {
		return nil, h.fail(failure.KeygenFailed, op, err)
	}
	h.eph.Store(eph)
	h.advance(StateKeyGenerated)

	req := protocol.NewKex(h.kp.Public, eph.Public, h.opts.Local.Host, h.opts.Local.Port)
	if err := req.Sign(h.kp); err != nil {
		return nil, h.fail(failure.SignFailed, op, err)
	}
	h.advance(StateSent)

	h.advance(StateAwaitingResponse)
	resp, err := caller.Handshake(ctx, addr, req)
	if err != nil {
		return nil, h.fail(failure.ConnectionFailed, op, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, h.fail(failure.ConnectionFailed, op, err)
	}
	if h.State() != StateAwaitingResponse {
		return nil, failure.New(failure.ConnectionFailed, op, context.Canceled)
	}

	if err := h.check(resp); err != nil {
		return nil, h.fail(failure.VerificationFailed, op, err)
	}
	h.advance(StateVerified)

	est, err := h.derive(eph.Public, resp.PublicEcdheKey, resp.PublicKey, addr)
	if err != nil {
		return nil, h.fail(failure.VerificationFailed, op, err)
	}
	return est, nil
}

// respond verifies req and builds the signed reply. The returned message
// is always safe to send back: on failure it carries only an error code.
func (h *Handshake) respond(req protocol.KexMessage) (protocol.KexMessage, *established, error) {
	const op = "session.Respond"

	if err := h.check(req); err != nil {
		return protocol.Failed(protocol.ErrorCodeVerificationFailed), nil,
			h.fail(failure.VerificationFailed, op, err)
	}

	eph, err := crypto.GenerateEphemeral()
	if err != nil {
		return protocol.Failed(protocol.ErrorCodeInternalError), nil,
			h.fail(failure.KeygenFailed, op, err)
	}
	h.eph.Store(eph)
	h.advance(StateKeyGenerated)

	reply := protocol.NewKex(h.kp.Public, eph.Public, h.opts.Local.Host, h.opts.Local.Port)
	if err := reply.Sign(h.kp); err != nil {
		return protocol.Failed(protocol.ErrorCodeInternalError), nil,
			h.fail(failure.SignFailed, op, err)
	}

	remote := Endpoint{Host: req.IPAddress, Port: req.Port}
	est, err := h.derive(req.PublicEcdheKey, eph.Public, req.PublicKey, remote.Addr())
	if err != nil {
		return protocol.Failed(protocol.ErrorCodeVerificationFailed), nil,
			h.fail(failure.VerificationFailed, op, err)
	}
	h.advance(StateSent)
	return reply, est, nil
}

// check accepts a peer KexMessage only if it is OK, correctly signed,
// matches the pinned identity and is not our own key reflected back.
func (h *Handshake) check(k protocol.KexMessage) error {
	if k.ErrorCode != protocol.ErrorCodeOK {
		return fmt.Errorf("%w: %s", protocol.ErrKexNotOK, k.ErrorCode)
	}
	if err := k.Verify(); err != nil {
		return err
	}
	if h.opts.ExpectedPeer != nil && k.PublicKey != *h.opts.ExpectedPeer {
		return ErrUnexpectedPeer
	}
	if eph := h.eph.Load(); eph != nil && k.PublicEcdheKey == eph.Public {
		return ErrReflectedKex
	}
	return nil
}

// derive turns the two ephemeral keys into session keys. initiatorEph and
// responderEph are in protocol order regardless of role.
func (h *Handshake) derive(initiatorEph, responderEph [crypto.PointSize]byte, remote identity.PublicKey, remoteAddr string) (*established, error) {
	peer := initiatorEph
	if h.role == crypto.DirectionInitiator {
		peer = responderEph
	}
	shared, err := h.eph.Load().SharedSecret(peer)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(shared[:])

	key := shared
	if h.opts.KeyDerivation == KeyDerivationHKDF {
		if key, err = crypto.DeriveSessionKey(shared, initiatorEph, responderEph); err != nil {
			return nil, err
		}
	}
	return newEstablished(key, h.role, remote, remoteAddr, !h.opts.DisableReplayWindow)
}
