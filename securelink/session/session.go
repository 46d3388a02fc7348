package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/TheusHen/securelink/securelink/compress"
	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/protocol"
)

var (
	ErrNotEstablished      = errors.New("session: not established")
	ErrAlreadyEstablished  = errors.New("session: already established")
	ErrHandshakeInProgress = errors.New("session: handshake in progress")
	ErrNoTransport         = errors.New("session: no transport configured")
	ErrNoRemoteEndpoint    = errors.New("session: peer did not advertise an endpoint")
	ErrReflected           = errors.New("session: message carries our own direction tag")
	ErrMalformedNonce      = errors.New("session: malformed nonce")
	ErrReplayed            = errors.New("session: replayed message")
	ErrUnknownMsgType      = errors.New("session: unknown message type")
	ErrAborted             = errors.New("session: handshake aborted")
)

// Session is one end of an encrypted channel between two identities.
//
// A Session becomes usable after exactly one successful handshake, either
// as initiator (Initiate) or as responder (Respond). The session key and
// remote identity are published atomically at that point and never change.
// Seal, Send, Receive and Pop are safe for concurrent use.
type Session struct {
	id    uuid.UUID
	kp    identity.KeyPair
	opts  Options
	log   *slog.Logger
	inbox *Inbox

	busy atomic.Bool
	hs   atomic.Pointer[Handshake]
	est  atomic.Pointer[established]
}

// New creates an idle session for the local key pair.
func New(kp identity.KeyPair, opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.New()
	return &Session{
		id:    id,
		kp:    kp,
		opts:  opts,
		log:   opts.Logger.With("session", id.String()),
		inbox: NewInbox(opts.InboxLimit),
	}
}

func (s *Session) ID() uuid.UUID { return s.id }

// State returns the state of the latest handshake attempt.
func (s *Session) State() State {
	if h := s.hs.Load(); h != nil {
		return h.State()
	}
	return StateIdle
}

// Established reports whether the session has keys.
func (s *Session) Established() bool { return s.est.Load() != nil }

// Role returns the side this session played in its handshake.
func (s *Session) Role() (crypto.Direction, bool) {
	if e := s.est.Load(); e != nil {
		return e.role, true
	}
	return 0, false
}

// RemotePublicKey returns the verified identity of the peer.
func (s *Session) RemotePublicKey() (identity.PublicKey, bool) {
	if e := s.est.Load(); e != nil {
		return e.remote, true
	}
	return identity.PublicKey{}, false
}

// RemotePeerID is the fingerprint of RemotePublicKey.
func (s *Session) RemotePeerID() (identity.PeerID, bool) {
	pub, ok := s.RemotePublicKey()
	if !ok {
		return identity.PeerID{}, false
	}
	return identity.PeerIDFromPublicKey(pub), true
}

// RemoteAddr is where Send delivers messages.
func (s *Session) RemoteAddr() string {
	if e := s.est.Load(); e != nil {
		return e.remoteAddr
	}
	return ""
}

// Cipher is the variant used for outbound messages.
func (s *Session) Cipher() crypto.Variant { return s.opts.Cipher }

// Initiate runs the handshake as initiator against addr. It blocks until
// the peer replies, ctx ends, or the handshake timeout elapses.
func (s *Session) Initiate(ctx context.Context, addr string) error {
	const op = "session.Initiate"
	if s.Established() {
		return failure.New(failure.ConnectionFailed, op, ErrAlreadyEstablished)
	}
	if s.opts.Transport == nil {
		return failure.New(failure.ConnectionFailed, op, ErrNoTransport)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return failure.New(failure.ConnectionFailed, op, ErrHandshakeInProgress)
	}
	defer s.busy.Store(false)

	ctx, cancel := context.WithTimeout(ctx, s.opts.HandshakeTimeout)
	defer cancel()

	h := newHandshake(crypto.DirectionInitiator, s.kp, s.opts)
	s.hs.Store(h)
	s.log.Debug("handshake started", "role", h.role, "addr", addr)

	est, err := h.initiate(ctx, s.opts.Transport, addr)
	if err != nil {
		s.log.Warn("handshake failed", "role", h.role, "addr", addr, "kind", failure.KindOf(err), "err", err)
		return err
	}
	return s.publish(h, est, op)
}

// Respond runs the responder side for an inbound KexMessage. The returned
// reply must be sent back to the initiator even when err is non-nil.
func (s *Session) Respond(ctx context.Context, req protocol.KexMessage) (protocol.KexMessage, error) {
	const op = "session.Respond"
	if s.Established() {
		return protocol.Failed(protocol.ErrorCodeInternalError),
			failure.New(failure.ConnectionFailed, op, ErrAlreadyEstablished)
	}
	if !s.busy.CompareAndSwap(false, true) {
		return protocol.Failed(protocol.ErrorCodeInternalError),
			failure.New(failure.ConnectionFailed, op, ErrHandshakeInProgress)
	}
	defer s.busy.Store(false)

	h := newHandshake(crypto.DirectionResponder, s.kp, s.opts)
	s.hs.Store(h)
	if err := ctx.Err(); err != nil {
		h.abort()
		return protocol.Failed(protocol.ErrorCodeInternalError), failure.New(failure.ConnectionFailed, op, err)
	}

	reply, est, err := h.respond(req)
	if err != nil {
		s.log.Warn("handshake rejected", "role", h.role, "remote", req.PublicKey, "kind", failure.KindOf(err), "err", err)
		return reply, err
	}
	if err := s.publish(h, est, op); err != nil {
		return protocol.Failed(protocol.ErrorCodeInternalError), err
	}
	return reply, nil
}

// Abort abandons the in-flight handshake, if any.
func (s *Session) Abort() {
	if h := s.hs.Load(); h != nil {
		h.abort()
	}
}

// publish makes est visible only if h reaches Established. An Abort that
// lands after derive leaves the session unestablished.
func (s *Session) publish(h *Handshake, est *established, op string) error {
	if !h.advance(StateEstablished) {
		return failure.New(failure.ConnectionFailed, op, ErrAborted)
	}
	if !s.est.CompareAndSwap(nil, est) {
		return failure.New(failure.ConnectionFailed, op, ErrAlreadyEstablished)
	}
	s.log.Info("session established",
		"role", est.role,
		"peer", identity.PeerIDFromPublicKey(est.remote).Short(),
		"remote_addr", est.remoteAddr,
		"kdf", s.opts.KeyDerivation,
	)
	return nil
}

// Seal encrypts plaintext into a Message under the next outbound nonce and
// returns the nonce counter used.
func (s *Session) Seal(plaintext string) (protocol.Message, uint64, error) {
	const op = "session.Seal"
	est := s.est.Load()
	if est == nil {
		return protocol.Message{}, 0, failure.New(failure.ConnectionFailed, op, ErrNotEstablished)
	}

	msgType, data := protocol.MsgTypeText, []byte(plaintext)
	if s.opts.Compress {
		if packed, ok := compress.Shrink(data, s.opts.CompressLevel); ok {
			msgType, data = protocol.MsgTypeCompressedText, packed
		}
	}

	aead, ok := est.aeads[s.opts.Cipher]
	if !ok {
		return protocol.Message{}, 0, failure.Newf(failure.UnsupportedCipher, op, "variant %d", uint8(s.opts.Cipher))
	}
	nonce, seq, err := est.send.Next()
	if err != nil {
		return protocol.Message{}, 0, failure.New(failure.Unknown, op, err)
	}
	ct, err := aead.Seal(nonce[:], data, protocol.AssociatedData(msgType, s.opts.Cipher))
	if err != nil {
		return protocol.Message{}, 0, err
	}
	return protocol.Message{
		MsgType:       msgType,
		CipherVariant: s.opts.Cipher,
		Nonce:         nonce,
		EncryptedData: ct,
	}, seq, nil
}

// Send seals plaintext and delivers it to the peer's advertised endpoint.
func (s *Session) Send(ctx context.Context, plaintext string) (uint64, error) {
	const op = "session.Send"
	msg, seq, err := s.Seal(plaintext)
	if err != nil {
		return 0, err
	}
	est := s.est.Load()
	if est.remoteAddr == "" {
		return 0, failure.New(failure.ConnectionFailed, op, ErrNoRemoteEndpoint)
	}
	if s.opts.Transport == nil {
		return 0, failure.New(failure.ConnectionFailed, op, ErrNoTransport)
	}
	d := protocol.Delivery{Sender: s.kp.Public, Message: msg}
	if err := s.opts.Transport.Deliver(ctx, est.remoteAddr, d); err != nil {
		return 0, failure.New(failure.ConnectionFailed, op, err)
	}
	s.log.Debug("message sent", "seq", seq, "type", msg.MsgType, "bytes", len(msg.EncryptedData))
	return seq, nil
}

// Receive authenticates and decrypts msg and queues the plaintext. Nothing
// is queued unless the message authenticates under the session key, carries
// the peer's direction tag and has not been seen before.
func (s *Session) Receive(msg protocol.Message) (uint64, error) {
	const op = "session.Receive"
	est := s.est.Load()
	if est == nil {
		return 0, failure.New(failure.ConnectionFailed, op, ErrNotEstablished)
	}

	aead, ok := est.aeads[msg.CipherVariant]
	if !ok {
		return 0, s.reject(failure.Newf(failure.UnsupportedCipher, op, "variant %d", uint8(msg.CipherVariant)))
	}
	dir, seq, ok := crypto.ParseNonce(msg.Nonce)
	if !ok {
		return 0, s.reject(failure.New(failure.AuthenticationFailed, op, ErrMalformedNonce))
	}
	if dir != est.peerDirection() {
		return 0, s.reject(failure.New(failure.AuthenticationFailed, op, ErrReflected))
	}

	pt, err := aead.Open(msg.Nonce[:], msg.EncryptedData, msg.AssociatedData())
	if err != nil {
		return 0, s.reject(err)
	}
	if est.replay != nil && !est.replay.check(seq) {
		return 0, s.reject(failure.New(failure.AuthenticationFailed, op, ErrReplayed))
	}

	switch msg.MsgType {
	case protocol.MsgTypeText:
	case protocol.MsgTypeCompressedText:
		if pt, err = compress.Decompress(pt); err != nil {
			return 0, s.reject(failure.New(failure.AuthenticationFailed, op, err))
		}
	default:
		return 0, s.reject(failure.New(failure.AuthenticationFailed, op, fmt.Errorf("%w: %d", ErrUnknownMsgType, uint8(msg.MsgType))))
	}

	if !s.inbox.Push(string(pt)) {
		// Dropped, so the same message may be delivered again.
		if est.replay != nil {
			est.replay.forget(seq)
		}
		return 0, failure.New(failure.Unknown, op, ErrInboxFull)
	}
	return seq, nil
}

func (s *Session) reject(err error) error {
	s.log.Debug("message rejected", "kind", failure.KindOf(err), "err", err)
	return err
}

// Pop removes the oldest received plaintext. ok is false when none is queued.
func (s *Session) Pop() (string, bool) { return s.inbox.Pop() }

// Pending returns the number of queued plaintexts.
func (s *Session) Pending() int { return s.inbox.Len() }
