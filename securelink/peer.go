package securelink

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/TheusHen/securelink/securelink/discovery"
	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/protocol"
	"github.com/TheusHen/securelink/securelink/session"
	"github.com/TheusHen/securelink/securelink/transport"
	"github.com/TheusHen/securelink/securelink/transport/quic"
)

var (
	ErrNotListening   = errors.New("peer is not listening")
	ErrAlreadyRunning = errors.New("peer is already listening")
	ErrUnknownSender  = errors.New("no session for sender")
	ErrNoResolver     = errors.New("no resolver configured")
)

type Config struct {
	// Session is the template for every session this peer creates.
	// Transport, Local and Logger are filled in by the peer.
	Session session.Options

	Transport quic.Config

	// Resolver is consulted by ConnectPeer and learns the endpoints of
	// peers that complete a handshake.
	Resolver discovery.Resolver

	// AdvertiseHost is placed in outgoing KexMessages instead of the
	// listener's IP.
	AdvertiseHost string

	// OnMessage runs after a delivered message has been queued.
	OnMessage func(s *session.Session)

	Logger *slog.Logger
}

// Peer is a high-level helper that combines transport + sessions.
// It sends through one live session per remote identity. Connect replaces
// that session; an inbound handshake only replaces it once the new session
// has received an authenticated message.
type Peer struct {
	KeyPair identity.KeyPair

	conf   Config
	log    *slog.Logger
	client *quic.Client

	lnMu     sync.Mutex
	listener *quic.Listener
	cancel   context.CancelFunc
	done     chan struct{}

	mu       sync.RWMutex
	sessions map[identity.PublicKey]*sessionSet
}

func NewPeer(kp identity.KeyPair, conf Config) *Peer {
	if conf.Logger == nil {
		conf.Logger = slog.Default()
	}
	if conf.Transport.Logger == nil {
		conf.Transport.Logger = conf.Logger
	}
	return &Peer{
		KeyPair:  kp,
		conf:     conf,
		log:      conf.Logger.With("peer", kp.PeerID().Short()),
		client:   quic.NewClient(conf.Transport),
		sessions: make(map[identity.PublicKey]*sessionSet),
	}
}

// Listen binds addr and serves inbound handshakes and deliveries in the
// background until Close.
func (p *Peer) Listen(addr string) error {
	p.lnMu.Lock()
	defer p.lnMu.Unlock()
	if p.listener != nil {
		return ErrAlreadyRunning
	}
	ln, err := quic.Listen(addr, p.conf.Transport)
	if err != nil {
		return failure.New(failure.ConnectionFailed, "securelink.Listen", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ln.Serve(ctx, p); err != nil {
			p.log.Error("listener stopped", "err", err)
		}
	}()
	p.listener, p.cancel, p.done = ln, cancel, done
	p.log.Info("listening", "addr", ln.AddrString())
	return nil
}

func (p *Peer) ListenAddr() string {
	p.lnMu.Lock()
	defer p.lnMu.Unlock()
	if p.listener == nil {
		return ""
	}
	return p.listener.AddrString()
}

// Close stops the listener and drops every cached connection.
func (p *Peer) Close() error {
	p.lnMu.Lock()
	ln, cancel, done := p.listener, p.cancel, p.done
	p.listener, p.cancel, p.done = nil, nil, nil
	p.lnMu.Unlock()

	var errs []error
	if ln != nil {
		cancel()
		errs = append(errs, ln.Close())
		<-done
	}
	errs = append(errs, p.client.Close())
	return errors.Join(errs...)
}

// local is the endpoint advertised in KexMessages. An unspecified listen
// IP is advertised as loopback unless AdvertiseHost is set.
func (p *Peer) local() session.Endpoint {
	addr := p.ListenAddr()
	if addr == "" {
		return session.Endpoint{}
	}
	ap, err := netip.ParseAddrPort(addr)
	if err != nil {
		return session.Endpoint{}
	}
	host := p.conf.AdvertiseHost
	if host == "" {
		ip := ap.Addr().Unmap()
		switch {
		case !ip.IsUnspecified():
			host = ip.String()
		case ip.Is4():
			host = "127.0.0.1"
		default:
			host = "::1"
		}
	}
	return session.Endpoint{Host: host, Port: int32(ap.Port())}
}

func (p *Peer) newSession(expected *identity.PublicKey) *session.Session {
	opts := p.conf.Session
	opts.Transport = p.client
	opts.Local = p.local()
	opts.Logger = p.conf.Logger
	if expected != nil {
		opts.ExpectedPeer = expected
	}
	return session.New(p.KeyPair, opts)
}

// Connect runs a handshake with the peer at addr.
func (p *Peer) Connect(ctx context.Context, addr string) (*session.Session, error) {
	return p.connect(ctx, addr, nil)
}

// ConnectPeer resolves id and runs a handshake pinned to the resolved key.
func (p *Peer) ConnectPeer(ctx context.Context, id identity.PeerID) (*session.Session, error) {
	if p.conf.Resolver == nil {
		return nil, failure.New(failure.ConnectionFailed, "securelink.ConnectPeer", ErrNoResolver)
	}
	info, err := p.conf.Resolver.Lookup(id)
	if err != nil {
		return nil, failure.New(failure.ConnectionFailed, "securelink.ConnectPeer", err)
	}
	pub := info.PublicKey
	return p.connect(ctx, info.Addr(), &pub)
}

func (p *Peer) connect(ctx context.Context, addr string, expected *identity.PublicKey) (*session.Session, error) {
	s := p.newSession(expected)
	if err := s.Initiate(ctx, addr); err != nil {
		return nil, err
	}
	remote, _ := s.RemotePublicKey()
	p.mu.Lock()
	set := p.set(remote)
	set.live = candidate{s: s}
	p.mu.Unlock()
	p.announce(remote, addr)
	return s, nil
}

// set returns the session set for remote. p.mu must be held for writing.
func (p *Peer) set(remote identity.PublicKey) *sessionSet {
	set, ok := p.sessions[remote]
	if !ok {
		set = &sessionSet{}
		p.sessions[remote] = set
	}
	return set
}

// announce records where remote was reached.
func (p *Peer) announce(remote identity.PublicKey, addr string) {
	if p.conf.Resolver == nil || addr == "" {
		return
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		p.log.Debug("endpoint not recorded", "addr", addr, "err", err)
		return
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil || port == 0 {
		p.log.Debug("endpoint not recorded", "addr", addr, "err", "bad port")
		return
	}
	err = p.conf.Resolver.Announce(discovery.AddrInfo{
		PublicKey: remote,
		Host:      host,
		Port:      uint16(port),
		Seen:      time.Now(),
	})
	if err != nil {
		p.log.Debug("endpoint not recorded", "addr", addr, "err", err)
	}
}

// Session returns the live session with remote.
func (p *Peer) Session(remote identity.PublicKey) (*session.Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	set, ok := p.sessions[remote]
	if !ok || set.live.s == nil {
		return nil, false
	}
	return set.live.s, true
}

// Sessions returns the live session of every known identity.
func (p *Peer) Sessions() []*session.Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*session.Session, 0, len(p.sessions))
	for _, set := range p.sessions {
		if set.live.s != nil {
			out = append(out, set.live.s)
		}
	}
	return out
}

// HandleKex answers an inbound handshake with a fresh responder session.
// A KexMessage whose ephemeral key already keyed a session is a replay and
// is refused.
func (p *Peer) HandleKex(ctx context.Context, kex protocol.KexMessage) protocol.KexMessage {
	p.mu.RLock()
	set, ok := p.sessions[kex.PublicKey]
	replayed := ok && set.seen(kex.PublicEcdheKey)
	p.mu.RUnlock()
	if replayed {
		p.log.Debug("replayed handshake", "remote", identity.PeerIDFromPublicKey(kex.PublicKey).Short())
		return protocol.Failed(protocol.ErrorCodeVerificationFailed)
	}

	s := p.newSession(nil)
	reply, err := s.Respond(ctx, kex)
	if err != nil {
		return reply
	}

	p.mu.Lock()
	set = p.set(kex.PublicKey)
	if set.seen(kex.PublicEcdheKey) {
		p.mu.Unlock()
		s.Abort()
		return protocol.Failed(protocol.ErrorCodeVerificationFailed)
	}
	set.add(candidate{s: s, eph: kex.PublicEcdheKey})
	p.mu.Unlock()

	p.announce(kex.PublicKey, s.RemoteAddr())
	return reply
}

// HandleDelivery routes a message to the sessions keyed by its sender: the
// live one first, then pending ones newest first. A pending session that
// authenticates the message becomes live.
func (p *Peer) HandleDelivery(ctx context.Context, d protocol.Delivery) error {
	p.mu.RLock()
	set, ok := p.sessions[d.Sender]
	var (
		live    *session.Session
		pending []*session.Session
	)
	if ok {
		live, pending = set.snapshot()
	}
	p.mu.RUnlock()
	if live == nil {
		p.log.Debug("delivery for unknown sender", "sender", identity.PeerIDFromPublicKey(d.Sender).Short())
		return ErrUnknownSender
	}

	_, err := live.Receive(d.Message)
	if err == nil {
		p.notify(live)
		return nil
	}
	if !errors.Is(err, failure.AuthenticationFailed) {
		return err
	}
	for _, s := range pending {
		if _, perr := s.Receive(d.Message); perr != nil {
			continue
		}
		p.mu.Lock()
		set.promote(s)
		p.mu.Unlock()
		p.log.Info("session replaced", "remote", identity.PeerIDFromPublicKey(d.Sender).Short(), "session", s.ID().String())
		p.notify(s)
		return nil
	}
	return err
}

func (p *Peer) notify(s *session.Session) {
	if p.conf.OnMessage != nil {
		p.conf.OnMessage(s)
	}
}

var _ transport.Handler = (*Peer)(nil)
