package quic

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/securelink/securelink/protocol"
	"github.com/TheusHen/securelink/securelink/transport"
)

// Listener accepts QUIC connections and answers one request per stream.
type Listener struct {
	inner  *q.Listener
	conf   Config
	log    *slog.Logger
	closed atomic.Bool
}

func Listen(addr string, conf Config) (*Listener, error) {
	conf = conf.withDefaults()
	tlsConf, err := NewServerTLSConfig()
	if err != nil {
		return nil, err
	}
	ln, err := q.ListenAddr(addr, tlsConf, conf.quicConfig())
	if err != nil {
		return nil, err
	}
	return &Listener{inner: ln, conf: conf, log: conf.Logger.With("component", "quic-listener")}, nil
}

func (l *Listener) Addr() net.Addr { return l.inner.Addr() }

func (l *Listener) AddrString() string {
	if l.inner == nil {
		return ""
	}
	return l.inner.Addr().String()
}

func (l *Listener) Close() error {
	l.closed.Store(true)
	return l.inner.Close()
}

// Serve dispatches inbound requests to h until ctx ends or the listener is
// closed. It returns nil in both of those cases.
func (l *Listener) Serve(ctx context.Context, h transport.Handler) error {
	if h == nil {
		return transport.ErrNoHandler
	}
	for {
		conn, err := l.inner.Accept(ctx)
		if err != nil {
			if l.closed.Load() || ctx.Err() != nil {
				return nil
			}
			return err
		}
		l.log.Debug("connection accepted", "remote", conn.RemoteAddr())
		go l.serveConn(ctx, conn, h)
	}
}

func (l *Listener) serveConn(ctx context.Context, conn q.Connection, h transport.Handler) {
	for {
		st, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go l.serveStream(ctx, conn, st, h)
	}
}

func (l *Listener) serveStream(ctx context.Context, conn q.Connection, st q.Stream, h transport.Handler) {
	defer st.Close()
	_ = st.SetDeadline(time.Now().Add(l.conf.RequestTimeout))

	reply, err := dispatch(ctx, st, h)
	if err != nil {
		l.log.Debug("bad request", "remote", conn.RemoteAddr(), "err", err)
		st.CancelRead(0)
		return
	}
	if err := protocol.WriteFrame(st, reply); err != nil {
		l.log.Debug("reply failed", "remote", conn.RemoteAddr(), "err", err)
	}
}

// dispatch reads one request frame and computes its reply. Only framing
// errors are returned; everything else is answered in-band.
func dispatch(ctx context.Context, r io.Reader, h transport.Handler) (protocol.Frame, error) {
	req, err := protocol.ReadFrame(r)
	if err != nil {
		return protocol.Frame{}, err
	}

	switch req.Type {
	case protocol.MessageTypeHandshake:
		reply := protocol.Failed(protocol.ErrorCodeVerificationFailed)
		if kex, err := protocol.DecodeKex(req.Payload); err == nil {
			reply = h.HandleKex(ctx, kex)
		}
		payload, err := protocol.EncodeKex(reply)
		if err != nil {
			return errorFrame(err), nil
		}
		return protocol.Frame{Type: protocol.MessageTypeHandshake, Payload: payload}, nil

	case protocol.MessageTypeDeliver:
		d, err := protocol.DecodeDelivery(req.Payload)
		if err != nil {
			return errorFrame(err), nil
		}
		if err := h.HandleDelivery(ctx, d); err != nil {
			return errorFrame(err), nil
		}
		return protocol.Frame{Type: protocol.MessageTypeAck}, nil

	default:
		return errorFrame(transport.ErrUnexpected), nil
	}
}

func errorFrame(err error) protocol.Frame {
	return protocol.Frame{Type: protocol.MessageTypeError, Payload: []byte(err.Error())}
}
