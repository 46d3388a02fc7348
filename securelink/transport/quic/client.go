package quic

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sync"
	"time"

	q "github.com/quic-go/quic-go"

	"github.com/TheusHen/securelink/securelink/protocol"
	"github.com/TheusHen/securelink/securelink/transport"
)

// Client is a transport.Caller over QUIC. It keeps one connection per
// address and opens a fresh stream for every call.
type Client struct {
	conf Config
	log  *slog.Logger
	tls  *tls.Config

	mu     sync.Mutex
	conns  map[string]q.Connection
	closed bool
}

func NewClient(conf Config) *Client {
	conf = conf.withDefaults()
	return &Client{
		conf:  conf,
		log:   conf.Logger.With("component", "quic-client"),
		tls:   NewClientTLSConfig(),
		conns: make(map[string]q.Connection),
	}
}

func (c *Client) Handshake(ctx context.Context, addr string, kex protocol.KexMessage) (protocol.KexMessage, error) {
	payload, err := protocol.EncodeKex(kex)
	if err != nil {
		return protocol.KexMessage{}, err
	}
	reply, err := c.call(ctx, addr, protocol.Frame{Type: protocol.MessageTypeHandshake, Payload: payload})
	if err != nil {
		return protocol.KexMessage{}, err
	}
	if err := expect(reply, protocol.MessageTypeHandshake); err != nil {
		return protocol.KexMessage{}, err
	}
	return protocol.DecodeKex(reply.Payload)
}

func (c *Client) Deliver(ctx context.Context, addr string, d protocol.Delivery) error {
	payload, err := protocol.EncodeDelivery(d)
	if err != nil {
		return err
	}
	reply, err := c.call(ctx, addr, protocol.Frame{Type: protocol.MessageTypeDeliver, Payload: payload})
	if err != nil {
		return err
	}
	return expect(reply, protocol.MessageTypeAck)
}

// Close tears down every cached connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for addr, conn := range c.conns {
		_ = conn.CloseWithError(0, "client closed")
		delete(c.conns, addr)
	}
	return nil
}

func expect(f protocol.Frame, want protocol.MessageType) error {
	switch f.Type {
	case want:
		return nil
	case protocol.MessageTypeError:
		return fmt.Errorf("%w: %s", transport.ErrRemote, f.Payload)
	default:
		return fmt.Errorf("%w: got %s, want %s", transport.ErrUnexpected, f.Type, want)
	}
}

// call sends req and waits for the reply. A cached connection that fails
// is replaced and the call retried once.
func (c *Client) call(ctx context.Context, addr string, req protocol.Frame) (protocol.Frame, error) {
	conn, cached, err := c.conn(ctx, addr)
	if err != nil {
		return protocol.Frame{}, err
	}
	reply, err := c.roundTrip(ctx, conn, req)
	if err == nil || !cached || ctx.Err() != nil {
		return reply, err
	}

	c.log.Debug("retrying on fresh connection", "addr", addr, "err", err)
	c.drop(addr, conn)
	if conn, _, err = c.conn(ctx, addr); err != nil {
		return protocol.Frame{}, err
	}
	return c.roundTrip(ctx, conn, req)
}

func (c *Client) roundTrip(ctx context.Context, conn q.Connection, req protocol.Frame) (protocol.Frame, error) {
	st, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return protocol.Frame{}, err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.conf.RequestTimeout)
	}
	_ = st.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		st.CancelRead(0)
		st.CancelWrite(0)
	})
	defer stop()

	if err := protocol.WriteFrame(st, req); err != nil {
		st.CancelRead(0)
		return protocol.Frame{}, c.ctxErr(ctx, err)
	}
	// Closing the send side tells the server the request is complete.
	if err := st.Close(); err != nil {
		return protocol.Frame{}, c.ctxErr(ctx, err)
	}
	reply, err := protocol.ReadFrame(st)
	if err != nil {
		return protocol.Frame{}, c.ctxErr(ctx, err)
	}
	return reply, nil
}

func (c *Client) ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Client) conn(ctx context.Context, addr string) (q.Connection, bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, transport.ErrClosed
	}
	if conn, ok := c.conns[addr]; ok && conn.Context().Err() == nil {
		c.mu.Unlock()
		return conn, true, nil
	}
	c.mu.Unlock()

	conn, err := q.DialAddr(ctx, addr, c.tls.Clone(), c.conf.quicConfig())
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		_ = conn.CloseWithError(0, "client closed")
		return nil, false, transport.ErrClosed
	}
	if existing, ok := c.conns[addr]; ok && existing.Context().Err() == nil {
		_ = conn.CloseWithError(0, "duplicate")
		return existing, true, nil
	}
	c.conns[addr] = conn
	c.log.Debug("connected", "addr", addr)
	return conn, false, nil
}

func (c *Client) drop(addr string, conn q.Connection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conns[addr] == conn {
		delete(c.conns, addr)
	}
	_ = conn.CloseWithError(0, "stale")
}

var _ transport.Caller = (*Client)(nil)
