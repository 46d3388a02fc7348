package quic

import (
	"log/slog"
	"time"

	q "github.com/quic-go/quic-go"
)

const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
)

type Config struct {
	// RequestTimeout bounds one request/reply exchange when the caller's
	// context has no deadline, and every exchange on the serving side.
	RequestTimeout time.Duration
	// IdleTimeout closes cached connections that carried no traffic.
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

func (c Config) quicConfig() *q.Config {
	return &q.Config{
		MaxIdleTimeout:  c.IdleTimeout,
		KeepAlivePeriod: c.IdleTimeout / 3,
	}
}
