package crypto

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
)

var ErrNonceExhausted = errors.New("crypto: nonce counter exhausted")

// Direction tags the sender side of a session so that both directions can
// share one key without ever producing the same nonce.
type Direction uint8

const (
	DirectionInitiator Direction = 1
	DirectionResponder Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirectionInitiator:
		return "initiator"
	case DirectionResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// NonceSequence hands out unique 96-bit nonces for one direction.
// Layout: direction (1 byte) || 3 zero bytes || counter (8 bytes, big endian).
// The counter starts at 1 and is advanced atomically.
type NonceSequence struct {
	dir Direction
	seq atomic.Uint64
}

func NewNonceSequence(dir Direction) *NonceSequence {
	return &NonceSequence{dir: dir}
}

// Next returns a fresh nonce and the counter value encoded in it.
func (n *NonceSequence) Next() ([NonceSize]byte, uint64, error) {
	var nonce [NonceSize]byte
	seq := n.seq.Add(1)
	if seq == 0 || seq == math.MaxUint64 {
		// Pin the counter so later calls keep failing.
		n.seq.Store(math.MaxUint64)
		return nonce, 0, ErrNonceExhausted
	}
	nonce[0] = byte(n.dir)
	binary.BigEndian.PutUint64(nonce[4:], seq)
	return nonce, seq, nil
}

// Last returns the most recently issued counter value.
func (n *NonceSequence) Last() uint64 { return n.seq.Load() }

// ParseNonce splits a nonce produced by a NonceSequence.
func ParseNonce(nonce [NonceSize]byte) (Direction, uint64, bool) {
	if nonce[1] != 0 || nonce[2] != 0 || nonce[3] != 0 {
		return 0, 0, false
	}
	dir := Direction(nonce[0])
	if dir != DirectionInitiator && dir != DirectionResponder {
		return 0, 0, false
	}
	return dir, binary.BigEndian.Uint64(nonce[4:]), true
}
