package securelink

import (
	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/session"
)

// maxPending bounds responder sessions per identity that have not yet
// carried an authenticated message.
const maxPending = 4

type candidate struct {
	s   *session.Session
	eph [crypto.PointSize]byte
}

// sessionSet holds the sessions with one remote identity. live is used for
// sending and tried first on receive. A session created by an inbound
// handshake stays pending until a message authenticates under it, so a
// replayed KexMessage cannot displace a working session.
type sessionSet struct {
	live    candidate
	pending []candidate
}

// seen reports whether eph already keyed one of the sessions in the set.
func (set *sessionSet) seen(eph [crypto.PointSize]byte) bool {
	if set.live.s != nil && set.live.eph == eph {
		return true
	}
	for _, c := range set.pending {
		if c.eph == eph {
			return true
		}
	}
	return false
}

// add registers c as pending, evicting the oldest pending session when full.
func (set *sessionSet) add(c candidate) {
	if set.live.s == nil {
		set.live = c
		return
	}
	if len(set.pending) == maxPending {
		copy(set.pending, set.pending[1:])
		set.pending = set.pending[:maxPending-1]
	}
	set.pending = append(set.pending, c)
}

// promote makes s live and drops the pending sessions older than it.
func (set *sessionSet) promote(s *session.Session) {
	for i, c := range set.pending {
		if c.s == s {
			set.live = c
			set.pending = append([]candidate(nil), set.pending[i+1:]...)
			return
		}
	}
}

func (set *sessionSet) snapshot() (*session.Session, []*session.Session) {
	out := make([]*session.Session, 0, len(set.pending))
	for i := len(set.pending) - 1; i >= 0; i-- {
		out = append(out, set.pending[i].s)
	}
	return set.live.s, out
}
