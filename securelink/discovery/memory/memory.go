package memory

import (
	"sync"
	"time"

	"github.com/TheusHen/securelink/securelink/discovery"
	"github.com/TheusHen/securelink/securelink/identity"
)

// Store is an in-memory discovery resolver.
// It is useful for tests, examples and embedding in applications.
// Entries older than the TTL are treated as absent; a zero TTL keeps them forever.
type Store struct {
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	peers map[identity.PeerID]discovery.AddrInfo
}

func New(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, peers: map[identity.PeerID]discovery.AddrInfo{}}
}

func (s *Store) Announce(info discovery.AddrInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info = info.Clone()
	if info.Seen.IsZero() {
		info.Seen = s.now()
	}
	s.peers[info.PeerID()] = info
	return nil
}

func (s *Store) Lookup(peerID identity.PeerID) (discovery.AddrInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.peers[peerID]
	if !ok || s.expired(info) {
		return discovery.AddrInfo{}, discovery.ErrNotFound
	}
	return info.Clone(), nil
}

func (s *Store) List() ([]discovery.AddrInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]discovery.AddrInfo, 0, len(s.peers))
	for _, info := range s.peers {
		if !s.expired(info) {
			out = append(out, info.Clone())
		}
	}
	return out, nil
}

func (s *Store) Forget(peerID identity.PeerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, peerID)
	return nil
}

// Prune drops expired entries and returns how many were removed.
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, info := range s.peers {
		if s.expired(info) {
			delete(s.peers, id)
			n++
		}
	}
	return n
}

func (s *Store) expired(info discovery.AddrInfo) bool {
	return s.ttl > 0 && s.now().Sub(info.Seen) > s.ttl
}

var _ discovery.Resolver = (*Store)(nil)
