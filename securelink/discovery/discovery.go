package discovery

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/TheusHen/securelink/securelink/identity"
)

var (
	ErrNotFound  = errors.New("peer not found")
	ErrMalformed = errors.New("malformed peer entry")
)

// AddrInfo tells a peer where another identity can be reached.
// Discovery data is a hint only: the handshake authenticates the key.
type AddrInfo struct {
	PublicKey identity.PublicKey
	Host      string
	Port      uint16
	Labels    map[string]string
	Seen      time.Time
}

func (a AddrInfo) PeerID() identity.PeerID { return identity.PeerIDFromPublicKey(a.PublicKey) }

// Addr returns host:port.
func (a AddrInfo) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// Clone returns a copy that shares no state with a.
func (a AddrInfo) Clone() AddrInfo {
	if a.Labels != nil {
		labels := make(map[string]string, len(a.Labels))
		for k, v := range a.Labels {
			labels[k] = v
		}
		a.Labels = labels
	}
	return a
}

// Resolver is a generic discovery interface.
// Implementations can be backed by static lists, DNS, a rendezvous server, etc.
type Resolver interface {
	Announce(info AddrInfo) error
	Lookup(peerID identity.PeerID) (AddrInfo, error)
	List() ([]AddrInfo, error)
	Forget(peerID identity.PeerID) error
}

// ParseAddrList reads one peer per line in the form
//
//	<hex public key> <host:port> [key=value ...]
//
// Blank lines and lines starting with '#' are skipped.
func ParseAddrList(r io.Reader) ([]AddrInfo, error) {
	var out []AddrInfo
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d", ErrMalformed, line)
		}
		pub, err := identity.ParsePublicKeyHex(fields[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		host, portStr, err := net.SplitHostPort(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil || port == 0 {
			return nil, fmt.Errorf("%w: line %d: bad port %q", ErrMalformed, line, portStr)
		}
		info := AddrInfo{PublicKey: pub, Host: host, Port: uint16(port)}
		for _, kv := range fields[2:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("%w: line %d: label %q", ErrMalformed, line, kv)
			}
			if info.Labels == nil {
				info.Labels = map[string]string{}
			}
			info.Labels[k] = v
		}
		out = append(out, info)
	}
	return out, sc.Err()
}
