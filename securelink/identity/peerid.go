package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// PeerID is the stable identifier for a peer.
// It is defined as: PeerID = SHA-256(compressed public key).
type PeerID [32]byte

func PeerIDFromPublicKey(publicKey PublicKey) PeerID {
	return PeerID(sha256.Sum256(publicKey[:]))
}

func ParsePeerIDHex(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, err
	}
	if len(b) != len(PeerID{}) {
		return PeerID{}, errors.New("identity: invalid PeerID length")
	}
	var id PeerID
	copy(id[:], b)
	return id, nil
}

func (id PeerID) String() string {
	return hex.EncodeToString(id[:])
}

// Short returns the first 8 bytes in hex, for logs.
func (id PeerID) Short() string {
	return hex.EncodeToString(id[:8])
}
