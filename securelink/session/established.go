package session

import (
	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
)

// established is the immutable result of a completed handshake. It is
// published once per Session and never modified afterwards; only the
// nonce counter and replay window inside it change.
type established struct {
	role       crypto.Direction
	remote     identity.PublicKey
	remoteAddr string
	aeads      map[crypto.Variant]*crypto.AEAD
	send       *crypto.NonceSequence
	replay     *replayWindow
}

func newEstablished(key [crypto.KeySize]byte, role crypto.Direction, remote identity.PublicKey, remoteAddr string, replay bool) (*established, error) {
	defer crypto.Wipe(key[:])

	e := &established{
		role:       role,
		remote:     remote,
		remoteAddr: remoteAddr,
		aeads:      make(map[crypto.Variant]*crypto.AEAD, len(crypto.Variants())),
		send:       crypto.NewNonceSequence(role),
	}
	for _, v := range crypto.Variants() {
		a, err := crypto.NewAEAD(v, key[:])
		if err != nil {
			return nil, err
		}
		e.aeads[v] = a
	}
	if replay {
		e.replay = &replayWindow{}
	}
	return e, nil
}

// peerDirection is the direction tag expected on inbound nonces.
func (e *established) peerDirection() crypto.Direction {
	if e.role == crypto.DirectionInitiator {
		return crypto.DirectionResponder
	}
	return crypto.DirectionInitiator
}
