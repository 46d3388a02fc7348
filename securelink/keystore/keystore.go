package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
)

// ShardPrefix selects a ShardedStore in a locator: "shards:dir1,dir2,dir3".
const ShardPrefix = "shards:"

var ErrKeyMismatch = errors.New("keystore: public key does not match private key")

// Store persists one identity key pair under a passphrase.
type Store interface {
	Save(kp identity.KeyPair, passphrase string) error
	Load(passphrase string) (identity.KeyPair, error)
}

// Open returns the Store named by locator. A plain path selects a FileStore;
// a "shards:" list selects a ShardedStore with one parity shard.
func Open(locator string, params KDFParams) (Store, error) {
	if rest, ok := strings.CutPrefix(locator, ShardPrefix); ok {
		var dirs []string
		for _, d := range strings.Split(rest, ",") {
			if d = strings.TrimSpace(d); d != "" {
				dirs = append(dirs, d)
			}
		}
		return NewShardedStore(dirs, 1, params)
	}
	if locator == "" {
		return nil, errors.New("keystore: empty locator")
	}
	fs := NewFileStore(locator)
	fs.KDF = params
	return fs, nil
}

// Load decrypts the key pair stored at locator.
func Load(locator, passphrase string) (identity.KeyPair, error) {
	st, err := Open(locator, DefaultKDF())
	if err != nil {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, "keystore.Load", err)
	}
	return st.Load(passphrase)
}

// Save encrypts kp under passphrase and writes it to locator.
func Save(kp identity.KeyPair, locator, passphrase string) error {
	st, err := Open(locator, DefaultKDF())
	if err != nil {
		return failure.New(failure.KeySaveFailed, "keystore.Save", err)
	}
	return st.Save(kp, passphrase)
}

// record is the plaintext sealed inside an envelope.
type record struct {
	Private []byte `json:"private"`
	Public  []byte `json:"public"`
}

func marshalKeyPair(kp identity.KeyPair) ([]byte, error) {
	return json.Marshal(record{Private: kp.Private[:], Public: kp.Public[:]})
}

// unmarshalKeyPair parses a record and checks that the stored public key
// is the one derived from the private key.
func unmarshalKeyPair(b []byte) (identity.KeyPair, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return identity.KeyPair{}, err
	}
	kp, err := identity.NewKeyPair(r.Private)
	if err != nil {
		return identity.KeyPair{}, err
	}
	if len(r.Public) != identity.PublicKeySize || string(r.Public) != string(kp.Public[:]) {
		return identity.KeyPair{}, ErrKeyMismatch
	}
	return kp, nil
}

func sealKeyPair(kp identity.KeyPair, passphrase string, params KDFParams) ([]byte, error) {
	raw, err := marshalKeyPair(kp)
	if err != nil {
		return nil, err
	}
	return seal(passphrase, raw, params)
}

func openKeyPair(b []byte, passphrase string) (identity.KeyPair, error) {
	raw, err := open(passphrase, b)
	if err != nil {
		return identity.KeyPair{}, err
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	kp, err := unmarshalKeyPair(raw)
	if err != nil {
		return identity.KeyPair{}, fmt.Errorf("keystore: malformed key record: %w", err)
	}
	return kp, nil
}
