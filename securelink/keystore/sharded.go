package keystore

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/reedsolomon"

	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
)

const shardFilename = "identity.shard"

var (
	ErrTooManyLost        = errors.New("keystore: too many shards lost, cannot recover")
	ErrInvalidShardConfig = errors.New("keystore: invalid data/parity configuration")
)

// ShardedStore spreads the sealed key pair over several directories with
// Reed-Solomon parity, so up to parity directories may be lost or corrupted.
// Each shard holds only a slice of ciphertext.
type ShardedStore struct {
	dirs         []string
	dataShards   int
	parityShards int
	enc          reedsolomon.Encoder
	mu           sync.Mutex

	// KDF is used for new envelopes. Zero value means DefaultKDF.
	KDF KDFParams
}

// shardFile is the on-disk layout of one shard.
type shardFile struct {
	V      int    `json:"v"`
	Index  int    `json:"index"`
	Data   int    `json:"data"`
	Parity int    `json:"parity"`
	Size   int    `json:"size"`
	Sum    []byte `json:"sha256"`
	Shard  []byte `json:"shard"`
}

// NewShardedStore creates a store over dirs, of which parity hold parity shards.
func NewShardedStore(dirs []string, parity int, params KDFParams) (*ShardedStore, error) {
	if parity <= 0 || len(dirs) <= parity {
		return nil, ErrInvalidShardConfig
	}
	data := len(dirs) - parity
	enc, err := reedsolomon.New(data, parity)
	if err != nil {
		return nil, err
	}
	return &ShardedStore{
		dirs:         append([]string(nil), dirs...),
		dataShards:   data,
		parityShards: parity,
		enc:          enc,
		KDF:          params,
	}, nil
}

// Save seals the key pair, splits it into shards and writes one per directory.
func (s *ShardedStore) Save(kp identity.KeyPair, passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "keystore.ShardedStore.Save"
	blob, err := sealKeyPair(kp, passphrase, kdfOrDefault(s.KDF))
	if err != nil {
		return failure.New(failure.KeySaveFailed, op, err)
	}
	shards, err := s.enc.Split(blob)
	if err != nil {
		return failure.New(failure.KeySaveFailed, op, err)
	}
	if err := s.enc.Encode(shards); err != nil {
		return failure.New(failure.KeySaveFailed, op, err)
	}

	for i, dir := range s.dirs {
		sum := sha256.Sum256(shards[i])
		b, err := json.Marshal(shardFile{
			V:      formatVersion,
			Index:  i,
			Data:   s.dataShards,
			Parity: s.parityShards,
			Size:   len(blob),
			Sum:    sum[:],
			Shard:  shards[i],
		})
		if err != nil {
			return failure.New(failure.KeySaveFailed, op, err)
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return failure.New(failure.KeySaveFailed, op, err)
		}
		if err := writeFile(filepath.Join(dir, shardFilename), b, 0o600); err != nil {
			return failure.New(failure.KeySaveFailed, op, fmt.Errorf("shard %d: %w", i, err))
		}
	}
	return nil
}

// Load collects the surviving shards, reconstructs the envelope and opens it.
// Missing, unreadable or corrupted shards count as lost.
func (s *ShardedStore) Load(passphrase string) (identity.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	const op = "keystore.ShardedStore.Load"
	shards := make([][]byte, len(s.dirs))
	size, present := -1, 0
	for i, dir := range s.dirs {
		sf, ok := s.readShard(filepath.Join(dir, shardFilename), i)
		if !ok {
			continue
		}
		if size >= 0 && sf.Size != size {
			continue
		}
		size = sf.Size
		shards[i] = sf.Shard
		present++
	}
	if present < s.dataShards {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, op, ErrTooManyLost)
	}

	if err := s.enc.ReconstructData(shards); err != nil {
		if errors.Is(err, reedsolomon.ErrTooFewShards) {
			err = ErrTooManyLost
		}
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, op, err)
	}
	var buf bytes.Buffer
	if err := s.enc.Join(&buf, shards, size); err != nil {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, op, err)
	}

	kp, err := openKeyPair(buf.Bytes(), passphrase)
	if err != nil {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, op, err)
	}
	return kp, nil
}

func (s *ShardedStore) readShard(path string, index int) (shardFile, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return shardFile{}, false
	}
	var sf shardFile
	if err := json.Unmarshal(b, &sf); err != nil {
		return shardFile{}, false
	}
	if sf.V != formatVersion || sf.Index != index || sf.Data != s.dataShards || sf.Parity != s.parityShards || sf.Size <= 0 {
		return shardFile{}, false
	}
	sum := sha256.Sum256(sf.Shard)
	if !bytes.Equal(sum[:], sf.Sum) {
		return shardFile{}, false
	}
	return sf, true
}

var _ Store = (*ShardedStore)(nil)
