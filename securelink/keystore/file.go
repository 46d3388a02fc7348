package keystore

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
)

// FileStore keeps the sealed key pair in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex

	// KDF is used for new envelopes. Zero value means DefaultKDF.
	KDF KDFParams
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Save writes the encrypted key pair to disk.
func (s *FileStore) Save(kp identity.KeyPair, passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := sealKeyPair(kp, passphrase, kdfOrDefault(s.KDF))
	if err != nil {
		return failure.New(failure.KeySaveFailed, "keystore.FileStore.Save", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return failure.New(failure.KeySaveFailed, "keystore.FileStore.Save", err)
	}
	if err := writeFile(s.path, b, 0o600); err != nil {
		return failure.New(failure.KeySaveFailed, "keystore.FileStore.Save", err)
	}
	return nil
}

// Load reads and decrypts the key pair.
func (s *FileStore) Load(passphrase string) (identity.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, "keystore.FileStore.Load", err)
	}
	kp, err := openKeyPair(b, passphrase)
	if err != nil {
		return identity.KeyPair{}, failure.New(failure.KeyLoadFailed, "keystore.FileStore.Load", err)
	}
	return kp, nil
}

func kdfOrDefault(p KDFParams) KDFParams {
	if p.Name == "" {
		return DefaultKDF()
	}
	return p
}

// writeFile writes bytes via a temp file, then atomically replaces the target.
func writeFile(path string, b []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	// Best-effort cleanup if anything fails before rename.
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(mode); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

var _ Store = (*FileStore)(nil)
