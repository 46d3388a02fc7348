package keystore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TheusHen/securelink/securelink/failure"
	"github.com/TheusHen/securelink/securelink/identity"
)

// Cheap parameters keep the tests fast; production uses DefaultKDF.
var (
	testArgon  = KDFParams{Name: kdfArgon2id, Time: 1, Memory: 1024, Threads: 1}
	testScrypt = KDFParams{Name: kdfScrypt, N: 1 << 10, R: 8, P: 1}
)

func newKeyPair(t *testing.T) identity.KeyPair {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return kp
}

func TestFileStoreSaveLoad(t *testing.T) {
	for _, params := range []KDFParams{testArgon, testScrypt} {
		path := filepath.Join(t.TempDir(), "keys", "identity.key")
		st := NewFileStore(path)
		st.KDF = params

		kp := newKeyPair(t)
		if err := st.Save(kp, "correct horse"); err != nil {
			t.Fatalf("%s Save: %v", params.Name, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
		}

		got, err := st.Load("correct horse")
		if err != nil {
			t.Fatalf("%s Load: %v", params.Name, err)
		}
		if got != kp {
			t.Fatalf("%s mismatch after load", params.Name)
		}
	}
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "identity.key"))
	st.KDF = testArgon
	if err := st.Save(newKeyPair(t), "correct"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	_, err := st.Load("wrong")
	if !errors.Is(err, failure.KeyLoadFailed) {
		t.Fatalf("expected KeyLoadFailed, got %v", err)
	}
	if !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase cause, got %v", err)
	}
}

func TestFileStoreCorruptAndMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "identity.key")
	st := NewFileStore(path)
	st.KDF = testArgon

	if _, err := st.Load("pw"); !errors.Is(err, failure.KeyLoadFailed) {
		t.Fatalf("missing file: expected KeyLoadFailed, got %v", err)
	}

	if err := st.Save(newKeyPair(t), "pw"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, _ := os.ReadFile(path)
	corrupted := strings.Replace(string(b), `"cipher":"`, `"cipher":"AAAA`, 1)
	if err := os.WriteFile(path, []byte(corrupted), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := st.Load("pw"); !errors.Is(err, failure.KeyLoadFailed) {
		t.Fatalf("corrupt file: expected KeyLoadFailed, got %v", err)
	}

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := st.Load("pw"); !errors.Is(err, failure.KeyLoadFailed) {
		t.Fatalf("format mismatch: expected KeyLoadFailed, got %v", err)
	}
}

func TestRecordRejectsMismatchedPublicKey(t *testing.T) {
	a, b := newKeyPair(t), newKeyPair(t)
	raw, _ := marshalKeyPair(identity.KeyPair{Public: b.Public, Private: a.Private})
	if _, err := unmarshalKeyPair(raw); !errors.Is(err, ErrKeyMismatch) {
		t.Fatalf("expected ErrKeyMismatch, got %v", err)
	}
}

func TestFileStoreSaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	st := NewFileStore(filepath.Join(blocker, "identity.key"))
	st.KDF = testArgon
	if err := st.Save(newKeyPair(t), "pw"); !errors.Is(err, failure.KeySaveFailed) {
		t.Fatalf("expected KeySaveFailed, got %v", err)
	}
}

func TestShardedStoreSurvivesLostShard(t *testing.T) {
	root := t.TempDir()
	dirs := []string{filepath.Join(root, "a"), filepath.Join(root, "b"), filepath.Join(root, "c")}
	st, err := NewShardedStore(dirs, 1, testArgon)
	if err != nil {
		t.Fatalf("NewShardedStore: %v", err)
	}

	kp := newKeyPair(t)
	if err := st.Save(kp, "pw"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Lose one directory entirely.
	if err := os.RemoveAll(dirs[1]); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	got, err := st.Load("pw")
	if err != nil {
		t.Fatalf("Load with one lost shard: %v", err)
	}
	if got != kp {
		t.Fatalf("mismatch after reconstruction")
	}

	// Corrupt a second shard: now too many are gone.
	if err := os.WriteFile(filepath.Join(dirs[0], shardFilename), []byte(`{"v":1}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err = st.Load("pw")
	if !errors.Is(err, failure.KeyLoadFailed) || !errors.Is(err, ErrTooManyLost) {
		t.Fatalf("expected KeyLoadFailed/ErrTooManyLost, got %v", err)
	}
}

func TestShardedStoreWrongPassphrase(t *testing.T) {
	root := t.TempDir()
	st, _ := NewShardedStore([]string{filepath.Join(root, "a"), filepath.Join(root, "b")}, 1, testArgon)
	if err := st.Save(newKeyPair(t), "pw"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := st.Load("nope"); !errors.Is(err, ErrWrongPassphrase) {
		t.Fatalf("expected ErrWrongPassphrase, got %v", err)
	}
}

func TestOpenLocators(t *testing.T) {
	root := t.TempDir()

	st, err := Open(filepath.Join(root, "id.key"), testArgon)
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := st.(*FileStore); !ok {
		t.Fatalf("expected *FileStore, got %T", st)
	}

	st, err = Open(ShardPrefix+filepath.Join(root, "a")+", "+filepath.Join(root, "b")+","+filepath.Join(root, "c"), testArgon)
	if err != nil {
		t.Fatalf("Open shards: %v", err)
	}
	ss, ok := st.(*ShardedStore)
	if !ok {
		t.Fatalf("expected *ShardedStore, got %T", st)
	}
	if ss.dataShards != 2 || ss.parityShards != 1 {
		t.Fatalf("unexpected shard layout %d+%d", ss.dataShards, ss.parityShards)
	}

	if _, err := Open(ShardPrefix+filepath.Join(root, "only"), testArgon); !errors.Is(err, ErrInvalidShardConfig) {
		t.Fatalf("expected ErrInvalidShardConfig, got %v", err)
	}
	if _, err := Open("", testArgon); err == nil {
		t.Fatalf("expected error for empty locator")
	}
}

func TestUnsupportedKDF(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "id.key"))
	st.KDF = KDFParams{Name: "md5"}
	err := st.Save(newKeyPair(t), "pw")
	if !errors.Is(err, failure.KeySaveFailed) || !errors.Is(err, ErrUnsupportedKDF) {
		t.Fatalf("expected KeySaveFailed/ErrUnsupportedKDF, got %v", err)
	}
}

func TestFileStoreRejectsTamperedKDFParams(t *testing.T) {
	cases := map[string]struct {
		base   KDFParams
		mutate func(p *KDFParams)
	}{
		"scrypt huge N":     {testScrypt, func(p *KDFParams) { p.N = 1 << 40 }},
		"scrypt N not pow2": {testScrypt, func(p *KDFParams) { p.N = 1000 }},
		"scrypt huge r":     {testScrypt, func(p *KDFParams) { p.R = 1 << 20 }},
		"scrypt zero p":     {testScrypt, func(p *KDFParams) { p.P = 0 }},
		"argon huge memory": {testArgon, func(p *KDFParams) { p.Memory = 1 << 30 }},
		"argon huge time":   {testArgon, func(p *KDFParams) { p.Time = 1 << 20 }},
		"argon no threads":  {testArgon, func(p *KDFParams) { p.Threads = 0 }},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "identity.key")
			st := NewFileStore(path)
			st.KDF = c.base
			if err := st.Save(newKeyPair(t), "pw"); err != nil {
				t.Fatalf("Save: %v", err)
			}

			b, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			var env envelope
			if err := json.Unmarshal(b, &env); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			c.mutate(&env.KDF)
			if b, err = json.Marshal(env); err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if err := os.WriteFile(path, b, 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			_, err = st.Load("pw")
			if !errors.Is(err, failure.KeyLoadFailed) {
				t.Fatalf("expected KeyLoadFailed, got %v", err)
			}
			if !errors.Is(err, ErrKDFParams) && !errors.Is(err, ErrUnsupportedKDF) {
				t.Fatalf("expected parameter rejection, got %v", err)
			}
		})
	}
}

func TestSaveRejectsOutOfRangeKDF(t *testing.T) {
	st := NewFileStore(filepath.Join(t.TempDir(), "id.key"))
	st.KDF = KDFParams{Name: kdfScrypt, N: 1 << 24, R: 8, P: 1}
	if err := st.Save(newKeyPair(t), "pw"); !errors.Is(err, ErrKDFParams) {
		t.Fatalf("expected ErrKDFParams, got %v", err)
	}
}
