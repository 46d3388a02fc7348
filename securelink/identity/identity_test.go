package identity

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/TheusHen/securelink/securelink/failure"
)

func TestPeerIDDerivationStable(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	id1 := kp.PeerID()
	id2 := PeerIDFromPublicKey(kp.Public)
	if id1 != id2 {
		t.Fatalf("PeerID mismatch")
	}

	parsed, err := ParsePeerIDHex(id1.String())
	if err != nil {
		t.Fatalf("ParsePeerIDHex: %v", err)
	}
	if parsed != id1 {
		t.Fatalf("ParsePeerIDHex mismatch")
	}
}

func TestKeyPairShape(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if kp.Public[0] != 2 && kp.Public[0] != 3 {
		t.Fatalf("expected compressed point prefix, got %#x", kp.Public[0])
	}
	if !kp.Public.Valid() {
		t.Fatalf("generated public key does not decode")
	}

	rebuilt, err := NewKeyPair(kp.Private[:])
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	if rebuilt != kp {
		t.Fatalf("NewKeyPair did not reproduce the pair")
	}

	if _, err := NewKeyPair(make([]byte, PrivateKeySize)); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Fatalf("expected ErrInvalidPrivateKey for zero scalar, got %v", err)
	}
	if _, err := NewKeyPair([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Fatalf("expected ErrInvalidPrivateKey for short key, got %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	kp, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	digest := sha256.Sum256([]byte("hello"))
	sig, err := kp.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(kp.Public, digest, sig) {
		t.Fatalf("signature verification failed")
	}

	kp2, _ := Generate()
	if Verify(kp2.Public, digest, sig) {
		t.Fatalf("expected verification to fail with different public key")
	}
}

func TestVerifyRejectsEveryBitFlip(t *testing.T) {
	kp, _ := Generate()
	digest := sha256.Sum256([]byte("kex digest"))
	sig, err := kp.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	for i := 0; i < len(digest)*8; i++ {
		d := digest
		d[i/8] ^= 1 << (i % 8)
		if Verify(kp.Public, d, sig) {
			t.Fatalf("flipped digest bit %d still verifies", i)
		}
	}
	for i := 0; i < len(sig)*8; i++ {
		s := sig
		s[i/8] ^= 1 << (i % 8)
		if Verify(kp.Public, digest, s) {
			t.Fatalf("flipped signature bit %d still verifies", i)
		}
	}
}

func TestVerifyMalformedPublicKey(t *testing.T) {
	kp, _ := Generate()
	digest := sha256.Sum256([]byte("x"))
	sig, _ := kp.Sign(digest)

	var bad PublicKey
	bad[0] = 7
	if Verify(bad, digest, sig) {
		t.Fatalf("expected malformed key to fail verification")
	}
	if _, err := ParsePublicKeyHex(bad.String()); !errors.Is(err, ErrInvalidPublicKey) {
		t.Fatalf("expected ErrInvalidPublicKey, got %v", err)
	}

	parsed, err := ParsePublicKeyHex(kp.Public.String())
	if err != nil || parsed != kp.Public {
		t.Fatalf("ParsePublicKeyHex round trip failed: %v", err)
	}
}

func TestSignWithCorruptPublicKey(t *testing.T) {
	kp, _ := Generate()
	kp.Public[0] = 9
	_, err := kp.Sign(sha256.Sum256([]byte("x")))
	if !errors.Is(err, failure.SignFailed) {
		t.Fatalf("expected SignFailed, got %v", err)
	}
}

func BenchmarkSign(b *testing.B) {
	kp, _ := Generate()
	digest := sha256.Sum256([]byte("bench"))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = kp.Sign(digest)
	}
}
