package protocol

import (
	"testing"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/vmihailenco/msgpack/v5"
)

func signedKex(t *testing.T) (KexMessage, identity.KeyPair) {
	t.Helper()
	kp, err := identity.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	eph, err := crypto.GenerateEphemeral()
	if err != nil {
		t.Fatalf("GenerateEphemeral: %v", err)
	}
	kex := NewKex(kp.Public, eph.Public, "127.0.0.1", 4242)
	if err := kex.Sign(kp); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	return kex, kp
}

func TestKexSignAndVerify(t *testing.T) {
	kex, _ := signedKex(t)
	if err := kex.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	encoded, err := EncodeKex(kex)
	if err != nil {
		t.Fatalf("EncodeKex: %v", err)
	}
	decoded, err := DecodeKex(encoded)
	if err != nil {
		t.Fatalf("DecodeKex: %v", err)
	}
	if err := decoded.Verify(); err != nil {
		t.Fatalf("Verify after decode: %v", err)
	}
	if decoded != kex {
		t.Fatalf("decoded kex differs")
	}
}

func TestKexTamperDetected(t *testing.T) {
	kex, _ := signedKex(t)

	tampered := kex
	other, _ := crypto.GenerateEphemeral()
	tampered.PublicEcdheKey = other.Public
	if err := tampered.Verify(); err != ErrKexBadSignature {
		t.Fatalf("ecdhe swap: expected ErrKexBadSignature, got %v", err)
	}

	tampered = kex
	tampered.Port++
	if err := tampered.Verify(); err != ErrKexBadSignature {
		t.Fatalf("port change: expected ErrKexBadSignature, got %v", err)
	}

	tampered = kex
	tampered.IPAddress = "10.0.0.1"
	if err := tampered.Verify(); err != ErrKexBadSignature {
		t.Fatalf("ip change: expected ErrKexBadSignature, got %v", err)
	}

	// Re-signing under a different identity with the victim's key claimed.
	tampered = kex
	attacker, _ := identity.Generate()
	_ = tampered.Sign(attacker)
	if err := tampered.Verify(); err != ErrKexBadSignature {
		t.Fatalf("foreign signer: expected ErrKexBadSignature, got %v", err)
	}
}

func TestKexErrorCodeNeverVerifies(t *testing.T) {
	kex, kp := signedKex(t)
	kex.ErrorCode = ErrorCodeVerificationFailed
	_ = kex.Sign(kp)
	if err := kex.Verify(); err != ErrKexNotOK {
		t.Fatalf("expected ErrKexNotOK, got %v", err)
	}
	if err := Failed(ErrorCodeInternalError).Verify(); err != ErrKexNotOK {
		t.Fatalf("expected ErrKexNotOK for Failed(), got %v", err)
	}
}

func TestKexDigestOrderSensitive(t *testing.T) {
	kex, _ := signedKex(t)
	d1, _ := kex.Digest()

	// Moving a byte from the address into the port must change the digest.
	shifted := kex
	shifted.IPAddress = kex.IPAddress[:len(kex.IPAddress)-1]
	shifted.Port = kex.Port*10 + 1
	d2, _ := shifted.Digest()
	if d1 == d2 {
		t.Fatalf("digest collision across field boundary")
	}

	// The signature is not part of the digest.
	kex.Signature[0] ^= 1
	d3, _ := kex.Digest()
	if d1 != d3 {
		t.Fatalf("signature leaked into digest")
	}
}

func TestKexWireIsOrderedArray(t *testing.T) {
	kex, _ := signedKex(t)
	encoded, _ := EncodeKex(kex)

	var fields []interface{}
	if err := msgpack.Unmarshal(encoded, &fields); err != nil {
		t.Fatalf("decode as array: %v", err)
	}
	if len(fields) != 6 {
		t.Fatalf("expected 6 positional fields, got %d", len(fields))
	}
	if ip, ok := fields[3].(string); !ok || ip != "127.0.0.1" {
		t.Fatalf("expected ip address in position 3, got %#v", fields[3])
	}
}
