package failure

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKind(t *testing.T) {
	cause := errors.New("bad signature")
	err := New(VerificationFailed, "session.Initiate", cause)

	if !errors.Is(err, VerificationFailed) {
		t.Fatalf("expected errors.Is to match VerificationFailed")
	}
	if errors.Is(err, ConnectionFailed) {
		t.Fatalf("unexpected match on ConnectionFailed")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if got := err.Error(); got != "session.Initiate: verification failed: bad signature" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("dial peer: %w", Newf(ConnectionFailed, "quic.Dial", "timeout after %ds", 5))
	if KindOf(err) != ConnectionFailed {
		t.Fatalf("expected ConnectionFailed, got %v", KindOf(err))
	}
	if KindOf(errors.New("plain")) != Unknown {
		t.Fatalf("expected Unknown for plain error")
	}
	if KindOf(UnsupportedCipher) != UnsupportedCipher {
		t.Fatalf("expected bare kind to classify as itself")
	}
}
