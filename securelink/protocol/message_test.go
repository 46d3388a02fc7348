package protocol

import (
	"bytes"
	"testing"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDeliveryEncoding(t *testing.T) {
	kp, _ := identity.Generate()
	msg := Message{
		MsgType:       MsgTypeText,
		CipherVariant: crypto.VariantAES256GCM,
		EncryptedData: []byte{1, 2, 3, 4},
	}
	msg.Nonce[0] = 1
	msg.Nonce[11] = 7

	b, err := EncodeDelivery(Delivery{Sender: kp.Public, Message: msg})
	if err != nil {
		t.Fatalf("EncodeDelivery: %v", err)
	}
	d, err := DecodeDelivery(b)
	if err != nil {
		t.Fatalf("DecodeDelivery: %v", err)
	}
	if d.Sender != kp.Public {
		t.Fatalf("sender mismatch")
	}
	if d.Message.MsgType != msg.MsgType || d.Message.CipherVariant != msg.CipherVariant || d.Message.Nonce != msg.Nonce {
		t.Fatalf("header mismatch: %+v", d.Message)
	}
	if !bytes.Equal(d.Message.EncryptedData, msg.EncryptedData) {
		t.Fatalf("ciphertext mismatch")
	}

	var fields []interface{}
	mb, _ := EncodeMessage(msg)
	if err := msgpack.Unmarshal(mb, &fields); err != nil || len(fields) != 4 {
		t.Fatalf("expected 4 positional fields, got %d (%v)", len(fields), err)
	}
}

func TestAssociatedDataBindsHeader(t *testing.T) {
	a := AssociatedData(MsgTypeText, crypto.VariantChaCha20Poly1305)
	b := AssociatedData(MsgTypeCompressedText, crypto.VariantChaCha20Poly1305)
	c := AssociatedData(MsgTypeText, crypto.VariantAES256GCM)
	if bytes.Equal(a, b) || bytes.Equal(a, c) {
		t.Fatalf("associated data does not distinguish header fields")
	}
}

func TestDecodeGarbage(t *testing.T) {
	if _, err := DecodeMessage([]byte{0xc1}); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := DecodeKex(nil); err == nil {
		t.Fatalf("expected decode error for empty input")
	}
}
