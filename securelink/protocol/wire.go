package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Wire encoding is MessagePack arrays in struct field order, with no field
// names, so any implementation that keeps the order can interoperate.

func EncodeKex(k KexMessage) ([]byte, error) {
	return msgpack.Marshal(&k)
}

func DecodeKex(b []byte) (KexMessage, error) {
	var k KexMessage
	if err := msgpack.Unmarshal(b, &k); err != nil {
		return KexMessage{}, fmt.Errorf("protocol: decode kex: %w", err)
	}
	return k, nil
}

func EncodeMessage(m Message) ([]byte, error) {
	return msgpack.Marshal(&m)
}

func DecodeMessage(b []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(b, &m); err != nil {
		return Message{}, fmt.Errorf("protocol: decode message: %w", err)
	}
	return m, nil
}

func EncodeDelivery(d Delivery) ([]byte, error) {
	return msgpack.Marshal(&d)
}

func DecodeDelivery(b []byte) (Delivery, error) {
	var d Delivery
	if err := msgpack.Unmarshal(b, &d); err != nil {
		return Delivery{}, fmt.Errorf("protocol: decode delivery: %w", err)
	}
	return d, nil
}
