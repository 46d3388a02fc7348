package protocol

// MessageType identifies a transport frame.
type MessageType uint8

const (
	MessageTypeHandshake MessageType = 1
	MessageTypeDeliver   MessageType = 2
	MessageTypeAck       MessageType = 3
	MessageTypeError     MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeHandshake:
		return "HANDSHAKE"
	case MessageTypeDeliver:
		return "DELIVER"
	case MessageTypeAck:
		return "ACK"
	case MessageTypeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode is the in-band status of a KexMessage. Anything other than
// ErrorCodeOK carries no cryptographic guarantee.
type ErrorCode uint8

const (
	ErrorCodeOK                 ErrorCode = 0
	ErrorCodeVerificationFailed ErrorCode = 1
	ErrorCodeInternalError      ErrorCode = 2
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeOK:
		return "OK"
	case ErrorCodeVerificationFailed:
		return "VERIFICATION_FAILED"
	case ErrorCodeInternalError:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN"
	}
}

// MsgType describes the plaintext carried by a Message.
type MsgType uint8

const (
	MsgTypeText           MsgType = 1
	MsgTypeCompressedText MsgType = 2
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeText:
		return "TEXT"
	case MsgTypeCompressedText:
		return "COMPRESSED_TEXT"
	default:
		return "UNKNOWN"
	}
}

func (t MsgType) Valid() bool {
	return t == MsgTypeText || t == MsgTypeCompressedText
}
