package session

// State is the position of a handshake attempt.
type State int32

const (
	StateIdle State = iota
	StateKeyGenerated
	StateSent
	StateAwaitingResponse
	StateVerified
	StateEstablished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateKeyGenerated:
		return "key-generated"
	case StateSent:
		return "sent"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateVerified:
		return "verified"
	case StateEstablished:
		return "established"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateEstablished || s == StateAborted
}
