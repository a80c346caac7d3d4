package driver

// Phase is where the client is within one command exchange.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseEncoding
	PhaseSent
	PhaseAwaitingReply
	PhaseDecoded
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseEncoding:
		return "encoding"
	case PhaseSent:
		return "sent"
	case PhaseAwaitingReply:
		return "awaiting_reply"
	case PhaseDecoded:
		return "decoded"
	default:
		return "unknown"
	}
}
