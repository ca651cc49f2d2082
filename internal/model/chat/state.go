package chat

import "fmt"

// Phase is the conversation's position in the submit/reply cycle.
type Phase int

const (
	// PhaseIdle accepts new submissions.
	PhaseIdle Phase = iota
	// PhaseAwaitingReply has exactly one completion call outstanding.
	PhaseAwaitingReply
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingReply:
		return "awaiting_reply"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase as its string name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "idle":
		*p = PhaseIdle
	case "awaiting_reply":
		*p = PhaseAwaitingReply
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// Snapshot is the read model handed to renderers.
type Snapshot struct {
	Transcript []Message `json:"transcript"`
	Draft      string    `json:"draft"`
	Phase      Phase     `json:"phase"`
	Busy       bool      `json:"busy"`
	Revision   uint64    `json:"revision"`
}

// Last returns the most recent transcript entry.
func (s Snapshot) Last() Message {
	return s.Transcript[len(s.Transcript)-1]
}
