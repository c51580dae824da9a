package extract

import "fmt"

// State is one phase of the per-conversation extraction machine. The
// machine is entered fresh for every conversation key and never resumed
// across conversations.
type State int

const (
	StateOpenChat State = iota
	StateWaitRender
	StateScrollTop
	StateCollect
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpenChat:
		return "OPEN_CHAT"
	case StateWaitRender:
		return "WAIT_RENDER"
	case StateScrollTop:
		return "SCROLL_TOP"
	case StateCollect:
		return "COLLECT"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions is the closed transition table. Any step can fail; otherwise
// the machine moves strictly forward. DONE and FAILED are terminal.
var transitions = map[State][]State{
	StateOpenChat:   {StateWaitRender, StateFailed},
	StateWaitRender: {StateScrollTop, StateFailed},
	StateScrollTop:  {StateCollect, StateFailed},
	StateCollect:    {StateDone, StateFailed},
	StateDone:       {},
	StateFailed:     {},
}

// machine tracks the current state and rejects illegal transitions, so a
// skipped or repeated phase is an immediate programming error rather than a
// silent misbehavior.
type machine struct {
	state State
}

func newMachine() *machine {
	return &machine{state: StateOpenChat}
}

func (m *machine) advance(to State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == to {
			m.state = to
			return nil
		}
	}
	return fmt.Errorf("illegal transition %s -> %s", m.state, to)
}
