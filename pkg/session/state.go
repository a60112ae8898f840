// Package session drives one account's browser session end to end: the
// resume-or-login decision, the interaction loop, points observation and the
// per-attempt retry policy.
package session

// State is a session lifecycle state.
type State int

const (
	// StateInit is a freshly opened browser session before navigation.
	StateInit State = iota
	// StateAuthCheck races the points indicator against the sign-in control.
	StateAuthCheck
	// StateAuthenticated means the points indicator appeared.
	StateAuthenticated
	// StateNeedsLogin means the sign-in control appeared.
	StateNeedsLogin
	// StateRunning is the interaction loop.
	StateRunning
	// StateDone is voluntary completion, a success.
	StateDone
	// StateLimited means the usage limit was reached, also a success.
	StateLimited
	// StateFailed consumes one attempt from the retry budget.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAuthCheck:
		return "auth-check"
	case StateAuthenticated:
		return "authenticated"
	case StateNeedsLogin:
		return "needs-login"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateLimited:
		return "limited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is an observation that moves the session between states.
type Event int

const (
	// EventNavigated: the target surface loaded.
	EventNavigated Event = iota
	// EventNavigateFailed: navigation errored or timed out.
	EventNavigateFailed
	// EventPointsVisible: the points indicator won the race.
	EventPointsVisible
	// EventSignInVisible: the sign-in control won the race.
	EventSignInVisible
	// EventNeitherVisible: neither detector resolved within the bound.
	EventNeitherVisible
	// EventReady: auth handling finished, session may start grinding.
	EventReady
	// EventLoginFailed: the login bootstrap failed hard.
	EventLoginFailed
	// EventGrindDone: all interaction modes completed.
	EventGrindDone
	// EventGrindLimited: the usage-limit indicator appeared.
	EventGrindLimited
	// EventGrindTimedOut: a grind cycle saw neither a points change nor a
	// limit within its bound.
	EventGrindTimedOut
	// EventGrindFailed: an unrecovered interaction error.
	EventGrindFailed
	// EventPageClosed: the session resource went away externally.
	EventPageClosed
)

// Next is the pure session transition function: given the current state and
// the last observed event, it decides the next state. Keeping this a pure
// decision lets the whole lifecycle be tested without a browser.
func Next(state State, event Event) State {
	if event == EventPageClosed {
		return StateFailed
	}

	switch state {
	case StateInit:
		if event == EventNavigated {
			return StateAuthCheck
		}
		return StateFailed
	case StateAuthCheck:
		switch event {
		case EventPointsVisible:
			return StateAuthenticated
		case EventSignInVisible:
			return StateNeedsLogin
		default:
			return StateFailed
		}
	case StateAuthenticated:
		if event == EventReady {
			return StateRunning
		}
		return StateFailed
	case StateNeedsLogin:
		if event == EventReady {
			return StateRunning
		}
		return StateFailed
	case StateRunning:
		switch event {
		case EventGrindDone:
			return StateDone
		case EventGrindLimited:
			return StateLimited
		default:
			return StateFailed
		}
	default:
		// Terminal states do not move.
		return state
	}
}

// Terminal reports whether a state ends the attempt.
func (s State) Terminal() bool {
	return s == StateDone || s == StateLimited || s == StateFailed
}

// Success reports whether a terminal state counts as a successful attempt.
func (s State) Success() bool {
	return s == StateDone || s == StateLimited
}
