package domain

// Level selects which of the three demo authentication strategies handles an
// attempt.
type Level int

const (
	// Level1 compares the submitted password against the plaintext shadow.
	// No attempt counting; unlimited retries are the demonstrated flaw.
	Level1 Level = 1
	// Level2 compares against the salted hash and enforces the
	// failed-attempt lockout window.
	Level2 Level = 2
	// Level3 is Level2 followed by a TOTP challenge before a session is
	// issued.
	Level3 Level = 3
)

func (l Level) String() string {
	switch l {
	case Level1:
		return "level1"
	case Level2:
		return "level2"
	case Level3:
		return "level3"
	}
	return "unknown"
}

// Outcome is the terminal (per HTTP call) state of an authentication attempt.
type Outcome string

const (
	OutcomeAuthenticated        Outcome = "authenticated"
	OutcomeRejected             Outcome = "rejected"
	OutcomeLockedOut            Outcome = "locked_out"
	OutcomeAwaitingSecondFactor Outcome = "awaiting_second_factor"
	OutcomeExpired              Outcome = "expired"
)

// validOutcomeTransitions captures the attempt state machine: every first
// call starts implicitly at the credential check and ends in one of the
// outcomes below; only awaiting_second_factor admits a follow-up call.
var validOutcomeTransitions = map[Outcome][]Outcome{
	OutcomeAwaitingSecondFactor: {
		OutcomeAuthenticated,
		OutcomeRejected,
		OutcomeExpired,
		OutcomeAwaitingSecondFactor,
	},
}

// CanTransitionTo reports whether a follow-up call may move an attempt from o
// to next. Terminal outcomes admit no transitions.
func (o Outcome) CanTransitionTo(next Outcome) bool {
	for _, allowed := range validOutcomeTransitions[o] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the outcome ends the attempt; a new attempt must
// re-enter at the credential check.
func (o Outcome) Terminal() bool {
	return len(validOutcomeTransitions[o]) == 0
}
