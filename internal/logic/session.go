package logic

// SessionOutcome is how a session ended.
type SessionOutcome string

const (
	SessionOngoing SessionOutcome = ""
	SessionSuccess SessionOutcome = "SUCCESS"
	SessionFailure SessionOutcome = "FAILURE"
	// SessionReset marks a session abandoned by a restart request.
	SessionReset SessionOutcome = "RESET"
)

// SessionPolicy decides when the surrounding application stops a session.
type SessionPolicy struct {
	// SuccessAfter ends the session once correct reps exceed it.
	SuccessAfter int
	// MaxAttempts ends the session once total attempts reach it.
	MaxAttempts int
}

// DefaultSessionPolicy returns the stock policy: more than 10 correct reps
// is a success, 50 attempts is a failure.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{SuccessAfter: 10, MaxAttempts: 50}
}

// Evaluate returns the session outcome for the given counts.
// Success wins when both limits are hit on the same rep. A non-positive
// limit disables that check.
func (p SessionPolicy) Evaluate(c RepCounts) SessionOutcome {
	if p.SuccessAfter > 0 && c.Correct > p.SuccessAfter {
		return SessionSuccess
	}
	if p.MaxAttempts > 0 && c.Attempts() >= p.MaxAttempts {
		return SessionFailure
	}
	return SessionOngoing
}
