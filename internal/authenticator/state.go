package authenticator

// AuthState names the three positions a wallet occupies in the
// challenge/response state machine, carried for observability and audit
// logging even though transitions here are computed functionally rather
// than stored as mutable server state.
type AuthState string

const (
	StateNoAuth           AuthState = "NO_AUTH"
	StateChallengePending AuthState = "CHALLENGE_PENDING"
	StateAuthenticated    AuthState = "AUTHENTICATED"
)
