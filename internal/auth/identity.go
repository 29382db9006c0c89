package auth

// Identity: explicit gateway credentials. A nil *Identity selects
// anonymous/default-credential negotiation.
type Identity struct {
	User     string
	Domain   string
	Password string
}

// Decision: the surrounding session's gateway-auth outcome.
type Decision int

const (
	DecisionProceed Decision = iota
	DecisionNoCredentials
	DecisionCancelled
	DecisionFailed
)
