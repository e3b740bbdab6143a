package domain

// Reason is a stable, client-facing rejection code. Clients branch and
// localize on these strings, so they must never change once published.
type Reason string

const (
	ReasonInvalidFormat     Reason = "INVALID_FORMAT"
	ReasonCodeNotFound      Reason = "CODE_NOT_FOUND"
	ReasonCodeRevoked       Reason = "CODE_REVOKED"
	ReasonCodeExpired       Reason = "CODE_EXPIRED"
	ReasonMaxUsesReached    Reason = "MAX_USES_REACHED"
	ReasonDailyLimitReached Reason = "DAILY_LIMIT_REACHED"
	ReasonInvalidStatus     Reason = "INVALID_STATUS"
	ReasonNetworkError      Reason = "NETWORK_ERROR"
	ReasonServerError       Reason = "SERVER_ERROR"
	ReasonUnknown           Reason = "UNKNOWN_ERROR"
)
