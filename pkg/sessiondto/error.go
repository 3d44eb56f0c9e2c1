package sessiondto

// Error codes carried by DomainError.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeMatchNotFound     = "match_not_found"
	CodeOracleUnavailable = "oracle_unavailable"
	CodeGameFinished      = "game_finished"
	CodeComputerThinking  = "computer_thinking"
	CodeOutOfBounds       = "out_of_bounds"
	CodeNotFound          = "not_found"
	CodeInternal          = "internal"
)

type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "board service error"
}
