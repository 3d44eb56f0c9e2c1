package sessiondto

type CreateMatchRequest struct {
	Mode       string `json:"mode"`
	Difficulty string `json:"difficulty,omitempty"`
}

// ClickRequest names a square either directly ("e2") or by pixel
// coordinates on the rendered board image.
type ClickRequest struct {
	Square string `json:"square,omitempty"`
	X      *int   `json:"x,omitempty"`
	Y      *int   `json:"y,omitempty"`
}

type MatchResponse struct {
	Match *MatchState `json:"match"`
}

type HistoryResponse struct {
	Games []*GameRecord `json:"games"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Matches int    `json:"matches"`
	Oracle  bool   `json:"oracle"`
}

type ErrorResponse struct {
	Error DomainError `json:"error"`
}
