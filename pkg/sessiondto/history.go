package sessiondto

import "time"

type GameRecord struct {
	ID           int64     `json:"id"`
	MatchID      string    `json:"match_id"`
	Mode         string    `json:"mode"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Result       string    `json:"result"`
	Winner       string    `json:"winner,omitempty"`
	Method       string    `json:"method"`
	MovesUCI     []string  `json:"moves_uci"`
	MovesSAN     []string  `json:"moves_san"`
	PGN          string    `json:"pgn"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at"`
	DurationMs   int64     `json:"duration_ms"`
	WhiteClockMs int64     `json:"white_clock_ms"`
	BlackClockMs int64     `json:"black_clock_ms"`
}
