package sessiondto

import "time"

// MatchState is the wire form of a live match. Board rows start at rank 8;
// empty squares are empty strings.
type MatchState struct {
	ID           string       `json:"id"`
	Mode         string       `json:"mode"`
	Difficulty   string       `json:"difficulty,omitempty"`
	State        string       `json:"state"`
	Turn         string       `json:"turn"`
	Board        [][]string   `json:"board"`
	Placement    string       `json:"placement"`
	WhiteClockMs int64        `json:"white_clock_ms"`
	BlackClockMs int64        `json:"black_clock_ms"`
	Selected     string       `json:"selected,omitempty"`
	Highlights   []string     `json:"highlights,omitempty"`
	LastMove     string       `json:"last_move,omitempty"`
	History      []string     `json:"history"`
	Winner       string       `json:"winner,omitempty"`
	Messages     []string     `json:"messages,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	Click        *ClickResult `json:"click,omitempty"`
}

type ClickResult struct {
	Square  string `json:"square"`
	Outcome string `json:"outcome"`
}
