package board

import (
	"fmt"
	"strings"
)

// files maps columns to a-h; ranks maps rows to 8-1 (row 0 is rank 8).
const (
	files = "abcdefgh"
	ranks = "87654321"
)

// ParseSquare converts an algebraic name such as "e2" into a Square.
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	col := strings.IndexByte(files, s[0])
	row := strings.IndexByte(ranks, s[1])
	if col < 0 || row < 0 {
		return Square{}, fmt.Errorf("invalid square %q", s)
	}
	return Square{Row: row, Col: col}, nil
}

// Move is a source/destination pair.
type Move struct {
	From Square
	To   Square
}

// UCI returns the 4-character source+destination code (no promotion suffix).
func (m Move) UCI() string {
	if !m.From.Valid() || !m.To.Valid() {
		return ""
	}
	return m.From.String() + m.To.String()
}

func (m Move) String() string { return m.UCI() }

// ParseMove decodes a 4-character code such as "e2e4". Input is case-insensitive;
// a fifth promotion character is rejected.
func ParseMove(s string) (Move, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 4 {
		return Move{}, fmt.Errorf("invalid move %q: want 4 characters", s)
	}
	from, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	to, err := ParseSquare(s[2:])
	if err != nil {
		return Move{}, fmt.Errorf("invalid move %q: %w", s, err)
	}
	return Move{From: from, To: to}, nil
}
