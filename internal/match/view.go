package match

import (
	"time"

	"github.com/park285/cheese-board/internal/board"
)

// View is a read-only copy of a match for presentation.
type View struct {
	ID         string
	Mode       string
	Difficulty string
	State      string
	Turn       string
	Grid       [board.Size][board.Size]string
	Placement  string
	WhiteClock time.Duration
	BlackClock time.Duration
	Selected   *board.Square
	Highlights []board.Square
	LastMove   string
	History    []string
	Winner     string
	Messages   []string
	CreatedAt  time.Time
}

// view must be called with mt.mu held.
func (mt *Match) view() *View {
	s := mt.session
	b := s.Board()
	v := &View{
		ID:         mt.ID,
		Mode:       s.Mode().String(),
		Difficulty: mt.difficulty,
		State:      s.State().String(),
		Turn:       s.Turn().String(),
		Grid:       b.Grid(),
		Placement:  b.Placement(),
		WhiteClock: s.Clock(board.White),
		BlackClock: s.Clock(board.Black),
		Highlights: s.Highlights(),
		History:    s.History(),
		Messages:   append([]string(nil), mt.messages...),
		CreatedAt:  mt.CreatedAt,
	}
	if sq, ok := s.Selected(); ok {
		v.Selected = &sq
	}
	if mv, ok := s.LastMove(); ok {
		v.LastMove = mv.UCI()
	}
	if w, ok := s.Winner(); ok {
		v.Winner = w.String()
	}
	return v
}
