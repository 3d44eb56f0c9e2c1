package httpapi

import (
	"github.com/park285/cheese-board/internal/match"
	"github.com/park285/cheese-board/internal/record"
	"github.com/park285/cheese-board/pkg/sessiondto"
)

// MatchState converts a match view to its wire form.
func MatchState(v *match.View) *sessiondto.MatchState {
	if v == nil {
		return nil
	}
	out := &sessiondto.MatchState{
		ID:           v.ID,
		Mode:         v.Mode,
		Difficulty:   v.Difficulty,
		State:        v.State,
		Turn:         v.Turn,
		Board:        make([][]string, len(v.Grid)),
		Placement:    v.Placement,
		WhiteClockMs: v.WhiteClock.Milliseconds(),
		BlackClockMs: v.BlackClock.Milliseconds(),
		LastMove:     v.LastMove,
		History:      append([]string{}, v.History...),
		Winner:       v.Winner,
		Messages:     v.Messages,
		CreatedAt:    v.CreatedAt,
	}
	for i, row := range v.Grid {
		out.Board[i] = append([]string(nil), row[:]...)
	}
	if v.Selected != nil {
		out.Selected = v.Selected.String()
	}
	for _, sq := range v.Highlights {
		out.Highlights = append(out.Highlights, sq.String())
	}
	return out
}

func GameRecord(g *record.Game) *sessiondto.GameRecord {
	if g == nil {
		return nil
	}
	return &sessiondto.GameRecord{
		ID:           g.ID,
		MatchID:      g.MatchID,
		Mode:         g.Mode,
		Difficulty:   g.Difficulty,
		Result:       g.Result,
		Winner:       g.Winner,
		Method:       g.Method,
		MovesUCI:     g.MovesUCI,
		MovesSAN:     g.MovesSAN,
		PGN:          g.PGN,
		StartedAt:    g.StartedAt,
		EndedAt:      g.EndedAt,
		DurationMs:   g.Duration.Milliseconds(),
		WhiteClockMs: g.WhiteClockMs,
		BlackClockMs: g.BlackClockMs,
	}
}
