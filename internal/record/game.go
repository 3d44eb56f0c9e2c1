// Package record stores finished games and renders them as SAN and PGN.
package record

import (
	"fmt"
	"strings"
	"time"

	nchess "github.com/corentings/chess/v2"
)

const (
	ResultWhiteWins = "1-0"
	ResultBlackWins = "0-1"
	ResultUnknown   = "*"

	MethodTimeout = "timeout"
)

// Game is a finished match.
type Game struct {
	ID           int64
	MatchID      string
	Mode         string
	Difficulty   string
	Result       string
	Winner       string
	Method       string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
	WhiteClockMs int64
	BlackClockMs int64
}

// ResultFor maps a winner name ("white", "black") to a PGN result.
func ResultFor(winner string) string {
	switch strings.ToLower(strings.TrimSpace(winner)) {
	case "white":
		return ResultWhiteWins
	case "black":
		return ResultBlackWins
	default:
		return ResultUnknown
	}
}

// Annotate converts UCI moves to SAN. Board games here follow looser rules
// than chess, so the replay stops at the first move the rules library rejects
// and the returned slice may be shorter than moves.
func Annotate(moves []string) []string {
	game := nchess.NewGame()
	uci := nchess.UCINotation{}
	san := nchess.AlgebraicNotation{}
	out := make([]string, 0, len(moves))
	for _, mv := range moves {
		pos := game.Position()
		move, err := uci.Decode(pos, strings.ToLower(strings.TrimSpace(mv)))
		if err != nil {
			break
		}
		if err := game.Move(move, nil); err != nil {
			break
		}
		out = append(out, san.Encode(pos, move))
	}
	return out
}

// BuildPGN renders g as PGN. Moves past the annotated prefix are kept as a
// trailing comment in UCI notation.
func BuildPGN(g *Game) string {
	if g == nil {
		return ""
	}
	result := g.Result
	if result == "" {
		result = ResultUnknown
	}
	white, black := "Player", "Player"
	if g.Mode == "pvc" {
		black = "Computer"
		if g.Difficulty != "" {
			black += " (" + g.Difficulty + ")"
		}
	}
	date := "????.??.??"
	if !g.StartedAt.IsZero() {
		date = g.StartedAt.UTC().Format("2006.01.02")
	}

	var b strings.Builder
	tag := func(k, v string) { fmt.Fprintf(&b, "[%s %q]\n", k, v) }
	tag("Event", "Cheese Board "+g.Mode)
	tag("Site", "cheese-board")
	tag("Date", date)
	tag("White", white)
	tag("Black", black)
	tag("Result", result)
	if g.Method == MethodTimeout {
		tag("Termination", "time forfeit")
	}
	if g.MatchID != "" {
		tag("Match", g.MatchID)
	}
	b.WriteString("\n")

	tokens := make([]string, 0, len(g.MovesSAN)+4)
	for i, san := range g.MovesSAN {
		if i%2 == 0 {
			tokens = append(tokens, fmt.Sprintf("%d.", i/2+1))
		}
		tokens = append(tokens, san)
	}
	if rest := len(g.MovesUCI) - len(g.MovesSAN); rest > 0 && len(g.MovesSAN) <= len(g.MovesUCI) {
		tokens = append(tokens, "{"+strings.Join(g.MovesUCI[len(g.MovesSAN):], " ")+"}")
	}
	tokens = append(tokens, result)
	b.WriteString(strings.Join(tokens, " "))
	b.WriteString("\n")
	return b.String()
}
