package chess

import (
	"strconv"

	"github.com/park285/cheese-board/internal/chess/uci"
)

// BuildGoCommand returns the "go" tokens for a tier.
func BuildGoCommand(d Difficulty) ([]string, error) {
	if err := ValidateDifficulty(d); err != nil {
		return nil, err
	}
	args := []string{"go", "depth", strconv.Itoa(d.Depth)}
	if d.MoveTimeMillis > 0 {
		args = append(args, "movetime", strconv.Itoa(d.MoveTimeMillis))
	}
	return args, nil
}

func optionsFor(d Difficulty) uci.Options {
	hash := d.HashMB
	if hash <= 0 {
		hash = 16
	}
	return uci.Options{
		Threads:    max(d.Threads, 1),
		SkillLevel: d.SkillLevel,
		HashMB:     hash,
		MultiPV:    1,
		Elo:        d.Elo,
	}
}

func limitsFor(d Difficulty) uci.Limits {
	return uci.Limits{Depth: d.Depth, MoveTimeMillis: d.MoveTimeMillis}
}
