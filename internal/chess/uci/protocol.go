package uci

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
)

// mateScore stands in for "score mate N" so mates sort above any material eval.
const mateScore = 30000

func validateOptions(opt Options) error {
	switch {
	case opt.SkillLevel < 0 || opt.SkillLevel > 20:
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	case opt.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	case opt.MultiPV <= 0:
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	case opt.Elo < 0:
		return fmt.Errorf("elo must be >= 0: %d", opt.Elo)
	}
	return nil
}

func setoption(name string, value any) string {
	return fmt.Sprintf("setoption name %s value %v\n", name, value)
}

func optionCommands(opt Options) []string {
	out := []string{
		setoption("Threads", max(opt.Threads, 1)),
		setoption("Hash", opt.HashMB),
		setoption("Skill Level", opt.SkillLevel),
		setoption("MultiPV", opt.MultiPV),
	}
	if opt.Elo > 0 {
		out = append(out, setoption("UCI_LimitStrength", true), setoption("UCI_Elo", opt.Elo))
	}
	return out
}

func buildPositionCommand(moves []string) string {
	cmd := "position startpos"
	if len(moves) > 0 {
		cmd += " moves " + strings.Join(moves, " ")
	}
	return cmd + "\n"
}

func buildGoTokens(l Limits) ([]string, error) {
	tokens := []string{"go"}
	for _, lim := range []struct {
		key string
		val int
	}{
		{"depth", l.Depth},
		{"movetime", l.MoveTimeMillis},
	} {
		if lim.val > 0 {
			tokens = append(tokens, lim.key, strconv.Itoa(lim.val))
		}
	}
	if len(tokens) == 1 {
		return nil, fmt.Errorf("no search limits specified")
	}
	return tokens, nil
}

// computeSearchTimeout bounds how long Search waits for bestmove.
func computeSearchTimeout(l Limits) time.Duration {
	switch {
	case l.MoveTimeMillis > 0:
		return 3 * time.Duration(l.MoveTimeMillis+2000) * time.Millisecond
	case l.Depth > 0:
		perPly := time.Duration(l.Depth) * 300 * time.Millisecond
		return min(max(perPly, 6*time.Second), 20*time.Second)
	default:
		return 6 * time.Second
	}
}

func parseBestMove(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return ""
	}
	if mv := fields[1]; mv != NoMove && mv != "0000" {
		return mv
	}
	return ""
}

// parseInfo reads the multipv rank, score and principal variation of an info
// line. Lines without a pv carry nothing to keep.
func parseInfo(line string) (int, Candidate, bool) {
	fields := strings.Fields(line)
	rank := 1
	var cand Candidate
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "pv":
			pv := fields[i+1:]
			if len(pv) == 0 {
				return 0, Candidate{}, false
			}
			cand.Move = pv[0]
			cand.Principal = slices.Clone(pv)
			return rank, cand, true
		case "multipv":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					rank = n
				}
			}
			i++
		case "score":
			if i+2 < len(fields) {
				cand.EvalCP = scoreCP(fields[i+1], fields[i+2], cand.EvalCP)
			}
			i += 2
		}
	}
	return 0, Candidate{}, false
}

func scoreCP(kind, raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	switch kind {
	case "cp":
		return n
	case "mate":
		if n < 0 {
			return -mateScore
		}
		return mateScore
	}
	return fallback
}

// rankedCandidates orders candidates by multipv rank.
func rankedCandidates(byRank map[int]Candidate) []Candidate {
	if len(byRank) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(byRank))
	for _, rank := range slices.Sorted(maps.Keys(byRank)) {
		out = append(out, byRank[rank])
	}
	return out
}
