package movegen

import (
	"fmt"
	"strings"
)

// Mode selects who plays black.
type Mode uint8

const (
	HumanVsHuman Mode = iota
	HumanVsComputer
)

func (m Mode) String() string {
	switch m {
	case HumanVsHuman:
		return "pvp"
	case HumanVsComputer:
		return "pvc"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts "pvp", "pvc" and the long forms "human-vs-human" / "human-vs-computer".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pvp", "human-vs-human", "hvh":
		return HumanVsHuman, nil
	case "pvc", "human-vs-computer", "hvc", "cpu":
		return HumanVsComputer, nil
	default:
		return HumanVsHuman, fmt.Errorf("unknown mode %q", s)
	}
}
