package chess

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownDifficulty = errors.New("unknown difficulty")

// Difficulty is a named engine strength tier. SkillLevel and Depth are what
// the tier is mostly about; the rest tunes the engine process.
type Difficulty struct {
	Name           string `yaml:"name"`
	SkillLevel     int    `yaml:"skill_level"`
	Depth          int    `yaml:"depth"`
	MoveTimeMillis int    `yaml:"move_time_ms"`
	HashMB         int    `yaml:"hash_mb"`
	Threads        int    `yaml:"threads"`
	// Elo, when positive, also caps strength through UCI_LimitStrength.
	Elo int `yaml:"elo"`
}

const DefaultDifficultyName = "medium"

// DefaultDifficulties lists the built-in tiers from weakest to strongest.
func DefaultDifficulties() []Difficulty {
	return []Difficulty{
		{Name: "easy", SkillLevel: 2, Depth: 3, HashMB: 16, Threads: 1},
		{Name: "medium", SkillLevel: 8, Depth: 8, HashMB: 32, Threads: 1},
		{Name: "hard", SkillLevel: 15, Depth: 12, HashMB: 64, Threads: 2},
		{Name: "master", SkillLevel: 20, Depth: 18, HashMB: 128, Threads: 2},
	}
}

func ValidateDifficulty(d Difficulty) error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("difficulty name required")
	case d.SkillLevel < 0 || d.SkillLevel > 20:
		return fmt.Errorf("difficulty %s: skill level %d out of range 0-20", d.Name, d.SkillLevel)
	case d.Depth <= 0:
		return fmt.Errorf("difficulty %s: depth must be > 0: %d", d.Name, d.Depth)
	case d.MoveTimeMillis < 0:
		return fmt.Errorf("difficulty %s: move time must be >= 0: %d", d.Name, d.MoveTimeMillis)
	case d.HashMB < 0:
		return fmt.Errorf("difficulty %s: hash size must be >= 0: %d", d.Name, d.HashMB)
	case d.Threads < 0:
		return fmt.Errorf("difficulty %s: threads must be >= 0: %d", d.Name, d.Threads)
	case d.Elo < 0:
		return fmt.Errorf("difficulty %s: elo must be >= 0: %d", d.Name, d.Elo)
	}
	return nil
}

// DifficultyTable maps tier names to difficulties.
type DifficultyTable struct {
	tiers map[string]Difficulty
	def   string
}

// NewDifficultyTable validates tiers; def names the tier used for an empty name.
func NewDifficultyTable(tiers []Difficulty, def string) (*DifficultyTable, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one difficulty required")
	}
	t := &DifficultyTable{tiers: make(map[string]Difficulty, len(tiers))}
	for _, d := range tiers {
		d.Name = normalizeName(d.Name)
		if err := ValidateDifficulty(d); err != nil {
			return nil, err
		}
		if _, dup := t.tiers[d.Name]; dup {
			return nil, fmt.Errorf("duplicate difficulty %q", d.Name)
		}
		t.tiers[d.Name] = d
	}
	t.def = normalizeName(def)
	if t.def == "" {
		t.def = normalizeName(tiers[0].Name)
	}
	if _, ok := t.tiers[t.def]; !ok {
		return nil, fmt.Errorf("default difficulty %q: %w", def, ErrUnknownDifficulty)
	}
	return t, nil
}

// DefaultTable is the built-in table with "medium" as default.
func DefaultTable() *DifficultyTable {
	t, err := NewDifficultyTable(DefaultDifficulties(), DefaultDifficultyName)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *DifficultyTable) Get(name string) (Difficulty, error) {
	key := normalizeName(name)
	if key == "" {
		key = t.def
	}
	d, ok := t.tiers[key]
	if !ok {
		return Difficulty{}, fmt.Errorf("%w: %q", ErrUnknownDifficulty, name)
	}
	return d, nil
}

func (t *DifficultyTable) Default() string { return t.def }

// Names returns the tier names sorted by skill level.
func (t *DifficultyTable) Names() []string {
	out := make([]string, 0, len(t.tiers))
	for name := range t.tiers {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := t.tiers[out[i]], t.tiers[out[j]]
		if a.SkillLevel != b.SkillLevel {
			return a.SkillLevel < b.SkillLevel
		}
		return a.Name < b.Name
	})
	return out
}

func normalizeName(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
