package chess

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	if table.Default() != "medium" {
		t.Fatalf("default tier %q", table.Default())
	}
	names := table.Names()
	want := []string{"easy", "medium", "hard", "master"}
	if len(names) != len(want) {
		t.Fatalf("names %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names %v, want %v", names, want)
		}
	}
	d, err := table.Get(" Hard ")
	if err != nil || d.SkillLevel != 15 || d.Depth != 12 {
		t.Fatalf("Get(hard) = %+v %v", d, err)
	}
	if _, err := table.Get("nope"); !errors.Is(err, ErrUnknownDifficulty) {
		t.Fatalf("expected ErrUnknownDifficulty, got %v", err)
	}
}

func TestNewDifficultyTableValidation(t *testing.T) {
	cases := []struct {
		name  string
		tiers []Difficulty
		def   string
	}{
		{"empty", nil, ""},
		{"skill", []Difficulty{{Name: "x", SkillLevel: 21, Depth: 1}}, ""},
		{"depth", []Difficulty{{Name: "x", SkillLevel: 1}}, ""},
		{"dup", []Difficulty{{Name: "x", Depth: 1}, {Name: "X", Depth: 2}}, ""},
		{"default", []Difficulty{{Name: "x", Depth: 1}}, "y"},
		{"noname", []Difficulty{{Depth: 1}}, ""},
	}
	for _, tc := range cases {
		if _, err := NewDifficultyTable(tc.tiers, tc.def); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	table, err := NewDifficultyTable([]Difficulty{{Name: "only", SkillLevel: 4, Depth: 2}}, "")
	if err != nil {
		t.Fatalf("NewDifficultyTable: %v", err)
	}
	if d, _ := table.Get(""); d.Name != "only" {
		t.Fatalf("first tier should be default, got %q", d.Name)
	}
}

func TestBuildGoCommand(t *testing.T) {
	got, err := BuildGoCommand(Difficulty{Name: "x", SkillLevel: 5, Depth: 7})
	if err != nil || strings.Join(got, " ") != "go depth 7" {
		t.Fatalf("BuildGoCommand = %q %v", got, err)
	}
	got, _ = BuildGoCommand(Difficulty{Name: "x", Depth: 7, MoveTimeMillis: 250})
	if strings.Join(got, " ") != "go depth 7 movetime 250" {
		t.Fatalf("with movetime: %q", got)
	}
	if _, err := BuildGoCommand(Difficulty{Name: "x"}); err == nil {
		t.Fatalf("expected error without depth")
	}
	opt := optionsFor(Difficulty{Name: "x", SkillLevel: 9, Depth: 1})
	if opt.HashMB != 16 || opt.Threads != 1 || opt.MultiPV != 1 || opt.SkillLevel != 9 {
		t.Fatalf("optionsFor defaults: %+v", opt)
	}
}

func writeExecutable(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLocate(t *testing.T) {
	dir := t.TempDir()
	noPath := func(string) (string, error) { return "", errors.New("not found") }

	explicit := filepath.Join(dir, "sf")
	writeExecutable(t, explicit)
	if got, err := locate(explicit, nil, noPath); err != nil || got != explicit {
		t.Fatalf("explicit: %q %v", got, err)
	}
	if _, err := locate(filepath.Join(dir, "missing"), nil, noPath); !errors.Is(err, ErrOracleNotFound) {
		t.Fatalf("missing explicit path should fail, got %v", err)
	}

	onPath := func(string) (string, error) { return "/opt/bin/stockfish", nil }
	if got, _ := locate("", nil, onPath); got != "/opt/bin/stockfish" {
		t.Fatalf("PATH lookup: %q", got)
	}

	fallback := filepath.Join(dir, "engines", "stockfish")
	writeExecutable(t, fallback)
	if got, err := locate("", []string{"", fallback}, noPath); err != nil || got != fallback {
		// a real engine in a well-known location is also acceptable
		if err != nil {
			t.Fatalf("fallback: %v", err)
		}
	}

	plain := filepath.Join(dir, "plain")
	if err := os.WriteFile(plain, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if isExecutable(plain) || isExecutable(dir) {
		t.Fatalf("non-executables reported executable")
	}
}
