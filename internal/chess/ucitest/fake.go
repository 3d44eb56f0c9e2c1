// Package ucitest turns a test binary into a scripted UCI engine.
//
// A package that needs an engine calls MaybeServe first thing in TestMain and
// points the code under test at Enable's return value; the child process
// inherits the environment and answers UCI commands on stdin/stdout.
package ucitest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
)

const (
	EnvServe    = "CHEESE_FAKE_UCI"
	EnvBestMove = "CHEESE_FAKE_UCI_BESTMOVE"
	EnvLog      = "CHEESE_FAKE_UCI_LOG"

	DefaultBestMove = "e7e5"
)

// MaybeServe serves UCI and exits when the process was started by Enable.
func MaybeServe() {
	if os.Getenv(EnvServe) != "1" {
		return
	}
	var transcript io.Writer = io.Discard
	if path := os.Getenv(EnvLog); path != "" {
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			defer f.Close()
			transcript = f
		}
	}
	if len(os.Args) > 1 {
		fmt.Fprintln(transcript, "args", strings.Join(os.Args[1:], " "))
	}
	Serve(os.Stdin, os.Stdout, transcript, strings.Fields(os.Getenv(EnvBestMove)))
	os.Exit(0)
}

// Enable makes child processes of this test binary act as engines and returns
// the binary path. Replies are taken from bestmoves in order, the last one
// repeating; "(none)" makes the engine report no move.
func Enable(t testing.TB, bestmoves ...string) string {
	t.Helper()
	t.Setenv(EnvServe, "1")
	t.Setenv(EnvBestMove, strings.Join(bestmoves, " "))
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	return exe
}

// Transcript records every command the engine receives into a temp file and
// returns a function reading it back. A process started with arguments logs
// them first as "args ...".
func Transcript(t testing.TB) func() []string {
	t.Helper()
	path := t.TempDir() + "/uci.log"
	t.Setenv(EnvLog, path)
	return func() []string {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		return strings.Split(strings.TrimSpace(string(raw)), "\n")
	}
}

// Serve answers UCI commands read from in until quit or EOF.
func Serve(in io.Reader, out io.Writer, transcript io.Writer, bestmoves []string) {
	if len(bestmoves) == 0 {
		bestmoves = []string{DefaultBestMove}
	}
	searches := 0
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fmt.Fprintln(transcript, line)
		cmd, _, _ := strings.Cut(line, " ")
		switch cmd {
		case "uci":
			fmt.Fprintln(out, "id name cheese-fake")
			fmt.Fprintln(out, "id author test")
			fmt.Fprintln(out, "uciok")
		case "isready":
			fmt.Fprintln(out, "readyok")
		case "go":
			mv := bestmoves[min(searches, len(bestmoves)-1)]
			searches++
			if mv != "(none)" {
				fmt.Fprintf(out, "info depth 1 score cp 13 multipv 1 pv %s\n", mv)
			} else {
				fmt.Fprintln(out, "info depth 0 score mate 0")
			}
			fmt.Fprintf(out, "bestmove %s\n", mv)
		case "quit":
			return
		}
	}
}
