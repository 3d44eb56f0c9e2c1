package chess

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrOracleNotFound means no engine executable could be located.
var ErrOracleNotFound = errors.New("oracle executable not found")

const engineName = "stockfish"

var wellKnownPaths = []string{
	"/usr/local/bin/stockfish",
	"/opt/homebrew/bin/stockfish",
	"/usr/games/stockfish",
}

// Locate resolves the engine binary. An explicit path wins and must exist;
// otherwise PATH is searched, then the well-known install locations, the
// working directory and finally the extra fallbacks.
func Locate(explicit string, fallbacks []string) (string, error) {
	return locate(explicit, fallbacks, exec.LookPath)
}

func locate(explicit string, fallbacks []string, lookPath func(string) (string, error)) (string, error) {
	if p := strings.TrimSpace(explicit); p != "" {
		if isExecutable(p) {
			return p, nil
		}
		return "", fmt.Errorf("%w: %s", ErrOracleNotFound, p)
	}
	if p, err := lookPath(engineName); err == nil && p != "" {
		return p, nil
	}
	candidates := append([]string(nil), wellKnownPaths...)
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, engineName))
	}
	candidates = append(candidates, fallbacks...)
	for _, p := range candidates {
		if p = strings.TrimSpace(p); p != "" && isExecutable(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w (searched PATH and %s)", ErrOracleNotFound, strings.Join(candidates, ", "))
}

func isExecutable(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return false
	}
	return fi.Mode().Perm()&0o111 != 0
}
