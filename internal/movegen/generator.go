// Package movegen produces candidate destination squares per piece kind.
//
// The rules are pseudo-legal: there is no notion of check, en passant or
// promotion, and castling eligibility only looks at the current occupancy of
// the home squares.
package movegen

import (
	"fmt"

	"github.com/park285/cheese-board/internal/board"
)

// Config holds the tunables of the generator.
type Config struct {
	Squares int `yaml:"squares"`
}

func DefaultConfig() Config { return Config{Squares: board.Size} }

// Generator is stateless; the zero value is not usable, build one with New.
type Generator struct {
	// a slider crosses at most Squares-1 cells
	maxRay int
}

func New(cfg Config) (*Generator, error) {
	if cfg.Squares != board.Size {
		return nil, fmt.Errorf("movegen: unsupported board size %d (want %d)", cfg.Squares, board.Size)
	}
	return &Generator{maxRay: cfg.Squares - 1}, nil
}

var defaultGenerator, _ = New(DefaultConfig())

// Default returns the generator for the standard 8x8 board.
func Default() *Generator { return defaultGenerator }

// Generate is Default().Generate.
func Generate(p board.Piece, from board.Square, b *board.Board, mode Mode) []board.Square {
	return defaultGenerator.Generate(p, from, b, mode)
}

// Generate returns the candidate set for piece p standing on from.
// The result has no duplicates and no guaranteed order. In HumanVsComputer
// mode black pieces always get an empty set.
func (g *Generator) Generate(p board.Piece, from board.Square, b *board.Board, mode Mode) []board.Square {
	if p.IsZero() || !from.Valid() || b == nil {
		return nil
	}
	if mode == HumanVsComputer && p.Color == board.Black {
		return nil
	}
	var out []board.Square
	switch p.Kind {
	case board.Pawn:
		genPawn(p.Color, from, b, &out)
	case board.Knight:
		genSteps(p.Color, from, b, knightOffsets[:], &out)
	case board.Bishop:
		genRays(p.Color, from, b, diagonalDirs[:], g.maxRay, &out)
	case board.Rook:
		genRays(p.Color, from, b, orthogonalDirs[:], g.maxRay, &out)
	case board.Queen:
		genRays(p.Color, from, b, orthogonalDirs[:], g.maxRay, &out)
		genRays(p.Color, from, b, diagonalDirs[:], g.maxRay, &out)
	case board.King:
		genSteps(p.Color, from, b, kingOffsets[:], &out)
		for _, sq := range Castling(p, from, b) {
			if !Contains(out, sq) {
				out = append(out, sq)
			}
		}
	}
	return out
}

// Contains reports whether sq is in set.
func Contains(set []board.Square, sq board.Square) bool {
	for _, s := range set {
		if s == sq {
			return true
		}
	}
	return false
}
