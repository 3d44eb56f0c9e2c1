package movegen

import "github.com/park285/cheese-board/internal/board"

var (
	knightOffsets = [8][2]int{
		{-2, -1}, {-2, 1}, {-1, -2}, {-1, 2},
		{1, -2}, {1, 2}, {2, -1}, {2, 1},
	}
	kingOffsets = [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1},
		{0, -1}, {0, 1},
		{1, -1}, {1, 0}, {1, 1},
	}
	orthogonalDirs = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
	diagonalDirs   = [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}}
)

// forward is the row delta of a pawn advance: white moves toward row 0.
func forward(c board.Color) int {
	if c == board.White {
		return -1
	}
	return 1
}

func homeRow(c board.Color) int {
	if c == board.White {
		return 6
	}
	return 1
}

func genPawn(c board.Color, from board.Square, b *board.Board, out *[]board.Square) {
	dir := forward(c)
	one := from.Offset(dir, 0)
	if b.IsEmpty(one) {
		*out = append(*out, one)
		two := from.Offset(2*dir, 0)
		if from.Row == homeRow(c) && b.IsEmpty(two) {
			*out = append(*out, two)
		}
	}
	for _, dc := range [2]int{-1, 1} {
		diag := from.Offset(dir, dc)
		if p, ok := b.PieceAt(diag); ok && p.Color != c {
			*out = append(*out, diag)
		}
	}
}

// genSteps handles the single-step movers (knight, king).
func genSteps(c board.Color, from board.Square, b *board.Board, offsets [][2]int, out *[]board.Square) {
	for _, d := range offsets {
		to := from.Offset(d[0], d[1])
		if !to.Valid() {
			continue
		}
		if p, ok := b.PieceAt(to); !ok || p.Color != c {
			*out = append(*out, to)
		}
	}
}

// genRays scans each direction for at most maxRay steps, stopping at the edge
// or the first occupied square, which is included only when it holds an
// opposing piece.
func genRays(c board.Color, from board.Square, b *board.Board, dirs [][2]int, maxRay int, out *[]board.Square) {
	for _, d := range dirs {
		to := from
		for step := 0; step < maxRay; step++ {
			to = to.Offset(d[0], d[1])
			if !to.Valid() {
				break
			}
			p, ok := b.PieceAt(to)
			if !ok {
				*out = append(*out, to)
				continue
			}
			if p.Color != c {
				*out = append(*out, to)
			}
			break
		}
	}
}
