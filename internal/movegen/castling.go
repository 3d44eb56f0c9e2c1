package movegen

import "github.com/park285/cheese-board/internal/board"

const kingHomeCol = 4

// KingHome returns the home square of the king of color c.
func KingHome(c board.Color) board.Square {
	if c == board.White {
		return board.Sq(7, kingHomeCol)
	}
	return board.Sq(0, kingHomeCol)
}

// Castling returns the king destinations reachable by castling. Eligibility is
// judged from occupancy alone: the king must stand on its home square, the
// squares toward the corner must be empty and the corner must hold a rook of
// the same color. Neither move history nor attacked squares are considered.
func Castling(p board.Piece, from board.Square, b *board.Board) []board.Square {
	if p.Kind != board.King || b == nil || from != KingHome(p.Color) {
		return nil
	}
	row := from.Row
	rook := board.NewPiece(p.Color, board.Rook)
	var out []board.Square
	if emptyCols(b, row, 5, 6) && hasPiece(b, board.Sq(row, 7), rook) {
		out = append(out, board.Sq(row, 6))
	}
	if emptyCols(b, row, 1, 3) && hasPiece(b, board.Sq(row, 0), rook) {
		out = append(out, board.Sq(row, 2))
	}
	return out
}

// RookHop returns the rook's source and destination for a castling king move
// from -> to, and false when the move is not a castling move.
func RookHop(from, to board.Square) (board.Square, board.Square, bool) {
	if from.Col != kingHomeCol || from.Row != to.Row || (from.Row != 0 && from.Row != 7) {
		return board.Square{}, board.Square{}, false
	}
	switch to.Col {
	case 6:
		return board.Sq(from.Row, 7), board.Sq(from.Row, 5), true
	case 2:
		return board.Sq(from.Row, 0), board.Sq(from.Row, 3), true
	default:
		return board.Square{}, board.Square{}, false
	}
}

func emptyCols(b *board.Board, row, lo, hi int) bool {
	for col := lo; col <= hi; col++ {
		if !b.IsEmpty(board.Sq(row, col)) {
			return false
		}
	}
	return true
}

func hasPiece(b *board.Board, sq board.Square, want board.Piece) bool {
	p, ok := b.PieceAt(sq)
	return ok && p == want
}
