package board

// Board is an 8x8 grid of optional pieces. It is a value type: copying a Board
// produces an independent snapshot.
//
// Out-of-range squares are not errors here. PieceAt reports them as empty and
// Place/Clear ignore them; callers that accept external input validate first.
type Board struct {
	cells [Size][Size]Piece
}

var backRank = [Size]Kind{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// New returns a board in the standard starting position.
func New() Board {
	var b Board
	b.Reset()
	return b
}

// Empty returns a board without pieces.
func Empty() Board { return Board{} }

// Reset restores the starting position: black on rows 0-1, white on rows 6-7.
func (b *Board) Reset() {
	b.cells = [Size][Size]Piece{}
	for col := 0; col < Size; col++ {
		b.cells[0][col] = Piece{Color: Black, Kind: backRank[col]}
		b.cells[1][col] = Piece{Color: Black, Kind: Pawn}
		b.cells[6][col] = Piece{Color: White, Kind: Pawn}
		b.cells[7][col] = Piece{Color: White, Kind: backRank[col]}
	}
}

// PieceAt returns the piece on sq and whether the square is occupied.
func (b *Board) PieceAt(sq Square) (Piece, bool) {
	if !sq.Valid() {
		return Piece{}, false
	}
	p := b.cells[sq.Row][sq.Col]
	return p, !p.IsZero()
}

// Place puts p on sq, replacing whatever was there. Placing the zero Piece clears the square.
// No legality check is performed.
func (b *Board) Place(sq Square, p Piece) {
	if !sq.Valid() {
		return
	}
	b.cells[sq.Row][sq.Col] = p
}

func (b *Board) Clear(sq Square) { b.Place(sq, Piece{}) }

// IsEmpty reports whether sq is on the board and unoccupied.
func (b *Board) IsEmpty(sq Square) bool {
	if !sq.Valid() {
		return false
	}
	return b.cells[sq.Row][sq.Col].IsZero()
}

// Count returns the number of occupied squares.
func (b *Board) Count() int {
	n := 0
	for row := range b.cells {
		for col := range b.cells[row] {
			if !b.cells[row][col].IsZero() {
				n++
			}
		}
	}
	return n
}

// Squares lists the occupied squares of color c in row-major order.
func (b *Board) Squares(c Color) []Square {
	var out []Square
	for row := 0; row < Size; row++ {
		for col := 0; col < Size; col++ {
			p := b.cells[row][col]
			if !p.IsZero() && p.Color == c {
				out = append(out, Square{Row: row, Col: col})
			}
		}
	}
	return out
}

// Grid returns the cells as names ("white_pawn", "" for empty), row 0 first.
func (b *Board) Grid() [Size][Size]string {
	var g [Size][Size]string
	for row := range b.cells {
		for col := range b.cells[row] {
			g[row][col] = b.cells[row][col].String()
		}
	}
	return g
}
