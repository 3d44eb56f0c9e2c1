package board

import (
	"fmt"
	"strings"
)

// Placement encodes the board as the piece-placement field of a FEN string.
// Row 0 (rank 8) comes first.
func (b *Board) Placement() string {
	var sb strings.Builder
	for row := 0; row < Size; row++ {
		if row > 0 {
			sb.WriteByte('/')
		}
		empty := 0
		for col := 0; col < Size; col++ {
			p := b.cells[row][col]
			if p.IsZero() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(p.Letter())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
	}
	return sb.String()
}

// ParsePlacement decodes a piece-placement field. Boards without kings are accepted.
func ParsePlacement(s string) (Board, error) {
	var b Board
	rows := strings.Split(strings.TrimSpace(s), "/")
	if len(rows) != Size {
		return Board{}, fmt.Errorf("placement %q: want %d ranks, got %d", s, Size, len(rows))
	}
	for row, text := range rows {
		col := 0
		for i := 0; i < len(text); i++ {
			ch := text[i]
			if ch >= '1' && ch <= '8' {
				col += int(ch - '0')
				continue
			}
			kind := kindFromLetter(ch)
			if kind == NoKind {
				return Board{}, fmt.Errorf("placement %q: unexpected %q", s, ch)
			}
			if col >= Size {
				return Board{}, fmt.Errorf("placement %q: rank %d overflows", s, Size-row)
			}
			color := White
			if ch >= 'a' && ch <= 'z' {
				color = Black
			}
			b.cells[row][col] = Piece{Color: color, Kind: kind}
			col++
		}
		if col != Size {
			return Board{}, fmt.Errorf("placement %q: rank %d has %d files", s, Size-row, col)
		}
	}
	return b, nil
}
