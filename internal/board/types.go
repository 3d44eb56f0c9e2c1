package board

import "fmt"

// Size is the number of rows and columns on the board.
const Size = 8

// Color identifies a side.
type Color uint8

const (
	White Color = iota
	Black
)

func (c Color) Opposite() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch s {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	default:
		return White, fmt.Errorf("unknown color %q", s)
	}
}

// Kind is a closed set of piece kinds. NoKind marks an empty cell.
type Kind uint8

const (
	NoKind Kind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindNames = [...]string{"", "pawn", "knight", "bishop", "rook", "queen", "king"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Letter returns the FEN letter of the kind in upper case.
func (k Kind) Letter() byte {
	switch k {
	case Pawn:
		return 'P'
	case Knight:
		return 'N'
	case Bishop:
		return 'B'
	case Rook:
		return 'R'
	case Queen:
		return 'Q'
	case King:
		return 'K'
	default:
		return 0
	}
}

func kindFromLetter(b byte) Kind {
	switch b {
	case 'P', 'p':
		return Pawn
	case 'N', 'n':
		return Knight
	case 'B', 'b':
		return Bishop
	case 'R', 'r':
		return Rook
	case 'Q', 'q':
		return Queen
	case 'K', 'k':
		return King
	default:
		return NoKind
	}
}

// Piece is a (color, kind) pair. The zero value is "no piece".
type Piece struct {
	Color Color
	Kind  Kind
}

func NewPiece(c Color, k Kind) Piece { return Piece{Color: c, Kind: k} }

func (p Piece) IsZero() bool { return p.Kind == NoKind }

// String returns names such as "white_pawn"; the empty piece is "".
func (p Piece) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Color.String() + "_" + p.Kind.String()
}

// Letter returns the FEN letter: upper case for white, lower case for black.
func (p Piece) Letter() byte {
	l := p.Kind.Letter()
	if l == 0 {
		return 0
	}
	if p.Color == Black {
		return l + ('a' - 'A')
	}
	return l
}

// Square is a (row, column) coordinate. Row 0 is black's back rank, row 7 is white's.
type Square struct {
	Row int
	Col int
}

func Sq(row, col int) Square { return Square{Row: row, Col: col} }

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < Size && s.Col >= 0 && s.Col < Size
}

// Offset returns the square shifted by (dr, dc); the result may be invalid.
func (s Square) Offset(dr, dc int) Square {
	return Square{Row: s.Row + dr, Col: s.Col + dc}
}

// String returns the algebraic name (e.g. "e2") or "-" for an invalid square.
func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{files[s.Col], ranks[s.Row]})
}
