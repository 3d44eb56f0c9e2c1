package render

import (
	"image"

	"github.com/park285/cheese-board/internal/board"
)

// Geometry is the pixel layout of the board window: a square board below a
// header strip of MarginTop pixels.
type Geometry struct {
	BoardSize int
	MarginTop int
}

func DefaultGeometry() Geometry { return Geometry{BoardSize: 800, MarginTop: 60} }

func (g Geometry) SquareSize() int { return g.BoardSize / board.Size }

// Bounds covers the header strip and the board.
func (g Geometry) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.SquareSize()*board.Size, g.MarginTop+g.SquareSize()*board.Size)
}

// SquareAt converts window pixel coordinates to a board square. ok is false
// for clicks on the header or outside the board.
func (g Geometry) SquareAt(x, y int) (board.Square, bool) {
	size := g.SquareSize()
	if size <= 0 || x < 0 || y < g.MarginTop {
		return board.Square{}, false
	}
	sq := board.Sq((y-g.MarginTop)/size, x/size)
	if !sq.Valid() {
		return board.Square{}, false
	}
	return sq, true
}

// SquareRect is the pixel rectangle of sq.
func (g Geometry) SquareRect(sq board.Square) image.Rectangle {
	size := g.SquareSize()
	x := sq.Col * size
	y := g.MarginTop + sq.Row*size
	return image.Rect(x, y, x+size, y+size)
}

// Center is the pixel center of sq, handy for clients that click by pixel.
func (g Geometry) Center(sq board.Square) image.Point {
	r := g.SquareRect(sq)
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}
