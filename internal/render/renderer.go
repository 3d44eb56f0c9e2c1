// Package render is the presentation boundary of the board: it maps window
// pixels to squares and draws read-only session frames as PNG images.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/game"
)

// Frame is everything a drawing needs from a session.
type Frame struct {
	Board      board.Board
	Turn       board.Color
	WhiteClock time.Duration
	BlackClock time.Duration
	Selected   *board.Square
	Highlights []board.Square
	LastMove   *board.Move
	Header     string
}

// FrameOf captures the drawable state of s.
func FrameOf(s *game.Session, header string) Frame {
	f := Frame{
		Board:      s.Board(),
		Turn:       s.Turn(),
		WhiteClock: s.Clock(board.White),
		BlackClock: s.Clock(board.Black),
		Highlights: s.Highlights(),
		Header:     header,
	}
	if sq, ok := s.Selected(); ok {
		f.Selected = &sq
	}
	if mv, ok := s.LastMove(); ok {
		f.LastMove = &mv
	}
	return f
}

var (
	lightSquare      = color.RGBA{240, 217, 181, 255}
	darkSquare       = color.RGBA{181, 136, 99, 255}
	headerColor      = color.RGBA{28, 31, 46, 255}
	headerText       = color.RGBA{236, 239, 255, 255}
	activeClockText  = color.RGBA{255, 228, 120, 255}
	lastMoveTint     = color.NRGBA{R: 255, G: 228, B: 120, A: 120}
	selectedOutline  = color.NRGBA{R: 40, G: 170, B: 90, A: 255}
	candidateDot     = color.NRGBA{R: 40, G: 40, B: 40, A: 110}
	coordinateColour = color.NRGBA{R: 60, G: 60, B: 60, A: 200}
)

type Renderer struct {
	geom   Geometry
	pieces *pieceSet
}

type Option func(*Renderer)

// WithPieceDir loads glyphs from dir ("wK.svg", "bP.svg", ...) before the built-in set.
func WithPieceDir(dir string) Option {
	return func(r *Renderer) { r.pieces = newPieceSet(dir) }
}

func New(geom Geometry, opts ...Option) *Renderer {
	if geom.SquareSize() <= 0 {
		geom = DefaultGeometry()
	}
	r := &Renderer{geom: geom, pieces: newPieceSet("")}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Geometry() Geometry { return r.geom }

func (r *Renderer) RenderPNG(ctx context.Context, f Frame) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(r.geom.Bounds())

	r.drawHeader(img, f)
	r.drawSquares(img)
	if f.LastMove != nil {
		r.tint(img, f.LastMove.From, lastMoveTint)
		r.tint(img, f.LastMove.To, lastMoveTint)
	}
	r.drawCoordinates(img)
	if err := r.drawPieces(img, &f.Board); err != nil {
		return nil, err
	}
	if f.Selected != nil {
		r.outline(img, *f.Selected, selectedOutline)
	}
	for _, sq := range f.Highlights {
		r.dot(img, sq, candidateDot)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func squareColor(sq board.Square) color.Color {
	if (sq.Row+sq.Col)%2 == 0 {
		return lightSquare
	}
	return darkSquare
}

func (r *Renderer) drawSquares(dst imagedraw.Image) {
	for row := range board.Size {
		for col := range board.Size {
			sq := board.Sq(row, col)
			imagedraw.Draw(dst, r.geom.SquareRect(sq), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawPieces(dst imagedraw.Image, b *board.Board) error {
	size := r.geom.SquareSize()
	for row := range board.Size {
		for col := range board.Size {
			sq := board.Sq(row, col)
			p, ok := b.PieceAt(sq)
			if !ok {
				continue
			}
			glyph, err := r.pieces.image(p, size)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, r.geom.SquareRect(sq), glyph, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func (r *Renderer) drawHeader(img *image.RGBA, f Frame) {
	strip := image.Rect(0, 0, img.Bounds().Dx(), r.geom.MarginTop)
	if strip.Empty() {
		return
	}
	imagedraw.Draw(img, strip, image.NewUniform(headerColor), image.Point{}, imagedraw.Src)

	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: img, Face: face}
	baseline := (r.geom.MarginTop + face.Metrics().Ascent.Ceil()) / 2

	whiteCol, blackCol := headerText, headerText
	if f.Turn == board.White {
		whiteCol = activeClockText
	} else {
		blackCol = activeClockText
	}
	drawText(drawer, "White "+FormatClock(f.WhiteClock), 12, baseline, whiteCol)

	black := "Black " + FormatClock(f.BlackClock)
	width := drawer.MeasureString(black).Round()
	drawText(drawer, black, strip.Dx()-12-width, baseline, blackCol)

	if f.Header != "" {
		width = drawer.MeasureString(f.Header).Round()
		drawText(drawer, f.Header, (strip.Dx()-width)/2, baseline, headerText)
	}
}

func (r *Renderer) drawCoordinates(img *image.RGBA) {
	drawer := &font.Drawer{Dst: img, Face: basicfont.Face7x13}
	ascent := basicfont.Face7x13.Metrics().Ascent.Ceil()
	for i := range board.Size {
		rank := r.geom.SquareRect(board.Sq(i, 0))
		drawText(drawer, board.Sq(i, 0).String()[1:], rank.Min.X+3, rank.Min.Y+ascent+2, coordinateColour)
		file := r.geom.SquareRect(board.Sq(board.Size-1, i))
		drawText(drawer, board.Sq(board.Size-1, i).String()[:1], file.Max.X-10, file.Max.Y-4, coordinateColour)
	}
}

func drawText(d *font.Drawer, s string, x, baseline int, clr color.Color) {
	d.Src = image.NewUniform(clr)
	d.Dot = fixed.P(x, baseline)
	d.DrawString(s)
}

func (r *Renderer) tint(img *image.RGBA, sq board.Square, clr color.Color) {
	imagedraw.Draw(img, r.geom.SquareRect(sq), image.NewUniform(clr), image.Point{}, imagedraw.Over)
}

func (r *Renderer) outline(img *image.RGBA, sq board.Square, clr color.Color) {
	rect := r.geom.SquareRect(sq)
	w := max(r.geom.SquareSize()/20, 2)
	fill := image.NewUniform(clr)
	for _, edge := range []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+w),
		image.Rect(rect.Min.X, rect.Max.Y-w, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+w, rect.Max.Y),
		image.Rect(rect.Max.X-w, rect.Min.Y, rect.Max.X, rect.Max.Y),
	} {
		imagedraw.Draw(img, edge, fill, image.Point{}, imagedraw.Over)
	}
}

func (r *Renderer) dot(img *image.RGBA, sq board.Square, clr color.Color) {
	drawDisc(img, r.geom.Center(sq), max(r.geom.SquareSize()/7, 1), clr)
}

func drawDisc(img *image.RGBA, center image.Point, radius int, clr color.Color) {
	rSquared := radius * radius
	for y := -radius; y <= radius; y++ {
		for x := -radius; x <= radius; x++ {
			if x*x+y*y > rSquared {
				continue
			}
			blendPixel(img, center.X+x, center.Y+y, clr)
		}
	}
}

func blendPixel(img *image.RGBA, x, y int, clr color.Color) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	sr, sg, sb, sa := clr.RGBA()
	if sa == 0 {
		return
	}
	dst := img.RGBAAt(x, y)
	inv := 0xffff - sa
	mix := func(s uint32, d uint8) uint8 {
		return uint8((s + uint32(d)*0x101*inv/0xffff) >> 8)
	}
	img.SetRGBA(x, y, color.RGBA{
		R: mix(sr, dst.R),
		G: mix(sg, dst.G),
		B: mix(sb, dst.B),
		A: mix(sa, dst.A),
	})
}

// FormatClock renders a clock as m:ss, rounding up to the next second.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
