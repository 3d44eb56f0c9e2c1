package render

import (
	"embed"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/park285/cheese-board/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

// svgStyleFixes rewrites style spellings in the bundled glyphs that oksvg rejects.
var svgStyleFixes = strings.NewReplacer(
	"fill:000000", "fill:#000000",
	"fill: 000000", "fill:#000000",
	"stroke: 000000", "stroke:#000000",
	"fill: #", "fill:#",
	"stroke: #", "stroke:#",
)

type glyphKey struct {
	piece board.Piece
	px    int
}

// pieceSet rasterises piece glyphs once per (piece, pixel size).
type pieceSet struct {
	dir    string // optional directory shadowing the embedded glyphs
	glyphs sync.Map
}

func newPieceSet(dir string) *pieceSet {
	return &pieceSet{dir: dir}
}

func (s *pieceSet) image(piece board.Piece, px int) (image.Image, error) {
	key := glyphKey{piece: piece, px: px}
	if img, ok := s.glyphs.Load(key); ok {
		return img.(image.Image), nil
	}
	src, err := s.source(piece)
	if err != nil {
		return nil, err
	}
	img, err := rasterize(src, px)
	if err != nil {
		return nil, fmt.Errorf("piece %s: %w", piece, err)
	}
	actual, _ := s.glyphs.LoadOrStore(key, img)
	return actual.(image.Image), nil
}

// rasterize draws an SVG document into a transparent px by px square.
func rasterize(src string, px int) (*image.RGBA, error) {
	icon, err := oksvg.ReadIconStream(strings.NewReader(svgStyleFixes.Replace(src)))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	side := float64(px)
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = side, side
	}
	icon.SetTarget(0, 0, side, side)

	out := image.NewRGBA(image.Rect(0, 0, px, px))
	icon.Draw(rasterx.NewDasher(px, px, rasterx.NewScannerGV(px, px, out, out.Bounds())), 1)
	return out, nil
}

func (s *pieceSet) source(piece board.Piece) (string, error) {
	name := glyphFile(piece)
	if s.dir != "" {
		if raw, err := os.ReadFile(filepath.Join(s.dir, name)); err == nil {
			return string(raw), nil
		}
	}
	raw, err := pieceFiles.ReadFile("assets/pieces/" + name)
	if err != nil {
		return "", fmt.Errorf("piece glyph %s: %w", name, err)
	}
	return string(raw), nil
}

// glyphFile maps a piece to its asset name, e.g. "wN.svg" or "bQ.svg".
func glyphFile(piece board.Piece) string {
	side := 'w'
	if piece.Color == board.Black {
		side = 'b'
	}
	return fmt.Sprintf("%c%c.svg", side, piece.Kind.Letter())
}
