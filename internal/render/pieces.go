package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/park285/cheese-duel/internal/chess"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Piece glyphs on a 45x45 canvas. %[1]s is the fill, %[2]s the outline.
var pieceShapes = map[chess.PieceType]string{
	chess.Pawn: `<circle cx="22.5" cy="14" r="5.5" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<path d="M16 36 L18 22 L27 22 L29 36 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<rect x="12" y="35" width="21" height="4" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
	chess.Rook: `<path d="M11 9 L15 9 L15 12 L19 12 L19 9 L26 9 L26 12 L30 12 L30 9 L34 9 L34 15 L31 17 L31 32 L14 32 L14 17 L11 15 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<rect x="10" y="32" width="25" height="6" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
	chess.Knight: `<path d="M14 38 L32 38 L31 24 C31 16 27 10 20 9 L19 6 L16 10 L11 17 L12 21 L16 20 L20 18 C20 23 15 28 14 38 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<circle cx="17" cy="13" r="1.2" style="fill:%[2]s"/>`,
	chess.Bishop: `<circle cx="22.5" cy="7" r="2.5" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<ellipse cx="22.5" cy="20" rx="7" ry="10" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<path d="M15 30 L30 30 L32 34 L13 34 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<rect x="10" y="34" width="25" height="4" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
	chess.Queen: `<path d="M9 14 L14 28 L17 12 L22.5 27 L28 12 L31 28 L36 14 L33 33 L12 33 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<rect x="11" y="33" width="23" height="5" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
	chess.King: `<path d="M21 4 L24 4 L24 8 L28 8 L28 11 L24 11 L24 15 L21 15 L21 11 L17 11 L17 8 L21 8 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.2"/>
<path d="M12 20 C12 14 33 14 33 20 L30 33 L15 33 Z" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>
<rect x="11" y="33" width="23" height="5" style="fill:%[1]s;stroke:%[2]s;stroke-width:1.5"/>`,
}

func pieceSVG(p chess.Piece) []byte {
	fill, stroke := "#f7f3ea", "#1c1c1c"
	if p.Color == chess.Black {
		fill, stroke = "#262626", "#e8e8e8"
	}
	body := fmt.Sprintf(pieceShapes[p.Type], fill, stroke)
	return []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 45 45" width="45" height="45">` + body + `</svg>`)
}

type pieceCacheKey struct {
	piece chess.Piece
	size  int
}

var (
	pieceCache   = map[pieceCacheKey]image.Image{}
	pieceCacheMu sync.RWMutex
)

func renderPieceImage(piece chess.Piece, size int) (image.Image, error) {
	key := pieceCacheKey{piece: piece, size: size}

	pieceCacheMu.RLock()
	if img, ok := pieceCache[key]; ok {
		pieceCacheMu.RUnlock()
		return img, nil
	}
	pieceCacheMu.RUnlock()

	if _, ok := pieceShapes[piece.Type]; !ok {
		return nil, fmt.Errorf("no glyph for piece %q", piece.Type)
	}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(sanitizeSVG(pieceSVG(piece))))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)

	pieceCacheMu.Lock()
	pieceCache[key] = img
	pieceCacheMu.Unlock()

	return img, nil
}
