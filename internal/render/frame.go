// Package render draws simulation snapshots into images.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"sync"

	"gridpath/internal/sim"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// StatusBarHeight is the strip below the grid used for the status line.
const StatusBarHeight = 24

var (
	ColorBackground = color.RGBA{18, 18, 26, 255}
	ColorFree       = color.RGBA{128, 128, 128, 255}
	ColorObstacle   = color.RGBA{220, 45, 45, 255}
	ColorVisited    = color.RGBA{255, 150, 0, 110}
	ColorPath       = color.RGBA{40, 200, 90, 255}
	ColorAgent      = color.RGBA{40, 110, 255, 255}
	ColorText       = color.RGBA{235, 235, 240, 255}
)

// Renderer draws snapshots. Contexts are cached per frame size, so a
// Renderer is cheap to call repeatedly; it is safe for concurrent use.
type Renderer struct {
	mu   sync.Mutex
	dc   *gg.Context
	face font.Face
}

// NewRenderer creates a renderer. The Go Regular face is used for the status
// line, falling back to the built-in bitmap face.
func NewRenderer() *Renderer {
	return &Renderer{face: loadFace(13)}
}

func loadFace(size float64) font.Face {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Printf("⚠️ Failed to parse font, using basic face: %v", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create font face, using basic face: %v", err)
		return basicfont.Face7x13
	}
	return face
}

// FrameSize returns the image dimensions for a snapshot.
func FrameSize(snap *sim.Snapshot) (int, int) {
	w := int(float64(snap.Cols) * snap.Spacing)
	h := int(float64(snap.Rows)*snap.Spacing) + StatusBarHeight
	return w, h
}

// Render draws snap and returns a copy of the frame.
func (r *Renderer) Render(snap *sim.Snapshot) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	dc := r.draw(snap)
	src := dc.Image().(*image.RGBA)
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// EncodePNG draws snap and writes it to w as PNG.
func (r *Renderer) EncodePNG(w io.Writer, snap *sim.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.draw(snap).EncodePNG(w)
}

// draw renders into the cached context. Caller holds mu.
func (r *Renderer) draw(snap *sim.Snapshot) *gg.Context {
	w, h := FrameSize(snap)
	if r.dc == nil || r.dc.Width() != w || r.dc.Height() != h {
		r.dc = gg.NewContext(w, h)
		r.dc.SetFontFace(r.face)
	}
	dc := r.dc

	dc.SetColor(ColorBackground)
	dc.Clear()

	drawCells(dc, snap)
	drawVisited(dc, snap)
	drawPath(dc, snap)
	drawAgent(dc, snap)
	drawStatus(dc, snap, h)
	return dc
}

func drawCells(dc *gg.Context, snap *sim.Snapshot) {
	s := snap.Spacing
	inset := 1.0
	if s < 4 {
		inset = 0
	}
	for idx := 0; idx < snap.Cols*snap.Rows; idx++ {
		x, y := snap.Coord(idx)
		if snap.Blocked(idx) {
			dc.SetColor(ColorObstacle)
		} else {
			dc.SetColor(ColorFree)
		}
		dc.DrawRectangle(float64(x)*s+inset, float64(y)*s+inset, s-2*inset, s-2*inset)
		dc.Fill()
	}
}

func drawVisited(dc *gg.Context, snap *sim.Snapshot) {
	if len(snap.Visited) == 0 {
		return
	}
	s := snap.Spacing
	dc.SetColor(ColorVisited)
	for _, idx := range snap.Visited {
		x, y := snap.Coord(idx)
		dc.DrawRectangle(float64(x)*s+s/4, float64(y)*s+s/4, s/2, s/2)
	}
	dc.Fill()
}

func drawPath(dc *gg.Context, snap *sim.Snapshot) {
	if len(snap.Path) == 0 {
		return
	}
	dc.SetColor(ColorPath)
	dc.SetLineWidth(max(1, snap.Spacing/6))
	for i, idx := range snap.Path {
		x, y := snap.Center(idx)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	// Waypoint dots make single-node paths visible.
	for _, idx := range snap.Path {
		x, y := snap.Center(idx)
		dc.DrawCircle(x, y, max(1, snap.Spacing/8))
	}
	dc.Fill()
}

func drawAgent(dc *gg.Context, snap *sim.Snapshot) {
	dc.SetColor(ColorAgent)
	dc.DrawCircle(snap.Agent.X, snap.Agent.Y, max(2, snap.Spacing/3))
	dc.Fill()
}

func drawStatus(dc *gg.Context, snap *sim.Snapshot, height int) {
	dc.SetColor(ColorText)
	dc.DrawStringAnchored(StatusLine(snap), 6, float64(height)-StatusBarHeight/2, 0, 0.35)
}

// StatusLine summarises a snapshot in one line of text.
func StatusLine(snap *sim.Snapshot) string {
	line := fmt.Sprintf("tick %d | %s | search %s | steps %d | visited %d",
		snap.Tick, snap.Mode, snap.Search.State, snap.Search.Steps, len(snap.Visited))
	if len(snap.Path) > 0 {
		line += fmt.Sprintf(" | path %d (%.1f)", len(snap.Path), snap.Search.Cost)
	}
	return line
}
