// Package terminal draws sessions onto a tcell screen. Render space is scaled
// onto the terminal grid; one cell covers many pixels.
package terminal

import (
	"image"
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/okian/motionplay/internal/domain/model"
)

// shades maps luminance to glyphs, darkest first.
var shades = []rune(" .:-=+*#%@")

var (
	styleFrame  = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHand   = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleStatus = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMarker = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleFaded  = tcell.StyleDefault.Foreground(tcell.ColorOlive)
)

var targetGlyphs = map[model.TargetKind]struct {
	r     rune
	style tcell.Style
}{
	model.TargetStar:    {'*', tcell.StyleDefault.Foreground(tcell.ColorYellow)},
	model.TargetBalloon: {'O', tcell.StyleDefault.Foreground(tcell.ColorRed)},
	model.TargetFruit:   {'@', tcell.StyleDefault.Foreground(tcell.ColorGreen)},
	model.TargetBubble:  {'o', tcell.StyleDefault.Foreground(tcell.ColorLightBlue)},
}

// Surface implements render.Surface on a tcell screen.
type Surface struct {
	mu     sync.Mutex
	screen tcell.Screen
	w, h   int
	status string
}

// New wraps an initialised screen.
func New(screen tcell.Screen) *Surface {
	return &Surface{screen: screen}
}

// Resize implements render.Surface. The size is in render-space pixels.
func (s *Surface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = w, h
}

// Size implements render.Surface.
func (s *Surface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// SetStatus replaces the text shown on the top row.
func (s *Surface) SetStatus(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = text
}

// DrawFrame clears the screen and shades the mirrored camera image.
func (s *Surface) DrawFrame(f model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.screen.Clear()
	if f.Image == nil {
		return
	}
	cols, rows := s.screen.Size()
	b := f.Image.Bounds()
	for row := 1; row < rows; row++ {
		for col := 0; col < cols; col++ {
			// Mirror horizontally to match render space.
			x := b.Max.X - 1 - (col*b.Dx())/cols
			y := b.Min.Y + (row*b.Dy())/rows
			s.screen.SetContent(col, row, shade(f.Image, x, y), nil, styleFrame)
		}
	}
}

// DrawTarget fills the target's circle with its glyph.
func (s *Surface) DrawTarget(t model.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := targetGlyphs[t.Kind]
	if !ok {
		g = targetGlyphs[model.TargetStar]
	}
	c := t.Center()
	r := t.Size / 2
	col0, row0 := s.cell(c.X-r, c.Y-r)
	col1, row1 := s.cell(c.X+r, c.Y+r)
	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			px, py := s.pixel(col, row)
			if math.Hypot(px-c.X, py-c.Y) <= r {
				s.put(col, row, g.r, g.style)
			}
		}
	}
	col, row := s.cell(c.X, c.Y)
	s.put(col, row, g.r, g.style.Bold(true))
}

// DrawHitMarker draws a burst that fades as remaining goes to zero.
func (s *Surface) DrawHitMarker(p model.Point, remaining float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	style := styleMarker
	if remaining < 0.5 {
		style = styleFaded
	}
	col, row := s.cell(p.X, p.Y)
	s.put(col, row, '+', style)
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		s.put(col+d[0], row+d[1], '·', style)
	}
}

// DrawHand marks a tracked wrist.
func (s *Surface) DrawHand(p model.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, row := s.cell(p.X, p.Y)
	s.put(col, row, '●', styleHand)
}

// Present draws the status row and shows the screen.
func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cols, _ := s.screen.Size()
	runes := []rune(s.status)
	for col := 0; col < cols; col++ {
		r := ' '
		if col < len(runes) {
			r = runes[col]
		}
		s.screen.SetContent(col, 0, r, nil, styleStatus)
	}
	s.screen.Show()
	return nil
}

// ToRender converts a terminal cell to the centre of the render-space area
// it covers. Used to turn mouse clicks into taps.
func (s *Surface) ToRender(col, row int) model.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	x, y := s.pixel(col, row)
	return model.Point{X: x, Y: y}
}

// cell maps a render-space point to a terminal cell. Row 0 is the status row.
func (s *Surface) cell(x, y float64) (int, int) {
	cols, rows := s.screen.Size()
	if s.w <= 0 || s.h <= 0 {
		return -1, -1
	}
	return int(x * float64(cols) / float64(s.w)), int(y * float64(rows) / float64(s.h))
}

func (s *Surface) pixel(col, row int) (float64, float64) {
	cols, rows := s.screen.Size()
	if cols <= 0 || rows <= 0 {
		return 0, 0
	}
	return (float64(col) + 0.5) * float64(s.w) / float64(cols), (float64(row) + 0.5) * float64(s.h) / float64(rows)
}

func (s *Surface) put(col, row int, r rune, style tcell.Style) {
	cols, rows := s.screen.Size()
	if col < 0 || row < 1 || col >= cols || row >= rows {
		return
	}
	s.screen.SetContent(col, row, r, nil, style)
}

func shade(img image.Image, x, y int) rune {
	r, g, b, _ := img.At(x, y).RGBA()
	lum := (299*r + 587*g + 114*b) / 1000 // 0..0xffff
	return shades[int(lum)*(len(shades)-1)/0xffff]
}
