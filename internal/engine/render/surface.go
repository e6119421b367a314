package render

import (
	"sync"

	"github.com/okian/motionplay/internal/domain/model"
)

// Surface is a drawing target. Calls for one frame arrive between two
// Present calls from a single goroutine.
type Surface interface {
	Resize(w, h int)
	Size() (int, int)
	DrawFrame(f model.Frame)
	DrawTarget(t model.Target)
	DrawHitMarker(p model.Point, remaining float64)
	DrawHand(p model.Point)
	Present() error
}

// NullSurface draws nothing. It is used for headless sessions.
type NullSurface struct {
	mu   sync.Mutex
	w, h int
}

// Resize implements Surface.
func (s *NullSurface) Resize(w, h int) {
	s.mu.Lock()
	s.w, s.h = w, h
	s.mu.Unlock()
}

// Size implements Surface.
func (s *NullSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

func (*NullSurface) DrawFrame(model.Frame)              {}
func (*NullSurface) DrawTarget(model.Target)            {}
func (*NullSurface) DrawHitMarker(model.Point, float64) {}
func (*NullSurface) DrawHand(model.Point)               {}
func (*NullSurface) Present() error                     { return nil }

// Scene is what a RecordingSurface saw between two Present calls.
type Scene struct {
	Frames  int
	Targets []model.Target
	Markers []model.Point
	Hands   []model.Point
}

// RecordingSurface keeps every presented scene. Used by tests and replays.
type RecordingSurface struct {
	mu      sync.Mutex
	w, h    int
	resizes int
	cur     Scene
	scenes  []Scene
}

// Resize implements Surface.
func (s *RecordingSurface) Resize(w, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w, s.h = w, h
	s.resizes++
}

// Size implements Surface.
func (s *RecordingSurface) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w, s.h
}

// DrawFrame implements Surface.
func (s *RecordingSurface) DrawFrame(model.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Frames++
}

// DrawTarget implements Surface.
func (s *RecordingSurface) DrawTarget(t model.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Targets = append(s.cur.Targets, t)
}

// DrawHitMarker implements Surface.
func (s *RecordingSurface) DrawHitMarker(p model.Point, _ float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Markers = append(s.cur.Markers, p)
}

// DrawHand implements Surface.
func (s *RecordingSurface) DrawHand(p model.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur.Hands = append(s.cur.Hands, p)
}

// Present implements Surface.
func (s *RecordingSurface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenes = append(s.scenes, s.cur)
	s.cur = Scene{}
	return nil
}

// Scenes returns the presented scenes.
func (s *RecordingSurface) Scenes() []Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Scene(nil), s.scenes...)
}

// Last returns the most recent presented scene.
func (s *RecordingSurface) Last() (Scene, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scenes) == 0 {
		return Scene{}, false
	}
	return s.scenes[len(s.scenes)-1], true
}

// Resizes returns how often the surface was resized.
func (s *RecordingSurface) Resizes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resizes
}
