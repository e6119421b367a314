// Package audio plays short feedback cues for hits and session completion.
package audio

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

// SampleRate is the output rate of every cue.
const SampleRate = beep.SampleRate(44100)

// Cue names a feedback sound.
type Cue int

// Cues.
const (
	CueHit      Cue = iota // pose-detected hit, punch or jump
	CueTap                 // pointer hit
	CueComplete            // session finished
)

type note struct {
	freq float64
	dur  time.Duration
}

var cues = map[Cue][]note{
	CueHit:      {{880, 60 * time.Millisecond}},
	CueTap:      {{660, 40 * time.Millisecond}},
	CueComplete: {{523.25, 120 * time.Millisecond}, {659.25, 120 * time.Millisecond}, {783.99, 240 * time.Millisecond}},
}

// Stream builds the streamer for cue at volume, 0 to 1.
func Stream(cue Cue, volume float64) (beep.Streamer, error) {
	notes, ok := cues[cue]
	if !ok {
		return nil, fmt.Errorf("unknown cue %d", cue)
	}
	parts := make([]beep.Streamer, 0, len(notes))
	for _, n := range notes {
		tone, err := generators.SineTone(SampleRate, n.freq)
		if err != nil {
			return nil, fmt.Errorf("tone %.0fHz: %w", n.freq, err)
		}
		parts = append(parts, beep.Take(SampleRate.N(n.dur), tone))
	}
	return withVolume(beep.Seq(parts...), volume), nil
}

// withVolume scales s linearly; zero or less is silent.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(math.Min(vol, 1))}
}

// Player plays cues without blocking.
type Player interface {
	Play(cue Cue)
}

// Silent drops every cue.
type Silent struct{}

// Play implements Player.
func (Silent) Play(Cue) {}

// Speaker plays cues on the default output device.
type Speaker struct {
	mu     sync.Mutex
	volume float64
	mixer  *beep.Mixer
	ready  bool
}

// NewSpeaker creates a speaker player at volume, 0 to 1.
func NewSpeaker(volume float64) *Speaker {
	return &Speaker{volume: volume, mixer: &beep.Mixer{}}
}

// Open initialises the output device.
func (s *Speaker) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := speaker.Init(SampleRate, SampleRate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}
	speaker.Play(s.mixer)
	s.ready = true
	return nil
}

// Play implements Player. Cues are dropped until Open succeeds.
func (s *Speaker) Play(cue Cue) {
	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		return
	}
	st, err := Stream(cue, s.volume)
	if err != nil {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Close stops playback and releases the device.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	s.ready = false
}
