package tui

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const (
	toneSampleRate = beep.SampleRate(44100)
	toneFrequency  = 660.0
	toneDuration   = 80 * time.Millisecond
)

// Tone plays a short sine blip when the agent reaches its goal.
// A nil or unready Tone is silent.
type Tone struct {
	ready bool
}

// NewTone initialises the speaker. On error the returned Tone is still
// usable and simply stays silent.
func NewTone() (*Tone, error) {
	if err := speaker.Init(toneSampleRate, toneSampleRate.N(time.Second/10)); err != nil {
		return &Tone{}, err
	}
	return &Tone{ready: true}, nil
}

// Ready reports whether audio output is available.
func (t *Tone) Ready() bool {
	return t != nil && t.ready
}

// Play queues the arrival blip without blocking.
func (t *Tone) Play() {
	if !t.Ready() {
		return
	}
	sine, err := generators.SineTone(toneSampleRate, toneFrequency)
	if err != nil {
		return
	}
	quiet := &effects.Volume{Streamer: sine, Base: 2, Volume: -2}
	speaker.Play(beep.Take(toneSampleRate.N(toneDuration), quiet))
}
