// Package mediaclock provides a deterministic simulated media clock for
// headless playback, rendering and tests.
package mediaclock

import (
	"math"
	"slices"
)

// Rates are the playback rates CycleRate steps through.
var Rates = []float64{0.5, 1, 1.5, 2}

// Clock is a simulated video playhead advanced explicitly by Advance.
// It is not safe for concurrent use.
type Clock struct {
	t        float64
	duration float64
	rate     float64
	paused   bool
}

// New creates a paused clock at 0 with rate 1.
func New(duration float64) *Clock {
	return &Clock{duration: max(0, duration), rate: 1, paused: true}
}

// CurrentTime returns the playhead position in seconds.
func (c *Clock) CurrentTime() float64 { return c.t }

// Duration returns the media duration in seconds.
func (c *Clock) Duration() float64 { return c.duration }

// SetDuration changes the media duration, clamping the playhead.
func (c *Clock) SetDuration(d float64) {
	if math.IsNaN(d) {
		return
	}
	c.duration = max(0, d)
	c.t = min(c.t, c.duration)
}

// Seek moves the playhead to t clamped to [0, duration]. NaN is ignored.
func (c *Clock) Seek(t float64) {
	if math.IsNaN(t) {
		return
	}
	c.t = min(c.duration, max(0, t))
}

// Play starts playback. At the end of the media it restarts from 0.
func (c *Clock) Play() {
	if c.duration > 0 && c.t >= c.duration {
		c.t = 0
	}
	c.paused = false
}

// Pause stops playback.
func (c *Clock) Pause() { c.paused = true }

// Paused reports whether playback is stopped.
func (c *Clock) Paused() bool { return c.paused }

// PlaybackRate returns the playback rate.
func (c *Clock) PlaybackRate() float64 { return c.rate }

// SetPlaybackRate sets the playback rate. Non-positive and infinite rates
// are ignored.
func (c *Clock) SetPlaybackRate(r float64) {
	if r > 0 && !math.IsInf(r, 1) {
		c.rate = r
	}
}

// CycleRate switches to the next entry of Rates and returns it.
func (c *Clock) CycleRate() float64 {
	i := slices.Index(Rates, c.rate)
	c.rate = Rates[(i+1)%len(Rates)]
	return c.rate
}

// Advance moves a playing clock forward by dt seconds of wall time scaled
// by the playback rate. Playback pauses at the end of the media.
func (c *Clock) Advance(dt float64) float64 {
	if c.paused || dt <= 0 {
		return c.t
	}
	c.t += dt * c.rate
	if c.t >= c.duration {
		c.t = c.duration
		c.paused = true
	}
	return c.t
}
