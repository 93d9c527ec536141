package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/gateway"
	"github.com/starford/tactica/internal/mediaclock"
	"github.com/starford/tactica/internal/studio"
)

// RenderOptions controls a headless playback.
type RenderOptions struct {
	From float64
	// To stops playback; zero means the end of the video.
	To   float64
	FPS  float64
	Rate float64
}

// RenderedFrame is one line of headless output.
type RenderedFrame struct {
	Frame       int                     `json:"frame"`
	Time        float64                 `json:"time"`
	Paused      bool                    `json:"paused,omitempty"`
	PauseScene  string                  `json:"pauseScene,omitempty"`
	Descriptors []compositor.Descriptor `json:"descriptors"`
}

// Render plays session id on a simulated clock and writes one JSON line
// per frame to w. Pause scenes hold the playhead exactly as they do in the
// editor, so the output has the same timing a viewer would see.
func Render(ctx context.Context, gw gateway.Gateway, settings studio.Settings, logger *slog.Logger, id string, ro RenderOptions, w io.Writer) (int, error) {
	for name, v := range map[string]float64{"from": ro.From, "to": ro.To, "fps": ro.FPS, "rate": ro.Rate} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("render: %s must be finite", name)
		}
	}
	if ro.FPS <= 0 {
		return 0, fmt.Errorf("render: fps must be positive")
	}
	clock := mediaclock.New(0)
	s := studio.New(gw, clock, settings, logger)
	if err := s.Open(ctx, id); err != nil {
		return 0, err
	}
	defer s.Close()

	end := clock.Duration()
	if ro.To > 0 && ro.To < end {
		end = ro.To
	}
	if ro.Rate > 0 {
		clock.SetPlaybackRate(ro.Rate)
	}
	s.Seek(ro.From)
	s.TogglePlay()

	enc := json.NewEncoder(w)
	dt := 1 / ro.FPS
	descriptors := s.Tick(0)
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		pauseID, _, holding := s.PauseScene()
		t := clock.CurrentTime()
		if descriptors == nil {
			descriptors = []compositor.Descriptor{}
		}
		if err := enc.Encode(RenderedFrame{
			Frame:       n,
			Time:        t,
			Paused:      clock.Paused(),
			PauseScene:  pauseID,
			Descriptors: descriptors,
		}); err != nil {
			return n, fmt.Errorf("render: write frame: %w", err)
		}
		if t >= end || (clock.Paused() && !holding) {
			return n + 1, nil
		}
		descriptors = s.Tick(dt)
	}
}
