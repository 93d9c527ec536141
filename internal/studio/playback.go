package studio

import (
	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/models"
)

type pauseScene struct {
	annotationID string
	remaining    float64
}

// PauseScene returns the id of the pause scene holding playback and the
// seconds left before playback resumes.
func (s *Studio) PauseScene() (string, float64, bool) {
	if s.pause == nil {
		return "", 0, false
	}
	return s.pause.annotationID, s.pause.remaining, true
}

// TogglePlay plays a paused clock and pauses a playing one. A pause scene
// in progress is skipped.
func (s *Studio) TogglePlay() {
	if s.pause != nil {
		s.pause = nil
		s.clock.Play()
		return
	}
	if s.clock.Paused() {
		s.clock.Play()
	} else {
		s.clock.Pause()
	}
}

// Tick advances the studio by dt seconds of wall time and returns the
// frame to draw. Simulated clocks (those with an Advance method) are
// advanced here; real players advance themselves.
func (s *Studio) Tick(dt float64) []compositor.Descriptor {
	if s.pause != nil {
		s.pause.remaining -= dt
		if s.pause.remaining <= 0 {
			s.pause = nil
			s.clock.Play()
		}
	} else if adv, ok := s.clock.(interface{ Advance(float64) float64 }); ok {
		adv.Advance(dt)
	}

	t := s.clock.CurrentTime()
	if s.pause == nil && !s.clock.Paused() {
		if a, ok := s.crossedPauseScene(s.lastTime, t); ok {
			s.clock.Pause()
			s.clock.Seek(a.StartTime)
			t = s.clock.CurrentTime()
			dur := s.settings.PauseSceneDuration
			if a.PauseSceneDuration != nil {
				dur = *a.PauseSceneDuration
			}
			s.pause = &pauseScene{annotationID: a.ID, remaining: dur}
		}
	}
	s.lastTime = t
	return s.Frame(t)
}

// crossedPauseScene finds the earliest pause scene whose start lies in
// (from, to].
func (s *Studio) crossedPauseScene(from, to float64) (models.Annotation, bool) {
	var hit models.Annotation
	found := false
	for _, a := range s.store.Annotations() {
		if !a.IsPauseScene || a.StartTime <= from || a.StartTime > to {
			continue
		}
		if !found || a.StartTime < hit.StartTime {
			hit, found = a, true
		}
	}
	return hit, found
}

// Frame computes the descriptors for time t, skipping annotations on
// hidden layers.
func (s *Studio) Frame(t float64) []compositor.Descriptor {
	all := s.store.Annotations()
	visible := all[:0]
	for _, a := range all {
		if s.editor.LayerVisible(string(a.Type)) {
			visible = append(visible, a)
		}
	}
	return s.comp.Frame(t, visible, s.recorder)
}
