package studio

import "github.com/starford/tactica/internal/trackeditor"

// RulerClick seeks to the time under x on the timeline ruler.
func (s *Studio) RulerClick(x float64) {
	s.Seek(s.editor.ClickRuler(x))
}

// TrackPointerDown starts a drag or resize on a layer's track.
func (s *Studio) TrackPointerDown(layerID string, x float64) bool {
	_, ok := s.editor.PointerDown(layerID, x)
	return ok
}

// TrackPointerMove continues the active track interaction.
func (s *Studio) TrackPointerMove(x float64) bool {
	return s.editor.PointerMove(x)
}

// TrackPointerUp ends the active track interaction. A click selects the
// item and seeks to its start.
func (s *Studio) TrackPointerUp(x float64) (trackeditor.Release, bool) {
	rel, ok := s.editor.PointerUp(x)
	if !ok || !rel.Click {
		return rel, ok
	}
	if rel.Item.Kind == trackeditor.KindAnnotation {
		s.Select(rel.Item.ID)
	}
	s.Seek(rel.SeekTo)
	return rel, true
}
