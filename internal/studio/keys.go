package studio

import (
	"slices"
	"strings"

	"github.com/starford/tactica/internal/mediaclock"
	"github.com/starford/tactica/internal/motion"
)

// Seek steps for the arrow keys.
const (
	SeekStep     = 10.0
	SeekFineStep = 1.0
)

// Key is one key press. Code uses DOM-style names ("Space", "ArrowLeft",
// "Escape", "m", "+"). Primary is the platform command modifier and
// Secondary the fine-adjust modifier.
type Key struct {
	Code      string
	Primary   bool
	Secondary bool
}

// HandleKey applies the keyboard contract and reports whether the key was
// consumed.
func (s *Studio) HandleKey(k Key) bool {
	switch k.Code {
	case "Space", " ":
		s.TogglePlay()
	case "ArrowLeft", "ArrowRight":
		step := SeekStep
		if k.Secondary {
			step = SeekFineStep
		}
		if k.Code == "ArrowLeft" {
			step = -step
		}
		s.Seek(s.clock.CurrentTime() + step)
	case "+", "=":
		if !k.Primary {
			return false
		}
		s.editor.ZoomIn()
	case "-", "_":
		if !k.Primary {
			return false
		}
		s.editor.ZoomOut()
	case "Delete", "Backspace":
		return s.DeleteSelected()
	case "Escape":
		s.Escape()
	default:
		switch strings.ToLower(k.Code) {
		case "m":
			if k.Primary {
				return false
			}
			_, ok := s.MarkClip()
			return ok
		case "r":
			if k.Primary {
				return false
			}
			return s.cycleRate()
		default:
			return false
		}
	}
	return true
}

// Escape cancels the active drawing tool, else exits recording, else
// clears the selection.
func (s *Studio) Escape() {
	switch {
	case s.tool != ToolSelect || s.gesture != nil:
		s.SetTool(ToolSelect)
	case s.recorder.State().Mode == motion.Recording:
		s.recorder.Finish()
	default:
		s.selected = ""
		s.editor.Deselect()
	}
}

func (s *Studio) cycleRate() bool {
	if c, ok := s.clock.(interface{ CycleRate() float64 }); ok {
		c.CycleRate()
		return true
	}
	i := slices.Index(mediaclock.Rates, s.clock.PlaybackRate())
	s.clock.SetPlaybackRate(mediaclock.Rates[(i+1)%len(mediaclock.Rates)])
	return true
}
