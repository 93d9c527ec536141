package studio

import (
	"log/slog"
	"math"

	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/timeline"
	"github.com/starford/tactica/internal/trackeditor"
)

// Tool is the active canvas tool.
type Tool string

// Canvas tools. Drawing tools share their names with annotation types.
const (
	ToolSelect    Tool = "select"
	ToolText      Tool = Tool(models.AnnotationText)
	ToolCircle    Tool = Tool(models.AnnotationCircle)
	ToolSpotlight Tool = Tool(models.AnnotationSpotlight)
	ToolLine      Tool = Tool(models.AnnotationLine)
	ToolArrow     Tool = Tool(models.AnnotationArrow)
	ToolPolygon   Tool = Tool(models.AnnotationPolygon)
)

const (
	// minGesture is the drag length below which a shape gesture is a
	// click and gets default dimensions.
	minGesture    = 4.0
	defaultRadius = 40.0
	defaultText   = "Text"
)

type gesture struct {
	tool       Tool
	start, end motion.Point
}

// Tool returns the active tool.
func (s *Studio) Tool() Tool { return s.tool }

// SetTool switches the active tool. Unknown tools select ToolSelect. A
// drawing gesture in progress is dropped.
func (s *Studio) SetTool(t Tool) {
	if t != ToolSelect && !isDrawingTool(t) {
		t = ToolSelect
	}
	s.tool = t
	s.gesture = nil
}

func isDrawingTool(t Tool) bool {
	for _, at := range models.AnnotationTypes {
		if Tool(at) == t {
			return true
		}
	}
	return false
}

// PauseSceneMode reports whether new drawings become pause scenes.
func (s *Studio) PauseSceneMode() bool { return s.pauseSceneMode }

// TogglePauseSceneMode flips pause-scene drawing mode and returns it.
func (s *Studio) TogglePauseSceneMode() bool {
	s.pauseSceneMode = !s.pauseSceneMode
	return s.pauseSceneMode
}

// PointerDownCanvas handles a pointer press on the render surface.
// annotationID is the annotation under the pointer, if any, and modifier
// reports whether the recording modifier is held.
func (s *Studio) PointerDownCanvas(p motion.Point, annotationID string, modifier bool) {
	if s.tool != ToolSelect {
		s.gesture = &gesture{tool: s.tool, start: p, end: p}
		return
	}
	if annotationID == "" {
		s.selected = ""
		return
	}
	s.Select(annotationID)
	s.recorder.Begin(annotationID, modifier, true, p)
}

// PointerMoveCanvas handles pointer movement. pose is the dragged
// transform of the annotation under the pointer, if the surface is
// dragging one.
func (s *Studio) PointerMoveCanvas(p motion.Point, pose *motion.Pose) {
	if s.gesture != nil {
		s.gesture.end = p
		return
	}
	if pose != nil && s.recorder.State().Mode == motion.Recording {
		s.recorder.Move(p, *pose)
	}
}

// PointerUpCanvas handles a pointer release. A drawing gesture creates an
// annotation, a recording is finished with pose (or the last live pose
// when nil).
func (s *Studio) PointerUpCanvas(p motion.Point, pose *motion.Pose) (models.Annotation, bool) {
	if g := s.gesture; g != nil {
		s.gesture = nil
		g.end = p
		return s.createFromGesture(g)
	}
	if s.recorder.State().Mode == motion.Recording {
		if pose != nil {
			s.recorder.End(*pose)
		} else {
			s.recorder.Finish()
		}
	}
	return models.Annotation{}, false
}

// ModifierReleased ends an active recording.
func (s *Studio) ModifierReleased() bool {
	return s.recorder.Finish()
}

// TransformEnd applies a static move/rotate/scale of an annotation made on
// the surface outside of recording.
func (s *Studio) TransformEnd(id string, pose motion.Pose) bool {
	if s.recorder.IsRecording(id) {
		return s.recorder.End(pose)
	}
	tr := models.Transform{Rotation: pose.Rotation, ScaleX: pose.ScaleX, ScaleY: pose.ScaleY}
	_, ok := s.store.UpdateAnnotation(id, annotationMove(pose.X, pose.Y, tr))
	return ok
}

func (s *Studio) createFromGesture(g *gesture) (models.Annotation, bool) {
	a, ok := buildAnnotation(g, s.settings.FontSize)
	if !ok {
		return models.Annotation{}, false
	}
	t := s.clock.CurrentTime()
	a.StartTime, a.EndTime = t, t+s.settings.AnnotationSpan
	if layer, ok := s.editor.Layer(string(g.tool)); ok {
		a.Style.Stroke = layer.Color
	}
	if ref, ok := s.editor.Selected(); ok && ref.Kind == trackeditor.KindClip {
		if c, ok := s.store.Clip(ref.ID); ok && t >= c.StartTime && t <= c.EndTime {
			a.ClipID = c.ID
		}
	}
	if s.pauseSceneMode {
		a.IsPauseScene = true
		a.PauseSceneDuration = models.Float(s.settings.PauseSceneDuration)
		s.clock.Pause()
	}
	created, err := s.store.AddAnnotation(a)
	if err != nil {
		s.logger.Warn("studio: drawing rejected", slog.String("error", err.Error()))
		return models.Annotation{}, false
	}
	s.Select(created.ID)
	return created, true
}

// buildAnnotation turns a drawing gesture into annotation geometry.
// Line-like shapes need a real drag; other shapes fall back to defaults.
func buildAnnotation(g *gesture, fontSize float64) (models.Annotation, bool) {
	dx, dy := g.end.X-g.start.X, g.end.Y-g.start.Y
	length := math.Hypot(dx, dy)
	a := models.Annotation{
		Type:      models.AnnotationType(g.tool),
		X:         g.start.X,
		Y:         g.start.Y,
		Transform: models.IdentityTransform(),
		Style:     models.Style{StrokeWidth: 3},
	}
	switch g.tool {
	case ToolCircle, ToolSpotlight:
		a.Radius = length
		if length < minGesture {
			a.Radius = defaultRadius
		}
		if g.tool == ToolSpotlight {
			a.Style.Fill = "#00000099"
		}
	case ToolLine, ToolArrow:
		if length < minGesture {
			return models.Annotation{}, false
		}
		a.Points = []float64{0, 0, dx, dy}
	case ToolPolygon:
		if math.Abs(dx) < minGesture || math.Abs(dy) < minGesture {
			return models.Annotation{}, false
		}
		a.X, a.Y = math.Min(g.start.X, g.end.X), math.Min(g.start.Y, g.end.Y)
		w, h := math.Abs(dx), math.Abs(dy)
		a.Points = []float64{0, 0, w, 0, w, h, 0, h}
	case ToolText:
		a.Text = defaultText
		a.FontSize = fontSize
		a.Style.StrokeWidth = 0
	default:
		return models.Annotation{}, false
	}
	return a, true
}

func annotationMove(x, y float64, tr models.Transform) timeline.AnnotationPatch {
	return timeline.AnnotationPatch{X: &x, Y: &y, Transform: &tr}
}
