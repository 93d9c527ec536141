package api

import (
	"github.com/starford/tactica/internal/compositor"
	"github.com/starford/tactica/internal/models"
	"github.com/starford/tactica/internal/motion"
	"github.com/starford/tactica/internal/timeline"
)

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	Name string `json:"name" example:"Derby 2nd half" validate:"required"`
}

// SetVideoRequest is the request body for attaching a video to a session.
type SetVideoRequest struct {
	FileName string  `json:"fileName" example:"derby.mp4" validate:"required"`
	Duration float64 `json:"duration" example:"2712.4" validate:"required"`
}

// SessionListResponse wraps session listings.
type SessionListResponse struct {
	Sessions []models.SessionSummary `json:"sessions" validate:"required"`
	Total    int                     `json:"total" example:"3" validate:"required"`
}

// MarkClipRequest is the request body for creating a clip at a time.
type MarkClipRequest struct {
	At   float64 `json:"at" example:"754.2"`
	Type string  `json:"type,omitempty" example:"highlight"`
}

// ClipPatchRequest is the request body for updating a clip. Omitted fields
// are left unchanged.
type ClipPatchRequest struct {
	Name        *string  `json:"name,omitempty"`
	Type        *string  `json:"type,omitempty"`
	Description *string  `json:"description,omitempty"`
	StartTime   *float64 `json:"startTime,omitempty"`
	EndTime     *float64 `json:"endTime,omitempty"`
}

func (r ClipPatchRequest) patch() timeline.ClipPatch {
	return timeline.ClipPatch{
		Name:        r.Name,
		Type:        r.Type,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}

// AnnotationPatchRequest is the request body for updating an annotation.
// Omitted fields are left unchanged.
type AnnotationPatchRequest struct {
	ClipID             *string           `json:"clipId,omitempty"`
	StartTime          *float64          `json:"startTime,omitempty"`
	EndTime            *float64          `json:"endTime,omitempty"`
	X                  *float64          `json:"x,omitempty"`
	Y                  *float64          `json:"y,omitempty"`
	Radius             *float64          `json:"radius,omitempty"`
	Points             []float64         `json:"points,omitempty"`
	Text               *string           `json:"text,omitempty"`
	FontSize           *float64          `json:"fontSize,omitempty"`
	Style              *models.Style     `json:"style,omitempty"`
	Transform          *models.Transform `json:"transform,omitempty"`
	IsPauseScene       *bool             `json:"isPauseScene,omitempty"`
	PauseSceneDuration *float64          `json:"pauseSceneDuration,omitempty"`
}

func (r AnnotationPatchRequest) patch() timeline.AnnotationPatch {
	return timeline.AnnotationPatch{
		ClipID:             r.ClipID,
		StartTime:          r.StartTime,
		EndTime:            r.EndTime,
		X:                  r.X,
		Y:                  r.Y,
		Radius:             r.Radius,
		Points:             r.Points,
		Text:               r.Text,
		FontSize:           r.FontSize,
		Style:              r.Style,
		Transform:          r.Transform,
		IsPauseScene:       r.IsPauseScene,
		PauseSceneDuration: r.PauseSceneDuration,
	}
}

// PoseRequest is one sampled transform of a recorded drag.
type PoseRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
	ScaleX   float64 `json:"scaleX" example:"1"`
	ScaleY   float64 `json:"scaleY" example:"1"`
}

// RecordMotionRequest is the request body for writing a drag as keyframes.
type RecordMotionRequest struct {
	Start float64       `json:"start" example:"12"`
	End   float64       `json:"end" example:"14.5"`
	Poses []PoseRequest `json:"poses" validate:"required"`
}

func (r RecordMotionRequest) poses() []motion.Pose {
	out := make([]motion.Pose, len(r.Poses))
	for i, p := range r.Poses {
		sx, sy := p.ScaleX, p.ScaleY
		if sx == 0 && sy == 0 {
			sx, sy = 1, 1
		}
		out[i] = motion.Pose{X: p.X, Y: p.Y, Rotation: p.Rotation, ScaleX: sx, ScaleY: sy}
	}
	return out
}

// FrameResponse is the compositor output of a session at one time.
type FrameResponse struct {
	Time        float64                 `json:"time" example:"12.5"`
	Descriptors []compositor.Descriptor `json:"descriptors" validate:"required"`
}
