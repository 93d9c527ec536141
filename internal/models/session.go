package models

import "time"

// Session is one analysis session: a video plus the authored timeline.
type Session struct {
	ID            string       `json:"id" yaml:"id"`
	Name          string       `json:"name" yaml:"name"`
	VideoFileName string       `json:"videoFileName" yaml:"videoFileName"`
	VideoDuration float64      `json:"videoDuration" yaml:"videoDuration"`
	CanvasWidth   int          `json:"canvasWidth" yaml:"canvasWidth"`
	CanvasHeight  int          `json:"canvasHeight" yaml:"canvasHeight"`
	Clips         []Clip       `json:"clips" yaml:"clips"`
	Annotations   []Annotation `json:"annotations" yaml:"annotations"`
	Checksum      string       `json:"checksum" yaml:"checksum"`
	CreatedAt     time.Time    `json:"createdAt" yaml:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt" yaml:"updatedAt"`
}

// SessionSummary is the lightweight form returned by list operations.
type SessionSummary struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	VideoFileName   string    `json:"videoFileName"`
	VideoDuration   float64   `json:"videoDuration"`
	ClipCount       int       `json:"clipCount"`
	AnnotationCount int       `json:"annotationCount"`
	Checksum        string    `json:"checksum"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Snapshot is the authored content written by a save.
type Snapshot struct {
	Clips        []Clip       `json:"clips" yaml:"clips"`
	Annotations  []Annotation `json:"annotations" yaml:"annotations"`
	CanvasWidth  int          `json:"canvasWidth" yaml:"canvasWidth"`
	CanvasHeight int          `json:"canvasHeight" yaml:"canvasHeight"`
}

// Summary derives the list form of s.
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:              s.ID,
		Name:            s.Name,
		VideoFileName:   s.VideoFileName,
		VideoDuration:   s.VideoDuration,
		ClipCount:       len(s.Clips),
		AnnotationCount: len(s.Annotations),
		Checksum:        s.Checksum,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Snapshot returns the authored content of s.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Clips:        s.Clips,
		Annotations:  s.Annotations,
		CanvasWidth:  s.CanvasWidth,
		CanvasHeight: s.CanvasHeight,
	}
}
