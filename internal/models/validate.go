package models

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var annotationTypeValues = func() []any {
	out := make([]any, len(AnnotationTypes))
	for i, t := range AnnotationTypes {
		out[i] = t
	}
	return out
}()

// Validate validates a clip's identity and time range.
func (c Clip) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required),
		validation.Field(&c.StartTime, validation.Min(0.0)),
		validation.Field(&c.EndTime, validation.By(after(c.StartTime))),
	)
}

// Validate validates an annotation's identity, type, time range and keyframe order.
func (a Annotation) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ID, validation.Required),
		validation.Field(&a.Type, validation.Required, validation.In(annotationTypeValues...)),
		validation.Field(&a.StartTime, validation.Min(0.0)),
		validation.Field(&a.EndTime, validation.By(after(a.StartTime))),
		validation.Field(&a.Keyframes, validation.By(sortedKeyframes)),
	)
}

// Validate validates every clip and annotation of a snapshot.
func (s Snapshot) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Clips),
		validation.Field(&s.Annotations),
		validation.Field(&s.CanvasWidth, validation.Min(0)),
		validation.Field(&s.CanvasHeight, validation.Min(0)),
	)
}

func after(start float64) validation.RuleFunc {
	return func(value any) error {
		end, _ := value.(float64)
		if end <= start {
			return fmt.Errorf("must be greater than start time %g", start)
		}
		return nil
	}
}

func sortedKeyframes(value any) error {
	kfs, _ := value.([]Keyframe)
	for i := 1; i < len(kfs); i++ {
		if kfs[i].Time <= kfs[i-1].Time {
			return errors.New("must be sorted by time without duplicates")
		}
	}
	return nil
}
