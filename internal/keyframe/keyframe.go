// Package keyframe interpolates recorded annotation motion.
package keyframe

import (
	"math"
	"slices"
	"sort"

	"github.com/starford/tactica/internal/models"
)

// DedupeWindow is the minimum spacing between two keyframes (one frame at 60fps).
const DedupeWindow = 1.0 / 60.0

// Smootherstep maps u in [0,1] to a C1/C2-continuous ease-in/ease-out curve.
// Inputs outside [0,1] are clamped.
func Smootherstep(u float64) float64 {
	switch {
	case u <= 0:
		return 0
	case u >= 1:
		return 1
	}
	return u * u * u * (u*(u*6-15) + 10)
}

// Interpolate returns the eased transform of keyframes at time t.
// ok is false for an empty list; the caller then falls back to the
// annotation's static position. Keyframes must be sorted by time.
// A NaN time yields the first keyframe.
func Interpolate(keyframes []models.Keyframe, t float64) (kf models.Keyframe, ok bool) {
	n := len(keyframes)
	if n == 0 {
		return models.Keyframe{}, false
	}
	first, last := keyframes[0], keyframes[n-1]
	if t <= first.Time || math.IsNaN(t) {
		return first, true
	}
	if t >= last.Time {
		return last, true
	}

	// First keyframe strictly after t; first.Time < t < last.Time keeps i in [1, n-1].
	i := sort.Search(n, func(i int) bool { return keyframes[i].Time > t })
	k1, k2 := keyframes[i-1], keyframes[i]

	e := Smootherstep((t - k1.Time) / (k2.Time - k1.Time))
	return models.Keyframe{
		Time:     t,
		X:        lerp(k1.X, k2.X, e),
		Y:        lerp(k1.Y, k2.Y, e),
		Rotation: blend(k1.Rotation, k2.Rotation, e),
		ScaleX:   blend(k1.ScaleX, k2.ScaleX, e),
		ScaleY:   blend(k1.ScaleY, k2.ScaleY, e),
	}, true
}

// Insert returns a new list with kf added, replacing any keyframe closer
// than DedupeWindow to kf.Time, sorted by time. The input is not modified.
func Insert(keyframes []models.Keyframe, kf models.Keyframe) []models.Keyframe {
	out := make([]models.Keyframe, 0, len(keyframes)+1)
	for _, k := range keyframes {
		if math.Abs(k.Time-kf.Time) < DedupeWindow {
			continue
		}
		out = append(out, k)
	}
	out = append(out, kf)
	sortByTime(out)
	return out
}

// Normalize sorts keyframes by time and collapses entries closer than
// DedupeWindow, keeping the later one in input order.
func Normalize(keyframes []models.Keyframe) []models.Keyframe {
	var out []models.Keyframe
	for _, k := range keyframes {
		out = Insert(out, k)
	}
	if out == nil {
		return []models.Keyframe{}
	}
	return out
}

func sortByTime(kfs []models.Keyframe) {
	slices.SortStableFunc(kfs, func(a, b models.Keyframe) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// blend interpolates optional fields. A field present on one side only is held.
func blend(a, b *float64, t float64) *float64 {
	switch {
	case a != nil && b != nil:
		v := lerp(*a, *b, t)
		return &v
	case a != nil:
		v := *a
		return &v
	case b != nil:
		v := *b
		return &v
	}
	return nil
}
