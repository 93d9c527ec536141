package timeline

// Edge identifies one endpoint of a timeline item.
type Edge string

// Item edges.
const (
	EdgeStart Edge = "start"
	EdgeEnd   Edge = "end"
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// fitRange clamps [start,end] into [0,total] with at least minDur between
// them. When the range cannot grow forward it is pushed back from total.
// If total itself is shorter than minDur the whole timeline is returned.
func fitRange(start, end, total, minDur float64) (float64, float64) {
	if total <= minDur {
		return 0, total
	}
	start = clamp(start, 0, total)
	end = clamp(end, 0, total)
	if end-start >= minDur {
		return start, end
	}
	end = start + minDur
	if end > total {
		end = total
		start = total - minDur
	}
	return start, end
}

// translate moves [start,end] so it begins at newStart, keeping its length
// and staying inside [0,total].
func translate(start, end, newStart, total float64) (float64, float64) {
	length := end - start
	if length >= total {
		return 0, total
	}
	s := clamp(newStart, 0, total-length)
	return s, min(s+length, total)
}

// resize moves one edge to t, keeping minDur and the other edge fixed.
func resize(start, end float64, edge Edge, t, total, minDur float64) (float64, float64) {
	if total <= minDur {
		return 0, total
	}
	switch edge {
	case EdgeStart:
		start = clamp(t, 0, end-minDur)
		if start < 0 {
			start = 0
		}
	case EdgeEnd:
		end = clamp(t, start+minDur, total)
	}
	return fitRange(start, end, total, minDur)
}
