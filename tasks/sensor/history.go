package sensor

// History keeps the last few valid temperature readings so the display
// can show a short-term average and a comfort label.
type History struct {
	vals [5]int16
	set  [5]bool
	idx  int
}

// Record appends a reading in tenths of °C, evicting the oldest.
func (h *History) Record(deciC int16) {
	h.vals[h.idx] = deciC
	h.set[h.idx] = true
	h.idx = (h.idx + 1) % len(h.vals)
}

// Average returns the mean of the recorded readings. ok is false until
// at least one reading has been recorded.
func (h *History) Average() (deciC int16, ok bool) {
	var sum, n int
	for i, v := range h.vals {
		if h.set[i] {
			sum += int(v)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return int16(sum / n), true
}

// Status maps the average to a comfort label.
func (h *History) Status() string {
	avg, ok := h.Average()
	switch {
	case !ok:
		return "No data"
	case avg < 100:
		return "Cold"
	case avg < 200:
		return "Cool"
	case avg < 250:
		return "Comfortable"
	case avg < 300:
		return "Warm"
	default:
		return "Hot"
	}
}
