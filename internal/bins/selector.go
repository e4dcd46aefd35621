package bins

import "fmt"

// MaxTick is the highest bin index of a bin-based pool.
const MaxTick uint32 = 54000

// SelectedBins lists the bins to contribute to around the active bin.
// Lower and Higher are ordered nearest-first.
type SelectedBins struct {
	Active uint32   `json:"active"`
	Lower  []uint32 `json:"lower"`
	Higher []uint32 `json:"higher"`
}

// Len is the number of selected bins excluding the active bin.
func (s SelectedBins) Len() int {
	return len(s.Lower) + len(s.Higher)
}

// Exhausted reports that no bin fits on either side of the active bin.
func (s SelectedBins) Exhausted() bool {
	return s.Len() == 0
}

// boundedTick is a tick counter that refuses to leave [0, MaxTick].
type boundedTick uint32

func (b *boundedTick) add(step uint32) bool {
	next := uint64(*b) + uint64(step)
	if next > uint64(MaxTick) {
		return false
	}
	*b = boundedTick(next)
	return true
}

func (b *boundedTick) sub(step uint32) bool {
	if step > uint32(*b) {
		return false
	}
	*b -= boundedTick(step)
	return true
}

// Select picks up to preferredTotal bins around active spaced by span. Each
// round tries the higher side first, then the lower side, so budget a side
// cannot use flows to the other side within the same round.
func Select(active, span, preferredTotal uint32) SelectedBins {
	selected := SelectedBins{
		Active: active,
		Lower:  []uint32{},
		Higher: []uint32{},
	}

	forward := boundedTick(active)
	backward := boundedTick(active)
	remaining := preferredTotal

	for remaining > 0 {
		progressed := false

		if forward.add(span) {
			selected.Higher = append(selected.Higher, uint32(forward))
			remaining--
			progressed = true
		}

		if remaining > 0 && backward.sub(span) {
			selected.Lower = append(selected.Lower, uint32(backward))
			remaining--
			progressed = true
		}

		if !progressed {
			break
		}
	}

	return selected
}

// SelectRange lists every bin on the span grid of active within [start, end].
func SelectRange(active, span, start, end uint32) (SelectedBins, error) {
	if span == 0 {
		return SelectedBins{}, fmt.Errorf("bin span must be positive")
	}
	if start > end {
		return SelectedBins{}, fmt.Errorf("invalid bin range [%d, %d]", start, end)
	}
	if active < start || active > end {
		return SelectedBins{}, errActiveOutOfRange(active, start, end)
	}

	selected := SelectedBins{
		Active: active,
		Lower:  []uint32{},
		Higher: []uint32{},
	}
	for tick := uint64(active) + uint64(span); tick <= uint64(end); tick += uint64(span) {
		selected.Higher = append(selected.Higher, uint32(tick))
	}
	for tick := int64(active) - int64(span); tick >= int64(start); tick -= int64(span) {
		selected.Lower = append(selected.Lower, uint32(tick))
	}
	return selected, nil
}
