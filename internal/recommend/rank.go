package recommend

import (
	"math"

	"github.com/sells-group/vibepick/internal/places"
)

// ratingMargin is the rating gap above which rating outranks distance.
const ratingMargin = 0.5

// Dedup drops places whose dedup key was already seen, keeping the first
// instance. The input slice is not modified.
func Dedup(in []places.Place) []places.Place {
	seen := make(map[places.DedupKey]struct{}, len(in))
	out := make([]places.Place, 0, len(in))
	for _, p := range in {
		k := p.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Less orders a before b when both are rated and a's rating is higher by
// more than ratingMargin. Otherwise the closer place comes first.
func Less(a, b places.Place) bool {
	if a.Rating != nil && b.Rating != nil && math.Abs(*a.Rating-*b.Rating) > ratingMargin {
		return *a.Rating > *b.Rating
	}
	return a.DistanceMiles < b.DistanceMiles
}

// Rank sorts places in place with Less using a stable insertion sort, so
// equal places keep their discovery order. Less is not transitive once
// ratings mix; the insertion sort never leaves an adjacent pair out of
// order, so ranking a ranked list changes nothing.
func Rank(ps []places.Place) {
	for i := 1; i < len(ps); i++ {
		for j := i; j > 0 && Less(ps[j], ps[j-1]); j-- {
			ps[j], ps[j-1] = ps[j-1], ps[j]
		}
	}
}

// Top returns at most n leading places.
func Top(ps []places.Place, n int) []places.Place {
	if n >= 0 && len(ps) > n {
		return ps[:n]
	}
	return ps
}
