package geo

// Metro is a named reference point used to label coordinates.
type Metro struct {
	City  string
	State string
	Point Point
}

// Association is the nearest metro to a point along with its distance.
type Association struct {
	Metro         Metro
	DistanceMiles float64
}

// Associate returns the nearest metro within maxMiles of p.
// The second return value is false when no metro is close enough.
func Associate(p Point, metros []Metro, maxMiles float64) (Association, bool) {
	var (
		best  Association
		found bool
	)
	for _, m := range metros {
		d := DistanceMiles(p, m.Point)
		if d > maxMiles {
			continue
		}
		if !found || d < best.DistanceMiles {
			best = Association{Metro: m, DistanceMiles: d}
			found = true
		}
	}
	return best, found
}
