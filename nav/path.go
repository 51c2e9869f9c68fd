package nav

import (
	"math"

	"github.com/paulmach/orb"
)

// normalizePath projects line onto a NormalizedGridSize square grid and drops
// points within two grid units of one already kept. Small displays draw the
// route from this instead of the full geometry.
func normalizePath(line orb.LineString) []PathPoint {
	if len(line) == 0 {
		return []PathPoint{}
	}

	b := line.Bound()
	minLat, maxLat := b.Min.Lat(), b.Max.Lat()
	minLng, maxLng := b.Min.Lon(), b.Max.Lon()

	// Handle cases where all points are the same
	latRange := maxLat - minLat
	if latRange == 0 {
		latRange = 1
	}
	lngRange := maxLng - minLng
	if lngRange == 0 {
		lngRange = 1
	}

	var normalizedPoints []PathPoint
	for _, p := range line {
		x := int(math.Round((p.Lon() - minLng) / lngRange * float64(NormalizedGridSize)))
		y := int(math.Round((p.Lat() - minLat) / latRange * float64(NormalizedGridSize)))

		x = max(0, min(NormalizedGridSize, x))
		y = max(0, min(NormalizedGridSize, y))

		isDuplicate := false
		for _, existing := range normalizedPoints {
			// Manhattan distance on the grid
			if abs(x-existing[0])+abs(y-existing[1]) <= 2 {
				isDuplicate = true
				break
			}
		}

		if !isDuplicate {
			normalizedPoints = append(normalizedPoints, PathPoint{x, y})
		}
	}

	return normalizedPoints
}

// abs returns the absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
