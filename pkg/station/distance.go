package station

import "math"

const earthRadiusKm = 6371

// Distance returns the great-circle distance between a and b in kilometers,
// rounded to the nearest kilometer. Coordinates are not validated.
func Distance(a, b Position) int {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	deltaLat := (b.Lat - a.Lat) * math.Pi / 180
	deltaLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLng/2)*math.Sin(deltaLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return int(math.Round(earthRadiusKm * c))
}

// Reachable reports whether a station distanceKm away is within userRange.
// A userRange of zero or less means the range is unknown and every station
// is reachable.
func Reachable(distanceKm int, userRange float64) bool {
	if userRange <= 0 {
		return true
	}
	return float64(distanceKm) <= userRange
}

// PriorityOf classifies a station. Availability only matters when the
// station is reachable.
func PriorityOf(reachable, available bool) Priority {
	switch {
	case reachable && available:
		return PriorityRecommended
	case reachable:
		return PriorityBusy
	default:
		return PriorityOutOfRange
	}
}
