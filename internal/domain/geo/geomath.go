package geo

import "math"

// earthRadiusKM is the mean Earth radius used by the Haversine formula.
const earthRadiusKM = 6371.0

// DistanceKM returns the great-circle distance in kilometers between two
// WGS-84 coordinates using the Haversine formula.
func DistanceKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// DistanceMeters returns the great-circle distance in meters.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	return DistanceKM(lat1, lng1, lat2, lng2) * 1000.0
}

// BearingDegrees returns the initial compass bearing (0-360) from the first
// coordinate toward the second.
func BearingDegrees(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dLng := toRadians(lng2 - lng1)

	y := math.Sin(dLng) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLng)
	deg := toDegrees(math.Atan2(y, x))
	return math.Mod(deg+360.0, 360.0)
}

// EstimateMinutes returns an ETA (minutes) for a straight-line distance at a
// conservative urban average speed. Clamped to a 1-minute floor.
func EstimateMinutes(distanceKM float64) int {
	const avgCitySpeedKmh = 24.0
	if distanceKM <= 0 {
		return 1
	}
	min := int(math.Ceil((distanceKM / avgCitySpeedKmh) * 60.0))
	if min < 1 {
		return 1
	}
	return min
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180.0 }
func toDegrees(rad float64) float64 { return rad * 180.0 / math.Pi }
