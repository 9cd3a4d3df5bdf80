package track

import "math"

var compassPoints = []string{ //nolint: gochecknoglobals // lookup table
	"N", "NNE", "NE", "ENE",
	"E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW",
	"W", "WNW", "NW", "NNW",
}

// CompassPoint names the 16-wind compass point closest to a bearing in degrees.
func CompassPoint(bearing float64) string {
	if math.IsNaN(bearing) || math.IsInf(bearing, 0) {
		return "?"
	}
	step := 360.0 / float64(len(compassPoints))
	normalized := math.Mod(math.Mod(bearing, 360)+360, 360) //nolint:mnd // readability
	i := int(math.Floor(normalized/step+0.5)) % len(compassPoints)
	return compassPoints[i]
}

// RangeAndBearing returns the distance in nautical miles and the initial bearing from home to p.
func RangeAndBearing(home, p Position) (float64, float64) {
	return Distance(home, p).NauticalMiles(), Bearing(home.Lat, home.Lon, p.Lat, p.Lon)
}
