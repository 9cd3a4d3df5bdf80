package track

import (
	"math"
)

// Great-circle helpers on a spherical earth.
// Haversine inspired by https://github.com/LucaTheHacker/go-haversine

const (
	earthRadiusMeters        float64 = 6371000 // mean radius used for all projections
	earthRadiusKilometers    float64 = 6371
	earthRadiusMiles         float64 = 3958
	earthRadiusNauticalMiles float64 = 3440.065
	degToRad                 float64 = math.Pi / 180
)

// Position is a latitude/longitude pair in decimal degrees.
type Position struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
}

// Valid reports whether both coordinates are finite and inside their ranges.
func (p Position) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

func toRadians(deg float64) float64 {
	return deg * degToRad
}

func toDegrees(rad float64) float64 {
	return rad / degToRad
}

// normalizeLongitude wraps a longitude into [-180, 180).
func normalizeLongitude(lon float64) float64 {
	return math.Mod(math.Mod(lon+180, 360)+360, 360) - 180 //nolint:mnd // readability
}

// DestinationPoint returns the point reached by travelling distanceMeters from (lat, lon) along a
// great circle with initial bearing bearingDegrees.
//
// NaN inputs propagate. Results at the exact poles are not meaningful since every bearing points
// south (or north) there.
//
//nolint:mnd // readability of mathematic formula
func DestinationPoint(lat, lon, bearingDegrees, distanceMeters float64) (float64, float64) {
	phi1 := toRadians(lat)
	lambda1 := toRadians(lon)
	theta := toRadians(math.Mod(bearingDegrees, 360))
	delta := distanceMeters / earthRadiusMeters

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	sinDelta, cosDelta := math.Sincos(delta)
	sinTheta, cosTheta := math.Sincos(theta)

	sinPhi2 := sinPhi1*cosDelta + cosPhi1*sinDelta*cosTheta
	// rounding can push the argument just outside [-1, 1] close to the poles
	sinPhi2 = math.Max(-1, math.Min(1, sinPhi2))
	phi2 := math.Asin(sinPhi2)

	y := sinTheta * sinDelta * cosPhi1
	x := cosDelta - sinPhi1*sinPhi2
	lambda2 := lambda1 + math.Atan2(y, x)

	return toDegrees(phi2), normalizeLongitude(toDegrees(lambda2))
}

// DistanceStruct holds a central angle. Multiply by a radius to obtain a distance.
type DistanceStruct struct {
	C float64
}

func (d DistanceStruct) Meters() float64 {
	return d.C * earthRadiusMeters
}

func (d DistanceStruct) Kilometers() float64 {
	return d.C * earthRadiusKilometers
}

func (d DistanceStruct) Miles() float64 {
	return d.C * earthRadiusMiles
}

func (d DistanceStruct) NauticalMiles() float64 {
	return d.C * earthRadiusNauticalMiles
}

// Distance calculates the great-circle distance between p and q using the haversine formula.
//
//nolint:mnd // readability of mathematic formula
func Distance(p, q Position) DistanceStruct {
	fromLat := toRadians(p.Lat)
	toLat := toRadians(q.Lat)

	deltaLat := toLat - fromLat
	deltaLon := toRadians(q.Lon - p.Lon)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(fromLat)*
			math.Cos(toLat)*
			math.Pow(math.Sin(deltaLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return DistanceStruct{C: c}
}

// Bearing calculates the initial bearing (forward azimuth) from point 1 to point 2, normalized
// to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	fLat := toRadians(lat1)
	tLat := toRadians(lat2)
	dLon := toRadians(lon2 - lon1)

	y := math.Sin(dLon) * math.Cos(tLat)
	x := math.Cos(fLat)*math.Sin(tLat) - math.Sin(fLat)*math.Cos(tLat)*math.Cos(dLon)

	// Atan2 ranges from -180 to +180
	return math.Mod(toDegrees(math.Atan2(y, x))+360.0, 360.0) //nolint: mnd // readability
}
