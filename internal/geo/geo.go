// Package geo provides geographic primitives shared by the matrix provider
// and the optimizer: points, great-circle distance, and stable fingerprints
// of point sets.
package geo

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/zeebo/xxh3"
)

const (
	earthRadiusMeters = 6371000.0
	metersPerMile     = 1609.34

	// fingerprintPrecision is the coordinate rounding applied before hashing.
	// Six decimal degrees is about 0.1 m, well below GPS accuracy.
	fingerprintPrecision = 1e6
)

// Point is a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Equal reports whether p and q are the same point at fingerprint precision.
func (p Point) Equal(q Point) bool {
	return roundCoord(p.Lat) == roundCoord(q.Lat) && roundCoord(p.Lng) == roundCoord(q.Lng)
}

// HaversineMeters returns the great-circle distance between a and b in
// whole meters.
func HaversineMeters(a, b Point) int {
	rlat1 := a.Lat * math.Pi / 180
	rlat2 := b.Lat * math.Pi / 180
	dlat := (b.Lat - a.Lat) * math.Pi / 180
	dlng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return int(earthRadiusMeters * c)
}

// MetersToMiles converts meters to miles.
func MetersToMiles(m int) float64 {
	return float64(m) / metersPerMile
}

// RoundMiles rounds a mile value to two decimals (the wire precision).
func RoundMiles(miles float64) float64 {
	return math.Round(miles*100) / 100
}

// Fingerprint is a 128-bit identity of an ordered point list.
type Fingerprint [16]byte

// Hex returns the lowercase hex encoding of the fingerprint.
func (f Fingerprint) Hex() string {
	return hex.EncodeToString(f[:])
}

// FingerprintPoints computes a Fingerprint over the ordered point list with
// coordinates rounded to six decimal degrees. Identical point lists (same
// order) produce identical fingerprints.
func FingerprintPoints(points []Point) Fingerprint {
	buf := make([]byte, 0, len(points)*16)
	var scratch [8]byte
	for _, p := range points {
		binary.LittleEndian.PutUint64(scratch[:], uint64(roundCoord(p.Lat)))
		buf = append(buf, scratch[:]...)
		binary.LittleEndian.PutUint64(scratch[:], uint64(roundCoord(p.Lng)))
		buf = append(buf, scratch[:]...)
	}
	h := xxh3.Hash128(buf)
	var f Fingerprint
	binary.LittleEndian.PutUint64(f[:8], h.Lo)
	binary.LittleEndian.PutUint64(f[8:], h.Hi)
	return f
}

func roundCoord(v float64) int64 {
	return int64(math.Round(v * fingerprintPrecision))
}
