// Package bbox validates geographic bounding boxes for DEM and stack requests.
package bbox

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation error")

// ValidationError describes a rejected bounding box.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BBox is a latitude/longitude rectangle in decimal degrees.
type BBox struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// Validate checks ordering first, then ranges, matching the order in which
// users usually get them wrong.
func (b BBox) Validate() error {
	for _, v := range []float64{b.LatMin, b.LatMax, b.LonMin, b.LonMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &ValidationError{Field: "bounding box", Reason: "coordinates must be finite numbers"}
		}
	}
	if b.LatMin >= b.LatMax {
		return &ValidationError{Field: "latitude", Reason: "lat_min must be less than lat_max"}
	}
	if b.LonMin >= b.LonMax {
		return &ValidationError{Field: "longitude", Reason: "lon_min must be less than lon_max"}
	}
	if b.LatMin < -90 || b.LatMax > 90 {
		return &ValidationError{Field: "latitude", Reason: "values must be between -90 and 90"}
	}
	if b.LonMin < -180 || b.LonMax > 180 {
		return &ValidationError{Field: "longitude", Reason: "values must be between -180 and 180"}
	}
	return nil
}

// Tiles is an integer bounding box, as taken by dem.py.
type Tiles struct {
	South, North, West, East int
}

// Expand truncates each bound toward zero and widens the box by margin whole
// degrees on every side.
func (b BBox) Expand(margin int) Tiles {
	return Tiles{
		South: int(b.LatMin) - margin,
		North: int(b.LatMax) + margin,
		West:  int(b.LonMin) - margin,
		East:  int(b.LonMax) + margin,
	}
}

// Args returns the tiles as "S N W E" argument strings.
func (t Tiles) Args() []string {
	return []string{
		strconv.Itoa(t.South),
		strconv.Itoa(t.North),
		strconv.Itoa(t.West),
		strconv.Itoa(t.East),
	}
}

// String returns "latMin latMax lonMin lonMax".
func (b BBox) String() string {
	return fmt.Sprintf("%s %s %s %s",
		formatDegrees(b.LatMin), formatDegrees(b.LatMax),
		formatDegrees(b.LonMin), formatDegrees(b.LonMax))
}

func formatDegrees(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
