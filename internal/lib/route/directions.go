package route

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
)

// DirectionsResponse represents a Directions v5 API response body
type DirectionsResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message,omitempty"`
	Routes  []DirectionsRoute `json:"routes"`
}

// DirectionsRoute represents a single route in the response
type DirectionsRoute struct {
	Distance float64         `json:"distance"`
	Duration float64         `json:"duration"`
	Legs     []DirectionsLeg `json:"legs"`
}

// DirectionsLeg represents a route leg in the response
type DirectionsLeg struct {
	Summary  string           `json:"summary"`
	Distance float64          `json:"distance"`
	Duration float64          `json:"duration"`
	Steps    []DirectionsStep `json:"steps"`
}

// DirectionsStep represents a leg step; Geometry is either an encoded polyline
// string or a GeoJSON LineString object depending on the request
type DirectionsStep struct {
	Name          string                   `json:"name"`
	Mode          string                   `json:"mode"`
	Distance      float64                  `json:"distance"`
	Duration      float64                  `json:"duration"`
	Geometry      json.RawMessage          `json:"geometry"`
	Maneuver      DirectionsManeuver       `json:"maneuver"`
	Intersections []DirectionsIntersection `json:"intersections"`
}

// DirectionsManeuver represents the step maneuver; Location is [lon, lat]
type DirectionsManeuver struct {
	Location      []float64 `json:"location"`
	BearingBefore float64   `json:"bearing_before"`
	BearingAfter  float64   `json:"bearing_after"`
	Type          string    `json:"type"`
	Modifier      string    `json:"modifier"`
	Instruction   string    `json:"instruction"`
}

// DirectionsIntersection represents an intersection; In and Out are absent on
// depart and arrive respectively
type DirectionsIntersection struct {
	Location []float64 `json:"location"`
	Bearings []int     `json:"bearings"`
	Entry    []bool    `json:"entry"`
	In       *int      `json:"in,omitempty"`
	Out      *int      `json:"out,omitempty"`
}

type geoJSONLineString struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

// DecodeDirections parses a Directions v5 response and converts its first route.
// precision applies to polyline encoded step geometries.
func DecodeDirections(r io.Reader, precision int) (*Route, error) {
	var response DirectionsResponse
	if err := json.NewDecoder(r).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode directions response: %w", err)
	}

	if response.Code != "" && response.Code != "Ok" {
		return nil, fmt.Errorf("directions error %s: %s", response.Code, response.Message)
	}

	if len(response.Routes) == 0 {
		return nil, errors.New("no routes found in response")
	}

	return response.Routes[0].ToRoute(precision)
}

// ToRoute converts the API representation into a validated Route
func (d DirectionsRoute) ToRoute(precision int) (*Route, error) {
	geoUtils := geo.NewGeoUtils()

	r := &Route{
		Distance: d.Distance,
		Duration: d.Duration,
		Legs:     make([]Leg, 0, len(d.Legs)),
	}

	for li, dl := range d.Legs {
		leg := Leg{
			Summary:  dl.Summary,
			Distance: dl.Distance,
			Duration: dl.Duration,
			Steps:    make([]Step, 0, len(dl.Steps)),
		}

		for si, ds := range dl.Steps {
			step, err := ds.toStep(geoUtils, precision)
			if err != nil {
				return nil, fmt.Errorf("leg %d step %d: %w", li, si, err)
			}
			leg.Steps = append(leg.Steps, step)
		}

		r.Legs = append(r.Legs, leg)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (ds DirectionsStep) toStep(geoUtils geo.GeoUtils, precision int) (Step, error) {
	points, encoded, err := decodeGeometry(geoUtils, ds.Geometry, precision)
	if err != nil {
		return Step{}, err
	}

	maneuverLocation, err := lonLat(ds.Maneuver.Location)
	if err != nil {
		return Step{}, fmt.Errorf("maneuver location: %w", err)
	}

	step := Step{
		Name:     ds.Name,
		Mode:     ds.Mode,
		Distance: ds.Distance,
		Duration: ds.Duration,
		Geometry: geo.Polyline{EncodedPolyline: encoded, Points: points},
		Maneuver: Maneuver{
			Location:      maneuverLocation,
			BearingBefore: ds.Maneuver.BearingBefore,
			BearingAfter:  ds.Maneuver.BearingAfter,
			Type:          ds.Maneuver.Type,
			Modifier:      ds.Maneuver.Modifier,
			Instruction:   ds.Maneuver.Instruction,
		},
		Intersections: make([]Intersection, 0, len(ds.Intersections)),
	}

	for i, di := range ds.Intersections {
		location, err := lonLat(di.Location)
		if err != nil {
			return Step{}, fmt.Errorf("intersection %d location: %w", i, err)
		}
		step.Intersections = append(step.Intersections, Intersection{
			Location: location,
			Bearings: di.Bearings,
			Entry:    di.Entry,
			In:       indexOrNone(di.In),
			Out:      indexOrNone(di.Out),
		})
	}

	return step, nil
}

func decodeGeometry(geoUtils geo.GeoUtils, raw json.RawMessage, precision int) ([]geo.Point, string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, "", nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, "", fmt.Errorf("geometry: %w", err)
		}
		if encoded == "" {
			return nil, "", nil
		}
		points, err := geoUtils.DecodePolyline(encoded, precision)
		if err != nil {
			return nil, "", fmt.Errorf("geometry: %w", err)
		}
		return points, encoded, nil
	}

	var line geoJSONLineString
	if err := json.Unmarshal(raw, &line); err != nil {
		return nil, "", fmt.Errorf("geometry: %w", err)
	}
	points := make([]geo.Point, 0, len(line.Coordinates))
	for _, c := range line.Coordinates {
		p, err := lonLat(c)
		if err != nil {
			return nil, "", fmt.Errorf("geometry: %w", err)
		}
		points = append(points, p)
	}
	return points, geoUtils.EncodePolyline(points, precision), nil
}

func lonLat(coords []float64) (geo.Point, error) {
	if len(coords) < 2 {
		return geo.Point{}, fmt.Errorf("expected [lon, lat], got %d values", len(coords))
	}
	return geo.NewPoint(coords[1], coords[0])
}

func indexOrNone(i *int) int {
	if i == nil {
		return NoBearing
	}
	return *i
}
