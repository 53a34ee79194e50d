package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/project"
	"github.com/twpayne/go-polyline"
)

var errInvalidPoint = errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errInvalidPoint
	}

	if p1 == p2 {
		return 0, nil
	}

	return orbgeo.DistanceHaversine(p1.orb(), p2.orb()), nil
}

// Bearing returns the initial great-circle bearing from one point to another
func (g *geoUtils) Bearing(from, to Point) (float64, error) {
	if !isValidCoordinate(from) || !isValidCoordinate(to) {
		return 0, errInvalidPoint
	}
	return WrapDegrees(orbgeo.Bearing(from.orb(), to.orb())), nil
}

// ClosestPointOnPolyline finds closest point on polyline to given point
func (g *geoUtils) ClosestPointOnPolyline(point Point, polyline Polyline) (Point, error) {
	projection, err := g.ProjectOntoPolyline(point, polyline)
	if err != nil {
		return Point{}, err
	}
	return projection.Point, nil
}

// ProjectOntoPolyline snaps point to the nearest location on any polyline segment.
// Segments are treated as straight lines in web mercator, which is accurate for
// the short step geometries this is used on.
func (g *geoUtils) ProjectOntoPolyline(point Point, polyline Polyline) (Projection, error) {
	if !isValidCoordinate(point) {
		return Projection{}, errors.New("invalid point coordinates")
	}

	if len(polyline.Points) == 0 {
		return Projection{}, errors.New("polyline has no points")
	}

	if len(polyline.Points) == 1 {
		distance, err := g.PointToPoint(point, polyline.Points[0])
		if err != nil {
			return Projection{}, err
		}
		return Projection{Point: polyline.Points[0], Index: 0, Distance: distance}, nil
	}

	p := project.WGS84.ToMercator(point.orb())
	best := Projection{Distance: math.Inf(1)}

	for i := 0; i < len(polyline.Points)-1; i++ {
		a := project.WGS84.ToMercator(polyline.Points[i].orb())
		b := project.WGS84.ToMercator(polyline.Points[i+1].orb())

		candidate := fromOrb(project.Mercator.ToWGS84(closestOnSegment(p, a, b)))
		distance := orbgeo.DistanceHaversine(point.orb(), candidate.orb())

		if distance < best.Distance {
			best = Projection{Point: candidate, Index: i, Distance: distance}
		}
	}

	return best, nil
}

// closestOnSegment returns the planar projection of p onto segment ab, clamped to its ends
func closestOnSegment(p, a, b orb.Point) orb.Point {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lengthSquared := dx*dx + dy*dy
	if lengthSquared == 0 {
		return a
	}

	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lengthSquared
	t = math.Max(0, math.Min(1, t))

	return orb.Point{a[0] + t*dx, a[1] + t*dy}
}

// DistanceAlongToEnd measures from the snapped position of point to the last polyline vertex
func (g *geoUtils) DistanceAlongToEnd(point Point, polyline Polyline) (float64, error) {
	projection, err := g.ProjectOntoPolyline(point, polyline)
	if err != nil {
		return 0, err
	}

	if len(polyline.Points) == 1 {
		return 0, nil
	}

	remaining := orbgeo.DistanceHaversine(projection.Point.orb(), polyline.Points[projection.Index+1].orb())
	for i := projection.Index + 1; i < len(polyline.Points)-1; i++ {
		remaining += orbgeo.DistanceHaversine(polyline.Points[i].orb(), polyline.Points[i+1].orb())
	}

	return remaining, nil
}

// PolylineLength sums the haversine length of every segment
func (g *geoUtils) PolylineLength(polyline Polyline) float64 {
	if len(polyline.Points) < 2 {
		return 0
	}

	line := make(orb.LineString, len(polyline.Points))
	for i, p := range polyline.Points {
		line[i] = p.orb()
	}
	return orbgeo.LengthHaversine(line)
}

// DecodePolyline decodes an encoded polyline string to a point sequence
func (g *geoUtils) DecodePolyline(encoded string, precision int) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	codec, err := codecFor(precision)
	if err != nil {
		return nil, err
	}

	coords, rest, err := codec.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("failed to decode polyline: %d trailing bytes", len(rest))
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}

		if !isValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// EncodePolyline encodes points with the given precision, returning "" for an unsupported precision
func (g *geoUtils) EncodePolyline(points []Point, precision int) string {
	codec, err := codecFor(precision)
	if err != nil {
		return ""
	}

	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(codec.EncodeCoords(nil, coords))
}

func codecFor(precision int) (polyline.Codec, error) {
	switch precision {
	case PrecisionPolyline5:
		return polyline.Codec{Dim: 2, Scale: 1e5}, nil
	case PrecisionPolyline6:
		return polyline.Codec{Dim: 2, Scale: 1e6}, nil
	default:
		return polyline.Codec{}, fmt.Errorf("unsupported polyline precision %d", precision)
	}
}

// Angle Utilities

// WrapDegrees normalizes an angle to [0, 360)
func WrapDegrees(degrees float64) float64 {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0
	}
	wrapped := math.Mod(degrees, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	if wrapped >= 360 {
		wrapped = 0
	}
	return wrapped
}

// AngleDifference returns the smallest angle between two bearings, always in [0, 180]
func AngleDifference(a, b float64) float64 {
	diff := math.Abs(WrapDegrees(a) - WrapDegrees(b))
	return math.Min(diff, 360-diff)
}

// Coordinate Conversion Utilities

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, errInvalidPoint
	}
	return point, nil
}

// Destination returns the point reached by travelling distanceMeters from p on bearing
func Destination(p Point, bearing, distanceMeters float64) Point {
	return fromOrb(orbgeo.PointAtBearingAndDistance(p.orb(), bearing, distanceMeters))
}

func (p Point) orb() orb.Point {
	return orb.Point{p.Longitude, p.Latitude}
}

func fromOrb(p orb.Point) Point {
	return Point{Latitude: p.Lat(), Longitude: p.Lon()}
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
