package geo

// Point represents a geographic coordinate
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Polyline represents an encoded polyline with optional decoded points
type Polyline struct {
	EncodedPolyline string  `json:"encoded_polyline,omitempty"`
	Points          []Point `json:"points"`
}

// Projection is the result of snapping a point onto a polyline
type Projection struct {
	Point    Point   `json:"point"`
	Index    int     `json:"index"`    // index of the segment start in the polyline
	Distance float64 `json:"distance"` // meters from the query point to Point
}

// Polyline precisions used by Directions geometries
const (
	PrecisionPolyline5 = 5
	PrecisionPolyline6 = 6
)

// GeoUtils interface defines geographic calculation utilities
type GeoUtils interface {
	// Calculate great-circle distance between two points in meters
	PointToPoint(p1, p2 Point) (float64, error)

	// Initial bearing from one point to another, degrees in [0, 360)
	Bearing(from, to Point) (float64, error)

	// Find closest point on polyline to given point
	ClosestPointOnPolyline(point Point, polyline Polyline) (Point, error)

	// Snap a point onto a polyline, reporting the segment it landed on
	ProjectOntoPolyline(point Point, polyline Polyline) (Projection, error)

	// Distance in meters along the polyline from the snapped point to its end
	DistanceAlongToEnd(point Point, polyline Polyline) (float64, error)

	// Total length of the polyline in meters
	PolylineLength(polyline Polyline) float64

	// Decode polyline string with the given precision (5 or 6)
	DecodePolyline(encoded string, precision int) ([]Point, error)

	// Encode points as a polyline string with the given precision
	EncodePolyline(points []Point, precision int) string
}
