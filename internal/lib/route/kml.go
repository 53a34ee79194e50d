package route

import (
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/dpup/info.ersn.net/navigator/internal/lib/geo"
)

// KMLDocument renders the route geometry and one placemark per maneuver.
// extra elements (for example replay events) are appended to the document.
func KMLDocument(r *Route, name string, extra ...kml.Element) *kml.CompoundElement {
	children := []kml.Element{kml.Name(name)}

	for li, leg := range r.Legs {
		var coordinates []kml.Coordinate
		var maneuvers []kml.Element

		for si, step := range leg.Steps {
			for _, p := range step.Geometry.Points {
				coordinates = append(coordinates, kmlCoordinate(p))
			}

			description := step.Maneuver.Instruction
			if description == "" {
				description = fmt.Sprintf("%s %s", step.Maneuver.Type, step.Maneuver.Modifier)
			}
			maneuvers = append(maneuvers, kml.Placemark(
				kml.Name(fmt.Sprintf("Leg %d step %d: %s", li, si, step.Maneuver.Type)),
				kml.Description(description),
				kml.Point(kml.Coordinates(kmlCoordinate(step.Maneuver.Location))),
			))
		}

		folder := []kml.Element{kml.Name(fmt.Sprintf("Leg %d %s", li, leg.Summary))}
		if len(coordinates) > 1 {
			folder = append(folder, kml.Placemark(
				kml.Name("Geometry"),
				kml.LineString(kml.Tessellate(true), kml.Coordinates(coordinates...)),
			))
		}
		folder = append(folder, maneuvers...)
		children = append(children, kml.Folder(folder...))
	}

	children = append(children, extra...)
	return kml.KML(kml.Document(children...))
}

// WriteKML writes the KML document for the route
func WriteKML(w io.Writer, r *Route, name string, extra ...kml.Element) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := KMLDocument(r, name, extra...).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

// PointPlacemark builds a named placemark for an arbitrary location
func PointPlacemark(name, description string, p geo.Point) kml.Element {
	return kml.Placemark(
		kml.Name(name),
		kml.Description(description),
		kml.Point(kml.Coordinates(kmlCoordinate(p))),
	)
}

// TrackPlacemark builds a line placemark through points, such as a replayed trace
func TrackPlacemark(name string, points []geo.Point) kml.Element {
	coordinates := make([]kml.Coordinate, 0, len(points))
	for _, p := range points {
		coordinates = append(coordinates, kmlCoordinate(p))
	}
	return kml.Placemark(
		kml.Name(name),
		kml.LineString(kml.Tessellate(true), kml.Coordinates(coordinates...)),
	)
}

func kmlCoordinate(p geo.Point) kml.Coordinate {
	return kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
}
