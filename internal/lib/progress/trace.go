package progress

import "github.com/dpup/info.ersn.net/navigator/internal/lib/geo"

// MinimumBearingDistance is how far apart two fixes must be before the
// direction between them is trusted as a heading
const MinimumBearingDistance = 1.0 // meters

// DeriveBearings returns a copy of fixes with each bearing replaced by the
// direction traveled since the previous fix. Fixes that barely moved keep the
// last derived bearing. The first fix takes the direction toward the next one
// that is far enough away.
func DeriveBearings(fixes []Location) ([]Location, error) {
	geoUtils := geo.NewGeoUtils()
	derived := make([]Location, len(fixes))
	copy(derived, fixes)
	if len(derived) == 0 {
		return derived, nil
	}

	anchor := derived[0].Point()
	var (
		bearing float64
		moved   bool
	)
	for i := 1; i < len(derived); i++ {
		distance, err := geoUtils.PointToPoint(anchor, derived[i].Point())
		if err != nil {
			return nil, err
		}
		if distance >= MinimumBearingDistance {
			bearing, err = geoUtils.Bearing(anchor, derived[i].Point())
			if err != nil {
				return nil, err
			}
			if !moved {
				for j := 0; j < i; j++ {
					derived[j].Bearing = bearing
				}
				moved = true
			}
			anchor = derived[i].Point()
		}
		if moved {
			derived[i].Bearing = bearing
		}
	}
	return derived, nil
}
