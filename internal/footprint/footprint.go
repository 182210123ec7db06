// Package footprint строит зону радиовидимости спутника на поверхности Земли
// и наземную трассу, разбитую по антимеридиану.
package footprint

import (
	"errors"
	"fmt"
	"math"

	"github.com/art-injener/satpredict-go/internal/observer"
	"github.com/art-injener/satpredict-go/internal/sgp4"
)

// ErrInvalidIncrement шаг азимута вне (0, 360].
var ErrInvalidIncrement = errors.New("invalid azimuth increment")

const (
	deg2Rad = math.Pi / 180
	rad2Deg = 180 / math.Pi

	// earthDiameterKm и meanRadiusKm задают дугу горизонта.
	earthDiameterKm = 12756.33
	meanRadiusKm    = 6378.16
)

// Point — точка границы зоны видимости в градусах. Долгота восточная, [0, 360).
type Point struct {
	Latitude  float64
	Longitude float64
}

// Radius возвращает радиус зоны видимости (км по дуге большого круга)
// для спутника на высоте altitudeKm.
func Radius(altitudeKm float64) float64 {
	if altitudeKm <= 0 {
		return 0
	}

	return 0.5 * earthDiameterKm * math.Acos(sgp4.EarthRadiusKm/(sgp4.EarthRadiusKm+altitudeKm))
}

// RangeCircle возвращает 360 точек границы зоны видимости, по одной на градус
// азимута от подспутниковой точки (lat, lon в градусах, высота в км).
func RangeCircle(lat, lon, altitudeKm float64) []Point {
	points, _ := RangeCircleWithIncrement(lat, lon, altitudeKm, 1)

	return points
}

// RangeCircleFor строит границу для подспутниковой точки состояния st.
func RangeCircleFor(st observer.SatelliteState) []Point {
	return RangeCircle(st.Latitude, st.Longitude, st.Altitude)
}

// RangeCircleWithIncrement возвращает границу зоны видимости с шагом азимута
// incDeg градусов.
func RangeCircleWithIncrement(lat, lon, altitudeKm, incDeg float64) ([]Point, error) {
	if math.IsNaN(incDeg) || incDeg <= 0 || incDeg > 360 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIncrement, incDeg)
	}

	beta := Radius(altitudeKm) / meanRadiusKm
	latRad := lat * deg2Rad
	lonRad := lon * deg2Rad

	sinLat, cosLat := math.Sincos(latRad)
	sinBeta, cosBeta := math.Sincos(beta)

	points := make([]Point, 0, int(math.Ceil(360/incDeg)))

	for az := 0.0; az < 360.0; az += incDeg {
		azRad := az * deg2Rad

		pLat := math.Asin(sinLat*cosBeta + math.Cos(azRad)*sinBeta*cosLat)
		num := cosBeta - sinLat*math.Sin(pLat)
		den := cosLat * math.Cos(pLat)

		var pLon float64

		switch {
		case az == 0 && beta > math.Pi/2-latRad:
			// Северный полюс внутри зоны.
			pLon = lonRad + math.Pi
		case az == 180 && beta > math.Pi/2+latRad:
			// Южный полюс внутри зоны.
			pLon = lonRad + math.Pi
		case math.Abs(num/den) > 1:
			pLon = lonRad
		case az > 0 && az < 180:
			pLon = lonRad + math.Acos(num/den)
		default:
			pLon = lonRad - math.Acos(num/den)
		}

		lonDeg := sgp4.Mod2Pi(pLon) * rad2Deg
		if lonDeg >= 360 {
			lonDeg = 0
		}

		points = append(points, Point{
			Latitude:  pLat * rad2Deg,
			Longitude: lonDeg,
		})
	}

	return points, nil
}
