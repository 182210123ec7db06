package sgp4

import (
	"fmt"
	"math"
	"time"
)

// geodeticMaxIterations ограничивает уточнение геодезической широты.
const geodeticMaxIterations = 10

// State — результат пропагации: положение и скорость в TEME.
type State struct {
	Time              time.Time // Момент расчёта (UTC).
	JulianDate        float64   // Юлианская дата момента.
	MinutesSinceEpoch float64   // Минуты от эпохи элементов.
	Position          Vector    // Положение, км.
	Velocity          Vector    // Скорость, км/с.
	Phase             float64   // Фаза орбиты, рад [0, 2π).
}

// GroundPoint — подспутниковая точка на эллипсоиде.
type GroundPoint struct {
	Latitude  float64 // Геодезическая широта, рад.
	Longitude float64 // Восточная долгота, рад [0, 2π).
	Altitude  float64 // Высота над эллипсоидом, км.
	Theta     float64 // Прямое восхождение подспутниковой точки, рад.
	Phase     float64 // Фаза орбиты, рад.
}

// Radius возвращает расстояние от центра Земли в километрах.
func (s State) Radius() float64 {
	return s.Position.Magnitude()
}

// Speed возвращает скорость в км/с.
func (s State) Speed() float64 {
	return s.Velocity.Magnitude()
}

// GroundTrack переводит положение в геодезические координаты (WGS-84).
// Широта уточняется итерациями Боуринга.
func (s State) GroundTrack() GroundPoint {
	pos := s.Position
	theta := math.Atan2(pos.Y, pos.X)
	lon := mod2Pi(theta - ThetaGJD(s.JulianDate))

	r := math.Hypot(pos.X, pos.Y)
	e2 := FlatteningFactor * (2.0 - FlatteningFactor)
	lat := math.Atan2(pos.Z, r)

	var c float64
	for range geodeticMaxIterations {
		phi := lat
		sinPhi := math.Sin(phi)
		c = 1.0 / math.Sqrt(1.0-e2*sinPhi*sinPhi)
		lat = math.Atan2(pos.Z+EarthRadiusKm*c*e2*sinPhi, r)
		if math.Abs(lat-phi) < epsilon {
			break
		}
	}

	var alt float64
	if cosLat := math.Cos(lat); math.Abs(cosLat) > 1e-10 {
		alt = r/cosLat - EarthRadiusKm*c
	} else {
		// У полюса.
		alt = math.Abs(pos.Z)/math.Abs(math.Sin(lat)) - EarthRadiusKm*c*(1.0-e2)
	}

	if lat > piOverTwo {
		lat -= twoPi
	}

	return GroundPoint{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  alt,
		Theta:     theta,
		Phase:     s.Phase,
	}
}

// String возвращает строковое представление State.
func (s State) String() string {
	return fmt.Sprintf("TEME[%.3f, %.3f, %.3f km] V[%.6f, %.6f, %.6f km/s] @ %s",
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
		s.Time.UTC().Format(time.RFC3339),
	)
}
