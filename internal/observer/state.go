package observer

import (
	"fmt"
	"strings"
	"time"
)

// SatelliteState — положение спутника относительно станции на момент Time.
// Значение возвращается копией; общего изменяемого состояния нет.
type SatelliteState struct {
	Time time.Time

	Azimuth   float64 // градусы [0, 360), от севера по часовой стрелке
	Elevation float64 // градусы [-90, 90]
	Range     float64 // км
	RangeRate float64 // км/с, положительная при удалении

	Latitude  float64 // градусы, подспутниковая точка
	Longitude float64 // градусы [0, 360), восточная
	Altitude  float64 // км над эллипсоидом

	Phase float64 // рад [0, 2π)
	Theta float64 // рад, прямое восхождение подспутниковой точки

	Eclipsed     bool
	EclipseDepth float64 // рад, отрицательная в тени Земли

	AboveHorizon bool
}

// String возвращает подробное многострочное описание состояния.
func (s SatelliteState) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Azimuth:       %.6f deg.\n", s.Azimuth)
	fmt.Fprintf(&b, "Elevation:     %.6f deg.\n", s.Elevation)
	fmt.Fprintf(&b, "Latitude:      %.6f deg.\n", s.Latitude)
	fmt.Fprintf(&b, "Longitude:     %.6f deg.\n", s.Longitude)
	fmt.Fprintf(&b, "Date:          %s\n", s.Time.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Range:         %.3f km.\n", s.Range)
	fmt.Fprintf(&b, "Range rate:    %.6f km/s.\n", s.RangeRate)
	fmt.Fprintf(&b, "Phase:         %.6f rad\n", s.Phase)
	fmt.Fprintf(&b, "Altitude:      %.3f km\n", s.Altitude)
	fmt.Fprintf(&b, "Theta:         %.6f rad\n", s.Theta)
	fmt.Fprintf(&b, "Eclipsed:      %v\n", s.Eclipsed)
	fmt.Fprintf(&b, "Eclipse depth: %.6f rad\n", s.EclipseDepth)

	return b.String()
}

// ShortString возвращает краткое описание: углы, точка и дальность.
func (s SatelliteState) ShortString() string {
	return fmt.Sprintf("Elevation: %.0f deg. Azimuth: %.0f deg. Latitude: %.2f deg. Longitude: %.2f deg. Range: %.0f km",
		s.Elevation, s.Azimuth, s.Latitude, s.Longitude, s.Range)
}
