package passes

import (
	"fmt"
	"strings"
	"time"
)

// Pole — полюс, через который прошла линия визирования во время пролёта.
type Pole string

const (
	PoleNone  Pole = "none"
	PoleNorth Pole = "north"
	PoleSouth Pole = "south"
)

const (
	passDateLayout = "January 2, 2006"
	passTimeLayout = "3:04:05 PM"
)

// PassEvent — один пролёт над станцией. Значение неизменяемо.
type PassEvent struct {
	Start time.Time // AOS
	End   time.Time // LOS
	TCA   time.Time // момент максимального угла места

	AOSAzimuth   int     // градусы, [0, 360)
	LOSAzimuth   int     // градусы, [0, 360)
	MaxElevation float64 // градусы

	PolePassed Pole
}

// NewPassEvent создаёт пролёт. Нулевой tca заменяется серединой интервала
// [start, end].
func NewPassEvent(start, end, tca time.Time, pole Pole, aosAz, losAz int, maxEl float64) PassEvent {
	if tca.IsZero() {
		tca = start.Add(end.Sub(start) / 2)
	}
	if pole == "" {
		pole = PoleNone
	}

	return PassEvent{
		Start:        start.UTC(),
		End:          end.UTC(),
		TCA:          tca.UTC(),
		AOSAzimuth:   aosAz,
		LOSAzimuth:   losAz,
		MaxElevation: maxEl,
		PolePassed:   pole,
	}
}

// Duration возвращает длительность пролёта.
func (p PassEvent) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Equal сравнивает пролёты по всем полям, включая TCA.
func (p PassEvent) Equal(o PassEvent) bool {
	return p.Start.Equal(o.Start) &&
		p.End.Equal(o.End) &&
		p.TCA.Equal(o.TCA) &&
		p.AOSAzimuth == o.AOSAzimuth &&
		p.LOSAzimuth == o.LOSAzimuth &&
		p.MaxElevation == o.MaxElevation &&
		p.PolePassed == o.PolePassed
}

func (p PassEvent) String() string {
	var b strings.Builder

	start := p.Start.UTC()
	fmt.Fprintf(&b, "Date: %s\n", start.Format(passDateLayout))
	fmt.Fprintf(&b, "Start Time: %s\n", start.Format(passTimeLayout))
	fmt.Fprintf(&b, "End Time: %s\n", p.End.UTC().Format(passTimeLayout))
	fmt.Fprintf(&b, "Duration: %4.1f min.\n", p.Duration().Minutes())
	fmt.Fprintf(&b, "AOS Azimuth: %d deg.\n", p.AOSAzimuth)
	fmt.Fprintf(&b, "Max Elevation: %4.1f deg.\n", p.MaxElevation)
	fmt.Fprintf(&b, "LOS Azimuth: %d deg.", p.LOSAzimuth)

	return b.String()
}
