package observer

import (
	"fmt"
	"math"
	"time"

	"github.com/art-injener/satpredict-go/internal/sgp4"
	"github.com/art-injener/satpredict-go/internal/tle"
)

const (
	// visibilityStep шаг выборки при проверке видимости за виток.
	visibilityStep = 30 * time.Second

	// horizonEpsilon допуск сравнения угла места с маской, градусы.
	horizonEpsilon = 1.0e-12
)

// Satellite объединяет пропагатор и перевод в координаты станции.
// Все методы возвращают новые значения и безопасны для конкурентного вызова.
type Satellite struct {
	prop *sgp4.Propagator
}

// NewSatellite создаёт спутник по набору элементов; модель (SGP4 или SDP4)
// выбирается по периоду.
func NewSatellite(el *tle.Elements) (*Satellite, error) {
	prop, err := sgp4.New(el)
	if err != nil {
		return nil, fmt.Errorf("create propagator: %w", err)
	}

	return &Satellite{prop: prop}, nil
}

// Propagator возвращает используемый пропагатор.
func (s *Satellite) Propagator() *sgp4.Propagator { return s.prop }

// Elements возвращает копию элементов спутника.
func (s *Satellite) Elements() tle.Elements { return s.prop.Elements() }

// IsDeepSpace сообщает, используется ли модель дальнего космоса.
func (s *Satellite) IsDeepSpace() bool { return s.prop.IsDeepSpace() }

// Position вычисляет полное состояние спутника для станции gs на момент t.
func (s *Satellite) Position(gs *GroundStation, t time.Time) (SatelliteState, error) {
	return s.Vectors(t).ForGroundStation(gs)
}

// Vectors выполняет пропагацию на момент t. Результат принадлежит вызывающему
// и дополняется методами GroundTrack и ForGroundStation.
func (s *Satellite) Vectors(t time.Time) Vectors {
	state := s.prop.Propagate(t)
	eclipsed, depth := Eclipse(state.JulianDate, state.Position)

	return Vectors{
		state:        state,
		eclipsed:     eclipsed,
		eclipseDepth: depth,
	}
}

// Vectors инерциальное состояние на один момент времени с признаком тени.
type Vectors struct {
	state        sgp4.State
	eclipsed     bool
	eclipseDepth float64
}

// State возвращает инерциальное состояние.
func (v Vectors) State() sgp4.State { return v.state }

// GroundTrack возвращает состояние с подспутниковой точкой и освещённостью
// без величин, зависящих от станции.
func (v Vectors) GroundTrack() SatelliteState {
	gp := v.state.GroundTrack()

	return SatelliteState{
		Time:         v.state.Time,
		Latitude:     gp.Latitude * rad2Deg,
		Longitude:    gp.Longitude * rad2Deg,
		Altitude:     gp.Altitude,
		Phase:        gp.Phase,
		Theta:        gp.Theta,
		Eclipsed:     v.eclipsed,
		EclipseDepth: v.eclipseDepth,
	}
}

// ForGroundStation дополняет подспутниковую точку азимутом, углом места,
// дальностью и радиальной скоростью относительно станции gs.
func (v Vectors) ForGroundStation(gs *GroundStation) (SatelliteState, error) {
	if gs == nil {
		return SatelliteState{}, ErrNilStation
	}

	st := v.GroundTrack()
	applyLookAngles(&st, gs, v.state)

	return st, nil
}

// applyLookAngles вычисляет топоцентрические азимут, угол места, дальность
// и радиальную скорость.
func applyLookAngles(st *SatelliteState, gs *GroundStation, s sgp4.State) {
	obsPos, obsVel, theta := gs.eci(s.JulianDate)

	rng := s.Position.Sub(obsPos)
	rgvel := s.Velocity.Sub(obsVel)
	dist := rng.Magnitude()

	sinT, cosT := math.Sincos(theta)
	topS := gs.sinLat*cosT*rng.X + gs.sinLat*sinT*rng.Y - gs.cosLat*rng.Z
	topE := -sinT*rng.X + cosT*rng.Y
	topZ := gs.cosLat*cosT*rng.X + gs.cosLat*sinT*rng.Y + gs.sinLat*rng.Z

	az := math.Atan2(topE, -topS)
	if az < 0 {
		az += 2 * math.Pi
	}
	azDeg := az * rad2Deg
	if azDeg >= 360 {
		azDeg = 0
	}

	elDeg := math.Asin(math.Max(-1, math.Min(1, topZ/dist))) * rad2Deg

	st.Azimuth = azDeg
	st.Elevation = elDeg
	st.Range = dist
	st.RangeRate = rng.Dot(rgvel) / dist
	st.AboveHorizon = elDeg-gs.MinElevation(azDeg) > horizonEpsilon
}

// WillBeSeen быстрая геометрическая проверка: достигает ли зона видимости
// спутника широты станции с учётом наклонения, апогея и нижнего порога маски.
// Для орбит без движения (n ≈ 0) возвращает false.
func (s *Satellite) WillBeSeen(gs *GroundStation) bool {
	if gs == nil {
		return false
	}

	el := s.prop.Elements()
	if el.MeanMotion < 1e-8 {
		return false
	}

	incl := el.Inclination
	if incl >= 90 {
		incl = 180 - incl
	}

	sma := 331.25 * math.Exp(math.Log(1440.0/el.MeanMotion)*(2.0/3.0))
	apogee := sma*(1.0+el.Eccentricity) - sgp4.EarthRadiusKm

	minEl := gs.LowestMaskElevation() * deg2Rad
	reach := math.Acos(sgp4.EarthRadiusKm*math.Cos(minEl)/(apogee+sgp4.EarthRadiusKm)) - minEl

	return reach+incl*deg2Rad > math.Abs(gs.latitude*deg2Rad)
}

// WillBeSeenFrom проверяет видимость выборкой: поднимается ли спутник над
// маской горизонта хотя бы раз за один орбитальный период от момента start.
func (s *Satellite) WillBeSeenFrom(gs *GroundStation, start time.Time) bool {
	if gs == nil {
		return false
	}

	el := s.prop.Elements()
	if el.MeanMotion < 1e-8 {
		return false
	}

	period := time.Duration(el.OrbitalPeriod() * float64(time.Minute))
	end := start.Add(period)

	for t := start; !t.After(end); t = t.Add(visibilityStep) {
		st, _ := s.Vectors(t).ForGroundStation(gs)
		if st.AboveHorizon {
			return true
		}
	}

	return false
}
