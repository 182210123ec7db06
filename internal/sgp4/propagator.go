package sgp4

import (
	"errors"
	"fmt"
	"time"

	"github.com/art-injener/satpredict-go/internal/tle"
)

// Ошибки создания пропагатора.
var (
	ErrNilElements     = errors.New("nil element set")
	ErrInvalidElements = errors.New("invalid orbital elements")
)

// Model — орбитальная модель, выбранная по периоду.
type Model int

const (
	// NearEarth — SGP4, период меньше 225 минут.
	NearEarth Model = iota
	// DeepSpace — SDP4, период от 225 минут.
	DeepSpace
)

func (m Model) String() string {
	switch m {
	case NearEarth:
		return "SGP4"
	case DeepSpace:
		return "SDP4"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Propagator вычисляет положение объекта по набору элементов.
//
// После New все коэффициенты неизменны: Propagate не меняет состояние
// и может вызываться из нескольких горутин одновременно.
type Propagator struct {
	elements tle.Elements
	model    Model
	epochJD  float64

	orbit orbitTerms
	near  *nearEarthTerms
	deep  *deepSpaceTerms
}

// New создаёт пропагатор и выбирает модель по восстановленному среднему движению.
// Пропагатор хранит собственную копию элементов.
func New(el *tle.Elements) (*Propagator, error) {
	if el == nil {
		return nil, ErrNilElements
	}
	if el.MeanMotion <= 0 {
		return nil, fmt.Errorf("%w: mean motion %v rev/day", ErrInvalidElements, el.MeanMotion)
	}
	if el.Eccentricity < 0 || el.Eccentricity >= 1 {
		return nil, fmt.Errorf("%w: eccentricity %v", ErrInvalidElements, el.Eccentricity)
	}

	p := &Propagator{
		elements: *el,
		epochJD:  epochJulianDate(el.EpochYear, el.EpochDay),
		orbit:    newOrbitTerms(el),
	}

	if p.orbit.periodDays() >= deepSpacePeriodDays {
		p.model = DeepSpace
		p.deep = newDeepSpaceTerms(&p.orbit, el.EpochYear, el.EpochDay)
	} else {
		p.model = NearEarth
		p.near = newNearEarthTerms(&p.orbit)
	}

	return p, nil
}

// Model возвращает выбранную модель.
func (p *Propagator) Model() Model {
	return p.model
}

// IsDeepSpace сообщает, используется ли SDP4.
func (p *Propagator) IsDeepSpace() bool {
	return p.model == DeepSpace
}

// Elements возвращает копию элементов, по которым построен пропагатор.
func (p *Propagator) Elements() tle.Elements {
	return p.elements
}

// EpochJulianDate возвращает юлианскую дату эпохи элементов.
func (p *Propagator) EpochJulianDate() float64 {
	return p.epochJD
}

// Epoch возвращает эпоху элементов (UTC).
func (p *Propagator) Epoch() time.Time {
	return TimeFromJulianDate(p.epochJD)
}

// Propagate вычисляет состояние на момент t.
func (p *Propagator) Propagate(t time.Time) State {
	jd := JulianDate(t)
	s := p.propagate((jd - p.epochJD) * minutesPerDay)
	s.Time = t.UTC()
	s.JulianDate = jd

	return s
}

// PropagateMinutes вычисляет состояние через tsince минут от эпохи.
func (p *Propagator) PropagateMinutes(tsince float64) State {
	jd := p.epochJD + tsince/minutesPerDay
	s := p.propagate(tsince)
	s.Time = TimeFromJulianDate(jd)
	s.JulianDate = jd

	return s
}

func (p *Propagator) propagate(tsince float64) State {
	var pos, vel Vector
	var phase float64

	switch p.model {
	case DeepSpace:
		pos, vel, phase = propagateDeep(&p.orbit, p.deep, tsince)
	default:
		pos, vel, phase = propagateNear(&p.orbit, p.near, tsince)
	}

	return State{
		MinutesSinceEpoch: tsince,
		Position:          pos,
		Velocity:          vel,
		Phase:             phase,
	}
}
