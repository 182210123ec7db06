// Package passes ищет пролёты спутника над наземной станцией: моменты
// восхода (AOS), захода (LOS) и максимального угла места (TCA), а также
// считает доплеровский сдвиг и треки положений.
package passes

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/art-injener/satpredict-go/internal/metrics"
	"github.com/art-injener/satpredict-go/internal/observer"
	"github.com/art-injener/satpredict-go/internal/sgp4"
	"github.com/art-injener/satpredict-go/internal/tle"
)

const (
	// aosStep шаг грубого поиска восхода.
	aosStep = 60 * time.Second

	// losStep шаг сопровождения от AOS до LOS.
	losStep = 30 * time.Second

	// DefaultSearchWindow граница поиска одного пролёта.
	DefaultSearchWindow = 24 * time.Hour

	minutesPerDay = 1440.0
)

var (
	ErrNilElements      = errors.New("nil element set")
	ErrNilStation       = errors.New("nil ground station")
	ErrNeverVisible     = errors.New("satellite will never appear above the horizon")
	ErrPassNotFound     = errors.New("pass not found")
	ErrInvalidIncrement = errors.New("invalid position increment")
)

// Predictor ищет пролёты одного спутника над одной станцией.
// Методы безопасны для конкурентного вызова: каждый поиск работает только
// со своими локальными переменными, общий лишь атомарный счётчик итераций.
type Predictor struct {
	sat  *observer.Satellite
	gs   *observer.GroundStation
	name string

	meanMotion   float64 // об/сутки
	searchWindow time.Duration
	minElevation float64 // градусы, дополнительный порог поверх маски

	logger  *slog.Logger
	metrics *metrics.Collectors

	iterations atomic.Int64
}

// Option функция настройки Predictor.
type Option func(*Predictor)

// WithLogger логгер для Predictor.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Predictor) {
		p.logger = logger
	}
}

// WithMetrics подключает метрики Prometheus.
func WithMetrics(m *metrics.Collectors) Option {
	return func(p *Predictor) {
		p.metrics = m
	}
}

// WithSearchWindow задаёт границу поиска одного пролёта.
func WithSearchWindow(d time.Duration) Option {
	return func(p *Predictor) {
		p.searchWindow = d
	}
}

// WithMinElevation задаёт минимальный угол места в градусах, действующий
// вместе с маской горизонта станции.
func WithMinElevation(deg float64) Option {
	return func(p *Predictor) {
		p.minElevation = deg
	}
}

// New создаёт предсказатель для элементов el и станции gs. Возвращает
// ErrNeverVisible, если спутник геометрически не может подняться над
// горизонтом станции.
func New(el *tle.Elements, gs *observer.GroundStation, opts ...Option) (*Predictor, error) {
	if el == nil {
		return nil, ErrNilElements
	}
	if gs == nil {
		return nil, ErrNilStation
	}

	sat, err := observer.NewSatellite(el)
	if err != nil {
		return nil, err
	}

	name := el.Name
	if name == "" {
		name = strconv.Itoa(el.NoradID)
	}

	p := &Predictor{
		sat:          sat,
		gs:           gs,
		name:         name,
		meanMotion:   el.MeanMotion,
		searchWindow: DefaultSearchWindow,
		minElevation: math.Inf(-1),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.searchWindow <= 0 {
		p.searchWindow = DefaultSearchWindow
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	if !sat.WillBeSeen(gs) {
		return nil, fmt.Errorf("%w: %s from %s", ErrNeverVisible, name, gs.Name())
	}

	return p, nil
}

// Satellite возвращает спутник предсказателя.
func (p *Predictor) Satellite() *observer.Satellite { return p.sat }

// Station возвращает станцию предсказателя.
func (p *Predictor) Station() *observer.GroundStation { return p.gs }

// Iterations возвращает число вычисленных позиций за всё время жизни
// предсказателя. Счётчик не сбрасывается.
func (p *Predictor) Iterations() int64 { return p.iterations.Load() }

// Position вычисляет положение спутника относительно станции на момент t.
func (p *Predictor) Position(t time.Time) observer.SatelliteState {
	p.iterations.Add(1)
	p.metrics.Propagated()

	st, _ := p.sat.Position(p.gs, t)

	return st
}

// DownlinkFreq возвращает частоту приёма (Гц) с поправкой на эффект Доплера.
func (p *Predictor) DownlinkFreq(freqHz float64, t time.Time) int64 {
	rr := p.Position(t).RangeRate

	return int64(math.Round(freqHz * (sgp4.SpeedOfLight - rr*1000.0) / sgp4.SpeedOfLight))
}

// UplinkFreq возвращает частоту передачи (Гц) с поправкой на эффект Доплера.
func (p *Predictor) UplinkFreq(freqHz float64, t time.Time) int64 {
	rr := p.Position(t).RangeRate

	return int64(math.Round(freqHz * (sgp4.SpeedOfLight + rr*1000.0) / sgp4.SpeedOfLight))
}

// NextPass возвращает ближайший пролёт, начинающийся после t.
func (p *Predictor) NextPass(t time.Time) (PassEvent, error) {
	return p.nextPass(t, false)
}

// NextPassWindBack ищет пролёт, отступив на четверть витка назад: если
// в момент t пролёт уже идёт, возвращается он.
func (p *Predictor) NextPassWindBack(t time.Time, windBack bool) (PassEvent, error) {
	return p.nextPass(t, windBack)
}

// Passes возвращает пролёты с AOS в интервале [start, start+hours)
// в хронологическом порядке. Окончание поиска по границе не считается ошибкой.
func (p *Predictor) Passes(start time.Time, hours int, windBack bool) ([]PassEvent, error) {
	t := start.UTC().Truncate(time.Second)
	end := t.Add(time.Duration(hours) * time.Hour)

	var passes []PassEvent

	for t.Before(end) {
		pass, err := p.nextPass(t, windBack && len(passes) == 0)
		if errors.Is(err, ErrPassNotFound) {
			break
		}
		if err != nil {
			return passes, err
		}
		if !pass.Start.Before(end) {
			break
		}

		passes = append(passes, pass)
		t = pass.End
	}

	return passes, nil
}

// Positions возвращает положения спутника с шагом incrementSeconds
// в окне [ref-minutesBefore, ref+minutesAfter). Отсчёты идут от начала окна;
// если окно не кратно шагу, последний неполный шаг тоже даёт отсчёт, так что
// их число равно ceil(окно/шаг).
func (p *Predictor) Positions(ref time.Time, incrementSeconds, minutesBefore, minutesAfter int) ([]observer.SatelliteState, error) {
	if incrementSeconds <= 0 {
		return nil, fmt.Errorf("%w: %d seconds", ErrInvalidIncrement, incrementSeconds)
	}

	step := time.Duration(incrementSeconds) * time.Second
	t := ref.Add(-time.Duration(minutesBefore) * time.Minute)
	end := ref.Add(time.Duration(minutesAfter) * time.Minute)

	positions := make([]observer.SatelliteState, 0, max(0, ((minutesBefore+minutesAfter)*60+incrementSeconds-1)/incrementSeconds))

	for ; t.Before(end); t = t.Add(step) {
		positions = append(positions, p.Position(t))
	}

	return positions, nil
}

func (p *Predictor) nextPass(t time.Time, windBack bool) (PassEvent, error) {
	begun := time.Now()
	pass, err := p.search(t, windBack)
	p.metrics.ObserveSearch(time.Since(begun))

	if err != nil {
		p.metrics.SearchFailed(metrics.ReasonNotFound)
		p.logger.Warn("pass search reached its bound",
			"satellite", p.name,
			"station", p.gs.Name(),
			"start", t,
			"window", p.searchWindow,
		)

		return PassEvent{}, err
	}

	p.metrics.PassFound(p.name)
	p.logger.Debug("pass found",
		"satellite", p.name,
		"aos", pass.Start,
		"los", pass.End,
		"tca", pass.TCA,
		"max_elevation", pass.MaxElevation,
		"pole", pass.PolePassed,
	)

	return pass, nil
}

// search выполняет один поиск: грубый шаг до восхода, бисекция AOS,
// сопровождение до захода с учётом максимума и полюса, бисекция LOS.
func (p *Predictor) search(start time.Time, windBack bool) (PassEvent, error) {
	t := start.UTC().Truncate(time.Second)
	stop := t.Add(p.searchWindow)

	if windBack {
		t = t.Add(-p.quarterOrbit())
	}

	// Восход: интервал (ниже, выше] на сетке aosStep.
	prevT := t
	prevVisible := p.visible(p.Position(t))

	var (
		aos      time.Time
		aosState observer.SatelliteState
	)

	for {
		if !t.Before(stop) {
			return PassEvent{}, fmt.Errorf("%w: no rise of %s within %v after %s",
				ErrPassNotFound, p.name, p.searchWindow, start.UTC().Format(time.RFC3339))
		}

		t = t.Add(aosStep)
		st := p.Position(t)
		v := p.visible(st)

		if v && !prevVisible {
			aos, aosState = p.bisect(prevT, t, st, false)
			break
		}

		prevT, prevVisible = t, v
	}

	// Сопровождение до захода.
	maxEl := aosState.Elevation
	tca := aos
	pole := PoleNone
	prev := aosState
	prevT = aos
	limit := aos.Add(p.searchWindow)

	var (
		los      time.Time
		losState observer.SatelliteState
	)

	t = aos
	for {
		if !t.Before(limit) {
			return PassEvent{}, fmt.Errorf("%w: %s does not set within %v after AOS %s",
				ErrPassNotFound, p.name, p.searchWindow, aos.Format(time.RFC3339))
		}

		t = t.Add(losStep)
		st := p.Position(t)

		if pp := polePassed(prev, st); pp != PoleNone {
			pole = pp
		}

		if !p.visible(st) {
			los, losState = p.bisect(prevT, t, st, true)
			break
		}

		if st.Elevation > maxEl {
			maxEl, tca = st.Elevation, t
		}

		prev, prevT = st, t
	}

	tca, maxEl = p.refinePeak(tca, maxEl, aos, los)

	return NewPassEvent(aos, los, tca, pole,
		int(aosState.Azimuth), int(losState.Azimuth), maxEl), nil
}

// bisect сужает интервал (lo, hi], на котором меняется видимость, до одной
// секунды и возвращает первую секунду с новым состоянием. hiState — положение
// в момент hi, loVisible — видимость в момент lo.
func (p *Predictor) bisect(lo, hi time.Time, hiState observer.SatelliteState, loVisible bool) (time.Time, observer.SatelliteState) {
	for hi.Sub(lo) > time.Second {
		mid := lo.Add((hi.Sub(lo) / 2).Truncate(time.Second))
		st := p.Position(mid)

		if p.visible(st) == loVisible {
			lo = mid
		} else {
			hi, hiState = mid, st
		}
	}

	return hi, hiState
}

// refinePeak уточняет момент максимума угла места до секунды тернарным
// поиском в окрестности лучшего отсчёта сопровождения.
func (p *Predictor) refinePeak(tca time.Time, maxEl float64, aos, los time.Time) (time.Time, float64) {
	lo := tca.Add(-losStep)
	if lo.Before(aos) {
		lo = aos
	}
	hi := tca.Add(losStep)
	if hi.After(los) {
		hi = los
	}

	elevation := func(t time.Time) float64 { return p.Position(t).Elevation }

	for hi.Sub(lo) > 2*time.Second {
		d := (hi.Sub(lo) / 3).Truncate(time.Second)
		m1, m2 := lo.Add(d), hi.Add(-d)

		if elevation(m1) < elevation(m2) {
			lo = m1
		} else {
			hi = m2
		}
	}

	for t := lo; !t.After(hi); t = t.Add(time.Second) {
		if el := elevation(t); el > maxEl {
			maxEl, tca = el, t
		}
	}

	return tca, maxEl
}

// visible сообщает, выше ли спутник маски горизонта и минимального порога.
func (p *Predictor) visible(st observer.SatelliteState) bool {
	return st.AboveHorizon && st.Elevation > p.minElevation
}

func (p *Predictor) quarterOrbit() time.Duration {
	return time.Duration(int(minutesPerDay/p.meanMotion/4.0)) * time.Minute
}

// polePassed определяет переход азимута через север (350..10°) или юг (180°)
// между соседними отсчётами.
func polePassed(prev, cur observer.SatelliteState) Pole {
	az1, az2 := prev.Azimuth, cur.Azimuth

	if az1 > az2 {
		switch {
		case az1 > 350 && az2 < 10:
			return PoleNorth
		case az1 > 180 && az2 < 180:
			return PoleSouth
		}

		return PoleNone
	}

	switch {
	case az1 < 10 && az2 > 350:
		return PoleNorth
	case az1 < 180 && az2 > 180:
		return PoleSouth
	}

	return PoleNone
}
