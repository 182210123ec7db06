package sgp4

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/art-injener/satpredict-go/internal/tle"
)

// Эталонные наборы элементов.
var (
	issLine1 = "1 25544U 98067A   26045.79523799  .00007779  00000+0  15107-3 0  9994"
	issLine2 = "2 25544  51.6315 185.5279 0011056  98.8248 261.3993 15.48601910552787"

	ao40Line1 = "1 26609U 00072B   19022.38481103 -.00000134  00000-0  00000+0 0  9992"
	ao40Line2 = "2 26609   7.4088  95.8526 7982264 349.5632   1.0214  1.25587570 83680"

	molniyaLine1 = "1 21118U 91012A   19021.70755179 -.00000500  00000-0  12360+0 0  9997"
	molniyaLine2 = "2 21118  63.5565 115.5896 6805505 289.4226  12.3652  2.05245802205499"

	geoLine1 = "1 43700U 18090A   19022.59033389  .00000135  00000-0  00000+0 0  9994"
	geoLine2 = "2 43700   0.0189 110.5219 0001117 199.1803  50.2639  1.00270746   826"

	iridiumLine1 = "1 43924U 19002C   19022.85733379 +.00000007 +00000-0 -35335-5 0  9995"
	iridiumLine2 = "2 43924 086.4965 042.8715 0001485 057.7222 302.4127 14.52383246001639"
)

func mustElements(t testing.TB, line1, line2 string) *tle.Elements {
	t.Helper()

	el, err := tle.Parse([]string{line1, line2})
	if err != nil {
		t.Fatalf("tle.Parse() error = %v", err)
	}

	return el
}

func mustPropagator(t testing.TB, line1, line2 string) *Propagator {
	t.Helper()

	p, err := New(mustElements(t, line1, line2))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return p
}

// TestNew_InvalidElements проверяет отказ на некорректных элементах.
func TestNew_InvalidElements(t *testing.T) {
	t.Parallel()

	valid := mustElements(t, issLine1, issLine2)

	zeroMotion := *valid
	zeroMotion.MeanMotion = 0

	hyperbolic := *valid
	hyperbolic.Eccentricity = 1.0

	negativeEcc := *valid
	negativeEcc.Eccentricity = -0.1

	tests := []struct {
		name    string
		el      *tle.Elements
		wantErr error
	}{
		{"nil elements", nil, ErrNilElements},
		{"zero mean motion", &zeroMotion, ErrInvalidElements},
		{"eccentricity 1", &hyperbolic, ErrInvalidElements},
		{"negative eccentricity", &negativeEcc, ErrInvalidElements},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p, err := New(tt.el)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if p != nil {
				t.Error("New() returned propagator with error")
			}
		})
	}
}

// TestNew_OwnsElements проверяет, что пропагатор хранит собственную копию.
func TestNew_OwnsElements(t *testing.T) {
	t.Parallel()

	el := mustElements(t, issLine1, issLine2)
	p, err := New(el)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	before := p.PropagateMinutes(100)
	el.MeanMotion = 1.0
	el.Inclination = 0
	after := p.PropagateMinutes(100)

	if before.Position != after.Position {
		t.Error("mutating source elements changed propagation result")
	}
	if p.Elements().NoradID != 25544 {
		t.Errorf("Elements().NoradID = %d, want 25544", p.Elements().NoradID)
	}
}

// TestModelSelection проверяет выбор модели и типа резонанса.
func TestModelSelection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		line1     string
		line2     string
		model     Model
		resonance resonanceKind
	}{
		{"ISS", issLine1, issLine2, NearEarth, resonanceNone},
		{"IRIDIUM 168", iridiumLine1, iridiumLine2, NearEarth, resonanceNone},
		{"AO-40", ao40Line1, ao40Line2, DeepSpace, resonanceNone},
		{"Molniya 12h", molniyaLine1, molniyaLine2, DeepSpace, resonanceHalfDay},
		{"geosynchronous", geoLine1, geoLine2, DeepSpace, resonanceSynchronous},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := mustPropagator(t, tt.line1, tt.line2)
			if p.Model() != tt.model {
				t.Fatalf("Model() = %v, want %v", p.Model(), tt.model)
			}
			if p.IsDeepSpace() != (tt.model == DeepSpace) {
				t.Errorf("IsDeepSpace() = %v", p.IsDeepSpace())
			}

			el := p.Elements()
			if el.IsDeepSpace() != p.IsDeepSpace() {
				t.Errorf("Elements.IsDeepSpace() = %v, Propagator.IsDeepSpace() = %v",
					el.IsDeepSpace(), p.IsDeepSpace())
			}

			if p.deep != nil && p.deep.resonance != tt.resonance {
				t.Errorf("resonance = %v, want %v", p.deep.resonance, tt.resonance)
			}
		})
	}
}

func TestModel_String(t *testing.T) {
	t.Parallel()

	if NearEarth.String() != "SGP4" || DeepSpace.String() != "SDP4" {
		t.Errorf("unexpected names: %s, %s", NearEarth, DeepSpace)
	}
	if Model(7).String() != "Model(7)" {
		t.Errorf("Model(7).String() = %s", Model(7))
	}
}

// referenceState пропагирует элементы библиотекой go-satellite.
// go-satellite отбрасывает доли секунды эпохи, поэтому момент берётся от
// усечённой эпохи: так обе реализации считают одно и то же tsince.
func referenceState(line1, line2 string, epoch time.Time, minutes float64) (pos, vel Vector) {
	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS72)
	t := epoch.Truncate(time.Second).Add(time.Duration(minutes * float64(time.Minute)))

	p, v := satellite.Propagate(sat,
		t.Year(), int(t.Month()), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)

	return Vector{X: p.X, Y: p.Y, Z: p.Z}, Vector{X: v.X, Y: v.Y, Z: v.Z}
}

// TestPropagate_MatchesGoSatellite сверяет положение с независимой
// реализацией SGP4/SDP4 (Vallado) из go-satellite. AO-40 здесь не
// участвует: при наклонении 7.4 градуса обе реализации уходят в ветку
// Лиддейна для малых наклонений, а там формулировки расходятся на десятки км.
func TestPropagate_MatchesGoSatellite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line1    string
		line2    string
		minutes  []float64
		posTolKm float64
		velTol   float64
	}{
		{"ISS", issLine1, issLine2, []float64{-720, 0, 45, 90, 720, 1440}, 1.0, 0.002},
		{"Iridium", iridiumLine1, iridiumLine2, []float64{0, 50, 100, 720, 1440}, 1.0, 0.002},
		{"Molniya", molniyaLine1, molniyaLine2, []float64{0, 120, 360, 720, 1440}, 1.0, 0.005},
		{"geosynchronous", geoLine1, geoLine2, []float64{0, 360, 1440}, 50.0, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := mustPropagator(t, tt.line1, tt.line2)
			epoch := p.Elements().Epoch

			for _, m := range tt.minutes {
				got := p.PropagateMinutes(m)
				refPos, refVel := referenceState(tt.line1, tt.line2, epoch, m)

				if d := got.Position.Sub(refPos).Magnitude(); d > tt.posTolKm {
					t.Errorf("t=%v min: position diff %.3f km > %.3f (got %v, ref %v)",
						m, d, tt.posTolKm, got.Position, refPos)
				}
				if d := got.Velocity.Sub(refVel).Magnitude(); d > tt.velTol {
					t.Errorf("t=%v min: velocity diff %.5f km/s > %.5f", m, d, tt.velTol)
				}
			}
		})
	}
}

// TestPropagate_Deterministic проверяет повторяемость: результат не зависит
// от истории предыдущих вызовов.
func TestPropagate_Deterministic(t *testing.T) {
	t.Parallel()

	for _, lines := range [][2]string{
		{issLine1, issLine2},
		{molniyaLine1, molniyaLine2},
		{geoLine1, geoLine2},
	} {
		p := mustPropagator(t, lines[0], lines[1])
		at := p.Epoch().Add(36 * time.Hour)

		first := p.Propagate(at)
		_ = p.Propagate(at.Add(10 * 24 * time.Hour))
		_ = p.Propagate(at.Add(-5 * 24 * time.Hour))
		second := p.Propagate(at)

		if first.Position != second.Position || first.Velocity != second.Velocity {
			t.Errorf("%s: repeated propagation differs: %v vs %v", lines[0][:7], first, second)
		}
	}
}

// TestPropagate_Concurrent проверяет безопасность параллельных вызовов.
func TestPropagate_Concurrent(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, molniyaLine1, molniyaLine2)
	want := p.PropagateMinutes(3000)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 50 {
				_ = p.PropagateMinutes(float64(i*100 + j))
				if got := p.PropagateMinutes(3000); got.Position != want.Position {
					t.Errorf("concurrent propagation differs: %v vs %v", got.Position, want.Position)

					return
				}
			}
		}(i)
	}
	wg.Wait()
}

// TestPropagate_ISSAltitude проверяет высоту МКС на эпоху.
func TestPropagate_ISSAltitude(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, issLine1, issLine2)
	s := p.Propagate(p.Epoch())

	gp := s.GroundTrack()
	if gp.Altitude < 380 || gp.Altitude > 460 {
		t.Errorf("ISS altitude = %.1f km, want 380..460", gp.Altitude)
	}

	const wantSpeed = 7.66
	if math.Abs(s.Speed()-wantSpeed) > 0.1 {
		t.Errorf("ISS speed = %.3f km/s, want ~%.2f", s.Speed(), wantSpeed)
	}

	if math.Abs(gp.Latitude) > 51.7*deg2Rad {
		t.Errorf("latitude %.2f° exceeds inclination", gp.Latitude/deg2Rad)
	}
}

// TestPropagate_LEOAltitudeStable проверяет, что почти круговая орбита
// сохраняет высоту в течение суток.
func TestPropagate_LEOAltitudeStable(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, issLine1, issLine2)

	minR, maxR := math.Inf(1), math.Inf(-1)
	for m := 0.0; m <= minutesPerDay; m += 5 {
		r := p.PropagateMinutes(m).Radius()
		minR = math.Min(minR, r)
		maxR = math.Max(maxR, r)
	}

	if maxR-minR > 50 {
		t.Errorf("radius variation %.1f km over 24h, want < 50", maxR-minR)
	}
}

// TestPropagate_Molniya проверяет сильно вытянутую 12-часовую орбиту.
func TestPropagate_Molniya(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, molniyaLine1, molniyaLine2)

	minR, maxR := math.Inf(1), math.Inf(-1)
	for m := 0.0; m <= 2*minutesPerDay; m += 5 {
		s := p.PropagateMinutes(m)
		r := s.Radius()
		if math.IsNaN(r) {
			t.Fatalf("NaN radius at %v min", m)
		}
		minR = math.Min(minR, r)
		maxR = math.Max(maxR, r)

		if s.Phase < 0 || s.Phase >= twoPi {
			t.Fatalf("phase %v out of [0, 2π)", s.Phase)
		}
	}

	if maxR-minR < 10000 {
		t.Errorf("radius variation %.0f km over 48h, want > 10000", maxR-minR)
	}
	if maxR-EarthRadiusKm < 20000 {
		t.Errorf("apogee altitude %.0f km, want > 20000", maxR-EarthRadiusKm)
	}
}

// TestPropagate_Geosynchronous проверяет устойчивость резонансного
// интегратора на длинных интервалах в обе стороны от эпохи.
func TestPropagate_Geosynchronous(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, geoLine1, geoLine2)
	lon0 := p.PropagateMinutes(0).GroundTrack().Longitude

	for days := -10.0; days <= 30; days += 2.5 {
		s := p.PropagateMinutes(days * minutesPerDay)
		r := s.Radius()
		if r < 41900 || r > 42400 {
			t.Errorf("day %+.1f: radius %.1f km, want ~42164", days, r)
		}

		gp := s.GroundTrack()
		if math.Abs(gp.Latitude) > 0.5*deg2Rad {
			t.Errorf("day %+.1f: latitude %.3f°, want near equator", days, gp.Latitude/deg2Rad)
		}

		drift := math.Abs(gp.Longitude - lon0)
		if drift > math.Pi {
			drift = twoPi - drift
		}
		if drift > 2*deg2Rad {
			t.Errorf("day %+.1f: longitude drift %.3f°", days, drift/deg2Rad)
		}
	}
}

// TestPropagate_DecayedOrbit проверяет, что вырожденная орбита даёт
// конечный результат, а не панику или ошибку.
func TestPropagate_DecayedOrbit(t *testing.T) {
	t.Parallel()

	el := mustElements(t, issLine1, issLine2)
	el.Bstar = 0.5

	p, err := New(el)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// Сотни суток с огромным сопротивлением: модель выходит за пределы.
	for _, m := range []float64{1e4, 1e5, 1e6} {
		s := p.PropagateMinutes(m)
		_ = s.GroundTrack()
		_ = s.String()
	}
}

func TestPropagate_TimeFields(t *testing.T) {
	t.Parallel()

	p := mustPropagator(t, issLine1, issLine2)
	at := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	s := p.Propagate(at)
	if !s.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", s.Time, at)
	}
	if math.Abs(s.JulianDate-JulianDate(at)) > 1e-9 {
		t.Errorf("JulianDate = %v", s.JulianDate)
	}

	wantMin := (JulianDate(at) - p.EpochJulianDate()) * minutesPerDay
	if math.Abs(s.MinutesSinceEpoch-wantMin) > 1e-6 {
		t.Errorf("MinutesSinceEpoch = %v, want %v", s.MinutesSinceEpoch, wantMin)
	}

	byMinutes := p.PropagateMinutes(s.MinutesSinceEpoch)
	if d := byMinutes.Position.Sub(s.Position).Magnitude(); d > 1e-3 {
		t.Errorf("Propagate and PropagateMinutes differ by %.6f km", d)
	}

	if got := p.Epoch().Sub(p.Elements().Epoch); got.Abs() > time.Millisecond {
		t.Errorf("Epoch() differs from element epoch by %v", got)
	}
}

func BenchmarkPropagate_NearEarth(b *testing.B) {
	p := mustPropagator(b, issLine1, issLine2)

	for b.Loop() {
		_ = p.PropagateMinutes(1234.5)
	}
}

func BenchmarkPropagate_DeepSpaceResonant(b *testing.B) {
	p := mustPropagator(b, geoLine1, geoLine2)

	for b.Loop() {
		_ = p.PropagateMinutes(30 * minutesPerDay)
	}
}
