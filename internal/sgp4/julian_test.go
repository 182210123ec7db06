package sgp4

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

var referenceTimes = []struct {
	name string
	time time.Time
}{
	{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)},
	{"Vallado example date", time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC)},
	{"leap day", time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)},
	{"recent date 2026", time.Date(2026, 2, 6, 4, 1, 0, 0, time.UTC)},
}

// TestJulianDate сверяет юлианскую дату с go-satellite и meeus.
func TestJulianDate(t *testing.T) {
	t.Parallel()

	for _, tt := range referenceTimes {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := JulianDate(tt.time)

			ref := satellite.JDay(tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second())
			if diff := math.Abs(got - ref); diff > 1e-8 {
				t.Errorf("JulianDate = %.10f, go-satellite = %.10f (diff=%.2e)", got, ref, diff)
			}

			if m := julian.TimeToJD(tt.time); math.Abs(got-m) > 1e-8 {
				t.Errorf("JulianDate = %.10f, meeus = %.10f", got, m)
			}

			back := TimeFromJulianDate(got)
			if d := back.Sub(tt.time).Abs(); d > time.Millisecond {
				t.Errorf("TimeFromJulianDate round trip off by %v", d)
			}
		})
	}
}

func TestJulianDateOfYear(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year int
		want float64
	}{
		{2000, 2451543.5}, // 1999 Dec 31.0
		{1998, 2450813.5},
		{2024, 2460309.5},
	}

	for _, tt := range tests {
		if got := julianDateOfYear(tt.year); got != tt.want {
			t.Errorf("julianDateOfYear(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}

	// День 1.5 эпохи — полдень 1 января.
	got := epochJulianDate(24, 1.5)
	want := JulianDate(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("epochJulianDate(24, 1.5) = %v, want %v", got, want)
	}
}

// TestThetaGJD сверяет звёздное время с IAU-82 из go-satellite и meeus.
func TestThetaGJD(t *testing.T) {
	t.Parallel()

	for _, tt := range referenceTimes {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ThetaGJD(JulianDate(tt.time))
			if got < 0 || got >= twoPi {
				t.Fatalf("ThetaGJD = %v, out of [0, 2π)", got)
			}

			ref := satellite.GSTimeFromDate(tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second())
			if diff := angleDiff(got, ref); diff > 1e-7 {
				t.Errorf("ThetaGJD = %.10f, go-satellite = %.10f (diff=%.2e)", got, ref, diff)
			}

			m := sidereal.Mean(julian.TimeToJD(tt.time)).Angle().Rad()
			if diff := angleDiff(got, m); diff > 1e-6 {
				t.Errorf("ThetaGJD = %.10f, meeus = %.10f (diff=%.2e)", got, m, diff)
			}
		})
	}
}

func TestGMST(t *testing.T) {
	t.Parallel()

	for _, tt := range referenceTimes {
		whole := tt.time.Truncate(time.Second)
		got := GMST(tt.time)

		if diff := angleDiff(got, ThetaGJD(JulianDate(whole))); diff > 1e-7 {
			t.Errorf("%s: GMST = %.10f, ThetaGJD = %.10f (diff=%.2e)",
				tt.name, got, ThetaGJD(JulianDate(whole)), diff)
		}
	}

	moscow := time.FixedZone("MSK", 3*3600)
	at := time.Date(2026, 2, 14, 22, 5, 0, 0, moscow)
	if diff := angleDiff(GMST(at), GMST(at.UTC())); diff != 0 {
		t.Errorf("GMST depends on location: diff=%.2e", diff)
	}
}

// TestThetaGEpoch проверяет, что звёздное время эпохи для SDP4 близко к
// точному значению на ту же юлианскую дату.
func TestThetaGEpoch(t *testing.T) {
	t.Parallel()

	thgr, _ := thetaGEpoch(19, 22.59033389)
	exact := ThetaGJD(epochJulianDate(19, 22.59033389))

	if diff := angleDiff(thgr, exact); diff > 1e-3 {
		t.Errorf("thetaGEpoch = %v, ThetaGJD = %v (diff=%.2e)", thgr, exact, diff)
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Abs(mod2Pi(a) - mod2Pi(b))
	if d > math.Pi {
		d = twoPi - d
	}

	return d
}
