package observer

import (
	"math"
	"testing"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/art-injener/satpredict-go/internal/sgp4"
	"github.com/art-injener/satpredict-go/internal/tle"
)

var (
	issLine1 = "1 25544U 98067A   26045.79523799  .00007779  00000+0  15107-3 0  9994"
	issLine2 = "2 25544  51.6315 185.5279 0011056  98.8248 261.3993 15.48601910552787"

	geoLine1 = "1 43700U 18090A   19022.59033389  .00000135  00000-0  00000+0 0  9994"
	geoLine2 = "2 43700   0.0189 110.5219 0001117 199.1803  50.2639  1.00270746   826"
)

func mustElements(t *testing.T, line1, line2 string) *tle.Elements {
	t.Helper()

	el, err := tle.Parse([]string{line1, line2})
	require.NoError(t, err)

	return el
}

func mustSatellite(t *testing.T, el *tle.Elements) *Satellite {
	t.Helper()

	sat, err := NewSatellite(el)
	require.NoError(t, err)

	return sat
}

func ukStation(t *testing.T) *GroundStation {
	t.Helper()

	gs, err := NewGroundStation("M0JDK", 52.4670, -2.022, 200, nil)
	require.NoError(t, err)

	return gs
}

func TestNewGroundStation_Validation(t *testing.T) {
	t.Parallel()

	mask := make([]float64, HorizonSectors)

	tests := []struct {
		name    string
		lat     float64
		lon     float64
		alt     float64
		mask    []float64
		wantErr error
	}{
		{"valid no mask", 52.467, -2.022, 200, nil, nil},
		{"valid full mask", 52.467, -2.022, 200, mask, nil},
		{"latitude too high", 91, 0, 0, nil, ErrInvalidStation},
		{"latitude NaN", math.NaN(), 0, 0, nil, ErrInvalidStation},
		{"longitude too low", 0, -181, 0, nil, ErrInvalidStation},
		{"altitude inf", 0, 0, math.Inf(1), nil, ErrInvalidStation},
		{"mask of two", 0, 0, 0, []float64{1, 2}, ErrInvalidHorizonMask},
		{"mask of 37", 0, 0, 0, make([]float64, 37), ErrInvalidHorizonMask},
		{"mask value out of range", 0, 0, 0, append(make([]float64, 35), 95), ErrInvalidHorizonMask},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gs, err := NewGroundStation("test", tt.lat, tt.lon, tt.alt, tt.mask)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, gs)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.lat, gs.Latitude())
			assert.Equal(t, tt.lon, gs.Longitude())
			assert.Equal(t, tt.alt, gs.Altitude())
		})
	}
}

func TestNewGroundStation_MaskErrorNamesExpectedCount(t *testing.T) {
	t.Parallel()

	_, err := NewGroundStation("bad", 52.467, -2.022, 200, []float64{0, 0})
	require.ErrorIs(t, err, ErrInvalidHorizonMask)
	assert.Contains(t, err.Error(), "36")
	assert.Contains(t, err.Error(), "got 2")
}

func TestGroundStation_MinElevation(t *testing.T) {
	t.Parallel()

	mask := make([]float64, HorizonSectors)
	for i := range mask {
		mask[i] = float64(i)
	}

	gs, err := NewGroundStation("masked", 10, 20, 0, mask)
	require.NoError(t, err)

	assert.Equal(t, 0.0, gs.MinElevation(0))
	assert.Equal(t, 0.0, gs.MinElevation(9.99))
	assert.Equal(t, 1.0, gs.MinElevation(10))
	assert.Equal(t, 35.0, gs.MinElevation(359.9))
	assert.Equal(t, 35.0, gs.MinElevation(360))
	assert.Equal(t, 0.0, gs.LowestMaskElevation())

	copied := gs.HorizonMask()
	copied[5] = 80
	assert.Equal(t, 5.0, gs.MinElevation(55), "mask copy must not alias station")
}

func TestGroundStation_ECI(t *testing.T) {
	t.Parallel()

	const jd = 2460000.5

	equator, err := NewGroundStation("equator", 0, 0, 0, nil)
	require.NoError(t, err)

	pos, vel, theta := equator.eci(jd)
	assert.InDelta(t, sgp4.EarthRadiusKm, pos.Magnitude(), 1e-6)
	assert.InDelta(t, 0, pos.Dot(vel), 1e-9)
	assert.InDelta(t, sgp4.EarthRotationRate*sgp4.EarthRadiusKm, vel.Magnitude(), 1e-9)
	assert.InDelta(t, sgp4.ThetaGJD(jd), theta, 1e-12)

	pole, err := NewGroundStation("pole", 90, 0, 1000, nil)
	require.NoError(t, err)

	pos, vel, _ = pole.eci(jd)
	assert.InDelta(t, sgp4.EarthRadiusKm*(1-sgp4.FlatteningFactor)+1, pos.Z, 1e-6)
	assert.InDelta(t, 0, vel.Magnitude(), 1e-9)
}

// TestSunVector сверяет направление на Солнце с теорией VSOP87 из meeus.
func TestSunVector(t *testing.T) {
	t.Parallel()

	for _, tm := range []time.Time{
		time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
		time.Date(2019, 6, 21, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 14, 19, 5, 0, 0, time.UTC),
	} {
		jd := sgp4.JulianDate(tm)
		sun := SunVector(jd)

		ra, dec := solar.ApparentEquatorial(julian.TimeToJD(tm))
		want := sgp4.Vector{
			X: dec.Cos() * ra.Cos(),
			Y: dec.Cos() * ra.Sin(),
			Z: dec.Sin(),
		}

		sep := sun.Angle(want) * rad2Deg
		assert.Less(t, sep, 0.05, "sun direction at %v off by %.4f°", tm, sep)

		au := sun.Magnitude() / sgp4.AstronomicalUnitKm
		assert.InDelta(t, 1.0, au, 0.02)
	}
}

func TestEclipse(t *testing.T) {
	t.Parallel()

	jd := sgp4.JulianDate(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	sunDir := SunVector(jd).Scale(1 / SunVector(jd).Magnitude())

	shadow := sunDir.Scale(-7000)
	eclipsed, depth := Eclipse(jd, shadow)
	assert.True(t, eclipsed)
	assert.Negative(t, depth)

	lit := sunDir.Scale(7000)
	eclipsed, depth = Eclipse(jd, lit)
	assert.False(t, eclipsed)
	assert.Positive(t, depth)
}

// TestLookAngles_Zenith проверяет спутник прямо над станцией.
func TestLookAngles_Zenith(t *testing.T) {
	t.Parallel()

	gs, err := NewGroundStation("zenith", 0, 30, 0, nil)
	require.NoError(t, err)

	const jd = 2460000.5
	obsPos, obsVel, _ := gs.eci(jd)
	up := obsPos.Scale(1 / obsPos.Magnitude())

	s := sgp4.State{
		JulianDate: jd,
		Position:   obsPos.Add(up.Scale(500)),
		Velocity:   obsVel.Add(up.Scale(2)),
	}

	var st SatelliteState
	applyLookAngles(&st, gs, s)

	assert.Greater(t, st.Elevation, 89.9)
	assert.InDelta(t, 500, st.Range, 1e-6)
	assert.InDelta(t, 2, st.RangeRate, 1e-9)
	assert.True(t, st.AboveHorizon)
}

func TestLookAngles_Azimuth(t *testing.T) {
	t.Parallel()

	gs, err := NewGroundStation("north", 0, 0, 0, nil)
	require.NoError(t, err)

	const jd = 2460000.5
	obsPos, _, theta := gs.eci(jd)

	// В экваториальной станции ось Z указывает на север.
	north := sgp4.State{JulianDate: jd, Position: obsPos.Add(sgp4.Vector{Z: 1000})}
	var st SatelliteState
	applyLookAngles(&st, gs, north)
	assert.InDelta(t, 0, math.Min(st.Azimuth, 360-st.Azimuth), 1e-6)
	assert.InDelta(t, 0, st.Elevation, 1e-6)

	east := sgp4.Vector{X: -math.Sin(theta), Y: math.Cos(theta)}
	eastState := sgp4.State{JulianDate: jd, Position: obsPos.Add(east.Scale(1000))}
	applyLookAngles(&st, gs, eastState)
	assert.InDelta(t, 90, st.Azimuth, 1e-6)
	assert.False(t, st.AboveHorizon)
}

// TestSatellite_ISSScenario проверяет МКС для станции в Великобритании.
func TestSatellite_ISSScenario(t *testing.T) {
	t.Parallel()

	sat := mustSatellite(t, mustElements(t, issLine1, issLine2))
	gs := ukStation(t)

	assert.False(t, sat.IsDeepSpace())
	assert.True(t, sat.WillBeSeen(gs))

	epoch := sat.Elements().Epoch
	st, err := sat.Position(gs, epoch)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, st.Altitude, 400.0)
	assert.LessOrEqual(t, st.Altitude, 450.0)
	assert.GreaterOrEqual(t, st.Range, 390.0)
	assert.True(t, st.Time.Equal(epoch.UTC()))
}

// TestSatellite_Invariants проверяет диапазоны углов и повторяемость.
func TestSatellite_Invariants(t *testing.T) {
	t.Parallel()

	sat := mustSatellite(t, mustElements(t, issLine1, issLine2))
	gs := ukStation(t)
	start := sat.Elements().Epoch

	for m := 0; m < 24*60; m += 7 {
		at := start.Add(time.Duration(m) * time.Minute)

		st, err := sat.Position(gs, at)
		require.NoError(t, err)

		require.GreaterOrEqual(t, st.Azimuth, 0.0)
		require.Less(t, st.Azimuth, 360.0)
		require.GreaterOrEqual(t, st.Elevation, -90.0)
		require.LessOrEqual(t, st.Elevation, 90.0)
		require.GreaterOrEqual(t, st.Longitude, 0.0)
		require.Less(t, st.Longitude, 360.0)
		require.Equal(t, st.Elevation > 0, st.AboveHorizon)

		again, err := sat.Position(gs, at)
		require.NoError(t, err)
		require.Equal(t, st, again)
	}
}

// TestVectors_TwoStep проверяет, что двухшаговый расчёт совпадает с Position.
func TestVectors_TwoStep(t *testing.T) {
	t.Parallel()

	sat := mustSatellite(t, mustElements(t, issLine1, issLine2))
	gs := ukStation(t)
	at := sat.Elements().Epoch.Add(3 * time.Hour)

	v := sat.Vectors(at)
	track := v.GroundTrack()
	full, err := v.ForGroundStation(gs)
	require.NoError(t, err)

	direct, err := sat.Position(gs, at)
	require.NoError(t, err)

	assert.Equal(t, direct, full)
	assert.Equal(t, full.Latitude, track.Latitude)
	assert.Equal(t, full.Longitude, track.Longitude)
	assert.Zero(t, track.Range)

	_, err = v.ForGroundStation(nil)
	require.ErrorIs(t, err, ErrNilStation)

	_, err = sat.Position(nil, at)
	require.ErrorIs(t, err, ErrNilStation)
}

func TestSatellite_WillBeSeen(t *testing.T) {
	t.Parallel()

	uk := ukStation(t)
	arctic, err := NewGroundStation("arctic", 85, 0, 0, nil)
	require.NoError(t, err)

	lowIncl := mustElements(t, issLine1, issLine2)
	lowIncl.Inclination = 10

	geo := mustSatellite(t, mustElements(t, geoLine1, geoLine2))

	assert.False(t, mustSatellite(t, lowIncl).WillBeSeen(uk))
	assert.True(t, geo.WillBeSeen(uk))
	assert.False(t, geo.WillBeSeen(arctic))
	assert.False(t, geo.WillBeSeen(nil))
}

func TestSatellite_WillBeSeenFrom(t *testing.T) {
	t.Parallel()

	geo := mustSatellite(t, mustElements(t, geoLine1, geoLine2))
	sub := geo.Vectors(geo.Elements().Epoch).GroundTrack()
	under, err := NewGroundStation("under", 20, sub.Longitude, 0, nil)
	require.NoError(t, err)
	assert.True(t, geo.WillBeSeenFrom(under, geo.Elements().Epoch))

	lowIncl := mustElements(t, issLine1, issLine2)
	lowIncl.Inclination = 10
	sat := mustSatellite(t, lowIncl)
	assert.False(t, sat.WillBeSeenFrom(ukStation(t), sat.Elements().Epoch))
}

func TestNewSatellite_InvalidElements(t *testing.T) {
	t.Parallel()

	_, err := NewSatellite(nil)
	require.ErrorIs(t, err, sgp4.ErrNilElements)
}

func TestSatelliteState_Strings(t *testing.T) {
	t.Parallel()

	st := SatelliteState{
		Time:      time.Date(2026, 2, 14, 19, 5, 0, 0, time.UTC),
		Azimuth:   123.4,
		Elevation: 45.6,
		Latitude:  51.25,
		Longitude: 359.5,
		Range:     812.7,
		Eclipsed:  true,
	}

	assert.Equal(t,
		"Elevation: 46 deg. Azimuth: 123 deg. Latitude: 51.25 deg. Longitude: 359.50 deg. Range: 813 km",
		st.ShortString())

	long := st.String()
	assert.Contains(t, long, "Azimuth:       123.400000 deg.")
	assert.Contains(t, long, "2026-02-14T19:05:00Z")
	assert.Contains(t, long, "Eclipsed:      true")
}
