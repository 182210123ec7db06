package sgp4

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// unixEpochJD — юлианская дата 1970-01-01 00:00 UTC.
const unixEpochJD = 2440587.5

// JulianDate возвращает юлианскую дату момента t (UTC).
func JulianDate(t time.Time) float64 {
	return unixEpochJD + float64(t.UnixNano())/(secondsPerDay*1e9)
}

// TimeFromJulianDate переводит юлианскую дату обратно во время UTC.
func TimeFromJulianDate(jd float64) time.Time {
	ns := (jd - unixEpochJD) * secondsPerDay * 1e9

	return time.Unix(0, int64(math.Round(ns))).UTC()
}

// julianDateOfYear возвращает юлианскую дату дня 0.0 января года year
// (Meeus, Astronomical Formulae for Calculators).
func julianDateOfYear(year int) float64 {
	y := float64(year - 1)
	a := int64(math.Floor(y / 100))
	b := 2 - a + a/4
	i := int64(math.Floor(365.25*y)) + 428

	return float64(i) + 1720994.5 + float64(b)
}

// fullYear переводит двузначный год эпохи: 57-99 = 1957-1999, 00-56 = 2000-2056.
func fullYear(yy int) int {
	if yy >= 57 {
		return 1900 + yy
	}

	return 2000 + yy
}

// epochJulianDate возвращает юлианскую дату эпохи TLE.
func epochJulianDate(yy int, day float64) float64 {
	return julianDateOfYear(fullYear(yy)) + day
}

// ThetaGJD возвращает среднее гринвичское звёздное время (рад) для юлианской
// даты jd. The 1992 Astronomical Almanac, page B6.
func ThetaGJD(jd float64) float64 {
	ut := frac(jd + 0.5)
	ajd := jd - ut
	tu := (ajd - 2451545.0) / 36525.0
	gmst := 24110.54841 + tu*(8640184.812866+tu*(0.093104-tu*6.2e-6))
	gmst = modulus(gmst+secondsPerDay*earthRotationsPerSiderealDay*ut, secondsPerDay)

	return twoPi * gmst / secondsPerDay
}

// GMST возвращает гринвичское среднее звёздное время (рад) на момент t
// с точностью до секунды. Дробные секунды отбрасываются.
func GMST(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	return satellite.GSTimeFromDate(year, int(month), day, hour, minute, sec)
}

// thetaGEpoch возвращает звёздное время на эпоху и число суток от 1950 года
// (ds50), нужные инициализации SDP4. Использует полную эпоху YYDDD.DDDDDDDD.
func thetaGEpoch(yy int, day float64) (thgr, ds50 float64) {
	dayFloor := math.Floor(day)
	jd := julianDateOfYear(fullYear(yy)) + dayFloor
	ds50 = jd - 2433281.5 + (day - dayFloor)

	return mod2Pi(6.3003880987*ds50 + 1.72944494), ds50
}
