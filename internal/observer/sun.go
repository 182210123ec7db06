package observer

import (
	"math"

	"github.com/art-injener/satpredict-go/internal/sgp4"
)

// SunVector возвращает положение Солнца в экваториальной системе даты (км)
// на юлианскую дату jd. Точность около 0.01°, достаточная для тени Земли.
func SunVector(jd float64) sgp4.Vector {
	mjd := jd - 2415020.0
	year := 1900 + mjd/365.25
	t := (mjd + deltaET(year)/86400.0) / 36525.0

	m := deg2Rad * modulus(358.47583+modulus(35999.04975*t, 360.0)-(0.000150+0.0000033*t)*t*t, 360.0)
	l := deg2Rad * modulus(279.69668+modulus(36000.76892*t, 360.0)+0.0003025*t*t, 360.0)
	e := 0.01675104 - (0.0000418+0.000000126*t)*t
	c := deg2Rad * ((1.919460-(0.004789+0.000014*t)*t)*math.Sin(m) +
		(0.020094-0.000100*t)*math.Sin(2*m) + 0.000293*math.Sin(3*m))
	o := deg2Rad * modulus(259.18-1934.142*t, 360.0)
	lsa := modulus(l+c-deg2Rad*(0.00569-0.00479*math.Sin(o)), 2*math.Pi)
	nu := modulus(m+c, 2*math.Pi)
	r := 1.0000002 * (1.0 - e*e) / (1.0 + e*math.Cos(nu))
	eps := deg2Rad * (23.452294 - (0.0130125+(0.00000164-0.000000503*t)*t)*t + 0.00256*math.Cos(o))
	r *= sgp4.AstronomicalUnitKm

	sinL, cosL := math.Sincos(lsa)
	sinE, cosE := math.Sincos(eps)

	return sgp4.Vector{
		X: r * cosL,
		Y: r * sinL * cosE,
		Z: r * sinL * sinE,
	}
}

// deltaET возвращает разницу ET − UT в секундах (аппроксимация по данным
// 1950-1991 годов из Astronomical Almanac 1990).
func deltaET(year float64) float64 {
	return 26.465 + 0.747622*(year-1950) + 1.886913*math.Sin(2*math.Pi*(year-1975)/33)
}

// Eclipse определяет, находится ли спутник в тени Земли. depth — угловая
// глубина (рад): отрицательная в тени, положительная на свету.
func Eclipse(jd float64, pos sgp4.Vector) (eclipsed bool, depth float64) {
	sun := SunVector(jd)
	r := pos.Magnitude()

	sdEarth := math.Asin(math.Min(1, sgp4.EarthRadiusKm/r))
	sdSun := math.Asin(math.Min(1, sgp4.SolarRadiusKm/sun.Sub(pos).Magnitude()))
	delta := sun.Angle(pos.Scale(-1))

	umbra := sdEarth - sdSun - delta
	depth = -umbra

	return sdEarth >= sdSun && umbra >= 0, depth
}

func modulus(a, b float64) float64 {
	r := a - math.Floor(a/b)*b
	if r < 0 {
		r += b
	}

	return r
}
