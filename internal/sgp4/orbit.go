package sgp4

import "math"

// minSemiLatus ограничивает 1 − e² снизу для вырожденных орбит.
const minSemiLatus = 1.0e-12

// orbitState — средние элементы после вековых и резонансных поправок,
// из которых строятся векторы положения и скорости.
type orbitState struct {
	a      float64 // большая полуось, земные радиусы
	e      float64 // эксцентриситет
	xl     float64 // средняя долгота
	omega  float64 // аргумент перигея для долгопериодических членов
	omgadf float64 // аргумент перигея для фазы
	xnode  float64 // долгота узла
	xinc   float64 // наклонение
}

// finishOrbit добавляет долгопериодические члены, решает уравнение Кеплера,
// применяет короткопериодические поправки и возвращает векторы в км и км/с.
func finishOrbit(o *orbitTerms, s orbitState) (pos, vel Vector, phase float64) {
	beta := math.Sqrt(1.0 - s.e*s.e)
	xn := xke / math.Pow(s.a, 1.5)

	// Долгопериодические члены.
	axn := s.e * math.Cos(s.omega)
	temp := 1.0 / (s.a * beta * beta)
	xll := temp * o.xlcof * axn
	aynl := temp * o.aycof
	xlt := s.xl + xll
	ayn := s.e*math.Sin(s.omega) + aynl

	k := solveKepler(mod2Pi(xlt-s.xnode), axn, ayn)

	// Короткопериодические члены.
	elsq := axn*axn + ayn*ayn
	temp = math.Max(1.0-elsq, minSemiLatus)
	pl := s.a * temp
	r := s.a * (1.0 - k.ecosE)
	temp1 := 1.0 / r
	rdot := xke * math.Sqrt(s.a) * k.esinE * temp1
	rfdot := xke * math.Sqrt(pl) * temp1
	temp2 := s.a * temp1
	betal := math.Sqrt(temp)
	temp3 := 1.0 / (1.0 + betal)
	cosu := temp2 * (k.cosE - axn + ayn*k.esinE*temp3)
	sinu := temp2 * (k.sinE - ayn - axn*k.esinE*temp3)
	u := math.Atan2(sinu, cosu)
	sin2u := 2.0 * sinu * cosu
	cos2u := 2.0*cosu*cosu - 1.0
	temp = 1.0 / pl
	temp1 = ck2 * temp
	temp2 = temp1 * temp

	rk := r*(1.0-1.5*temp2*betal*o.x3thm1) + 0.5*temp1*o.x1mth2*cos2u
	uk := u - 0.25*temp2*o.x7thm1*sin2u
	xnodek := s.xnode + 1.5*temp2*o.cosio*sin2u
	xinck := s.xinc + 1.5*temp2*o.cosio*o.sinio*cos2u
	rdotk := rdot - xn*temp1*o.x1mth2*sin2u
	rfdotk := rfdot + xn*temp1*(o.x1mth2*cos2u+1.5*o.x3thm1)

	// Векторы ориентации.
	sinuk, cosuk := math.Sincos(uk)
	sinik, cosik := math.Sincos(xinck)
	sinnok, cosnok := math.Sincos(xnodek)
	xmx := -sinnok * cosik
	xmy := cosnok * cosik
	u3 := Vector{
		X: xmx*sinuk + cosnok*cosuk,
		Y: xmy*sinuk + sinnok*cosuk,
		Z: sinik * sinuk,
	}
	v3 := Vector{
		X: xmx*cosuk - cosnok*sinuk,
		Y: xmy*cosuk - sinnok*sinuk,
		Z: sinik * cosuk,
	}

	pos = u3.Scale(rk * EarthRadiusKm)
	vel = u3.Scale(rdotk).Add(v3.Scale(rfdotk)).Scale(EarthRadiusKm / 60.0)
	phase = mod2Pi(xlt - s.xnode - s.omgadf + twoPi)

	return pos, vel, phase
}
