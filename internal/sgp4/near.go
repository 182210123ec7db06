package sgp4

import (
	"math"

	"github.com/art-injener/satpredict-go/internal/tle"
)

// xlcofGuard ограничивает знаменатель xlcof при наклонении около 180°.
const xlcofGuard = 1.5e-12

// orbitTerms — элементы в радианах/минутах и коэффициенты, общие для SGP4 и SDP4.
// Заполняются один раз в New и далее только читаются.
type orbitTerms struct {
	// Элементы на эпоху.
	xincl  float64
	xnodeo float64
	omegao float64
	xmo    float64
	eo     float64
	xno    float64
	bstar  float64

	// Восстановленные среднее движение и большая полуось (Брауэр).
	xnodp float64
	aodp  float64

	cosio  float64
	sinio  float64
	theta2 float64
	x3thm1 float64
	x1mth2 float64
	x7thm1 float64
	eosq   float64
	betao  float64
	betao2 float64

	perigeeKm float64
	s4        float64
	qoms24    float64
	tsi       float64
	eta       float64
	etasq     float64
	eeta      float64
	coef1     float64
	c1        float64
	c4        float64
	a3ovk2    float64

	xmdot  float64
	omgdot float64
	xnodot float64
	xnodcf float64
	t2cof  float64
	xlcof  float64
	aycof  float64
}

// nearEarthTerms — дополнительные коэффициенты SGP4 для периода меньше 225 минут.
type nearEarthTerms struct {
	simple bool // перигей ниже 220 км: старшие члены сопротивления отключены

	c3     float64
	c5     float64
	omgcof float64
	xmcof  float64
	delmo  float64
	sinmo  float64
	d2     float64
	d3     float64
	d4     float64
	t3cof  float64
	t4cof  float64
	t5cof  float64
}

// newOrbitTerms восстанавливает элементы по Брауэру и считает общие
// коэффициенты сопротивления и вековых скоростей.
func newOrbitTerms(el *tle.Elements) orbitTerms {
	var o orbitTerms

	o.xincl = el.Inclination * deg2Rad
	o.xnodeo = el.RAAN * deg2Rad
	o.omegao = el.ArgOfPerigee * deg2Rad
	o.xmo = el.MeanAnomaly * deg2Rad
	o.eo = el.Eccentricity
	o.xno = el.MeanMotion * twoPi / minutesPerDay
	o.bstar = el.Bstar

	a1 := math.Pow(xke/o.xno, twoThirds)
	o.cosio, o.sinio = math.Cos(o.xincl), math.Sin(o.xincl)
	o.theta2 = o.cosio * o.cosio
	o.x3thm1 = 3.0*o.theta2 - 1.0
	o.eosq = o.eo * o.eo
	o.betao2 = 1.0 - o.eosq
	o.betao = math.Sqrt(o.betao2)

	del1 := 1.5 * ck2 * o.x3thm1 / (a1 * a1 * o.betao * o.betao2)
	ao := a1 * (1.0 - del1*(0.5*twoThirds+del1*(1.0+134.0/81.0*del1)))
	delo := 1.5 * ck2 * o.x3thm1 / (ao * ao * o.betao * o.betao2)
	o.xnodp = o.xno / (1.0 + delo)
	o.aodp = ao / (1.0 - delo)

	o.perigeeKm = (o.aodp*(1.0-o.eo) - 1.0) * EarthRadiusKm
	o.s4, o.qoms24 = dragParameters(o.perigeeKm)

	pinvsq := 1.0 / (o.aodp * o.aodp * o.betao2 * o.betao2)
	o.tsi = 1.0 / (o.aodp - o.s4)
	o.eta = o.aodp * o.eo * o.tsi
	o.etasq = o.eta * o.eta
	o.eeta = o.eo * o.eta
	psisq := math.Abs(1.0 - o.etasq)
	coef := o.qoms24 * math.Pow(o.tsi, 4)
	o.coef1 = coef / math.Pow(psisq, 3.5)

	c2 := o.coef1 * o.xnodp * (o.aodp*(1.0+1.5*o.etasq+o.eeta*(4.0+o.etasq)) +
		0.75*ck2*o.tsi/psisq*o.x3thm1*(8.0+3.0*o.etasq*(8.0+o.etasq)))
	o.c1 = o.bstar * c2
	o.a3ovk2 = -j3Harmonic / ck2
	o.x1mth2 = 1.0 - o.theta2
	o.c4 = 2.0 * o.xnodp * o.coef1 * o.aodp * o.betao2 *
		(o.eta*(2.0+0.5*o.etasq) + o.eo*(0.5+2.0*o.etasq) -
			2.0*ck2*o.tsi/(o.aodp*psisq)*
				(-3.0*o.x3thm1*(1.0-2.0*o.eeta+o.etasq*(1.5-0.5*o.eeta))+
					0.75*o.x1mth2*(2.0*o.etasq-o.eeta*(1.0+o.etasq))*math.Cos(2.0*o.omegao)))

	theta4 := o.theta2 * o.theta2
	temp1 := 3.0 * ck2 * pinvsq * o.xnodp
	temp2 := temp1 * ck2 * pinvsq
	temp3 := 1.25 * ck4 * pinvsq * pinvsq * o.xnodp
	o.xmdot = o.xnodp + 0.5*temp1*o.betao*o.x3thm1 +
		0.0625*temp2*o.betao*(13.0-78.0*o.theta2+137.0*theta4)
	x1m5th := 1.0 - 5.0*o.theta2
	o.omgdot = -0.5*temp1*x1m5th + 0.0625*temp2*(7.0-114.0*o.theta2+395.0*theta4) +
		temp3*(3.0-36.0*o.theta2+49.0*theta4)
	xhdot1 := -temp1 * o.cosio
	o.xnodot = xhdot1 + (0.5*temp2*(4.0-19.0*o.theta2)+2.0*temp3*(3.0-7.0*o.theta2))*o.cosio
	o.xnodcf = 3.5 * o.betao2 * xhdot1 * o.c1
	o.t2cof = 1.5 * o.c1

	denom := 1.0 + o.cosio
	if math.Abs(denom) < xlcofGuard {
		denom = xlcofGuard
	}
	o.xlcof = 0.125 * o.a3ovk2 * o.sinio * (3.0 + 5.0*o.cosio) / denom
	o.aycof = 0.25 * o.a3ovk2 * o.sinio
	o.x7thm1 = 7.0*o.theta2 - 1.0

	return o
}

// dragParameters возвращает s4 и qoms24 с учётом высоты перигея.
func dragParameters(perigeeKm float64) (s4, qoms24 float64) {
	if perigeeKm >= perigeeDragKm {
		return s0, qoms2t
	}

	s4 = perigeeKm - 78.0
	if perigeeKm <= 98.0 {
		s4 = 20.0
	}
	qoms24 = math.Pow((120.0-s4)/EarthRadiusKm, 4)

	return s4/EarthRadiusKm + 1.0, qoms24
}

// periodDays возвращает период по восстановленному среднему движению, сутки.
func (o *orbitTerms) periodDays() float64 {
	return twoPi / o.xnodp / minutesPerDay
}

func newNearEarthTerms(o *orbitTerms) *nearEarthTerms {
	n := &nearEarthTerms{
		simple: o.aodp*(1.0-o.eo) < perigeeSimpleKm/EarthRadiusKm+1.0,
	}

	if o.eo > 1.0e-4 {
		n.c3 = o.coef1 * o.tsi * o.a3ovk2 * o.xnodp * o.sinio / o.eo
		n.xmcof = -twoThirds * o.coef1 * o.bstar / o.eeta
	}
	n.c5 = 2.0 * o.coef1 * o.aodp * o.betao2 *
		(1.0 + 2.75*(o.etasq+o.eeta) + o.eeta*o.etasq)
	n.omgcof = o.bstar * n.c3 * math.Cos(o.omegao)
	n.delmo = math.Pow(1.0+o.eta*math.Cos(o.xmo), 3)
	n.sinmo = math.Sin(o.xmo)

	if n.simple {
		return n
	}

	c1sq := o.c1 * o.c1
	n.d2 = 4.0 * o.aodp * o.tsi * c1sq
	temp := n.d2 * o.tsi * o.c1 / 3.0
	n.d3 = (17.0*o.aodp + o.s4) * temp
	n.d4 = 0.5 * temp * o.aodp * o.tsi * (221.0*o.aodp + 31.0*o.s4) * o.c1
	n.t3cof = n.d2 + 2.0*c1sq
	n.t4cof = 0.25 * (3.0*n.d3 + o.c1*(12.0*n.d2+10.0*c1sq))
	n.t5cof = 0.2 * (3.0*n.d4 + 12.0*o.c1*n.d3 + 6.0*n.d2*n.d2 + 15.0*c1sq*(2.0*n.d2+c1sq))

	return n
}

// propagateNear выполняет SGP4 на tsince минут от эпохи.
func propagateNear(o *orbitTerms, n *nearEarthTerms, tsince float64) (pos, vel Vector, phase float64) {
	xmdf := o.xmo + o.xmdot*tsince
	omgadf := o.omegao + o.omgdot*tsince
	xnoddf := o.xnodeo + o.xnodot*tsince
	omega := omgadf
	xmp := xmdf
	tsq := tsince * tsince
	xnode := xnoddf + o.xnodcf*tsq
	tempa := 1.0 - o.c1*tsince
	tempe := o.bstar * o.c4 * tsince
	templ := o.t2cof * tsq

	if !n.simple {
		delomg := n.omgcof * tsince
		delm := n.xmcof * (math.Pow(1.0+o.eta*math.Cos(xmdf), 3) - n.delmo)
		temp := delomg + delm
		xmp = xmdf + temp
		omega = omgadf - temp
		tcube := tsq * tsince
		tfour := tsince * tcube
		tempa = tempa - n.d2*tsq - n.d3*tcube - n.d4*tfour
		tempe += o.bstar * n.c5 * (math.Sin(xmp) - n.sinmo)
		templ += n.t3cof*tcube + tfour*(n.t4cof+tsince*n.t5cof)
	}

	a := o.aodp * tempa * tempa
	e := clampEccentricity(o.eo - tempe)
	xl := xmp + omega + xnode + o.xnodp*templ

	return finishOrbit(o, orbitState{
		a:      a,
		e:      e,
		xl:     xl,
		omega:  omega,
		omgadf: omgadf,
		xnode:  xnode,
		xinc:   o.xincl,
	})
}

// clampEccentricity держит эксцентриситет в (0, 1), чтобы вырожденная
// (сгоревшая) орбита давала конечное состояние.
func clampEccentricity(e float64) float64 {
	switch {
	case e < minEccentricity:
		return minEccentricity
	case e > maxEccentricity:
		return maxEccentricity
	default:
		return e
	}
}
