package sgp4

import "math"

// minSinInclination ограничивает sin(i) снизу при делении на него.
const minSinInclination = 1.0e-12

// resonanceKind — тип геопотенциального резонанса дальнего объекта.
type resonanceKind int

const (
	resonanceNone resonanceKind = iota
	resonanceSynchronous
	resonanceHalfDay
)

// bodyTerms — вклад одного возмущающего тела (Солнца или Луны):
// вековые скорости и коэффициенты периодических членов.
type bodyTerms struct {
	se, si, sl, sgh, sh float64

	e2, e3   float64
	i2, i3   float64
	l2, l3   float64
	l4       float64
	gh2, gh3 float64
	gh4      float64
	h2, h3   float64
}

// bodyGeometry — ориентация орбиты возмущающего тела и его параметры.
type bodyGeometry struct {
	zcosg, zsing float64
	zcosi, zsini float64
	zcosh, zsinh float64
	cc, zn, ze   float64
}

// deepSpaceTerms — неизменяемые коэффициенты SDP4. Состояние интегратора
// резонанса не хранится: каждый вызов пропагации интегрирует от эпохи,
// поэтому один экземпляр безопасен для конкурентного чтения.
type deepSpaceTerms struct {
	thgr   float64
	xnq    float64
	xqncl  float64
	omegaq float64
	zmos   float64
	zmol   float64
	sinio  float64 // sin(i) с защитой от нуля

	// Вековые скорости от Луны и Солнца.
	sse, ssi, ssl, ssg, ssh float64

	solar bodyTerms
	lunar bodyTerms

	resonance resonanceKind
	xlamo     float64
	xfact     float64

	// Синхронный резонанс.
	del1, del2, del3 float64

	// Полусуточный резонанс.
	d2201, d2211 float64
	d3210, d3222 float64
	d4410, d4422 float64
	d5220, d5232 float64
	d5421, d5433 float64
}

// newDeepSpaceTerms инициализирует лунно-солнечные члены и резонансы.
// yy и day — эпоха TLE.
func newDeepSpaceTerms(o *orbitTerms, yy int, day float64) *deepSpaceTerms {
	d := &deepSpaceTerms{
		xnq:    o.xnodp,
		xqncl:  o.xincl,
		omegaq: o.omegao,
		sinio:  o.sinio,
	}
	if math.Abs(d.sinio) < minSinInclination {
		d.sinio = math.Copysign(minSinInclination, o.sinio)
	}

	var ds50 float64
	d.thgr, ds50 = thetaGEpoch(yy, day)

	// Сутки от 1900 Jan 0.5.
	days := ds50 + 18261.5
	xnodce := 4.5236020 - 9.2422029e-4*days
	stem, ctem := math.Sincos(xnodce)
	zcosil := 0.91375164 - 0.03568096*ctem
	zsinil := math.Sqrt(1.0 - zcosil*zcosil)
	zsinhl := 0.089683511 * stem / zsinil
	zcoshl := math.Sqrt(1.0 - zsinhl*zsinhl)
	c := 4.7199672 + 0.22997150*days
	gam := 5.8351514 + 0.0019443680*days
	d.zmol = mod2Pi(c - gam)
	zx := 0.39785416 * stem / zsinil
	zy := zcoshl*ctem + 0.91744867*zsinhl*stem
	zx = gam + math.Atan2(zx, zy) - xnodce
	zsingl, zcosgl := math.Sincos(zx)
	d.zmos = mod2Pi(6.2565837 + 0.017201977*days)

	sinq, cosq := math.Sincos(o.xnodeo)

	d.solar = d.bodyTerms(o, bodyGeometry{
		zcosg: zcossg, zsing: zsings,
		zcosi: zcosis, zsini: zsinis,
		zcosh: cosq, zsinh: sinq,
		cc: c1ss, zn: zns, ze: zes,
	})
	d.lunar = d.bodyTerms(o, bodyGeometry{
		zcosg: zcosgl, zsing: zsingl,
		zcosi: zcosil, zsini: zsinil,
		zcosh: zcoshl*cosq + zsinhl*sinq,
		zsinh: sinq*zcoshl - cosq*zsinhl,
		cc:    c1l, zn: znl, ze: zel,
	})

	d.sse = d.solar.se + d.lunar.se
	d.ssi = d.solar.si + d.lunar.si
	d.ssl = d.solar.sl + d.lunar.sl
	d.ssh = (d.solar.sh + d.lunar.sh) / d.sinio
	d.ssg = d.solar.sgh + d.lunar.sgh - o.cosio/d.sinio*(d.solar.sh+d.lunar.sh)

	d.initResonance(o)

	return d
}

// bodyTerms считает вклад одного тела по его геометрии.
func (d *deepSpaceTerms) bodyTerms(o *orbitTerms, g bodyGeometry) bodyTerms {
	sing, cosg := math.Sincos(o.omegao)
	eosq := o.eosq

	a1 := g.zcosg*g.zcosh + g.zsing*g.zcosi*g.zsinh
	a3 := -g.zsing*g.zcosh + g.zcosg*g.zcosi*g.zsinh
	a7 := -g.zcosg*g.zsinh + g.zsing*g.zcosi*g.zcosh
	a8 := g.zsing * g.zsini
	a9 := g.zsing*g.zsinh + g.zcosg*g.zcosi*g.zcosh
	a10 := g.zcosg * g.zsini
	a2 := o.cosio*a7 + o.sinio*a8
	a4 := o.cosio*a9 + o.sinio*a10
	a5 := -o.sinio*a7 + o.cosio*a8
	a6 := -o.sinio*a9 + o.cosio*a10

	x1 := a1*cosg + a2*sing
	x2 := a3*cosg + a4*sing
	x3 := -a1*sing + a2*cosg
	x4 := -a3*sing + a4*cosg
	x5 := a5 * sing
	x6 := a6 * sing
	x7 := a5 * cosg
	x8 := a6 * cosg

	z31 := 12.0*x1*x1 - 3.0*x3*x3
	z32 := 24.0*x1*x2 - 6.0*x3*x4
	z33 := 12.0*x2*x2 - 3.0*x4*x4
	z1 := 3.0*(a1*a1+a2*a2) + z31*eosq
	z2 := 6.0*(a1*a3+a2*a4) + z32*eosq
	z3 := 3.0*(a3*a3+a4*a4) + z33*eosq
	z11 := -6.0*a1*a5 + eosq*(-24.0*x1*x7-6.0*x3*x5)
	z12 := -6.0*(a1*a6+a3*a5) + eosq*(-24.0*(x2*x7+x1*x8)-6.0*(x3*x6+x4*x5))
	z13 := -6.0*a3*a6 + eosq*(-24.0*x2*x8-6.0*x4*x6)
	z21 := 6.0*a2*a5 + eosq*(24.0*x1*x5-6.0*x3*x7)
	z22 := 6.0*(a4*a5+a2*a6) + eosq*(24.0*(x2*x5+x1*x6)-6.0*(x4*x7+x3*x8))
	z23 := 6.0*a4*a6 + eosq*(24.0*x2*x6-6.0*x4*x8)
	z1 = z1 + z1 + o.betao2*z31
	z2 = z2 + z2 + o.betao2*z32
	z3 = z3 + z3 + o.betao2*z33

	s3 := g.cc / d.xnq
	s2 := -0.5 * s3 / o.betao
	s4 := s3 * o.betao
	s1 := -15.0 * o.eo * s4
	s5 := x1*x3 + x2*x4
	s6 := x2*x3 + x1*x4
	s7 := x2*x4 - x1*x3

	t := bodyTerms{
		se:  s1 * g.zn * s5,
		si:  s2 * g.zn * (z11 + z13),
		sl:  -g.zn * s3 * (z1 + z3 - 14.0 - 6.0*eosq),
		sgh: s4 * g.zn * (z31 + z33 - 6.0),
		sh:  -g.zn * s2 * (z21 + z23),

		e2:  2.0 * s1 * s6,
		e3:  2.0 * s1 * s7,
		i2:  2.0 * s2 * z12,
		i3:  2.0 * s2 * (z13 - z11),
		l2:  -2.0 * s3 * z2,
		l3:  -2.0 * s3 * (z3 - z1),
		l4:  -2.0 * s3 * (-21.0 - 9.0*eosq) * g.ze,
		gh2: 2.0 * s4 * z32,
		gh3: 2.0 * s4 * (z33 - z31),
		gh4: -18.0 * s4 * g.ze,
		h2:  -2.0 * s2 * z22,
		h3:  -2.0 * s2 * (z23 - z21),
	}

	// Около экватора (прямого и обратного) узел не определён.
	if d.xqncl < lowInclination || d.xqncl > math.Pi-lowInclination {
		t.sh = 0
	}

	return t
}

// initResonance определяет тип резонанса и его коэффициенты.
func (d *deepSpaceTerms) initResonance(o *orbitTerms) {
	aqnv := 1.0 / o.aodp
	eq := o.eo
	eosq := o.eosq
	cosio, sinio, theta2 := o.cosio, o.sinio, o.theta2

	switch {
	case d.xnq > syncLow && d.xnq < syncHigh:
		d.resonance = resonanceSynchronous

		g200 := 1.0 + eosq*(-2.5+0.8125*eosq)
		g310 := 1.0 + 2.0*eosq
		g300 := 1.0 + eosq*(-6.0+6.60937*eosq)
		f220 := 0.75 * (1.0 + cosio) * (1.0 + cosio)
		f311 := 0.9375*sinio*sinio*(1.0+3.0*cosio) - 0.75*(1.0+cosio)
		f330 := 1.0 + cosio
		f330 = 1.875 * f330 * f330 * f330
		del1 := 3.0 * d.xnq * d.xnq * aqnv * aqnv
		d.del2 = 2.0 * del1 * f220 * g200 * q22
		d.del3 = 3.0 * del1 * f330 * g300 * q33 * aqnv
		d.del1 = del1 * f311 * g310 * q31 * aqnv

		d.xlamo = o.xmo + o.xnodeo + o.omegao - d.thgr
		bfact := o.xmdot + o.omgdot + o.xnodot - thdt + d.ssl + d.ssg + d.ssh
		d.xfact = bfact - d.xnq

	case d.xnq >= semiSyncLow && d.xnq <= semiSyncHigh && eq >= 0.5:
		d.resonance = resonanceHalfDay

		eoc := eq * eosq
		g201 := -0.306 - (eq-0.64)*0.440

		var g211, g310, g322, g410, g422, g520, g521, g532, g533 float64
		if eq <= 0.65 {
			g211 = 3.616 - 13.247*eq + 16.290*eosq
			g310 = -19.302 + 117.390*eq - 228.419*eosq + 156.591*eoc
			g322 = -18.9068 + 109.7927*eq - 214.6334*eosq + 146.5816*eoc
			g410 = -41.122 + 242.694*eq - 471.094*eosq + 313.953*eoc
			g422 = -146.407 + 841.880*eq - 1629.014*eosq + 1083.435*eoc
			g520 = -532.114 + 3017.977*eq - 5740.0*eosq + 3708.276*eoc
		} else {
			g211 = -72.099 + 331.819*eq - 508.738*eosq + 266.724*eoc
			g310 = -346.844 + 1582.851*eq - 2415.925*eosq + 1246.113*eoc
			g322 = -342.585 + 1554.908*eq - 2366.899*eosq + 1215.972*eoc
			g410 = -1052.797 + 4758.686*eq - 7193.992*eosq + 3651.957*eoc
			g422 = -3581.69 + 16178.11*eq - 24462.77*eosq + 12422.52*eoc
			if eq <= 0.715 {
				g520 = 1464.74 - 4664.75*eq + 3763.64*eosq
			} else {
				g520 = -5149.66 + 29936.92*eq - 54087.36*eosq + 31324.56*eoc
			}
		}

		if eq < 0.7 {
			g533 = -919.2277 + 4988.61*eq - 9064.77*eosq + 5542.21*eoc
			g521 = -822.71072 + 4568.6173*eq - 8491.4146*eosq + 5337.524*eoc
			g532 = -853.666 + 4690.25*eq - 8624.77*eosq + 5341.4*eoc
		} else {
			g533 = -37995.78 + 161616.52*eq - 229838.2*eosq + 109377.94*eoc
			g521 = -51752.104 + 218913.95*eq - 309468.16*eosq + 146349.42*eoc
			g532 = -40023.88 + 170470.89*eq - 242699.48*eosq + 115605.82*eoc
		}

		sini2 := sinio * sinio
		f220 := 0.75 * (1.0 + 2.0*cosio + theta2)
		f221 := 1.5 * sini2
		f321 := 1.875 * sinio * (1.0 - 2.0*cosio - 3.0*theta2)
		f322 := -1.875 * sinio * (1.0 + 2.0*cosio - 3.0*theta2)
		f441 := 35.0 * sini2 * f220
		f442 := 39.3750 * sini2 * sini2
		f522 := 9.84375 * sinio * (sini2*(1.0-2.0*cosio-5.0*theta2) +
			0.33333333*(-2.0+4.0*cosio+6.0*theta2))
		f523 := sinio * (4.92187512*sini2*(-2.0-4.0*cosio+10.0*theta2) +
			6.56250012*(1.0+2.0*cosio-3.0*theta2))
		f542 := 29.53125 * sinio * (2.0 - 8.0*cosio + theta2*(-12.0+8.0*cosio+10.0*theta2))
		f543 := 29.53125 * sinio * (-2.0 - 8.0*cosio + theta2*(12.0+8.0*cosio-10.0*theta2))

		xno2 := d.xnq * d.xnq
		ainv2 := aqnv * aqnv
		temp1 := 3.0 * xno2 * ainv2
		temp := temp1 * root22
		d.d2201 = temp * f220 * g201
		d.d2211 = temp * f221 * g211
		temp1 *= aqnv
		temp = temp1 * root32
		d.d3210 = temp * f321 * g310
		d.d3222 = temp * f322 * g322
		temp1 *= aqnv
		temp = 2.0 * temp1 * root44
		d.d4410 = temp * f441 * g410
		d.d4422 = temp * f442 * g422
		temp1 *= aqnv
		temp = temp1 * root52
		d.d5220 = temp * f522 * g520
		d.d5232 = temp * f523 * g532
		temp = 2.0 * temp1 * root54
		d.d5421 = temp * f542 * g521
		d.d5433 = temp * f543 * g533

		d.xlamo = o.xmo + 2.0*o.xnodeo - 2.0*d.thgr
		bfact := o.xmdot + 2.0*o.xnodot - 2.0*thdt + d.ssl + 2.0*d.ssh
		d.xfact = bfact - d.xnq
	}
}

// deepState — изменяемые в процессе одного вызова средние элементы.
type deepState struct {
	xll    float64
	omgadf float64
	xnode  float64
	em     float64
	xinc   float64
	xn     float64
}

// secular добавляет вековые лунно-солнечные члены и резонанс.
func (d *deepSpaceTerms) secular(o *orbitTerms, s *deepState, t float64) {
	s.xll += d.ssl * t
	s.omgadf += d.ssg * t
	s.xnode += d.ssh * t
	s.em = o.eo + d.sse*t
	s.xinc = o.xincl + d.ssi*t

	if s.xinc < 0 {
		s.xinc = -s.xinc
		s.xnode += math.Pi
		s.omgadf -= math.Pi
	}

	if d.resonance == resonanceNone {
		return
	}

	xn, xl := d.integrate(o, t)
	s.xn = xn

	temp := -s.xnode + d.thgr + t*thdt
	if d.resonance == resonanceSynchronous {
		s.xll = xl - s.omgadf + temp
	} else {
		s.xll = xl + 2.0*temp
	}
}

// integrate интегрирует резонансные члены от эпохи до t шагами по 720 минут
// и возвращает среднее движение и среднюю долготу в момент t.
func (d *deepSpaceTerms) integrate(o *orbitTerms, t float64) (xn, xl float64) {
	delt := resonanceStep
	if t < 0 {
		delt = -resonanceStep
	}

	atime := 0.0
	xli := d.xlamo
	xni := d.xnq

	for {
		xndot, xnddt := d.dotTerms(o, xli, atime)
		xldot := xni + d.xfact
		xnddt *= xldot

		if math.Abs(t-atime) < resonanceStep {
			ft := t - atime
			xn = xni + xndot*ft + xnddt*ft*ft*0.5
			xl = xli + xldot*ft + xndot*ft*ft*0.5

			return xn, xl
		}

		xli += xldot*delt + xndot*resonanceStep2
		xni += xndot*delt + xnddt*resonanceStep2
		atime += delt
	}
}

// dotTerms возвращает производные среднего движения (xndot и xnddt без
// множителя xldot) для резонансной долготы xli в момент atime.
func (d *deepSpaceTerms) dotTerms(o *orbitTerms, xli, atime float64) (xndot, xnddt float64) {
	if d.resonance == resonanceSynchronous {
		xndot = d.del1*math.Sin(xli-fasx2) +
			d.del2*math.Sin(2.0*(xli-fasx4)) +
			d.del3*math.Sin(3.0*(xli-fasx6))
		xnddt = d.del1*math.Cos(xli-fasx2) +
			2.0*d.del2*math.Cos(2.0*(xli-fasx4)) +
			3.0*d.del3*math.Cos(3.0*(xli-fasx6))

		return xndot, xnddt
	}

	xomi := d.omegaq + o.omgdot*atime
	x2omi := xomi + xomi
	x2li := xli + xli

	xndot = d.d2201*math.Sin(x2omi+xli-g22) +
		d.d2211*math.Sin(xli-g22) +
		d.d3210*math.Sin(xomi+xli-g32) +
		d.d3222*math.Sin(-xomi+xli-g32) +
		d.d4410*math.Sin(x2omi+x2li-g44) +
		d.d4422*math.Sin(x2li-g44) +
		d.d5220*math.Sin(xomi+xli-g52) +
		d.d5232*math.Sin(-xomi+xli-g52) +
		d.d5421*math.Sin(xomi+x2li-g54) +
		d.d5433*math.Sin(-xomi+x2li-g54)
	xnddt = d.d2201*math.Cos(x2omi+xli-g22) +
		d.d2211*math.Cos(xli-g22) +
		d.d3210*math.Cos(xomi+xli-g32) +
		d.d3222*math.Cos(-xomi+xli-g32) +
		d.d5220*math.Cos(xomi+xli-g52) +
		d.d5232*math.Cos(-xomi+xli-g52) +
		2.0*(d.d4410*math.Cos(x2omi+x2li-g44)+
			d.d4422*math.Cos(x2li-g44)+
			d.d5421*math.Cos(xomi+x2li-g54)+
			d.d5433*math.Cos(-xomi+x2li-g54))

	return xndot, xnddt
}

// periodics добавляет лунно-солнечные периодические члены. Для малого
// наклонения используется модификация Лиддейна.
func (d *deepSpaceTerms) periodics(o *orbitTerms, s *deepState, t float64) {
	sinis, cosis := math.Sincos(s.xinc)

	ses, sis, sls, sghs, shs := d.solar.periodic(zmPosition(d.zmos, zns, zes, t))
	sel, sil, sll, sghl, shl := d.lunar.periodic(zmPosition(d.zmol, znl, zel, t))

	pe := ses + sel
	pinc := sis + sil
	pl := sls + sll
	pgh := sghs + sghl
	ph := shs + shl

	s.xinc += pinc
	s.em += pe

	if d.xqncl >= lyddaneLimit {
		ph /= d.sinio
		pgh -= o.cosio * ph
		s.omgadf += pgh
		s.xnode += ph
		s.xll += pl

		return
	}

	sinok, cosok := math.Sincos(s.xnode)
	alfdp := sinis*sinok + ph*cosok + pinc*cosis*sinok
	betdp := sinis*cosok - ph*sinok + pinc*cosis*cosok
	s.xnode = mod2Pi(s.xnode)
	xls := s.xll + s.omgadf + cosis*s.xnode
	xls += pl + pgh - pinc*s.xnode*sinis
	xnoh := s.xnode
	s.xnode = math.Atan2(alfdp, betdp)

	// Узел не должен перескакивать через 2π.
	if math.Abs(xnoh-s.xnode) > math.Pi {
		if s.xnode < xnoh {
			s.xnode += twoPi
		} else {
			s.xnode -= twoPi
		}
	}

	s.xll += pl
	s.omgadf = xls - s.xll - math.Cos(s.xinc)*s.xnode
}

// zmPosition возвращает sin и cos истинной аномалии тела в момент t.
func zmPosition(zm0, zn, ze, t float64) (sinzf, coszf float64) {
	zm := zm0 + zn*t
	zf := zm + 2.0*ze*math.Sin(zm)

	return math.Sincos(zf)
}

// periodic возвращает периодические поправки e, i, l, g+h и h от тела.
func (b *bodyTerms) periodic(sinzf, coszf float64) (pe, pinc, pl, pgh, ph float64) {
	f2 := 0.5*sinzf*sinzf - 0.25
	f3 := -0.5 * sinzf * coszf

	pe = b.e2*f2 + b.e3*f3
	pinc = b.i2*f2 + b.i3*f3
	pl = b.l2*f2 + b.l3*f3 + b.l4*sinzf
	pgh = b.gh2*f2 + b.gh3*f3 + b.gh4*sinzf
	ph = b.h2*f2 + b.h3*f3

	return pe, pinc, pl, pgh, ph
}

// propagateDeep выполняет SDP4 на tsince минут от эпохи.
func propagateDeep(o *orbitTerms, d *deepSpaceTerms, tsince float64) (pos, vel Vector, phase float64) {
	xmdf := o.xmo + o.xmdot*tsince
	tsq := tsince * tsince
	templ := o.t2cof * tsq
	tempa := 1.0 - o.c1*tsince
	tempe := o.bstar * o.c4 * tsince

	s := deepState{
		xll:    xmdf + o.xnodp*templ,
		omgadf: o.omegao + o.omgdot*tsince,
		xnode:  o.xnodeo + o.xnodot*tsince + o.xnodcf*tsq,
		xn:     o.xnodp,
	}

	d.secular(o, &s, tsince)

	a := math.Pow(xke/s.xn, twoThirds) * tempa * tempa
	s.em -= tempe

	d.periodics(o, &s, tsince)

	return finishOrbit(o, orbitState{
		a:      a,
		e:      clampEccentricity(s.em),
		xl:     s.xll + s.omgadf + s.xnode,
		omega:  s.omgadf,
		omgadf: s.omgadf,
		xnode:  s.xnode,
		xinc:   s.xinc,
	})
}
