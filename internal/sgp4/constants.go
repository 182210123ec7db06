// Package sgp4 реализует пропагацию орбиты по моделям SGP4 (околоземные
// объекты) и SDP4 (дальний космос, период от 225 минут) в формулировке
// Spacetrack Report No. 3.
//
// Внутренние единицы: земные радиусы и минуты. Наружу отдаются километры
// и км/с в инерциальной системе TEME.
package sgp4

import "math"

// Физические константы, доступные другим пакетам.
const (
	// EarthRadiusKm экваториальный радиус Земли (WGS-84), км.
	EarthRadiusKm = 6378.137

	// FlatteningFactor сплюснутость земного эллипсоида.
	FlatteningFactor = 3.35281066474748e-3

	// EarthRotationRate угловая скорость вращения Земли, рад/с.
	EarthRotationRate = 7.292115e-5

	// SpeedOfLight скорость света, м/с.
	SpeedOfLight = 2.99792458e8

	// SolarRadiusKm радиус Солнца (IAU 76), км.
	SolarRadiusKm = 6.96e5

	// AstronomicalUnitKm астрономическая единица, км.
	AstronomicalUnitKm = 1.49597870691e8
)

// Константы модели (WGS-72 гравитация, как в исходной SGP4).
const (
	xke        = 7.43669161e-2
	ck2        = 5.413079e-4
	ck4        = 6.209887e-7
	j3Harmonic = -2.53881e-6
	s0         = 1.012229
	qoms2t     = 1.880279e-9

	twoThirds = 2.0 / 3.0
	twoPi     = 2 * math.Pi
	piOverTwo = math.Pi / 2
	deg2Rad   = math.Pi / 180

	minutesPerDay = 1440.0
	secondsPerDay = 86400.0

	earthRotationsPerSiderealDay = 1.00273790934

	// epsilon точность итераций (Кеплер, геодезическая широта).
	epsilon = 1.0e-12

	// keplerMaxIterations ограничивает решение уравнения Кеплера.
	keplerMaxIterations = 10

	// perigeeDragKm ниже этой высоты перигея меняются s4 и qoms24.
	perigeeDragKm = 156.0

	// perigeeSimpleKm ниже этой высоты перигея используется усечённая модель.
	perigeeSimpleKm = 220.0

	// deepSpacePeriodDays граница периода (225 минут) в сутках.
	deepSpacePeriodDays = 0.15625

	// minEccentricity ограничивает эксцентриситет снизу при вырождении.
	minEccentricity = 1.0e-6

	// maxEccentricity ограничивает эксцентриситет сверху при вырождении.
	maxEccentricity = 1 - 1.0e-6
)

// Константы лунно-солнечных возмущений и резонансов SDP4.
const (
	zsinis = 3.9785416e-1
	zsings = -9.8088458e-1
	zcossg = 1.945905e-1
	zcosis = 9.1744867e-1
	zns    = 1.19459e-5
	c1ss   = 2.9864797e-6
	zes    = 1.675e-2
	znl    = 1.5835218e-4
	c1l    = 4.7968065e-7
	zel    = 5.490e-2

	root22 = 1.7891679e-6
	root32 = 3.7393792e-7
	root44 = 7.3636953e-9
	root52 = 1.1428639e-7
	root54 = 2.1765803e-9
	thdt   = 4.3752691e-3

	q22 = 1.7891679e-6
	q31 = 2.1460748e-6
	q33 = 2.2123015e-7

	g22 = 5.7686396
	g32 = 9.5240898e-1
	g44 = 1.8014998
	g52 = 1.0508330
	g54 = 4.4108898

	fasx2 = 0.13130908
	fasx4 = 2.8843198
	fasx6 = 0.37448087

	// Шаг интегратора резонанса, минуты, и stepp²/2.
	resonanceStep  = 720.0
	resonanceStep2 = 259200.0

	// Пределы среднего движения (рад/мин) для резонансов.
	syncLow      = 0.0034906585
	syncHigh     = 0.0052359877
	semiSyncLow  = 0.00826
	semiSyncHigh = 0.00924

	// lowInclination порог (рад) исключения sh и ветки Лиддейна.
	lowInclination = 5.2359877e-2
	lyddaneLimit   = 0.2
)
