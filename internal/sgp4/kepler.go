package sgp4

import "math"

// keplerSolution синус и косинус эксцентрической аномалии плюс
// произведения, нужные для вычисления положения.
type keplerSolution struct {
	sinE  float64
	cosE  float64
	ecosE float64
	esinE float64
}

// solveKepler решает уравнение Кеплера для элементов Лиддейна
// (capu = E + axn·sinE − ayn·cosE) итерациями Ньютона–Рафсона.
// Число итераций ограничено; без сходимости берётся последнее приближение.
func solveKepler(capu, axn, ayn float64) keplerSolution {
	var k keplerSolution

	epw := capu
	for range keplerMaxIterations {
		k.sinE, k.cosE = math.Sincos(epw)
		k.ecosE = axn*k.cosE + ayn*k.sinE
		k.esinE = axn*k.sinE - ayn*k.cosE

		next := (capu-ayn*k.cosE+axn*k.sinE-epw)/(1.0-k.ecosE) + epw
		if math.Abs(next-epw) <= epsilon {
			break
		}
		epw = next
	}

	return k
}
