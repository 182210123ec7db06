package sgp4

import (
	"fmt"
	"math"
)

// Vector — трёхмерный вектор в декартовой системе.
type Vector struct {
	X float64
	Y float64
	Z float64
}

// Magnitude возвращает длину вектора.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add возвращает v + o.
func (v Vector) Add(o Vector) Vector {
	return Vector{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub возвращает v - o.
func (v Vector) Sub(o Vector) Vector {
	return Vector{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale возвращает k·v.
func (v Vector) Scale(k float64) Vector {
	return Vector{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot возвращает скалярное произведение.
func (v Vector) Dot(o Vector) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Angle возвращает угол между векторами в радианах.
func (v Vector) Angle(o Vector) float64 {
	c := v.Dot(o) / (v.Magnitude() * o.Magnitude())

	return math.Acos(math.Max(-1, math.Min(1, c)))
}

func (v Vector) String() string {
	return fmt.Sprintf("[%.3f, %.3f, %.3f]", v.X, v.Y, v.Z)
}

// mod2Pi приводит угол к диапазону [0, 2π).
func mod2Pi(x float64) float64 {
	r := math.Mod(x, twoPi)
	if r < 0 {
		r += twoPi
	}

	return r
}

// Mod2Pi приводит угол к диапазону [0, 2π).
func Mod2Pi(x float64) float64 {
	return mod2Pi(x)
}

// modulus возвращает a mod b с неотрицательным результатом.
func modulus(a, b float64) float64 {
	r := a - math.Floor(a/b)*b
	if r < 0 {
		r += b
	}

	return r
}

// frac возвращает дробную часть числа.
func frac(x float64) float64 {
	return x - math.Floor(x)
}

func sqr(x float64) float64 {
	return x * x
}
