// Package observer переводит инерциальное состояние спутника в координаты
// относительно наземной станции: азимут, угол места, дальность, радиальную
// скорость, подспутниковую точку и освещённость.
package observer

import (
	"errors"
	"fmt"
	"math"

	"github.com/art-injener/satpredict-go/internal/sgp4"
)

// HorizonSectors число секторов маски горизонта (по 10° азимута).
const HorizonSectors = 36

// Ошибки конфигурации станции.
var (
	ErrNilStation         = errors.New("nil ground station")
	ErrInvalidStation     = errors.New("invalid ground station")
	ErrInvalidHorizonMask = errors.New("invalid horizon mask")
)

const (
	deg2Rad = math.Pi / 180
	rad2Deg = 180 / math.Pi
)

// GroundStation наземная станция на эллипсоиде WGS-84.
// Значение неизменяемо после NewGroundStation.
type GroundStation struct {
	name      string
	latitude  float64 // градусы
	longitude float64 // градусы, восточная
	altitudeM float64 // метры над уровнем моря
	mask      [HorizonSectors]float64

	// Кэш, зависящий только от положения станции.
	sinLat float64
	cosLat float64
	lonRad float64
	achcp  float64 // расстояние от оси вращения, км
	zKm    float64 // координата z, км
}

// NewGroundStation создаёт станцию. Широта и долгота в градусах, высота
// в метрах. mask — минимальные углы места по 36 секторам азимута; nil или
// пустой срез означает нулевой горизонт.
func NewGroundStation(name string, lat, lon, altM float64, mask []float64) (*GroundStation, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("%w: latitude %v out of [-90, 90]", ErrInvalidStation, lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 360 {
		return nil, fmt.Errorf("%w: longitude %v out of [-180, 360]", ErrInvalidStation, lon)
	}
	if math.IsNaN(altM) || math.IsInf(altM, 0) {
		return nil, fmt.Errorf("%w: altitude %v", ErrInvalidStation, altM)
	}
	if len(mask) != 0 && len(mask) != HorizonSectors {
		return nil, fmt.Errorf("%w: expected %d entries, got %d",
			ErrInvalidHorizonMask, HorizonSectors, len(mask))
	}

	gs := &GroundStation{
		name:      name,
		latitude:  lat,
		longitude: lon,
		altitudeM: altM,
	}

	for i, v := range mask {
		if math.IsNaN(v) || v < -90 || v > 90 {
			return nil, fmt.Errorf("%w: sector %d elevation %v out of [-90, 90]",
				ErrInvalidHorizonMask, i, v)
		}
		gs.mask[i] = v
	}

	latRad := lat * deg2Rad
	gs.sinLat, gs.cosLat = math.Sincos(latRad)
	gs.lonRad = lon * deg2Rad

	f := sgp4.FlatteningFactor
	c := 1.0 / math.Sqrt(1.0+f*(f-2.0)*gs.sinLat*gs.sinLat)
	sq := (1.0 - f) * (1.0 - f) * c
	altKm := altM / 1000.0
	gs.achcp = (sgp4.EarthRadiusKm*c + altKm) * gs.cosLat
	gs.zKm = (sgp4.EarthRadiusKm*sq + altKm) * gs.sinLat

	return gs, nil
}

// Name возвращает имя станции.
func (gs *GroundStation) Name() string { return gs.name }

// Latitude возвращает широту в градусах.
func (gs *GroundStation) Latitude() float64 { return gs.latitude }

// Longitude возвращает восточную долготу в градусах.
func (gs *GroundStation) Longitude() float64 { return gs.longitude }

// Altitude возвращает высоту над уровнем моря в метрах.
func (gs *GroundStation) Altitude() float64 { return gs.altitudeM }

// HorizonMask возвращает копию маски горизонта.
func (gs *GroundStation) HorizonMask() [HorizonSectors]float64 { return gs.mask }

// MinElevation возвращает порог угла места (градусы) для азимута azDeg.
func (gs *GroundStation) MinElevation(azDeg float64) float64 {
	return gs.mask[sector(azDeg)]
}

// LowestMaskElevation возвращает наименьший порог маски в градусах.
func (gs *GroundStation) LowestMaskElevation() float64 {
	lowest := gs.mask[0]
	for _, v := range gs.mask[1:] {
		lowest = math.Min(lowest, v)
	}

	return lowest
}

func (gs *GroundStation) String() string {
	return fmt.Sprintf("%s (%.4f°, %.4f°, %.0f m)", gs.name, gs.latitude, gs.longitude, gs.altitudeM)
}

// sector возвращает номер сектора маски для азимута в градусах.
func sector(azDeg float64) int {
	s := int(azDeg / 10.0)
	switch {
	case s < 0:
		return 0
	case s >= HorizonSectors:
		return HorizonSectors - 1
	default:
		return s
	}
}

// eci возвращает положение и скорость станции в TEME на юлианскую дату jd
// и местное звёздное время (рад). Станция неподвижна относительно Земли.
// The 1992 Astronomical Almanac, page K11.
func (gs *GroundStation) eci(jd float64) (pos, vel sgp4.Vector, theta float64) {
	theta = sgp4.Mod2Pi(sgp4.ThetaGJD(jd) + gs.lonRad)
	sinT, cosT := math.Sincos(theta)

	pos = sgp4.Vector{
		X: gs.achcp * cosT,
		Y: gs.achcp * sinT,
		Z: gs.zKm,
	}
	vel = sgp4.Vector{
		X: -sgp4.EarthRotationRate * pos.Y,
		Y: sgp4.EarthRotationRate * pos.X,
	}

	return pos, vel, theta
}
