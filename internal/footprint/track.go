package footprint

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/art-injener/satpredict-go/internal/observer"
)

// Ошибки построения трассы.
var (
	ErrNilSatellite = errors.New("nil satellite")
	ErrInvalidRange = errors.New("invalid time range")
	ErrInvalidStep  = errors.New("invalid track step")
)

// wrapThreshold — скачок долготы между соседними точками (градусы), который
// считается переходом через антимеридиан, а не движением спутника.
const wrapThreshold = 270.0

// TrackPoint — точка наземной трассы. Долгота в [-180, 180], время в мс Unix.
type TrackPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	TS  int64   `json:"ts"`
}

// Track — трасса, разделённая моментом now на пройденную и предстоящую части.
// Каждая часть состоит из сегментов, не пересекающих антимеридиан.
type Track struct {
	Past    [][]TrackPoint `json:"past"`
	Future  [][]TrackPoint `json:"future"`
	NoradID int            `json:"norad_id"`
}

// Points возвращает все точки трассы подряд.
func (tr *Track) Points() []TrackPoint {
	if tr == nil {
		return nil
	}

	result := make([]TrackPoint, 0, tr.TotalPoints())
	for _, seg := range tr.Past {
		result = append(result, seg...)
	}
	for _, seg := range tr.Future {
		result = append(result, seg...)
	}

	return result
}

// TotalPoints возвращает число точек во всех сегментах.
func (tr *Track) TotalPoints() int {
	if tr == nil {
		return 0
	}

	n := 0
	for _, seg := range tr.Past {
		n += len(seg)
	}
	for _, seg := range tr.Future {
		n += len(seg)
	}

	return n
}

// GroundTrack строит трассу спутника sat на интервале [start, end] с шагом step.
func GroundTrack(sat *observer.Satellite, start, end, now time.Time, step time.Duration) (*Track, error) {
	if sat == nil {
		return nil, ErrNilSatellite
	}
	if step <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStep, step)
	}
	if start.Equal(end) {
		return nil, fmt.Errorf("%w: start equals end", ErrInvalidRange)
	}
	if end.Before(start) {
		start, end = end, start
	}

	states := make([]observer.SatelliteState, 0, int(end.Sub(start)/step)+1)
	for t := start; !t.After(end); t = t.Add(step) {
		states = append(states, sat.Vectors(t).GroundTrack())
	}

	past, future := splitAt(SplitTrack(TrackPoints(states)), now.UnixMilli())

	return &Track{
		Past:    past,
		Future:  future,
		NoradID: sat.Elements().NoradID,
	}, nil
}

// DefaultGroundTrack строит трассу на один период назад и три вперёд от now
// с шагом 30 секунд.
func DefaultGroundTrack(sat *observer.Satellite, now time.Time) (*Track, error) {
	if sat == nil {
		return nil, ErrNilSatellite
	}

	el := sat.Elements()
	period := time.Duration(el.OrbitalPeriod() * float64(time.Minute))
	if period <= 0 {
		return nil, fmt.Errorf("%w: orbital period %.2f min", ErrInvalidRange, el.OrbitalPeriod())
	}

	return GroundTrack(sat, now.Add(-period), now.Add(3*period), now, 30*time.Second)
}

// TrackPoints переводит состояния в точки трассы с долготой в [-180, 180].
func TrackPoints(states []observer.SatelliteState) []TrackPoint {
	points := make([]TrackPoint, len(states))
	for i, st := range states {
		lon := st.Longitude
		if lon > 180 {
			lon -= 360
		}

		points[i] = TrackPoint{Lon: lon, Lat: st.Latitude, TS: st.Time.UnixMilli()}
	}

	return points
}

// SplitTrack разбивает трассу на сегменты в местах перехода через
// антимеридиан. Каждый разрыв закрывается парой точек на ±180°
// с интерполированной широтой и временем.
func SplitTrack(points []TrackPoint) [][]TrackPoint {
	if len(points) == 0 {
		return nil
	}

	var segments [][]TrackPoint
	seg := []TrackPoint{points[0]}

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]

		if math.Abs(cur.Lon-prev.Lon) <= wrapThreshold {
			seg = append(seg, cur)
			continue
		}

		end, begin := boundaryPoints(prev, cur)
		segments = append(segments, append(seg, end))
		seg = []TrackPoint{begin, cur}
	}

	return append(segments, seg)
}

// boundaryPoints возвращает точку на границе со стороны a и парную ей
// точку с противоположной стороны.
func boundaryPoints(a, b TrackPoint) (TrackPoint, TrackPoint) {
	edge, unwrap := 180.0, 360.0
	if a.Lon <= 0 {
		edge, unwrap = -180.0, -360.0
	}

	frac := 0.5
	if d := b.Lon + unwrap - a.Lon; math.Abs(d) > 1e-10 {
		frac = math.Max(0, math.Min(1, (edge-a.Lon)/d))
	}

	lat := a.Lat + (b.Lat-a.Lat)*frac
	ts := a.TS + int64(float64(b.TS-a.TS)*frac)

	return TrackPoint{Lon: edge, Lat: lat, TS: ts},
		TrackPoint{Lon: -edge, Lat: lat, TS: ts}
}

// splitAt делит сегменты по моменту nowMs: точки раньше него уходят
// в пройденную часть, остальные в предстоящую.
func splitAt(segments [][]TrackPoint, nowMs int64) (past, future [][]TrackPoint) {
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}

		idx := len(seg)
		for i, p := range seg {
			if p.TS >= nowMs {
				idx = i
				break
			}
		}

		if idx > 0 {
			past = append(past, seg[:idx])
		}
		if idx < len(seg) {
			future = append(future, seg[idx:])
		}
	}

	return past, future
}
