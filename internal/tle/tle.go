// Package tle реализует разбор и валидацию наборов орбитальных элементов
// в формате Two-Line Element (TLE).
package tle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Ошибки разбора TLE.
var (
	// ErrMalformedElements общая ошибка разбора: поле отсутствует, пустое,
	// не является числом или неверное количество строк.
	ErrMalformedElements = errors.New("malformed element set")
	ErrInvalidChecksum   = errors.New("invalid TLE checksum")
	ErrInvalidLineNumber = errors.New("invalid TLE line number")
	ErrLineTooShort      = errors.New("TLE line too short")
	ErrNoradIDMismatch   = errors.New("NORAD ID mismatch between lines")
	ErrInvalidAlpha5     = errors.New("invalid Alpha-5 NORAD ID format")
)

// alpha5Map маппинг букв Alpha-5 формата на числовые префиксы.
// Буквы I и O не используются (путаются с 1 и 0).
var alpha5Map = map[byte]int{
	'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17,
	'J': 18, 'K': 19, 'L': 20, 'M': 21, 'N': 22,
	'P': 23, 'Q': 24, 'R': 25, 'S': 26, 'T': 27, 'U': 28, 'V': 29, 'W': 30,
	'X': 31, 'Y': 32, 'Z': 33,
}

// Константы формата TLE.
const (
	// LineLength полная длина строки TLE, включая контрольную сумму.
	LineLength = 69

	// minLineLength минимальная длина строки без контрольной суммы.
	minLineLength = 68

	// deepSpacePeriodDays граница периода (225 минут) в сутках.
	deepSpacePeriodDays = 0.15625
)

// Константы гравитационной модели, нужные для классификации орбиты.
const (
	xke       = 7.43669161e-2
	ck2       = 5.413079e-4
	twoThirds = 2.0 / 3.0
	minPerDay = 1440.0

	earthRadiusKm = 6378.137
	earthMu       = 398600.4418 // км³/с²
)

// Elements представляет разобранный набор орбитальных элементов.
// Формат описан: https://celestrak.org/NORAD/documentation/tle-fmt.php
//
// После разбора значение не меняется; пропагатор хранит собственную копию.
type Elements struct {
	Name           string    // Имя объекта (из строки 0, если есть).
	NoradID        int       // Каталожный номер (поддерживает Alpha-5).
	Classification string    // Классификация: U, C, S.
	IntlDesignator string    // Международное обозначение (COSPAR ID).
	EpochYear      int       // Двузначный год эпохи.
	EpochDay       float64   // День года эпохи с дробной частью (1.0 = 1 января 00:00).
	Epoch          time.Time // Эпоха элементов (UTC).
	MeanMotionDot  float64   // Первая производная среднего движения / 2 (об/сут²).
	MeanMotionDot2 float64   // Вторая производная среднего движения / 6 (об/сут³).
	Bstar          float64   // Баллистический коэффициент B* (1/земных радиусов).
	EphemerisType  int       // Тип эфемерид (обычно 0).
	ElementSetNo   int       // Номер набора элементов.
	Inclination    float64   // Наклонение (градусы).
	RAAN           float64   // Долгота восходящего узла (градусы).
	Eccentricity   float64   // Эксцентриситет, 0 <= e < 1.
	ArgOfPerigee   float64   // Аргумент перигея (градусы).
	MeanAnomaly    float64   // Средняя аномалия (градусы).
	MeanMotion     float64   // Среднее движение (оборотов/сутки).
	RevNumber      int       // Номер витка на эпоху.
	Line1          string    // Исходная строка 1.
	Line2          string    // Исходная строка 2.
}

// FieldError описывает ошибку разбора конкретного поля.
// Оборачивает ErrMalformedElements и исходную ошибку strconv.
type FieldError struct {
	Line  int    // Номер строки TLE (1 или 2).
	Field string // Имя поля.
	Value string // Исходное значение колонки.
	Err   error  // Причина.
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: line %d field %s: value %q: %v",
		ErrMalformedElements, e.Line, e.Field, e.Value, e.Err)
}

// Unwrap позволяет errors.Is находить как ErrMalformedElements, так и причину.
func (e *FieldError) Unwrap() []error {
	return []error{ErrMalformedElements, e.Err}
}

var errBlank = errors.New("blank field")

// parseConfig настройки разбора.
type parseConfig struct {
	strict bool
}

// ParseOption функция настройки разбора TLE.
type ParseOption func(*parseConfig)

// WithStrictChecksum включает проверку контрольных сумм и совпадения
// каталожного номера в обеих строках. По умолчанию разбор нестрогий.
func WithStrictChecksum() ParseOption {
	return func(c *parseConfig) {
		c.strict = true
	}
}

// Parse разбирает TLE из массива строк.
// Поддерживает 2-line (Line1, Line2) и 3-line (Name, Line1, Line2) форматы;
// оба дают одинаковые элементы, кроме имени.
func Parse(lines []string, opts ...ParseOption) (*Elements, error) {
	cfg := parseConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	var name, line1, line2 string

	switch len(lines) {
	case 2:
		line1 = strings.TrimSpace(lines[0])
		line2 = strings.TrimSpace(lines[1])
	case 3:
		name = parseName(lines[0])
		line1 = strings.TrimSpace(lines[1])
		line2 = strings.TrimSpace(lines[2])
	default:
		return nil, fmt.Errorf("%w: need 2 or 3 lines, got %d", ErrMalformedElements, len(lines))
	}

	return parseLines(name, line1, line2, cfg)
}

// parseName убирает префикс "0 ", которым некоторые каталоги помечают строку имени.
func parseName(line string) string {
	name := strings.TrimSpace(line)
	if strings.HasPrefix(name, "0 ") {
		name = strings.TrimSpace(name[2:])
	}

	return name
}

func parseLines(name, line1, line2 string, cfg parseConfig) (*Elements, error) {
	if len(line1) < minLineLength {
		return nil, fmt.Errorf("%w: %w: Line1 length %d, need %d",
			ErrMalformedElements, ErrLineTooShort, len(line1), minLineLength)
	}
	if len(line2) < minLineLength {
		return nil, fmt.Errorf("%w: %w: Line2 length %d, need %d",
			ErrMalformedElements, ErrLineTooShort, len(line2), minLineLength)
	}

	if line1[0] != '1' {
		return nil, fmt.Errorf("%w: %w: Line1 starts with %c, expected 1",
			ErrMalformedElements, ErrInvalidLineNumber, line1[0])
	}
	if line2[0] != '2' {
		return nil, fmt.Errorf("%w: %w: Line2 starts with %c, expected 2",
			ErrMalformedElements, ErrInvalidLineNumber, line2[0])
	}

	if cfg.strict {
		if !ValidateChecksum(line1) {
			return nil, fmt.Errorf("%w: %w: Line1", ErrMalformedElements, ErrInvalidChecksum)
		}
		if !ValidateChecksum(line2) {
			return nil, fmt.Errorf("%w: %w: Line2", ErrMalformedElements, ErrInvalidChecksum)
		}
	}

	el := &Elements{
		Name:  name,
		Line1: line1,
		Line2: line2,
	}

	if err := parseLine1(el, line1); err != nil {
		return nil, err
	}
	if err := parseLine2(el, line2); err != nil {
		return nil, err
	}

	if cfg.strict {
		noradID2, err := parseNoradID(strings.TrimSpace(line2[2:7]))
		if err != nil {
			return nil, &FieldError{Line: 2, Field: "catalog number", Value: line2[2:7], Err: err}
		}
		if el.NoradID != noradID2 {
			return nil, fmt.Errorf("%w: %w: Line1=%d, Line2=%d",
				ErrMalformedElements, ErrNoradIDMismatch, el.NoradID, noradID2)
		}
	}

	return el, nil
}

// parseLine1 извлекает данные из Line 1.
//
//	Col  3-7    Satellite Number (поддерживает Alpha-5)
//	Col  8      Classification
//	Col 10-17   International Designator
//	Col 19-32   Epoch (YY + DDD.DDDDDDDD)
//	Col 34-43   First Derivative of Mean Motion
//	Col 45-52   Second Derivative of Mean Motion
//	Col 54-61   BSTAR drag term
//	Col 63      Ephemeris Type
//	Col 65-68   Element Set Number
//	Col 69      Checksum
func parseLine1(el *Elements, line string) error {
	var err error

	col := line[2:7]
	if el.NoradID, err = parseNoradID(strings.TrimSpace(col)); err != nil {
		return &FieldError{Line: 1, Field: "catalog number", Value: col, Err: err}
	}

	el.Classification = strings.TrimSpace(line[7:8])
	el.IntlDesignator = strings.TrimSpace(line[9:17])

	col = line[18:20]
	if el.EpochYear, err = requiredInt(col); err != nil {
		return &FieldError{Line: 1, Field: "epoch year", Value: col, Err: err}
	}

	col = line[20:32]
	if el.EpochDay, err = requiredFloat(col); err != nil {
		return &FieldError{Line: 1, Field: "epoch day", Value: col, Err: err}
	}
	el.Epoch = epochTime(el.EpochYear, el.EpochDay)

	col = line[33:43]
	if el.MeanMotionDot, err = requiredFloat(col); err != nil {
		return &FieldError{Line: 1, Field: "mean motion dot", Value: col, Err: err}
	}

	col = line[44:52]
	if el.MeanMotionDot2, err = parseExponent(col); err != nil {
		return &FieldError{Line: 1, Field: "mean motion dot2", Value: col, Err: err}
	}

	col = line[53:61]
	if el.Bstar, err = parseExponent(col); err != nil {
		return &FieldError{Line: 1, Field: "bstar", Value: col, Err: err}
	}

	col = line[62:63]
	if el.EphemerisType, err = optionalInt(col); err != nil {
		return &FieldError{Line: 1, Field: "ephemeris type", Value: col, Err: err}
	}

	col = line[64:68]
	if el.ElementSetNo, err = optionalInt(col); err != nil {
		return &FieldError{Line: 1, Field: "element set number", Value: col, Err: err}
	}

	return nil
}

// parseLine2 извлекает данные из Line 2.
//
//	Col  9-16   Inclination (degrees)
//	Col 18-25   RAAN (degrees)
//	Col 27-33   Eccentricity (decimal point assumed)
//	Col 35-42   Argument of Perigee (degrees)
//	Col 44-51   Mean Anomaly (degrees)
//	Col 53-63   Mean Motion (revs/day)
//	Col 64-68   Revolution Number at Epoch
//	Col 69      Checksum
func parseLine2(el *Elements, line string) error {
	var err error

	fields := []struct {
		name string
		col  string
		dst  *float64
	}{
		{"inclination", line[8:16], &el.Inclination},
		{"raan", line[17:25], &el.RAAN},
		{"argument of perigee", line[34:42], &el.ArgOfPerigee},
		{"mean anomaly", line[43:51], &el.MeanAnomaly},
		{"mean motion", line[52:63], &el.MeanMotion},
	}
	for _, f := range fields {
		if *f.dst, err = requiredFloat(f.col); err != nil {
			return &FieldError{Line: 2, Field: f.name, Value: f.col, Err: err}
		}
	}

	// Эксцентриситет записан без десятичной точки.
	col := line[26:33]
	ecc := strings.TrimSpace(col)
	if ecc == "" {
		return &FieldError{Line: 2, Field: "eccentricity", Value: col, Err: errBlank}
	}
	if strings.ContainsAny(ecc, "+-.") {
		return &FieldError{Line: 2, Field: "eccentricity", Value: col, Err: strconv.ErrSyntax}
	}
	if el.Eccentricity, err = strconv.ParseFloat("0."+ecc, 64); err != nil {
		return &FieldError{Line: 2, Field: "eccentricity", Value: col, Err: err}
	}

	col = line[63:68]
	if el.RevNumber, err = optionalInt(col); err != nil {
		return &FieldError{Line: 2, Field: "revolution number", Value: col, Err: err}
	}

	return nil
}

func requiredFloat(col string) (float64, error) {
	s := strings.TrimSpace(col)
	if s == "" {
		return 0, errBlank
	}

	return strconv.ParseFloat(s, 64)
}

func requiredInt(col string) (int, error) {
	s := strings.TrimSpace(col)
	if s == "" {
		return 0, errBlank
	}

	return strconv.Atoi(s)
}

// optionalInt возвращает 0 для пустой колонки.
func optionalInt(col string) (int, error) {
	s := strings.TrimSpace(col)
	if s == "" {
		return 0, nil
	}

	return strconv.Atoi(s)
}

// ValidateChecksum проверяет контрольную сумму строки TLE по алгоритму Modulo-10.
func ValidateChecksum(line string) bool {
	if len(line) < LineLength {
		return false
	}

	checksumIdx := LineLength - 1
	expected := int(line[checksumIdx] - '0')

	return Checksum(line[:checksumIdx]) == expected
}

// Checksum вычисляет контрольную сумму TLE: сумма цифр плюс 1 за каждый минус, mod 10.
func Checksum(line string) int {
	sum := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c >= '0' && c <= '9':
			sum += int(c - '0')
		case c == '-':
			sum++
		}
	}

	return sum % 10
}

// parseNoradID парсит каталожный номер.
// Alpha-5: буква + 4 цифры (A0000-Z9999 = 100000-339999).
func parseNoradID(s string) (int, error) {
	if len(s) == 0 {
		return 0, errBlank
	}

	first := s[0]
	if first >= 'A' && first <= 'Z' {
		prefix, ok := alpha5Map[first]
		if !ok {
			return 0, fmt.Errorf("%w: invalid letter %c (I and O not allowed)", ErrInvalidAlpha5, first)
		}
		if len(s) < 5 {
			return 0, fmt.Errorf("%w: too short", ErrInvalidAlpha5)
		}

		rest, err := strconv.Atoi(s[1:5])
		if err != nil {
			return 0, fmt.Errorf("%w: %w", ErrInvalidAlpha5, err)
		}

		return prefix*10000 + rest, nil
	}

	return strconv.Atoi(s)
}

// parseExponent парсит научную нотацию TLE вида "12345-6" или "-12345-6":
// [знак]NNNNN[+-]E означает ±0.NNNNN × 10^(±E).
func parseExponent(col string) (float64, error) {
	s := strings.TrimSpace(col)
	if s == "" {
		return 0, errBlank
	}

	sign := 1.0
	switch s[0] {
	case '-':
		sign = -1.0
		s = s[1:]
	case '+':
		s = s[1:]
	}

	expPos := strings.LastIndexAny(s, "+-")
	if expPos <= 0 {
		val, err := strconv.ParseFloat("0."+strings.TrimPrefix(s, "."), 64)
		if err != nil {
			return 0, err
		}

		return sign * val, nil
	}

	mantissa, err := strconv.ParseFloat("0."+strings.TrimPrefix(s[:expPos], "."), 64)
	if err != nil {
		return 0, err
	}

	exp, err := strconv.Atoi(s[expPos:])
	if err != nil {
		return 0, err
	}

	return sign * mantissa * math.Pow(10, float64(exp)), nil
}

// fullYear переводит двузначный год: 57-99 = 1957-1999, 00-56 = 2000-2056.
func fullYear(yy int) int {
	if yy >= 57 {
		return 1900 + yy
	}

	return 2000 + yy
}

// epochTime строит время эпохи: 1 января года + (day - 1) суток.
func epochTime(yy int, day float64) time.Time {
	base := time.Date(fullYear(yy), time.January, 1, 0, 0, 0, 0, time.UTC)

	return base.Add(time.Duration((day - 1) * 24 * float64(time.Hour)))
}

// EpochYYDDD возвращает эпоху в исходной записи YYDDD.DDDDDDDD.
func (el *Elements) EpochYYDDD() float64 {
	return 1000.0*float64(el.EpochYear) + el.EpochDay
}

// FullEpochYear возвращает четырёхзначный год эпохи.
func (el *Elements) FullEpochYear() int {
	return fullYear(el.EpochYear)
}

// MeanMotionRadPerMin возвращает среднее движение в радианах в минуту.
func (el *Elements) MeanMotionRadPerMin() float64 {
	return el.MeanMotion * 2 * math.Pi / minPerDay
}

// IsDeepSpace сообщает, относится ли объект к модели дальнего космоса:
// период по восстановленному среднему движению не меньше 225 минут.
func (el *Elements) IsDeepSpace() bool {
	xno := el.MeanMotionRadPerMin()
	if xno <= 0 {
		return false
	}

	a1 := math.Pow(xke/xno, twoThirds)
	cosio := math.Cos(el.Inclination * math.Pi / 180)
	betao2 := 1.0 - el.Eccentricity*el.Eccentricity
	temp := 1.5 * ck2 * (3.0*cosio*cosio - 1.0) / math.Pow(betao2, 1.5)
	del1 := temp / (a1 * a1)
	ao := a1 * (1.0 - del1*(0.5*twoThirds+del1*(1.0+134.0/81.0*del1)))
	delo := temp / (ao * ao)
	xnodp := xno / (1.0 + delo)

	return 2*math.Pi/xnodp/minPerDay >= deepSpacePeriodDays
}

// OrbitalPeriod возвращает орбитальный период в минутах.
func (el *Elements) OrbitalPeriod() float64 {
	if el.MeanMotion == 0 {
		return 0
	}

	return minPerDay / el.MeanMotion
}

// SemiMajorAxis возвращает большую полуось орбиты в километрах: a = (μ / n²)^(1/3).
func (el *Elements) SemiMajorAxis() float64 {
	n := el.MeanMotion * 2 * math.Pi / 86400.0
	if n == 0 {
		return 0
	}

	return math.Pow(earthMu/(n*n), 1.0/3.0)
}

// Apogee возвращает высоту апогея в километрах над поверхностью Земли.
func (el *Elements) Apogee() float64 {
	return el.SemiMajorAxis()*(1+el.Eccentricity) - earthRadiusKm
}

// Perigee возвращает высоту перигея в километрах над поверхностью Земли.
func (el *Elements) Perigee() float64 {
	return el.SemiMajorAxis()*(1-el.Eccentricity) - earthRadiusKm
}

// Age возвращает возраст элементов относительно момента now.
func (el *Elements) Age(now time.Time) time.Duration {
	return now.Sub(el.Epoch)
}

// IsStale возвращает true, если элементы старше maxAgeDays на момент now.
func (el *Elements) IsStale(now time.Time, maxAgeDays float64) bool {
	return el.Age(now).Hours()/24 > maxAgeDays
}

// String возвращает TLE в 3-line формате (или 2-line без имени).
func (el *Elements) String() string {
	if el.Name != "" {
		return fmt.Sprintf("%s\n%s\n%s", el.Name, el.Line1, el.Line2)
	}

	return fmt.Sprintf("%s\n%s", el.Line1, el.Line2)
}
