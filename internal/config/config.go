// Package config загружает YAML-конфигурацию: логирование, наземные станции,
// параметры поиска пролётов, метрики и файлы элементов.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/art-injener/satpredict-go/internal/catalog"
	"github.com/art-injener/satpredict-go/internal/observer"
	"github.com/art-injener/satpredict-go/internal/passes"
)

// Значения по умолчанию.
const (
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultHoursAhead = 24

	// DefaultMetricsListen адрес HTTP-сервера метрик.
	DefaultMetricsListen = ":9108"

	// DefaultMaxAgeDays возраст элементов в днях, после которого каталог
	// предупреждает об устаревании.
	DefaultMaxAgeDays = 7.0
)

// ErrInvalidConfig ошибка проверки конфигурации.
var ErrInvalidConfig = errors.New("invalid config")

// Config корневая конфигурация приложения.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Stations  []StationConfig `yaml:"stations"`
	Predictor PredictorConfig `yaml:"predictor"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Elements  ElementsConfig  `yaml:"elements"`
}

// LogConfig настройки логгера.
type LogConfig struct {
	// Level: debug, info, warn, error.
	Level string `yaml:"level"`

	// Format: text или json.
	Format string `yaml:"format"`
}

// StationConfig описание наземной станции.
type StationConfig struct {
	Name      string  `yaml:"name"`
	Latitude  float64 `yaml:"lat"`
	Longitude float64 `yaml:"lon"`
	AltitudeM float64 `yaml:"altitude_m"`

	// HorizonMask минимальные углы места по 36 секторам азимута.
	// Пустая маска означает нулевой горизонт.
	HorizonMask []float64 `yaml:"horizon_mask"`
}

// PredictorConfig параметры поиска пролётов.
type PredictorConfig struct {
	HoursAhead int  `yaml:"hours_ahead"`
	WindBack   bool `yaml:"wind_back"`

	// MinElevationDeg дополнительный порог угла места поверх маски.
	// 0 отключает порог.
	MinElevationDeg float64 `yaml:"min_elevation_deg"`

	// SearchWindow граница поиска одного пролёта. По умолчанию: 24 часа.
	SearchWindow time.Duration `yaml:"search_window"`
}

// MetricsConfig настройки HTTP-эндпоинта /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// ElementsConfig источники наборов элементов.
type ElementsConfig struct {
	Files []string `yaml:"files"`

	// Groups группы CelesTrak, загружаемые по сети после файлов.
	Groups []string `yaml:"groups"`

	// CelestrakURL адрес GP API. По умолчанию: celestrak.org.
	CelestrakURL string `yaml:"celestrak_url"`

	// StrictChecksum включает проверку контрольных сумм строк.
	StrictChecksum bool `yaml:"strict_checksum"`

	// MaxAgeDays возраст элементов в днях до предупреждения.
	// По умолчанию: 7 дней.
	MaxAgeDays float64 `yaml:"max_age_days"`
}

// Default возвращает конфигурацию со значениями по умолчанию.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
		Predictor: PredictorConfig{
			HoursAhead:   DefaultHoursAhead,
			SearchWindow: passes.DefaultSearchWindow,
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsListen,
		},
		Elements: ElementsConfig{
			MaxAgeDays:   DefaultMaxAgeDays,
			CelestrakURL: catalog.DefaultBaseURL,
		},
	}
}

// Load читает и проверяет конфигурацию из файла path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Parse разбирает YAML поверх значений по умолчанию и проверяет результат.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate заполняет незаданные значения и проверяет конфигурацию.
func (c *Config) Validate() error {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Predictor.HoursAhead == 0 {
		c.Predictor.HoursAhead = DefaultHoursAhead
	}
	if c.Predictor.SearchWindow <= 0 {
		c.Predictor.SearchWindow = passes.DefaultSearchWindow
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = DefaultMetricsListen
	}
	if c.Elements.MaxAgeDays <= 0 {
		c.Elements.MaxAgeDays = DefaultMaxAgeDays
	}
	if c.Elements.CelestrakURL == "" {
		c.Elements.CelestrakURL = catalog.DefaultBaseURL
	}

	var problems []string

	if _, err := c.Log.level(); err != nil {
		problems = append(problems, err.Error())
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q: expected text or json", c.Log.Format))
	}

	if c.Predictor.HoursAhead < 0 {
		problems = append(problems, fmt.Sprintf("predictor.hours_ahead %d: must be positive", c.Predictor.HoursAhead))
	}
	if el := c.Predictor.MinElevationDeg; el < -90 || el > 90 {
		problems = append(problems, fmt.Sprintf("predictor.min_elevation_deg %v: out of [-90, 90]", el))
	}

	if u, err := url.Parse(c.Elements.CelestrakURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("elements.celestrak_url %q: expected absolute URL", c.Elements.CelestrakURL))
	}

	seen := make(map[string]bool, len(c.Stations))
	for i, s := range c.Stations {
		if s.Name == "" {
			problems = append(problems, fmt.Sprintf("stations[%d]: name is required", i))
		}
		if seen[strings.ToLower(s.Name)] {
			problems = append(problems, fmt.Sprintf("stations[%d]: duplicate name %q", i, s.Name))
		}
		seen[strings.ToLower(s.Name)] = true

		if _, err := s.GroundStation(); err != nil {
			problems = append(problems, fmt.Sprintf("stations[%d] %q: %v", i, s.Name, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return nil
}

// Station возвращает станцию по имени без учёта регистра.
func (c *Config) Station(name string) (StationConfig, bool) {
	for _, s := range c.Stations {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}

	return StationConfig{}, false
}

// GroundStation строит проверенную станцию.
func (s StationConfig) GroundStation() (*observer.GroundStation, error) {
	return observer.NewGroundStation(s.Name, s.Latitude, s.Longitude, s.AltitudeM, s.HorizonMask)
}

// Options возвращает опции предсказателя, заданные конфигурацией.
func (p PredictorConfig) Options() []passes.Option {
	opts := []passes.Option{passes.WithSearchWindow(p.SearchWindow)}
	if p.MinElevationDeg != 0 {
		opts = append(opts, passes.WithMinElevation(p.MinElevationDeg))
	}

	return opts
}

// CatalogOptions возвращает опции каталога, заданные конфигурацией.
func (e ElementsConfig) CatalogOptions() []catalog.Option {
	opts := []catalog.Option{catalog.WithMaxAgeDays(e.MaxAgeDays)}
	if e.StrictChecksum {
		opts = append(opts, catalog.WithStrictChecksum())
	}

	return opts
}

// NewLogger создаёт логгер с уровнем и форматом из конфигурации.
func (l LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.level()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}

	return level, nil
}
