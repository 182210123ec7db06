// Package catalog хранит наборы элементов в памяти с индексами по номеру
// NORAD, имени и источнику.
package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/art-injener/satpredict-go/internal/metrics"
	"github.com/art-injener/satpredict-go/internal/tle"
)

// DefaultMaxAgeDays возраст элементов в днях до предупреждения об устаревании.
const DefaultMaxAgeDays = 7.0

// ErrLoadFailed ошибка чтения источника элементов.
var ErrLoadFailed = errors.New("failed to load element sets")

// Catalog потокобезопасное хранилище наборов элементов.
type Catalog struct {
	mu sync.RWMutex

	// NORAD ID -> элементы
	byID map[int]*tle.Elements

	// источник (имя файла) -> []NORAD ID
	bySource map[string][]int

	// имя в нижнем регистре -> []NORAD ID
	byName map[string][]int

	logger     *slog.Logger
	metrics    *metrics.Collectors
	parseOpts  []tle.ParseOption
	maxAgeDays float64
}

// LoadResult итог загрузки одного источника.
type LoadResult struct {
	Source   string
	Loaded   int
	Rejected int
}

// Option функция настройки Catalog.
type Option func(*Catalog)

// WithLogger логгер для Catalog.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithMetrics подключает метрику размера каталога.
func WithMetrics(m *metrics.Collectors) Option {
	return func(c *Catalog) {
		c.metrics = m
	}
}

// WithStrictChecksum отклоняет записи с неверной контрольной суммой.
func WithStrictChecksum() Option {
	return func(c *Catalog) {
		c.parseOpts = append(c.parseOpts, tle.WithStrictChecksum())
	}
}

// WithMaxAgeDays задаёт возраст, после которого элементы считаются устаревшими.
func WithMaxAgeDays(days float64) Option {
	return func(c *Catalog) {
		c.maxAgeDays = days
	}
}

// New создаёт пустой каталог.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		byID:       make(map[int]*tle.Elements),
		bySource:   make(map[string][]int),
		byName:     make(map[string][]int),
		logger:     slog.Default(),
		maxAgeDays: DefaultMaxAgeDays,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.maxAgeDays <= 0 {
		c.maxAgeDays = DefaultMaxAgeDays
	}

	return c
}

// Add добавляет набор элементов. Запись с тем же NORAD ID заменяется.
func (c *Catalog) Add(el *tle.Elements, source string) {
	if el == nil {
		return
	}

	c.mu.Lock()
	c.addLocked(el, source)
	n := len(c.byID)
	c.mu.Unlock()

	c.metrics.SetCatalogSize(n)
}

// Load читает записи из r. Ошибочные записи пропускаются с предупреждением
// и учитываются в Rejected; ошибка возвращается только при сбое чтения.
func (c *Catalog) Load(r io.Reader, source string) (LoadResult, error) {
	res := LoadResult{Source: source}

	var parsed []*tle.Elements

	err := tle.Scan(r, func(el *tle.Elements, err error) error {
		if err != nil {
			res.Rejected++
			c.logger.Warn("rejected element set",
				"source", source,
				"error", err,
			)

			return nil
		}
		parsed = append(parsed, el)

		return nil
	}, c.parseOpts...)
	if err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
	}

	c.mu.Lock()
	for _, el := range parsed {
		c.addLocked(el, source)
	}
	n := len(c.byID)
	c.mu.Unlock()

	c.metrics.SetCatalogSize(n)
	res.Loaded = len(parsed)

	return res, nil
}

// LoadFile загружает записи из файла path; источником служит имя файла.
func (c *Catalog) LoadFile(path string) (LoadResult, error) {
	source := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		return LoadResult{Source: source}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	defer f.Close()

	res, err := c.Load(f, source)
	if err != nil {
		return res, err
	}

	c.logger.Info("loaded element sets",
		"source", source,
		"count", res.Loaded,
		"rejected", res.Rejected,
		"stale", c.StaleCount(time.Now()),
	)

	return res, nil
}

// LoadFiles загружает все файлы. Неудачный файл не прерывает загрузку
// остальных; ошибки объединяются.
func (c *Catalog) LoadFiles(paths []string) error {
	var errs []error

	for _, p := range paths {
		if _, err := c.LoadFile(p); err != nil {
			c.logger.Warn("failed to load element file", "path", p, "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Get возвращает копию элементов по NORAD ID.
func (c *Catalog) Get(noradID int) (*tle.Elements, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	el, ok := c.byID[noradID]
	if !ok {
		return nil, false
	}
	cp := *el

	return &cp, true
}

// FindByName ищет по имени без учёта регистра: сначала точное совпадение,
// иначе вхождение подстроки. Результат упорядочен по NORAD ID.
func (c *Catalog) FindByName(name string) []*tle.Elements {
	c.mu.RLock()
	defer c.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}

	if ids, ok := c.byName[key]; ok {
		return c.collectLocked(ids)
	}

	var ids []int
	for n, nameIDs := range c.byName {
		if strings.Contains(n, key) {
			ids = append(ids, nameIDs...)
		}
	}

	return c.collectLocked(ids)
}

// BySource возвращает элементы, загруженные из источника source.
func (c *Catalog) BySource(source string) []*tle.Elements {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.collectLocked(c.bySource[source])
}

// Sources возвращает имена источников в алфавитном порядке.
func (c *Catalog) Sources() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.bySource))
}

// All возвращает все элементы, упорядоченные по NORAD ID.
func (c *Catalog) All() []*tle.Elements {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.collectLocked(slices.Collect(maps.Keys(c.byID)))
}

// Count возвращает число наборов элементов.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.byID)
}

// StaleCount возвращает число устаревших на момент now наборов.
func (c *Catalog) StaleCount(now time.Time) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, el := range c.byID {
		if el.IsStale(now, c.maxAgeDays) {
			n++
		}
	}

	return n
}

func (c *Catalog) addLocked(el *tle.Elements, source string) {
	if old, ok := c.byID[el.NoradID]; ok && old.Name != "" && !strings.EqualFold(old.Name, el.Name) {
		c.removeFromIndex(c.byName, strings.ToLower(old.Name), el.NoradID)
	}

	cp := *el
	c.byID[el.NoradID] = &cp

	if source != "" {
		c.addToIndex(c.bySource, source, el.NoradID)
	}
	if el.Name != "" {
		c.addToIndex(c.byName, strings.ToLower(el.Name), el.NoradID)
	}
}

// collectLocked возвращает копии элементов по списку ID без повторов.
func (c *Catalog) collectLocked(ids []int) []*tle.Elements {
	if len(ids) == 0 {
		return nil
	}

	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	out := make([]*tle.Elements, 0, len(ids))
	for _, id := range ids {
		if el, ok := c.byID[id]; ok {
			cp := *el
			out = append(out, &cp)
		}
	}

	return out
}

func (c *Catalog) addToIndex(index map[string][]int, key string, id int) {
	if slices.Contains(index[key], id) {
		return
	}
	index[key] = append(index[key], id)
}

func (c *Catalog) removeFromIndex(index map[string][]int, key string, id int) {
	ids := slices.DeleteFunc(index[key], func(v int) bool { return v == id })
	if len(ids) == 0 {
		delete(index, key)

		return
	}
	index[key] = ids
}
