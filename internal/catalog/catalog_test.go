package catalog

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/art-injener/satpredict-go/internal/metrics"
	"github.com/art-injener/satpredict-go/internal/tle"
)

const (
	issLine1   = "1 25544U 98067A   26045.79523799  .00007779  00000+0  15107-3 0  9994"
	issLine2   = "2 25544  51.6315 185.5279 0011056  98.8248 261.3993 15.48601910552787"
	ao40Line1  = "1 26609U 00072B   19022.38481103 -.00000134  00000-0  00000+0 0  9992"
	ao40Line2  = "2 26609   7.4088  95.8526 7982264 349.5632   1.0214  1.25587570 83680"
	tirosLine1 = "1 11060U 78096A   19022.78581026 +.00000003 +00000-0 +22800-4 0  9998"
	tirosLine2 = "2 11060 098.8131 081.3601 0011632 108.7639 251.4799 14.18221917295601"
)

// sampleFile: две 3-строчные записи, одна 2-строчная и одиночная Line2.
var sampleFile = strings.Join([]string{
	"ISS (ZARYA)", issLine1, issLine2,
	"",
	"AO-40", ao40Line1, ao40Line2,
	tirosLine1, tirosLine2,
	"2 99999  51.6315 185.5279 0011056  98.8248 261.3993 15.48601910552787",
}, "\n")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadedCatalog(t *testing.T, opts ...Option) *Catalog {
	t.Helper()

	c := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	res, err := c.Load(strings.NewReader(sampleFile), "sample.txt")
	require.NoError(t, err)
	require.Equal(t, 3, res.Loaded)

	return c
}

func TestCatalog_Load(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := New(WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	res, err := c.Load(strings.NewReader(sampleFile), "sample.txt")
	require.NoError(t, err)

	assert.Equal(t, LoadResult{Source: "sample.txt", Loaded: 3, Rejected: 1}, res)
	assert.Equal(t, 3, c.Count())
	assert.Contains(t, buf.String(), "rejected element set")

	el, ok := c.Get(25544)
	require.True(t, ok)
	assert.Equal(t, "ISS (ZARYA)", el.Name)

	el, ok = c.Get(11060)
	require.True(t, ok)
	assert.Empty(t, el.Name)

	_, ok = c.Get(99999)
	assert.False(t, ok)
}

func TestCatalog_StrictChecksum(t *testing.T) {
	t.Parallel()

	bad := issLine1[:68] + "5"
	input := strings.Join([]string{"ISS (ZARYA)", bad, issLine2}, "\n")

	lenient := New(WithLogger(quietLogger()))
	res, err := lenient.Load(strings.NewReader(input), "iss.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Loaded)

	strict := New(WithLogger(quietLogger()), WithStrictChecksum())
	res, err = strict.Load(strings.NewReader(input), "iss.txt")
	require.NoError(t, err)
	assert.Zero(t, res.Loaded)
	assert.Equal(t, 1, res.Rejected)
	assert.Zero(t, strict.Count())
}

func TestCatalog_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)

	el, ok := c.Get(25544)
	require.True(t, ok)
	el.Name = "changed"

	again, _ := c.Get(25544)
	assert.Equal(t, "ISS (ZARYA)", again.Name)
}

func TestCatalog_FindByName(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)

	tests := []struct {
		query string
		want  []int
	}{
		{"ISS (ZARYA)", []int{25544}},
		{"iss (zarya)", []int{25544}},
		{"  AO-40 ", []int{26609}},
		{"zar", []int{25544}},
		{"a", []int{25544, 26609}},
		{"unknown", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()

			var ids []int
			for _, el := range c.FindByName(tt.query) {
				ids = append(ids, el.NoradID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestCatalog_AddReplaces(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)

	el, err := tle.Parse([]string{"ZARYA", issLine1, issLine2})
	require.NoError(t, err)

	c.Add(el, "manual")
	c.Add(nil, "manual")

	assert.Equal(t, 3, c.Count())
	assert.Empty(t, c.FindByName("iss (zarya)"))
	require.Len(t, c.FindByName("zarya"), 1)
	assert.Equal(t, []string{"manual", "sample.txt"}, c.Sources())
	require.Len(t, c.BySource("manual"), 1)
	assert.Len(t, c.BySource("sample.txt"), 3)
	assert.Nil(t, c.BySource("missing"))
}

func TestCatalog_AllSorted(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)

	var ids []int
	for _, el := range c.All() {
		ids = append(ids, el.NoradID)
	}
	assert.Equal(t, []int{11060, 25544, 26609}, ids)
}

func TestCatalog_StaleCount(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)

	// ISS на 2026-02-14, остальные на январь 2019.
	assert.Equal(t, 2, c.StaleCount(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 3, c.StaleCount(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))

	wide := loadedCatalog(t, WithMaxAgeDays(365*10))
	assert.Zero(t, wide.StaleCount(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)))
}

func TestCatalog_LoadFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := filepath.Join(dir, "amateur.txt")
	require.NoError(t, os.WriteFile(good, []byte(sampleFile), 0o600))

	c := New(WithLogger(quietLogger()))

	res, err := c.LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, "amateur.txt", res.Source)
	assert.Equal(t, 3, res.Loaded)

	_, err = c.LoadFile(filepath.Join(dir, "missing.txt"))
	require.ErrorIs(t, err, ErrLoadFailed)
	require.ErrorIs(t, err, os.ErrNotExist)

	err = c.LoadFiles([]string{good, filepath.Join(dir, "missing.txt")})
	require.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 3, c.Count())
	assert.Equal(t, []string{"amateur.txt"}, c.Sources())
}

func TestCatalog_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := loadedCatalog(t, WithMetrics(metrics.New(reg)))

	assert.Equal(t, 3.0, gaugeValue(t, reg, "satpredict_catalog_elements"))

	el, err := tle.Parse([]string{"NEW", "1 25545" + issLine1[7:], "2 25545" + issLine2[7:]})
	require.NoError(t, err)
	c.Add(el, "manual")

	assert.Equal(t, 4.0, gaugeValue(t, reg, "satpredict_catalog_elements"))
}

func TestCatalog_Concurrent(t *testing.T) {
	t.Parallel()

	c := loadedCatalog(t)
	el, err := tle.Parse([]string{"ISS (ZARYA)", issLine1, issLine2})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Add(el, "sample.txt")
			}
		}()
		go func() {
			defer wg.Done()
			for range 100 {
				_, _ = c.Get(25544)
				_ = c.FindByName("iss")
				_ = c.All()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, c.Count())
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())

			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)

	return 0
}
