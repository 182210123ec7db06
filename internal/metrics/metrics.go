// Package metrics содержит счётчики Prometheus для пропагации, поиска
// пролётов и каталога элементов.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Причины неудачного поиска пролёта.
const (
	ReasonNotFound = "not_found"
	ReasonError    = "error"
)

// Collectors — набор метрик одного процесса. Нулевой указатель допустим:
// все методы на nil ничего не делают.
type Collectors struct {
	propagations   prometheus.Counter
	passesFound    *prometheus.CounterVec
	searchFailures *prometheus.CounterVec
	searchDuration prometheus.Histogram
	catalogSize    prometheus.Gauge
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		propagations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "satpredict_propagations_total",
			Help: "Total number of propagated satellite positions.",
		}),
		passesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satpredict_passes_found_total",
				Help: "Total number of predicted passes.",
			},
			[]string{"satellite"},
		),
		searchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satpredict_pass_search_failures_total",
				Help: "Total number of pass searches that found nothing.",
			},
			[]string{"reason"},
		),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "satpredict_pass_search_duration_seconds",
			Help:    "Duration of a single pass search in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "satpredict_catalog_elements",
			Help: "Number of element sets held in the catalog.",
		}),
	}

	reg.MustRegister(
		c.propagations,
		c.passesFound,
		c.searchFailures,
		c.searchDuration,
		c.catalogSize,
	)

	return c
}

// Propagated учитывает одну вычисленную позицию.
func (c *Collectors) Propagated() {
	if c == nil {
		return
	}
	c.propagations.Inc()
}

// PassFound учитывает найденный пролёт спутника satellite.
func (c *Collectors) PassFound(satellite string) {
	if c == nil {
		return
	}
	c.passesFound.WithLabelValues(satellite).Inc()
}

// SearchFailed учитывает неудачный поиск с причиной reason.
func (c *Collectors) SearchFailed(reason string) {
	if c == nil {
		return
	}
	c.searchFailures.WithLabelValues(reason).Inc()
}

// ObserveSearch записывает длительность поиска пролёта.
func (c *Collectors) ObserveSearch(d time.Duration) {
	if c == nil {
		return
	}
	c.searchDuration.Observe(d.Seconds())
}

// SetCatalogSize выставляет число наборов элементов в каталоге.
func (c *Collectors) SetCatalogSize(n int) {
	if c == nil {
		return
	}
	c.catalogSize.Set(float64(n))
}

// Handler возвращает HTTP-обработчик метрик для сборщика g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
