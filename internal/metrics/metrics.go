// Package metrics exposes Prometheus collectors for collection runs, dashboard
// refreshes and exports. Every Observe function is a no-op until Init runs.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "boletos_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	pagesTotal       *prometheus.CounterVec
	recordsCollected *prometheus.GaugeVec

	collectionTotal   *prometheus.CounterVec
	collectionLatency *prometheus.HistogramVec

	openTotal   *prometheus.GaugeVec
	openRecords *prometheus.GaugeVec

	refreshTotal   *prometheus.CounterVec
	refreshLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers the collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		pagesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "api_pages_total",
				Help: "Billing API page requests by company and status class",
			},
			[]string{"company", "status"},
		)
		recordsCollected = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "records_collected",
				Help: "Receivables collected in the last run per company",
			},
			[]string{"company"},
		)

		collectionTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collection_total",
				Help: "Company collection runs by result",
			},
			[]string{"company", "result"},
		)
		collectionLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "collection_latency_seconds",
				Help:    "Company collection latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		openTotal = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "open_amount",
				Help: "Open receivables amount per company",
			},
			[]string{"company"},
		)
		openRecords = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "open_records",
				Help: "Open receivables count per company",
			},
			[]string{"company"},
		)

		refreshTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refresh_total",
				Help: "Dashboard refreshes by result",
			},
			[]string{"result"},
		)
		refreshLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "refresh_latency_seconds",
				Help:    "Dashboard refresh latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			pagesTotal,
			recordsCollected,
			collectionTotal,
			collectionLatency,
			openTotal,
			openRecords,
			refreshTotal,
			refreshLatency,
			exportTotal,
			exportLatency,
		)
	})
}

// StatusClass maps an HTTP status to "2xx", "4xx", ... and 0 to "transport_error".
func StatusClass(status int) string {
	if status <= 0 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}

// ObservePage counts one billing API page request.
func ObservePage(company string, status int) {
	if pagesTotal != nil {
		pagesTotal.WithLabelValues(company, StatusClass(status)).Inc()
	}
}

// ObserveCollectedRecords sets the number of records of the last run.
func ObserveCollectedRecords(company string, n int) {
	if recordsCollected != nil {
		recordsCollected.WithLabelValues(company).Set(float64(n))
	}
}

// ObserveCollection records one company run.
func ObserveCollection(company, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if collectionTotal != nil {
		collectionTotal.WithLabelValues(company, result).Inc()
	}
	if collectionLatency != nil {
		collectionLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveOpen sets the open amount and count of a company.
func ObserveOpen(company string, total float64, count int) {
	if openTotal != nil {
		openTotal.WithLabelValues(company).Set(total)
	}
	if openRecords != nil {
		openRecords.WithLabelValues(company).Set(float64(count))
	}
}

// ObserveRefresh records a dashboard refresh.
func ObserveRefresh(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if refreshTotal != nil {
		refreshTotal.WithLabelValues(result).Inc()
	}
	if refreshLatency != nil {
		refreshLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Result maps an error to ResultSuccess or ResultError.
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
