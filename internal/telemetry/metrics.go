package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/localtls"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Issuance metrics
	CertificatesIssuedTotal metric.Int64Counter
	CertificatesLoadedTotal metric.Int64Counter
	RotationsTotal          metric.Int64Counter
	KeyGenerationDuration   metric.Float64Histogram

	// Store metrics
	StoreWriteErrorsTotal  metric.Int64Counter
	StoreDeleteErrorsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics creates all metric instruments from the given provider.
func NewMetrics(provider metric.MeterProvider) *Metrics {
	meter := provider.Meter(meterName)

	m := &Metrics{}

	m.CertificatesIssuedTotal, _ = meter.Int64Counter(
		"localtls.certificates.issued.total",
		metric.WithDescription("Total number of certificates issued"),
		metric.WithUnit("{certificate}"),
	)

	m.CertificatesLoadedTotal, _ = meter.Int64Counter(
		"localtls.certificates.loaded.total",
		metric.WithDescription("Total number of valid certificates loaded from disk"),
		metric.WithUnit("{certificate}"),
	)

	m.RotationsTotal, _ = meter.Int64Counter(
		"localtls.certificates.rotations.total",
		metric.WithDescription("Total number of certificates replaced before reissue"),
		metric.WithUnit("{certificate}"),
	)

	m.KeyGenerationDuration, _ = meter.Float64Histogram(
		"localtls.keys.generation.duration",
		metric.WithDescription("Duration of RSA key generation"),
		metric.WithUnit("ms"),
	)

	m.StoreWriteErrorsTotal, _ = meter.Int64Counter(
		"localtls.store.write.errors.total",
		metric.WithDescription("Total number of failed key pair writes"),
		metric.WithUnit("{error}"),
	)

	m.StoreDeleteErrorsTotal, _ = meter.Int64Counter(
		"localtls.store.delete.errors.total",
		metric.WithDescription("Total number of failed key pair deletions"),
		metric.WithUnit("{error}"),
	)

	return m
}
