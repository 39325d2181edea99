package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"objcache/internal/cache"
)

// StatsSource exposes per-tenant cache statistics.
// *registry.Registry satisfies it for any payload type.
type StatsSource interface {
	Model() string
	Tenants() []string
	Metadata(tenant string) (cache.Metadata, bool)
}

// RegistryCollector reports the size of every tenant cache on each scrape.
type RegistryCollector struct {
	source StatsSource

	entries     *prometheus.Desc
	volume      *prometheus.Desc
	lastUpdated *prometheus.Desc
	tenants     *prometheus.Desc
}

// NewRegistryCollector creates a collector reading from source.
func NewRegistryCollector(source StatsSource) *RegistryCollector {
	labels := []string{"model", "tenant"}
	return &RegistryCollector{
		source: source,
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Number of entries in the tenant cache",
			labels, nil,
		),
		volume: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "volume_bytes"),
			"Summed size of the entries in the tenant cache",
			labels, nil,
		),
		lastUpdated: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "last_updated_timestamp_seconds"),
			"Time of the last mutation of the tenant cache",
			labels, nil,
		),
		tenants: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "registry", "tenants"),
			"Number of registered tenant caches",
			[]string{"model"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *RegistryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.volume
	ch <- c.lastUpdated
	ch <- c.tenants
}

// Collect implements prometheus.Collector.
func (c *RegistryCollector) Collect(ch chan<- prometheus.Metric) {
	model := c.source.Model()
	tenants := c.source.Tenants()
	var registered int
	for _, tenant := range tenants {
		meta, ok := c.source.Metadata(tenant)
		if !ok {
			// removed between listing and reading
			continue
		}
		registered++
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(meta.Count), model, tenant)
		ch <- prometheus.MustNewConstMetric(c.volume, prometheus.GaugeValue, float64(meta.Volume), model, tenant)
		ch <- prometheus.MustNewConstMetric(c.lastUpdated, prometheus.GaugeValue, float64(meta.LastUpdated)/1000, model, tenant)
	}
	ch <- prometheus.MustNewConstMetric(c.tenants, prometheus.GaugeValue, float64(registered), model)
}
