package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exports the registry statistics as Prometheus gauges
type Collector struct {
	registry *Registry

	models         *prometheus.Desc
	attributeNames *prometheus.Desc
	declaredTypes  *prometheus.Desc
	liveInstances  *prometheus.Desc
	liveAttributes *prometheus.Desc
}

// NewCollector creates a collector reading r on every scrape
func NewCollector(r *Registry) *Collector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName("modelkit", "registry", name), help, nil, nil)
	}
	return &Collector{
		registry:       r,
		models:         desc("models", "Number of registered model schemas"),
		attributeNames: desc("attribute_names", "Number of distinct declared attribute names"),
		declaredTypes:  desc("declared_types", "Number of model types with attribute schemas"),
		liveInstances:  desc("live_instances", "Number of instances holding attribute state"),
		liveAttributes: desc("live_attributes", "Number of attribute instances held by live instances"),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.models
	ch <- c.attributeNames
	ch <- c.declaredTypes
	ch <- c.liveInstances
	ch <- c.liveAttributes
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	stats := c.registry.GetStats()
	ch <- prometheus.MustNewConstMetric(c.models, prometheus.GaugeValue, float64(stats.Models))
	ch <- prometheus.MustNewConstMetric(c.attributeNames, prometheus.GaugeValue, float64(stats.AttributeNames))
	ch <- prometheus.MustNewConstMetric(c.declaredTypes, prometheus.GaugeValue, float64(stats.DeclaredTypes))
	ch <- prometheus.MustNewConstMetric(c.liveInstances, prometheus.GaugeValue, float64(stats.LiveInstances))
	ch <- prometheus.MustNewConstMetric(c.liveAttributes, prometheus.GaugeValue, float64(stats.LiveAttributes))
}
