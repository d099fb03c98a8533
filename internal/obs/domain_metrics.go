package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DeliveryLookupsTotal counts delivery rate resolutions by outcome.
	DeliveryLookupsTotal *prometheus.CounterVec
	// DeliveryCacheTotal counts quote cache lookups (hit, miss, error).
	DeliveryCacheTotal *prometheus.CounterVec
	// CheckoutSubmissionsTotal counts order submissions by outcome.
	CheckoutSubmissionsTotal *prometheus.CounterVec
	// DataQualityWarningsTotal counts cart lines priced from defective upstream data.
	DataQualityWarningsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DeliveryLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_lookups_total",
			Help:      "Count of delivery rate lookups by outcome.",
		}, []string{"result"})
		DeliveryCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_quote_cache_total",
			Help:      "Count of delivery quote cache lookups by outcome.",
		}, []string{"result"})
		CheckoutSubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submissions_total",
			Help:      "Count of checkout submissions by outcome.",
		}, []string{"result"})
		DataQualityWarningsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_data_quality_warnings_total",
			Help:      "Count of cart lines priced from incomplete upstream data.",
		}, []string{"reason"})

		for _, c := range []**prometheus.CounterVec{&DeliveryLookupsTotal, &DeliveryCacheTotal, &CheckoutSubmissionsTotal, &DataQualityWarningsTotal} {
			target := c
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
	})
}

// CountDeliveryLookup increments the lookup counter when domain metrics are registered.
func CountDeliveryLookup(result string) { inc(DeliveryLookupsTotal, result) }

// CountDeliveryCache increments the quote cache counter.
func CountDeliveryCache(result string) { inc(DeliveryCacheTotal, result) }

// CountCheckoutSubmission increments the submission counter.
func CountCheckoutSubmission(result string) { inc(CheckoutSubmissionsTotal, result) }

// CountDataQualityWarning increments the data quality counter.
func CountDataQualityWarning(reason string) { inc(DataQualityWarningsTotal, reason) }

func inc(vec *prometheus.CounterVec, label string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(label).Inc()
}
