// Package metrics provides application-level Prometheus counters for
// wallet operations, hub traffic, manifest fetches and auth responses.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the application counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	// WalletOps counts session operations by op and result.
	WalletOps *prometheus.CounterVec

	// HubRequests counts hub HTTP requests by op and result.
	HubRequests *prometheus.CounterVec

	// ManifestFetches counts app manifest fetches by result.
	ManifestFetches *prometheus.CounterVec

	// AuthResponses counts built auth responses by result.
	AuthResponses *prometheus.CounterVec

	// HubPersistFailures counts background hub config uploads that failed.
	HubPersistFailures prometheus.Counter
}

// Global is the process-wide metrics instance.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = New()

// New creates a Metrics with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		WalletOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigilid_wallet_operations_total",
			Help: "Total number of wallet session operations",
		}, []string{"op", "result"}),
		HubRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigilid_hub_requests_total",
			Help: "Total number of remote hub requests",
		}, []string{"op", "result"}),
		ManifestFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigilid_manifest_fetches_total",
			Help: "Total number of app manifest fetches",
		}, []string{"result"}),
		AuthResponses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "sigilid_auth_responses_total",
			Help: "Total number of auth responses built",
		}, []string{"result"}),
		HubPersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "sigilid_hub_persist_failures_total",
			Help: "Background hub config uploads that failed",
		}),
	}
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// RecordWalletOp records a session operation.
func (m *Metrics) RecordWalletOp(op string, err error) {
	if m == nil {
		return
	}
	m.WalletOps.WithLabelValues(op, result(err)).Inc()
}

// RecordHubRequest records a hub request.
func (m *Metrics) RecordHubRequest(op string, err error) {
	if m == nil {
		return
	}
	m.HubRequests.WithLabelValues(op, result(err)).Inc()
}

// RecordManifestFetch records a manifest fetch.
func (m *Metrics) RecordManifestFetch(err error) {
	if m == nil {
		return
	}
	m.ManifestFetches.WithLabelValues(result(err)).Inc()
}

// RecordAuthResponse records an auth response build.
func (m *Metrics) RecordAuthResponse(err error) {
	if m == nil {
		return
	}
	m.AuthResponses.WithLabelValues(result(err)).Inc()
}

// RecordPersistFailure records a failed background hub upload.
func (m *Metrics) RecordPersistFailure() {
	if m == nil {
		return
	}
	m.HubPersistFailures.Inc()
}

// Snapshot returns every counter keyed by name and sorted labels,
// e.g. `sigilid_hub_requests_total{op="put",result="error"}`.
func (m *Metrics) Snapshot() (map[string]float64, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	out := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, l := range metric.GetLabel() {
				labels = append(labels, l.GetName()+`="`+l.GetValue()+`"`)
			}
			sort.Strings(labels)

			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			out[key] = metric.GetCounter().GetValue()
		}
	}
	return out, nil
}
