package observability

import (
	"math/big"
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// TurboMetrics captures Safe activity and protocol fee collection.
type TurboMetrics struct {
	operations   *prometheus.CounterVec
	safeBoosted  *prometheus.GaugeVec
	masterTotal  prometheus.Gauge
	protocolFees *prometheus.CounterVec
	interest     *prometheus.CounterVec
}

var (
	turboMetricsOnce sync.Once
	turboRegistry    *TurboMetrics
)

// Turbo returns the lazily-initialised registry for Safe and master metrics.
func Turbo() *TurboMetrics {
	turboMetricsOnce.Do(func() {
		turboRegistry = &TurboMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "turbo",
				Subsystem: "safe",
				Name:      "operations_total",
				Help:      "Safe operations segmented by operation and outcome.",
			}, []string{"operation", "outcome"}),
			safeBoosted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "turbo",
				Subsystem: "safe",
				Name:      "boosted",
				Help:      "Funding asset currently deployed by each Safe.",
			}, []string{"safe"}),
			masterTotal: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "turbo",
				Subsystem: "master",
				Name:      "total_boosted",
				Help:      "Funding asset deployed across every Safe.",
			}),
			protocolFees: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "turbo",
				Subsystem: "safe",
				Name:      "protocol_fees_total",
				Help:      "Protocol fees realised by slurps segmented by vault.",
			}, []string{"vault"}),
			interest: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "turbo",
				Subsystem: "safe",
				Name:      "interest_retained_total",
				Help:      "Interest re-based into Safe principal segmented by vault.",
			}, []string{"vault"}),
		}
		prometheus.MustRegister(
			turboRegistry.operations,
			turboRegistry.safeBoosted,
			turboRegistry.masterTotal,
			turboRegistry.protocolFees,
			turboRegistry.interest,
		)
	})
	return turboRegistry
}

// ErrorClassifier maps an operation error onto a stable outcome label.
type ErrorClassifier func(error) string

// RecordOperation counts an operation. A nil error is recorded as "success";
// otherwise classify picks the label, falling back to "error".
func (m *TurboMetrics) RecordOperation(operation string, err error, classify ErrorClassifier) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
		if classify != nil {
			if label := classify(err); label != "" {
				outcome = label
			}
		}
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

// SetSafeBoosted records the current deployment of safe.
func (m *TurboMetrics) SetSafeBoosted(safe string, total *uint256.Int) {
	if m == nil {
		return
	}
	m.safeBoosted.WithLabelValues(safe).Set(amountFloat(total))
}

// SetMasterTotal records the aggregate deployment across every Safe.
func (m *TurboMetrics) SetMasterTotal(total *uint256.Int) {
	if m == nil {
		return
	}
	m.masterTotal.Set(amountFloat(total))
}

// RecordSlurp adds realised fees and retained interest for vault.
func (m *TurboMetrics) RecordSlurp(vault string, fee, retained *uint256.Int) {
	if m == nil {
		return
	}
	m.protocolFees.WithLabelValues(vault).Add(amountFloat(fee))
	m.interest.WithLabelValues(vault).Add(amountFloat(retained))
}

func amountFloat(v *uint256.Int) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}
