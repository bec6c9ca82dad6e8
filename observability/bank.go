package observability

import (
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// BankMetrics tracks committed ledger movements per asset.
type BankMetrics struct {
	transfers *prometheus.CounterVec
	volume    *prometheus.CounterVec
}

var (
	bankMetricsOnce sync.Once
	bankRegistry    *BankMetrics
)

// Bank returns the lazily-initialised registry for ledger transfers.
func Bank() *BankMetrics {
	bankMetricsOnce.Do(func() {
		bankRegistry = &BankMetrics{
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "turbo",
				Subsystem: "bank",
				Name:      "transfers_total",
				Help:      "Committed transfers segmented by asset symbol.",
			}, []string{"asset"}),
			volume: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "turbo",
				Subsystem: "bank",
				Name:      "transfer_volume_total",
				Help:      "Base units moved by committed transfers segmented by asset symbol.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(bankRegistry.transfers, bankRegistry.volume)
	})
	return bankRegistry
}

// RecordTransfer counts one committed transfer of amount units of symbol.
func (m *BankMetrics) RecordTransfer(symbol string, amount *uint256.Int) {
	if m == nil {
		return
	}
	label := assetLabel(symbol)
	m.transfers.WithLabelValues(label).Inc()
	m.volume.WithLabelValues(label).Add(amountFloat(amount))
}

// Transfers returns the committed transfer count for symbol.
func (m *BankMetrics) Transfers(symbol string) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.transfers.WithLabelValues(assetLabel(symbol)))
}

func assetLabel(symbol string) string {
	label := strings.ToUpper(strings.TrimSpace(symbol))
	if label == "" {
		return "UNKNOWN"
	}
	return label
}

func counterValue(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}
