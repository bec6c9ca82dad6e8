package observability

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordOperationOutcomes(t *testing.T) {
	m := Turbo()
	before := testutil.ToFloat64(m.operations.WithLabelValues("metrics-test", "underflow"))

	m.RecordOperation("metrics-test", nil, nil)
	m.RecordOperation("metrics-test", errors.New("x"), func(error) string { return "underflow" })
	m.RecordOperation("metrics-test", errors.New("y"), nil)

	require.Equal(t, before+1, testutil.ToFloat64(m.operations.WithLabelValues("metrics-test", "underflow")))
	require.GreaterOrEqual(t, testutil.ToFloat64(m.operations.WithLabelValues("metrics-test", "success")), 1.0)
	require.GreaterOrEqual(t, testutil.ToFloat64(m.operations.WithLabelValues("metrics-test", "error")), 1.0)
}

func TestGaugesTrackAmounts(t *testing.T) {
	m := Turbo()
	m.SetSafeBoosted("0xsafe", uint256.NewInt(1080))
	require.Equal(t, 1080.0, testutil.ToFloat64(m.safeBoosted.WithLabelValues("0xsafe")))

	m.SetMasterTotal(uint256.NewInt(5))
	require.Equal(t, 5.0, testutil.ToFloat64(m.masterTotal))

	before := testutil.ToFloat64(m.protocolFees.WithLabelValues("0xvault-metrics"))
	m.RecordSlurp("0xvault-metrics", uint256.NewInt(20), uint256.NewInt(80))
	require.Equal(t, before+20, testutil.ToFloat64(m.protocolFees.WithLabelValues("0xvault-metrics")))
}

func TestRecordTransferNormalisesAsset(t *testing.T) {
	b := Bank()
	before := b.Transfers("FEI")
	volume := testutil.ToFloat64(b.volume.WithLabelValues("FEI"))
	b.RecordTransfer(" fei ", uint256.NewInt(250))
	require.Equal(t, before+1, b.Transfers("fei"))
	require.Equal(t, volume+250, testutil.ToFloat64(b.volume.WithLabelValues("FEI")))

	unknown := b.Transfers("")
	b.RecordTransfer("  ", nil)
	require.Equal(t, unknown+1, testutil.ToFloat64(b.transfers.WithLabelValues("UNKNOWN")))
}
