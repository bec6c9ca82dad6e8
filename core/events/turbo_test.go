package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestVaultSlurpedEventAttributes(t *testing.T) {
	evt := VaultSlurped{
		Safe:           common.HexToAddress("0x01"),
		Vault:          common.HexToAddress("0x02"),
		InterestEarned: uint256.NewInt(100),
		ProtocolFee:    uint256.NewInt(20),
		SafeRetained:   uint256.NewInt(80),
	}
	flat := evt.Event()
	require.Equal(t, TypeVaultSlurped, flat.Type)
	require.Equal(t, "100", flat.Attributes["interest"])
	require.Equal(t, "20", flat.Attributes["protocolFee"])
	require.Equal(t, "80", flat.Attributes["safeRetained"])
	require.Equal(t, common.HexToAddress("0x02").Hex(), flat.Attributes["vault"])
}

func TestLessenedEventNilRepaidRendersZero(t *testing.T) {
	flat := VaultLessened{Amount: uint256.NewInt(5)}.Event()
	require.Equal(t, "0", flat.Attributes["repaid"])
	require.Equal(t, "5", flat.Attributes["amount"])
}

func TestCollateralMovedDirection(t *testing.T) {
	require.Equal(t, TypeCollateralDeposited, CollateralMoved{Deposit: true}.EventType())
	require.Equal(t, TypeCollateralWithdrawn, CollateralMoved{}.EventType())
}

func TestFeeUpdatedOmitsEmptyTarget(t *testing.T) {
	flat := FeeUpdated{Scope: "default", Fee: uint256.NewInt(1)}.Event()
	_, ok := flat.Attributes["target"]
	require.False(t, ok)
	require.Equal(t, []string{"fee", "scope"}, flat.Keys())
}

func TestRecorderFiltersAndFlattens(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(SafeClaimed{Amount: uint256.NewInt(1)})
	rec.Emit(SafeSwept{Amount: uint256.NewInt(2)})
	rec.Emit(nil)

	require.Len(t, rec.Events(), 2)
	require.Len(t, rec.OfType(TypeSafeSwept), 1)
	flat := rec.Flatten()
	require.Len(t, flat, 2)
	require.Equal(t, TypeSafeClaimed, flat[0].Type)

	rec.Reset()
	require.Empty(t, rec.Events())
}
