package payments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCentsSatsConversionRoundTrip(t *testing.T) {
	require.EqualValues(t, 400, CentsToSats(1))
	require.EqualValues(t, 1_000_000, CentsToSats(2500))
	require.EqualValues(t, 2500, SatsToCents(1_000_000))

	for _, cents := range []int64{1, 99, 2500, 123456} {
		require.Equal(t, cents, SatsToCents(CentsToSats(cents)))
	}
}

func TestSettlementWalletRoundTrip(t *testing.T) {
	settlement := NewLNDSettlement("localhost", 10009, "", "")
	ctx := context.Background()

	balance, err := settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.Zero(t, balance, "unknown party has an empty wallet, not an error")

	require.NoError(t, settlement.Receive(ctx, "parent-1", 5000))
	balance, err = settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.EqualValues(t, 5000, balance)

	result, err := settlement.Send(ctx, "parent-1", 2000)
	require.NoError(t, err)
	require.NotEmpty(t, result.Preimage)

	balance, err = settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.EqualValues(t, 3000, balance)
}

func TestSettlementSendRejectsOverdraw(t *testing.T) {
	settlement := NewLNDSettlement("localhost", 10009, "", "")
	ctx := context.Background()

	require.NoError(t, settlement.Receive(ctx, "parent-1", 500))
	_, err := settlement.Send(ctx, "parent-1", 2000)
	require.Error(t, err)

	balance, err := settlement.Balance(ctx, "parent-1")
	require.NoError(t, err)
	require.EqualValues(t, 500, balance, "failed send must not touch the wallet")
}

func TestSettlementRejectsNonPositiveAmounts(t *testing.T) {
	settlement := NewLNDSettlement("localhost", 10009, "", "")
	ctx := context.Background()

	require.Error(t, settlement.Receive(ctx, "parent-1", 0))
	_, err := settlement.Send(ctx, "parent-1", -100)
	require.Error(t, err)
}
