package depot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/crate-ledger/depot"
)

func TestRecordMovement_Validation(t *testing.T) {
	f := newFixture(t, 1)
	tests := []struct {
		name string
		m    depot.MovementEvent
		want error
	}{
		{"bad direction", depot.MovementEvent{Direction: "sideways", DepotID: depotA, CategoryID: crates, Quantity: 1}, depot.ErrInvalidDirection},
		{"no depot", depot.MovementEvent{Direction: depot.Incoming, CategoryID: crates, Quantity: 1}, depot.ErrMissingReference},
		{"zero quantity", depot.MovementEvent{Direction: depot.Outgoing, DepotID: depotA, CategoryID: crates}, depot.ErrInvalidQuantity},
		{"negative quantity", depot.MovementEvent{Direction: depot.Incoming, DepotID: depotA, CategoryID: crates, Quantity: -4}, depot.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Movements.RecordMovement(context.Background(), tt.m)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, depot.IsClientError(err))
		})
	}
}

func TestRecordMovement_DefaultsToToday(t *testing.T) {
	f := newFixture(t, 4)
	m, err := f.engine.Movements.RecordMovement(context.Background(), depot.MovementEvent{
		Direction: depot.Outgoing, DepotID: depotA, CategoryID: crates, Quantity: 2, DestinationInfo: "Market",
	})
	require.NoError(t, err)
	assert.True(t, m.Date.Equal(day(4)))
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Market", m.DestinationInfo)
}

func TestRecordTransfer_Validation(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.engine.Movements.RecordTransfer(context.Background(), depot.TransferEvent{
		FromDepotID: depotA, ToDepotID: depotA, CategoryID: crates, Quantity: 1,
	})
	assert.ErrorIs(t, err, depot.ErrSameDepot)

	_, err = f.engine.Movements.RecordTransfer(context.Background(), depot.TransferEvent{
		FromDepotID: depotA, ToDepotID: depotB, CategoryID: crates,
	})
	assert.ErrorIs(t, err, depot.ErrInvalidQuantity)
}

func TestDeleteMovement_RemovesFromBalance(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.in(t, depotA, crates, day(1), 10)
	m, err := f.engine.Movements.RecordMovement(ctx, depot.MovementEvent{
		Direction: depot.Incoming, DepotID: depotA, CategoryID: crates, Date: day(1), Quantity: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 15, f.balance(t, depotA, crates, day(1)).Balance)

	require.NoError(t, f.engine.Movements.DeleteMovement(ctx, depot.Incoming, m.ID))
	assert.Equal(t, 10, f.balance(t, depotA, crates, day(1)).Balance)

	err = f.engine.Movements.DeleteMovement(ctx, depot.Incoming, m.ID)
	assert.True(t, depot.IsNotFound(err))
}

func TestDeleteTransfer_RestoresBothDepots(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()
	f.in(t, depotA, crates, day(1), 10)
	tr, err := f.engine.Movements.RecordTransfer(ctx, depot.TransferEvent{
		FromDepotID: depotA, ToDepotID: depotB, CategoryID: crates, Date: day(1), Quantity: 6,
	})
	require.NoError(t, err)

	require.NoError(t, f.engine.Movements.DeleteTransfer(ctx, tr.ID))
	assert.Equal(t, 10, f.balance(t, depotA, crates, day(1)).Balance)
	assert.Equal(t, 0, f.balance(t, depotB, crates, day(1)).Balance)
}

func TestListMovementsAndTransfers_NewestFirst(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.out(t, depotA, crates, day(1), 1)
	f.out(t, depotA, crates, day(3), 3)
	f.out(t, depotA, crates, day(2), 2)
	f.out(t, depotB, crates, day(2), 50)
	f.transfer(t, depotA, depotB, crates, day(1), 7)
	f.transfer(t, depotB, depotA, crates, day(2), 8)

	out, err := f.engine.Repo.ListMovements(ctx, depot.Outgoing, depotA, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].Quantity)
	assert.Equal(t, 2, out[1].Quantity)

	transfers, err := f.engine.Repo.ListTransfers(ctx, depotA, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 2)
	assert.Equal(t, 8, transfers[0].Quantity)
	assert.Equal(t, 7, transfers[1].Quantity)
}
