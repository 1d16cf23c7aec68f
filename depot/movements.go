package depot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// MovementRecorder validates and stores crate movements. Deletion is
// immediate and leaves no reversal record.
type MovementRecorder struct {
	Repo *Repository
	opts Options
}

func NewMovementRecorder(repo *Repository, opts Options) *MovementRecorder {
	return &MovementRecorder{Repo: repo, opts: opts.withDefaults()}
}

// RecordMovement stores an incoming or outgoing event. A zero Date means today.
func (r *MovementRecorder) RecordMovement(ctx context.Context, m MovementEvent) (MovementEvent, error) {
	if m.Direction != Incoming && m.Direction != Outgoing {
		return MovementEvent{}, fmt.Errorf("movement direction %q: %w", m.Direction, ErrInvalidDirection)
	}
	if m.DepotID == "" || m.CategoryID == "" {
		return MovementEvent{}, fmt.Errorf("movement: %w", ErrMissingReference)
	}
	if m.Quantity <= 0 {
		return MovementEvent{}, fmt.Errorf("movement quantity %d: %w", m.Quantity, ErrInvalidQuantity)
	}
	if m.Date.IsZero() {
		m.Date = r.opts.Clock.Today()
	}

	stored, err := r.Repo.InsertMovement(ctx, m)
	if err != nil {
		return MovementEvent{}, err
	}
	r.opts.Logger.Info("movement recorded",
		zap.String("id", string(stored.ID)),
		zap.String("direction", string(stored.Direction)),
		zap.String("depot_id", string(stored.DepotID)),
		zap.Int("quantity", stored.Quantity),
		zap.Stringer("date", stored.Date))
	return stored, nil
}

// RecordTransfer stores one transfer record covering both depots.
func (r *MovementRecorder) RecordTransfer(ctx context.Context, t TransferEvent) (TransferEvent, error) {
	if t.FromDepotID == "" || t.ToDepotID == "" || t.CategoryID == "" {
		return TransferEvent{}, fmt.Errorf("transfer: %w", ErrMissingReference)
	}
	if t.FromDepotID == t.ToDepotID {
		return TransferEvent{}, fmt.Errorf("transfer %s: %w", t.FromDepotID, ErrSameDepot)
	}
	if t.Quantity <= 0 {
		return TransferEvent{}, fmt.Errorf("transfer quantity %d: %w", t.Quantity, ErrInvalidQuantity)
	}
	if t.Date.IsZero() {
		t.Date = r.opts.Clock.Today()
	}

	stored, err := r.Repo.InsertTransfer(ctx, t)
	if err != nil {
		return TransferEvent{}, err
	}
	r.opts.Logger.Info("transfer recorded",
		zap.String("id", string(stored.ID)),
		zap.String("from_depot_id", string(stored.FromDepotID)),
		zap.String("to_depot_id", string(stored.ToDepotID)),
		zap.Int("quantity", stored.Quantity),
		zap.Stringer("date", stored.Date))
	return stored, nil
}

func (r *MovementRecorder) DeleteMovement(ctx context.Context, d Direction, id EventID) error {
	if err := r.Repo.DeleteMovement(ctx, d, id); err != nil {
		return err
	}
	r.opts.Logger.Info("movement deleted", zap.String("id", string(id)), zap.String("direction", string(d)))
	return nil
}

func (r *MovementRecorder) DeleteTransfer(ctx context.Context, id EventID) error {
	if err := r.Repo.DeleteTransfer(ctx, id); err != nil {
		return err
	}
	r.opts.Logger.Info("transfer deleted", zap.String("id", string(id)))
	return nil
}
