/*
customer.go - Customer crate ledger

PURPOSE:
  Tracks crates lent to customers. A deposit means the customer now holds
  depot crates; a withdrawal means crates came back.

REDUCER:
  There is no snapshot for customers. The balance is a full replay of
  every entry dated <= asOf:
    deposit    -> +quantity
    withdrawal -> -quantity
    reversal   -> ignored (declared type, not yet folded)
  and the result is clamped to zero.

VALIDATION:
  ValidateWithdrawal is advisory. Two withdrawals validated against the
  same balance can both be recorded; nothing locks the ledger.

SEE ALSO:
  - balance.go: Depot balances (snapshot based)
  - errors.go:  InsufficientBalanceError
*/
package depot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CustomerBalance is a replayed customer balance.
type CustomerBalance struct {
	CustomerID CustomerID
	CategoryID CategoryID
	AsOf       Date
	Raw        int
	Balance    int
	Entries    int
	Degraded   bool
}

// WithdrawalCheck is the structured result of ValidateWithdrawal.
type WithdrawalCheck struct {
	Valid          bool
	CurrentBalance int
	Message        string
}

// ReduceLedger folds entries into a raw (unclamped) balance.
func ReduceLedger(entries []LedgerEntry) int {
	balance := 0
	for _, e := range entries {
		switch e.Type {
		case EntryDeposit:
			balance += e.Quantity
		case EntryWithdrawal:
			balance -= e.Quantity
		case EntryReversal:
			// not folded
		}
	}
	return balance
}

// =============================================================================
// CUSTOMER LEDGER
// =============================================================================

type CustomerLedger struct {
	Repo *Repository
	opts Options
}

func NewCustomerLedger(repo *Repository, opts Options) *CustomerLedger {
	return &CustomerLedger{Repo: repo, opts: opts.withDefaults()}
}

func (l *CustomerLedger) resolve(asOf *Date) Date {
	if asOf != nil {
		return *asOf
	}
	return l.opts.Clock.Today()
}

// BalanceAt replays the customer's entries for one category up to asOf
// (today when nil).
func (l *CustomerLedger) BalanceAt(ctx context.Context, customerID CustomerID, categoryID CategoryID, asOf *Date) (CustomerBalance, error) {
	defer l.opts.Metrics.observe(kindCustomer, time.Now())

	at := l.resolve(asOf)
	res := CustomerBalance{CustomerID: customerID, CategoryID: categoryID, AsOf: at}

	entries, err := l.Repo.LedgerEntries(ctx, customerID, categoryID, &at)
	if err != nil {
		if err := l.opts.degrade(err, "customer ledger read failed, balance is zero", customerFields(customerID, categoryID, at)...); err != nil {
			return CustomerBalance{}, err
		}
		res.Degraded = true
		return res, nil
	}

	res.Entries = len(entries)
	res.Raw = ReduceLedger(entries)
	res.Balance = max(0, res.Raw)
	if res.Raw < 0 {
		l.opts.Metrics.clampedBalance(kindCustomer)
		l.opts.Logger.Warn("negative customer balance clamped to zero",
			append(customerFields(customerID, categoryID, at), zap.Int("raw", res.Raw))...)
	}
	return res, nil
}

// Balance is BalanceAt reduced to its number. Any failure yields 0.
func (l *CustomerLedger) Balance(ctx context.Context, customerID CustomerID, categoryID CategoryID, asOf *Date) int {
	res, err := l.BalanceAt(ctx, customerID, categoryID, asOf)
	if err != nil {
		return 0
	}
	return res.Balance
}

// AllBalances returns the balance of every listed category, computed
// concurrently.
func (l *CustomerLedger) AllBalances(ctx context.Context, customerID CustomerID, categories []CategoryID, asOf *Date) (map[CategoryID]int, error) {
	balances := make([]int, len(categories))
	g, ctx := errgroup.WithContext(ctx)
	for i, cat := range categories {
		i, cat := i, cat
		g.Go(func() error {
			res, err := l.BalanceAt(ctx, customerID, cat, asOf)
			if err != nil {
				return err
			}
			balances[i] = res.Balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[CategoryID]int, len(categories))
	for i, cat := range categories {
		out[cat] = balances[i]
	}
	return out, nil
}

// TotalHeld is the customer's crate count across every category, clamped
// once over the combined replay.
func (l *CustomerLedger) TotalHeld(ctx context.Context, customerID CustomerID, asOf *Date) (int, error) {
	at := l.resolve(asOf)
	entries, err := l.Repo.LedgerEntries(ctx, customerID, "", &at)
	if err != nil {
		if err := l.opts.degrade(err, "customer ledger read failed, total is zero", customerFields(customerID, "", at)...); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return max(0, ReduceLedger(entries)), nil
}

// History returns entries newest first: business date, then creation time.
// An empty categoryID lists every category.
func (l *CustomerLedger) History(ctx context.Context, customerID CustomerID, categoryID CategoryID) ([]LedgerEntry, error) {
	entries, err := l.Repo.LedgerEntries(ctx, customerID, categoryID, nil)
	if err != nil {
		if err := l.opts.degrade(err, "customer history read failed", customerFields(customerID, categoryID, Date{})...); err != nil {
			return nil, err
		}
		return []LedgerEntry{}, nil
	}
	return entries, nil
}

// ValidateWithdrawal checks quantity against today's balance. The answer is
// advisory only.
func (l *CustomerLedger) ValidateWithdrawal(ctx context.Context, customerID CustomerID, categoryID CategoryID, quantity int) (WithdrawalCheck, error) {
	res, err := l.BalanceAt(ctx, customerID, categoryID, nil)
	if err != nil {
		return WithdrawalCheck{}, err
	}
	return checkWithdrawal(res.Balance, quantity), nil
}

func checkWithdrawal(current, requested int) WithdrawalCheck {
	if current < requested {
		return WithdrawalCheck{
			Valid:          false,
			CurrentBalance: current,
			Message:        fmt.Sprintf("Insufficient balance. Current: %d, Required: %d", current, requested),
		}
	}
	return WithdrawalCheck{Valid: true, CurrentBalance: current}
}

// Record appends a deposit or withdrawal. The running balance is computed
// against the entries dated on or before the new entry. A backdated
// withdrawal must also leave every later running balance non-negative.
// Reads here are always strict: an entry is never written against a
// degraded balance.
func (l *CustomerLedger) Record(ctx context.Context, e LedgerEntry) (LedgerEntry, error) {
	if e.CustomerID == "" || e.CategoryID == "" {
		return LedgerEntry{}, fmt.Errorf("ledger entry: %w", ErrMissingReference)
	}
	if e.Quantity <= 0 {
		return LedgerEntry{}, fmt.Errorf("ledger entry quantity %d: %w", e.Quantity, ErrInvalidQuantity)
	}
	switch e.Type {
	case EntryDeposit, EntryWithdrawal:
	default:
		return LedgerEntry{}, fmt.Errorf("ledger entry type %q: %w", e.Type, ErrUnsupportedEntryType)
	}

	customer, err := l.Repo.GetCustomer(ctx, e.CustomerID)
	if err != nil {
		return LedgerEntry{}, err
	}
	if !customer.IsActive() {
		return LedgerEntry{}, fmt.Errorf("customer %s: %w", customer.ID, ErrCustomerInactive)
	}
	if !customer.LedgerEnabled {
		return LedgerEntry{}, fmt.Errorf("customer %s: %w", customer.ID, ErrLedgerDisabled)
	}
	if e.DepotID == "" {
		e.DepotID = customer.DepotID
	}
	if e.Date.IsZero() {
		e.Date = l.opts.Clock.Today()
	}

	entries, err := l.Repo.LedgerEntries(ctx, e.CustomerID, e.CategoryID, nil)
	if err != nil {
		return LedgerEntry{}, err
	}
	current, available := withdrawable(entries, e.Date)

	switch e.Type {
	case EntryDeposit:
		e.RunningBalance = current + e.Quantity
	case EntryWithdrawal:
		if available < e.Quantity {
			return LedgerEntry{}, &InsufficientBalanceError{
				CustomerID: e.CustomerID,
				CategoryID: e.CategoryID,
				Available:  available,
				Requested:  e.Quantity,
			}
		}
		e.RunningBalance = current - e.Quantity
	}

	stored, err := l.Repo.InsertLedgerEntry(ctx, e)
	if err != nil {
		return LedgerEntry{}, err
	}
	l.opts.Logger.Info("ledger entry recorded",
		zap.String("customer_id", string(stored.CustomerID)),
		zap.String("category_id", string(stored.CategoryID)),
		zap.String("type", string(stored.Type)),
		zap.Int("quantity", stored.Quantity),
		zap.Int("running_balance", stored.RunningBalance))
	return stored, nil
}

// withdrawable splits newest-first entries at day. current is the clamped
// balance once every entry dated on or before day is applied. available is
// the most that can be withdrawn on day without a later balance going
// negative.
func withdrawable(entries []LedgerEntry, day Date) (current, available int) {
	cut := len(entries)
	for i, e := range entries {
		if !e.Date.After(day) {
			cut = i
			break
		}
	}
	current = max(0, ReduceLedger(entries[cut:]))

	available, running := current, current
	for i := cut - 1; i >= 0; i-- {
		running += ReduceLedger(entries[i : i+1])
		available = min(available, running)
	}
	return current, max(0, available)
}

func customerFields(customerID CustomerID, categoryID CategoryID, at Date) []zap.Field {
	fields := []zap.Field{zap.String("customer_id", string(customerID))}
	if categoryID != "" {
		fields = append(fields, zap.String("category_id", string(categoryID)))
	}
	if !at.IsZero() {
		fields = append(fields, zap.Stringer("as_of", at))
	}
	return fields
}
