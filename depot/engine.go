package depot

// Engine wires every component over one store.
type Engine struct {
	Repo      *Repository
	Balances  *BalanceCalculator
	Activity  *ActivityAggregator
	Customers *CustomerLedger
	Closings  *ClosingManager
	Movements *MovementRecorder
	Reports   *Reporter
	Clock     Clock
}

// NewEngine builds an Engine. The store is the only shared mutable
// resource; the engine adds no locking of its own.
func NewEngine(store Store, opts Options) *Engine {
	opts = opts.withDefaults()
	repo := NewRepository(store)
	balances := NewBalanceCalculator(repo, opts)
	activity := NewActivityAggregator(repo, opts)
	closings := NewClosingManager(repo, balances, opts)
	return &Engine{
		Repo:      repo,
		Balances:  balances,
		Activity:  activity,
		Customers: NewCustomerLedger(repo, opts),
		Closings:  closings,
		Movements: NewMovementRecorder(repo, opts),
		Reports:   NewReporter(balances, activity, closings, opts),
		Clock:     opts.Clock,
	}
}

// CategoryIDs lists the ids of categories in order.
func CategoryIDs(categories []CrateCategory) []CategoryID {
	ids := make([]CategoryID, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	return ids
}
