package schedule

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/detailing-booking/pkg/logging"
)

// SyncOptions tunes the Manager.  Zero values take the defaults.
type SyncOptions struct {
	SyncInterval       time.Duration // 30s
	UpdatePollInterval time.Duration // 10s
	MaxRetries         int           // 3
	RetryDelay         time.Duration // 1s
	StateTTL           time.Duration // 1h
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.SyncInterval <= 0 {
		o.SyncInterval = 30 * time.Second
	}
	if o.UpdatePollInterval <= 0 {
		o.UpdatePollInterval = 10 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.StateTTL <= 0 {
		o.StateTTL = time.Hour
	}
	return o
}

// Manager keeps a Store fresh in the background.  It refreshes on a
// fixed interval while the admin is active, polls the server for
// changes made by other admins, and saves navigation state on every
// store change.
type Manager struct {
	store  *Store
	api    API
	states StateStore
	opts   SyncOptions
	logger *logging.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) bool

	mu           sync.Mutex
	lastActivity time.Time
}

// NewManager wires a manager.  states may be nil to disable
// persistence.
func NewManager(store *Store, api API, states StateStore, opts SyncOptions, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		store:        store,
		api:          api,
		states:       states,
		opts:         opts.withDefaults(),
		logger:       logger,
		now:          time.Now,
		sleep:        sleepCtx,
		lastActivity: time.Now(),
	}
}

// RecordActivity marks the admin as active.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	m.lastActivity = m.now()
	m.mu.Unlock()
}

func (m *Manager) idleFor() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now().Sub(m.lastActivity)
}

// Restore loads persisted state into the store when it was saved
// within StateTTL.  Older state is discarded.
func (m *Manager) Restore(ctx context.Context) (bool, error) {
	if m.states == nil {
		return false, nil
	}
	p, ok, err := m.states.Load(ctx)
	if err != nil || !ok {
		return false, err
	}
	if age := m.now().Sub(p.Timestamp); age < 0 || age > m.opts.StateTTL {
		m.logger.Info("discarding stale schedule state", "saved_at", p.Timestamp)
		return false, nil
	}
	m.store.Restore(p)
	return true, nil
}

// Run blocks until ctx is cancelled.  Background sync and update
// polling tick independently, so a sync stuck in retries does not hold
// up polling.
func (m *Manager) Run(ctx context.Context) error {
	unsubscribe := m.store.Subscribe(m.persist)
	defer unsubscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return every(ctx, m.opts.SyncInterval, func() { m.backgroundSync(ctx) })
	})
	g.Go(func() error {
		return every(ctx, m.opts.UpdatePollInterval, func() { m.pollUpdates(ctx) })
	})
	return g.Wait()
}

func every(ctx context.Context, d time.Duration, fn func()) error {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			fn()
		}
	}
}

// backgroundSync refreshes the store unless the admin has been idle
// for two intervals or a mutation is in flight.  Failed refreshes are
// retried MaxRetries times, RetryDelay apart; after that the manager
// waits for the next tick.
func (m *Manager) backgroundSync(ctx context.Context) bool {
	if m.idleFor() >= 2*m.opts.SyncInterval || m.store.AnyLoading() {
		return false
	}
	for attempt := 0; ; attempt++ {
		err := m.store.RefreshData(ctx)
		if err == nil {
			return true
		}
		if attempt >= m.opts.MaxRetries {
			m.logger.Warn("background sync failed", "attempts", attempt+1, "error", err)
			return false
		}
		if !m.sleep(ctx, m.opts.RetryDelay) {
			return false
		}
	}
}

// pollUpdates asks the server whether the current week changed since
// the last sync and refreshes if so.  Errors are logged and dropped.
func (m *Manager) pollUpdates(ctx context.Context) {
	st := m.store.Snapshot()
	changed, err := m.api.CheckUpdates(ctx, st.LastSync, st.CurrentWeekStart)
	if err != nil {
		m.logger.Debug("update check failed", "error", err)
		return
	}
	if !changed {
		return
	}
	if err := m.store.RefreshData(ctx); err != nil {
		m.logger.Debug("refresh after update check failed", "error", err)
	}
}

func (m *Manager) persist(st State) {
	if m.states == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := m.states.Save(ctx, PersistedState{
		SelectedDate:     st.SelectedDate,
		CurrentWeekStart: st.CurrentWeekStart,
		LastSync:         st.LastSync,
		Timestamp:        m.now().UTC(),
	})
	if err != nil {
		m.logger.Warn("save schedule state failed", "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
