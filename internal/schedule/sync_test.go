package schedule

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncFixture struct {
	api    *fakeAPI
	store  *Store
	mgr    *Manager
	clock  time.Time
	sleeps int
}

func newSyncFixture(t *testing.T, states StateStore) *syncFixture {
	t.Helper()
	f := &syncFixture{api: newFakeAPI(), clock: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)}
	f.store = NewStore(f.api, quietLogger())
	f.mgr = NewManager(f.store, f.api, states, SyncOptions{SyncInterval: 30 * time.Second, MaxRetries: 3}, quietLogger())
	f.mgr.now = func() time.Time { return f.clock }
	f.mgr.sleep = func(context.Context, time.Duration) bool { f.sleeps++; return true }
	f.mgr.RecordActivity()
	return f
}

func TestSyncOptionsDefaults(t *testing.T) {
	o := SyncOptions{}.withDefaults()
	assert.Equal(t, 30*time.Second, o.SyncInterval)
	assert.Equal(t, 10*time.Second, o.UpdatePollInterval)
	assert.Equal(t, time.Second, o.RetryDelay)
	assert.Equal(t, time.Hour, o.StateTTL)
}

func TestManager_BackgroundSyncRefreshesWhenActive(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.clock = f.clock.Add(45 * time.Second)

	assert.True(t, f.mgr.backgroundSync(context.Background()))
	weeks, _, _ := f.api.calls()
	assert.Equal(t, 1, weeks)
	assert.Zero(t, f.sleeps)
}

func TestManager_BackgroundSyncSkipsWhenIdle(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.clock = f.clock.Add(60 * time.Second)

	assert.False(t, f.mgr.backgroundSync(context.Background()))
	weeks, _, _ := f.api.calls()
	assert.Zero(t, weeks)
}

func TestManager_BackgroundSyncSkipsWhileMutating(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.store.update(func(st *State) { st.Loading[toggleKey(testDay)] = true })

	assert.False(t, f.mgr.backgroundSync(context.Background()))
	weeks, _, _ := f.api.calls()
	assert.Zero(t, weeks)
}

func TestManager_BackgroundSyncRetriesThenGivesUp(t *testing.T) {
	f := newSyncFixture(t, nil)
	down := errors.New("down")
	f.api.set(func(a *fakeAPI) { a.weekErrs = []error{down, down, down, down, down} })

	assert.False(t, f.mgr.backgroundSync(context.Background()))
	weeks, _, _ := f.api.calls()
	assert.Equal(t, 4, weeks)
	assert.Equal(t, 3, f.sleeps)

	// the next tick starts a fresh round of attempts
	f.api.set(func(a *fakeAPI) { a.weekErrs = nil })
	assert.True(t, f.mgr.backgroundSync(context.Background()))
}

func TestManager_BackgroundSyncRecoversOnRetry(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.api.set(func(a *fakeAPI) { a.weekErrs = []error{errors.New("blip")} })

	assert.True(t, f.mgr.backgroundSync(context.Background()))
	assert.Equal(t, 1, f.sleeps)
}

func TestManager_PollUpdates(t *testing.T) {
	f := newSyncFixture(t, nil)

	f.mgr.pollUpdates(context.Background())
	weeks, _, checks := f.api.calls()
	assert.Equal(t, 1, checks)
	assert.Zero(t, weeks)

	f.api.set(func(a *fakeAPI) { a.updates = true })
	f.mgr.pollUpdates(context.Background())
	weeks, _, _ = f.api.calls()
	assert.Equal(t, 1, weeks)

	f.api.set(func(a *fakeAPI) { a.checkErr = errors.New("unreachable") })
	f.mgr.pollUpdates(context.Background())
	weeks, _, checks = f.api.calls()
	assert.Equal(t, 3, checks)
	assert.Equal(t, 1, weeks)
}

func TestManager_RestoreHonoursTTL(t *testing.T) {
	states := NewFileStateStore(filepath.Join(t.TempDir(), "state.json"))
	f := newSyncFixture(t, states)
	ctx := context.Background()

	ok, err := f.mgr.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, states.Save(ctx, PersistedState{
		SelectedDate: testDay, CurrentWeekStart: testWeek, Timestamp: f.clock.Add(-30 * time.Minute),
	}))
	ok, err = f.mgr.Restore(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testDay, f.store.Snapshot().SelectedDate)
	assert.Equal(t, testWeek, f.store.Snapshot().CurrentWeekStart)

	f.store.ClearSelection()
	require.NoError(t, states.Save(ctx, PersistedState{
		SelectedDate: testDay, Timestamp: f.clock.Add(-2 * time.Hour),
	}))
	ok, err = f.mgr.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, f.store.Snapshot().SelectedDate)
}

func TestManager_RunPersistsChangesUntilCancelled(t *testing.T) {
	states := NewFileStateStore(filepath.Join(t.TempDir(), "state.json"))
	store := NewStore(newFakeAPI(), quietLogger())
	mgr := NewManager(store, newFakeAPI(), states, SyncOptions{SyncInterval: time.Hour, UpdatePollInterval: time.Hour}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- mgr.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.Restore(PersistedState{SelectedDate: testDay, CurrentWeekStart: testWeek})
		p, ok, err := states.Load(context.Background())
		return err == nil && ok && p.SelectedDate == testDay
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestManager_PollingContinuesWhileSyncRetries(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.api.set(func(a *fakeAPI) { a.weekErrs = []error{errors.New("down")} })

	stuck := make(chan struct{})
	var once sync.Once
	f.mgr.sleep = func(ctx context.Context, _ time.Duration) bool {
		once.Do(func() { close(stuck) })
		<-ctx.Done()
		return false
	}
	f.mgr.opts.SyncInterval = 5 * time.Millisecond
	f.mgr.opts.UpdatePollInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.mgr.Run(ctx) }()

	<-stuck
	_, _, before := f.api.calls()
	require.Eventually(t, func() bool {
		_, _, checks := f.api.calls()
		return checks >= before+3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
