// Command schedule-watch keeps an admin's view of the slot schedule in
// sync with the server and logs every change to the week overview.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/model"
	"github.com/iliyamo/detailing-booking/internal/schedule"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadSyncConfig()
	if err != nil {
		logging.Default().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	client := schedule.NewClient(cfg.APIBaseURL,
		schedule.WithToken(cfg.APIToken),
		schedule.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		schedule.WithLogger(logger),
	)
	store := schedule.NewStore(client, logger)

	var states schedule.StateStore = schedule.NewFileStateStore(cfg.StateFile)
	if cfg.StateRedisKey != "" {
		if rdb := config.NewRedisClient(); rdb != nil {
			defer rdb.Close()
			states = schedule.NewRedisStateStore(rdb, cfg.StateRedisKey, cfg.StateTTL)
		} else {
			logger.Warn("redis unreachable; keeping state in file", "path", cfg.StateFile)
		}
	}

	mgr := schedule.NewManager(store, client, states, schedule.SyncOptions{
		SyncInterval:       cfg.SyncInterval,
		UpdatePollInterval: cfg.UpdatePollInterval,
		MaxRetries:         cfg.MaxRetries,
		RetryDelay:         cfg.RetryDelay,
		StateTTL:           cfg.StateTTL,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	restored, err := mgr.Restore(ctx)
	if err != nil {
		logger.Warn("restore state failed", "error", err)
	}
	logger.Info("starting", "api", cfg.APIBaseURL, "restored", restored)

	var (
		mu   sync.Mutex
		last []model.DayOverview
	)
	store.Subscribe(func(st schedule.State) {
		mu.Lock()
		defer mu.Unlock()
		if reflect.DeepEqual(last, st.WeekOverview) {
			return
		}
		last = st.WeekOverview
		for _, d := range st.WeekOverview {
			logger.Info("day",
				"date", d.Date,
				"day", d.DayName,
				"working", d.IsWorkingDay,
				"total", d.TotalSlots,
				"available", d.AvailableSlots,
				"booked", d.BookedSlots,
			)
		}
	})

	if err := store.RefreshData(ctx); err != nil {
		logger.Warn("initial load failed", "error", err)
	}
	// the watcher is the admin's session; keep it counted as active
	mgr.RecordActivity()
	go keepActive(ctx, mgr, cfg.SyncInterval)

	if err := mgr.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sync stopped", "error", err)
		os.Exit(1)
	}
}

func keepActive(ctx context.Context, mgr *schedule.Manager, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			mgr.RecordActivity()
		}
	}
}
