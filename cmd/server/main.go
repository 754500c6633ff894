package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/iliyamo/detailing-booking/internal/config"
	"github.com/iliyamo/detailing-booking/internal/database"
	"github.com/iliyamo/detailing-booking/internal/handler"
	"github.com/iliyamo/detailing-booking/internal/middleware"
	"github.com/iliyamo/detailing-booking/internal/notify"
	"github.com/iliyamo/detailing-booking/internal/observability/metrics"
	"github.com/iliyamo/detailing-booking/internal/queue"
	"github.com/iliyamo/detailing-booking/internal/repository"
	"github.com/iliyamo/detailing-booking/internal/router"
	"github.com/iliyamo/detailing-booking/internal/service"
	"github.com/iliyamo/detailing-booking/pkg/logging"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).With("env", cfg.Env)

	db, err := database.Open(cfg.DSNParts())
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unreachable; running without rate limiting and response cache")
	} else {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(reg)
	scheduleMetrics := metrics.NewScheduleMetrics(reg)

	slotRepo := repository.NewSlotRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	sender := notify.NewSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var dispatcher service.ConfirmationDispatcher
	if cfg.RabbitMQURL != "" {
		pub := queue.NewPublisher(cfg.RabbitMQURL, cfg.EmailQueue, logger)
		defer pub.Close()
		dispatcher = pub
		if cfg.EmailConsumerEnabled {
			consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.EmailQueue, sender, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("email consumer stopped", "error", err)
				}
			}()
		}
	} else {
		direct := queue.NewDirectDispatcher(sender, logger)
		defer direct.Wait()
		dispatcher = direct
	}

	pricing := service.NewPricingResolver(repository.NewPricingRepo(db), cfg.Booking.FallbackPricePence, logger)
	bookings := service.NewBookingService(service.BookingDeps{
		DB:         db,
		Slots:      slotRepo,
		Vehicles:   repository.NewVehicleRepo(db),
		Bookings:   repository.NewBookingRepo(db),
		Pricing:    pricing,
		References: service.NewReferenceGenerator(cfg.Booking.ReferencePrefix),
		Accounts:   service.NewAccountService(userRepo, cfg.BcryptCost, cfg.Booking.AutoAccounts, logger),
		Rewards:    service.NewRewardsService(repository.NewRewardsRepo(db), cfg.Booking.WelcomePoints),
		Dispatcher: dispatcher,
		Metrics:    bookingMetrics,
		Logger:     logger,
		Config:     cfg.Booking,
	})

	scheduleHandler := handler.NewScheduleHandler(slotRepo, scheduleMetrics, logger)
	bookingHandler := handler.NewBookingHandler(bookings, logger)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, userRepo, tokenRepo), cfg.JWTSecret)
	router.RegisterPublic(e, router.PublicHandlers{
		Bookings: bookingHandler,
		Schedule: scheduleHandler,
		Pricing:  handler.NewPricingHandler(pricing, cfg.Booking.DefaultServiceID),
	}, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	router.RegisterAdmin(e, scheduleHandler, bookingHandler, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
