// File: govbook/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"govbook/config"
	"govbook/cron"
	"govbook/database"
	appointmentRepo "govbook/database/repository/appointment"
	notificationRepo "govbook/database/repository/notification"
	timeslotRepo "govbook/database/repository/timeslot"
	"govbook/handlers"
	"govbook/metrics"
	"govbook/middleware"
	"govbook/routes"
	"govbook/services/catalog"
	"govbook/services/notification"
	"govbook/services/numbering"
	"govbook/services/scheduling"
	"govbook/services/slots"
	"govbook/utils"
)

// stores is the persistence wiring selected by STORE.
type stores struct {
	slots         timeslotRepo.TimeSlotRepository
	appointments  appointmentRepo.AppointmentRepository
	notifications notificationRepo.NotificationRepository
	catalog       catalog.Catalog
	notifier      notification.Notifier
	worker        *cron.NotificationWorker
	closers       []func()
}

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer func() { _ = logger.Sync() }()

	loc, err := time.LoadLocation(config.AppConfig.Timezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid TIMEZONE %q: %v", config.AppConfig.Timezone, err)
	}

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()

	var st stores
	if config.UseMemoryStore() {
		st = memoryStores(logger)
	} else {
		st = mongoStores(monitorCtx, logger)
	}

	m := metrics.New()
	slotManager := slots.NewManager(st.slots, m, logger.Named("slots"))
	engine := scheduling.NewEngine(scheduling.Deps{
		Appointments: st.appointments,
		Slots:        slotManager,
		Catalog:      st.catalog,
		Numbers: numbering.NewGenerator(
			config.AppConfig.AppointmentNumberPrefix,
			config.AppConfig.AppointmentNumberMaxAttempts,
			logger.Named("numbering"),
		),
		Notifier: st.notifier,
		Metrics:  m,
		Logger:   logger.Named("scheduling"),
	}, scheduling.Config{
		Location:                     loc,
		DefaultSlotCapacity:          config.AppConfig.DefaultSlotCapacity,
		FeedbackCommentMaxLength:     config.AppConfig.FeedbackCommentMaxLength,
		AllowDuplicateActiveBookings: config.AppConfig.AllowDuplicateActiveBookings,
	})

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := handlers.NewHandlerBundle(
		handlers.NewAppointmentHandler(engine),
		handlers.NewSlotHandler(slotManager),
		m.Handler(),
	)
	routes.RegisterRoutes(router, handlerBundle)

	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Sugar().Infof("Starting server on %s (store=%s, timezone=%s)...", srv.Addr, config.AppConfig.Store, loc)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	stopMonitor()
	if st.worker != nil {
		st.worker.Shutdown()
	}
	for i := len(st.closers) - 1; i >= 0; i-- {
		st.closers[i]()
	}
	if err := database.CloseDB(ctx); err != nil {
		logger.Warn("main: failed to disconnect MongoDB", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// memoryStores wires the in-process repositories. Catalog entries come from config.
func memoryStores(logger *zap.Logger) stores {
	notifications := notificationRepo.NewInMemory()
	utils.MarkMemoryStore()
	if len(config.AppConfig.Catalog) == 0 {
		logger.Warn("main: STORE=memory with an empty CATALOG; every booking will be rejected")
	}
	return stores{
		slots:         timeslotRepo.NewInMemory(),
		appointments:  appointmentRepo.NewInMemory(),
		notifications: notifications,
		catalog:       catalog.NewStaticCatalog(config.AppConfig.Catalog),
		notifier:      notification.NewStoreNotifier(notifications),
	}
}

// mongoStores connects to MongoDB and Redis, ensures indexes and starts the notification worker.
func mongoStores(ctx context.Context, logger *zap.Logger) stores {
	database.InitDB()
	db := database.Database()

	st := stores{
		slots:         timeslotRepo.NewMongoTimeSlotRepo(db),
		appointments:  appointmentRepo.NewMongoAppointmentRepo(db),
		notifications: notificationRepo.NewMongoNotificationRepo(db),
	}

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for name, ensure := range map[string]func(context.Context) error{
		"timeslots":     st.slots.EnsureIndexes,
		"appointments":  st.appointments.EnsureIndexes,
		"notifications": st.notifications.EnsureIndexes,
	} {
		if err := ensure(indexCtx); err != nil {
			logger.Fatal("main: failed to ensure indexes", zap.String("collection", name), zap.Error(err))
		}
	}

	cacheClient := utils.GetCacheClient()
	ttl := time.Duration(config.AppConfig.CatalogCacheTTLSeconds) * time.Second
	st.catalog = catalog.NewCachedCatalog(
		catalog.NewMongoCatalog(db),
		catalog.NewRedisCacheStore(cacheClient),
		ttl,
		logger.Named("catalog"),
	)

	redisOpt := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
	queue := asynq.NewClient(redisOpt)
	st.notifier = notification.NewQueueNotifier(queue, logger.Named("notifier"))
	st.worker = cron.NewNotificationWorker(redisOpt, config.AppConfig.NotificationWorkerConcurrency, st.notifications, logger.Named("worker"))
	if err := st.worker.Start(); err != nil {
		logger.Fatal("main: failed to start notification worker", zap.Error(err))
	}
	st.closers = append(st.closers,
		func() { _ = queue.Close() },
		utils.CloseRedis,
	)

	utils.StartHealthMonitor(ctx, []*redis.Client{cacheClient, utils.GetQueueClient()}, database.MongoClient)
	return st
}
