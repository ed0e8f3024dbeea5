package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	closeViewHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/close_view"
	getAppointmentHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/get_appointment"
	getHistoryHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/get_history"
	getMessagesHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/get_messages"
	getTransitionsHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/get_transitions"
	initiatePaymentHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/initiate_payment"
	recordPaymentHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/record_payment"
	requestTransitionHandler "github.com/m04kA/SMC-LifecycleService/internal/api/handlers/request_transition"
	"github.com/m04kA/SMC-LifecycleService/internal/api/middleware"
	"github.com/m04kA/SMC-LifecycleService/internal/config"
	"github.com/m04kA/SMC-LifecycleService/internal/domain"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/fallback"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/lock"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/notify"
	"github.com/m04kA/SMC-LifecycleService/internal/infra/storage/snapshot"
	messagingServiceClient "github.com/m04kA/SMC-LifecycleService/internal/integrations/messagingservice"
	paymentServiceClient "github.com/m04kA/SMC-LifecycleService/internal/integrations/paymentservice"
	schedulingServiceClient "github.com/m04kA/SMC-LifecycleService/internal/integrations/schedulingservice"
	appointmentsService "github.com/m04kA/SMC-LifecycleService/internal/service/appointments"
	"github.com/m04kA/SMC-LifecycleService/internal/service/lifecycle"
	"github.com/m04kA/SMC-LifecycleService/internal/service/messaging"
	"github.com/m04kA/SMC-LifecycleService/pkg/dbmetrics"
	"github.com/m04kA/SMC-LifecycleService/pkg/logger"
	"github.com/m04kA/SMC-LifecycleService/pkg/metrics"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-LifecycleService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Хранилище снимков записей
	var snapshots lifecycle.SnapshotStore
	switch cfg.Database.Driver {
	case config.DriverMemory:
		snapshots = snapshot.NewMemory()
		log.Info("Snapshot storage: in-memory")

	default:
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to open database: %v", err)
		}
		defer db.Close()

		// Настраиваем connection pool
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(config.Duration(cfg.Database.ConnMaxLifetime))
		if cfg.Database.Driver == config.DriverSQLite {
			// SQLite не поддерживает параллельную запись
			db.SetMaxOpenConns(1)
		}

		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database: %v", err)
		}

		var executor dbmetrics.DBExecutor = db
		if cfg.Metrics.Enabled {
			if err := metricsCollector.RegisterDBStats(db, cfg.Database.DBName); err != nil {
				log.Warn("Failed to register database pool metrics: %v", err)
			}
			executor = dbmetrics.Wrap(db, metricsCollector)
			log.Info("Database metrics collection started")
		}

		repo := snapshot.NewRepository(executor, cfg.Database.Driver)
		migrateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = repo.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to migrate snapshot table: %v", err)
		}
		snapshots = repo
		log.Info("Snapshot storage: %s", cfg.Database.Driver)
	}

	// Redis (блокировки переходов и уведомления), если настроен
	var redisClient *redis.Client
	var locker lifecycle.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		redisClient, err = lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Username, cfg.Redis.Password)
		if err != nil {
			log.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()

		locker = lock.NewRedis(redisClient, config.Duration(cfg.Redis.LockTTL))
		log.Info("Transition locks: redis (addr=%s)", cfg.Redis.Addr)
	} else {
		log.Info("Transition locks: in-process")
	}

	var notifier messaging.Notifier = notify.NewLog(log)
	if cfg.Notify.Sink == config.NotifyRedis {
		notifier = notify.NewRedis(redisClient, cfg.Notify.ChannelPrefix)
		log.Info("Notifications: redis pub/sub (prefix=%s)", cfg.Notify.ChannelPrefix)
	}

	// Инициализируем интеграционных клиентов
	schedulingClient := schedulingServiceClient.NewClient(
		cfg.SchedulingService.URL,
		config.Duration(cfg.SchedulingService.Timeout),
		log,
	)

	var paymentClient lifecycle.PaymentClient
	if cfg.PaymentService.URL != "" {
		paymentClient = paymentServiceClient.NewClient(
			cfg.PaymentService.URL,
			config.Duration(cfg.PaymentService.Timeout),
			log,
		)
	}

	var messagingClient messaging.MessagingClient
	if cfg.MessagingService.URL != "" {
		messagingClient = messagingServiceClient.NewClient(
			cfg.MessagingService.URL,
			config.Duration(cfg.MessagingService.Timeout),
			log,
		)
	}
	log.Info("Integration clients initialized (SchedulingService=%s, PaymentService=%s, MessagingService=%s)",
		cfg.SchedulingService.URL, cfg.PaymentService.URL, cfg.MessagingService.URL)

	// Демо-данные строятся относительно момента запуска
	fallbackStore := fallback.NewStore(time.Now(), cfg.Lifecycle.Currency)
	demoMessaging := fallback.NewMessaging(fallbackStore)

	executorOpts := lifecycle.Options{
		RemoteTimeout: config.Duration(cfg.Lifecycle.RemoteTimeout),
		FallbackScope: domain.FallbackScope(cfg.Lifecycle.FallbackScope),
		Currency:      cfg.Lifecycle.Currency,
	}
	newExecutor := func(sessionID string) appointmentsService.Executor {
		opts := executorOpts
		opts.SessionID = sessionID

		executor := lifecycle.NewExecutor(schedulingClient, paymentClient, fallbackStore, snapshots, locker, opts, log)
		if cfg.Metrics.Enabled {
			executor.SetMetrics(metricsCollector)
		}
		return executor
	}

	var newSyncer appointmentsService.SyncerFactory
	if cfg.Messaging.Enabled {
		pollInterval := config.Duration(cfg.Messaging.PollInterval)
		newSyncer = func(view *lifecycle.View, readerID string) appointmentsService.MessageSyncer {
			client := messagingClient
			if view.FallbackMode || client == nil {
				demoMessaging.Open(view.Appointment)
				client = demoMessaging
			}

			syncer := messaging.NewSyncer(
				client,
				notifier,
				view.Appointment.ID,
				*view.Appointment.ConversationRef,
				readerID,
				pollInterval,
				log,
			)
			if cfg.Metrics.Enabled {
				syncer.SetMetrics(metricsCollector)
			}
			return syncer
		}
		log.Info("Message sync enabled (poll_interval=%s)", pollInterval)
	}

	// Инициализируем сервисы
	appointmentSvc := appointmentsService.NewService(newExecutor, newSyncer, log)

	// Инициализируем handlers
	getAppointment := getAppointmentHandler.NewHandler(appointmentSvc, log)
	getTransitions := getTransitionsHandler.NewHandler(appointmentSvc, log)
	requestTransition := requestTransitionHandler.NewHandler(appointmentSvc, log)
	getHistory := getHistoryHandler.NewHandler(appointmentSvc, log)
	initiatePayment := initiatePaymentHandler.NewHandler(appointmentSvc, log)
	recordPayment := recordPaymentHandler.NewHandler(appointmentSvc, log)
	getMessages := getMessagesHandler.NewHandler(appointmentSvc, log)
	closeView := closeViewHandler.NewHandler(appointmentSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logging(log))

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector))
		r.Handle(cfg.Metrics.Path, metricsCollector.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix, все маршруты требуют X-User-ID и X-User-Role
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Auth)

	// --- Записи ---
	api.HandleFunc("/appointments/{appointmentId}", getAppointment.Handle).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{appointmentId}/transitions", getTransitions.Handle).Methods(http.MethodGet)
	api.HandleFunc("/appointments/{appointmentId}/transitions", requestTransition.Handle).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{appointmentId}/history", getHistory.Handle).Methods(http.MethodGet)

	// --- Оплата ---
	api.HandleFunc("/appointments/{appointmentId}/payment", initiatePayment.Handle).Methods(http.MethodPost)
	api.HandleFunc("/appointments/{appointmentId}/payment/callback", recordPayment.Handle).Methods(http.MethodPost)

	// --- Переписка ---
	api.HandleFunc("/appointments/{appointmentId}/messages", getMessages.Handle).Methods(http.MethodGet)

	// --- Сессия ---
	api.HandleFunc("/sessions/current/appointments/{appointmentId}", closeView.Handle).Methods(http.MethodDelete)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.Duration(cfg.Server.IdleTimeout),
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		config.Duration(cfg.Server.ShutdownTimeout),
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}
	if err := appointmentSvc.Shutdown(shutdownCtx); err != nil {
		log.Error("Message syncers did not stop in time: %v", err)
	}

	log.Info("Server stopped gracefully")
}
