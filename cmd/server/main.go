package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/gigmarket/internal/auth"
	"github.com/ignatzorin/gigmarket/internal/config"
	"github.com/ignatzorin/gigmarket/internal/db"
	httpRouter "github.com/ignatzorin/gigmarket/internal/http/router"
	"github.com/ignatzorin/gigmarket/internal/infrastructure/persistence"
	"github.com/ignatzorin/gigmarket/internal/interface/http/handler"
	"github.com/ignatzorin/gigmarket/internal/logger"
	"github.com/ignatzorin/gigmarket/internal/usecase/contract"
	"github.com/ignatzorin/gigmarket/internal/usecase/escrow"
	"github.com/ignatzorin/gigmarket/internal/usecase/gig"
	"github.com/ignatzorin/gigmarket/internal/usecase/milestone"
	"github.com/ignatzorin/gigmarket/internal/usecase/notification"
	"github.com/ignatzorin/gigmarket/internal/usecase/proposal"
	"github.com/ignatzorin/gigmarket/internal/usecase/query"
	"github.com/ignatzorin/gigmarket/internal/ws"
	"github.com/ignatzorin/gigmarket/migrations"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	log := logger.Init(cfg.LogLevel)
	if !cfg.IsProduction() {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(log, dbConn)

	migrationsFS, err := migrationSource(cfg)
	if err != nil {
		log.Fatalf("main: миграции недоступны: %v", err)
	}
	if err := db.RunMigrations(ctx, dbConn, migrationsFS); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	schemas, err := notification.LoadSchemas()
	if err != nil {
		log.Fatalf("main: схемы уведомлений не загружены: %v", err)
	}

	// Хранилища.
	store := persistence.NewLedgerStore(dbConn)
	reads := persistence.NewReadModel(dbConn)
	notificationRepo := persistence.NewNotificationRepository(dbConn)
	outboxRepo := persistence.NewOutboxRepository(dbConn)

	// Вебсокеты и доставка уведомлений.
	hub := ws.NewHub(logger.Component("ws"))
	go hub.Run(ctx)

	dispatcher := notification.NewDispatcher(notificationRepo, schemas, hub, logger.Component("notifications"))
	relay := notification.NewRelay(outboxRepo, dispatcher, logger.Component("outbox"), notification.RelayConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
	})
	relay.Start(ctx)
	defer relay.Stop()

	// Сценарии.
	ledgerLog := logger.Component("ledger")
	queries := query.NewService(reads, store)
	escrowDeps := escrow.Deps{
		Store: store,
		Rail:  escrow.NewLedgerOnlyRail(logger.Component("payment_rail")),
		Relay: relay,
		Log:   ledgerLog,
	}

	handlers := httpRouter.Handlers{
		Health: handler.NewHealthHandler(dbConn, cfg.DBDriver),
		Gig: handler.NewGigHandler(
			gig.NewCreateGigUseCase(store, ledgerLog),
			gig.NewCancelGigUseCase(store, ledgerLog),
			queries,
		),
		Proposal: handler.NewProposalHandler(
			proposal.NewSubmitProposalUseCase(store, ledgerLog),
			proposal.NewAcceptProposalUseCase(store, relay, ledgerLog),
			proposal.NewRejectProposalUseCase(store, relay, ledgerLog),
			queries,
		),
		Contract: handler.NewContractHandler(
			contract.NewActivateContractUseCase(store, ledgerLog),
			contract.NewCompleteContractUseCase(store, ledgerLog),
			contract.NewCancelContractUseCase(store, ledgerLog),
			milestone.NewCreateMilestonesUseCase(store, ledgerLog),
			milestone.NewAdvanceMilestoneUseCase(store, relay, ledgerLog),
			queries,
		),
		Escrow:       handler.NewEscrowHandler(escrowDeps, queries),
		Notification: handler.NewNotificationHandler(dispatcher),
		WS:           handler.NewWSHandler(hub, cfg.AllowedOrigins),
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, 0)
	engine := httpRouter.SetupRouter(cfg, logger.Component("http"), tokens, handlers)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	log.WithFields(logrus.Fields{
		"port":   cfg.HTTPPort,
		"driver": cfg.DBDriver,
		"env":    cfg.Env,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("main: сервер завершился с ошибкой: %v", err)
	}

	stop()
	<-hub.Done()
	log.Info("main: сервер остановлен")
}

// migrationSource берёт миграции с диска, если задан MIGRATIONS_PATH, иначе встроенные.
func migrationSource(cfg *config.Config) (fs.FS, error) {
	if cfg.MigrationsPath != "" {
		return os.DirFS(cfg.MigrationsPath), nil
	}
	return migrations.For(cfg.DBDriver)
}

// safeClose закрывает соединение с базой.
func safeClose(log logrus.FieldLogger, conn *sqlx.DB) {
	if err := conn.Close(); err != nil {
		log.WithError(err).Error("main: ошибка закрытия базы")
	}
}
