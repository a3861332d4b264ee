package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	httpadp "invoice-approval-engine/internal/adapter/http"
	appmw "invoice-approval-engine/internal/adapter/middleware"
	notifyadp "invoice-approval-engine/internal/adapter/notify"
	"invoice-approval-engine/internal/adapter/repository/mysql"
	"invoice-approval-engine/internal/config"
	"invoice-approval-engine/internal/domain/notify"
	"invoice-approval-engine/internal/infrastructure/cache"
	"invoice-approval-engine/internal/infrastructure/db"
	"invoice-approval-engine/internal/infrastructure/logger"
	"invoice-approval-engine/internal/usecase/chainresolver"
	ucDelegation "invoice-approval-engine/internal/usecase/delegation"
	"invoice-approval-engine/internal/usecase/escalation"
	"invoice-approval-engine/internal/usecase/router"
	"invoice-approval-engine/internal/usecase/workflow"
	"invoice-approval-engine/pkg/clock"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.OpenGorm(cfg.MySQLDSN())
	if err != nil {
		return err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(gdb); err != nil {
			return err
		}
	}
	rdb, err := cache.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisDB, log)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var dispatcher notify.Dispatcher = notifyadp.NewLogDispatcher(log)
	if cfg.NATSURL != "" {
		nc, err := notifyadp.Connect(cfg.NATSURL, log)
		if err != nil {
			return err
		}
		defer func() { _ = nc.Drain() }()
		dispatcher = notifyadp.NewNATSDispatcher(nc, cfg.NATSSubjectPrefix, log)
	}

	// repositories
	approvals := mysql.NewApprovalRepository(gdb)
	invoices := mysql.NewInvoiceRepository(gdb)
	chains := mysql.NewChainRepository(gdb)
	auditLog := mysql.NewAuditRepository(gdb)
	directory := mysql.NewDirectoryRepository(gdb)
	clk := clock.Real{}

	// usecases
	fallback, err := router.New(router.DefaultThresholds(), cfg.EscalationThreshold)
	if err != nil {
		return err
	}
	routers := router.NewUsecase(mysql.NewRoutingRepository(gdb), fallback, auditLog, log)
	resolver := chainresolver.NewUsecase(chains, directory, nil, auditLog, clk, log)
	delegations := ucDelegation.NewUsecase(mysql.NewDelegationRepository(gdb), auditLog, clk, log)
	engine := workflow.NewUsecase(workflow.Deps{
		UoW:         mysql.NewGormUoW(gdb),
		Approvals:   approvals,
		Invoices:    invoices,
		Chains:      chains,
		Resolver:    resolver,
		Delegations: delegations,
		Routers:     routers,
		Directory:   directory,
		Notifier:    dispatcher,
		Audit:       auditLog,
		Clock:       clk,
		Log:         log,
	}, workflow.Config{
		DefaultSLA:         cfg.DefaultSLA(),
		DefaultReminder:    cfg.DefaultReminder(),
		AutoApproveBelow:   cfg.AutoApproveBelow,
		FinanceManagerRole: cfg.FinanceManagerRole,
		AdminRole:          cfg.AdminRole,
	})
	scheduler := escalation.NewUsecase(approvals, engine, cache.NewLocker(rdb, "lock:"), clk, escalation.Config{
		EscalationInterval: cfg.EscalationSweepInterval,
		ReminderInterval:   cfg.ReminderSweepInterval,
		BatchSize:          cfg.SweepBatchSize,
		ReminderLookahead:  cfg.DefaultReminder(),
		Windows:            resolver,
	}, log)

	// http
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpadp.NewValidator()
	e.Use(middleware.RequestID(), middleware.Recover(), requestLogger(log))

	ping := func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
	httpadp.Register(e, httpadp.Handlers{
		Health:      httpadp.NewHandler(ping),
		Workflow:    httpadp.NewWorkflowHandler(engine),
		Chains:      httpadp.NewChainHandler(resolver),
		Delegations: httpadp.NewDelegationHandler(delegations),
		Routing:     httpadp.NewRoutingHandler(routers),
	}, appmw.Idempotency(rdb, cfg.IdempotencyTTL(), log))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.AppPort
		log.Info().Str("addr", addr).Str("env", cfg.AppEnv).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return e.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil || v.Status >= http.StatusInternalServerError {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
