package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	_ "github.com/jhoicas/Ventas-api/docs"
	"github.com/jhoicas/Ventas-api/internal/application/events"
	"github.com/jhoicas/Ventas-api/internal/application/expiration"
	"github.com/jhoicas/Ventas-api/internal/application/reconciliation"
	"github.com/jhoicas/Ventas-api/internal/application/sales"
	"github.com/jhoicas/Ventas-api/internal/application/sideeffects"
	"github.com/jhoicas/Ventas-api/internal/application/webhooks"
	"github.com/jhoicas/Ventas-api/internal/domain/entity"
	"github.com/jhoicas/Ventas-api/internal/domain/repository"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/carrier"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/memory"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/notify"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/paymentgw"
	infrapdf "github.com/jhoicas/Ventas-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Ventas-api/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/Ventas-api/internal/interfaces/http"
	"github.com/jhoicas/Ventas-api/pkg/config"
	"github.com/jhoicas/Ventas-api/pkg/logger"
)

// storage repositorios del driver elegido.
type storage struct {
	tx       sales.TxRunner
	sales    repository.SaleRepository
	audit    repository.AuditRepository
	webhooks repository.WebhookRecordRepository
	pool     *pgxpool.Pool // nil con el driver memory
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == "memory" {
		log.Warn().Msg("driver de almacenamiento en memoria: los datos no sobreviven al reinicio")
		store := memory.NewStore()
		return &storage{tx: store, sales: store.Sales(), audit: store.Audit(), webhooks: store.Webhooks()}, nil
	}
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		tx:       postgres.NewTxRunner(pool, cfg.Storage.Timeout),
		sales:    postgres.NewSaleRepository(pool),
		audit:    postgres.NewAuditRepository(pool),
		webhooks: postgres.NewWebhookRecordRepository(pool),
		pool:     pool,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar OpenTelemetry")
	}

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	if st.pool != nil {
		defer st.pool.Close()
	}

	// Bus de eventos; con EVENTS_BROADCAST se difunde a las demás instancias por LISTEN/NOTIFY.
	localBus := events.NewLocalBus(log)
	var publisher events.Publisher = localBus
	if cfg.Events.Broadcast && st.pool != nil {
		bus := events.NewBroadcastBus(localBus, postgres.NewNotifyBroadcaster(st.pool, cfg.Events.Channel), uuid.NewString(), log)
		go func() {
			if err := bus.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("difusión de eventos detenida")
			}
		}()
		publisher = bus
	}
	eventLog := log.Component("events")
	localBus.Subscribe(entity.TopicSaleConfirmed, func(_ context.Context, raw json.RawMessage) error {
		eventLog.Info().RawJSON("payload", raw).Msg(entity.TopicSaleConfirmed)
		return nil
	})

	// Efectos posteriores: cada cliente es opcional según la configuración.
	var carrierClient sideeffects.CarrierClient
	if c := carrier.New(cfg.Carrier); c != nil {
		carrierClient = c
	} else {
		log.Warn().Msg("CARRIER_BASE_URL vacío: no se generan pre-envíos")
	}
	var notifier sideeffects.Notifier
	if m := notify.NewMailer(cfg.Mail); m != nil {
		notifier = m
	} else {
		log.Warn().Msg("MAIL_BASE_URL vacío: no se envían notificaciones")
	}
	var resolver webhooks.PaymentResolver
	if c := paymentgw.New(cfg.PaymentGateway); c != nil {
		resolver = c
	}
	orchestrator := sideeffects.NewOrchestrator(st.sales, carrierClient, notifier,
		infrapdf.NewReceiptGenerator(cfg.App.Name), sideeffects.DefaultTimeout, log)

	ledger := sales.NewLedger(st.tx, st.sales, log)
	reconciler := reconciliation.NewService(ledger, publisher, orchestrator, st.audit, cfg.Expiration.Threshold, log)
	gateway, err := webhooks.NewGateway(st.webhooks, reconciler, resolver, webhooks.Config{
		Secret:        cfg.Webhook.Secret,
		MaxAge:        cfg.Webhook.MaxAge,
		Production:    cfg.App.IsProduction(),
		RelaxedTopics: cfg.Webhook.RelaxedTopics,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar gateway de webhooks")
	}
	if cfg.Webhook.Secret == "" {
		log.Warn().Msg("WEBHOOK_SECRET vacío: en producción se rechazan todas las notificaciones")
	}

	job, err := expiration.NewJob(reconciler, expiration.Config{
		Spec:     cfg.Expiration.Cron,
		Timezone: cfg.Expiration.Timezone,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("configurar job de vencimiento")
	}
	if cfg.Expiration.Enabled {
		job.Start()
		log.Info().Time("next", job.Next()).Dur("threshold", cfg.Expiration.Threshold).Msg("próxima corrida de vencimiento")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Ventas API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "storage": cfg.Storage.Driver})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Sales:      reconciler,
		Expiration: job,
		Shipments:  orchestrator,
		Webhooks:   gateway,
		JWTSecret:  cfg.JWT.Secret,
		Log:        log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	job.Stop(shutdownCtx)
	stop()
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado de OpenTelemetry")
	}

	log.Info().Msg("aplicación detenida")
}
