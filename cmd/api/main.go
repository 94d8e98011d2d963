package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/crm-inmobiliario/internal/application/contract"
	"github.com/jhoicas/crm-inmobiliario/internal/application/jobs"
	"github.com/jhoicas/crm-inmobiliario/internal/application/ledger"
	"github.com/jhoicas/crm-inmobiliario/internal/application/pipeline"
	"github.com/jhoicas/crm-inmobiliario/internal/application/reservation"
	"github.com/jhoicas/crm-inmobiliario/internal/domain/repository"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/cache"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/memory"
	"github.com/jhoicas/crm-inmobiliario/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/crm-inmobiliario/internal/interfaces/http"
	"github.com/jhoicas/crm-inmobiliario/pkg/config"
	pkgjwt "github.com/jhoicas/crm-inmobiliario/pkg/jwt"
	"github.com/jhoicas/crm-inmobiliario/pkg/logger"
)

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
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: todas las rutas protegidas responderán 401")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	checks := map[string]httpRouter.Check{}
	var txRunner repository.TxRunner
	switch cfg.DB.Driver {
	case "memory":
		log.Warn().Msg("DB_DRIVER=memory: los datos se pierden al reiniciar")
		store := memory.NewStore()
		seedDemo(store, cfg, log)
		txRunner = store
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.DB.AutoMigrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("aplicar esquema")
			}
			log.Info().Msg("esquema aplicado")
		}
		txRunner = postgres.NewTxRunner(pool, cfg.DB.TxRetries, log)
		checks["postgres"] = postgres.Ping(pool)
	}

	// Caché de etapas opcional: sin REDIS_URL el directorio consulta siempre la base.
	var stageCache pipeline.StageCache
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis no disponible, se continúa sin caché de etapas")
		} else {
			defer rdb.Close()
			stageCache = cache.NewStageCache(rdb, cfg.Redis.StageTTL, log)
			checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		}
	}

	directory := pipeline.NewDirectory(pipeline.StageNames{
		InReservation:     cfg.Pipeline.InReservation,
		ProposalIssued:    cfg.Pipeline.ProposalIssued,
		AwaitingSignature: cfg.Pipeline.AwaitingSignature,
		ContractSigned:    cfg.Pipeline.ContractSigned,
		Sold:              cfg.Pipeline.Sold,
		Rescinded:         cfg.Pipeline.Rescinded,
		Discarded:         cfg.Pipeline.Discarded,
	}, stageCache, log)
	synchronizer := pipeline.NewSynchronizer(directory)

	reservationUC := reservation.NewUseCase(txRunner, synchronizer, log)
	contractUC := contract.NewUseCase(txRunner, synchronizer, log)
	ledgerUC := ledger.NewUseCase(txRunner, log, ledger.WithRejectOverpayment(cfg.Ledger.RejectOverpayment))

	if cfg.Sweeper.Enabled {
		sweeper := jobs.NewSweeper(txRunner, reservationUC, ledgerUC, cfg.Sweeper.Interval, cfg.Sweeper.Batch, log)
		go sweeper.Start(ctx)
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
		Title:    "CRM Inmobiliario API",
	}))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Reservations: reservationUC,
		Converter:    contractUC,
		Contracts:    contractUC,
		Plan:         ledgerUC,
		Ledger:       ledgerUC,
		Health:       httpRouter.NewHealthHandler(cfg.App.Name, checks),
		JWTSecret:    cfg.JWT.Secret,
		Log:          log,
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
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

// seedDemo carga el escenario de demostración del modo memoria y publica en el log los ids
// y, si hay JWT_SECRET, un token por rol para probar la API a mano.
func seedDemo(store *memory.Store, cfg *config.Config, log *logger.Logger) {
	d := memory.SeedDemo(store, cfg.App.DemoCompanyID, time.Now().UTC())
	ev := log.Info().
		Str("company_id", d.CompanyID).
		Str("unit_id", d.UnitID).
		Str("property_id", d.PropertyID).
		Strs("lead_ids", d.LeadIDs).
		Str("broker_id", d.BrokerID)
	if cfg.JWT.Secret != "" {
		for role, userID := range map[string]string{"admin": d.AdminID, "corredor": d.BrokerID} {
			token, err := pkgjwt.Generate(cfg.JWT.Secret, userID, d.CompanyID, role, cfg.JWT.Issuer, cfg.JWT.Expiration)
			if err != nil {
				log.Warn().Err(err).Str("role", role).Msg("token de demostración")
				continue
			}
			ev = ev.Str("token_"+role, token)
		}
	}
	ev.Msg("escenario de demostración cargado")
}
