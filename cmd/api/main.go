package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	infrakafka "github.com/jhoicas/ventas-api/internal/infrastructure/kafka"
	"github.com/jhoicas/ventas-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/ventas-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/ventas-api/internal/interfaces/http"
	"github.com/jhoicas/ventas-api/pkg/config"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrar esquema")
	}

	invoiceRepo := postgres.NewInvoiceRepository(pool)

	publisher := infrakafka.NewPublisher(cfg.Kafka.Brokers)
	defer publisher.Close()

	events := billing.EventsConfig{
		Topic:             cfg.Kafka.Topic,
		CreatedRoutingKey: billing.RoutingKeyInvoiceCreated,
		SummaryRoutingKey: billing.RoutingKeySalesSummary,
	}

	// Candado diario compartido: con Redis configurado el resumen del día se
	// publica una sola vez aunque haya más de una instancia o un disparo extra.
	var runLock billing.RunLock = billing.NopRunLock{}
	if cfg.Redis.Addr != "" {
		redisClient, err := infraredis.NewClient(ctx, infraredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer redisClient.Close()
		runLock = infraredis.NewRunLock(redisClient)
	} else {
		log.Warn().Msg("sin REDIS_ADDR: el candado diario es solo en proceso")
	}

	invoiceUC := billing.NewInvoiceUseCase(invoiceRepo, publisher, events, log.Component("billing"))

	loc, err := time.LoadLocation(cfg.Report.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("tz", cfg.Report.Timezone).Msg("zona horaria inválida, usando Local")
		loc = time.Local
	}
	aggregationJob := billing.NewDailyAggregationJob(
		invoiceRepo, publisher, runLock, events,
		loc, 2*time.Minute, log.Component("aggregation"),
	)

	// Registro explícito del scheduler: un único disparo diario.
	scheduler := cron.New(cron.WithLocation(loc))
	if _, err := scheduler.AddFunc(cfg.Report.CronSpec, func() {
		aggregationJob.Run(context.Background())
	}); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Report.CronSpec).Msg("registrar corrida diaria")
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Info().Str("spec", cfg.Report.CronSpec).Msg("agregación diaria programada")

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Ventas API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		InvoiceUC: invoiceUC,
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

	log.Info().Msg("aplicación detenida")
}
