package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/report"
	"github.com/jhoicas/ventas-api/internal/infrastructure/email"
	infrakafka "github.com/jhoicas/ventas-api/internal/infrastructure/kafka"
	"github.com/jhoicas/ventas-api/pkg/config"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// reporter: consume sales.summary del canal de eventos y entrega el reporte
// diario como correo al colaborador de envío (aquí, el log).
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
		Str("topic", cfg.Kafka.Topic).
		Str("queue", cfg.Report.Queue).
		Msg("iniciando reporter")

	sender := email.NewLogSender(log.Component("email"))
	uc := report.NewUseCase(report.EmailConfig{
		To:   cfg.Report.EmailTo,
		From: cfg.Report.EmailFrom,
	}, sender, log.Component("report"))

	consumer := infrakafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		billing.RoutingKeySalesSummary,
		cfg.Report.Queue,
		log.Component("kafka"),
	)
	defer consumer.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info().Str("addr", cfg.Report.MetricsAddr).Msg("métricas del reporter")
		if err := http.ListenAndServe(cfg.Report.MetricsAddr, mux); err != nil {
			log.Error().Err(err).Msg("servidor de métricas finalizado")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx, uc.HandleSalesReport); err != nil {
			log.Error().Err(err).Msg("loop de consumo finalizado con error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando consumidor...")
	cancel()
	<-done

	log.Info().Msg("reporter detenido")
}
