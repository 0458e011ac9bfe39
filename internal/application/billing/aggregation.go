package billing

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain/report"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

var (
	aggregationRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_aggregation_runs_total",
		Help: "Corridas de agregación diaria completadas con éxito",
	})
	aggregationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_aggregation_failures_total",
		Help: "Corridas de agregación diaria fallidas",
	})
	aggregationSkips = promauto.NewCounter(prometheus.CounterOpts{
		Name: "billing_aggregation_skips_total",
		Help: "Corridas de agregación omitidas (solapamiento o día ya procesado)",
	})
)

// dayLockTTL vida del candado diario: cubre el día y expira solo.
const dayLockTTL = 24 * time.Hour

// DailyAggregationJob agrega las facturas del día y publica el resumen bajo
// sales.summary. Una corrida nunca se solapa con otra en vuelo y el candado
// diario evita publicar dos veces el resumen del mismo día. Todos los fallos
// se registran y se tragan: el siguiente disparo programado es el mecanismo
// de recuperación.
type DailyAggregationJob struct {
	repo      repository.InvoiceRepository
	publisher EventPublisher
	lock      RunLock
	events    EventsConfig
	log       *logger.Logger
	timeout   time.Duration
	loc       *time.Location

	mu sync.Mutex // corrida en vuelo
}

// NewDailyAggregationJob construye el job. loc define el "día" local de la
// ventana de agregación; timeout acota la corrida completa.
func NewDailyAggregationJob(
	repo repository.InvoiceRepository,
	publisher EventPublisher,
	lock RunLock,
	events EventsConfig,
	loc *time.Location,
	timeout time.Duration,
	log *logger.Logger,
) *DailyAggregationJob {
	if loc == nil {
		loc = time.Local
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &DailyAggregationJob{
		repo:      repo,
		publisher: publisher,
		lock:      lock,
		events:    events,
		log:       log,
		timeout:   timeout,
		loc:       loc,
	}
}

// Run ejecuta una corrida de agregación. Nunca retorna error ni entra en
// pánico: el scheduler no debe caerse por una corrida fallida.
func (j *DailyAggregationJob) Run(ctx context.Context) {
	if !j.mu.TryLock() {
		aggregationSkips.Inc()
		j.log.Warn().Msg("agregación diaria omitida: corrida anterior aún en vuelo")
		return
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	now := time.Now().In(j.loc)
	day := now.Format("2006-01-02")
	dayKey := "sales_report:run:" + day

	acquired, err := j.lock.Acquire(ctx, dayKey, dayLockTTL)
	if err != nil {
		// Sin backend de candados no se bloquea la corrida: el candado en
		// proceso sigue evitando solapamientos y el scheduler dispara una vez al día.
		j.log.Warn().Err(err).Msg("no se pudo verificar el candado diario, continuando")
		acquired = false
	} else if !acquired {
		aggregationSkips.Inc()
		j.log.Info().Str("day", day).Msg("agregación diaria omitida: el día ya fue procesado")
		return
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)
	end := start.Add(24*time.Hour - time.Nanosecond)

	invoices, err := j.repo.List(ctx, repository.InvoiceFilter{
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		j.fail(dayKey, acquired, err, "consultar las facturas del día")
		return
	}

	summary := report.Summarize(invoices)
	msg := dto.SalesSummaryMessage{
		TotalAmount: summary.TotalAmount,
		ItemSales:   summary.ItemSales,
	}
	if err := j.publisher.Publish(ctx, j.events.Topic, j.events.SummaryRoutingKey, msg); err != nil {
		j.fail(dayKey, acquired, err, "publicar el resumen de ventas")
		return
	}

	aggregationRuns.Inc()
	j.log.Info().
		Str("day", day).
		Int("invoices", len(invoices)).
		Str("total_amount", summary.TotalAmount.String()).
		Msg("resumen diario de ventas publicado")
}

// fail registra el error y libera el candado diario para que un disparo
// posterior del mismo día pueda reintentar. La liberación usa un contexto
// propio: el de la corrida puede ser justo el que venció.
func (j *DailyAggregationJob) fail(dayKey string, acquired bool, err error, msg string) {
	aggregationFailures.Inc()
	j.log.Error().Err(err).Msg("agregación diaria fallida: " + msg)
	if !acquired {
		return
	}
	relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if relErr := j.lock.Release(relCtx, dayKey); relErr != nil {
		j.log.Warn().Err(relErr).Str("key", dayKey).Msg("liberar candado diario")
	}
}
