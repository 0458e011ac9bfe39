package billing_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-api/internal/application/billing"
	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// memoryRunLock candado en memoria con la semántica de SetNX.
type memoryRunLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemoryRunLock() *memoryRunLock {
	return &memoryRunLock{held: make(map[string]bool)}
}

func (l *memoryRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memoryRunLock) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func newJob(repo *fakeInvoiceRepo, pub *fakePublisher, lock billing.RunLock) *billing.DailyAggregationJob {
	return billing.NewDailyAggregationJob(
		repo, pub, lock, testEvents, time.Local, time.Minute, logger.Nop(),
	)
}

// todayLockKey clave diaria que usa el job para la fecha actual.
func todayLockKey() string {
	return "sales_report:run:" + time.Now().In(time.Local).Format("2006-01-02")
}

// Caso 1: la corrida consulta la ventana [inicio, fin] del día actual y
// publica el resumen solo con las facturas de hoy.
func TestAggregation_PublicaResumenDelDia(t *testing.T) {
	now := time.Now()
	repo := &fakeInvoiceRepo{}
	uc := newUseCase(repo, newFakePublisher())

	// Tres facturas en dos días distintos: dos de hoy, una de hace dos días.
	for i, date := range []time.Time{now, now, now.AddDate(0, 0, -2)} {
		req := validRequest(fmt.Sprintf("INV-DAY-%d", i))
		req.Amount = decimal.RequireFromString("100")
		req.Date = date.Format(time.RFC3339)
		_, err := uc.Create(context.Background(), req)
		require.NoError(t, err)
	}

	pub := newFakePublisher()
	job := newJob(repo, pub, newMemoryRunLock())
	job.Run(context.Background())

	events := pub.events()
	require.Len(t, events, 1, "debe publicarse exactamente un resumen")
	assert.Equal(t, billing.RoutingKeySalesSummary, events[0].RoutingKey)

	summary, ok := events[0].Payload.(dto.SalesSummaryMessage)
	require.True(t, ok, "el payload debe ser el resumen de ventas")
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("200")),
		"solo las dos facturas de hoy deben sumar, fue %s", summary.TotalAmount)
	assert.Equal(t, int64(4), summary.ItemSales["A"], "2 facturas de hoy x 2 unidades de A")

	// Ventana inclusiva del día: [00:00:00, 23:59:59.999999999] local.
	require.NotNil(t, repo.lastFilter)
	start, end := repo.lastFilter.StartDate, repo.lastFilter.EndDate
	require.NotNil(t, start)
	require.NotNil(t, end)
	assert.Equal(t, 0, start.Hour(), "la ventana debe iniciar a medianoche")
	assert.Equal(t, start.Day(), now.Day(), "la ventana debe ser la del día actual")
	assert.Equal(t, start.Add(24*time.Hour-time.Nanosecond), *end,
		"el fin de la ventana debe ser el último instante del día")
}

// Caso 2: sin facturas en el día → resumen con total cero y mapa vacío.
func TestAggregation_DiaSinVentas(t *testing.T) {
	pub := newFakePublisher()
	job := newJob(&fakeInvoiceRepo{}, pub, newMemoryRunLock())

	job.Run(context.Background())

	events := pub.events()
	require.Len(t, events, 1)
	summary := events[0].Payload.(dto.SalesSummaryMessage)
	assert.True(t, summary.TotalAmount.IsZero())
	assert.Empty(t, summary.ItemSales)
}

// Caso 3: una corrida en vuelo → la segunda invocación es no-op y solo se
// publica un resumen para el día.
func TestAggregation_NoSeSolapa(t *testing.T) {
	repo := &fakeInvoiceRepo{blockList: make(chan struct{})}
	pub := newFakePublisher()
	job := newJob(repo, pub, newMemoryRunLock())

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Run(context.Background())
	}()

	// Esperar a que la primera corrida esté dentro de List y disparar la segunda.
	time.Sleep(50 * time.Millisecond)
	job.Run(context.Background())

	close(repo.blockList)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("la primera corrida no terminó a tiempo")
	}

	assert.Len(t, pub.events(), 1,
		"solo la corrida en vuelo debe publicar; la segunda invocación se omite")
}

// Caso 4: el día ya fue procesado (candado tomado) → corrida omitida.
func TestAggregation_DiaYaProcesado(t *testing.T) {
	lock := newMemoryRunLock()
	acquired, err := lock.Acquire(context.Background(), todayLockKey(), time.Hour)
	require.NoError(t, err)
	require.True(t, acquired)

	pub := newFakePublisher()
	job := newJob(&fakeInvoiceRepo{}, pub, lock)
	job.Run(context.Background())

	assert.Empty(t, pub.events(), "un día ya procesado no debe volver a publicarse")
}

// Caso 5: fallo del repositorio → la corrida se traga el error, no publica y
// libera el candado diario para permitir un reintento.
func TestAggregation_FalloDeConsulta(t *testing.T) {
	repo := &fakeInvoiceRepo{listErr: fmt.Errorf("conexión perdida")}
	pub := newFakePublisher()
	lock := newMemoryRunLock()
	job := newJob(repo, pub, lock)

	assert.NotPanics(t, func() { job.Run(context.Background()) },
		"una corrida fallida no debe tumbar el scheduler")
	assert.Empty(t, pub.events())

	// El candado quedó libre: el siguiente disparo puede reintentar el día.
	acquired, err := lock.Acquire(context.Background(), todayLockKey(), time.Hour)
	require.NoError(t, err)
	assert.True(t, acquired, "el candado diario debe liberarse tras un fallo")
}

// Caso 6: fallo al publicar → error tragado y candado liberado.
func TestAggregation_FalloDePublicacion(t *testing.T) {
	pub := newFakePublisher()
	pub.err = fmt.Errorf("broker caído")
	lock := newMemoryRunLock()
	job := newJob(&fakeInvoiceRepo{}, pub, lock)

	assert.NotPanics(t, func() { job.Run(context.Background()) })

	acquired, err := lock.Acquire(context.Background(), todayLockKey(), time.Hour)
	require.NoError(t, err)
	assert.True(t, acquired)
}

// deadlineLock rechaza Release si el contexto ya venció, como haría redis.
type deadlineLock struct {
	*memoryRunLock
}

func (l *deadlineLock) Release(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.memoryRunLock.Release(ctx, key)
}

// Caso 6b: la corrida falla con su contexto ya vencido → la liberación del
// candado diario no hereda ese contexto y el día queda libre para reintentar.
func TestAggregation_LiberaCandadoConContextoVencido(t *testing.T) {
	repo := &fakeInvoiceRepo{listErr: fmt.Errorf("consulta interrumpida")}
	lock := &deadlineLock{memoryRunLock: newMemoryRunLock()}
	job := newJob(repo, newFakePublisher(), lock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job.Run(ctx)

	acquired, err := lock.Acquire(context.Background(), todayLockKey(), time.Hour)
	require.NoError(t, err)
	assert.True(t, acquired,
		"el candado diario debe liberarse aunque el contexto de la corrida haya vencido")
}

// Caso 7: corridas en días "distintos" (claves distintas) no se bloquean
// entre sí: tras liberar el candado del día, una nueva corrida publica.
func TestAggregation_CorridasConsecutivas(t *testing.T) {
	pub := newFakePublisher()
	lock := newMemoryRunLock()
	job := newJob(&fakeInvoiceRepo{}, pub, lock)

	job.Run(context.Background())
	require.Len(t, pub.events(), 1)

	// Simular el cambio de día liberando la clave actual.
	require.NoError(t, lock.Release(context.Background(), todayLockKey()))

	job.Run(context.Background())
	assert.Len(t, pub.events(), 2, "cada periodo nuevo publica su propio resumen")
}
