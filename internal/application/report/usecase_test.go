package report_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/application/report"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// fakeSender captura los correos entregados.
type fakeSender struct {
	mu    sync.Mutex
	sent  []dto.EmailPayload
	err   error
}

func (f *fakeSender) Send(ctx context.Context, mail dto.EmailPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, mail)
	return nil
}

var testEmailCfg = report.EmailConfig{
	To:   "gerencia@example.com",
	From: "noreply@example.com",
}

// Caso 1: un resumen válido se transforma en correo con las direcciones
// configuradas y el cuerpo en texto y HTML.
func TestHandleSalesReport_EntregaCorreo(t *testing.T) {
	sender := &fakeSender{}
	uc := report.NewUseCase(testEmailCfg, sender, logger.Nop())

	msg := dto.SalesSummaryMessage{
		TotalAmount: decimal.RequireFromString("150"),
		ItemSales:   map[string]int64{"A": 3, "B": 3},
	}
	payload, err := json.Marshal(msg)
	require.NoError(t, err)

	require.NoError(t, uc.HandleSalesReport(context.Background(), payload))

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "gerencia@example.com", mail.To)
	assert.Equal(t, "noreply@example.com", mail.From)
	assert.Equal(t, "Daily Sales Report", mail.Subject)
	assert.Contains(t, mail.TextBody, "150", "el cuerpo debe incluir el total")
	assert.Contains(t, mail.HTMLBody, "<pre>", "el HTML envuelve el resumen en pre")
}

// Caso 2: payload malformado → se registra y se da por manejado (nil), el
// loop de suscripción no debe caerse ni pedir redelivery.
func TestHandleSalesReport_PayloadMalformado(t *testing.T) {
	sender := &fakeSender{}
	uc := report.NewUseCase(testEmailCfg, sender, logger.Nop())

	err := uc.HandleSalesReport(context.Background(), []byte("esto no es JSON"))
	assert.NoError(t, err, "un payload malformado se considera manejado")
	assert.Empty(t, sender.sent, "no debe entregarse ningún correo")
}

// Caso 3: la entrega es al-menos-una-vez — reprocesar el mismo payload es
// seguro (solo duplica el correo, sin otra consecuencia).
func TestHandleSalesReport_ToleraReproceso(t *testing.T) {
	sender := &fakeSender{}
	uc := report.NewUseCase(testEmailCfg, sender, logger.Nop())

	payload, err := json.Marshal(dto.SalesSummaryMessage{TotalAmount: decimal.Zero})
	require.NoError(t, err)

	require.NoError(t, uc.HandleSalesReport(context.Background(), payload))
	require.NoError(t, uc.HandleSalesReport(context.Background(), payload))

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, sender.sent[0], sender.sent[1], "el reproceso produce el mismo correo")
}

// Caso 4: fallo del colaborador de envío → se registra y se traga.
func TestHandleSalesReport_FalloDeEnvio(t *testing.T) {
	sender := &fakeSender{err: context.DeadlineExceeded}
	uc := report.NewUseCase(testEmailCfg, sender, logger.Nop())

	payload, _ := json.Marshal(dto.SalesSummaryMessage{TotalAmount: decimal.Zero})
	assert.NoError(t, uc.HandleSalesReport(context.Background(), payload))
}
