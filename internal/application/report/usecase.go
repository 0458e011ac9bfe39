package report

import (
	"context"
	"encoding/json"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// EmailSender colaborador externo de entrega de correos.
type EmailSender interface {
	Send(ctx context.Context, mail dto.EmailPayload) error
}

// EmailConfig direcciones fijas del reporte, inyectadas en la construcción.
type EmailConfig struct {
	To   string
	From string
}

// UseCase transforma el resumen de ventas recibido del canal de eventos en
// un correo y lo entrega al colaborador de envío.
type UseCase struct {
	cfg    EmailConfig
	sender EmailSender
	log    *logger.Logger
}

// NewUseCase construye el caso de uso.
func NewUseCase(cfg EmailConfig, sender EmailSender, log *logger.Logger) *UseCase {
	return &UseCase{cfg: cfg, sender: sender, log: log}
}

// HandleSalesReport procesa un mensaje sales.summary. Un payload malformado
// se registra y se da por manejado: ninguna consecuencia posterior depende de
// él y el loop de suscripción no debe caerse.
func (uc *UseCase) HandleSalesReport(ctx context.Context, payload []byte) error {
	var msg dto.SalesSummaryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		uc.log.Error().Err(err).Msg("payload de resumen de ventas malformado, mensaje descartado")
		return nil
	}

	mail := uc.PrepareEmailData(msg)
	if err := uc.sender.Send(ctx, mail); err != nil {
		uc.log.Error().Err(err).Msg("entregar correo del reporte diario")
		return nil
	}
	return nil
}

// PrepareEmailData arma el payload de correo con las direcciones configuradas.
func (uc *UseCase) PrepareEmailData(msg dto.SalesSummaryMessage) dto.EmailPayload {
	body, _ := json.MarshalIndent(msg, "", "  ")
	return dto.EmailPayload{
		To:       uc.cfg.To,
		From:     uc.cfg.From,
		Subject:  "Daily Sales Report",
		TextBody: "Here is your daily sales report:\n\n" + string(body),
		HTMLBody: "<p>Here is your daily sales report:</p><pre>" + string(body) + "</pre>",
	}
}
