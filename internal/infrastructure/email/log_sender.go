package email

import (
	"context"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// LogSender colaborador de entrega que escribe el correo en el log en lugar
// de enviarlo. Es la entrega real de este sistema: el payload queda completo
// en la salida estructurada.
type LogSender struct {
	log *logger.Logger
}

// NewLogSender construye el sender.
func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{log: log}
}

// Send registra el correo renderizado.
func (s *LogSender) Send(ctx context.Context, mail dto.EmailPayload) error {
	s.log.Info().
		Str("to", mail.To).
		Str("from", mail.From).
		Str("subject", mail.Subject).
		Str("text", mail.TextBody).
		Str("html", mail.HTMLBody).
		Msg("correo simulado enviado")
	return nil
}
