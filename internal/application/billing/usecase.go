package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/ventas-api/internal/application/dto"
	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
	"github.com/jhoicas/ventas-api/pkg/logger"
)

// publishTimeout límite para la publicación en segundo plano de invoices.created.
const publishTimeout = 5 * time.Second

// InvoiceUseCase registra facturas y resuelve consultas puntuales y por rango.
type InvoiceUseCase struct {
	repo      repository.InvoiceRepository
	publisher EventPublisher
	events    EventsConfig
	log       *logger.Logger
}

// NewInvoiceUseCase construye el caso de uso.
func NewInvoiceUseCase(
	repo repository.InvoiceRepository,
	publisher EventPublisher,
	events EventsConfig,
	log *logger.Logger,
) *InvoiceUseCase {
	return &InvoiceUseCase{
		repo:      repo,
		publisher: publisher,
		events:    events,
		log:       log,
	}
}

// Create valida, verifica la referencia duplicada, persiste y publica el
// evento invoices.created. La publicación es fire-and-forget: la escritura es
// la fuente de verdad y su fallo solo se registra, nunca revierte la factura.
func (uc *InvoiceUseCase) Create(ctx context.Context, in dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	date, err := in.ParsedDate()
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	// Verificación lectura-antes-de-escritura; el índice único de la tabla
	// respalda la carrera entre creaciones concurrentes con la misma referencia.
	if _, err := uc.repo.GetByReference(ctx, in.Reference); err == nil {
		return nil, domain.ErrDuplicateReference
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	items := make([]entity.InvoiceItem, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, entity.InvoiceItem{SKU: item.SKU, Quantity: item.Quantity})
	}
	now := time.Now().UTC()
	inv := &entity.Invoice{
		Customer:  in.Customer,
		Amount:    in.Amount,
		Reference: in.Reference,
		Date:      date,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	resp := dto.NewInvoiceResponse(inv)
	go uc.publishCreated(resp)
	return resp, nil
}

// publishCreated corre en su propia goroutine con un contexto independiente:
// la petición HTTP ya respondió y no espera el resultado.
func (uc *InvoiceUseCase) publishCreated(resp *dto.InvoiceResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := uc.publisher.Publish(ctx, uc.events.Topic, uc.events.CreatedRoutingKey, resp); err != nil {
		uc.log.Error().Err(err).
			Str("routing_key", uc.events.CreatedRoutingKey).
			Str("reference", resp.Reference).
			Msg("publicar evento de factura creada")
	}
}

// FindByID devuelve la factura o domain.ErrNotFound.
func (uc *InvoiceUseCase) FindByID(ctx context.Context, id string) (*dto.InvoiceResponse, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	inv, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewInvoiceResponse(inv), nil
}

// FindAll lista facturas aplicando el filtro conjuntivo de fecha y monto.
func (uc *InvoiceUseCase) FindAll(ctx context.Context, in dto.FilterInvoicesRequest) ([]*dto.InvoiceResponse, error) {
	filter, err := in.ToFilter()
	if err != nil {
		return nil, err
	}
	invoices, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, dto.NewInvoiceResponse(inv))
	}
	return out, nil
}
