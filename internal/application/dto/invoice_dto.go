package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

// InvoiceItemDTO línea de factura en el cable: SKU y cantidad ("qt").
type InvoiceItemDTO struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qt"`
}

// CreateInvoiceRequest body para POST /api/invoices.
type CreateInvoiceRequest struct {
	Customer  string           `json:"customer"`
	Amount    decimal.Decimal  `json:"amount"`
	Reference string           `json:"reference"`
	Date      string           `json:"date"` // ISO-8601 (RFC 3339) o YYYY-MM-DD
	Items     []InvoiceItemDTO `json:"items"`
}

// Validate verifica la forma de la petición antes de llegar al repositorio.
func (r CreateInvoiceRequest) Validate() error {
	if r.Customer == "" || r.Reference == "" {
		return domain.ErrInvalidInput
	}
	if r.Amount.IsNegative() {
		return domain.ErrInvalidInput
	}
	if _, err := r.ParsedDate(); err != nil {
		return domain.ErrInvalidInput
	}
	if len(r.Items) == 0 {
		return domain.ErrInvalidInput
	}
	for _, item := range r.Items {
		if item.SKU == "" || item.Quantity <= 0 {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

// ParsedDate interpreta la fecha de la petición (RFC 3339 o solo fecha).
func (r CreateInvoiceRequest) ParsedDate() (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, r.Date); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", r.Date)
}

// FilterInvoicesRequest query params para GET /api/invoices.
// Todos opcionales; los límites son inclusivos.
type FilterInvoicesRequest struct {
	StartDate string `query:"startDate"`
	EndDate   string `query:"endDate"`
	MinAmount string `query:"minAmount"`
	MaxAmount string `query:"maxAmount"`
}

// ToFilter convierte los params al filtro del repositorio.
// Devuelve domain.ErrInvalidInput si alguna fecha o monto no parsea.
func (r FilterInvoicesRequest) ToFilter() (repository.InvoiceFilter, error) {
	var filter repository.InvoiceFilter

	parseDate := func(s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			ts, err = time.Parse("2006-01-02", s)
			if err != nil {
				return nil, domain.ErrInvalidInput
			}
		}
		return &ts, nil
	}
	parseAmount := func(s string) (*decimal.Decimal, error) {
		if s == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		return &d, nil
	}

	var err error
	if filter.StartDate, err = parseDate(r.StartDate); err != nil {
		return filter, err
	}
	if filter.EndDate, err = parseDate(r.EndDate); err != nil {
		return filter, err
	}
	if filter.MinAmount, err = parseAmount(r.MinAmount); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseAmount(r.MaxAmount); err != nil {
		return filter, err
	}
	return filter, nil
}

// InvoiceResponse factura en respuestas HTTP y en el evento invoices.created.
type InvoiceResponse struct {
	ID        string           `json:"id"`
	Customer  string           `json:"customer"`
	Amount    decimal.Decimal  `json:"amount"`
	Reference string           `json:"reference"`
	Date      string           `json:"date"` // ISO-8601
	Items     []InvoiceItemDTO `json:"items"`
}

// NewInvoiceResponse mapea la entidad al DTO de salida.
func NewInvoiceResponse(inv *entity.Invoice) *InvoiceResponse {
	items := make([]InvoiceItemDTO, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemDTO{SKU: item.SKU, Quantity: item.Quantity})
	}
	return &InvoiceResponse{
		ID:        inv.ID,
		Customer:  inv.Customer,
		Amount:    inv.Amount,
		Reference: inv.Reference,
		Date:      inv.Date.UTC().Format(time.RFC3339),
		Items:     items,
	}
}

// SalesSummaryMessage payload del evento sales.summary.
type SalesSummaryMessage struct {
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	ItemSales   map[string]int64 `json:"itemSales"`
}

// MarshalJSON emite totalAmount como número JSON sin comillas; el String()
// del decimal conserva la escala completa y decodifica sin pérdida.
func (m SalesSummaryMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalAmount json.RawMessage  `json:"totalAmount"`
		ItemSales   map[string]int64 `json:"itemSales"`
	}{
		TotalAmount: json.RawMessage(m.TotalAmount.String()),
		ItemSales:   m.ItemSales,
	})
}

// EmailPayload datos de correo que el consumidor entrega al colaborador de envío.
type EmailPayload struct {
	To       string `json:"to"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	TextBody string `json:"textBody"`
	HTMLBody string `json:"htmlBody"`
}
