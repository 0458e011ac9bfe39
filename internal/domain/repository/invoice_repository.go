package repository

import (
	"context"
	"time"

	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InvoiceFilter criterios de listado. Todos los límites son opcionales e
// inclusivos; un filtro vacío devuelve todas las facturas.
type InvoiceFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// InvoiceRepository define el puerto de persistencia para Invoice.
type InvoiceRepository interface {
	// Create persiste la factura. Devuelve domain.ErrDuplicateReference si la
	// referencia ya existe en el almacén.
	Create(ctx context.Context, invoice *entity.Invoice) error
	// GetByID devuelve domain.ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// GetByReference búsqueda por igualdad para la verificación de duplicados.
	// Devuelve domain.ErrNotFound si no existe.
	GetByReference(ctx context.Context, reference string) (*entity.Invoice, error)
	// List aplica el filtro conjuntivo (fecha y monto, límites inclusivos).
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
}
