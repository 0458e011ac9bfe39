package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice representa una factura de venta registrada.
// La referencia es única en todo el sistema; una factura nunca se modifica ni
// se elimina después de creada.
type Invoice struct {
	ID        string
	Customer  string
	Amount    decimal.Decimal
	Reference string
	Date      time.Time
	Items     []InvoiceItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InvoiceItem línea de una factura: SKU vendido y cantidad.
type InvoiceItem struct {
	SKU      string
	Quantity int64
}
