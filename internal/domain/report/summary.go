package report

import (
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SalesSummary resumen de ventas de una ventana de tiempo. Es efímero: se
// calcula bajo demanda y solo existe como payload de mensaje.
type SalesSummary struct {
	TotalAmount decimal.Decimal
	ItemSales   map[string]int64
}

// Summarize calcula el resumen de ventas de un conjunto de facturas.
// TotalAmount es la suma de los montos (cero si no hay facturas) e
// ItemSales acumula cantidades por SKU; un SKU sin ventas no aparece en el
// mapa. Función pura: sin I/O y con el mismo resultado para cualquier orden
// de entrada.
func Summarize(invoices []*entity.Invoice) SalesSummary {
	summary := SalesSummary{
		TotalAmount: decimal.Zero,
		ItemSales:   make(map[string]int64),
	}
	for _, inv := range invoices {
		summary.TotalAmount = summary.TotalAmount.Add(inv.Amount)
		for _, item := range inv.Items {
			summary.ItemSales[item.SKU] += item.Quantity
		}
	}
	return summary
}
