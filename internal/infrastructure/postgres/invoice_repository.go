package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/ventas-api/internal/domain"
	"github.com/jhoicas/ventas-api/internal/domain/entity"
	"github.com/jhoicas/ventas-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// invoiceItemRow forma JSONB de una línea de factura.
type invoiceItemRow struct {
	SKU      string `json:"sku"`
	Quantity int64  `json:"qt"`
}

// InvoiceRepo implementación de InvoiceRepository sobre PostgreSQL.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste la factura y asigna el ID si viene vacío.
func (r *InvoiceRepo) Create(ctx context.Context, invoice *entity.Invoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	items, err := marshalItems(invoice.Items)
	if err != nil {
		return fmt.Errorf("serializar items: %w", err)
	}
	query := `
		INSERT INTO invoices (id, customer, amount, reference, date, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.q.Exec(ctx, query,
		invoice.ID, invoice.Customer, invoice.Amount, invoice.Reference,
		invoice.Date, items, invoice.CreatedAt, invoice.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// GetByID obtiene una factura por ID. Los IDs los asigna el almacén como
// UUID; cualquier otro valor no existe y se responde sin consultar.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	query := selectInvoice + ` WHERE id = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, id))
}

// GetByReference búsqueda por igualdad sobre la referencia única.
func (r *InvoiceRepo) GetByReference(ctx context.Context, reference string) (*entity.Invoice, error) {
	query := selectInvoice + ` WHERE reference = $1`
	return r.scanOne(r.q.QueryRow(ctx, query, reference))
}

// List aplica el filtro conjuntivo; límites inclusivos, sin filtro devuelve todo.
func (r *InvoiceRepo) List(ctx context.Context, filter repository.InvoiceFilter) ([]*entity.Invoice, error) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.StartDate != nil {
		add("date >= $%d", *filter.StartDate)
	}
	if filter.EndDate != nil {
		add("date <= $%d", *filter.EndDate)
	}
	if filter.MinAmount != nil {
		add("amount >= $%d", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		add("amount <= $%d", *filter.MaxAmount)
	}

	query := selectInvoice
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

const selectInvoice = `
	SELECT id, customer, amount, reference, date, items, created_at, updated_at
	FROM invoices`

func (r *InvoiceRepo) scanOne(row pgx.Row) (*entity.Invoice, error) {
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return inv, nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var items []byte
	err := row.Scan(
		&inv.ID, &inv.Customer, &inv.Amount, &inv.Reference,
		&inv.Date, &items, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	var rows []invoiceItemRow
	if err := json.Unmarshal(items, &rows); err != nil {
		return nil, fmt.Errorf("deserializar items: %w", err)
	}
	inv.Items = make([]entity.InvoiceItem, 0, len(rows))
	for _, it := range rows {
		inv.Items = append(inv.Items, entity.InvoiceItem{SKU: it.SKU, Quantity: it.Quantity})
	}
	return &inv, nil
}

func marshalItems(items []entity.InvoiceItem) ([]byte, error) {
	rows := make([]invoiceItemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, invoiceItemRow{SKU: it.SKU, Quantity: it.Quantity})
	}
	return json.Marshal(rows)
}
