package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id, tenant_id, order_id, doc_type, serie, correlative,
	issuer_ruc, issuer_name,
	customer_doc_type, customer_doc_num, customer_name, customer_email,
	currency, subtotal, igv, total,
	reference_id, reference_doc_type, reference_serie, reference_correlative, reference_reason,
	gateway_ticket, gateway_status, gateway_response, gateway_error, sent_at, processed_at,
	issued_at, created_at, updated_at`

// Create persiste la cabecera del comprobante. (tenant_id, serie, correlative)
// tiene constraint único: dos comprobantes nunca comparten numeración.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO invoices (` + `
			id, tenant_id, order_id, doc_type, serie, correlative,
			issuer_ruc, issuer_name,
			customer_doc_type, customer_doc_num, customer_name, customer_email,
			currency, subtotal, igv, total,
			reference_id, reference_doc_type, reference_serie, reference_correlative, reference_reason,
			gateway_status, issued_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20, $21,
			$22, $23, now(), now()
		)`
	_, err := r.q.Exec(ctx, q,
		inv.ID, inv.TenantID, nullIfEmpty(inv.OrderID), inv.DocType, inv.Serie, inv.Correlative,
		inv.IssuerRUC, inv.IssuerName,
		inv.CustomerDocType, inv.CustomerDocNum, inv.CustomerName, nullIfEmpty(inv.CustomerEmail),
		inv.Currency, inv.Subtotal, inv.IGV, inv.Total,
		nullIfEmpty(inv.ReferenceID), nullIfEmpty(inv.ReferenceDocType), nullIfEmpty(inv.ReferenceSerie),
		zeroToNil(inv.ReferenceCorrelative), nullIfEmpty(inv.ReferenceReason),
		inv.GatewayStatus, inv.IssuedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: numeración %s ya registrada", domain.ErrDuplicate, inv.FullNumber())
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// CreateItem persiste una línea del comprobante.
func (r *InvoiceRepo) CreateItem(ctx context.Context, item *entity.InvoiceItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	const q = `
		INSERT INTO invoice_items (id, invoice_id, sku, description, unit_price, quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.q.Exec(ctx, q,
		item.ID, item.InvoiceID, nullIfEmpty(item.SKU), item.Description,
		item.UnitPrice, item.Quantity, item.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert invoice_item: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepo) GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]entity.InvoiceItem, error) {
	const q = `
		SELECT id, invoice_id, COALESCE(sku, ''), description, unit_price, quantity, subtotal
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY id`
	rows, err := r.q.Query(ctx, q, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list invoice_items: %w", err)
	}
	defer rows.Close()
	var items []entity.InvoiceItem
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.SKU, &it.Description,
			&it.UnitPrice, &it.Quantity, &it.Subtotal); err != nil {
			return nil, fmt.Errorf("scan invoice_item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateGatewayState escribe únicamente los campos de estado frente a la
// pasarela. La identidad del comprobante (tipo, serie, correlativo, montos,
// líneas) no tiene camino de actualización.
func (r *InvoiceRepo) UpdateGatewayState(ctx context.Context, inv *entity.Invoice) error {
	const q = `
		UPDATE invoices
		SET gateway_ticket   = COALESCE($2, gateway_ticket),
		    gateway_status   = $3,
		    gateway_response = COALESCE($4, gateway_response),
		    gateway_error    = $5,
		    sent_at          = COALESCE($6, sent_at),
		    processed_at     = COALESCE($7, processed_at),
		    updated_at       = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, q,
		inv.ID,
		nullIfEmpty(inv.GatewayTicket),
		inv.GatewayStatus,
		nullIfEmpty(inv.GatewayResponse),
		inv.GatewayError,
		inv.SentAt,
		inv.ProcessedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice gateway state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: comprobante %s", domain.ErrNotFound, inv.ID)
	}
	return nil
}

// ListPendingGateway devuelve comprobantes en pending, processing o error
// (candidatos a envío/consulta del reconciliador), los más antiguos primero.
func (r *InvoiceRepo) ListPendingGateway(ctx context.Context, tenantID string, limit int) ([]*entity.Invoice, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE gateway_status IN ('pending', 'processing', 'error')
		  AND ($1 = '' OR tenant_id = $1)
		ORDER BY created_at
		LIMIT $2`
	return r.queryInvoices(ctx, q, tenantID, limit)
}

// ListByTenant lista los comprobantes más recientes del emisor.
func (r *InvoiceRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*entity.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.queryInvoices(ctx, q, tenantID, limit)
}

func (r *InvoiceRepo) queryInvoices(ctx context.Context, q string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// ── helpers ───────────────────────────────────────────────────────────────────

func scanInvoice(row pgxScanner) (*entity.Invoice, error) {
	var inv entity.Invoice
	var orderID, customerEmail *string
	var refID, refDocType, refSerie, refReason *string
	var refCorrelative *int64
	var ticket, response, gerr *string

	if err := row.Scan(
		&inv.ID, &inv.TenantID, &orderID, &inv.DocType, &inv.Serie, &inv.Correlative,
		&inv.IssuerRUC, &inv.IssuerName,
		&inv.CustomerDocType, &inv.CustomerDocNum, &inv.CustomerName, &customerEmail,
		&inv.Currency, &inv.Subtotal, &inv.IGV, &inv.Total,
		&refID, &refDocType, &refSerie, &refCorrelative, &refReason,
		&ticket, &inv.GatewayStatus, &response, &gerr, &inv.SentAt, &inv.ProcessedAt,
		&inv.IssuedAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, err
	}

	inv.OrderID = deref(orderID)
	inv.CustomerEmail = deref(customerEmail)
	inv.ReferenceID = deref(refID)
	inv.ReferenceDocType = deref(refDocType)
	inv.ReferenceSerie = deref(refSerie)
	if refCorrelative != nil {
		inv.ReferenceCorrelative = *refCorrelative
	}
	inv.ReferenceReason = deref(refReason)
	inv.GatewayTicket = deref(ticket)
	inv.GatewayResponse = deref(response)
	inv.GatewayError = deref(gerr)
	return &inv, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func zeroToNil(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
