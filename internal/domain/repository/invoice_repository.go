package repository

import (
	"context"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
)

// InvoiceRepository contrato de persistencia de comprobantes.
//
// Create/CreateItem se invocan una sola vez por comprobante, dentro de la misma
// transacción que asigna el correlativo. UpdateGatewayState es el único camino
// de mutación posterior y solo escribe campos de estado de pasarela (ticket,
// status, response, error, sent_at, processed_at); la identidad del comprobante
// es inmutable.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *entity.Invoice) error
	CreateItem(ctx context.Context, item *entity.InvoiceItem) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetItemsByInvoiceID(ctx context.Context, invoiceID string) ([]entity.InvoiceItem, error)
	UpdateGatewayState(ctx context.Context, inv *entity.Invoice) error

	// ListPendingGateway devuelve comprobantes con estado pending o processing,
	// opcionalmente acotados a un emisor (tenantID vacío = todos).
	ListPendingGateway(ctx context.Context, tenantID string, limit int) ([]*entity.Invoice, error)

	// ListByTenant lista los comprobantes más recientes de un emisor.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*entity.Invoice, error)
}
