package billing

import (
	"context"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
)

// BillingTxRunner ejecuta una función dentro de una transacción que incluye
// los repositorios de series y comprobantes atados a la misma tx.
//
// Es la frontera transaccional de la emisión: la asignación del correlativo
// (SELECT ... FOR UPDATE + UPDATE) y el INSERT del comprobante comparten la
// transacción, de modo que un fallo en la escritura revierte también el
// incremento y no deja huecos de numeración.
type BillingTxRunner interface {
	RunBilling(ctx context.Context, fn func(
		seriesRepo repository.SeriesRepository,
		invoiceRepo repository.InvoiceRepository,
	) error) error
}

// AsyncSubmitter dispara el envío a la pasarela fuera del ciclo de la petición.
// La emisión no espera a SUNAT: el comprobante queda en pending y el envío
// corre en su propia goroutine (o lo recoge después el reconciliador).
type AsyncSubmitter interface {
	SubmitAsync(invoiceID string)
}

// InvoicePDFGenerator genera la representación impresa del comprobante.
type InvoicePDFGenerator interface {
	GenerateInvoicePDF(ctx context.Context, invoice *entity.Invoice, tenant *entity.Tenant, items []entity.InvoiceItem) ([]byte, error)
}
