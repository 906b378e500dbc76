package billing

import (
	"context"
	"fmt"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
)

// PDFUseCase genera la representación impresa (PDF) de un comprobante.
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	tenantRepo  repository.TenantRepository
	generator   InvoicePDFGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(
	invoiceRepo repository.InvoiceRepository,
	tenantRepo repository.TenantRepository,
	generator InvoicePDFGenerator,
) *PDFUseCase {
	return &PDFUseCase{
		invoiceRepo: invoiceRepo,
		tenantRepo:  tenantRepo,
		generator:   generator,
	}
}

// DownloadInvoicePDF recupera el comprobante, verifica pertenencia al emisor
// del token y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil) si todo sale bien.
//   - domain.ErrNotFound        si el comprobante no existe.
//   - domain.ErrForbidden       si no pertenece al emisor del token.
func (uc *PDFUseCase) DownloadInvoicePDF(
	ctx context.Context,
	tenantID, invoiceID string,
) (pdfBytes []byte, filename string, err error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener comprobante: %w", err)
	}
	if inv.TenantID != tenantID {
		return nil, "", domain.ErrForbidden
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, inv.TenantID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener emisor: %w", err)
	}

	items, err := uc.invoiceRepo.GetItemsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener líneas: %w", err)
	}

	out, err := uc.generator.GenerateInvoicePDF(ctx, inv, tenant, items)
	if err != nil {
		return nil, "", err
	}
	return out, inv.FullNumber() + ".pdf", nil
}
