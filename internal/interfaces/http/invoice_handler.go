package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/luisvera/facturacion-pe/internal/application/billing"
	"github.com/luisvera/facturacion-pe/internal/application/dto"
	"github.com/luisvera/facturacion-pe/internal/domain"
)

// InvoiceHandler maneja las peticiones HTTP de emisión de comprobantes (protegido).
type InvoiceHandler struct {
	issueUC   *billing.IssueInvoiceUseCase
	submitter *billing.GatewaySubmitter
	pdfUC     *billing.PDFUseCase
}

// NewInvoiceHandler construye el handler.
func NewInvoiceHandler(issueUC *billing.IssueInvoiceUseCase, submitter *billing.GatewaySubmitter, pdfUC *billing.PDFUseCase) *InvoiceHandler {
	return &InvoiceHandler{issueUC: issueUC, submitter: submitter, pdfUC: pdfUC}
}

// Issue emite una factura o boleta a partir del snapshot de un pedido.
// POST /api/invoices
func (h *InvoiceHandler) Issue(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	var in dto.IssueInvoiceRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	invoice, err := h.issueUC.IssueInvoice(c.Context(), tenantID, in)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// IssueNote emite una nota de crédito o débito referenciando al comprobante de la URL.
// POST /api/invoices/:id/notes
func (h *InvoiceHandler) IssueNote(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	if tenantID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
	}
	referenceID := c.Params("id")
	var in dto.IssueNoteRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	note, err := h.issueUC.IssueNote(c.Context(), tenantID, referenceID, in)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetByID obtiene el detalle completo de un comprobante.
// GET /api/invoices/:id
func (h *InvoiceHandler) GetByID(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	invoice, err := h.issueUC.GetInvoice(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(invoice)
}

// List lista los comprobantes del emisor.
// GET /api/invoices
func (h *InvoiceHandler) List(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	var page dto.PageRequest
	if err := c.QueryParser(&page); err == nil {
		page.DefaultPage()
	} else {
		page = dto.PageRequest{Limit: 20}
	}
	list, err := h.issueUC.ListInvoices(c.Context(), tenantID, page.Limit)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(list)
}

// Resubmit fuerza el reenvío a SUNAT de un comprobante en error.
// POST /api/invoices/:id/submit
func (h *InvoiceHandler) Resubmit(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	inv, err := h.issueUC.GetInvoice(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return mapBillingError(c, err)
	}
	updated, err := h.submitter.Resubmit(c.Context(), inv.ID)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":             updated.ID,
		"gateway_status": updated.GatewayStatus,
		"gateway_ticket": updated.GatewayTicket,
	})
}

// Refresh consulta el ticket del comprobante en la pasarela y aplica el resultado.
// POST /api/invoices/:id/refresh
func (h *InvoiceHandler) Refresh(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	inv, err := h.issueUC.GetInvoice(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return mapBillingError(c, err)
	}
	updated, err := h.submitter.Poll(c.Context(), inv.ID)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(fiber.Map{
		"id":             updated.ID,
		"gateway_status": updated.GatewayStatus,
		"gateway_error":  updated.GatewayError,
	})
}

// DownloadPDF descarga la representación impresa del comprobante.
// GET /api/invoices/:id/pdf
func (h *InvoiceHandler) DownloadPDF(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	pdfBytes, filename, err := h.pdfUC.DownloadInvoicePDF(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return mapBillingError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdfBytes)
}

// Reconcile corre una pasada de conciliación para el emisor del token.
// POST /api/invoices/reconcile
func (h *InvoiceHandler) Reconcile(c *fiber.Ctx) error {
	tenantID := GetTenantID(c)
	polled, err := h.submitter.ReconcilePending(c.Context(), tenantID, 100)
	if err != nil {
		return mapBillingError(c, err)
	}
	return c.JSON(dto.ReconcileResponse{Polled: polled})
}

// mapBillingError traduce los errores de dominio a códigos HTTP.
func mapBillingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrSeriesNotFound), errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrSeriesInactive):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "SERIES_INACTIVE", Message: err.Error()})
	case errors.Is(err, domain.ErrAllocationConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "ALLOCATION_CONFLICT", Message: "numeración ocupada, reintente la emisión"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
