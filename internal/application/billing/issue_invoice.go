package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luisvera/facturacion-pe/internal/application/dto"
	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
	domainsunat "github.com/luisvera/facturacion-pe/internal/domain/sunat"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// IssueInvoiceUseCase emite comprobantes: valida el snapshot del pedido, asigna
// el correlativo y persiste el comprobante en una sola transacción, y dispara
// el envío asíncrono a la pasarela.
//
// Garantía: si IssueInvoice retorna éxito, el comprobante existe con un
// correlativo único e inmutable. Si falla la validación, no se consumió
// numeración. El caller no debe repetir la llamada para el mismo
// (order_id, doc_type) sin control de idempotencia propio; la restricción
// única (tenant, serie, correlativo) protege contra duplicados de numeración,
// no contra doble emisión lógica.
type IssueInvoiceUseCase struct {
	txRunner    BillingTxRunner
	tenantRepo  repository.TenantRepository
	invoiceRepo repository.InvoiceRepository
	submitter   AsyncSubmitter
	igvRate     decimal.Decimal
}

// NewIssueInvoiceUseCase construye el caso de uso. submitter puede ser nil:
// en ese caso los comprobantes quedan en pending hasta que el reconciliador
// los recoja.
func NewIssueInvoiceUseCase(
	txRunner BillingTxRunner,
	tenantRepo repository.TenantRepository,
	invoiceRepo repository.InvoiceRepository,
	submitter AsyncSubmitter,
	igvRate decimal.Decimal,
) *IssueInvoiceUseCase {
	return &IssueInvoiceUseCase{
		txRunner:    txRunner,
		tenantRepo:  tenantRepo,
		invoiceRepo: invoiceRepo,
		submitter:   submitter,
		igvRate:     igvRate,
	}
}

// IssueInvoice emite una factura (01) o boleta (03) a partir del snapshot del
// pedido. La validación completa corre antes de tocar la serie.
func (uc *IssueInvoiceUseCase) IssueInvoice(ctx context.Context, tenantID string, in dto.IssueInvoiceRequest) (*dto.InvoiceResponse, error) {
	if in.DocType != pkgsunat.DocTypeFactura && in.DocType != pkgsunat.DocTypeBoleta {
		return nil, fmt.Errorf("%w: tipo de comprobante %q no es emisión directa", domain.ErrInvalidInput, in.DocType)
	}
	return uc.issue(ctx, tenantID, in, nil, "")
}

// IssueNote emite una nota de crédito (07) o débito (08) referenciando un
// comprobante previo del mismo emisor. Si la nota no trae líneas propias,
// hereda las del original (anulación o devolución total).
func (uc *IssueInvoiceUseCase) IssueNote(ctx context.Context, tenantID, referenceID string, in dto.IssueNoteRequest) (*dto.InvoiceResponse, error) {
	if !pkgsunat.IsNote(in.DocType) {
		return nil, fmt.Errorf("%w: tipo de nota %q inválido", domain.ErrInvalidInput, in.DocType)
	}

	ref, err := uc.invoiceRepo.GetByID(ctx, referenceID)
	if err != nil {
		return nil, fmt.Errorf("obtener comprobante de referencia: %w", err)
	}
	if ref == nil {
		return nil, domain.ErrNotFound
	}
	if ref.TenantID != tenantID {
		return nil, domain.ErrForbidden
	}

	items := in.Items
	if len(items) == 0 {
		refItems, err := uc.invoiceRepo.GetItemsByInvoiceID(ctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("obtener líneas del comprobante de referencia: %w", err)
		}
		for _, it := range refItems {
			items = append(items, dto.InvoiceItemInput{
				SKU:         it.SKU,
				Description: it.Description,
				UnitPrice:   it.UnitPrice,
				Quantity:    it.Quantity,
				Subtotal:    it.Subtotal,
			})
		}
	}

	lines := toOrderLines(items)
	subtotal, igv, total := domainsunat.ComputeTotals(lines, uc.igvRate)

	req := dto.IssueInvoiceRequest{
		OrderID:         ref.OrderID,
		DocType:         in.DocType,
		Serie:           in.Serie,
		CustomerDocType: ref.CustomerDocType,
		CustomerDocNum:  ref.CustomerDocNum,
		CustomerName:    ref.CustomerName,
		CustomerEmail:   ref.CustomerEmail,
		Currency:        ref.Currency,
		Subtotal:        subtotal,
		IGV:             igv,
		Total:           total,
		Items:           items,
	}
	return uc.issue(ctx, tenantID, req, ref, in.Reason)
}

// issue es el núcleo compartido: validación completa, luego transacción
// correlativo + INSERT, luego envío asíncrono.
func (uc *IssueInvoiceUseCase) issue(ctx context.Context, tenantID string, in dto.IssueInvoiceRequest, ref *entity.Invoice, reason string) (*dto.InvoiceResponse, error) {
	// ── Validación (ningún correlativo se consume si algo falla aquí) ─────────
	if tenantID == "" || in.Serie == "" {
		return nil, domain.ErrInvalidInput
	}
	if err := pkgsunat.ValidateSerie(in.Serie); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if !pkgsunat.ValidCurrencies[in.Currency] {
		return nil, fmt.Errorf("%w: moneda %q no soportada", domain.ErrInvalidInput, in.Currency)
	}
	if err := domainsunat.ValidateCustomer(in.DocType, in.CustomerDocType, in.CustomerDocNum, in.CustomerName); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	lines := toOrderLines(in.Items)
	if err := domainsunat.ValidateLines(lines); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := domainsunat.ValidateTotals(in.Subtotal, in.IGV, in.Total, lines, uc.igvRate); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := domainsunat.ValidateReference(in.DocType, ref, tenantID, in.CustomerDocNum, reason); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	tenant, err := uc.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("obtener emisor: %w", err)
	}
	if tenant == nil || !tenant.IsActive {
		return nil, domain.ErrForbidden
	}

	// Totales normalizados a 2 decimales (el origen puede traer más precisión)
	subtotal, igv, total := domainsunat.ComputeTotals(lines, uc.igvRate)

	now := time.Now()
	inv := &entity.Invoice{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		OrderID:         in.OrderID,
		DocType:         in.DocType,
		Serie:           in.Serie,
		IssuerRUC:       tenant.RUC,
		IssuerName:      tenant.LegalName,
		CustomerDocType: in.CustomerDocType,
		CustomerDocNum:  in.CustomerDocNum,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.CustomerEmail,
		Currency:        in.Currency,
		Subtotal:        subtotal,
		IGV:             igv,
		Total:           total,
		GatewayStatus:   entity.GatewayStatusPending,
		IssuedAt:        now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if ref != nil {
		inv.ReferenceID = ref.ID
		inv.ReferenceDocType = ref.DocType
		inv.ReferenceSerie = ref.Serie
		inv.ReferenceCorrelative = ref.Correlative
		inv.ReferenceReason = reason
	}

	// ── Correlativo + INSERT en una sola transacción ──────────────────────────
	// El candado de la fila de la serie se mantiene hasta el Commit: otro
	// emisor concurrente de la MISMA serie espera; series distintas no.
	err = uc.txRunner.RunBilling(ctx, func(
		seriesRepo repository.SeriesRepository,
		invoiceRepo repository.InvoiceRepository,
	) error {
		correlative, err := seriesRepo.AllocateNext(ctx, tenantID, in.Serie, in.DocType)
		if err != nil {
			return err
		}
		inv.Correlative = correlative

		if err := invoiceRepo.Create(ctx, inv); err != nil {
			// El rollback revierte también el incremento: sin hueco ni duplicado.
			return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
		}
		for _, l := range lines {
			item := entity.InvoiceItem{
				ID:          uuid.New().String(),
				InvoiceID:   inv.ID,
				SKU:         l.SKU,
				Description: l.Description,
				UnitPrice:   l.UnitPrice,
				Quantity:    l.Quantity,
				Subtotal:    l.UnitPrice.Mul(l.Quantity).Round(2),
			}
			if err := invoiceRepo.CreateItem(ctx, &item); err != nil {
				return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
			}
			inv.Items = append(inv.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// ── Envío asíncrono (el ciclo HTTP no espera a SUNAT) ─────────────────────
	if uc.submitter != nil {
		uc.submitter.SubmitAsync(inv.ID)
	}

	return toInvoiceResponse(inv, inv.Items), nil
}

// GetInvoice obtiene un comprobante por ID con sus líneas.
func (uc *IssueInvoiceUseCase) GetInvoice(ctx context.Context, tenantID, id string) (*dto.InvoiceResponse, error) {
	inv, err := uc.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	if inv.TenantID != tenantID {
		return nil, domain.ErrForbidden
	}
	items, err := uc.invoiceRepo.GetItemsByInvoiceID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInvoiceResponse(inv, items), nil
}

// ListInvoices lista los comprobantes recientes del emisor.
func (uc *IssueInvoiceUseCase) ListInvoices(ctx context.Context, tenantID string, limit int) ([]*dto.InvoiceResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	list, err := uc.invoiceRepo.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*dto.InvoiceResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toInvoiceResponse(inv, nil))
	}
	return out, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func toOrderLines(items []dto.InvoiceItemInput) []domainsunat.OrderLine {
	lines := make([]domainsunat.OrderLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, domainsunat.OrderLine{
			SKU:         it.SKU,
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return lines
}

func toInvoiceResponse(inv *entity.Invoice, items []entity.InvoiceItem) *dto.InvoiceResponse {
	resp := &dto.InvoiceResponse{
		ID:              inv.ID,
		TenantID:        inv.TenantID,
		OrderID:         inv.OrderID,
		DocType:         inv.DocType,
		Serie:           inv.Serie,
		Correlative:     inv.Correlative,
		FullNumber:      inv.FullNumber(),
		IssuerRUC:       inv.IssuerRUC,
		IssuerName:      inv.IssuerName,
		CustomerDocType: inv.CustomerDocType,
		CustomerDocNum:  inv.CustomerDocNum,
		CustomerName:    inv.CustomerName,
		Currency:        inv.Currency,
		Subtotal:        inv.Subtotal,
		IGV:             inv.IGV,
		Total:           inv.Total,
		IssuedAt:        inv.IssuedAt.Format("2006-01-02"),
		GatewayStatus:   inv.GatewayStatus,
		GatewayTicket:   inv.GatewayTicket,
		GatewayError:    inv.GatewayError,
		Items:           make([]dto.InvoiceItemResponse, 0, len(items)),
	}
	if inv.ReferenceID != "" {
		resp.Reference = &dto.InvoiceReferenceDTO{
			InvoiceID:   inv.ReferenceID,
			DocType:     inv.ReferenceDocType,
			Serie:       inv.ReferenceSerie,
			Correlative: inv.ReferenceCorrelative,
			Reason:      inv.ReferenceReason,
		}
	}
	for _, it := range items {
		resp.Items = append(resp.Items, dto.InvoiceItemResponse{
			ID:          it.ID,
			SKU:         it.SKU,
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    it.Quantity,
			Subtotal:    it.Subtotal,
		})
	}
	return resp
}
