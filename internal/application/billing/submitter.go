package billing

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
	infrasunat "github.com/luisvera/facturacion-pe/internal/infrastructure/sunat"
	"github.com/luisvera/facturacion-pe/pkg/logger"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// número máximo de envíos/consultas concurrentes durante la reconciliación
const reconcileConcurrency = 4

// GatewaySubmitter orquesta el ciclo de envío a SUNAT:
//
//	XML UBL 2.1 → Firma → ZIP → Envío REST → ticket → polling → CDR
//
// El envío corre fuera del ciclo HTTP (SubmitAsync) con su propio
// context.Background() + timeout 30 s. Un fallo de envío nunca toca la
// identidad del comprobante: solo transiciona el estado de pasarela a error,
// y el reconciliador lo reintenta con el mismo serie-correlativo.
type GatewaySubmitter struct {
	invoiceRepo repository.InvoiceRepository
	tenantRepo  repository.TenantRepository
	ublBuilder  *infrasunat.UBLBuilder
	signer      pkgsunat.Signer
	gateway     infrasunat.DocumentGateway
	cert        tls.Certificate
	log         *logger.Logger
}

var _ AsyncSubmitter = (*GatewaySubmitter)(nil)

// NewGatewaySubmitter construye el orquestador con sus dependencias. cert
// puede ser vacío (modo simulado: el firmador devuelve el XML sin firmar).
func NewGatewaySubmitter(
	invoiceRepo repository.InvoiceRepository,
	tenantRepo repository.TenantRepository,
	ublBuilder *infrasunat.UBLBuilder,
	signer pkgsunat.Signer,
	gateway infrasunat.DocumentGateway,
	cert tls.Certificate,
	log *logger.Logger,
) *GatewaySubmitter {
	return &GatewaySubmitter{
		invoiceRepo: invoiceRepo,
		tenantRepo:  tenantRepo,
		ublBuilder:  ublBuilder,
		signer:      signer,
		gateway:     gateway,
		cert:        cert,
		log:         log.WithComponent("pasarela"),
	}
}

// SubmitAsync dispara el envío en una goroutine independiente, desacoplada del
// ciclo de la petición HTTP.
func (s *GatewaySubmitter) SubmitAsync(invoiceID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Submit(ctx, invoiceID); err != nil {
			s.log.Error().Err(err).Str("invoice_id", invoiceID).Msg("envío asíncrono falló")
		}
	}()
}

// Submit envía un comprobante a la pasarela. Es idempotente por estado:
//
//   - processing o success → no-op, devuelve el comprobante tal cual (el
//     ticket ya otorgado se conserva; nunca se re-envía un documento aceptado)
//   - pending o error → construye, firma, empaqueta y envía
//
// Un fallo del envío en sí (red, rechazo síncrono) NO retorna error: queda
// absorbido en el estado — el comprobante pasa a error con el detalle en
// GatewayError y el reconciliador lo reintenta después. Solo los fallos de
// lectura/persistencia locales retornan error.
func (s *GatewaySubmitter) Submit(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar comprobante %s: %w", invoiceID, err)
	}

	switch inv.GatewayStatus {
	case entity.GatewayStatusProcessing, entity.GatewayStatusSuccess:
		return inv, nil
	}

	tenant, err := s.tenantRepo.GetByID(ctx, inv.TenantID)
	if err != nil {
		return nil, fmt.Errorf("cargar emisor %s: %w", inv.TenantID, err)
	}

	items, err := s.invoiceRepo.GetItemsByInvoiceID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("cargar líneas de %s: %w", inv.ID, err)
	}

	// markError transiciona a error y persiste; el fallo queda en el estado.
	markError := func(step string, cause error) (*entity.Invoice, error) {
		inv.GatewayStatus = entity.GatewayStatusError
		inv.GatewayError = fmt.Sprintf("%s: %v", step, cause)
		inv.UpdatedAt = time.Now()
		if uerr := s.invoiceRepo.UpdateGatewayState(ctx, inv); uerr != nil {
			return nil, fmt.Errorf("persistir error de envío de %s: %w", inv.ID, uerr)
		}
		s.log.Warn().Str("invoice_id", inv.ID).Str("step", step).Err(cause).
			Msg("envío a la pasarela falló; comprobante en error")
		return inv, nil
	}

	xmlBytes, err := s.ublBuilder.Build(&infrasunat.DocumentContext{
		Invoice: inv,
		Tenant:  tenant,
		Items:   items,
	})
	if err != nil {
		return markError("xml-build", err)
	}

	signedXML, err := s.signer.Sign(xmlBytes, s.cert)
	if err != nil {
		return markError("xml-sign", err)
	}

	filename := pkgsunat.DocumentFilename(tenant.RUC, inv.DocType, inv.Serie, inv.Correlative)
	zipBytes, err := infrasunat.BuildZip(filename, signedXML)
	if err != nil {
		return markError("zip", err)
	}

	result, err := s.gateway.SubmitDocument(ctx, zipBytes, filename+".zip")
	if err != nil {
		return markError("gateway-submit", err)
	}

	now := time.Now()
	inv.GatewayTicket = result.Ticket
	inv.GatewayStatus = entity.GatewayStatusProcessing
	inv.GatewayError = ""
	inv.SentAt = &now
	inv.UpdatedAt = now
	if err := s.invoiceRepo.UpdateGatewayState(ctx, inv); err != nil {
		return nil, fmt.Errorf("persistir ticket de %s: %w", inv.ID, err)
	}

	s.log.Info().Str("invoice_id", inv.ID).Str("ticket", result.Ticket).
		Str("numero", inv.FullNumber()).Msg("comprobante enviado a la pasarela")
	return inv, nil
}

// Poll consulta el ticket de un comprobante en processing y aplica el
// resultado. Si la pasarela sigue procesando, el estado no cambia. El fallo
// de la consulta en sí tampoco cambia el estado: el ticket sigue vigente y se
// reconsultará después.
func (s *GatewaySubmitter) Poll(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("cargar comprobante %s: %w", invoiceID, err)
	}
	if inv.GatewayStatus != entity.GatewayStatusProcessing || inv.GatewayTicket == "" {
		return inv, nil
	}

	status, err := s.gateway.QueryTicket(ctx, inv.GatewayTicket)
	if err != nil {
		s.log.Warn().Str("invoice_id", inv.ID).Str("ticket", inv.GatewayTicket).Err(err).
			Msg("consulta de ticket falló; se reintentará")
		return inv, nil
	}
	if !status.Terminal {
		return inv, nil
	}

	now := time.Now()
	inv.GatewayResponse = status.Response
	inv.ProcessedAt = &now
	inv.UpdatedAt = now
	if status.Accepted {
		inv.GatewayStatus = entity.GatewayStatusSuccess
		inv.GatewayError = ""
	} else {
		inv.GatewayStatus = entity.GatewayStatusError
		inv.GatewayError = status.Error
	}
	if err := s.invoiceRepo.UpdateGatewayState(ctx, inv); err != nil {
		return nil, fmt.Errorf("persistir resultado de %s: %w", inv.ID, err)
	}

	s.log.Info().Str("invoice_id", inv.ID).Str("estado", inv.GatewayStatus).
		Str("numero", inv.FullNumber()).Msg("ticket resuelto")
	return inv, nil
}

// ReconcilePending recorre los comprobantes no terminales: envía los pending
// (y los error, que quedaron listos para reintento) y consulta los processing.
// tenantID vacío reconcilia todos los emisores. Los fallos por comprobante se
// registran y no abortan la pasada. Devuelve cuántos comprobantes se tocaron.
func (s *GatewaySubmitter) ReconcilePending(ctx context.Context, tenantID string, limit int) (int, error) {
	invoices, err := s.invoiceRepo.ListPendingGateway(ctx, tenantID, limit)
	if err != nil {
		return 0, fmt.Errorf("listar comprobantes pendientes: %w", err)
	}
	if len(invoices) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, inv := range invoices {
		inv := inv
		g.Go(func() error {
			var perr error
			switch inv.GatewayStatus {
			case entity.GatewayStatusProcessing:
				_, perr = s.Poll(gctx, inv.ID)
			default:
				_, perr = s.Submit(gctx, inv.ID)
			}
			if perr != nil {
				s.log.Error().Err(perr).Str("invoice_id", inv.ID).
					Msg("reconciliación de comprobante falló")
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().Int("total", len(invoices)).Str("tenant_id", tenantID).
		Msg("pasada de reconciliación completada")
	return len(invoices), nil
}

// Resubmit fuerza el reenvío de un comprobante en error (mismo correlativo).
// Un comprobante aceptado o en vuelo no se reenvía.
func (s *GatewaySubmitter) Resubmit(ctx context.Context, invoiceID string) (*entity.Invoice, error) {
	inv, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.GatewayStatus == entity.GatewayStatusSuccess {
		return nil, fmt.Errorf("%w: el comprobante %s ya fue aceptado", domain.ErrInvalidInput, inv.FullNumber())
	}
	if inv.GatewayStatus == entity.GatewayStatusProcessing {
		return nil, fmt.Errorf("%w: el comprobante %s está en proceso (ticket %s)", domain.ErrInvalidInput, inv.FullNumber(), inv.GatewayTicket)
	}
	return s.Submit(ctx, invoiceID)
}
