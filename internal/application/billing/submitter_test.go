package billing

import (
	"context"
	"crypto/tls"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	infrasunat "github.com/luisvera/facturacion-pe/internal/infrastructure/sunat"
	"github.com/luisvera/facturacion-pe/pkg/logger"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

type submitterFixture struct {
	sub     *GatewaySubmitter
	st      *memStore
	gateway *scriptedGateway
}

func newSubmitterFixture() *submitterFixture {
	st := newMemStore()
	gw := newScriptedGateway()
	tenantRepo := &fakeTenantRepo{tenants: map[string]*entity.Tenant{
		tenantLima: activeTenant(),
	}}
	sub := NewGatewaySubmitter(
		&fakeInvoiceRepo{st: st},
		tenantRepo,
		infrasunat.NewUBLBuilder(),
		infrasunat.NewDigitalSignatureService(),
		gw,
		tls.Certificate{}, // sin certificado: la firma es passthrough
		logger.New(logger.Config{Env: "development", Level: "error"}),
	)
	return &submitterFixture{sub: sub, st: st, gateway: gw}
}

// seedPending registra un comprobante emitido listo para envío.
func (f *submitterFixture) seedPending(id string, status string) *entity.Invoice {
	now := time.Now()
	inv := &entity.Invoice{
		ID:              id,
		TenantID:        tenantLima,
		DocType:         pkgsunat.DocTypeFactura,
		Serie:           "F001",
		Correlative:     7,
		IssuerRUC:       "20131312955",
		IssuerName:      "COMERCIAL DEL SUR S.A.C.",
		CustomerDocType: pkgsunat.IdentityTypeRUC,
		CustomerDocNum:  "20131312955",
		CustomerName:    "DISTRIBUIDORA ANDINA S.A.C.",
		Currency:        pkgsunat.CurrencyPEN,
		Subtotal:        dec("218.00"),
		IGV:             dec("39.24"),
		Total:           dec("257.24"),
		GatewayStatus:   status,
		IssuedAt:        now,
		CreatedAt:       now,
	}
	f.st.invoices[inv.ID] = inv
	f.st.items[inv.ID] = []entity.InvoiceItem{{
		ID: "item-" + id, InvoiceID: inv.ID, SKU: "SKU-TECLADO",
		Description: "Teclado mecánico",
		UnitPrice:   dec("109.00"), Quantity: dec("2"), Subtotal: dec("218.00"),
	}}
	return inv
}

func TestSubmit_PendingPasaAProcessing(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-1", entity.GatewayStatusPending)

	inv, err := f.sub.Submit(context.Background(), "inv-1")
	require.NoError(t, err)

	assert.Equal(t, entity.GatewayStatusProcessing, inv.GatewayStatus)
	assert.Equal(t, "TICKET-1", inv.GatewayTicket)
	require.NotNil(t, inv.SentAt)
	require.Len(t, f.gateway.submitted, 1)
	assert.Equal(t, "20131312955-01-F001-00000007.zip", f.gateway.submitted[0])

	// El estado quedó persistido, no solo en memoria del caller.
	stored := f.st.invoices["inv-1"]
	assert.Equal(t, entity.GatewayStatusProcessing, stored.GatewayStatus)
	assert.Equal(t, "TICKET-1", stored.GatewayTicket)
}

func TestSubmit_IdempotentePorEstado(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-proc", entity.GatewayStatusProcessing)
	f.seedPending("inv-ok", entity.GatewayStatusSuccess)

	for _, id := range []string{"inv-proc", "inv-ok"} {
		inv, err := f.sub.Submit(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, f.st.invoices[id].GatewayStatus, inv.GatewayStatus)
	}
	assert.Zero(t, f.gateway.submitCalls, "un comprobante en vuelo o aceptado no se reenvía")
}

func TestSubmit_FalloDePasarelaQuedaEnError(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-1", entity.GatewayStatusPending)
	f.gateway.submitErr = errors.New("503 service unavailable")

	// El fallo queda registrado en el estado; Submit no lo propaga.
	inv, err := f.sub.Submit(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusError, inv.GatewayStatus)
	assert.Contains(t, inv.GatewayError, "gateway-submit")
	assert.Contains(t, inv.GatewayError, "503")
	assert.Empty(t, inv.GatewayTicket)
}

func TestSubmit_TimeoutDePasarelaQuedaRegistrado(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-1", entity.GatewayStatusPending)
	f.gateway.submitErr = context.DeadlineExceeded

	// Un timeout del envío se absorbe igual que cualquier fallo de red: el
	// comprobante queda en error con el detalle y lo retoma el reconciliador.
	inv, err := f.sub.Submit(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusError, inv.GatewayStatus)
	assert.Contains(t, inv.GatewayError, "gateway-submit")
	assert.Contains(t, inv.GatewayError, context.DeadlineExceeded.Error())
	assert.Empty(t, inv.GatewayTicket)
}

func TestSubmit_ReintentoDesdeErrorLimpiaElDetalle(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-1", entity.GatewayStatusError)
	inv.GatewayError = "gateway-submit: 503 service unavailable"

	out, err := f.sub.Submit(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusProcessing, out.GatewayStatus)
	assert.Empty(t, out.GatewayError)
}

func TestSubmit_ComprobanteInexistente(t *testing.T) {
	f := newSubmitterFixture()

	_, err := f.sub.Submit(context.Background(), "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPoll_TicketAceptado(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-1", entity.GatewayStatusProcessing)
	inv.GatewayTicket = "TICKET-9"
	f.gateway.statuses["TICKET-9"] = &infrasunat.TicketStatus{
		Terminal: true, Accepted: true, Response: `{"codRespuesta":"0"}`,
	}

	out, err := f.sub.Poll(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusSuccess, out.GatewayStatus)
	assert.Equal(t, `{"codRespuesta":"0"}`, out.GatewayResponse)
	require.NotNil(t, out.ProcessedAt)
}

func TestPoll_TicketRechazado(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-1", entity.GatewayStatusProcessing)
	inv.GatewayTicket = "TICKET-9"
	f.gateway.statuses["TICKET-9"] = &infrasunat.TicketStatus{
		Terminal: true, Accepted: false,
		Response: `{"codRespuesta":"99"}`,
		Error:    "2335: el número del comprobante ya fue informado",
	}

	out, err := f.sub.Poll(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusError, out.GatewayStatus)
	assert.Contains(t, out.GatewayError, "2335")
	require.NotNil(t, out.ProcessedAt)
}

func TestPoll_EnProcesoNoCambiaEstado(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-1", entity.GatewayStatusProcessing)
	inv.GatewayTicket = "TICKET-9"

	out, err := f.sub.Poll(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusProcessing, out.GatewayStatus)
	assert.Nil(t, out.ProcessedAt)
}

func TestPoll_ConsultaFallidaConservaElTicket(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-1", entity.GatewayStatusProcessing)
	inv.GatewayTicket = "TICKET-9"
	f.gateway.queryErr = errors.New("timeout")

	out, err := f.sub.Poll(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusProcessing, out.GatewayStatus)
	assert.Equal(t, "TICKET-9", out.GatewayTicket)
}

func TestPoll_SinTicketEsNoOp(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-1", entity.GatewayStatusPending)

	out, err := f.sub.Poll(context.Background(), "inv-1")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusPending, out.GatewayStatus)
	assert.Zero(t, f.gateway.queryCalls)
}

func TestReconcilePending_EnviaYConsulta(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-pending", entity.GatewayStatusPending)
	proc := f.seedPending("inv-proc", entity.GatewayStatusProcessing)
	proc.GatewayTicket = "TICKET-9"
	f.seedPending("inv-err", entity.GatewayStatusError)
	f.seedPending("inv-ok", entity.GatewayStatusSuccess)
	f.gateway.statuses["TICKET-9"] = &infrasunat.TicketStatus{Terminal: true, Accepted: true}

	polled, err := f.sub.ReconcilePending(context.Background(), "", 100)
	require.NoError(t, err)

	// success es terminal y no entra a la pasada.
	assert.Equal(t, 3, polled)
	assert.Equal(t, entity.GatewayStatusProcessing, f.st.invoices["inv-pending"].GatewayStatus)
	assert.Equal(t, entity.GatewayStatusSuccess, f.st.invoices["inv-proc"].GatewayStatus)
	assert.Equal(t, entity.GatewayStatusProcessing, f.st.invoices["inv-err"].GatewayStatus)
	assert.Equal(t, entity.GatewayStatusSuccess, f.st.invoices["inv-ok"].GatewayStatus)
}

func TestReconcilePending_SinPendientes(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-ok", entity.GatewayStatusSuccess)

	polled, err := f.sub.ReconcilePending(context.Background(), "", 100)
	require.NoError(t, err)
	assert.Zero(t, polled)
}

func TestResubmit_RechazaAceptadosYEnVuelo(t *testing.T) {
	f := newSubmitterFixture()
	f.seedPending("inv-ok", entity.GatewayStatusSuccess)
	proc := f.seedPending("inv-proc", entity.GatewayStatusProcessing)
	proc.GatewayTicket = "TICKET-9"

	_, err := f.sub.Resubmit(context.Background(), "inv-ok")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.sub.Resubmit(context.Background(), "inv-proc")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResubmit_DesdeError(t *testing.T) {
	f := newSubmitterFixture()
	inv := f.seedPending("inv-err", entity.GatewayStatusError)
	inv.GatewayError = "gateway-submit: 503"

	out, err := f.sub.Resubmit(context.Background(), "inv-err")
	require.NoError(t, err)
	assert.Equal(t, entity.GatewayStatusProcessing, out.GatewayStatus)
	assert.NotEmpty(t, out.GatewayTicket)
}
