package billing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
	infrasunat "github.com/luisvera/facturacion-pe/internal/infrastructure/sunat"
)

// ──────────────────────────────────────────────────────────────────────────────
// Dobles en memoria: reproducen los contratos de los repositorios, incluida la
// semántica transaccional (rollback revierte el incremento de la serie).
// ──────────────────────────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	series   map[string]*entity.InvoiceSeries // key: tenantID|serie
	invoices map[string]*entity.Invoice
	items    map[string][]entity.InvoiceItem // key: invoiceID

	failInvoiceInsert bool // fuerza fallo del INSERT de la cabecera
}

func newMemStore() *memStore {
	return &memStore{
		series:   make(map[string]*entity.InvoiceSeries),
		invoices: make(map[string]*entity.Invoice),
		items:    make(map[string][]entity.InvoiceItem),
	}
}

func seriesKey(tenantID, serie string) string { return tenantID + "|" + serie }

func (s *memStore) addSeries(tenantID, docType, serie string, last int64, active bool) {
	s.series[seriesKey(tenantID, serie)] = &entity.InvoiceSeries{
		ID: "series-" + serie, TenantID: tenantID, DocType: docType,
		Serie: serie, LastCorrelative: last, IsActive: active,
	}
}

// ── SeriesRepository ──────────────────────────────────────────────────────────

type fakeSeriesRepo struct{ st *memStore }

var _ repository.SeriesRepository = (*fakeSeriesRepo)(nil)

func (r *fakeSeriesRepo) Create(_ context.Context, s *entity.InvoiceSeries) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	key := seriesKey(s.TenantID, s.Serie)
	if _, ok := r.st.series[key]; ok {
		return domain.ErrDuplicate
	}
	cp := *s
	r.st.series[key] = &cp
	return nil
}

func (r *fakeSeriesRepo) GetByTenantAndSerie(_ context.Context, tenantID, serie string) (*entity.InvoiceSeries, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.series[seriesKey(tenantID, serie)]
	if !ok {
		return nil, domain.ErrSeriesNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSeriesRepo) ListByTenant(_ context.Context, tenantID string) ([]*entity.InvoiceSeries, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*entity.InvoiceSeries
	for _, s := range r.st.series {
		if s.TenantID == tenantID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSeriesRepo) SetActive(_ context.Context, id string, active bool) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	for _, s := range r.st.series {
		if s.ID == id {
			s.IsActive = active
			return nil
		}
	}
	return domain.ErrSeriesNotFound
}

func (r *fakeSeriesRepo) AllocateNext(_ context.Context, tenantID, serie, docType string) (int64, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	s, ok := r.st.series[seriesKey(tenantID, serie)]
	if !ok {
		return 0, domain.ErrSeriesNotFound
	}
	if !s.IsActive {
		return 0, domain.ErrSeriesInactive
	}
	if s.DocType != docType {
		return 0, fmt.Errorf("%w: la serie %s numera comprobantes tipo %s, no %s",
			domain.ErrInvalidInput, serie, s.DocType, docType)
	}
	s.LastCorrelative++
	return s.LastCorrelative, nil
}

// ── InvoiceRepository ─────────────────────────────────────────────────────────

type fakeInvoiceRepo struct{ st *memStore }

var _ repository.InvoiceRepository = (*fakeInvoiceRepo)(nil)

func (r *fakeInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	if r.st.failInvoiceInsert {
		return fmt.Errorf("insert invoice: fallo simulado")
	}
	for _, existing := range r.st.invoices {
		if existing.TenantID == inv.TenantID && existing.Serie == inv.Serie && existing.Correlative == inv.Correlative {
			return domain.ErrDuplicate
		}
	}
	cp := *inv
	cp.Items = nil
	r.st.invoices[inv.ID] = &cp
	return nil
}

func (r *fakeInvoiceRepo) CreateItem(_ context.Context, item *entity.InvoiceItem) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.items[item.InvoiceID] = append(r.st.items[item.InvoiceID], *item)
	return nil
}

func (r *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	inv, ok := r.st.invoices[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *fakeInvoiceRepo) GetItemsByInvoiceID(_ context.Context, invoiceID string) ([]entity.InvoiceItem, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	return append([]entity.InvoiceItem(nil), r.st.items[invoiceID]...), nil
}

func (r *fakeInvoiceRepo) UpdateGatewayState(_ context.Context, inv *entity.Invoice) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	stored, ok := r.st.invoices[inv.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.GatewayTicket = inv.GatewayTicket
	stored.GatewayStatus = inv.GatewayStatus
	stored.GatewayResponse = inv.GatewayResponse
	stored.GatewayError = inv.GatewayError
	stored.SentAt = inv.SentAt
	stored.ProcessedAt = inv.ProcessedAt
	stored.UpdatedAt = inv.UpdatedAt
	return nil
}

func (r *fakeInvoiceRepo) ListPendingGateway(_ context.Context, tenantID string, limit int) ([]*entity.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.st.invoices {
		if tenantID != "" && inv.TenantID != tenantID {
			continue
		}
		switch inv.GatewayStatus {
		case entity.GatewayStatusPending, entity.GatewayStatusProcessing, entity.GatewayStatusError:
			cp := *inv
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) ListByTenant(_ context.Context, tenantID string, limit int) ([]*entity.Invoice, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.st.invoices {
		if inv.TenantID == tenantID {
			cp := *inv
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ── TenantRepository ──────────────────────────────────────────────────────────

type fakeTenantRepo struct {
	tenants map[string]*entity.Tenant
}

var _ repository.TenantRepository = (*fakeTenantRepo)(nil)

func (r *fakeTenantRepo) GetByID(_ context.Context, id string) (*entity.Tenant, error) {
	t, ok := r.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ── BillingTxRunner ───────────────────────────────────────────────────────────

// fakeTxRunner reproduce las garantías del runner real: si fn falla, el
// estado previo de series y comprobantes se restaura (rollback), y las
// transacciones se serializan entre sí como lo hace el candado de fila.
type fakeTxRunner struct {
	st *memStore
	tx sync.Mutex
}

var _ BillingTxRunner = (*fakeTxRunner)(nil)

func (r *fakeTxRunner) RunBilling(_ context.Context, fn func(
	seriesRepo repository.SeriesRepository,
	invoiceRepo repository.InvoiceRepository,
) error) error {
	r.tx.Lock()
	defer r.tx.Unlock()
	snapshot := r.snapshot()
	err := fn(&fakeSeriesRepo{st: r.st}, &fakeInvoiceRepo{st: r.st})
	if err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

type txSnapshot struct {
	series   map[string]entity.InvoiceSeries
	invoices map[string]entity.Invoice
	items    map[string][]entity.InvoiceItem
}

func (r *fakeTxRunner) snapshot() txSnapshot {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	snap := txSnapshot{
		series:   make(map[string]entity.InvoiceSeries, len(r.st.series)),
		invoices: make(map[string]entity.Invoice, len(r.st.invoices)),
		items:    make(map[string][]entity.InvoiceItem, len(r.st.items)),
	}
	for k, v := range r.st.series {
		snap.series[k] = *v
	}
	for k, v := range r.st.invoices {
		snap.invoices[k] = *v
	}
	for k, v := range r.st.items {
		snap.items[k] = append([]entity.InvoiceItem(nil), v...)
	}
	return snap
}

func (r *fakeTxRunner) restore(snap txSnapshot) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()
	r.st.series = make(map[string]*entity.InvoiceSeries, len(snap.series))
	for k, v := range snap.series {
		cp := v
		r.st.series[k] = &cp
	}
	r.st.invoices = make(map[string]*entity.Invoice, len(snap.invoices))
	for k, v := range snap.invoices {
		cp := v
		r.st.invoices[k] = &cp
	}
	r.st.items = make(map[string][]entity.InvoiceItem, len(snap.items))
	for k, v := range snap.items {
		r.st.items[k] = append([]entity.InvoiceItem(nil), v...)
	}
}

// ── AsyncSubmitter ────────────────────────────────────────────────────────────

type fakeSubmitter struct {
	mu  sync.Mutex
	ids []string
}

var _ AsyncSubmitter = (*fakeSubmitter)(nil)

func (s *fakeSubmitter) SubmitAsync(invoiceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, invoiceID)
}

// ── DocumentGateway ───────────────────────────────────────────────────────────

// scriptedGateway devuelve respuestas programadas por ticket.
type scriptedGateway struct {
	mu          sync.Mutex
	submitErr   error
	submitted   []string // filenames enviados
	nextTicket  string
	statuses    map[string]*infrasunat.TicketStatus
	queryErr    error
	queryCalls  int
	submitCalls int
}

var _ infrasunat.DocumentGateway = (*scriptedGateway)(nil)

func newScriptedGateway() *scriptedGateway {
	return &scriptedGateway{
		nextTicket: "TICKET-1",
		statuses:   make(map[string]*infrasunat.TicketStatus),
	}
}

func (g *scriptedGateway) SubmitDocument(_ context.Context, _ []byte, filename string) (*infrasunat.SubmitResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitCalls++
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	g.submitted = append(g.submitted, filename)
	return &infrasunat.SubmitResult{Ticket: g.nextTicket}, nil
}

func (g *scriptedGateway) QueryTicket(_ context.Context, ticket string) (*infrasunat.TicketStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queryCalls++
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	if st, ok := g.statuses[ticket]; ok {
		return st, nil
	}
	return &infrasunat.TicketStatus{Terminal: false}, nil
}

// ── datos base ────────────────────────────────────────────────────────────────

const (
	tenantLima = "tenant-lima"
)

func activeTenant() *entity.Tenant {
	return &entity.Tenant{
		ID:        tenantLima,
		RUC:       "20131312955",
		LegalName: "COMERCIAL DEL SUR S.A.C.",
		Address:   "Av. Arequipa 1234",
		IsActive:  true,
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
