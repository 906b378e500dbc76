package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
)

var _ repository.SeriesRepository = (*SeriesRepo)(nil)

// SeriesRepo implementación de SeriesRepository (usable con pool o tx).
type SeriesRepo struct {
	q Querier
}

// NewSeriesRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSeriesRepository(q Querier) *SeriesRepo {
	return &SeriesRepo{q: q}
}

// Create registra la serie. (tenant_id, serie) tiene constraint único.
func (r *SeriesRepo) Create(ctx context.Context, s *entity.InvoiceSeries) error {
	const q = `
		INSERT INTO invoice_series (id, tenant_id, doc_type, serie, last_correlative, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`
	_, err := r.q.Exec(ctx, q, s.ID, s.TenantID, s.DocType, s.Serie, s.LastCorrelative, s.IsActive)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: la serie %s ya existe para el emisor", domain.ErrDuplicate, s.Serie)
		}
		return fmt.Errorf("insert invoice_series: %w", err)
	}
	return nil
}

func (r *SeriesRepo) GetByTenantAndSerie(ctx context.Context, tenantID, serie string) (*entity.InvoiceSeries, error) {
	const q = `
		SELECT id, tenant_id, doc_type, serie, last_correlative, is_active, created_at, updated_at
		FROM invoice_series
		WHERE tenant_id = $1 AND serie = $2`
	s, err := scanSeries(r.q.QueryRow(ctx, q, tenantID, serie))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: serie %s", domain.ErrSeriesNotFound, serie)
		}
		return nil, fmt.Errorf("get invoice_series: %w", err)
	}
	return s, nil
}

func (r *SeriesRepo) ListByTenant(ctx context.Context, tenantID string) ([]*entity.InvoiceSeries, error) {
	const q = `
		SELECT id, tenant_id, doc_type, serie, last_correlative, is_active, created_at, updated_at
		FROM invoice_series
		WHERE tenant_id = $1
		ORDER BY serie`
	rows, err := r.q.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invoice_series: %w", err)
	}
	defer rows.Close()
	var list []*entity.InvoiceSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice_series: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// SetActive cambia solo la bandera; el contador no se toca nunca por aquí.
func (r *SeriesRepo) SetActive(ctx context.Context, id string, active bool) error {
	const q = `UPDATE invoice_series SET is_active = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, q, id, active)
	if err != nil {
		return fmt.Errorf("update invoice_series: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSeriesNotFound
	}
	return nil
}

// AllocateNext asigna el siguiente correlativo bajo candado exclusivo de fila.
//
// El SELECT ... FOR UPDATE serializa a los asignadores de la misma serie; el
// candado se libera en el Commit/Rollback de la transacción del caller, de
// modo que el incremento solo queda visible si el comprobante que lo consume
// también quedó escrito.
func (r *SeriesRepo) AllocateNext(ctx context.Context, tenantID, serie, docType string) (int64, error) {
	const sel = `
		SELECT id, doc_type, last_correlative, is_active
		FROM invoice_series
		WHERE tenant_id = $1 AND serie = $2
		FOR UPDATE`

	var id, serieDocType string
	var last int64
	var active bool
	if err := r.q.QueryRow(ctx, sel, tenantID, serie).Scan(&id, &serieDocType, &last, &active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: serie %s del emisor %s", domain.ErrSeriesNotFound, serie, tenantID)
		}
		if isLockNotAvailable(err) {
			return 0, fmt.Errorf("%w: serie %s ocupada", domain.ErrAllocationConflict, serie)
		}
		return 0, fmt.Errorf("lock invoice_series: %w", err)
	}
	if !active {
		return 0, fmt.Errorf("%w: serie %s", domain.ErrSeriesInactive, serie)
	}
	if serieDocType != docType {
		return 0, fmt.Errorf("%w: la serie %s numera comprobantes tipo %s, no %s",
			domain.ErrInvalidInput, serie, serieDocType, docType)
	}

	next := last + 1
	const upd = `UPDATE invoice_series SET last_correlative = $2, updated_at = now() WHERE id = $1`
	if _, err := r.q.Exec(ctx, upd, id, next); err != nil {
		return 0, fmt.Errorf("increment invoice_series: %w", err)
	}
	return next, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// scanner mínimo común entre pgx.Row y pgx.Rows
type pgxScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row pgxScanner) (*entity.InvoiceSeries, error) {
	var s entity.InvoiceSeries
	if err := row.Scan(
		&s.ID, &s.TenantID, &s.DocType, &s.Serie,
		&s.LastCorrelative, &s.IsActive, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
