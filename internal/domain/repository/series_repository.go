package repository

import (
	"context"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
)

// SeriesRepository contrato de persistencia de series de numeración.
type SeriesRepository interface {
	Create(ctx context.Context, s *entity.InvoiceSeries) error
	GetByTenantAndSerie(ctx context.Context, tenantID, serie string) (*entity.InvoiceSeries, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*entity.InvoiceSeries, error)

	// SetActive activa o desactiva la serie. Nunca toca last_correlative.
	SetActive(ctx context.Context, id string, active bool) error

	// AllocateNext asigna el siguiente correlativo de la serie con candado
	// exclusivo de fila (SELECT ... FOR UPDATE): lee last_correlative, escribe
	// last_correlative+1 y lo devuelve. El candado bloquea únicamente a otros
	// asignadores de la MISMA serie; series y emisores distintos no se esperan
	// entre sí. docType es el tipo del comprobante que consume el correlativo:
	// una serie solo numera el tipo para el que fue registrada.
	//
	// Debe ejecutarse sobre un repositorio atado a una transacción: el candado
	// se libera en el Commit/Rollback del caller, después de que el comprobante
	// que consume el correlativo quedó escrito.
	//
	// Errores: domain.ErrSeriesNotFound si la serie no existe,
	// domain.ErrSeriesInactive si está desactivada,
	// domain.ErrInvalidInput si el tipo del comprobante no coincide con el de
	// la serie (todos liberan el candado de inmediato vía rollback),
	// domain.ErrAllocationConflict si la espera por el candado excedió el
	// lock_timeout de la transacción.
	AllocateNext(ctx context.Context, tenantID, serie, docType string) (int64, error)
}
