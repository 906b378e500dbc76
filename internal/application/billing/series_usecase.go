package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/luisvera/facturacion-pe/internal/application/dto"
	"github.com/luisvera/facturacion-pe/internal/domain"
	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	"github.com/luisvera/facturacion-pe/internal/domain/repository"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// SeriesUseCase administra las series de numeración de un emisor.
// La asignación de correlativos no pasa por aquí: eso ocurre dentro de la
// transacción de emisión (ver IssueInvoiceUseCase).
type SeriesUseCase struct {
	seriesRepo repository.SeriesRepository
}

// NewSeriesUseCase construye el caso de uso.
func NewSeriesUseCase(seriesRepo repository.SeriesRepository) *SeriesUseCase {
	return &SeriesUseCase{seriesRepo: seriesRepo}
}

// Create registra una serie nueva para el emisor, activa y con el contador en
// cero. La combinación (tenant, serie) es única.
func (uc *SeriesUseCase) Create(ctx context.Context, tenantID string, in dto.CreateSeriesRequest) (*dto.SeriesResponse, error) {
	if !pkgsunat.ValidDocTypes[in.DocType] {
		return nil, fmt.Errorf("%w: tipo de comprobante %q desconocido", domain.ErrInvalidInput, in.DocType)
	}
	if err := pkgsunat.ValidateSerie(in.Serie); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	series := &entity.InvoiceSeries{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		DocType:         in.DocType,
		Serie:           in.Serie,
		LastCorrelative: 0,
		IsActive:        true,
	}
	if err := uc.seriesRepo.Create(ctx, series); err != nil {
		return nil, err
	}
	return toSeriesResponse(series), nil
}

// SetActive activa o desactiva una serie del emisor. Desactivar detiene
// nuevas asignaciones; el contador se conserva para poder reactivar sin
// romper la numeración.
func (uc *SeriesUseCase) SetActive(ctx context.Context, tenantID, serie string, active bool) (*dto.SeriesResponse, error) {
	s, err := uc.seriesRepo.GetByTenantAndSerie(ctx, tenantID, serie)
	if err != nil {
		return nil, err
	}
	if err := uc.seriesRepo.SetActive(ctx, s.ID, active); err != nil {
		return nil, err
	}
	s.IsActive = active
	return toSeriesResponse(s), nil
}

// Get devuelve una serie del emisor.
func (uc *SeriesUseCase) Get(ctx context.Context, tenantID, serie string) (*dto.SeriesResponse, error) {
	s, err := uc.seriesRepo.GetByTenantAndSerie(ctx, tenantID, serie)
	if err != nil {
		return nil, err
	}
	return toSeriesResponse(s), nil
}

// List devuelve todas las series del emisor.
func (uc *SeriesUseCase) List(ctx context.Context, tenantID string) ([]dto.SeriesResponse, error) {
	list, err := uc.seriesRepo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SeriesResponse, 0, len(list))
	for _, s := range list {
		out = append(out, *toSeriesResponse(s))
	}
	return out, nil
}

func toSeriesResponse(s *entity.InvoiceSeries) *dto.SeriesResponse {
	return &dto.SeriesResponse{
		ID:              s.ID,
		TenantID:        s.TenantID,
		DocType:         s.DocType,
		Serie:           s.Serie,
		LastCorrelative: s.LastCorrelative,
		IsActive:        s.IsActive,
	}
}
