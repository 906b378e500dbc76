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

var _ repository.TenantRepository = (*TenantRepo)(nil)

// TenantRepo implementación de TenantRepository sobre PostgreSQL.
type TenantRepo struct {
	q Querier
}

// NewTenantRepository construye el adaptador.
func NewTenantRepository(q Querier) *TenantRepo {
	return &TenantRepo{q: q}
}

func (r *TenantRepo) GetByID(ctx context.Context, id string) (*entity.Tenant, error) {
	const q = `
		SELECT id, ruc, legal_name, COALESCE(commercial_name, ''), COALESCE(address, ''),
		       COALESCE(ubigeo, ''), COALESCE(district, ''), COALESCE(province, ''),
		       COALESCE(department, ''), COALESCE(email, ''), is_active, created_at, updated_at
		FROM tenants WHERE id = $1`
	var t entity.Tenant
	err := r.q.QueryRow(ctx, q, id).Scan(
		&t.ID, &t.RUC, &t.LegalName, &t.CommercialName, &t.Address,
		&t.Ubigeo, &t.District, &t.Province, &t.Department,
		&t.Email, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: emisor %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}
