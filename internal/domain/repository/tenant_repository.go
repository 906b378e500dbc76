package repository

import (
	"context"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
)

// TenantRepository acceso de solo lectura al perfil fiscal del emisor.
// El alta y edición de emisores es un colaborador externo; la emisión solo
// necesita el snapshot.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Tenant, error)
}
