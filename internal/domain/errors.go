package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrSeriesNotFound = errors.New("serie de facturación no encontrada")
	ErrSeriesInactive = errors.New("serie de facturación inactiva")

	// ErrAllocationConflict: la espera por el candado de la serie excedió el
	// límite. No se consumió correlativo; reintentar la emisión completa es seguro.
	ErrAllocationConflict = errors.New("conflicto al asignar correlativo")

	// ErrPersistence: el correlativo ya fue incrementado pero la factura no
	// se pudo escribir. Nunca se reintenta en silencio: el hueco de numeración
	// se documenta para conciliación manual (duplicados jamás).
	ErrPersistence = errors.New("error de persistencia tras asignar correlativo")
)
