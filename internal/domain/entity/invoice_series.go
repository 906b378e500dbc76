package entity

import "time"

// InvoiceSeries representa una serie de numeración autorizada de un emisor.
// (tenant_id, serie) es único; last_correlative es monótono no decreciente y
// solo lo muta la asignación de correlativos (SeriesRepository.AllocateNext).
// La configuración de series (crear, activar, desactivar) nunca toca ese campo.
type InvoiceSeries struct {
	ID              string
	TenantID        string
	DocType         string // Catálogo 01: tipo de comprobante que numera la serie
	Serie           string // 4 caracteres, ej: "F001"
	LastCorrelative int64
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
