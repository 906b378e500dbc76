package entity

import "time"

// Tenant representa una empresa emisora. Durante la emisión de comprobantes
// es un snapshot de solo lectura: el perfil fiscal (RUC, razón social,
// dirección) se congela en la factura al momento de emitir.
type Tenant struct {
	ID             string
	RUC            string
	LegalName      string // Razón social
	CommercialName string // Nombre comercial (opcional)
	Address        string
	Ubigeo         string // Código de ubicación geográfica INEI
	District       string
	Province       string
	Department     string
	Email          string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
