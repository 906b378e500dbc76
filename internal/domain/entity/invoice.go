package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/luisvera/facturacion-pe/pkg/sunat"
)

// Estados del ciclo de vida frente a la pasarela SUNAT.
//
//	pending ──► processing ──► success | error
//	pending ──► error                 (fallo síncrono del envío)
//	error   ──► processing            (reenvío explícito, mismo correlativo)
const (
	GatewayStatusPending    = "pending"    // Emitida, correlativo asignado, aún no enviada
	GatewayStatusProcessing = "processing" // Aceptada por la pasarela, resultado pendiente (ticket)
	GatewayStatusSuccess    = "success"    // Aceptada por SUNAT (CDR disponible)
	GatewayStatusError      = "error"      // Rechazada o fallo de envío
)

// IsTerminalGatewayStatus indica si el estado ya no cambia por polling.
func IsTerminalGatewayStatus(s string) bool {
	return s == GatewayStatusSuccess
}

// Invoice representa un comprobante de pago electrónico.
// Una vez asignado el correlativo, los campos de identidad (tipo, serie,
// correlativo, montos, líneas) son inmutables: los comprobantes fiscales no se
// borran ni se renumeran; una anulación se modela como nota de crédito que
// referencia al original.
type Invoice struct {
	ID       string
	TenantID string
	OrderID  string

	DocType     string // Catálogo 01: "01" factura, "03" boleta, "07" NC, "08" ND
	Serie       string // Ej: "F001"
	Correlative int64  // Asignado por la serie; nunca se reasigna

	// Datos del emisor congelados al momento de la emisión
	IssuerRUC  string
	IssuerName string

	// Datos del adquirente congelados al momento de la emisión
	CustomerDocType string // Catálogo 06
	CustomerDocNum  string
	CustomerName    string
	CustomerEmail   string

	Currency string // PEN | USD
	Subtotal decimal.Decimal
	IGV      decimal.Decimal
	Total    decimal.Decimal

	Items []InvoiceItem

	// Referencia al comprobante previo (solo notas de crédito/débito)
	ReferenceID          string
	ReferenceDocType     string
	ReferenceSerie       string
	ReferenceCorrelative int64
	ReferenceReason      string // Catálogo 09 / 10

	// Estado frente a la pasarela SUNAT (único camino de mutación post-emisión)
	GatewayTicket   string
	GatewayStatus   string
	GatewayResponse string // payload estructurado devuelto por la pasarela (JSON)
	GatewayError    string
	SentAt          *time.Time
	ProcessedAt     *time.Time

	IssuedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullNumber devuelve el número completo para visualización: "F001-00000123".
func (i *Invoice) FullNumber() string {
	return sunat.FormatFullNumber(i.Serie, i.Correlative)
}

// IsNote indica si el comprobante es una nota de crédito o débito.
func (i *Invoice) IsNote() bool {
	return sunat.IsNote(i.DocType)
}

// InvoiceItem representa una línea del comprobante.
type InvoiceItem struct {
	ID          string
	InvoiceID   string
	SKU         string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Subtotal    decimal.Decimal
}
