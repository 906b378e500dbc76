package dto

import "github.com/shopspring/decimal"

// IssueInvoiceRequest body para POST /api/invoices.
// El snapshot del pedido llega completo en el request: el CRUD de órdenes es
// un colaborador externo y aquí solo cruza la data que necesita la emisión.
type IssueInvoiceRequest struct {
	OrderID string `json:"order_id"`
	DocType string `json:"doc_type"` // "01" factura, "03" boleta
	Serie   string `json:"serie"`    // ej: "F001"

	CustomerDocType string `json:"customer_doc_type"` // Catálogo 06
	CustomerDocNum  string `json:"customer_doc_num"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email,omitempty"`

	Currency string             `json:"currency"` // PEN | USD
	Subtotal decimal.Decimal    `json:"subtotal"`
	IGV      decimal.Decimal    `json:"igv"`
	Total    decimal.Decimal    `json:"total"`
	Items    []InvoiceItemInput `json:"items"`
}

// IssueNoteRequest body para POST /api/invoices/:id/notes.
// Emite una nota de crédito (07) o débito (08) referenciando al comprobante
// de la URL. Si Items va vacío, la nota hereda las líneas del original
// (devolución/anulación total).
type IssueNoteRequest struct {
	DocType string             `json:"doc_type"` // "07" | "08"
	Serie   string             `json:"serie"`
	Reason  string             `json:"reason"` // Catálogo 09 (NC) / 10 (ND)
	Items   []InvoiceItemInput `json:"items,omitempty"`
}

// InvoiceItemInput línea del comprobante tal como llega del pedido.
type InvoiceItemInput struct {
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// InvoiceResponse comprobante con detalle para GET /api/invoices/:id.
type InvoiceResponse struct {
	ID              string                `json:"id"`
	TenantID        string                `json:"tenant_id"`
	OrderID         string                `json:"order_id,omitempty"`
	DocType         string                `json:"doc_type"`
	Serie           string                `json:"serie"`
	Correlative     int64                 `json:"correlative"`
	FullNumber      string                `json:"full_number"` // ej: "F001-00000123"
	IssuerRUC       string                `json:"issuer_ruc"`
	IssuerName      string                `json:"issuer_name"`
	CustomerDocType string                `json:"customer_doc_type"`
	CustomerDocNum  string                `json:"customer_doc_num"`
	CustomerName    string                `json:"customer_name"`
	Currency        string                `json:"currency"`
	Subtotal        decimal.Decimal       `json:"subtotal"`
	IGV             decimal.Decimal       `json:"igv"`
	Total           decimal.Decimal       `json:"total"`
	IssuedAt        string                `json:"issued_at"`
	GatewayStatus   string                `json:"gateway_status"`
	GatewayTicket   string                `json:"gateway_ticket,omitempty"`
	GatewayError    string                `json:"gateway_error,omitempty"`
	Reference       *InvoiceReferenceDTO  `json:"reference,omitempty"`
	Items           []InvoiceItemResponse `json:"items"`
}

// InvoiceReferenceDTO referencia de una nota a su comprobante original.
type InvoiceReferenceDTO struct {
	InvoiceID   string `json:"invoice_id"`
	DocType     string `json:"doc_type"`
	Serie       string `json:"serie"`
	Correlative int64  `json:"correlative"`
	Reason      string `json:"reason"`
}

// InvoiceItemResponse línea en la respuesta.
type InvoiceItemResponse struct {
	ID          string          `json:"id"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// CreateSeriesRequest body para POST /api/series.
type CreateSeriesRequest struct {
	DocType string `json:"doc_type"` // Catálogo 01
	Serie   string `json:"serie"`    // ej: "F001"
}

// SeriesResponse serie en respuestas.
type SeriesResponse struct {
	ID              string `json:"id"`
	TenantID        string `json:"tenant_id"`
	DocType         string `json:"doc_type"`
	Serie           string `json:"serie"`
	LastCorrelative int64  `json:"last_correlative"`
	IsActive        bool   `json:"is_active"`
}

// ReconcileResponse resultado de una corrida de conciliación.
type ReconcileResponse struct {
	Polled int `json:"polled"`
}
