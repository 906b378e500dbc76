// Package sunat contiene catálogos y validaciones alineados a los anexos de
// Comprobantes de Pago Electrónicos SUNAT (Perú), Resolución 097-2012 y
// modificatorias. Los códigos provienen de los catálogos oficiales del Anexo 8.
package sunat

import "github.com/shopspring/decimal"

// =============================================================================
// Catálogo 01 - Tipo de Comprobante de Pago
// =============================================================================

const (
	DocTypeFactura     = "01" // Factura electrónica
	DocTypeBoleta      = "03" // Boleta de venta electrónica
	DocTypeNotaCredito = "07" // Nota de crédito electrónica
	DocTypeNotaDebito  = "08" // Nota de débito electrónica
)

// ValidDocTypes contiene los tipos de comprobante que el sistema emite.
var ValidDocTypes = map[string]bool{
	DocTypeFactura:     true,
	DocTypeBoleta:      true,
	DocTypeNotaCredito: true,
	DocTypeNotaDebito:  true,
}

// IsNote indica si el tipo de comprobante es una nota de crédito o débito
// (requiere referencia obligatoria a un comprobante previo).
func IsNote(docType string) bool {
	return docType == DocTypeNotaCredito || docType == DocTypeNotaDebito
}

// =============================================================================
// Catálogo 06 - Tipo de Documento de Identidad del adquirente
// =============================================================================

const (
	IdentityTypeSinRUC    = "0" // Doc. tributario no domiciliado sin RUC
	IdentityTypeDNI       = "1" // DNI - 8 dígitos
	IdentityTypeCE        = "4" // Carnet de extranjería
	IdentityTypeRUC       = "6" // RUC - 11 dígitos con dígito verificador
	IdentityTypePasaporte = "7" // Pasaporte
)

// ValidIdentityTypes documentos de identidad aceptados para el adquirente.
var ValidIdentityTypes = map[string]bool{
	IdentityTypeSinRUC:    true,
	IdentityTypeDNI:       true,
	IdentityTypeCE:        true,
	IdentityTypeRUC:       true,
	IdentityTypePasaporte: true,
}

// =============================================================================
// Catálogo 09 - Tipo de Nota de Crédito
// =============================================================================

const (
	CreditReasonAnulacion        = "01" // Anulación de la operación
	CreditReasonAnulacionRUC     = "02" // Anulación por error en el RUC
	CreditReasonErrorDescripcion = "03" // Corrección por error en la descripción
	CreditReasonDevolucionTotal  = "06" // Devolución total
	CreditReasonDevolucionItem   = "07" // Devolución por ítem
)

// =============================================================================
// Catálogo 10 - Tipo de Nota de Débito
// =============================================================================

const (
	DebitReasonInteresMora = "01" // Intereses por mora
	DebitReasonAumento     = "02" // Aumento en el valor
	DebitReasonPenalidad   = "03" // Penalidades / otros conceptos
)

// =============================================================================
// Catálogo 02 - Monedas (ISO 4217, las dos de uso corriente en el sistema)
// =============================================================================

const (
	CurrencyPEN = "PEN" // Sol peruano
	CurrencyUSD = "USD" // Dólar americano
)

// ValidCurrencies monedas aceptadas en la emisión.
var ValidCurrencies = map[string]bool{
	CurrencyPEN: true,
	CurrencyUSD: true,
}

// =============================================================================
// Catálogo 05 - Tipos de Tributo
// =============================================================================

const (
	TaxCodeIGV = "1000" // IGV - Impuesto General a las Ventas
	TaxNameIGV = "IGV"
	TaxTypeVAT = "VAT" // UN/ECE 5153
)

// DefaultIGVRate tasa IGV vigente (18%). Configurable por BILLING_IGV_RATE.
var DefaultIGVRate = decimal.NewFromFloat(0.18)

// =============================================================================
// Catálogo 03 - Unidades de medida (UN/ECE rec 20, las de uso común)
// =============================================================================

const (
	UnitUnidad   = "NIU" // Unidad (bienes)
	UnitServicio = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM" // Kilogramo
	UnitLitro    = "LTR" // Litro
	UnitMetro    = "MTR" // Metro
)
