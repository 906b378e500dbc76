package sunat

import (
	"fmt"
	"regexp"
)

// serieRe valida el formato de serie SUNAT: 4 caracteres, letra inicial
// (F para facturas, B para boletas) seguida de alfanuméricos. Ej: F001, B002.
var serieRe = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)

// ValidateSerie valida el formato del código de serie.
func ValidateSerie(serie string) error {
	if !serieRe.MatchString(serie) {
		return fmt.Errorf("sunat: serie inválida %q: se esperan 4 caracteres alfanuméricos iniciando en letra", serie)
	}
	return nil
}

// FormatFullNumber produce el número completo del comprobante para
// visualización y para el nombre de archivo SUNAT: serie, guion y correlativo
// en ancho fijo de 8 dígitos. Ej: ("F001", 123) -> "F001-00000123".
func FormatFullNumber(serie string, correlative int64) string {
	return fmt.Sprintf("%s-%08d", serie, correlative)
}

// DocumentFilename genera el nombre base de archivo exigido por SUNAT para el
// XML y el ZIP del comprobante: {RUC}-{tipo}-{serie}-{correlativo}.
// Ej: "20123456789-01-F001-00000123".
func DocumentFilename(ruc, docType, serie string, correlative int64) string {
	return fmt.Sprintf("%s-%s-%s", ruc, docType, FormatFullNumber(serie, correlative))
}
