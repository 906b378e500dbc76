// Package sunat contiene las validaciones de dominio para la emisión de
// comprobantes de pago electrónicos SUNAT (Perú). Utiliza los catálogos y
// algoritmos de pkg/sunat. Todas las validaciones corren ANTES de asignar
// correlativo: un comprobante inválido jamás consume numeración.
package sunat

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// ErrInvalidInvoice agrupa errores de validación de comprobante.
var ErrInvalidInvoice = errors.New("comprobante inválido para SUNAT")

// amountTolerance tolerancia de redondeo al comparar montos (0.01 de la moneda).
var amountTolerance = decimal.NewFromFloat(0.01)

// OrderLine es una línea del pedido tal como llega del flujo de validación de
// órdenes (snapshot de solo lectura).
type OrderLine struct {
	SKU         string
	Description string
	UnitPrice   decimal.Decimal
	Quantity    decimal.Decimal
	Subtotal    decimal.Decimal
}

// ValidateCustomer valida tipo y número de documento del adquirente.
// Las facturas (01) exigen RUC; las boletas aceptan DNI y los demás tipos
// del Catálogo 06.
func ValidateCustomer(docType, identityType, docNumber, name string) error {
	if name == "" {
		return fmt.Errorf("%w: nombre del adquirente requerido", ErrInvalidInvoice)
	}
	if identityType == "" || docNumber == "" {
		return fmt.Errorf("%w: documento del adquirente requerido", ErrInvalidInvoice)
	}
	if docType == pkgsunat.DocTypeFactura && identityType != pkgsunat.IdentityTypeRUC {
		return fmt.Errorf("%w: la factura (01) exige adquirente con RUC", ErrInvalidInvoice)
	}
	if err := pkgsunat.ValidateIdentityDocument(identityType, docNumber); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInvoice, err)
	}
	return nil
}

// ValidateLines valida que haya al menos una línea y que cada una tenga
// precio y cantidad positivos y subtotal coherente.
func ValidateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: el comprobante debe tener al menos una línea", ErrInvalidInvoice)
	}
	for i, l := range lines {
		if !l.UnitPrice.GreaterThan(decimal.Zero) {
			return fmt.Errorf("%w: línea %d: precio unitario debe ser mayor a cero", ErrInvalidInvoice, i+1)
		}
		if !l.Quantity.GreaterThan(decimal.Zero) {
			return fmt.Errorf("%w: línea %d: cantidad debe ser mayor a cero", ErrInvalidInvoice, i+1)
		}
		expected := l.UnitPrice.Mul(l.Quantity).Round(2)
		if l.Subtotal.Sub(expected).Abs().GreaterThan(amountTolerance) {
			return fmt.Errorf("%w: línea %d: subtotal (%s) no coincide con precio x cantidad (%s)",
				ErrInvalidInvoice, i+1, l.Subtotal.String(), expected.String())
		}
	}
	return nil
}

// ComputeTotals calcula subtotal, IGV y total a partir de las líneas con
// redondeo fijo a 2 decimales. El IGV se calcula sobre el subtotal agregado.
func ComputeTotals(lines []OrderLine, igvRate decimal.Decimal) (subtotal, igv, total decimal.Decimal) {
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(l.Quantity))
	}
	subtotal = subtotal.Round(2)
	igv = subtotal.Mul(igvRate).Round(2)
	total = subtotal.Add(igv)
	return subtotal, igv, total
}

// ValidateTotals comprueba la consistencia interna subtotal/IGV/total del
// pedido contra el cálculo propio (tolerancia 0.01 por redondeos del origen).
func ValidateTotals(subtotal, igv, total decimal.Decimal, lines []OrderLine, igvRate decimal.Decimal) error {
	expSub, expIGV, expTotal := ComputeTotals(lines, igvRate)
	var errs []error
	if subtotal.Sub(expSub).Abs().GreaterThan(amountTolerance) {
		errs = append(errs, fmt.Errorf("subtotal (%s) no coincide con la suma de líneas (%s)", subtotal.String(), expSub.String()))
	}
	if igv.Sub(expIGV).Abs().GreaterThan(amountTolerance) {
		errs = append(errs, fmt.Errorf("IGV (%s) no coincide con subtotal x tasa (%s)", igv.String(), expIGV.String()))
	}
	if total.Sub(expTotal).Abs().GreaterThan(amountTolerance) {
		errs = append(errs, fmt.Errorf("total (%s) no coincide con subtotal + IGV (%s)", total.String(), expTotal.String()))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidInvoice}, errs...)...)
	}
	return nil
}

// ValidateReference valida la referencia de una nota de crédito/débito:
// obligatoria para tipos 07/08 y prohibida para 01/03; el comprobante
// referenciado debe ser del mismo emisor, del mismo adquirente y no puede ser
// a su vez una nota (la relación es acíclica: nota -> comprobante original).
func ValidateReference(docType string, ref *entity.Invoice, tenantID, customerDocNum, reason string) error {
	if !pkgsunat.IsNote(docType) {
		if ref != nil {
			return fmt.Errorf("%w: el tipo %s no admite comprobante de referencia", ErrInvalidInvoice, docType)
		}
		return nil
	}
	if ref == nil {
		return fmt.Errorf("%w: la nota (%s) exige comprobante de referencia", ErrInvalidInvoice, docType)
	}
	if reason == "" {
		return fmt.Errorf("%w: la nota exige motivo (Catálogo 09/10)", ErrInvalidInvoice)
	}
	if ref.TenantID != tenantID {
		return fmt.Errorf("%w: el comprobante referenciado pertenece a otro emisor", ErrInvalidInvoice)
	}
	if ref.CustomerDocNum != customerDocNum {
		return fmt.Errorf("%w: el comprobante referenciado pertenece a otro adquirente", ErrInvalidInvoice)
	}
	if ref.IsNote() {
		return fmt.Errorf("%w: no se permite emitir una nota sobre otra nota", ErrInvalidInvoice)
	}
	return nil
}
