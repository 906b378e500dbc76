package sunat

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// Namespaces oficiales UBL 2.1 usados por SUNAT.
const (
	NsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	NsDebitNote  = "urn:oasis:names:specification:ubl:schema:xsd:DebitNote-2"
	NsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt        = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs         = "http://www.w3.org/2000/09/xmldsig#"
)

// UBLBuilder construye el XML UBL 2.1 del comprobante (sin firma).
// El documento raíz depende del tipo: Invoice (01/03), CreditNote (07),
// DebitNote (08). Los prefijos cac/cbc/ext/ds se declaran una sola vez en la
// raíz, como en los comprobantes que SUNAT publica de ejemplo.
type UBLBuilder struct{}

// NewUBLBuilder crea el servicio.
func NewUBLBuilder() *UBLBuilder {
	return &UBLBuilder{}
}

// DocumentContext datos necesarios para construir el XML.
type DocumentContext struct {
	Invoice *entity.Invoice
	Tenant  *entity.Tenant
	Items   []entity.InvoiceItem
}

// Build genera el []byte del documento UBL 2.1 según el tipo del comprobante.
func (s *UBLBuilder) Build(ctx *DocumentContext) ([]byte, error) {
	if ctx == nil || ctx.Invoice == nil || ctx.Tenant == nil {
		return nil, fmt.Errorf("sunat: faltan invoice o tenant en el contexto")
	}
	if len(ctx.Items) == 0 {
		return nil, fmt.Errorf("sunat: el comprobante no tiene líneas")
	}

	rootNS, rootLocal, lineLocal, qtyLocal := rootForDocType(ctx.Invoice.DocType)

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="no"`)

	root := doc.CreateElement(rootLocal)
	root.CreateAttr("xmlns", rootNS)
	root.CreateAttr("xmlns:cac", NsCac)
	root.CreateAttr("xmlns:cbc", NsCbc)
	root.CreateAttr("xmlns:ds", NsDs)
	root.CreateAttr("xmlns:ext", NsExt)

	// ext:UBLExtensions como primer hijo: ExtensionContent vacío donde el
	// firmador inyecta ds:Signature.
	addSignaturePlaceholder(root)

	inv := ctx.Invoice
	addCbc(root, "UBLVersionID", "2.1")
	addCbc(root, "CustomizationID", "2.0")
	addCbc(root, "ID", inv.FullNumber())
	addCbc(root, "IssueDate", inv.IssuedAt.Format("2006-01-02"))
	addCbc(root, "IssueTime", inv.IssuedAt.Format("15:04:05"))
	if rootLocal == "Invoice" {
		// Catálogo 51: "0101" venta interna
		addCbc(root, "InvoiceTypeCode", inv.DocType).CreateAttr("listID", "0101")
	}
	addCbc(root, "DocumentCurrencyCode", inv.Currency)

	// Notas: motivo + referencia al comprobante original
	if inv.IsNote() {
		addDiscrepancy(root, inv)
		addBillingReference(root, inv)
	}

	addSupplierParty(root, ctx.Tenant)
	addCustomerParty(root, inv)
	addTaxTotal(root, inv)
	addMonetaryTotal(root, inv, rootLocal)

	for i, item := range ctx.Items {
		addLine(root, lineLocal, qtyLocal, i+1, item, inv.Currency)
	}

	doc.Indent(2)
	return doc.WriteToBytes()
}

// rootForDocType devuelve namespace, elemento raíz y nombres de línea/cantidad
// según el tipo de comprobante (las notas usan elementos propios en UBL).
func rootForDocType(docType string) (ns, root, line, qty string) {
	switch docType {
	case pkgsunat.DocTypeNotaCredito:
		return NsCreditNote, "CreditNote", "CreditNoteLine", "CreditedQuantity"
	case pkgsunat.DocTypeNotaDebito:
		return NsDebitNote, "DebitNote", "DebitNoteLine", "DebitedQuantity"
	default:
		return NsInvoice, "Invoice", "InvoiceLine", "InvoicedQuantity"
	}
}

func addSignaturePlaceholder(root *etree.Element) {
	exts := root.CreateElement("ext:UBLExtensions")
	ext := exts.CreateElement("ext:UBLExtension")
	ext.CreateElement("ext:ExtensionContent")
}

// addDiscrepancy escribe cac:DiscrepancyResponse con el motivo de la nota
// (Catálogo 09 para NC, 10 para ND).
func addDiscrepancy(root *etree.Element, inv *entity.Invoice) {
	ref := pkgsunat.FormatFullNumber(inv.ReferenceSerie, inv.ReferenceCorrelative)
	disc := root.CreateElement("cac:DiscrepancyResponse")
	addCbc(disc, "ReferenceID", ref)
	addCbc(disc, "ResponseCode", inv.ReferenceReason)
}

// addBillingReference escribe cac:BillingReference apuntando al comprobante
// original (número completo + tipo).
func addBillingReference(root *etree.Element, inv *entity.Invoice) {
	ref := pkgsunat.FormatFullNumber(inv.ReferenceSerie, inv.ReferenceCorrelative)
	docRef := root.CreateElement("cac:BillingReference").
		CreateElement("cac:InvoiceDocumentReference")
	addCbc(docRef, "ID", ref)
	addCbc(docRef, "DocumentTypeCode", inv.ReferenceDocType)
}

func addSupplierParty(root *etree.Element, tenant *entity.Tenant) {
	party := root.CreateElement("cac:AccountingSupplierParty").
		CreateElement("cac:Party")

	// RUC del emisor con schemeID 6 (Catálogo 06)
	ident := party.CreateElement("cac:PartyIdentification")
	addCbc(ident, "ID", tenant.RUC).CreateAttr("schemeID", pkgsunat.IdentityTypeRUC)

	if tenant.CommercialName != "" {
		addCbc(party.CreateElement("cac:PartyName"), "Name", tenant.CommercialName)
	}

	legal := party.CreateElement("cac:PartyLegalEntity")
	addCbc(legal, "RegistrationName", tenant.LegalName)
	if tenant.Address != "" {
		addr := legal.CreateElement("cac:RegistrationAddress")
		if tenant.Ubigeo != "" {
			addCbc(addr, "ID", tenant.Ubigeo)
		}
		addCbc(addr.CreateElement("cac:AddressLine"), "Line", tenant.Address)
	}
}

func addCustomerParty(root *etree.Element, inv *entity.Invoice) {
	party := root.CreateElement("cac:AccountingCustomerParty").
		CreateElement("cac:Party")

	ident := party.CreateElement("cac:PartyIdentification")
	addCbc(ident, "ID", inv.CustomerDocNum).CreateAttr("schemeID", inv.CustomerDocType)

	legal := party.CreateElement("cac:PartyLegalEntity")
	addCbc(legal, "RegistrationName", inv.CustomerName)
}

func addTaxTotal(root *etree.Element, inv *entity.Invoice) {
	cur := inv.Currency
	total := root.CreateElement("cac:TaxTotal")
	addCbcAmount(total, "TaxAmount", formatDecimal(inv.IGV), cur)

	sub := total.CreateElement("cac:TaxSubtotal")
	addCbcAmount(sub, "TaxableAmount", formatDecimal(inv.Subtotal), cur)
	addCbcAmount(sub, "TaxAmount", formatDecimal(inv.IGV), cur)

	scheme := sub.CreateElement("cac:TaxCategory").CreateElement("cac:TaxScheme")
	addCbc(scheme, "ID", pkgsunat.TaxCodeIGV)
	addCbc(scheme, "Name", pkgsunat.TaxNameIGV)
	addCbc(scheme, "TaxTypeCode", pkgsunat.TaxTypeVAT)
}

func addMonetaryTotal(root *etree.Element, inv *entity.Invoice, rootLocal string) {
	// Las notas usan RequestedMonetaryTotal; factura/boleta LegalMonetaryTotal.
	local := "cac:LegalMonetaryTotal"
	if rootLocal != "Invoice" {
		local = "cac:RequestedMonetaryTotal"
	}
	cur := inv.Currency
	total := root.CreateElement(local)
	addCbcAmount(total, "LineExtensionAmount", formatDecimal(inv.Subtotal), cur)
	addCbcAmount(total, "TaxInclusiveAmount", formatDecimal(inv.Total), cur)
	addCbcAmount(total, "PayableAmount", formatDecimal(inv.Total), cur)
}

func addLine(root *etree.Element, lineLocal, qtyLocal string, lineNum int, item entity.InvoiceItem, currency string) {
	line := root.CreateElement("cac:" + lineLocal)
	addCbc(line, "ID", strconv.Itoa(lineNum))
	addCbc(line, qtyLocal, formatDecimal(item.Quantity)).CreateAttr("unitCode", pkgsunat.UnitUnidad)
	addCbcAmount(line, "LineExtensionAmount", formatDecimal(item.Subtotal), currency)

	itemEl := line.CreateElement("cac:Item")
	addCbc(itemEl, "Description", item.Description)
	if item.SKU != "" {
		addCbc(itemEl.CreateElement("cac:SellersItemIdentification"), "ID", item.SKU)
	}

	price := line.CreateElement("cac:Price")
	addCbcAmount(price, "PriceAmount", formatDecimal(item.UnitPrice), currency)
}

// ── helpers de nodos ──────────────────────────────────────────────────────────

func addCbc(parent *etree.Element, local, value string) *etree.Element {
	e := parent.CreateElement("cbc:" + local)
	e.SetText(value)
	return e
}

func addCbcAmount(parent *etree.Element, local, value, currency string) *etree.Element {
	e := addCbc(parent, local, value)
	e.CreateAttr("currencyID", currency)
	return e
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}
