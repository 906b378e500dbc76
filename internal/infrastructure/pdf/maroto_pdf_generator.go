// Package pdf implementa la Representación Impresa del Comprobante de Pago
// Electrónico SUNAT (Resolución 097-2012 y modificatorias).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razón Social + RUC  │  Tipo + N° comprobante       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  EMISOR: Dirección fiscal                                   │
//	│  ADQUIRENTE: Nombre + RUC/DNI                               │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Descripción | P.Unit | Subtotal              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Op. Gravada / IGV 18% / IMPORTE TOTAL             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR SUNAT + Leyenda legal                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 140, Green: 20, Blue: 30}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// docTypeLabels nombres legales por Catálogo 01.
var docTypeLabels = map[string]string{
	pkgsunat.DocTypeFactura:     "FACTURA ELECTRÓNICA",
	pkgsunat.DocTypeBoleta:      "BOLETA DE VENTA ELECTRÓNICA",
	pkgsunat.DocTypeNotaCredito: "NOTA DE CRÉDITO ELECTRÓNICA",
	pkgsunat.DocTypeNotaDebito:  "NOTA DE DÉBITO ELECTRÓNICA",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.InvoicePDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateInvoicePDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateInvoicePDF(
	_ context.Context,
	invoice *entity.Invoice,
	tenant *entity.Tenant,
	items []entity.InvoiceItem,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(docTypeLabel(invoice.DocType)+" "+invoice.FullNumber(), true).
		WithAuthor(tenant.LegalName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(invoice, tenant))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(emisorRow(tenant))
	m.AddRows(adquirenteRow(invoice))
	if invoice.IsNote() {
		m.AddRows(referenciaRow(invoice))
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableItemRows(items) {
		m.AddRows(r)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(invoice))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	for _, r := range sunatFooterRows(invoice, tenant) {
		m.AddRows(r)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: Razón social + RUC (izq) y tipo + número del comprobante (der).
func headerRow(invoice *entity.Invoice, tenant *entity.Tenant) core.Row {
	fecha := invoice.IssuedAt.Format("02/01/2006")

	return row.New(18).Add(
		col.New(7).Add(
			text.New(tenant.LegalName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RUC: "+tenant.RUC, props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(docTypeLabel(invoice.DocType), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.FullNumber(), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha de emisión: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// emisorRow: domicilio fiscal del emisor.
func emisorRow(tenant *entity.Tenant) core.Row {
	ubicacion := strings.TrimRight(strings.Join(nonEmptyAll(
		tenant.District, tenant.Province, tenant.Department,
	), " - "), " -")
	return row.New(12).Add(
		col.New(12).Add(
			text.New("DATOS DEL EMISOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Domicilio fiscal: %s   |   %s",
				nonEmpty(tenant.Address, "—"),
				nonEmpty(ubicacion, "—"),
			), props.Text{Size: 8, Top: 7, Color: colorGray}),
		),
	)
}

// adquirenteRow: datos del comprador congelados en el comprobante.
func adquirenteRow(invoice *entity.Invoice) core.Row {
	docLabel := "Doc."
	switch invoice.CustomerDocType {
	case pkgsunat.IdentityTypeRUC:
		docLabel = "RUC"
	case pkgsunat.IdentityTypeDNI:
		docLabel = "DNI"
	}
	return row.New(14).Add(
		col.New(12).Add(
			text.New("ADQUIRENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(invoice.CustomerName, props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New(fmt.Sprintf("%s: %s   |   Email: %s",
				docLabel,
				invoice.CustomerDocNum,
				nonEmpty(invoice.CustomerEmail, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// referenciaRow: comprobante que la nota modifica.
func referenciaRow(invoice *entity.Invoice) core.Row {
	ref := pkgsunat.FormatFullNumber(invoice.ReferenceSerie, invoice.ReferenceCorrelative)
	return row.New(8).Add(
		col.New(12).Add(
			text.New(fmt.Sprintf("Documento que modifica: %s %s   |   Motivo: %s",
				docTypeLabel(invoice.ReferenceDocType), ref, invoice.ReferenceReason,
			), props.Text{Size: 8, Top: 1, Color: colorGray}),
		),
	)
}

// tableHeaderRow: cabecera de la tabla de líneas.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Descripción", 6, align.Left),
		h("P. Unit.", 2, align.Right),
		h("Subtotal", 3, align.Right),
	)
}

// tableItemRows: una fila por línea del comprobante.
func tableItemRows(items []entity.InvoiceItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(
				it.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(6).Add(text.New(
				it.Description,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(2).Add(text.New(
				"S/ "+it.UnitPrice.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(3).Add(text.New(
				"S/ "+it.Subtotal.StringFixed(2),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
		))
	}
	return result
}

// totalsRow: bloque de totales alineado a la derecha.
func totalsRow(invoice *entity.Invoice) core.Row {
	sym := "S/ "
	if invoice.Currency == pkgsunat.CurrencyUSD {
		sym = "US$ "
	}
	label := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2,
		})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	grandLabel := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 2,
		})
	}
	grandValue := func(s string) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right,
			Color: colorPrimary, Right: 1,
		})
	}

	return row.New(26).Add(
		col.New(3),
		col.New(3).Add(
			label("Op. Gravada:"),
			label("IGV (18%):"),
			grandLabel("IMPORTE TOTAL:"),
		),
		col.New(3).Add(
			value(sym+invoice.Subtotal.StringFixed(2)),
			value(sym+invoice.IGV.StringFixed(2)),
			grandValue(sym+invoice.Total.StringFixed(2)),
		),
		col.New(3),
	)
}

// sunatFooterRows: código QR + leyenda legal.
func sunatFooterRows(invoice *entity.Invoice, tenant *entity.Tenant) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("INFORMACIÓN ELECTRÓNICA SUNAT", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}

	rows = append(rows, row.New(50).Add(
		col.New(4).Add(code.NewQr(buildSUNATQR(invoice, tenant), props.Rect{
			Percent: 95,
			Center:  true,
		})),
		col.New(8).Add(
			text.New("Escanea el código QR para validar\neste comprobante en SUNAT Virtual.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Representación impresa de la\n"+docTypeLabel(invoice.DocType), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 22,
				Left: 3, Color: colorPrimary,
			}),
		),
	))

	rows = append(rows, row.New(8).Add(col.New(12).Add(
		text.New(
			"Comprobante de pago electrónico emitido conforme a la Resolución de "+
				"Superintendencia N° 097-2012/SUNAT y modificatorias. "+
				"Conserve este documento como sustento tributario.",
			props.Text{Size: 6.5, Color: colorGray, Top: 2},
		),
	)))

	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func docTypeLabel(docType string) string {
	if label, ok := docTypeLabels[docType]; ok {
		return label
	}
	return "COMPROBANTE ELECTRÓNICO"
}

// buildSUNATQR arma el payload del QR según el formato SUNAT:
// RUC|tipo|serie|correlativo|igv|total|fecha|tipoDocAdq|numDocAdq|
func buildSUNATQR(invoice *entity.Invoice, tenant *entity.Tenant) string {
	return strings.Join([]string{
		tenant.RUC,
		invoice.DocType,
		invoice.Serie,
		fmt.Sprintf("%d", invoice.Correlative),
		invoice.IGV.Round(2).StringFixed(2),
		invoice.Total.Round(2).StringFixed(2),
		invoice.IssuedAt.Format("2006-01-02"),
		invoice.CustomerDocType,
		invoice.CustomerDocNum,
	}, "|") + "|"
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func nonEmptyAll(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
