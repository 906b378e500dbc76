package sunat

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisvera/facturacion-pe/internal/domain/entity"
	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

func testTenant() *entity.Tenant {
	return &entity.Tenant{
		ID:             "tenant-1",
		RUC:            "20131312955",
		LegalName:      "COMERCIAL DEL SUR S.A.C.",
		CommercialName: "Comercial del Sur",
		Address:        "Av. Arequipa 1234",
		Ubigeo:         "150101",
	}
}

func testInvoice(docType string) *entity.Invoice {
	return &entity.Invoice{
		ID:              "inv-1",
		TenantID:        "tenant-1",
		DocType:         docType,
		Serie:           "F001",
		Correlative:     123,
		IssuerRUC:       "20131312955",
		IssuerName:      "COMERCIAL DEL SUR S.A.C.",
		CustomerDocType: pkgsunat.IdentityTypeRUC,
		CustomerDocNum:  "20600055519",
		CustomerName:    "CLIENTE S.A.C.",
		Currency:        pkgsunat.CurrencyPEN,
		Subtotal:        decimal.RequireFromString("218.00"),
		IGV:             decimal.RequireFromString("39.24"),
		Total:           decimal.RequireFromString("257.24"),
		IssuedAt:        time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC),
	}
}

func testItems() []entity.InvoiceItem {
	return []entity.InvoiceItem{
		{
			SKU:         "SKU-01",
			Description: "Producto A",
			UnitPrice:   decimal.RequireFromString("59.00"),
			Quantity:    decimal.NewFromInt(2),
			Subtotal:    decimal.RequireFromString("118.00"),
		},
		{
			Description: "Producto B",
			UnitPrice:   decimal.RequireFromString("100.00"),
			Quantity:    decimal.NewFromInt(1),
			Subtotal:    decimal.RequireFromString("100.00"),
		},
	}
}

func TestUBLBuilder_Factura(t *testing.T) {
	builder := NewUBLBuilder()
	out, err := builder.Build(&DocumentContext{
		Invoice: testInvoice(pkgsunat.DocTypeFactura),
		Tenant:  testTenant(),
		Items:   testItems(),
	})
	require.NoError(t, err)

	xmlStr := string(out)
	assert.Contains(t, xmlStr, "<Invoice", "el comprobante 01 usa raíz Invoice")
	assert.Contains(t, xmlStr, "F001-00000123", "el ID lleva el número completo")
	assert.Contains(t, xmlStr, `listID="0101"`)
	assert.Contains(t, xmlStr, "2026-03-15", "la fecha de emisión es la del comprobante")
	assert.Contains(t, xmlStr, `currencyID="PEN"`)
	assert.Contains(t, xmlStr, "257.24")
	assert.Contains(t, xmlStr, "20131312955", "el RUC del emisor va en PartyIdentification")
	assert.Contains(t, xmlStr, "ExtensionContent", "debe existir el hueco para la firma")
	assert.NotContains(t, xmlStr, "DiscrepancyResponse", "una factura no lleva referencia")
}

func TestUBLBuilder_NamespacesBienFormados(t *testing.T) {
	builder := NewUBLBuilder()
	out, err := builder.Build(&DocumentContext{
		Invoice: testInvoice(pkgsunat.DocTypeFactura),
		Tenant:  testTenant(),
		Items:   testItems(),
	})
	require.NoError(t, err)
	xmlStr := string(out)

	// El namespace por defecto se declara exactamente una vez, en la raíz.
	assert.Equal(t, 1, strings.Count(xmlStr, `xmlns="`+NsInvoice+`"`),
		"xmlns por defecto duplicado rompe el documento")

	// Los hijos usan los prefijos declarados en la raíz, no redeclaraciones.
	assert.Contains(t, xmlStr, "<cbc:ID>")
	assert.Contains(t, xmlStr, "<cac:AccountingSupplierParty>")
	assert.Contains(t, xmlStr, "<ext:UBLExtensions>")
	assert.NotContains(t, xmlStr, `xmlns="`+NsCbc+`"`,
		"los elementos cbc no deben redeclarar su namespace")
	assert.NotContains(t, xmlStr, `xmlns="`+NsCac+`"`,
		"los elementos cac no deben redeclarar su namespace")

	// El documento se parsea de vuelta sin error (bien formado).
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	require.NotNil(t, doc.Root())
	assert.Equal(t, "Invoice", doc.Root().Tag)
}

func TestUBLBuilder_NotaCredito(t *testing.T) {
	inv := testInvoice(pkgsunat.DocTypeNotaCredito)
	inv.Serie = "FC01"
	inv.Correlative = 7
	inv.ReferenceID = "inv-original"
	inv.ReferenceDocType = pkgsunat.DocTypeFactura
	inv.ReferenceSerie = "F001"
	inv.ReferenceCorrelative = 123
	inv.ReferenceReason = pkgsunat.CreditReasonAnulacion

	builder := NewUBLBuilder()
	out, err := builder.Build(&DocumentContext{
		Invoice: inv,
		Tenant:  testTenant(),
		Items:   testItems(),
	})
	require.NoError(t, err)

	xmlStr := string(out)
	assert.Contains(t, xmlStr, "<CreditNote", "el comprobante 07 usa raíz CreditNote")
	assert.Contains(t, xmlStr, "DiscrepancyResponse")
	assert.Contains(t, xmlStr, "BillingReference")
	assert.Contains(t, xmlStr, "F001-00000123", "la referencia apunta al comprobante original")
	assert.Contains(t, xmlStr, "CreditNoteLine")
	assert.Contains(t, xmlStr, "CreditedQuantity")
	assert.Contains(t, xmlStr, "RequestedMonetaryTotal")
}

func TestUBLBuilder_SinLineas(t *testing.T) {
	builder := NewUBLBuilder()
	_, err := builder.Build(&DocumentContext{
		Invoice: testInvoice(pkgsunat.DocTypeFactura),
		Tenant:  testTenant(),
	})
	assert.Error(t, err, "un comprobante sin líneas no debe serializarse")
}

// certificado autofirmado para probar la firma
func selfSignedCert(t *testing.T) tls.Certificate {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "TEST SUNAT", Organization: []string{"Test"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}
}

func TestDigitalSignatureService_Sign(t *testing.T) {
	builder := NewUBLBuilder()
	xmlBytes, err := builder.Build(&DocumentContext{
		Invoice: testInvoice(pkgsunat.DocTypeFactura),
		Tenant:  testTenant(),
		Items:   testItems(),
	})
	require.NoError(t, err)

	signer := NewDigitalSignatureService()
	signed, err := signer.Sign(xmlBytes, selfSignedCert(t))
	require.NoError(t, err)

	signedStr := string(signed)
	assert.Contains(t, signedStr, "ds:Signature", "la firma debe inyectarse en el documento")
	assert.Contains(t, signedStr, "ds:SignatureValue")
	assert.Contains(t, signedStr, "X509Certificate")
}

func TestDigitalSignatureService_SinCertificado(t *testing.T) {
	signer := NewDigitalSignatureService()
	in := []byte("<Invoice/>")
	out, err := signer.Sign(in, tls.Certificate{})
	require.NoError(t, err)
	assert.Equal(t, in, out, "sin certificado se devuelve el XML sin firmar")
}
