// Servicio de firma digital XML-DSig para comprobantes electrónicos SUNAT.
// Inyecta el nodo ds:Signature dentro del ext:ExtensionContent vacío que el
// builder UBL deja como primer hijo del documento.

package sunat

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	pkgsunat "github.com/luisvera/facturacion-pe/pkg/sunat"
)

// Algoritmos y namespaces de la firma (XML-DSig, RSA-SHA256).
const (
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256       = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256          = "http://www.w3.org/2000/09/xmldsig#sha256"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	// SignatureID identificador del nodo de firma esperado por SUNAT.
	SignatureID = "signatureFACTURALO"
)

// DigitalSignatureService implementa pkg/sunat.Signer: firma enveloped
// RSA-SHA256 sobre el documento completo, inyectada en ext:ExtensionContent.
type DigitalSignatureService struct{}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign firma el XML e inyecta ds:Signature en el ExtensionContent vacío.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sunat: XML vacío")
	}
	if len(cert.Certificate) == 0 {
		// Modo simulado sin certificado: devolver el XML tal cual.
		return xmlBytes, nil
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("sunat: el certificado debe incluir llave privada RSA")
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("sunat: parsear certificado: %w", err)
	}

	// 1) Digest del documento canonicalizado (Reference URI="")
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		canonicalDoc = xmlBytes
	}
	docDigest := sha256.Sum256(canonicalDoc)
	docDigestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado y firmado con RSA-SHA256
	signedInfoXML := buildSignedInfo(docDigestB64)
	canonicalSignedInfo, err := canonicalizeXML([]byte(signedInfoXML))
	if err != nil {
		canonicalSignedInfo = []byte(signedInfoXML)
	}
	signHash := sha256.Sum256(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(nil, priv, crypto.SHA256, signHash[:])
	if err != nil {
		return nil, fmt.Errorf("sunat: firmar SignedInfo: %w", err)
	}

	signatureXML := buildSignatureXML(
		signedInfoXML,
		base64.StdEncoding.EncodeToString(signatureValue),
		base64.StdEncoding.EncodeToString(x509Cert.Raw),
	)

	// 3) Inyectar en ext:ExtensionContent
	return injectSignature(xmlBytes, signatureXML)
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func buildSignedInfo(docDigestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo xmlns:ds="` + NsDs + `">`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"/>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/>`)
	sb.WriteString(`<ds:Transform Algorithm="` + AlgC14N + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

func buildSignatureXML(signedInfoXML, signatureValueB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NsDs + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfoXML)
	sb.WriteString(`<ds:SignatureValue>` + signatureValueB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}

// injectSignature parsea el documento, ubica el ext:ExtensionContent vacío y
// le añade el nodo de firma.
func injectSignature(xmlBytes []byte, signatureXML string) ([]byte, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sunat: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sunat: documento sin raíz")
	}

	extContent := findExtensionContent(root)
	if extContent == nil {
		return nil, fmt.Errorf("sunat: no se encontró ext:ExtensionContent para inyectar la firma")
	}

	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sunat: parsear Signature: %w", err)
	}
	if sigRoot := sigDoc.Root(); sigRoot != nil {
		extContent.AddChild(sigRoot)
	}

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sunat: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

func findExtensionContent(root *etree.Element) *etree.Element {
	for _, child := range root.ChildElements() {
		if localTag(child) != "UBLExtensions" {
			continue
		}
		for _, ext := range child.ChildElements() {
			if localTag(ext) != "UBLExtension" {
				continue
			}
			for _, ec := range ext.ChildElements() {
				if localTag(ec) == "ExtensionContent" {
					return ec
				}
			}
		}
	}
	return nil
}

// localTag normaliza el tag sin prefijo (etree conserva el prefijo según el
// documento de origen).
func localTag(e *etree.Element) string {
	if i := strings.Index(e.Tag, ":"); i >= 0 {
		return e.Tag[i+1:]
	}
	return e.Tag
}

var _ pkgsunat.Signer = (*DigitalSignatureService)(nil)
