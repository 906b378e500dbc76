package sunat

import "crypto/tls"

// Signer define el puerto de firma digital del XML UBL.
// La implementación concreta vive en internal/infrastructure/sunat;
// para tests se puede inyectar un doble que devuelva el XML sin firmar.
type Signer interface {
	// Sign firma el XML y devuelve el documento con el nodo ds:Signature
	// inyectado en el ExtensionContent reservado para SUNAT.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
