// Carga del certificado de firma desde .p12 (PKCS#12) o par PEM.

package sunat

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// LoadCertificate carga el certificado según la extensión del archivo.
// Si certPath está vacío retorna cert vacío y err nil (modo simulado).
func LoadCertificate(certPath, keyPath, password string) (tls.Certificate, error) {
	if certPath == "" {
		return tls.Certificate{}, nil
	}
	if strings.HasSuffix(strings.ToLower(certPath), ".p12") ||
		strings.HasSuffix(strings.ToLower(certPath), ".pfx") {
		return LoadFromP12(certPath, password)
	}
	return LoadFromPEM(certPath, keyPath)
}

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (separados o
// combinados en uno solo).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		return tls.LoadX509KeyPair(certPath, certPath)
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}
