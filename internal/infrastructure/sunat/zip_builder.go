package sunat

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// BuildZip empaqueta el XML firmado en un ZIP en memoria con el nombre de
// archivo que exige SUNAT: {RUC}-{tipo}-{serie}-{correlativo}.xml dentro de un
// ZIP del mismo nombre base.
func BuildZip(filename string, xmlBytes []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create(filename + ".xml")
	if err != nil {
		return nil, fmt.Errorf("sunat: error al crear entrada zip: %w", err)
	}
	if _, err := f.Write(xmlBytes); err != nil {
		return nil, fmt.Errorf("sunat: error al escribir xml en zip: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("sunat: error al cerrar zip: %w", err)
	}
	return buf.Bytes(), nil
}
