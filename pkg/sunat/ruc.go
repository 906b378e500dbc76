package sunat

import (
	"fmt"
	"unicode"
)

// pesos para el cálculo del dígito verificador del RUC (módulo 11, SUNAT).
// Se aplican a los 10 primeros dígitos, de izquierda a derecha.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// prefijos de RUC válidos: 10 persona natural, 15/16/17 otros regímenes,
// 20 persona jurídica.
var validRUCPrefixes = map[string]bool{
	"10": true, "15": true, "16": true, "17": true, "20": true,
}

// ValidateRUC valida que el RUC tenga 11 dígitos, prefijo válido y dígito
// verificador correcto según el algoritmo módulo 11 de SUNAT.
// Acepta el número con o sin separadores ("20123456789" o "20-12345678-9").
func ValidateRUC(ruc string) error {
	digits := extractDigits(ruc)
	if len(digits) != 11 {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	prefix := string(digits[:2])
	if !validRUCPrefixes[prefix] {
		return fmt.Errorf("sunat: prefijo de RUC inválido: %s", prefix)
	}
	expected, err := ComputeRUCCheckDigit(string(digits[:10]))
	if err != nil {
		return err
	}
	if digits[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, digits[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros
// dígitos del RUC. Útil para completar números en carga de datos.
func ComputeRUCCheckDigit(base string) (byte, error) {
	digits := extractDigits(base)
	if len(digits) < 10 {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el verificador, se encontraron %d", len(digits))
	}
	var sum int
	for i, d := range digits[:10] {
		sum += int(d-'0') * rucWeights[i]
	}
	check := 11 - sum%11
	switch check {
	case 10:
		check = 0
	case 11:
		check = 1
	}
	return byte('0' + check), nil
}

// ValidateDNI valida que el DNI tenga exactamente 8 dígitos.
func ValidateDNI(dni string) error {
	digits := extractDigits(dni)
	if len(digits) != 8 || len(digits) != len([]rune(dni)) {
		return fmt.Errorf("sunat: DNI debe tener exactamente 8 dígitos")
	}
	return nil
}

// ValidateIdentityDocument valida el número de documento según su tipo de
// identidad (Catálogo 06). Para CE y pasaporte solo exige no-vacío y longitud
// razonable; SUNAT no publica algoritmo de verificación para esos tipos.
func ValidateIdentityDocument(identityType, number string) error {
	switch identityType {
	case IdentityTypeDNI:
		return ValidateDNI(number)
	case IdentityTypeRUC:
		return ValidateRUC(number)
	case IdentityTypeCE, IdentityTypePasaporte, IdentityTypeSinRUC:
		if number == "" || len(number) > 15 {
			return fmt.Errorf("sunat: número de documento inválido para tipo %s", identityType)
		}
		return nil
	default:
		return fmt.Errorf("sunat: tipo de documento de identidad desconocido: %q", identityType)
	}
}

func extractDigits(s string) []byte {
	var out []byte
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return out
}
