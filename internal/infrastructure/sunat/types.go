package sunat

import "context"

// ── Constantes de entorno ─────────────────────────────────────────────────────

const (
	// AppEnvDev no envía a SUNAT: la pasarela simulada acepta todo.
	AppEnvDev = "dev"
	// AppEnvBeta ambiente de habilitación/pruebas SUNAT.
	AppEnvBeta = "beta"
	// AppEnvProd ambiente de producción SUNAT.
	AppEnvProd = "prod"
)

// ── Puerto (interfaz) ─────────────────────────────────────────────────────────

// SubmitResult resultado de la entrega del comprobante a la pasarela.
// El envío es asíncrono: la aceptación síncrona solo entrega un ticket;
// el resultado real (CDR) se consulta después con QueryTicket.
type SubmitResult struct {
	Ticket string // número de ticket devuelto por la pasarela
}

// TicketStatus resultado de la consulta de un ticket.
type TicketStatus struct {
	Terminal bool   // true si la pasarela ya resolvió el comprobante
	Accepted bool   // válido solo si Terminal: true = CDR aceptado
	Response string // payload estructurado de la respuesta (JSON / CDR base64)
	Error    string // detalle de rechazo (válido si Terminal y !Accepted)
}

// DocumentGateway define el puerto de salida hacia la pasarela de comprobantes
// SUNAT. La implementación concreta usa la API REST con OAuth2; para tests y
// para el modo dev se inyectan dobles.
type DocumentGateway interface {
	// SubmitDocument envía el ZIP del comprobante firmado. filename es el
	// nombre del archivo ZIP (ej: "20131312955-01-F001-00000123.zip").
	SubmitDocument(ctx context.Context, zipBytes []byte, filename string) (*SubmitResult, error)

	// QueryTicket consulta el estado de un envío previo por su ticket.
	QueryTicket(ctx context.Context, ticket string) (*TicketStatus, error)
}
