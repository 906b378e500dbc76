package sunat

import (
	"context"
	"fmt"
	"sync/atomic"
)

// MockGateway implementa DocumentGateway para el modo dev: acepta todo sin
// salir a la red. El ticket generado es determinista por proceso para poder
// seguirlo en los logs.
type MockGateway struct {
	seq atomic.Int64
}

var _ DocumentGateway = (*MockGateway)(nil)

// NewMockGateway construye la pasarela simulada.
func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// SubmitDocument simula la aceptación del envío y devuelve un ticket local.
func (m *MockGateway) SubmitDocument(_ context.Context, _ []byte, filename string) (*SubmitResult, error) {
	n := m.seq.Add(1)
	return &SubmitResult{Ticket: fmt.Sprintf("DEV-%06d-%s", n, filename)}, nil
}

// QueryTicket simula un CDR aceptado.
func (m *MockGateway) QueryTicket(_ context.Context, ticket string) (*TicketStatus, error) {
	return &TicketStatus{
		Terminal: true,
		Accepted: true,
		Response: fmt.Sprintf(`{"codRespuesta":"0","ticket":%q,"simulado":true}`, ticket),
	}, nil
}
