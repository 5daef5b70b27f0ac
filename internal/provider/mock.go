package provider

import (
	"context"
	"sync"

	"linkhub/internal/domain"
)

// MockGateway permite tests sin llamar al proveedor real. Es seguro para
// llamadas concurrentes.
type MockGateway struct {
	mu    sync.Mutex
	Ref   AccountRef
	Err   error
	Calls []domain.LinkRequest
}

func (m *MockGateway) Link(_ context.Context, req domain.LinkRequest) (AccountRef, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	m.mu.Unlock()
	return m.Ref, m.Err
}
