package provider

import (
	"context"

	"linkhub/internal/domain"
)

// AccountRef identifica la cuenta resultante en el proveedor externo.
type AccountRef struct {
	AccountID   string
	DisplayName string
}

// Gateway adapta los métodos de vinculación contra el proveedor externo.
// Las implementaciones no reintentan en silencio: los fallos transitorios se
// devuelven como *UnavailableError y el reintento es decisión del caller.
type Gateway interface {
	Link(ctx context.Context, req domain.LinkRequest) (AccountRef, error)
}
