package core

import (
	"context"

	"github.com/dkeye/Presence/internal/domain"
)

// Frame is a raw encoded message.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

// ContentSource is implemented by transports that can ask a client for
// the current content of the seat it occupies.
type ContentSource interface {
	FetchContent(ctx context.Context) (domain.RoleContent, error)
}
