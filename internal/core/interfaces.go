package core

import (
	"context"
	"time"

	"github.com/dkeye/Presence/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// ProjectStore is the persistent project storage.
// GetMetadata and GetRoleContent return (nil, nil) for what is not stored.
type ProjectStore interface {
	GetMetadata(ctx context.Context, id domain.ProjectID) (*domain.ProjectMeta, error)
	GetRoleContent(ctx context.Context, id domain.ProjectID, role domain.RoleID) (*domain.RoleContent, error)
	GetLastCheckpointedActionID(ctx context.Context, id domain.ProjectID, role domain.RoleID) (domain.ActionID, error)
	Persist(ctx context.Context, id domain.ProjectID, content map[domain.RoleID]domain.RoleContent, meta domain.ProjectMeta) error
}

// ActionLog is the recorded edit history of every seat.
type ActionLog interface {
	SetLatestActionID(ctx context.Context, id domain.ActionID) error
	DiscardActionsAfter(ctx context.Context, project domain.ProjectID, role domain.RoleID, after domain.ActionID, before time.Time) error
}

// OccupantLookup is the read side of the connection registry a room needs
// to resolve the connection ids it holds.
type OccupantLookup interface {
	WithID(id domain.ConnID) (*Connection, bool)
	At(project domain.ProjectID, role domain.RoleID) []*Connection
}
