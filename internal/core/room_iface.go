package core

import "github.com/dkeye/Presence/internal/domain"

// Outbound message types.
const (
	MsgRoomRoles     = "room-roles"
	MsgProjectFork   = "project-fork"
	MsgNotification  = "notification"
	MsgProjectClosed = "project-closed"
)

// RoleState is one seat as it appears in a snapshot.
type RoleState struct {
	Name      string            `json:"name"`
	Occupants []domain.Occupant `json:"occupants"`
}

// RoomSnapshot is the broadcast-ready description of a room's membership.
// It is recomputed for every broadcast and never mutated afterwards.
type RoomSnapshot struct {
	Type          string                      `json:"type"`
	Version       uint64                      `json:"version"`
	Owner         string                      `json:"owner"`
	ID            domain.ProjectID            `json:"id"`
	Collaborators []string                    `json:"collaborators"`
	Name          string                      `json:"name"`
	Roles         map[domain.RoleID]RoleState `json:"roles"`
}

// IsVacant reports whether role is known to the snapshot and has no occupants.
func (s RoomSnapshot) IsVacant(role domain.RoleID) bool {
	st, ok := s.Roles[role]
	return ok && len(st.Occupants) == 0
}

type ForkMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ProjectClosed struct {
	Type string `json:"type"`
}

// RoomInfo is a read-only listing entry (no transport fields).
type RoomInfo struct {
	ID        domain.ProjectID `json:"id"`
	Name      string           `json:"name"`
	Owner     string           `json:"owner"`
	Seats     int              `json:"seats"`
	Occupants int              `json:"occupants"`
	State     string           `json:"state"`
}
