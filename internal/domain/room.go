package domain

import "time"

type (
	ProjectID string
	RoleID    string
	ActionID  int64
)

const (
	DefaultProjectName = "untitled"
	DefaultRoleID      = RoleID("myRole")
)

// NewProjectID returns an id for a project that has no persisted copy yet.
func NewProjectID() ProjectID {
	return ProjectID(NewConnID())
}

// RoleMeta is the persisted description of one seat.
type RoleMeta struct {
	DisplayName string `json:"displayName"`
}

// ProjectMeta is what the project store knows about a project, without seat content.
type ProjectMeta struct {
	ID            ProjectID           `json:"id"`
	Owner         string              `json:"owner"`
	Name          string              `json:"name"`
	Collaborators []string            `json:"collaborators"`
	OriginTime    time.Time           `json:"originTime"`
	Roles         map[RoleID]RoleMeta `json:"roles"`
}

// RoleContent is the serialized content of one seat. Body is opaque to this server.
type RoleContent struct {
	Name string `json:"name"`
	Body []byte `json:"body,omitempty"`
}

// Clone returns a copy that shares no memory with c.
func (c RoleContent) Clone() RoleContent {
	out := RoleContent{Name: c.Name}
	if c.Body != nil {
		out.Body = append([]byte(nil), c.Body...)
	}
	return out
}
