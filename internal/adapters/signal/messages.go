package signal

import "github.com/dkeye/Presence/internal/domain"

// Inbound and reply message types.
const (
	MsgPing               = "ping"
	MsgPong               = "pong"
	MsgWhoAmI             = "whoami"
	MsgLogin              = "login"
	MsgSetState           = "set-state"
	MsgMove               = "move"
	MsgAddRole            = "add-role"
	MsgRenameRole         = "rename-role"
	MsgRemoveRole         = "remove-role"
	MsgRoleContent        = "role-content"
	MsgExportRole         = "export-role"
	MsgUserAction         = "user-action"
	MsgSave               = "save"
	MsgProjectSaved       = "project-saved"
	MsgFork               = "fork"
	MsgRenameProject      = "rename-project"
	MsgAddCollaborator    = "add-collaborator"
	MsgRemoveCollaborator = "remove-collaborator"
	MsgCloseProject       = "close-project"
	MsgError              = "error"
)

type errorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type exportRequest struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type roleContentPayload struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (p roleContentPayload) content() domain.RoleContent {
	c := domain.RoleContent{Name: p.Name}
	if p.Content != "" {
		c.Body = []byte(p.Content)
	}
	return c
}
