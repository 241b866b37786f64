package core

import (
	"sync"

	"github.com/dkeye/Presence/internal/domain"
)

// Connection is one live client session.
// Its username and seat are changed only through the registry, which
// keeps its indices in step with the fields.
type Connection struct {
	id     domain.ConnID
	signal SignalConnection

	mu        sync.RWMutex
	username  string
	loggedIn  bool
	projectID domain.ProjectID
	roleID    domain.RoleID
}

// NewConnection creates an anonymous, unseated connection.
func NewConnection(id domain.ConnID, username string, signal SignalConnection) *Connection {
	if username == "" {
		username = domain.NewAnonymousName()
	}
	return &Connection{id: id, username: username, signal: signal}
}

func (c *Connection) ID() domain.ConnID        { return c.id }
func (c *Connection) Signal() SignalConnection { return c.signal }

func (c *Connection) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

func (c *Connection) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loggedIn
}

// Seat returns the connection's project and role. ok is false when unseated.
func (c *Connection) Seat() (domain.ProjectID, domain.RoleID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projectID, c.roleID, c.projectID != "" && c.roleID != ""
}

// Send delivers f if the connection has a transport attached.
func (c *Connection) Send(f Frame) error {
	if c.signal == nil {
		return nil
	}
	return c.signal.TrySend(f)
}

// SetIdentity overwrites the username. Only the registry calls this.
func (c *Connection) SetIdentity(username string, loggedIn bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
	c.loggedIn = loggedIn
}

// SetSeat overwrites the seat. Empty ids unseat the connection; a half-set
// pair is normalised to unseated. Only the registry calls this.
func (c *Connection) SetSeat(projectID domain.ProjectID, roleID domain.RoleID) {
	if projectID == "" || roleID == "" {
		projectID, roleID = "", ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.projectID = projectID
	c.roleID = roleID
}
