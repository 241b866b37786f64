package domain

// Occupant is one connection as it appears in a room snapshot.
// Username is nil for clients that have not logged in.
type Occupant struct {
	ConnID   ConnID  `json:"uuid"`
	Username *string `json:"username"`
}

// NewOccupant avoids raw literals and hides anonymous usernames.
func NewOccupant(id ConnID, username string) Occupant {
	o := Occupant{ConnID: id}
	if !IsAnonymous(username) {
		name := username
		o.Username = &name
	}
	return o
}
