package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrUnknownSeat = errors.New("unknown seat")
	ErrSeatTaken   = errors.New("seat already occupied")
	ErrRoomClosed  = errors.New("room closed")
)

// Lifecycle is the coarse state of a room.
type Lifecycle int

const (
	Draft Lifecycle = iota
	Active
	Vacant
	Closed
)

func (l Lifecycle) String() string {
	switch l {
	case Draft:
		return "draft"
	case Active:
		return "active"
	case Vacant:
		return "vacant"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Room is the live state of one project: its seats, who sits in them and
// the last content seen for each seat.
// It holds connection ids only; connections are resolved through lookup.
type Room struct {
	id     domain.ProjectID
	lookup OccupantLookup

	mu            sync.RWMutex
	name          string
	owner         string
	collaborators []string
	roles         []domain.RoleID
	occupants     map[domain.RoleID]domain.ConnID
	cache         map[domain.RoleID]domain.RoleContent
	originTime    time.Time
	version       uint64
	persisted     bool
	everOccupied  bool
	closed        bool
	vacantSince   time.Time
}

// NewRoom creates a draft room with no seats.
func NewRoom(id domain.ProjectID, name, owner string, lookup OccupantLookup) *Room {
	if name == "" {
		name = domain.DefaultProjectName
	}
	r := &Room{
		id:         id,
		lookup:     lookup,
		name:       name,
		owner:      owner,
		occupants:  make(map[domain.RoleID]domain.ConnID),
		cache:      make(map[domain.RoleID]domain.RoleContent),
		originTime: time.Now(),
	}
	log.Info().Str("module", "core.room").Str("project", string(id)).Str("owner", owner).Msg("room created")
	return r
}

// RoomFromMeta rebuilds a room from its persisted metadata and the saved
// content of its seats. All seats start vacant.
func RoomFromMeta(meta *domain.ProjectMeta, content map[domain.RoleID]domain.RoleContent, lookup OccupantLookup) *Room {
	r := NewRoom(meta.ID, meta.Name, meta.Owner, lookup)
	r.persisted = true
	if !meta.OriginTime.IsZero() {
		r.originTime = meta.OriginTime
	}
	r.collaborators = slices.Clone(meta.Collaborators)
	for role, rm := range meta.Roles {
		r.roles = append(r.roles, role)
		c := content[role].Clone()
		if rm.DisplayName != "" {
			c.Name = rm.DisplayName
		}
		if c.Name == "" {
			c.Name = string(role)
		}
		r.cache[role] = c
	}
	slices.Sort(r.roles)
	return r
}

func (r *Room) ID() domain.ProjectID { return r.id }

func (r *Room) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

func (r *Room) Owner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *Room) Collaborators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.collaborators)
}

func (r *Room) OriginTime() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.originTime
}

// Version increases on every change to the room's layout or membership.
func (r *Room) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// Persisted reports whether the room has a stored copy to save into.
func (r *Room) Persisted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.persisted
}

func (r *Room) MarkPersisted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.persisted = true
}

// Roles returns the seat ids in seat order.
func (r *Room) Roles() []domain.RoleID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.roles)
}

func (r *Room) HasSeat(role domain.RoleID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasSeat(role)
}

func (r *Room) SeatCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roles)
}

// Occupant returns the connection seated at role ("" when vacant).
// ok is false when the seat does not exist.
func (r *Room) Occupant(role domain.RoleID) (domain.ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.hasSeat(role) {
		return "", false
	}
	return r.occupants[role], true
}

// OccupantIDs lists the seated connections in seat order.
func (r *Room) OccupantIDs() []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.occupantIDs()
}

func (r *Room) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.occupantIDs()) == 0
}

func (r *Room) State() Lifecycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.closed:
		return Closed
	case len(r.occupantIDs()) > 0:
		return Active
	case r.everOccupied || r.persisted:
		return Vacant
	}
	return Draft
}

// VacantSince reports when the last occupant left. ok is false while occupied.
func (r *Room) VacantSince() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vacantSince, !r.vacantSince.IsZero()
}

func (r *Room) Info() RoomInfo {
	st := r.State()
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RoomInfo{
		ID:        r.id,
		Name:      r.name,
		Owner:     r.owner,
		Seats:     len(r.roles),
		Occupants: len(r.occupantIDs()),
		State:     st.String(),
	}
}

/////////// Seats ///////////

// CreateSeat adds a vacant seat. It returns false if the seat already exists.
func (r *Room) CreateSeat(role domain.RoleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.hasSeat(role) {
		return false
	}
	r.createSeat(role)
	r.touch()
	return true
}

// AddOccupant seats id at role, creating the seat if needed.
// A different connection already in that seat is displaced and returned.
func (r *Room) AddOccupant(id domain.ConnID, role domain.RoleID) (domain.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRoomClosed
	}
	if !r.hasSeat(role) {
		r.createSeat(role)
	}
	prev := r.occupants[role]
	if prev == id {
		return "", nil
	}
	if old, ok := r.seatOf(id); ok {
		r.occupants[old] = ""
	}
	r.occupants[role] = id
	r.everOccupied = true
	r.touch()
	log.Debug().Str("module", "core.room").Str("project", string(r.id)).Str("conn", string(id)).Str("role", string(role)).Msg("occupant added")
	return prev, nil
}

// RemoveOccupant clears the seat id occupies. It is a no-op returning
// false when id is not seated here.
func (r *Room) RemoveOccupant(id domain.ConnID) (domain.RoleID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role, ok := r.seatOf(id)
	if !ok {
		return "", false
	}
	r.occupants[role] = ""
	r.touch()
	log.Debug().Str("module", "core.room").Str("project", string(r.id)).Str("conn", string(id)).Str("role", string(role)).Msg("occupant removed")
	return role, true
}

// MoveOccupant moves id from one seat to another. If some other connection
// is found in from, the room is out of sync: that connection is evicted and
// returned so the caller can relocate it, and the move still completes.
func (r *Room) MoveOccupant(id domain.ConnID, from, to domain.RoleID) (domain.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRoomClosed
	}
	if !r.hasSeat(from) {
		return "", fmt.Errorf("move from %q: %w", from, ErrUnknownSeat)
	}
	if !r.hasSeat(to) {
		return "", fmt.Errorf("move to %q: %w", to, ErrUnknownSeat)
	}
	if cur := r.occupants[to]; cur != "" && cur != id {
		return "", fmt.Errorf("move to %q: %w", to, ErrSeatTaken)
	}

	var evicted domain.ConnID
	if cur := r.occupants[from]; cur != id {
		log.Error().
			Str("module", "core.room").
			Str("project", string(r.id)).
			Str("role", string(from)).
			Str("expected", string(id)).
			Str("found", string(cur)).
			Str("seats", r.describeSeats()).
			Msg("room is out of sync")
		evicted = cur
		if old, ok := r.seatOf(id); ok {
			r.occupants[old] = ""
		}
	}
	r.occupants[from] = ""
	r.occupants[to] = id
	r.everOccupied = true
	r.touch()
	log.Info().Str("module", "core.room").Str("project", string(r.id)).Str("conn", string(id)).Str("from", string(from)).Str("to", string(to)).Msg("occupant moved")
	return evicted, nil
}

// RenameSeat re-keys a seat and its cached content. It fails without
// changing anything when newID is an occupied seat; a vacant seat named
// newID is replaced. The occupant of the renamed seat is returned.
func (r *Room) RenameSeat(oldID, newID domain.RoleID) (domain.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasSeat(oldID) {
		return "", fmt.Errorf("rename %q: %w", oldID, ErrUnknownSeat)
	}
	if oldID == newID {
		return r.occupants[oldID], nil
	}
	if r.hasSeat(newID) {
		if r.occupants[newID] != "" {
			log.Warn().Str("module", "core.room").Str("project", string(r.id)).Str("role", string(newID)).Msg("cannot rename seat: target already taken")
			return "", fmt.Errorf("rename to %q: %w", newID, ErrSeatTaken)
		}
		r.deleteSeat(newID)
	}

	occupant := r.occupants[oldID]
	r.roles[slices.Index(r.roles, oldID)] = newID
	delete(r.occupants, oldID)
	r.occupants[newID] = occupant

	if content, ok := r.cache[oldID]; ok {
		delete(r.cache, oldID)
		content.Name = string(newID)
		r.cache[newID] = content
	}

	r.touch()
	return occupant, nil
}

// RemoveSeat deletes a seat and its cache entry, returning its occupant.
func (r *Room) RemoveSeat(role domain.RoleID) (domain.ConnID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasSeat(role) {
		return "", fmt.Errorf("remove %q: %w", role, ErrUnknownSeat)
	}
	occupant := r.occupants[role]
	r.deleteSeat(role)
	r.touch()
	return occupant, nil
}

/////////// Caching and saving ///////////

// CacheSeatContent stores the latest content reported for role.
func (r *Room) CacheSeatContent(role domain.RoleID, content domain.RoleContent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hasSeat(role) {
		return fmt.Errorf("cache %q: %w", role, ErrUnknownSeat)
	}
	r.storeContent(role, content)
	return nil
}

// CachedContent returns the last content seen for role.
func (r *Room) CachedContent(role domain.RoleID) (domain.RoleContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cache[role]
	if !ok {
		return domain.RoleContent{}, false
	}
	return c.Clone(), true
}

type seatContent struct {
	role    domain.RoleID
	content domain.RoleContent
	live    bool
}

// CollectAllContent returns the content of every seat: live content from
// occupants that can report it, the cached value otherwise. Live content
// also refreshes the cache.
func (r *Room) CollectAllContent(ctx context.Context) map[domain.RoleID]domain.RoleContent {
	r.mu.RLock()
	out := make(map[domain.RoleID]domain.RoleContent, len(r.roles))
	sources := make(map[domain.RoleID]ContentSource)
	for _, role := range r.roles {
		c, ok := r.cache[role]
		if !ok {
			c = domain.RoleContent{Name: string(role)}
		}
		out[role] = c.Clone()
		if id := r.occupants[role]; id != "" && r.lookup != nil {
			if conn, ok := r.lookup.WithID(id); ok {
				if src, ok := conn.Signal().(ContentSource); ok {
					sources[role] = src
				}
			}
		}
	}
	r.mu.RUnlock()

	if len(sources) == 0 {
		return out
	}

	p := pool.NewWithResults[seatContent]().WithContext(ctx)
	for role, src := range sources {
		role, src := role, src
		p.Go(func(ctx context.Context) (seatContent, error) {
			c, err := src.FetchContent(ctx)
			if err != nil {
				log.Warn().Err(err).Str("module", "core.room").Str("project", string(r.id)).Str("role", string(role)).Msg("live content unavailable, using cache")
				return seatContent{role: role}, nil
			}
			return seatContent{role: role, content: c, live: true}, nil
		})
	}
	results, _ := p.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range results {
		if !res.live || !r.hasSeat(res.role) {
			continue
		}
		r.storeContent(res.role, res.content)
		out[res.role] = r.cache[res.role].Clone()
	}
	return out
}

// Meta describes the room in the shape the project store keeps.
func (r *Room) Meta() domain.ProjectMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make(map[domain.RoleID]domain.RoleMeta, len(r.roles))
	for _, role := range r.roles {
		roles[role] = domain.RoleMeta{DisplayName: r.displayName(role)}
	}
	return domain.ProjectMeta{
		ID:            r.id,
		Owner:         r.owner,
		Name:          r.name,
		Collaborators: slices.Clone(r.collaborators),
		OriginTime:    r.originTime,
		Roles:         roles,
	}
}

// Save persists all seat content, giving occupants up to fetchTimeout to
// report what they hold. It does nothing for a room that has never been
// saved.
func (r *Room) Save(ctx context.Context, store ProjectStore, fetchTimeout time.Duration) error {
	if !r.Persisted() {
		return nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	content := r.CollectAllContent(fetchCtx)
	cancel()
	if err := store.Persist(ctx, r.id, content, r.Meta()); err != nil {
		return fmt.Errorf("persist project %s: %w", r.id, err)
	}
	log.Info().Str("module", "core.room").Str("project", string(r.id)).Int("roles", len(content)).Msg("room saved")
	return nil
}

// Fork copies the room for a new owner: same seats, all vacant, a deep
// copy of the content cache and a fresh origin time.
func (r *Room) Fork(id domain.ProjectID, owner string) *Room {
	r.mu.RLock()
	name := r.name
	roles := slices.Clone(r.roles)
	cache := make(map[domain.RoleID]domain.RoleContent, len(r.cache))
	for role, c := range r.cache {
		cache[role] = c.Clone()
	}
	r.mu.RUnlock()

	f := NewRoom(id, name, owner, r.lookup)
	f.roles = roles
	for _, role := range roles {
		f.occupants[role] = ""
	}
	f.cache = cache
	log.Info().Str("module", "core.room").Str("project", string(r.id)).Str("fork", string(id)).Str("owner", owner).Msg("room forked")
	return f
}

/////////// Snapshot ///////////

// Snapshot computes the current membership of the room. Occupants come
// from the registry, so several connections may transiently share a seat.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roles := make(map[domain.RoleID]RoleState, len(r.roles))
	for _, role := range r.roles {
		occupants := []domain.Occupant{}
		if r.lookup != nil {
			for _, c := range r.lookup.At(r.id, role) {
				occupants = append(occupants, domain.NewOccupant(c.ID(), c.Username()))
			}
		}
		roles[role] = RoleState{Name: r.displayName(role), Occupants: occupants}
	}
	collaborators := slices.Clone(r.collaborators)
	if collaborators == nil {
		collaborators = []string{}
	}
	return RoomSnapshot{
		Type:          MsgRoomRoles,
		Version:       r.version,
		Owner:         r.owner,
		ID:            r.id,
		Collaborators: collaborators,
		Name:          r.name,
		Roles:         roles,
	}
}

/////////// Ownership ///////////

func (r *Room) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name == "" || name == r.name {
		return
	}
	r.name = name
	r.touch()
}

func (r *Room) SetOwner(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owner = owner
	r.touch()
}

func (r *Room) AddCollaborator(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if slices.Contains(r.collaborators, username) {
		return false
	}
	r.collaborators = append(r.collaborators, username)
	r.touch()
	return true
}

func (r *Room) RemoveCollaborator(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.Index(r.collaborators, username)
	if i == -1 {
		return false
	}
	r.collaborators = slices.Delete(r.collaborators, i, i+1)
	r.touch()
	return true
}

// CanEdit reports whether username may save into this room directly.
func (r *Room) CanEdit(username string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return username == r.owner || slices.Contains(r.collaborators, username)
}

// Close marks the room closed and empties every seat. It returns the
// connections that were seated.
func (r *Room) Close() []domain.ConnID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.occupantIDs()
	for role := range r.occupants {
		r.occupants[role] = ""
	}
	r.closed = true
	r.touch()
	log.Info().Str("module", "core.room").Str("project", string(r.id)).Int("occupants", len(ids)).Msg("room closed")
	return ids
}

/////////// helpers (lock held) ///////////

func (r *Room) hasSeat(role domain.RoleID) bool {
	_, ok := r.occupants[role]
	return ok
}

func (r *Room) createSeat(role domain.RoleID) {
	r.roles = append(r.roles, role)
	r.occupants[role] = ""
}

func (r *Room) deleteSeat(role domain.RoleID) {
	r.roles = slices.DeleteFunc(r.roles, func(id domain.RoleID) bool { return id == role })
	delete(r.occupants, role)
	delete(r.cache, role)
}

func (r *Room) seatOf(id domain.ConnID) (domain.RoleID, bool) {
	for _, role := range r.roles {
		if r.occupants[role] == id {
			return role, true
		}
	}
	return "", false
}

func (r *Room) occupantIDs() []domain.ConnID {
	var ids []domain.ConnID
	for _, role := range r.roles {
		if id := r.occupants[role]; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Room) storeContent(role domain.RoleID, content domain.RoleContent) {
	content = content.Clone()
	if content.Name == "" {
		content.Name = r.displayName(role)
	}
	r.cache[role] = content
}

func (r *Room) displayName(role domain.RoleID) string {
	if c, ok := r.cache[role]; ok && c.Name != "" {
		return c.Name
	}
	return string(role)
}

// touch records a change to layout or membership.
func (r *Room) touch() {
	r.version++
	if len(r.occupantIDs()) > 0 {
		r.vacantSince = time.Time{}
	} else if r.vacantSince.IsZero() && (r.everOccupied || r.persisted) {
		r.vacantSince = time.Now()
	}
}

func (r *Room) describeSeats() string {
	var b strings.Builder
	for _, role := range r.roles {
		fmt.Fprintf(&b, "%s: %s\n", role, r.occupants[role])
	}
	return strings.TrimSuffix(b.String(), "\n")
}
