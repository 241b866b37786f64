package core

import (
	"sync"

	"github.com/dkeye/Presence/internal/domain"
)

// RoomManager is the set of live rooms keyed by project id.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[domain.ProjectID]*Room
}

func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms: make(map[domain.ProjectID]*Room),
	}
}

func (rm *RoomManager) Get(id domain.ProjectID) (*Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	room, ok := rm.rooms[id]
	return room, ok
}

// GetOrCreate returns the room for id, building it with create if absent.
func (rm *RoomManager) GetOrCreate(id domain.ProjectID, create func() *Room) *Room {
	rm.mu.RLock()
	room, ok := rm.rooms[id]
	rm.mu.RUnlock()

	if ok {
		return room
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok = rm.rooms[id]; !ok {
		room = create()
		rm.rooms[id] = room
	}
	return room
}

// Add registers room unless one with the same id is already live.
func (rm *RoomManager) Add(room *Room) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if _, ok := rm.rooms[room.ID()]; ok {
		return false
	}
	rm.rooms[room.ID()] = room
	return true
}

func (rm *RoomManager) Remove(id domain.ProjectID) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, id)
}

func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

func (rm *RoomManager) All() []*Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	out := make([]*Room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		out = append(out, r)
	}
	return out
}

func (rm *RoomManager) List() []RoomInfo {
	rooms := rm.All()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}
