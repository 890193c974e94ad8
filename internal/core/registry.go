package core

import (
	"sort"
	"sync"
)

// Registry owns every piece of shared chat state: the user and room sets,
// the bidirectional membership maps, the presence set of connected users,
// and each user's delivery mailbox. All mutation happens under one lock so
// no observer ever sees a half-applied join or leave.
type Registry struct {
	mu         sync.RWMutex
	sendBuffer int
	users      map[string]*userEntry
	rooms      map[string]map[string]struct{}
}

type userEntry struct {
	rooms     map[string]struct{}
	box       *Mailbox
	connected bool
}

// recipient pairs a member name with its mailbox for one fan-out pass.
type recipient struct {
	name string
	box  *Mailbox
}

// NewRegistry builds an empty registry. sendBuffer is the capacity of each
// user's delivery mailbox.
func NewRegistry(sendBuffer int) *Registry {
	return &Registry{
		sendBuffer: sendBuffer,
		users:      make(map[string]*userEntry),
		rooms:      make(map[string]map[string]struct{}),
	}
}

// RegisterUser adds a user with an empty room set and a fresh mailbox.
func (r *Registry) RegisterUser(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[name]; exists {
		return ErrAlreadyExists
	}
	r.users[name] = &userEntry{
		rooms: make(map[string]struct{}),
		box:   newMailbox(r.sendBuffer),
	}
	return nil
}

// DeleteUser removes a user from every room and closes its mailbox, which
// ends any live session's outbound loop.
func (r *Registry) DeleteUser(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[name]
	if !exists {
		return ErrUserNotFound
	}
	for room := range entry.rooms {
		delete(r.rooms[room], name)
	}
	delete(r.users, name)
	entry.box.close()
	return nil
}

// CreateRoom adds a room with an empty member set.
func (r *Registry) CreateRoom(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rooms[name]; exists {
		return ErrAlreadyExists
	}
	r.rooms[name] = make(map[string]struct{})
	return nil
}

// DeleteRoom removes a room and drops it from every member's room set.
func (r *Registry) DeleteRoom(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, exists := r.rooms[name]
	if !exists {
		return ErrRoomNotFound
	}
	for member := range members {
		delete(r.users[member].rooms, name)
	}
	delete(r.rooms, name)
	return nil
}

// JoinRoom inserts the membership pair into both maps.
func (r *Registry) JoinRoom(user, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[user]
	if !exists {
		return ErrUserNotFound
	}
	members, exists := r.rooms[room]
	if !exists {
		return ErrRoomNotFound
	}
	if _, joined := entry.rooms[room]; joined {
		return ErrAlreadyMember
	}
	entry.rooms[room] = struct{}{}
	members[user] = struct{}{}
	return nil
}

// LeaveRoom removes the membership pair from both maps.
func (r *Registry) LeaveRoom(user, room string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[user]
	if !exists {
		return ErrUserNotFound
	}
	members, exists := r.rooms[room]
	if !exists {
		return ErrRoomNotFound
	}
	if _, joined := entry.rooms[room]; !joined {
		return ErrNotMember
	}
	delete(entry.rooms, room)
	delete(members, user)
	return nil
}

// Attach claims the single live-session slot for a user and returns its
// delivery queue. A second attach for the same name fails until Detach.
func (r *Registry) Attach(name string) (<-chan *ChannelMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.users[name]
	if !exists {
		return nil, ErrUserNotFound
	}
	if entry.connected {
		return nil, ErrAlreadyConnected
	}
	entry.connected = true
	entry.box.drain()
	return entry.box.Receive(), nil
}

// Detach releases the live-session slot. Safe to call for a user that was
// deleted mid-session.
func (r *Registry) Detach(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, exists := r.users[name]; exists {
		entry.connected = false
	}
}

// Connected reports whether a live session is attached for the user.
func (r *Registry) Connected(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.users[name]
	return exists && entry.connected
}

// Users lists registered user names, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.users)
}

// Rooms lists room names, sorted.
func (r *Registry) Rooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.rooms)
}

// RoomsOf lists the rooms a user has joined, sorted.
func (r *Registry) RoomsOf(user string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.users[user]
	if !exists {
		return nil, ErrUserNotFound
	}
	return sortedKeys(entry.rooms), nil
}

// MembersOf lists the members of a room, sorted.
func (r *Registry) MembersOf(room string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[room]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return sortedKeys(members), nil
}

// UserRooms snapshots the user→rooms map for the admin read view.
func (r *Registry) UserRooms() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := make(map[string][]string, len(r.users))
	for name, entry := range r.users {
		view[name] = sortedKeys(entry.rooms)
	}
	return view
}

// RoomUsers snapshots the room→members map for the admin read view.
func (r *Registry) RoomUsers() map[string][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := make(map[string][]string, len(r.rooms))
	for name, members := range r.rooms {
		view[name] = sortedKeys(members)
	}
	return view
}

// recipients snapshots the mailboxes of a room's current members. The
// mailboxes guard their own lifecycle, so delivering after this lock is
// released never races a concurrent close.
func (r *Registry) recipients(room string) ([]recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[room]
	if !exists {
		return nil, ErrRoomNotFound
	}
	out := make([]recipient, 0, len(members))
	for member := range members {
		out = append(out, recipient{name: member, box: r.users[member].box})
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
