// Package presence tracks which users have live connections and what each
// connection is currently viewing. State is process-local and lost on restart;
// clients re-announce presence after reconnecting.
package presence

import "sync"

type connKey struct {
	user string
	conn string
}

// Registry holds the three presence maps behind one mutex. Operations do no
// I/O and never block, so each call is atomic relative to every other call;
// callers must not assume anything across two separate calls.
//
// Invariants maintained here:
//   - chatListViewers[user] is a subset of connections[user]
//   - every openChat key references a live connection
//   - Disconnect removes a connection from all three maps, idempotently
type Registry struct {
	mu          sync.RWMutex
	connections map[string]map[string]struct{}
	listViewers map[string]map[string]struct{}
	openChat    map[connKey]string
}

func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]map[string]struct{}),
		listViewers: make(map[string]map[string]struct{}),
		openChat:    make(map[connKey]string),
	}
}

// Connect registers a live connection for user. Token validation happens
// before this call; an unauthenticated connection is never registered.
func (r *Registry) Connect(user, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connections[user]; !ok {
		r.connections[user] = make(map[string]struct{})
	}
	r.connections[user][connID] = struct{}{}
}

// EnterChatList marks the connection as displaying a chat-list screen.
// Unknown connections are ignored to keep listViewers a subset of connections.
func (r *Registry) EnterChatList(user, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connections[user][connID]; !ok {
		return
	}
	if _, ok := r.listViewers[user]; !ok {
		r.listViewers[user] = make(map[string]struct{})
	}
	r.listViewers[user][connID] = struct{}{}
}

// OpenChat records which single conversation the connection has open,
// overwriting any previous one.
func (r *Registry) OpenChat(user, connID, chatID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connections[user][connID]; !ok {
		return
	}
	r.openChat[connKey{user, connID}] = chatID
}

// LeaveChatList removes the connection from the chat-list viewers and closes
// any open conversation (no conversation can stay open off the list screen).
func (r *Registry) LeaveChatList(user, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveChatListLocked(user, connID)
}

func (r *Registry) leaveChatListLocked(user, connID string) {
	if viewers, ok := r.listViewers[user]; ok {
		delete(viewers, connID)
		if len(viewers) == 0 {
			delete(r.listViewers, user)
		}
	}
	delete(r.openChat, connKey{user, connID})
}

// CloseChat clears the open conversation only; list membership is unaffected.
func (r *Registry) CloseChat(user, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.openChat, connKey{user, connID})
}

// Disconnect removes the connection from all three maps. Idempotent: the
// transport can fire both an error and a close event for the same connection.
func (r *Registry) Disconnect(user, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.connections[user]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.connections, user)
		}
	}
	r.leaveChatListLocked(user, connID)
}

// IsChatOpen reports whether the connection currently has chatID open.
// The empty id never matches: it is also the map's zero value for
// connections with nothing open.
func (r *Registry) IsChatOpen(user, connID, chatID string) bool {
	if chatID == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.openChat[connKey{user, connID}] == chatID
}

// ConnectionsOf returns the ids of all live connections for user.
func (r *Registry) ConnectionsOf(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.connections[user])
}

// ChatListViewersOf returns the ids of user's connections currently showing
// a chat-list screen.
func (r *Registry) ChatListViewersOf(user string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.listViewers[user])
}

func keys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
