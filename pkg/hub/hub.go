// Package hub manages websocket clients for live contest updates. Clients
// authenticate with their access token at upgrade time, then join and leave
// contest rooms; verdict and leaderboard events are pushed to the rooms.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"codearena/pkg/envelope"

	"github.com/gofiber/contrib/websocket"
)

type clientConn struct {
	conn     *websocket.Conn
	userID   int
	username string
	mu       sync.Mutex
	write    func([]byte) error
}

func newClientConn(c *websocket.Conn, userID int, username string) *clientConn {
	return &clientConn{
		conn:     c,
		userID:   userID,
		username: username,
		write: func(data []byte) error {
			return c.WriteMessage(websocket.TextMessage, data)
		},
	}
}

func (cc *clientConn) send(data []byte) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if err := cc.write(data); err != nil {
		log.Printf("[HUB] send error user=%d: %v", cc.userID, err)
	}
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*clientConn
	byUser   map[int][]*clientConn
	contests map[int]map[*clientConn]struct{}
}

func New() *Hub {
	return &Hub{
		clients:  make(map[*websocket.Conn]*clientConn),
		byUser:   make(map[int][]*clientConn),
		contests: make(map[int]map[*clientConn]struct{}),
	}
}

// HandleClientConn owns the read loop for one websocket connection.
// userID is zero for anonymous spectators.
func (h *Hub) HandleClientConn(c *websocket.Conn, userID int, username string) {
	cc := newClientConn(c, userID, username)

	h.mu.Lock()
	h.clients[c] = cc
	if userID > 0 {
		h.byUser[userID] = append(h.byUser[userID], cc)
	}
	h.mu.Unlock()

	log.Printf("[HUB] client connected user_id=%d total=%d", userID, h.ClientCount())

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		if userID > 0 {
			conns := h.byUser[userID]
			for i, conn := range conns {
				if conn == cc {
					h.byUser[userID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.byUser[userID]) == 0 {
				delete(h.byUser, userID)
			}
		}
		for id, room := range h.contests {
			delete(room, cc)
			if len(room) == 0 {
				delete(h.contests, id)
			}
		}
		h.mu.Unlock()
		c.Close()
		log.Printf("[HUB] client disconnected user_id=%d total=%d", userID, h.ClientCount())
	}()

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			return
		}

		var env envelope.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			errResp := envelope.Envelope{
				Action:    "error",
				Error:     &envelope.ErrorPayload{Code: 400, Message: "invalid JSON"},
				Timestamp: time.Now().UnixMilli(),
			}
			data, _ := errResp.Marshal()
			cc.send(data)
			continue
		}

		switch env.Action {
		case "ping":
			pong := envelope.New("pong", "system")
			data, _ := pong.Marshal()
			cc.send(data)

		case "join_contest":
			if env.ContestID <= 0 {
				h.replyError(cc, env, 400, "contest_id required")
				continue
			}
			h.mu.Lock()
			room, ok := h.contests[env.ContestID]
			if !ok {
				room = make(map[*clientConn]struct{})
				h.contests[env.ContestID] = room
			}
			room[cc] = struct{}{}
			h.mu.Unlock()
			h.reply(cc, env, map[string]int{"contest_id": env.ContestID})

		case "leave_contest":
			h.mu.Lock()
			if room, ok := h.contests[env.ContestID]; ok {
				delete(room, cc)
				if len(room) == 0 {
					delete(h.contests, env.ContestID)
				}
			}
			h.mu.Unlock()
			h.reply(cc, env, map[string]int{"contest_id": env.ContestID})

		default:
			h.replyError(cc, env, 404, "unknown action: "+env.Action)
		}
	}
}

func (h *Hub) reply(cc *clientConn, original envelope.Envelope, data interface{}) {
	env, err := envelope.NewReply(original, data)
	if err != nil {
		return
	}
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	cc.send(raw)
}

func (h *Hub) replyError(cc *clientConn, original envelope.Envelope, code int, msg string) {
	env := envelope.NewError(original, code, msg)
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	cc.send(raw)
}

// Broadcast sends an event to ALL connected clients.
func (h *Hub) Broadcast(action, service string, data interface{}) {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return
	}
	h.fanout(env, nil)
}

// BroadcastContest sends an event to the clients in one contest room.
func (h *Hub) BroadcastContest(contestID int, action, service string, data interface{}) {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return
	}
	env.ContestID = contestID
	h.fanout(env, h.contestConns(contestID))
}

// Forward re-emits an envelope received from the broker without re-stamping.
// Contest events go to the contest room, user-addressed events to that user's
// connections, everything else to all clients.
func (h *Hub) Forward(env envelope.Envelope) {
	switch {
	case env.ContestID > 0:
		h.fanout(env, h.contestConns(env.ContestID))
	case env.UserID > 0:
		h.fanout(env, h.userConns(env.UserID))
	default:
		h.fanout(env, nil)
	}
}

// SendToUser delivers an event to every connection of one user.
func (h *Hub) SendToUser(userID int, action, service string, data interface{}) {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return
	}
	env.UserID = userID
	h.fanout(env, h.userConns(userID))
}

func (h *Hub) contestConns(contestID int) []*clientConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	room := h.contests[contestID]
	conns := make([]*clientConn, 0, len(room))
	for cc := range room {
		conns = append(conns, cc)
	}
	return conns
}

func (h *Hub) userConns(userID int) []*clientConn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append(make([]*clientConn, 0, len(h.byUser[userID])), h.byUser[userID]...)
}

// fanout writes env to conns, or to every client when conns is nil.
func (h *Hub) fanout(env envelope.Envelope, conns []*clientConn) {
	raw, err := env.Marshal()
	if err != nil {
		return
	}
	if conns != nil {
		for _, cc := range conns {
			cc.send(raw)
		}
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, cc := range h.clients {
		cc.send(raw)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) AuthenticatedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser)
}
