package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

type client struct {
	conn     *websocket.Conn
	socketID string
	userID   uint

	writeMu sync.Mutex

	stateMu         sync.Mutex
	rooms           map[uint]struct{}
	resyncing       map[uint]bool
	canvasRequested map[uint]bool
	permanentLeave  bool
}

func newClient(conn *websocket.Conn, userID uint) *client {
	return &client{
		conn:            conn,
		socketID:        newSocketID(),
		userID:          userID,
		rooms:           make(map[uint]struct{}),
		resyncing:       make(map[uint]bool),
		canvasRequested: make(map[uint]bool),
	}
}

func (c *client) send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	envelope, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, envelope)
}

func (c *client) trackRoom(roomID uint) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.rooms[roomID] = struct{}{}
}

func (c *client) forgetRoom(roomID uint) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	delete(c.rooms, roomID)
	delete(c.resyncing, roomID)
	delete(c.canvasRequested, roomID)
}

func (c *client) roomIDs() []uint {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	ids := make([]uint, 0, len(c.rooms))
	for id := range c.rooms {
		ids = append(ids, id)
	}
	return ids
}

func (c *client) setResyncing(roomID uint, on bool) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if on {
		c.resyncing[roomID] = true
	} else {
		delete(c.resyncing, roomID)
		delete(c.canvasRequested, roomID)
	}
}

func (c *client) isResyncing(roomID uint) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.resyncing[roomID]
}

// markCanvasRequested reports whether a canvas request was already sent
// for this room on this socket, enforcing a single request per resume.
func (c *client) markCanvasRequested(roomID uint) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.canvasRequested[roomID] {
		return false
	}
	c.canvasRequested[roomID] = true
	return true
}

func (c *client) setPermanentLeave() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.permanentLeave = true
}

func (c *client) isPermanentLeave() bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.permanentLeave
}

type wsHub struct {
	mu    sync.Mutex
	rooms map[uint]map[*client]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{rooms: make(map[uint]map[*client]struct{})}
}

func (h *wsHub) Add(roomID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		group = make(map[*client]struct{})
		h.rooms[roomID] = group
	}
	group[c] = struct{}{}
}

func (h *wsHub) Remove(roomID uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	if group == nil {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *wsHub) Clients(roomID uint) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	group := h.rooms[roomID]
	clients := make([]*client, 0, len(group))
	for c := range group {
		clients = append(clients, c)
	}
	return clients
}

// Broadcast sends the event to every socket in the room; a non-nil skip
// filter excludes matching sockets.
func (h *wsHub) Broadcast(roomID uint, event string, data any, skip func(*client) bool) {
	for _, c := range h.Clients(roomID) {
		if skip != nil && skip(c) {
			continue
		}
		c.send(event, data)
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Anonymous connections survive the handshake but stay
	// unauthenticated for any state-changing event.
	userID, authErr := s.authenticateRequest(r)
	c := newClient(conn, userID)
	if authErr != nil {
		log.Printf("ws handshake unauthenticated remote=%s error=%v", r.RemoteAddr, authErr)
	}
	if userID != 0 {
		if evicted := s.sessions.Register(userID, c); evicted != nil {
			log.Printf("session evicted user=%d socket=%s", userID, evicted.socketID)
			_ = evicted.conn.Close()
		}
	}
	if !s.joinGate.Load() {
		c.send(evServerSyncing, map[string]any{})
	}
	log.Printf("ws connected user=%d socket=%s remote=%s", userID, c.socketID, r.RemoteAddr)
	go s.readLoop(c)
}

func (s *Server) readLoop(c *client) {
	defer s.onDisconnect(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("ws disconnected user=%d socket=%s error=%v", c.userID, c.socketID, err)
			return
		}
		var msg frame
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.dispatch(c, msg)
	}
}

func (s *Server) dispatch(c *client, msg frame) {
	switch msg.Event {
	case evJoinRoom:
		s.handleJoinRoom(c, msg.Data)
	case evLeaveRoom:
		s.handleLeaveRoom(c, msg.Data)
	case evUpdateSettings:
		s.handleUpdateSettings(c, msg.Data)
	case evSelectTeam:
		s.handleSelectTeam(c, msg.Data)
	case evSetReady:
		s.handleSetReady(c, msg.Data, true)
	case evSetNotReady:
		s.handleSetReady(c, msg.Data, false)
	case evRemoveParticipant:
		s.handleRemoveParticipant(c, msg.Data)
	case evContinueWaiting:
		s.handleContinueWaiting(c, msg.Data)
	case evStartGame:
		s.handleStartGame(c, msg.Data)
	case evChooseWord:
		s.handleChooseWord(c, msg.Data)
	case evDrawingData:
		s.handleDrawingData(c, msg.Data)
	case evClearCanvas:
		s.handleClearCanvas(c, msg.Data)
	case evSendCanvasData:
		s.handleSendCanvasData(c, msg.Data)
	case evResyncDone:
		s.handleResyncDone(c)
	case evChatMessage:
		s.handleChatMessage(c, msg.Data)
	case evSubmitGuess:
		s.handleSubmitGuess(c, msg.Data)
	case evSkipTurn:
		s.handleSkipTurn(c, msg.Data)
	case evWordHint:
		s.handleWordHint(c, msg.Data)
	case evPrepareToLeave:
		c.setPermanentLeave()
	case evReportUser:
		s.handleReport(c, msg.Data, reportKindUser)
	case evReportDrawing:
		s.handleReport(c, msg.Data, reportKindDrawing)
	case evJoinVoice, evVoiceTransport, evVoiceProduce, evVoiceConsume:
		s.handleVoiceEvent(c, msg.Event, msg.Data)
	}
}

// onDisconnect clears the socket binding but keeps the participant active
// for the grace window; the grace expiry does the actual removal.
func (s *Server) onDisconnect(c *client) {
	_ = c.conn.Close()
	if c.userID != 0 {
		s.sessions.Unregister(c.userID, c.socketID)
	}
	graceMs := s.cfg.GraceMs
	if c.isPermanentLeave() {
		graceMs = s.cfg.LeaveGraceMs
	}
	for _, roomID := range c.roomIDs() {
		s.hub.Remove(roomID, c)
		if c.userID == 0 {
			continue
		}
		participant, err := s.store.GetParticipant(roomID, c.userID)
		if err != nil || !participant.IsActive {
			continue
		}
		if participant.SocketID != nil && *participant.SocketID == c.socketID {
			_ = s.store.UpdateParticipant(participant.ID, map[string]any{"socket_id": nil})
		}
		roomID, userID := roomID, c.userID
		s.sessions.ArmGrace(roomID, userID, msDuration(graceMs), func() {
			s.onGraceExpired(roomID, userID)
		})
	}
}
