package server

import "encoding/json"

// VoiceRelay is the contract of the external voice collaborator: an SFU
// plus signaling relay. The server forwards events verbatim and returns
// whatever the collaborator answers; it never inspects the payloads.
type VoiceRelay interface {
	Join(roomCode string, userID uint, payload json.RawMessage) (json.RawMessage, error)
	CreateTransport(roomCode string, userID uint, payload json.RawMessage) (json.RawMessage, error)
	Produce(roomCode string, userID uint, payload json.RawMessage) (json.RawMessage, error)
	Consume(roomCode string, userID uint, payload json.RawMessage) (json.RawMessage, error)
}

// noopVoice answers every signaling call with an empty object; used when
// no SFU is wired in.
type noopVoice struct{}

func (noopVoice) Join(string, uint, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (noopVoice) CreateTransport(string, uint, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (noopVoice) Produce(string, uint, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (noopVoice) Consume(string, uint, json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

type voiceRequest struct {
	roomRef
}

func (s *Server) handleVoiceEvent(c *client, event string, data json.RawMessage) {
	if !s.requireAuth(c) {
		return
	}
	var req voiceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	room := s.resolveRoom(c, req.roomRef)
	if room == nil {
		return
	}
	if !room.VoiceEnabled {
		s.sendError(c, errWrongPhase, "voice not enabled")
		return
	}
	var (
		reply json.RawMessage
		err   error
	)
	switch event {
	case evJoinVoice:
		reply, err = s.voice.Join(room.Code, c.userID, data)
	case evVoiceTransport:
		reply, err = s.voice.CreateTransport(room.Code, c.userID, data)
	case evVoiceProduce:
		reply, err = s.voice.Produce(room.Code, c.userID, data)
	case evVoiceConsume:
		reply, err = s.voice.Consume(room.Code, c.userID, data)
	}
	if err != nil {
		s.sendError(c, errRoomNotFound, "voice relay failed")
		return
	}
	c.send(event, reply)
}
