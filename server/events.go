package server

import (
	"context"
	"encoding/json"

	"github.com/techagentng/achat/db"
)

// wsPayload is the envelope every websocket frame uses.
type wsPayload struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *Server) marshalPayload(kind string, data interface{}) []byte {
	payload, err := json.Marshal(wsPayload{Type: kind, Data: data})
	if err != nil {
		s.Logger.Errorf("marshalling %s payload: %v", kind, err)
		return nil
	}
	return payload
}

// runSync consumes live store updates and fans them out: messages fold into
// the timeline and broadcast to every client, profile updates refresh the
// author cache, presence changes produce a per-client typing indicator.
func (s *Server) runSync(ctx context.Context) {
	events := make(chan db.Event, 64)
	s.ChatRepository.Subscribe(ctx, events)

	sent := make(map[string]struct{})
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			s.dispatch(ev, sent)
		}
	}
}

func (s *Server) dispatch(ev db.Event, sent map[string]struct{}) {
	switch ev.Kind {
	case db.EventMessageAdded:
		// The sender's own confirmed message is already in the timeline, so
		// the append result cannot tell a local echo from a duplicate
		// delivery. Every message must still reach the other clients;
		// at-least-once delivery is deduped by message id instead.
		s.TimelineService.Append(*ev.Message)
		if _, ok := sent[ev.Message.ID]; ok {
			return
		}
		sent[ev.Message.ID] = struct{}{}
		if payload := s.marshalPayload("message", s.renderMessage(*ev.Message)); payload != nil {
			s.Hub.Broadcast(payload)
		}
	case db.EventMessageModified:
		s.TimelineService.Merge(*ev.Message)
		if payload := s.marshalPayload("message_updated", s.renderMessage(*ev.Message)); payload != nil {
			s.Hub.Broadcast(payload)
		}
	case db.EventProfileUpdated:
		s.TimelineService.ApplyProfile(*ev.Profile)
		if payload := s.marshalPayload("profile", ev.Profile); payload != nil {
			s.Hub.Broadcast(payload)
		}
	case db.EventTypingUpdated:
		s.PresenceService.Apply(ev.UID, ev.Typing)
		s.notifyTyping()
	case db.EventTypingRemoved:
		s.PresenceService.Remove(ev.UID)
		s.notifyTyping()
	}
}

// notifyTyping renders the indicator per recipient: your own typing never
// shows on your screen, and with several typers each client still sees a
// single deterministic line.
func (s *Server) notifyTyping() {
	s.Hub.Notify(func(uid string) []byte {
		return s.marshalPayload("typing", s.PresenceService.TyperName(uid))
	})
}
