package models

import "time"

// MediaKind values accepted on a message attachment.
const (
	MediaKindImage = "image"
	MediaKindAudio = "audio"
)

// Reaction is one emoji from one user. A user may react with several distinct
// emoji on the same message but never twice with the same one.
type Reaction struct {
	Emoji string `firestore:"emoji" json:"emoji"`
	UID   string `firestore:"uid" json:"uid"`
}

// Message is one chat message document. ID is the store-assigned document id and
// is never written as a field. Timestamp is assigned server-side on create; the
// client never stamps its own clock. All optional fields are independently
// nullable because historical documents grew them ad hoc.
type Message struct {
	ID        string     `firestore:"-" json:"id"`
	UID       string     `firestore:"uid" json:"uid"`
	Username  string     `firestore:"username" json:"username"`
	Text      string     `firestore:"text" json:"text"`
	Timestamp time.Time  `firestore:"timestamp,serverTimestamp" json:"timestamp"`
	MediaURL  *string    `firestore:"mediaUrl" json:"media_url,omitempty"`
	MediaKind string     `firestore:"mediaKind,omitempty" json:"media_kind,omitempty"`
	ReplyTo   *string    `firestore:"replyTo" json:"reply_to,omitempty"`
	ReplyToID *string    `firestore:"replyToId,omitempty" json:"reply_to_id,omitempty"`
	Reactions []Reaction `firestore:"reactions" json:"reactions"`
}

// Before reports whether m sorts ahead of other in the timeline. The display
// order is the total order (timestamp, document id) ascending; the id tie-break
// keeps concurrent same-timestamp writers in an order every client agrees on.
func (m *Message) Before(other *Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.Before(other.Timestamp)
	}
	return m.ID < other.ID
}

// HasReaction reports whether the (emoji, uid) pair is already present.
func (m *Message) HasReaction(r Reaction) bool {
	for _, existing := range m.Reactions {
		if existing.Emoji == r.Emoji && existing.UID == r.UID {
			return true
		}
	}
	return false
}

// SendMessageRequest is the JSON part of a send. Media rides alongside as a
// multipart file or a finalized voice capture.
type SendMessageRequest struct {
	Text      string  `json:"text"`
	ReplyTo   *string `json:"reply_to,omitempty"`
	ReplyToID *string `json:"reply_to_id,omitempty"`
}

// ReactionRequest adds one emoji from the authenticated user to a message.
type ReactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}
