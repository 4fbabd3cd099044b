package models

// TypingStatus is the ephemeral per-user presence record, one document per uid
// in the typingStatus collection. It is overwritten on every keystroke, reset
// after a quiet interval and deleted when the user leaves the conversation.
type TypingStatus struct {
	Typing bool `firestore:"typing" json:"typing"`
}
