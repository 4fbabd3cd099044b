package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMessageBefore(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	earlier := Message{ID: "z", Timestamp: base}
	later := Message{ID: "a", Timestamp: base.Add(time.Second)}
	require.True(t, earlier.Before(&later), "timestamp dominates the id")
	require.False(t, later.Before(&earlier))

	// Equal timestamps fall back to the id, so every client agrees.
	tieA := Message{ID: "a", Timestamp: base}
	tieB := Message{ID: "b", Timestamp: base}
	require.True(t, tieA.Before(&tieB))
	require.False(t, tieB.Before(&tieA))
}

func TestHasReaction(t *testing.T) {
	msg := Message{Reactions: []Reaction{{Emoji: "👍", UID: "u1"}}}

	require.True(t, msg.HasReaction(Reaction{Emoji: "👍", UID: "u1"}))
	require.False(t, msg.HasReaction(Reaction{Emoji: "👍", UID: "u2"}))
	require.False(t, msg.HasReaction(Reaction{Emoji: "❤️", UID: "u1"}))
}

func TestDisplayName(t *testing.T) {
	full := UserProfile{FirstName: "Ada", Surname: "Lovelace"}
	require.Equal(t, "Ada Lovelace", full.DisplayName())

	partial := UserProfile{FirstName: "Ada"}
	require.Equal(t, "Ada", partial.DisplayName())

	require.Empty(t, (&UserProfile{}).DisplayName())
}
