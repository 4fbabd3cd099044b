package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIdle = 30 * time.Millisecond

func newPresenceFixture(repo *fakeChatRepo, names map[string]string) PresenceService {
	return NewPresenceService(testLogger(), repo, testIdle, func(uid string) string {
		return names[uid]
	})
}

func TestPresenceIdleResetsFlag(t *testing.T) {
	repo := newFakeChatRepo()
	presence := newPresenceFixture(repo, nil)

	presence.OnInput(context.Background(), "uid-1")
	require.Equal(t, []bool{true}, repo.typingStates())

	// After the quiet gap the flag is published false without further input.
	require.Eventually(t, func() bool {
		states := repo.typingStates()
		return len(states) == 2 && states[1] == false
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceKeystrokesRearmTimer(t *testing.T) {
	repo := newFakeChatRepo()
	presence := newPresenceFixture(repo, nil)

	// Keystrokes inside the quiet gap keep the flag true.
	for i := 0; i < 3; i++ {
		presence.OnInput(context.Background(), "uid-1")
		time.Sleep(testIdle / 3)
	}
	for _, state := range repo.typingStates() {
		require.True(t, state, "no false write while input keeps arriving")
	}

	require.Eventually(t, func() bool {
		states := repo.typingStates()
		return len(states) == 4 && states[3] == false
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceCloseDeletesRecord(t *testing.T) {
	repo := newFakeChatRepo()
	presence := newPresenceFixture(repo, nil)

	presence.OnInput(context.Background(), "uid-1")
	presence.Close(context.Background(), "uid-1")
	require.Equal(t, 1, repo.deleteTypingCalls)

	// The pending idle timer was stopped: no trailing false write.
	time.Sleep(2 * testIdle)
	require.Equal(t, []bool{true}, repo.typingStates())
}

func TestPresencePublishFailureIsSwallowed(t *testing.T) {
	repo := newFakeChatRepo()
	repo.failSetTyping = true
	presence := newPresenceFixture(repo, nil)

	// Must not panic or surface: presence is a UI nicety only.
	presence.OnInput(context.Background(), "uid-1")
}

func TestPresenceTyperDeterministic(t *testing.T) {
	repo := newFakeChatRepo()
	presence := newPresenceFixture(repo, map[string]string{
		"uid-a": "Ada Lovelace",
		"uid-b": "Grace Hopper",
	})

	_, ok := presence.TyperUID("uid-me")
	require.False(t, ok)

	presence.Apply("uid-b", true)
	presence.Apply("uid-a", true)

	// Several typers collapse to one indicator, first by uid.
	uid, ok := presence.TyperUID("uid-me")
	require.True(t, ok)
	require.Equal(t, "uid-a", uid)
	require.Equal(t, "Ada Lovelace is typing...", presence.TyperName("uid-me"))

	// Your own typing never shows on your screen.
	uid, ok = presence.TyperUID("uid-a")
	require.True(t, ok)
	require.Equal(t, "uid-b", uid)

	presence.Remove("uid-a")
	presence.Apply("uid-b", false)
	_, ok = presence.TyperUID("uid-me")
	require.False(t, ok)
	require.Equal(t, "", presence.TyperName("uid-me"))
}

func TestPresenceTyperNameFallback(t *testing.T) {
	repo := newFakeChatRepo()
	presence := newPresenceFixture(repo, nil)

	presence.Apply("uid-x", true)
	require.Equal(t, "Someone is typing...", presence.TyperName("uid-me"))
}
