package services

import (
	"context"
	"sort"
	"sync"

	"github.com/techagentng/achat/db"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
)

// TimelineService maintains the client-visible ordered view of the
// conversation: the authoritative store snapshot merged with confirmed
// appends, plus the profile cache used to resolve authors and replies.
//
// The displayed order is the total order (timestamp, message id) ascending.
// Live updates arrive with no cross-document ordering guarantee, so every
// mutation here is defensive: duplicates are no-ops and references to
// not-yet-cached messages are absorbed with a log line, never an error.
type TimelineService interface {
	Load(ctx context.Context) ([]models.Message, *apiError.Error)
	LoadProfiles(ctx context.Context)
	Messages() []models.Message
	Append(msg models.Message) bool
	Merge(msg models.Message)
	ApplyReaction(messageID string, reaction models.Reaction)
	ApplyProfile(profile models.UserProfile)
	ResolveAuthor(uid string) models.UserProfile
	ResolveReply(msg *models.Message) string
	Get(messageID string) (models.Message, bool)
}

type timelineService struct {
	logger   *zap.SugaredLogger
	chatRepo db.ChatRepository

	mu       sync.RWMutex
	msgs     []models.Message
	index    map[string]int
	profiles map[string]models.UserProfile
	loaded   bool
}

func NewTimelineService(logger *zap.SugaredLogger, chatRepo db.ChatRepository) TimelineService {
	return &timelineService{
		logger:   logger,
		chatRepo: chatRepo,
		index:    make(map[string]int),
		profiles: make(map[string]models.UserProfile),
	}
}

// Load fetches the full history and replaces the cache. On a store failure the
// last good cache is retained and the caller gets a recoverable "timeline
// unavailable" error instead of a blanked view.
func (t *timelineService) Load(ctx context.Context) ([]models.Message, *apiError.Error) {
	msgs, err := t.chatRepo.Messages(ctx)
	if err != nil {
		t.logger.Errorf("loading timeline: %v", err)
		if t.hasCache() {
			return t.Messages(), apiError.New("timeline unavailable", 502)
		}
		return nil, apiError.New("timeline unavailable", 502)
	}

	// The store orders by timestamp only; the id tie-break makes the order
	// total so concurrent same-timestamp authors land identically everywhere.
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Before(&msgs[j])
	})

	t.mu.Lock()
	defer t.mu.Unlock()
	t.msgs = msgs
	t.index = make(map[string]int, len(msgs))
	for i := range msgs {
		t.index[msgs[i].ID] = i
	}
	t.loaded = true

	out := make([]models.Message, len(t.msgs))
	copy(out, t.msgs)
	return out, nil
}

// LoadProfiles populates the author cache. Profile load and message load are
// independent, unordered fetches; failure here only means authors resolve to
// placeholders until a retry or a live update fills them in.
func (t *timelineService) LoadProfiles(ctx context.Context) {
	users, err := t.chatRepo.Users(ctx)
	if err != nil {
		t.logger.Warnf("loading profiles: %v", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for uid, profile := range users {
		t.profiles[uid] = profile
	}
}

func (t *timelineService) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

// Append inserts a confirmed message at its sorted position. Binary-search
// locate, shift on insert. A message already cached under the same id is a
// duplicate delivery and is dropped.
func (t *timelineService) Append(msg models.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.index[msg.ID]; ok {
		return false
	}

	i := sort.Search(len(t.msgs), func(i int) bool {
		return msg.Before(&t.msgs[i])
	})
	t.msgs = append(t.msgs, models.Message{})
	copy(t.msgs[i+1:], t.msgs[i:])
	t.msgs[i] = msg
	for j := i; j < len(t.msgs); j++ {
		t.index[t.msgs[j].ID] = j
	}
	return true
}

// Merge applies a modified document. Messages are immutable except for
// reaction appends, so only the reaction list is taken from the update; an
// update for an uncached message (subscription raced the initial load) is
// inserted whole.
func (t *timelineService) Merge(msg models.Message) {
	t.mu.Lock()
	if i, ok := t.index[msg.ID]; ok {
		t.msgs[i].Reactions = msg.Reactions
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	t.Append(msg)
}

// ApplyReaction appends the reaction to the cached message if no identical
// (emoji, uid) pair is present. An unknown message id is a consistency
// warning, not an error: the reaction arrived before its message and the view
// self-heals once the message loads.
func (t *timelineService) ApplyReaction(messageID string, reaction models.Reaction) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.index[messageID]
	if !ok {
		t.logger.Warnf("reaction %s from %s targets uncached message %s", reaction.Emoji, reaction.UID, messageID)
		return
	}
	if t.msgs[i].HasReaction(reaction) {
		return
	}
	t.msgs[i].Reactions = append(t.msgs[i].Reactions, reaction)
}

func (t *timelineService) ApplyProfile(profile models.UserProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profiles[profile.UID] = profile
}

// ResolveAuthor never fails: an author whose profile has not loaded resolves
// to a placeholder with an empty name and the default picture.
func (t *timelineService) ResolveAuthor(uid string) models.UserProfile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if profile, ok := t.profiles[uid]; ok {
		if profile.ProfilePicURL == "" {
			profile.ProfilePicURL = models.DefaultProfilePic
		}
		return profile
	}
	return models.Placeholder(uid)
}

// ResolveReply renders the reply preview for a message. An embedded snapshot
// is authoritative and frozen at send time; a reference is resolved against
// the current cache on every render. A missing target renders as nothing.
func (t *timelineService) ResolveReply(msg *models.Message) string {
	if msg.ReplyTo != nil {
		return *msg.ReplyTo
	}
	if msg.ReplyToID == nil {
		return ""
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[*msg.ReplyToID]
	if !ok {
		t.logger.Debugf("reply target %s not cached", *msg.ReplyToID)
		return ""
	}
	return t.msgs[i].Text
}

func (t *timelineService) Get(messageID string) (models.Message, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[messageID]
	if !ok {
		return models.Message{}, false
	}
	return t.msgs[i], true
}

func (t *timelineService) hasCache() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.loaded
}
