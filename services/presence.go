package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/techagentng/achat/db"
	"go.uber.org/zap"
)

// PresenceService publishes the local user's typing activity with a quiet-gap
// debounce and derives other users' typing activity from store updates.
//
// Presence is a UI enhancement only: publish failures are logged once and
// swallowed, and never block messaging.
type PresenceService interface {
	OnInput(ctx context.Context, uid string)
	Close(ctx context.Context, uid string)
	Apply(uid string, typing bool)
	Remove(uid string)
	TyperUID(selfUID string) (string, bool)
	TyperName(selfUID string) string
}

type presenceService struct {
	logger      *zap.SugaredLogger
	chatRepo    db.ChatRepository
	idle        time.Duration
	resolveName func(uid string) string

	mu     sync.Mutex
	timers map[string]*time.Timer
	typing map[string]bool
}

// NewPresenceService wires the tracker. idle is the quiet interval after which
// the typing flag resets (2 s in production, shortened in tests); resolveName
// turns a uid into the display name shown in the typing indicator.
func NewPresenceService(logger *zap.SugaredLogger, chatRepo db.ChatRepository, idle time.Duration, resolveName func(uid string) string) PresenceService {
	return &presenceService{
		logger:      logger,
		chatRepo:    chatRepo,
		idle:        idle,
		resolveName: resolveName,
		timers:      make(map[string]*time.Timer),
		typing:      make(map[string]bool),
	}
}

// OnInput marks the user typing on every keystroke and (re)arms the idle
// timer; when the timer fires uninterrupted the flag is published false.
// The per-keystroke "true" write is a known cost.
// TODO debounce the write itself (~300ms) so sub-debounce bursts skip the round trip.
func (p *presenceService) OnInput(ctx context.Context, uid string) {
	if err := p.chatRepo.SetTyping(ctx, uid, true); err != nil {
		p.logger.Warnf("publishing typing=true for %s: %v", uid, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if timer, ok := p.timers[uid]; ok {
		timer.Stop()
	}
	p.timers[uid] = time.AfterFunc(p.idle, func() {
		p.quiet(uid)
	})
}

func (p *presenceService) quiet(uid string) {
	p.mu.Lock()
	delete(p.timers, uid)
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.chatRepo.SetTyping(ctx, uid, false); err != nil {
		p.logger.Warnf("publishing typing=false for %s: %v", uid, err)
	}
}

// Close deletes the presence record (not just sets it false) when the user
// leaves the conversation view, so other clients' maps drop the entry.
func (p *presenceService) Close(ctx context.Context, uid string) {
	p.mu.Lock()
	if timer, ok := p.timers[uid]; ok {
		timer.Stop()
		delete(p.timers, uid)
	}
	p.mu.Unlock()

	if err := p.chatRepo.DeleteTyping(ctx, uid); err != nil {
		p.logger.Warnf("deleting typing status for %s: %v", uid, err)
	}
}

// Apply folds one store update into the derived presence map.
func (p *presenceService) Apply(uid string, typing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if typing {
		p.typing[uid] = true
		return
	}
	delete(p.typing, uid)
}

func (p *presenceService) Remove(uid string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.typing, uid)
}

// TyperUID picks at most one currently-typing user other than self. When
// several others are typing the first by uid wins, keeping the indicator
// deterministic and the UI bounded.
func (p *presenceService) TyperUID(selfUID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var uids []string
	for uid, typing := range p.typing {
		if typing && uid != selfUID {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return "", false
	}
	sort.Strings(uids)
	return uids[0], true
}

func (p *presenceService) TyperName(selfUID string) string {
	uid, ok := p.TyperUID(selfUID)
	if !ok {
		return ""
	}
	if name := p.resolveName(uid); name != "" {
		return name + " is typing..."
	}
	return "Someone is typing..."
}
