package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/achat/db"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
)

// ComposerState is the per-user composition state machine:
// Idle → Uploading (0 or 1 times) → Persisting → Idle on success,
// Uploading/Persisting → Failed on error. Failed is retry-ready: the draft is
// kept and the next Send starts over from it.
type ComposerState int

const (
	StateIdle ComposerState = iota
	StateUploading
	StatePersisting
	StateFailed
)

func (s ComposerState) String() string {
	switch s {
	case StateUploading:
		return "uploading"
	case StatePersisting:
		return "persisting"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Draft is the retained input state of one user's composer. A failed send must
// never lose any of it.
type Draft struct {
	Text      string
	ReplyTo   *string
	ReplyToID *string
	Media     []byte
	MediaName string
	MediaKind string
}

func (d *Draft) empty() bool {
	return strings.TrimSpace(d.Text) == "" && len(d.Media) == 0
}

// ComposerService turns one user intent into exactly one persisted message,
// with attachment upload as a prerequisite step. One composition in flight per
// user; a second submit is rejected, not queued.
type ComposerService interface {
	SetDraft(uid string, draft Draft)
	Draft(uid string) Draft
	State(uid string) ComposerState
	Send(ctx context.Context, uid, email string) (*models.Message, *apiError.Error)
	StartCapture(uid string) *apiError.Error
	AppendChunk(uid string, chunk []byte) *apiError.Error
	StopCapture(uid string) (int, *apiError.Error)
}

type composerSession struct {
	state        ComposerState
	draft        Draft
	capturing    bool
	captureStart time.Time
	captureBuf   bytes.Buffer
}

type composerService struct {
	logger      *zap.SugaredLogger
	chatRepo    db.ChatRepository
	attachments AttachmentService
	timeline    TimelineService
	guard       AccountService

	mu       sync.Mutex
	sessions map[string]*composerSession
}

func NewComposerService(logger *zap.SugaredLogger, chatRepo db.ChatRepository, attachments AttachmentService, timeline TimelineService, guard AccountService) ComposerService {
	return &composerService{
		logger:      logger,
		chatRepo:    chatRepo,
		attachments: attachments,
		timeline:    timeline,
		guard:       guard,
		sessions:    make(map[string]*composerSession),
	}
}

func (c *composerService) session(uid string) *composerSession {
	if sess, ok := c.sessions[uid]; ok {
		return sess
	}
	sess := &composerSession{}
	c.sessions[uid] = sess
	return sess
}

// SetDraft replaces the user's retained draft. Fields the request does not
// carry stay as they were, so a retry after a failed upload does not need the
// file re-selected.
func (c *composerService) SetDraft(uid string, draft Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(uid)
	sess.draft.Text = draft.Text
	sess.draft.ReplyTo = draft.ReplyTo
	sess.draft.ReplyToID = draft.ReplyToID
	if len(draft.Media) > 0 {
		sess.draft.Media = draft.Media
		sess.draft.MediaName = draft.MediaName
		sess.draft.MediaKind = draft.MediaKind
	}
}

func (c *composerService) Draft(uid string) Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session(uid).draft
}

func (c *composerService) State(uid string) ComposerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session(uid).state
}

// Send runs the full composition: guard check, validation, upload (when media
// is present), author-name snapshot, persist, then hand the confirmed message
// to the timeline. The store assigns the authoritative timestamp; no local
// clock is stamped.
func (c *composerService) Send(ctx context.Context, uid, email string) (*models.Message, *apiError.Error) {
	if apiErr := c.guard.CheckCanSend(uid); apiErr != nil {
		return nil, apiErr
	}

	c.mu.Lock()
	sess := c.session(uid)
	if sess.state == StateUploading || sess.state == StatePersisting {
		c.mu.Unlock()
		return nil, apiError.ErrSendInProgress
	}
	if sess.capturing {
		c.mu.Unlock()
		return nil, apiError.NewValidation("finish recording before sending")
	}
	draft := sess.draft
	if draft.empty() {
		c.mu.Unlock()
		return nil, apiError.ErrNothingToSend
	}

	var mediaURL *string
	if len(draft.Media) > 0 {
		sess.state = StateUploading
		c.mu.Unlock()

		url, apiErr := c.attachments.Upload(ctx, draft.Media, draft.MediaName, draft.MediaKind)
		if apiErr != nil {
			c.fail(uid)
			return nil, apiErr
		}
		mediaURL = &url

		c.mu.Lock()
	}
	sess.state = StatePersisting
	c.mu.Unlock()

	// Frozen snapshot of the display name: later profile edits must not
	// rewrite history. Accounts without a profile doc yet fall back to the
	// login identifier.
	username := email
	if profile, err := c.chatRepo.GetUser(ctx, uid); err == nil && profile.DisplayName() != "" {
		username = profile.DisplayName()
	}

	msg := &models.Message{
		UID:       uid,
		Username:  username,
		Text:      draft.Text,
		MediaURL:  mediaURL,
		ReplyTo:   draft.ReplyTo,
		ReplyToID: draft.ReplyToID,
		Reactions: []models.Reaction{},
	}
	if mediaURL != nil {
		msg.MediaKind = draft.MediaKind
	}

	confirmed, err := c.chatRepo.AddMessage(ctx, msg)
	if err != nil {
		c.logger.Errorf("persisting message for %s: %v", uid, err)
		c.fail(uid)
		return nil, apiError.NewTransport(err)
	}

	c.mu.Lock()
	sess.draft = Draft{}
	sess.state = StateIdle
	c.mu.Unlock()

	// Ordering is the timeline's call, not the composer's.
	c.timeline.Append(*confirmed)
	return confirmed, nil
}

// fail flips the session to Failed with the draft untouched, so the user can
// resubmit without re-entering anything.
func (c *composerService) fail(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session(uid).state = StateFailed
}

// StartCapture begins a voice capture session: an accumulating buffer and a
// one-second-resolution elapsed counter. Only one session may be active.
func (c *composerService) StartCapture(uid string) *apiError.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(uid)
	if sess.capturing {
		return apiError.NewValidation("capture already active")
	}
	sess.capturing = true
	sess.captureStart = time.Now()
	sess.captureBuf.Reset()
	return nil
}

func (c *composerService) AppendChunk(uid string, chunk []byte) *apiError.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(uid)
	if !sess.capturing {
		return apiError.NewValidation("no capture in progress")
	}
	sess.captureBuf.Write(chunk)
	return nil
}

// StopCapture finalizes (never discards) the buffer into the draft as an audio
// attachment and reports the elapsed seconds.
func (c *composerService) StopCapture(uid string) (int, *apiError.Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess := c.session(uid)
	if !sess.capturing {
		return 0, apiError.NewValidation("no capture in progress")
	}
	sess.capturing = false

	blob := make([]byte, sess.captureBuf.Len())
	copy(blob, sess.captureBuf.Bytes())
	sess.draft.Media = blob
	sess.draft.MediaName = fmt.Sprintf("voice_%s.webm", uuid.New())
	sess.draft.MediaKind = models.MediaKindAudio

	return int(time.Since(sess.captureStart).Seconds()), nil
}
