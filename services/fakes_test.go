package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/achat/db"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeChatRepo is an in-memory stand-in for the conversation store. Each fail*
// switch makes the corresponding call return an error, for exercising the
// degraded paths.
type fakeChatRepo struct {
	mu sync.Mutex

	msgs   []models.Message
	users  map[string]models.UserProfile
	typing map[string]bool

	nextID int
	base   time.Time

	failMessages    bool
	failAddMessage  bool
	failGetUser     bool
	failSetTyping   bool
	failMarkDeleted bool

	setTypingCalls    []bool
	deleteTypingCalls int
	markedDeleted     []string
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		users:  make(map[string]models.UserProfile),
		typing: make(map[string]bool),
		base:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeChatRepo) Messages(ctx context.Context) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMessages {
		return nil, errors.New("store unavailable")
	}
	out := make([]models.Message, len(f.msgs))
	copy(out, f.msgs)
	return out, nil
}

func (f *fakeChatRepo) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID == id {
			msg := f.msgs[i]
			return &msg, nil
		}
	}
	return nil, errors.Errorf("message %s not found", id)
}

func (f *fakeChatRepo) AddMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAddMessage {
		return nil, errors.New("write failed")
	}
	stored := *msg
	stored.ID = fmt.Sprintf("m%03d", f.nextID)
	stored.Timestamp = f.base.Add(time.Duration(f.nextID) * time.Second)
	f.nextID++
	f.msgs = append(f.msgs, stored)
	return &stored, nil
}

func (f *fakeChatRepo) AddReaction(ctx context.Context, messageID string, reaction models.Reaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.msgs {
		if f.msgs[i].ID == messageID {
			if !f.msgs[i].HasReaction(reaction) {
				f.msgs[i].Reactions = append(f.msgs[i].Reactions, reaction)
			}
			return nil
		}
	}
	return errors.Errorf("message %s not found", messageID)
}

func (f *fakeChatRepo) Users(ctx context.Context) (map[string]models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.UserProfile, len(f.users))
	for uid, profile := range f.users {
		out[uid] = profile
	}
	return out, nil
}

func (f *fakeChatRepo) GetUser(ctx context.Context, uid string) (*models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGetUser {
		return nil, errors.New("store unavailable")
	}
	profile, ok := f.users[uid]
	if !ok {
		return nil, errors.Errorf("user %s not found", uid)
	}
	return &profile, nil
}

func (f *fakeChatRepo) SetUser(ctx context.Context, uid string, fields map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile := f.users[uid]
	profile.UID = uid
	if v, ok := fields["firstName"].(string); ok {
		profile.FirstName = v
	}
	if v, ok := fields["surname"].(string); ok {
		profile.Surname = v
	}
	if v, ok := fields["profilePicUrl"].(string); ok {
		profile.ProfilePicURL = v
	}
	if v, ok := fields["deactivated"].(bool); ok {
		profile.Deactivated = v
	}
	f.users[uid] = profile
	return nil
}

func (f *fakeChatRepo) MarkDeleted(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkDeleted {
		return errors.New("write failed")
	}
	profile := f.users[uid]
	profile.UID = uid
	profile.FirstName = models.DeletedFirstName
	profile.Surname = models.DeletedSurname
	profile.Deactivated = true
	f.users[uid] = profile
	f.markedDeleted = append(f.markedDeleted, uid)
	return nil
}

func (f *fakeChatRepo) SetTyping(ctx context.Context, uid string, typing bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetTyping {
		return errors.New("publish failed")
	}
	f.typing[uid] = typing
	f.setTypingCalls = append(f.setTypingCalls, typing)
	return nil
}

func (f *fakeChatRepo) DeleteTyping(ctx context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.typing, uid)
	f.deleteTypingCalls++
	return nil
}

func (f *fakeChatRepo) Subscribe(ctx context.Context, events chan<- db.Event) {}

func (f *fakeChatRepo) typingStates() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.setTypingCalls))
	copy(out, f.setTypingCalls)
	return out
}

func (f *fakeChatRepo) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// fakeAttachments records uploads, can be told to fail the next one, and can
// hold an upload in flight until blockUpload is closed.
type fakeAttachments struct {
	mu          sync.Mutex
	uploads     []string
	failUpload  bool
	blockUpload chan struct{}
}

func (f *fakeAttachments) Upload(ctx context.Context, data []byte, filename, kind string) (string, *apiError.Error) {
	f.mu.Lock()
	block := f.blockUpload
	f.mu.Unlock()
	if block != nil {
		<-block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload {
		return "", apiError.New("upload failed", 502)
	}
	f.uploads = append(f.uploads, filename)
	return "https://attachments.test/" + filename, nil
}

func (f *fakeAttachments) UploadProfilePic(ctx context.Context, data []byte, filename string) (string, *apiError.Error) {
	return f.Upload(ctx, data, filename, models.MediaKindImage)
}

// fakeIdentity accepts one known (email, password) pair.
type fakeIdentity struct {
	email    string
	password string

	unverified bool
	failDelete bool
	deleted    []string
}

func (f *fakeIdentity) session() *Session {
	return &Session{UID: "uid-1", Email: f.email, IDToken: "fresh-token", EmailVerified: !f.unverified}
}

func (f *fakeIdentity) SignIn(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	if email != f.email || password != f.password {
		return nil, apiError.New("INVALID_PASSWORD", 502)
	}
	return f.session(), nil
}

func (f *fakeIdentity) Register(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	return &Session{UID: "uid-1", Email: email, IDToken: "fresh-token"}, nil
}

func (f *fakeIdentity) SendVerification(ctx context.Context, email string) *apiError.Error {
	return nil
}

func (f *fakeIdentity) SendPasswordReset(ctx context.Context, email string) *apiError.Error {
	return nil
}

func (f *fakeIdentity) Reauthenticate(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	if email != f.email || password != f.password {
		return nil, apiError.ErrReauthRequired
	}
	return f.session(), nil
}

func (f *fakeIdentity) ChangeEmail(ctx context.Context, idToken, newEmail string) *apiError.Error {
	f.email = newEmail
	return nil
}

func (f *fakeIdentity) ChangePassword(ctx context.Context, idToken, newPassword string) *apiError.Error {
	f.password = newPassword
	return nil
}

func (f *fakeIdentity) DeleteAccount(ctx context.Context, uid string) *apiError.Error {
	if f.failDelete {
		return apiError.New("credential removal failed", 502)
	}
	f.deleted = append(f.deleted, uid)
	return nil
}
