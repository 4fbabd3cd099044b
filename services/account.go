package services

import (
	"context"
	"sync"

	"github.com/techagentng/achat/db"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"go.uber.org/zap"
)

// AccountService is the lifecycle guard: a deactivated or deleted account can
// never originate new activity, while its history stays visible under a
// redacted identity. Destructive actions demand fresh proof of the current
// credential immediately beforehand.
type AccountService interface {
	RefreshProfile(ctx context.Context, uid string) (*models.UserProfile, *apiError.Error)
	CheckCanSend(uid string) *apiError.Error
	EditProfile(ctx context.Context, uid string, req *models.EditProfileRequest) *apiError.Error
	SetProfilePic(ctx context.Context, uid, url string) *apiError.Error
	UpdateCredentials(ctx context.Context, email string, req *models.UpdateCredentialsRequest) *apiError.Error
	Deactivate(ctx context.Context, uid string) *apiError.Error
	DeleteAccount(ctx context.Context, uid, email, password string) *apiError.Error
}

type accountService struct {
	logger   *zap.SugaredLogger
	chatRepo db.ChatRepository
	identity IdentityProvider

	mu          sync.RWMutex
	deactivated map[string]bool
}

func NewAccountService(logger *zap.SugaredLogger, chatRepo db.ChatRepository, identity IdentityProvider) AccountService {
	return &accountService{
		logger:      logger,
		chatRepo:    chatRepo,
		identity:    identity,
		deactivated: make(map[string]bool),
	}
}

// RefreshProfile re-reads the profile at conversation entry and caches the
// deactivated flag; send attempts check the cache, not the store, so typing is
// never gated on a network read.
func (a *accountService) RefreshProfile(ctx context.Context, uid string) (*models.UserProfile, *apiError.Error) {
	profile, err := a.chatRepo.GetUser(ctx, uid)
	if err != nil {
		a.logger.Warnf("refreshing profile for %s: %v", uid, err)
		return nil, apiError.NewTransport(err)
	}

	a.mu.Lock()
	a.deactivated[uid] = profile.Deactivated
	a.mu.Unlock()
	return profile, nil
}

// CheckCanSend rejects composition for a deactivated account with an error
// distinct from any network/store failure. Blocking is forward-only: nothing
// already sent is retracted.
func (a *accountService) CheckCanSend(uid string) *apiError.Error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.deactivated[uid] {
		return apiError.ErrAccountDeactivated
	}
	return nil
}

func (a *accountService) EditProfile(ctx context.Context, uid string, req *models.EditProfileRequest) *apiError.Error {
	fields := map[string]interface{}{}
	if req.FirstName != "" {
		fields["firstName"] = req.FirstName
	}
	if req.Surname != "" {
		fields["surname"] = req.Surname
	}
	if len(fields) == 0 {
		return apiError.NewValidation("nothing to update")
	}
	if err := a.chatRepo.SetUser(ctx, uid, fields); err != nil {
		a.logger.Errorf("editing profile for %s: %v", uid, err)
		return apiError.NewTransport(err)
	}
	return nil
}

func (a *accountService) SetProfilePic(ctx context.Context, uid, url string) *apiError.Error {
	if err := a.chatRepo.SetUser(ctx, uid, map[string]interface{}{"profilePicUrl": url}); err != nil {
		a.logger.Errorf("setting profile pic for %s: %v", uid, err)
		return apiError.NewTransport(err)
	}
	return nil
}

// UpdateCredentials changes email and/or password after reauthenticating with
// the current password. The fresh id token from the reauth is what authorizes
// the change; a stale session is rejected outright.
func (a *accountService) UpdateCredentials(ctx context.Context, email string, req *models.UpdateCredentialsRequest) *apiError.Error {
	sess, apiErr := a.identity.Reauthenticate(ctx, email, req.CurrentPassword)
	if apiErr != nil {
		return apiErr
	}

	if req.NewEmail != "" && req.NewEmail != email {
		if apiErr := a.identity.ChangeEmail(ctx, sess.IDToken, req.NewEmail); apiErr != nil {
			return apiErr
		}
		if apiErr := a.identity.SendVerification(ctx, req.NewEmail); apiErr != nil {
			a.logger.Warnf("sending verification to %s: %s", req.NewEmail, apiErr.Message)
		}
	}

	if req.NewPassword != "" {
		if err := models.ValidatePassword(req.NewPassword); err != nil {
			return apiError.NewValidation(err.Error())
		}
		if apiErr := a.identity.ChangePassword(ctx, sess.IDToken, req.NewPassword); apiErr != nil {
			return apiErr
		}
	}
	return nil
}

// Deactivate soft-disables the account. The profile keeps its name; only new
// activity is blocked.
func (a *accountService) Deactivate(ctx context.Context, uid string) *apiError.Error {
	if err := a.chatRepo.SetUser(ctx, uid, map[string]interface{}{"deactivated": true}); err != nil {
		a.logger.Errorf("deactivating %s: %v", uid, err)
		return apiError.NewTransport(err)
	}
	a.mu.Lock()
	a.deactivated[uid] = true
	a.mu.Unlock()
	return nil
}

// DeleteAccount reauthenticates, writes the sentinel profile, then removes the
// identity credential. If the credential removal fails after the sentinel
// write, the account is left deactivated-but-not-deleted: degraded but
// recoverable, and the session is closed either way.
func (a *accountService) DeleteAccount(ctx context.Context, uid, email, password string) *apiError.Error {
	if _, apiErr := a.identity.Reauthenticate(ctx, email, password); apiErr != nil {
		return apiErr
	}

	if err := a.chatRepo.MarkDeleted(ctx, uid); err != nil {
		a.logger.Errorf("scrubbing profile for %s: %v", uid, err)
		return apiError.NewTransport(err)
	}

	a.mu.Lock()
	a.deactivated[uid] = true
	a.mu.Unlock()

	if apiErr := a.identity.DeleteAccount(ctx, uid); apiErr != nil {
		a.logger.Warnf("credential removal for %s failed, account left deactivated: %s", uid, apiErr.Message)
	}
	return nil
}
