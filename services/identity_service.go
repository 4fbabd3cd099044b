package services

import (
	"context"

	fbauth "firebase.google.com/go/auth"
	"github.com/techagentng/achat/config"
	apiError "github.com/techagentng/achat/errors"
	"go.uber.org/zap"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// Session is what the identity provider hands back for a verified credential.
// IDToken is a short-lived provider token used as fresh proof for destructive
// actions; it is never stored.
type Session struct {
	UID           string
	Email         string
	IDToken       string
	EmailVerified bool
}

// IdentityProvider fronts the external identity service. Provider error
// strings are opaque and surfaced verbatim; any provider error is terminal for
// that one operation.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Session, *apiError.Error)
	Register(ctx context.Context, email, password string) (*Session, *apiError.Error)
	SendVerification(ctx context.Context, email string) *apiError.Error
	SendPasswordReset(ctx context.Context, email string) *apiError.Error
	Reauthenticate(ctx context.Context, email, password string) (*Session, *apiError.Error)
	ChangeEmail(ctx context.Context, idToken, newEmail string) *apiError.Error
	ChangePassword(ctx context.Context, idToken, newPassword string) *apiError.Error
	DeleteAccount(ctx context.Context, uid string) *apiError.Error
}

type identityService struct {
	logger     *zap.SugaredLogger
	rp         *identitytoolkit.RelyingpartyService
	authClient *fbauth.Client
	mail       Mailer
	conf       *config.Config
}

// Mailer is satisfied by mailingservices.Mailgun.
type Mailer interface {
	SendVerifyEmail(ctx context.Context, to, link string) (string, error)
	SendResetPassword(ctx context.Context, to, link string) (string, error)
}

// NewIdentityService builds the production identity provider: password flows
// go through the identity toolkit REST surface keyed by the web API key, admin
// operations (deletion, action links) through the firebase auth client.
func NewIdentityService(ctx context.Context, logger *zap.SugaredLogger, authClient *fbauth.Client, mail Mailer, conf *config.Config) (IdentityProvider, error) {
	svc, err := identitytoolkit.NewService(ctx, option.WithAPIKey(conf.FirebaseWebAPIKey))
	if err != nil {
		return nil, err
	}
	return &identityService{
		logger:     logger,
		rp:         svc.Relyingparty,
		authClient: authClient,
		mail:       mail,
		conf:       conf,
	}, nil
}

func (s *identityService) SignIn(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	resp, err := s.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		s.logger.Debugf("sign-in rejected for %s: %v", email, err)
		return nil, apiError.NewTransport(err)
	}

	verified, err := s.emailVerified(ctx, resp.IdToken)
	if err != nil {
		s.logger.Warnf("could not read account info for %s: %v", email, err)
		return nil, apiError.NewTransport(err)
	}

	return &Session{
		UID:           resp.LocalId,
		Email:         resp.Email,
		IDToken:       resp.IdToken,
		EmailVerified: verified,
	}, nil
}

func (s *identityService) Register(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	resp, err := s.rp.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, apiError.NewTransport(err)
	}
	return &Session{
		UID:     resp.LocalId,
		Email:   resp.Email,
		IDToken: resp.IdToken,
	}, nil
}

func (s *identityService) SendVerification(ctx context.Context, email string) *apiError.Error {
	link, err := s.authClient.EmailVerificationLink(ctx, email)
	if err != nil {
		return apiError.NewTransport(err)
	}
	if _, err := s.mail.SendVerifyEmail(ctx, email, link); err != nil {
		return apiError.NewTransport(err)
	}
	return nil
}

func (s *identityService) SendPasswordReset(ctx context.Context, email string) *apiError.Error {
	link, err := s.authClient.PasswordResetLink(ctx, email)
	if err != nil {
		return apiError.NewTransport(err)
	}
	if _, err := s.mail.SendResetPassword(ctx, email, link); err != nil {
		return apiError.NewTransport(err)
	}
	return nil
}

// Reauthenticate demands a fresh proof of the current credential. Destructive
// actions call this immediately before acting; a stale session never suffices.
func (s *identityService) Reauthenticate(ctx context.Context, email, password string) (*Session, *apiError.Error) {
	resp, err := s.rp.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		s.logger.Debugf("reauthentication rejected for %s: %v", email, err)
		return nil, apiError.ErrReauthRequired
	}
	return &Session{
		UID:     resp.LocalId,
		Email:   resp.Email,
		IDToken: resp.IdToken,
	}, nil
}

func (s *identityService) ChangeEmail(ctx context.Context, idToken, newEmail string) *apiError.Error {
	_, err := s.rp.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken: idToken,
		Email:   newEmail,
	}).Context(ctx).Do()
	if err != nil {
		return apiError.NewTransport(err)
	}
	return nil
}

func (s *identityService) ChangePassword(ctx context.Context, idToken, newPassword string) *apiError.Error {
	_, err := s.rp.SetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartySetAccountInfoRequest{
		IdToken:  idToken,
		Password: newPassword,
	}).Context(ctx).Do()
	if err != nil {
		return apiError.NewTransport(err)
	}
	return nil
}

func (s *identityService) DeleteAccount(ctx context.Context, uid string) *apiError.Error {
	if err := s.authClient.DeleteUser(ctx, uid); err != nil {
		return apiError.NewTransport(err)
	}
	return nil
}

func (s *identityService) emailVerified(ctx context.Context, idToken string) (bool, error) {
	info, err := s.rp.GetAccountInfo(&identitytoolkit.IdentitytoolkitRelyingpartyGetAccountInfoRequest{
		IdToken: idToken,
	}).Context(ctx).Do()
	if err != nil {
		return false, err
	}
	if len(info.Users) == 0 {
		return false, nil
	}
	return info.Users[0].EmailVerified, nil
}
