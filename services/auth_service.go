package services

import (
	"context"
	"sync"

	"github.com/techagentng/achat/config"
	"github.com/techagentng/achat/db"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/services/jwt"
	"go.uber.org/zap"
)

// AuthService runs the signup/login flows against the identity provider and
// manages session tokens.
type AuthService interface {
	SignupUser(ctx context.Context, request *models.SignupRequest) (*models.LoginResponse, *apiError.Error)
	LoginUser(ctx context.Context, loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error)
	Logout(token string)
	IsTokenInBlacklist(token string) bool
}

type authService struct {
	Config    *config.Config
	logger    *zap.SugaredLogger
	identity  IdentityProvider
	chatRepo  db.ChatRepository
	mu        sync.Mutex
	blacklist map[string]struct{}
}

// NewAuthService instantiate an authService
func NewAuthService(logger *zap.SugaredLogger, identity IdentityProvider, chatRepo db.ChatRepository, conf *config.Config) AuthService {
	return &authService{
		Config:    conf,
		logger:    logger,
		identity:  identity,
		chatRepo:  chatRepo,
		blacklist: make(map[string]struct{}),
	}
}

// SignupUser registers the credential with the identity provider, seeds the
// profile document and sends the verification mail. Mail failure does not roll
// back the account; the user can request another verification from login.
func (s *authService) SignupUser(ctx context.Context, request *models.SignupRequest) (*models.LoginResponse, *apiError.Error) {
	if err := models.ValidatePassword(request.Password); err != nil {
		return nil, apiError.NewValidation(err.Error())
	}

	sess, apiErr := s.identity.Register(ctx, request.Email, request.Password)
	if apiErr != nil {
		s.logger.Debugf("signup rejected for %s: %s", request.Email, apiErr.Message)
		return nil, apiErr
	}

	fields := map[string]interface{}{
		"firstName":     request.FirstName,
		"surname":       request.Surname,
		"profilePicUrl": "",
		"deactivated":   false,
	}
	if err := s.chatRepo.SetUser(ctx, sess.UID, fields); err != nil {
		s.logger.Errorf("seeding profile for %s: %v", sess.UID, err)
		return nil, apiError.ErrInternalServerError
	}

	if apiErr := s.identity.SendVerification(ctx, sess.Email); apiErr != nil {
		s.logger.Warnf("sending verification mail to %s: %s", sess.Email, apiErr.Message)
	}

	return &models.LoginResponse{UID: sess.UID, Email: sess.Email}, nil
}

// LoginUser logs in a user and returns the login response. Unverified emails
// are rejected with a distinct, actionable error.
func (s *authService) LoginUser(ctx context.Context, loginRequest *models.LoginRequest) (*models.LoginResponse, *apiError.Error) {
	sess, apiErr := s.identity.SignIn(ctx, loginRequest.Email, loginRequest.Password)
	if apiErr != nil {
		return nil, apiErr
	}

	if !sess.EmailVerified {
		return nil, apiError.ErrEmailNotVerified
	}

	accessToken, err := jwt.GenerateToken(sess.UID, sess.Email, s.Config.JWTSecret)
	if err != nil {
		s.logger.Errorf("generating access token for %s: %v", sess.UID, err)
		return nil, apiError.ErrInternalServerError
	}

	return &models.LoginResponse{
		UID:         sess.UID,
		Email:       sess.Email,
		AccessToken: accessToken,
	}, nil
}

func (s *authService) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blacklist[token] = struct{}{}
}

func (s *authService) IsTokenInBlacklist(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blacklist[token]
	return ok
}
