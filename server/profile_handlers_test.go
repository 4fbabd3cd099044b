package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
)

type stubAccountService struct {
	deleteErr *apiError.Error
	deleted   []string
}

func (s *stubAccountService) RefreshProfile(ctx context.Context, uid string) (*models.UserProfile, *apiError.Error) {
	return &models.UserProfile{UID: uid}, nil
}

func (s *stubAccountService) CheckCanSend(uid string) *apiError.Error { return nil }

func (s *stubAccountService) EditProfile(ctx context.Context, uid string, req *models.EditProfileRequest) *apiError.Error {
	return nil
}

func (s *stubAccountService) SetProfilePic(ctx context.Context, uid, url string) *apiError.Error {
	return nil
}

func (s *stubAccountService) UpdateCredentials(ctx context.Context, email string, req *models.UpdateCredentialsRequest) *apiError.Error {
	return nil
}

func (s *stubAccountService) Deactivate(ctx context.Context, uid string) *apiError.Error {
	return nil
}

func (s *stubAccountService) DeleteAccount(ctx context.Context, uid, email, password string) *apiError.Error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, uid)
	return nil
}

type stubPresenceService struct {
	closed []string
}

func (s *stubPresenceService) OnInput(ctx context.Context, uid string) {}
func (s *stubPresenceService) Close(ctx context.Context, uid string)  { s.closed = append(s.closed, uid) }
func (s *stubPresenceService) Apply(uid string, typing bool)          {}
func (s *stubPresenceService) Remove(uid string)                      {}
func (s *stubPresenceService) TyperUID(selfUID string) (string, bool) { return "", false }
func (s *stubPresenceService) TyperName(selfUID string) string        { return "" }

func deleteAccountRequest(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/me", strings.NewReader(`{"password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	return w
}

// A deletion rejected for stale reauth must leave the session usable so the
// user can retype the password and retry.
func TestDeleteAccountRejectionKeepsSession(t *testing.T) {
	srv, auth, token := newAuthFixture(t)
	account := &stubAccountService{deleteErr: apiError.ErrReauthRequired}
	presence := &stubPresenceService{}
	srv.AccountService = account
	srv.PresenceService = presence

	r := gin.New()
	r.DELETE("/me", srv.Authorize(), srv.handleDeleteAccount())

	w := deleteAccountRequest(t, r, token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.False(t, auth.IsTokenInBlacklist(token), "rejected deletion must not kill the session")
	require.Empty(t, presence.closed)

	// Retry with the same token goes through.
	account.deleteErr = nil
	w = deleteAccountRequest(t, r, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"uid-1"}, account.deleted)
}

func TestDeleteAccountSuccessTearsDownSession(t *testing.T) {
	srv, auth, token := newAuthFixture(t)
	account := &stubAccountService{}
	presence := &stubPresenceService{}
	srv.AccountService = account
	srv.PresenceService = presence

	r := gin.New()
	r.DELETE("/me", srv.Authorize(), srv.handleDeleteAccount())

	w := deleteAccountRequest(t, r, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, auth.IsTokenInBlacklist(token))
	require.Equal(t, []string{"uid-1"}, presence.closed)
}
