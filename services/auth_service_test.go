package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/techagentng/achat/config"
	apiError "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/services/jwt"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret"}
}

func TestSignupSeedsProfile(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{email: "ada@example.com", password: "hunter22"}
	auth := NewAuthService(testLogger(), identity, repo, testConfig())

	resp, apiErr := auth.SignupUser(context.Background(), &models.SignupRequest{
		FirstName: "Ada",
		Surname:   "Lovelace",
		Email:     "ada@example.com",
		Password:  "hunter22",
	})
	require.Nil(t, apiErr)
	require.Equal(t, "uid-1", resp.UID)
	require.Empty(t, resp.AccessToken, "no session until the email is verified")

	profile := repo.users["uid-1"]
	require.Equal(t, "Ada", profile.FirstName)
	require.Equal(t, "Lovelace", profile.Surname)
	require.False(t, profile.Deactivated)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{}
	auth := NewAuthService(testLogger(), identity, repo, testConfig())

	_, apiErr := auth.SignupUser(context.Background(), &models.SignupRequest{
		FirstName: "Ada",
		Surname:   "Lovelace",
		Email:     "ada@example.com",
		Password:  "short",
	})
	require.NotNil(t, apiErr)
	require.Equal(t, 400, apiErr.Status)
	require.Empty(t, repo.users, "no profile seeded on rejected signup")
}

func TestLoginIssuesToken(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{email: "ada@example.com", password: "hunter22"}
	conf := testConfig()
	auth := NewAuthService(testLogger(), identity, repo, conf)

	resp, apiErr := auth.LoginUser(context.Background(), &models.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter22",
	})
	require.Nil(t, apiErr)
	require.NotEmpty(t, resp.AccessToken)

	claims, err := jwt.ValidateAndGetClaims(resp.AccessToken, conf.JWTSecret)
	require.NoError(t, err)
	require.Equal(t, "uid-1", claims["id"])
	require.Equal(t, "ada@example.com", claims["email"])
}

func TestLoginRejectsBadCredential(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{email: "ada@example.com", password: "hunter22"}
	auth := NewAuthService(testLogger(), identity, repo, testConfig())

	_, apiErr := auth.LoginUser(context.Background(), &models.LoginRequest{
		Email:    "ada@example.com",
		Password: "wrong",
	})
	require.NotNil(t, apiErr)
	require.Equal(t, 502, apiErr.Status, "provider rejections surface as transport errors")
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{email: "ada@example.com", password: "hunter22", unverified: true}
	auth := NewAuthService(testLogger(), identity, repo, testConfig())

	_, apiErr := auth.LoginUser(context.Background(), &models.LoginRequest{
		Email:    "ada@example.com",
		Password: "hunter22",
	})
	require.Equal(t, apiError.ErrEmailNotVerified, apiErr)
}

func TestLogoutBlacklistsToken(t *testing.T) {
	repo := newFakeChatRepo()
	identity := &fakeIdentity{email: "ada@example.com", password: "hunter22"}
	auth := NewAuthService(testLogger(), identity, repo, testConfig())

	require.False(t, auth.IsTokenInBlacklist("tok"))
	auth.Logout("tok")
	require.True(t, auth.IsTokenInBlacklist("tok"))
}
