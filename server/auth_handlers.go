package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/server/response"
)

// decode binds and conform-normalizes a JSON request, returning readable
// per-field errors.
func decode(c *gin.Context, v interface{}) []error {
	if err := c.ShouldBindJSON(v); err != nil {
		return models.TranslateError(err)
	}
	if err := models.ValidateWhiteSpaces(v); err != nil {
		return []error{err}
	}
	return nil
}

func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

func (s *Server) handleSignup() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.SignupRequest
		if errors := decode(c, &request); errors != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors)
			return
		}

		resp, apiErr := s.AuthService.SignupUser(c.Request.Context(), &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "signup successful, check your email to verify your account", http.StatusCreated, resp, nil)
	}
}

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.LoginRequest
		if errors := decode(c, &request); errors != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors)
			return
		}

		resp, apiErr := s.AuthService.LoginUser(c.Request.Context(), &request)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, resp, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetString("access_token")
		s.AuthService.Logout(token)

		// Leaving the conversation view: drop the presence record so other
		// clients' maps do not keep a dead entry.
		s.PresenceService.Close(c.Request.Context(), c.GetString("userID"))

		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}
