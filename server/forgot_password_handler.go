package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/server/response"
)

// HandleForgotPassword asks the identity provider for a reset link and mails
// it out. The route is rate limited; repeated requests from one address get
// throttled before they reach the provider.
func (s *Server) HandleForgotPassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.ForgotPasswordRequest
		if errs := decode(c, &request); errs != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs)
			return
		}

		if apiErr := s.Identity.SendPasswordReset(c.Request.Context(), request.Email); apiErr != nil {
			response.JSON(c, "connection to mail service interrupted", apiErr.Status, nil, apiErr)
			return
		}

		response.JSON(c, "Reset Password Link Sent Successfully", http.StatusOK, nil, nil)
	}
}
