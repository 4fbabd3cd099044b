package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/server/response"
)

func (s *Server) handleShowProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		profile, apiErr := s.AccountService.RefreshProfile(c.Request.Context(), uid)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, profile, nil)
	}
}

// handleEditUserProfile updates the name fields and, when a profileImage file
// rides along, uploads a downscaled picture and stores its durable URL.
func (s *Server) handleEditUserProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")

		req := models.EditProfileRequest{
			FirstName: c.PostForm("first_name"),
			Surname:   c.PostForm("surname"),
		}

		file, fileHeader, err := c.Request.FormFile("profileImage")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				response.JSON(c, "", http.StatusBadRequest, nil, errs.New("could not read file", http.StatusBadRequest))
				return
			}
			url, apiErr := s.AttachmentService.UploadProfilePic(c.Request.Context(), data, fileHeader.Filename)
			if apiErr != nil {
				response.JSON(c, "", apiErr.Status, nil, apiErr)
				return
			}
			if apiErr := s.AccountService.SetProfilePic(c.Request.Context(), uid, url); apiErr != nil {
				response.JSON(c, "", apiErr.Status, nil, apiErr)
				return
			}
		}

		if req.FirstName != "" || req.Surname != "" {
			if apiErr := s.AccountService.EditProfile(c.Request.Context(), uid, &req); apiErr != nil {
				response.JSON(c, "", apiErr.Status, nil, apiErr)
				return
			}
		}

		response.JSON(c, "profile updated successfully", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleUpdateCredentials() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.UpdateCredentialsRequest
		if errors := decode(c, &request); errors != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors)
			return
		}

		email := c.GetString("email")
		if apiErr := s.AccountService.UpdateCredentials(c.Request.Context(), email, &request); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "credentials updated", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleDeactivateAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		if apiErr := s.AccountService.Deactivate(c.Request.Context(), uid); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		s.AuthService.Logout(c.GetString("access_token"))
		response.JSON(c, "your account has been deactivated", http.StatusOK, nil, nil)
	}
}

// handleDeleteAccount requires a fresh password proof, scrubs the profile to
// the sentinel and removes the credential. A rejected deletion (stale reauth,
// failed scrub) leaves the session alive so the user can retry; once the
// sentinel is written the session is torn down even if the credential removal
// degraded.
func (s *Server) handleDeleteAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.DeleteAccountRequest
		if errors := decode(c, &request); errors != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors)
			return
		}

		uid := c.GetString("userID")
		email := c.GetString("email")
		if apiErr := s.AccountService.DeleteAccount(c.Request.Context(), uid, email, request.Password); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		s.AuthService.Logout(c.GetString("access_token"))
		s.PresenceService.Close(c.Request.Context(), uid)
		response.JSON(c, "account deleted", http.StatusOK, nil, nil)
	}
}
