package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/achat/errors"
	"github.com/techagentng/achat/models"
	"github.com/techagentng/achat/server/response"
	"github.com/techagentng/achat/services"
)

// messageView is a message resolved for rendering: author from the profile
// cache, reply preview resolved at render time.
type messageView struct {
	models.Message
	Author       models.UserProfile `json:"author"`
	ReplyPreview string             `json:"reply_preview,omitempty"`
}

func (s *Server) renderMessage(msg models.Message) messageView {
	return messageView{
		Message:      msg,
		Author:       s.TimelineService.ResolveAuthor(msg.UID),
		ReplyPreview: s.TimelineService.ResolveReply(&msg),
	}
}

func (s *Server) renderMessages(msgs []models.Message) []messageView {
	views := make([]messageView, 0, len(msgs))
	for _, msg := range msgs {
		views = append(views, s.renderMessage(msg))
	}
	return views
}

// handleGetMessages is conversation entry: the deactivated flag is refreshed
// here (not per keystroke), profiles and history are loaded, and the ordered
// timeline is returned. On a store failure the last good cache is served with
// a warning instead of a blank view.
func (s *Server) handleGetMessages() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		uid := c.GetString("userID")

		if _, apiErr := s.AccountService.RefreshProfile(ctx, uid); apiErr != nil {
			s.Logger.Warnf("profile refresh at conversation entry for %s: %s", uid, apiErr.Message)
		}
		s.TimelineService.LoadProfiles(ctx)

		msgs, apiErr := s.TimelineService.Load(ctx)
		if apiErr != nil {
			if msgs == nil {
				response.JSON(c, "", apiErr.Status, nil, apiErr)
				return
			}
			response.JSON(c, "timeline unavailable, showing cached messages", http.StatusOK, s.renderMessages(msgs), nil)
			return
		}
		response.JSON(c, "", http.StatusOK, s.renderMessages(msgs), nil)
	}
}

// handleSendMessage accepts multipart form data: text, optional reply fields,
// optional media file. The draft is retained server-side so a failed send can
// be retried without re-uploading the selection.
func (s *Server) handleSendMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		email := c.GetString("email")

		draft := services.Draft{Text: c.PostForm("text")}
		if v, ok := c.GetPostForm("reply_to"); ok {
			draft.ReplyTo = &v
		}
		if v, ok := c.GetPostForm("reply_to_id"); ok {
			draft.ReplyToID = &v
		}

		file, fileHeader, err := c.Request.FormFile("media")
		if err == nil {
			defer file.Close()
			data, readErr := io.ReadAll(file)
			if readErr != nil {
				response.JSON(c, "", http.StatusBadRequest, nil, errs.New("could not read media file", http.StatusBadRequest))
				return
			}
			draft.Media = data
			draft.MediaName = fileHeader.Filename
			draft.MediaKind = models.MediaKindImage
			if ok, _ := services.CheckSupportedFile(fileHeader.Filename, models.MediaKindAudio); ok {
				draft.MediaKind = models.MediaKindAudio
			}
		}

		s.ComposerService.SetDraft(uid, draft)
		msg, apiErr := s.ComposerService.Send(c.Request.Context(), uid, email)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "message sent", http.StatusCreated, s.renderMessage(*msg), nil)
	}
}

// handleRetrySend resubmits the retained draft after a failure, without the
// client re-sending the attachment bytes.
func (s *Server) handleRetrySend() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		email := c.GetString("email")

		msg, apiErr := s.ComposerService.Send(c.Request.Context(), uid, email)
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "message sent", http.StatusCreated, s.renderMessage(*msg), nil)
	}
}

func (s *Server) handleAddReaction() gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := c.GetString("userID")
		messageID := c.Param("messageID")

		var request models.ReactionRequest
		if errors := decode(c, &request); errors != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errors)
			return
		}

		if apiErr := s.AccountService.CheckCanSend(uid); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}

		reaction := models.Reaction{Emoji: request.Emoji, UID: uid}
		if err := s.ChatRepository.AddReaction(c.Request.Context(), messageID, reaction); err != nil {
			s.Logger.Errorf("adding reaction to %s: %v", messageID, err)
			response.JSON(c, "", http.StatusBadGateway, nil, errs.NewTransport(err))
			return
		}
		s.TimelineService.ApplyReaction(messageID, reaction)
		response.JSON(c, "reaction added", http.StatusOK, nil, nil)
	}
}

// handleTyping is hit on every keystroke; the tracker owns the debounce and
// failures never reach the user.
func (s *Server) handleTyping() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.PresenceService.OnInput(c.Request.Context(), c.GetString("userID"))
		response.JSON(c, "", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleLeaveConversation() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.PresenceService.Close(c.Request.Context(), c.GetString("userID"))
		response.JSON(c, "", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleStartCapture() gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiErr := s.ComposerService.StartCapture(c.GetString("userID")); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "recording", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleCaptureChunk() gin.HandlerFunc {
	return func(c *gin.Context) {
		chunk, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("could not read chunk", http.StatusBadRequest))
			return
		}
		if apiErr := s.ComposerService.AppendChunk(c.GetString("userID"), chunk); apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleStopCapture() gin.HandlerFunc {
	return func(c *gin.Context) {
		seconds, apiErr := s.ComposerService.StopCapture(c.GetString("userID"))
		if apiErr != nil {
			response.JSON(c, "", apiErr.Status, nil, apiErr)
			return
		}
		response.JSON(c, "recording finalized", http.StatusOK, gin.H{"duration_seconds": seconds}, nil)
	}
}
