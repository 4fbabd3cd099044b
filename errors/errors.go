package errors

import (
	"fmt"
	"net/http"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
)

// Error is the API error type carried from services up to the handlers.
type Error struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func New(message string, status int) *Error {
	return &Error{
		Message: message,
		Status:  status,
	}
}

var (
	ErrInternalServerError = New("internal server error", http.StatusInternalServerError)
	ErrBadRequest          = New("bad request", http.StatusBadRequest)
	ErrUnauthorized        = New("unauthorized", http.StatusUnauthorized)

	// ErrNothingToSend rejects a composition with no text, no attachment and no
	// recorded audio.
	ErrNothingToSend = New("nothing to send", http.StatusBadRequest)

	// ErrSendInProgress rejects a second send while one is still uploading or
	// persisting. Sends are not queued.
	ErrSendInProgress = New("send already in progress", http.StatusConflict)

	// ErrAccountDeactivated is returned when a deactivated account attempts to
	// originate new activity. Distinct from transport failures so the client can
	// show an actionable message.
	ErrAccountDeactivated = New("account deactivated", http.StatusForbidden)

	// ErrReauthRequired is returned when a destructive action was attempted
	// without fresh proof of the current credential.
	ErrReauthRequired = New("reauthentication required", http.StatusUnauthorized)

	// ErrEmailNotVerified gates login until the verification mail was acted on.
	ErrEmailNotVerified = New("please verify your email before logging in", http.StatusUnauthorized)
)

// NewTransport wraps an upstream provider/store failure. The provider message is
// surfaced verbatim, the operation is terminal and retry is the caller's call.
func NewTransport(err error) *Error {
	return New(err.Error(), http.StatusBadGateway)
}

// NewValidation reports user-correctable input problems.
func NewValidation(message string) *Error {
	return New(message, http.StatusBadRequest)
}

// ErrorHandler is plugged into the rate limit middleware for throttled routes.
func ErrorHandler(c *gin.Context, info ratelimit.Info) {
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "too many requests, try again later",
	})
	c.Abort()
}
