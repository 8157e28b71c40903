package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/authflow"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/service"
	"github.com/quocanhngo/firechat/pkg/identity"
	"github.com/quocanhngo/firechat/pkg/upload"
)

var statusByError = []struct {
	err    error
	status int
}{
	// identity provider, shown verbatim
	{identity.ErrInvalidCredentials, http.StatusUnauthorized},
	{identity.ErrInvalidToken, http.StatusUnauthorized},
	{identity.ErrRequiresRecentLogin, http.StatusUnauthorized},
	{identity.ErrEmailExists, http.StatusBadRequest},
	{identity.ErrWeakPassword, http.StatusBadRequest},
	{identity.ErrUserDisabled, http.StatusForbidden},
	{identity.ErrTooManyAttempts, http.StatusTooManyRequests},
	{authflow.ErrUnknownMode, http.StatusBadRequest},
	{service.ErrTokenRevoked, http.StatusUnauthorized},

	{service.ErrChatNotFound, http.StatusNotFound},
	{service.ErrMessageNotFound, http.StatusNotFound},
	{service.ErrUserNotFound, http.StatusNotFound},
	{service.ErrInvitationNotFound, http.StatusNotFound},

	{service.ErrNotMember, http.StatusForbidden},
	{service.ErrNotOwner, http.StatusForbidden},
	{service.ErrOwnerCannotLeave, http.StatusForbidden},
	{service.ErrBlockedByYou, http.StatusForbidden},
	{service.ErrBlockedByPeer, http.StatusForbidden},
	{service.ErrNotSender, http.StatusForbidden},
	{service.ErrNotRecipient, http.StatusForbidden},

	{service.ErrAlreadyDeleted, http.StatusConflict},
	{service.ErrInvitationResolved, http.StatusConflict},

	{service.ErrNotOneToOne, http.StatusBadRequest},
	{service.ErrNotGroup, http.StatusBadRequest},
	{service.ErrConfirmationRequired, http.StatusBadRequest},
	{service.ErrEmptyMessage, http.StatusBadRequest},
	{service.ErrInvalidReaction, http.StatusBadRequest},
	{service.ErrInvalidPeer, http.StatusBadRequest},
	{service.ErrEmptyGroupName, http.StatusBadRequest},
	{service.ErrPasswordTooShort, http.StatusBadRequest},
	{service.ErrPasswordMismatch, http.StatusBadRequest},
}

// statusFor maps a service error onto an HTTP status; unknown errors are 500
func statusFor(err error) int {
	var uerr *upload.Error
	if errors.As(err, &uerr) {
		return http.StatusBadGateway
	}
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// respondError writes err as model.ErrorResponse. Store failures are
// logged and reported without their details.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(status, model.ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(status, model.ErrorResponse{Error: err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
}
