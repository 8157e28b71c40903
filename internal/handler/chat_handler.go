package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/middleware"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/service"
)

// ChatHandler handles chat, message and invitation endpoints. Every
// endpoint only writes; results reach the client through its session.
type ChatHandler struct {
	chats     *service.ChatService
	gateway   *service.Gateway
	maxUpload int64
	log       zerolog.Logger
}

func NewChatHandler(chats *service.ChatService, gateway *service.Gateway, maxUpload int64, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{
		chats:     chats,
		gateway:   gateway,
		maxUpload: maxUpload,
		log:       logger.With().Str("component", "chat_handler").Logger(),
	}
}

// ========== Chats ==========

// CreateDirect godoc
// @Summary Get or create the one-to-one chat with a user
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.DirectChatRequest true "Peer"
// @Success 200 {object} model.IDResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chats/direct [post]
func (h *ChatHandler) CreateDirect(c *gin.Context) {
	var req model.DirectChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.chats.CreateOneToOne(c.Request.Context(), middleware.UID(c), req.PeerID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.IDResponse{ID: id})
}

// CreateGroup godoc
// @Summary Create a group and invite users
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateGroupRequest true "Group"
// @Success 201 {object} model.IDResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /chats/groups [post]
func (h *ChatHandler) CreateGroup(c *gin.Context) {
	var req model.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.chats.CreateGroup(c.Request.Context(), middleware.UID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.IDResponse{ID: id})
}

// AddMember godoc
// @Summary Add a user to a group (creator only)
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.AddMemberRequest true "User"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /chats/{id}/members [post]
func (h *ChatHandler) AddMember(c *gin.Context) {
	var req model.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gateway.AddMember(c.Request.Context(), middleware.UID(c), c.Param("id"), req.UserID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Member added"})
}

// Candidates godoc
// @Summary List users who can be added to a group
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param q query string false "Name or email"
// @Success 200 {array} model.UserProfile
// @Router /chats/{id}/candidates [get]
func (h *ChatHandler) Candidates(c *gin.Context) {
	var req model.SearchUsersRequest
	_ = c.ShouldBindQuery(&req)

	users, err := h.chats.AddMemberCandidates(c.Request.Context(), middleware.UID(c), c.Param("id"), req.Query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// LeaveGroup godoc
// @Summary Leave a group
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.ConfirmRequest true "Confirmation"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /chats/{id}/leave [post]
func (h *ChatHandler) LeaveGroup(c *gin.Context) {
	var req model.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gateway.LeaveGroup(c.Request.Context(), middleware.UID(c), c.Param("id"), req.Confirmed); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Left group"})
}

// DeleteGroup godoc
// @Summary Delete a group (creator only)
// @Description Messages of the group are kept.
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.ConfirmRequest true "Confirmation"
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /chats/{id} [delete]
func (h *ChatHandler) DeleteGroup(c *gin.Context) {
	var req model.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gateway.DeleteGroup(c.Request.Context(), middleware.UID(c), c.Param("id"), req.Confirmed); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Group deleted"})
}

// SetBlocked godoc
// @Summary Block or unblock the peer of a one-to-one chat
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.BlockRequest true "Block flag"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /chats/{id}/block [post]
func (h *ChatHandler) SetBlocked(c *gin.Context) {
	var req model.BlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.gateway.SetBlocked(c.Request.Context(), middleware.UID(c), c.Param("id"), req.Block, req.Confirmed); err != nil {
		respondError(c, h.log, err)
		return
	}
	msg := "User unblocked"
	if req.Block {
		msg = "User blocked"
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: msg})
}

// ========== Messages ==========

// SendMessage godoc
// @Summary Send a text message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.SendMessageRequest true "Message"
// @Success 201 {object} model.IDResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.gateway.SendMessage(c.Request.Context(), middleware.UID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.IDResponse{ID: id})
}

// SendFile godoc
// @Summary Upload a file and post it as a message
// @Tags Messages
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param file formData file true "File to send"
// @Success 201 {object} model.IDResponse
// @Failure 413 {object} model.ErrorResponse
// @Failure 502 {object} model.ErrorResponse
// @Router /chats/{id}/files [post]
func (h *ChatHandler) SendFile(c *gin.Context) {
	file, ok := formFile(c, h.maxUpload)
	if !ok {
		return
	}
	defer file.close()

	id, err := h.gateway.SendFile(c.Request.Context(), middleware.UID(c), c.Param("id"), file.File)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.IDResponse{ID: id})
}

// DeleteMessage godoc
// @Summary Delete a message for me or for everyone
// @Tags Messages
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param scope query string false "me (default) or everyone" Enums(me, everyone)
// @Success 200 {object} model.SuccessResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	var req model.DeleteMessageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, uid, id := c.Request.Context(), middleware.UID(c), c.Param("id")
	var err error
	if req.Scope == "everyone" {
		err = h.gateway.DeleteForEveryone(ctx, uid, id)
	} else {
		err = h.gateway.DeleteForMe(ctx, uid, id)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Message deleted"})
}

// React godoc
// @Summary Toggle a reaction on a message
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param body body model.ReactRequest true "Emoji"
// @Success 200 {object} model.ReactResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /messages/{id}/reactions [post]
func (h *ChatHandler) React(c *gin.Context) {
	var req model.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	added, err := h.gateway.React(c.Request.Context(), middleware.UID(c), c.Param("id"), req.Emoji)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.ReactResponse{Added: added})
}

// Forward godoc
// @Summary Forward a message to another chat
// @Tags Messages
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Param body body model.ForwardRequest true "Target chat"
// @Success 201 {object} model.IDResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /messages/{id}/forward [post]
func (h *ChatHandler) Forward(c *gin.Context) {
	var req model.ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	id, err := h.gateway.Forward(c.Request.Context(), middleware.UID(c), c.Param("id"), req.TargetChatID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, model.IDResponse{ID: id})
}

// ========== Invitations ==========

// AcceptInvitation godoc
// @Summary Accept a group invitation
// @Tags Invitations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /invitations/{id}/accept [post]
func (h *ChatHandler) AcceptInvitation(c *gin.Context) {
	if err := h.gateway.AcceptInvitation(c.Request.Context(), middleware.UID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Invitation accepted"})
}

// RejectInvitation godoc
// @Summary Reject a group invitation
// @Tags Invitations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invitation ID"
// @Success 200 {object} model.SuccessResponse
// @Failure 409 {object} model.ErrorResponse
// @Router /invitations/{id}/reject [post]
func (h *ChatHandler) RejectInvitation(c *gin.Context) {
	if err := h.gateway.RejectInvitation(c.Request.Context(), middleware.UID(c), c.Param("id")); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Invitation rejected"})
}

// ========== Users ==========

// SearchUsers godoc
// @Summary Search users by name or email
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or email"
// @Success 200 {array} model.UserProfile
// @Router /users/search [get]
func (h *ChatHandler) SearchUsers(c *gin.Context) {
	var req model.SearchUsersRequest
	_ = c.ShouldBindQuery(&req)

	users, err := h.chats.SearchUsers(c.Request.Context(), middleware.UID(c), req.Query)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}
