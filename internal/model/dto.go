package model

// ========== Auth DTOs ==========

type AuthSubmitRequest struct {
	Mode     string `json:"mode" binding:"required,oneof=login signup forgot"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"` // ignored in forgot mode
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"` // Google ID token from the frontend popup
}

type TokenLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"` // identity provider ID token
}

type SetPasswordRequest struct {
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

type LoginResponse struct {
	Token         string      `json:"token"`
	User          UserProfile `json:"user"`
	NeedsPassword bool        `json:"needs_password"`
}

type AuthSubmitResponse struct {
	Login     *LoginResponse `json:"login,omitempty"`
	Notice    string         `json:"notice,omitempty"`
	NextModes []string       `json:"next_modes"`
}

// ========== Chat DTOs ==========

type DirectChatRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

type CreateGroupRequest struct {
	Name       string   `json:"name" binding:"required,max=100"`
	InviteeIDs []string `json:"invitee_ids" binding:"required,min=1"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

type ConfirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

type BlockRequest struct {
	Block     bool `json:"block"`
	Confirmed bool `json:"confirmed"`
}

// ========== Message DTOs ==========

type SendMessageRequest struct {
	Text      string `json:"text" binding:"required,max=4000"`
	ReplyToID string `json:"reply_to_id"`
}

type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

type ForwardRequest struct {
	TargetChatID string `json:"target_chat_id" binding:"required"`
}

type SearchUsersRequest struct {
	Query string `form:"q"`
}

type DeleteMessageRequest struct {
	Scope string `form:"scope" binding:"omitempty,oneof=me everyone"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type ReactResponse struct {
	Added bool `json:"added"`
}

// UploadResponse is the relay contract: status is "success" or "error"
type UploadResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	FileURL  string `json:"file_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileSize int64  `json:"file_size,omitempty"`
}

// ========== WebSocket Event DTOs ==========

type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Server -> client event types
const (
	WSEventProfile     = "profile"
	WSEventChats       = "chats"
	WSEventInvitations = "invitations"
	WSEventMessages    = "messages"
	WSEventUnread      = "unread"
	WSEventBlockState  = "block_state"
	WSEventChatClosed  = "chat_closed"
	WSEventWarning     = "warning"
	WSEventSignedOut   = "signed_out"
	WSEventError       = "error"
)

// Client -> server event types
const (
	WSEventOpenChat    = "open_chat"
	WSEventCloseChat   = "close_chat"
	WSEventSetReply    = "set_reply"
	WSEventClearReply  = "clear_reply"
	WSEventDraft       = "draft"
	WSEventSendMessage = "send_message"
)

type OpenChatEvent struct {
	ChatID string `json:"chat_id"`
}

type SetReplyEvent struct {
	MessageID string `json:"message_id"`
}

type DraftEvent struct {
	Text string `json:"text"`
}

type SendMessageEvent struct {
	Text string `json:"text"`
}

// ========== Common ==========

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
