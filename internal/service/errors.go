package service

import "errors"

// Precondition violations. Handlers map them onto 4xx responses.
var (
	ErrChatNotFound         = errors.New("chat not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvitationNotFound   = errors.New("invitation not found")
	ErrNotMember            = errors.New("you are not a member of this chat")
	ErrNotOwner             = errors.New("only the group creator can do this")
	ErrOwnerCannotLeave     = errors.New("the group creator cannot leave; delete the group instead")
	ErrBlockedByYou         = errors.New("you have blocked this user; unblock to send messages")
	ErrBlockedByPeer        = errors.New("you cannot message this user")
	ErrNotSender            = errors.New("only the sender can delete a message for everyone")
	ErrAlreadyDeleted       = errors.New("message was already deleted")
	ErrNotOneToOne          = errors.New("only one-to-one chats support this")
	ErrNotGroup             = errors.New("only groups support this")
	ErrNotRecipient         = errors.New("invitation is addressed to another user")
	ErrInvitationResolved   = errors.New("invitation was already answered")
	ErrConfirmationRequired = errors.New("this action needs explicit confirmation")
	ErrEmptyMessage         = errors.New("message text is empty")
	ErrInvalidReaction      = errors.New("unsupported reaction")
	ErrInvalidPeer          = errors.New("cannot start a chat with yourself")
	ErrEmptyGroupName       = errors.New("group name is required")
	ErrPasswordTooShort     = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrTokenRevoked         = errors.New("session was signed out")
)
