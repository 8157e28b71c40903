package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/realtime"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/pkg/upload"
)

// Gateway is the single entry point for state-changing operations.
// Every operation reads the documents it depends on, checks its
// preconditions, then issues one or more independent store writes.
// A failing follow-up write is logged and never rolled back.
type Gateway struct {
	users       repository.UserRepository
	chats       repository.ChatRepository
	messages    repository.MessageRepository
	invitations repository.InvitationRepository
	relay       upload.Relay
	log         zerolog.Logger
}

func NewGateway(repos *repository.Repositories, relay upload.Relay, logger zerolog.Logger) *Gateway {
	return &Gateway{
		users:       repos.Users,
		chats:       repos.Chats,
		messages:    repos.Messages,
		invitations: repos.Invitations,
		relay:       relay,
		log:         logger.With().Str("component", "gateway").Logger(),
	}
}

// ========== Lookups ==========

func (g *Gateway) chat(ctx context.Context, id string) (*model.Chat, error) {
	chat, err := g.chats.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

// memberChat loads a chat and requires viewer to be a member
func (g *Gateway) memberChat(ctx context.Context, viewer, id string) (*model.Chat, error) {
	chat, err := g.chat(ctx, id)
	if err != nil {
		return nil, err
	}
	if !chat.IsMember(viewer) {
		return nil, ErrNotMember
	}
	return chat, nil
}

func (g *Gateway) message(ctx context.Context, id string) (*model.Message, error) {
	msg, err := g.messages.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

func (g *Gateway) profile(ctx context.Context, uid string) (*model.UserProfile, error) {
	p, err := g.users.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return p, err
}

// senderName uses the live profile, falling back to the chat snapshot
func (g *Gateway) senderName(ctx context.Context, viewer string, chat *model.Chat) string {
	if p, err := g.users.Get(ctx, viewer); err == nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return chat.MemberName(viewer)
}

// checkBlock rejects sends into a one-to-one chat blocked from either side.
// The flags come from both profiles; neither is stored on the chat.
func (g *Gateway) checkBlock(ctx context.Context, viewer string, chat *model.Chat) error {
	if chat.IsGroup() {
		return nil
	}
	self, err := g.users.Get(ctx, viewer)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	peer := chat.Peer(viewer)
	peerProfile, err := g.users.Get(ctx, peer)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	st := realtime.ComputeBlockState(viewer, peer, self, peerProfile)
	switch {
	case st.BlockedByMe:
		return ErrBlockedByYou
	case st.HasBlockedMe:
		return ErrBlockedByPeer
	}
	return nil
}

// touch refreshes the chat summary; failures leave the message in place
func (g *Gateway) touch(ctx context.Context, chatID string, summary model.LastMessage) {
	if err := g.chats.SetLastMessage(ctx, chatID, summary); err != nil {
		g.log.Warn().Err(err).Str("chat", chatID).Msg("lastMessage not updated")
	}
}

// ========== Messages ==========

// SendMessage posts a text message, optionally replying to another message
func (g *Gateway) SendMessage(ctx context.Context, viewer, chatID string, req model.SendMessageRequest) (string, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return "", err
	}
	if err := g.checkBlock(ctx, viewer, chat); err != nil {
		return "", err
	}

	msg := &model.Message{
		ChatID:     chatID,
		SenderID:   viewer,
		SenderName: g.senderName(ctx, viewer, chat),
		Text:       text,
		Type:       model.MessageTypeText,
	}
	if req.ReplyToID != "" {
		orig, err := g.message(ctx, req.ReplyToID)
		if err != nil {
			return "", err
		}
		if orig.ChatID != chatID {
			return "", ErrMessageNotFound
		}
		msg.ReplyTo = orig.ReplySnapshot()
	}

	id, err := g.messages.Create(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	g.touch(ctx, chatID, model.LastMessage{Text: text, SenderID: viewer, SenderName: msg.SenderName})
	return id, nil
}

// SendFile uploads through the relay and posts a file message. Nothing is
// written when the upload fails.
func (g *Gateway) SendFile(ctx context.Context, viewer, chatID string, file upload.File) (string, error) {
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return "", err
	}
	if err := g.checkBlock(ctx, viewer, chat); err != nil {
		return "", err
	}

	res, err := g.relay.Upload(ctx, file)
	if err != nil {
		g.log.Warn().Err(err).Str("chat", chatID).Str("file", file.Name).Msg("Upload failed, message skipped")
		var uerr *upload.Error
		if !errors.As(err, &uerr) {
			err = &upload.Error{Message: err.Error()}
		}
		return "", err
	}

	msg := &model.Message{
		ChatID:     chatID,
		SenderID:   viewer,
		SenderName: g.senderName(ctx, viewer, chat),
		Text:       "📎 Sent a file: " + res.Name,
		Type:       model.MessageTypeFile,
		FileURL:    res.URL,
		FileName:   res.Name,
	}
	id, err := g.messages.Create(ctx, msg)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	g.touch(ctx, chatID, model.LastMessage{Text: "📎 " + res.Name, SenderID: viewer, SenderName: msg.SenderName})
	return id, nil
}

// DeleteForMe hides a message from the viewer only. The viewer must be a
// member of the chat, or have sent or read the message while they were one.
func (g *Gateway) DeleteForMe(ctx context.Context, viewer, messageID string) error {
	msg, err := g.message(ctx, messageID)
	if err != nil {
		return err
	}
	if _, seen := msg.ReadBy[viewer]; msg.SenderID != viewer && !seen {
		if _, err := g.memberChat(ctx, viewer, msg.ChatID); err != nil {
			return err
		}
	}
	return g.messages.HideFor(ctx, messageID, viewer)
}

// DeleteForEveryone turns the viewer's own message into a tombstone
func (g *Gateway) DeleteForEveryone(ctx context.Context, viewer, messageID string) error {
	msg, err := g.message(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != viewer {
		return ErrNotSender
	}
	if msg.IsDeleted {
		return ErrAlreadyDeleted
	}
	return g.messages.Tombstone(ctx, messageID)
}

// React toggles the viewer's emoji on a message and reports whether it is now set
func (g *Gateway) React(ctx context.Context, viewer, messageID, emoji string) (bool, error) {
	if !model.IsReaction(emoji) {
		return false, ErrInvalidReaction
	}
	msg, err := g.message(ctx, messageID)
	if err != nil {
		return false, err
	}
	if _, err := g.memberChat(ctx, viewer, msg.ChatID); err != nil {
		return false, err
	}
	if msg.IsDeleted {
		return false, ErrAlreadyDeleted
	}

	if msg.HasReacted(emoji, viewer) {
		return false, g.messages.RemoveReaction(ctx, messageID, emoji, viewer)
	}
	return true, g.messages.AddReaction(ctx, messageID, emoji, viewer)
}

// Forward copies a message into another chat the viewer belongs to
func (g *Gateway) Forward(ctx context.Context, viewer, messageID, targetChatID string) (string, error) {
	msg, err := g.message(ctx, messageID)
	if err != nil {
		return "", err
	}
	if _, err := g.memberChat(ctx, viewer, msg.ChatID); err != nil {
		return "", err
	}
	if msg.IsDeleted {
		return "", ErrAlreadyDeleted
	}
	target, err := g.memberChat(ctx, viewer, targetChatID)
	if err != nil {
		return "", err
	}
	if err := g.checkBlock(ctx, viewer, target); err != nil {
		return "", err
	}

	fwd := &model.Message{
		ChatID:      targetChatID,
		SenderID:    viewer,
		SenderName:  g.senderName(ctx, viewer, target),
		Text:        msg.Text,
		Type:        msg.Type,
		FileURL:     msg.FileURL,
		FileName:    msg.FileName,
		IsForwarded: true,
	}
	id, err := g.messages.Create(ctx, fwd)
	if err != nil {
		return "", fmt.Errorf("create message: %w", err)
	}
	g.touch(ctx, targetChatID, model.LastMessage{Text: "Forwarded: " + msg.Text, SenderID: viewer, SenderName: fwd.SenderName})
	return id, nil
}

// ========== Blocking ==========

// SetBlocked blocks or unblocks the peer of a one-to-one chat.
// Blocking needs confirmed=true; unblocking does not.
func (g *Gateway) SetBlocked(ctx context.Context, viewer, chatID string, block, confirmed bool) error {
	if block && !confirmed {
		return ErrConfirmationRequired
	}
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return err
	}
	if chat.IsGroup() {
		return ErrNotOneToOne
	}
	peer := chat.Peer(viewer)
	if peer == "" {
		return ErrNotOneToOne
	}

	if block {
		err = g.users.AddBlocked(ctx, viewer, peer)
	} else {
		err = g.users.RemoveBlocked(ctx, viewer, peer)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// ========== Groups ==========

// AddMember lets the group creator add a user with a fresh profile snapshot
func (g *Gateway) AddMember(ctx context.Context, viewer, chatID, uid string) error {
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return ErrNotGroup
	}
	if !chat.IsOwner(viewer) {
		return ErrNotOwner
	}
	p, err := g.profile(ctx, uid)
	if err != nil {
		return err
	}
	return g.chats.AddMember(ctx, chatID, uid, p.Snapshot())
}

// LeaveGroup removes a non-creator member from a group
func (g *Gateway) LeaveGroup(ctx context.Context, viewer, chatID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return ErrNotGroup
	}
	if chat.CreatorID == viewer {
		return ErrOwnerCannotLeave
	}
	return g.chats.RemoveMember(ctx, chatID, viewer)
}

// DeleteGroup removes the chat document. Its messages stay orphaned.
func (g *Gateway) DeleteGroup(ctx context.Context, viewer, chatID string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	chat, err := g.memberChat(ctx, viewer, chatID)
	if err != nil {
		return err
	}
	if !chat.IsGroup() {
		return ErrNotGroup
	}
	if !chat.IsOwner(viewer) {
		return ErrNotOwner
	}
	if err := g.chats.Delete(ctx, chatID); err != nil {
		return err
	}
	g.log.Info().Str("chat", chatID).Str("uid", viewer).Msg("🗑️  Group deleted")
	return nil
}

// ========== Invitations ==========

func (g *Gateway) pendingInvitation(ctx context.Context, viewer, id string) (*model.Invitation, error) {
	inv, err := g.invitations.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	if inv.ToUID != viewer {
		return nil, ErrNotRecipient
	}
	if inv.Status != model.InvitationPending {
		return nil, ErrInvitationResolved
	}
	return inv, nil
}

func (g *Gateway) resolve(ctx context.Context, id string, to model.InvitationStatus) error {
	err := g.invitations.Resolve(ctx, id, to)
	if errors.Is(err, repository.ErrConflict) {
		return ErrInvitationResolved
	}
	return err
}

// AcceptInvitation marks the invitation accepted and joins the group if it
// still exists. A deleted group is not an error.
func (g *Gateway) AcceptInvitation(ctx context.Context, viewer, id string) error {
	inv, err := g.pendingInvitation(ctx, viewer, id)
	if err != nil {
		return err
	}
	if err := g.resolve(ctx, id, model.InvitationAccepted); err != nil {
		return err
	}

	if _, err := g.chats.Get(ctx, inv.GroupID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			g.log.Info().Str("invitation", id).Str("group", inv.GroupID).Msg("Group is gone, nothing to join")
			return nil
		}
		return err
	}

	snap := model.MemberSnapshot{DisplayName: "User"}
	if p, err := g.users.Get(ctx, viewer); err == nil {
		snap = p.Snapshot()
	}
	err = g.chats.AddMember(ctx, inv.GroupID, viewer, snap)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

// RejectInvitation marks the invitation rejected
func (g *Gateway) RejectInvitation(ctx context.Context, viewer, id string) error {
	if _, err := g.pendingInvitation(ctx, viewer, id); err != nil {
		return err
	}
	return g.resolve(ctx, id, model.InvitationRejected)
}

var _ realtime.Sender = (*Gateway)(nil)
