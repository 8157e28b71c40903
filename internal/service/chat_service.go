package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

const (
	directChatGreeting = "Started a new conversation"
	groupCreatedText   = "Group created. Invitations sent."
	inviteConcurrency  = 8
)

// ChatService creates chats and answers directory lookups
type ChatService struct {
	users       repository.UserRepository
	chats       repository.ChatRepository
	invitations repository.InvitationRepository
	log         zerolog.Logger
}

func NewChatService(repos *repository.Repositories, logger zerolog.Logger) *ChatService {
	return &ChatService{
		users:       repos.Users,
		chats:       repos.Chats,
		invitations: repos.Invitations,
		log:         logger.With().Str("component", "chats").Logger(),
	}
}

// CreateOneToOne returns the existing chat between viewer and peer or
// creates it. Two simultaneous first calls can still race past the lookup.
func (s *ChatService) CreateOneToOne(ctx context.Context, viewer, peer string) (string, error) {
	if peer == "" || peer == viewer {
		return "", ErrInvalidPeer
	}

	existing, err := s.chats.FindOneToOne(ctx, viewer, peer)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", fmt.Errorf("find chat: %w", err)
	}

	me, err := s.profile(ctx, viewer)
	if err != nil {
		return "", err
	}
	other, err := s.profile(ctx, peer)
	if err != nil {
		return "", err
	}

	chat := &model.Chat{
		Type:    model.ChatTypeOneToOne,
		Members: []string{viewer, peer},
		MembersData: map[string]model.MemberSnapshot{
			viewer: me.Snapshot(),
			peer:   other.Snapshot(),
		},
		LastMessage: &model.LastMessage{
			Text:       directChatGreeting,
			SenderID:   viewer,
			SenderName: me.DisplayName,
		},
	}
	id, err := s.chats.Create(ctx, chat)
	if err != nil {
		return "", fmt.Errorf("create chat: %w", err)
	}
	s.log.Info().Str("chat", id).Str("uid", viewer).Str("peer", peer).Msg("💬 One-to-one chat created")
	return id, nil
}

// CreateGroup creates a group owned by viewer and invites everyone else.
// The creator is the only member until invitations are accepted.
func (s *ChatService) CreateGroup(ctx context.Context, viewer string, req model.CreateGroupRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrEmptyGroupName
	}
	me, err := s.profile(ctx, viewer)
	if err != nil {
		return "", err
	}

	id, err := s.chats.Create(ctx, &model.Chat{
		Type:        model.ChatTypeGroup,
		Name:        name,
		CreatorID:   viewer,
		Members:     []string{viewer},
		MembersData: map[string]model.MemberSnapshot{viewer: me.Snapshot()},
		LastMessage: &model.LastMessage{
			Text:       groupCreatedText,
			SenderID:   viewer,
			SenderName: me.DisplayName,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}

	seen := map[string]bool{viewer: true}
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(inviteConcurrency)
	for _, uid := range req.InviteeIDs {
		if uid == "" || seen[uid] {
			continue
		}
		seen[uid] = true
		inv := &model.Invitation{
			GroupID:   id,
			GroupName: name,
			ToUID:     uid,
			FromUID:   viewer,
			FromName:  me.DisplayName,
		}
		eg.Go(func() error {
			_, err := s.invitations.Create(egCtx, inv)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		// the group exists; missing invitations can be re-sent as members
		s.log.Warn().Err(err).Str("chat", id).Msg("Some invitations were not written")
	}

	s.log.Info().Str("chat", id).Str("uid", viewer).Int("invited", len(seen)-1).Msg("👥 Group created")
	return id, nil
}

// SearchUsers matches displayName or email case-insensitively, never
// returning the viewer
func (s *ChatService) SearchUsers(ctx context.Context, viewer, query string) ([]model.UserProfile, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := []model.UserProfile{}
	for _, u := range all {
		if u.UID == viewer {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.DisplayName), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, publicProfile(u))
		}
	}
	return out, nil
}

// AddMemberCandidates lists users who are not in the group yet
func (s *ChatService) AddMemberCandidates(ctx context.Context, viewer, chatID, query string) ([]model.UserProfile, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if !chat.IsMember(viewer) {
		return nil, ErrNotMember
	}
	if !chat.IsGroup() {
		return nil, ErrNotGroup
	}

	users, err := s.SearchUsers(ctx, viewer, query)
	if err != nil {
		return nil, err
	}
	out := users[:0]
	for _, u := range users {
		if !chat.IsMember(u.UID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *ChatService) profile(ctx context.Context, uid string) (*model.UserProfile, error) {
	p, err := s.users.Get(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return p, err
}

// publicProfile strips fields other users must not see
func publicProfile(u model.UserProfile) model.UserProfile {
	u.BlockedUsers = nil
	u.HasSetPassword = false
	return u
}
