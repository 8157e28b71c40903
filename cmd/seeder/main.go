package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/quocanhngo/firechat/internal/bootstrap"
	"github.com/quocanhngo/firechat/internal/config"
	"github.com/quocanhngo/firechat/internal/logging"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

func main() {
	app := &cli.App{
		Name:  "seeder",
		Usage: "Seed demo accounts and chats into a Firebase project",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "count", Usage: "Number of users to create", Value: 10},
			&cli.StringFlag{Name: "password", Usage: "Password shared by all seeded users", Value: "password123"},
			&cli.StringFlag{Name: "domain", Usage: "Email domain of seeded users", Value: "firechat.local"},
			&cli.BoolFlag{Name: "group", Usage: "Also create a demo group with the first three users", Value: true},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent account creations", Value: 4},
		},
		Action: seed,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func seed(c *cli.Context) error {
	cfg := config.Load()
	logger := logging.New(cfg.App.Env, cfg.App.LogLevel, os.Stderr)
	ctx := c.Context

	fbApp, err := bootstrap.FirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		return err
	}
	authClient, err := fbApp.Auth(ctx)
	if err != nil {
		return fmt.Errorf("failed to init firebase auth: %w", err)
	}
	fs, err := fbApp.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to firestore: %w", err)
	}
	defer fs.Close()
	repos := repository.NewFirestore(fs)

	s := &seeder{auth: authClient, repos: repos, log: logger, password: c.String("password")}
	logger.Info().Int("count", c.Int("count")).Msg("🌱 Seeding users...")

	profiles := make([]*model.UserProfile, c.Int("count"))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.Int("workers"))
	for i := range profiles {
		i := i
		g.Go(func() error {
			p, err := s.user(gctx, fmt.Sprintf("user%d", i+1), c.String("domain"))
			if err != nil {
				return err
			}
			profiles[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if c.Bool("group") && len(profiles) >= 3 {
		if err := s.group(ctx, profiles[:3]); err != nil {
			return err
		}
	}
	logger.Info().Msg("🎉 Seeding completed!")
	return nil
}

type seeder struct {
	auth     *fbauth.Client
	repos    *repository.Repositories
	log      zerolog.Logger
	password string
}

// user returns the profile of username, creating the account and the
// profile document when missing
func (s *seeder) user(ctx context.Context, username, domain string) (*model.UserProfile, error) {
	email := username + "@" + domain
	name := "User " + username[len("user"):]

	rec, err := s.auth.GetUserByEmail(ctx, email)
	switch {
	case fbauth.IsUserNotFound(err):
		params := (&fbauth.UserToCreate{}).
			Email(email).
			EmailVerified(true).
			Password(s.password).
			DisplayName(name).
			PhotoURL(model.AvatarURL(name))
		rec, err = s.auth.CreateUser(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create account %s: %w", email, err)
		}
		s.log.Info().Str("email", email).Str("password", s.password).Msg("✅ Created account")
	case err != nil:
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}

	profile, err := s.repos.Users.Get(ctx, rec.UID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load profile %s: %w", rec.UID, err)
	}
	profile = &model.UserProfile{
		UID:            rec.UID,
		Email:          email,
		DisplayName:    name,
		PhotoURL:       model.AvatarURL(name),
		HasSetPassword: true,
	}
	if err := s.repos.Users.Create(ctx, profile); err != nil && !errors.Is(err, repository.ErrAlreadyExists) {
		return nil, fmt.Errorf("create profile %s: %w", rec.UID, err)
	}
	s.log.Info().Str("uid", rec.UID).Msg("🔄 Profile written")
	return profile, nil
}

// group creates a demo group owned by the first member
func (s *seeder) group(ctx context.Context, members []*model.UserProfile) error {
	chat := &model.Chat{
		Type:        model.ChatTypeGroup,
		Name:        "Firechat Demo",
		CreatorID:   members[0].UID,
		MembersData: map[string]model.MemberSnapshot{},
	}
	for _, m := range members {
		chat.Members = append(chat.Members, m.UID)
		chat.MembersData[m.UID] = m.Snapshot()
	}
	id, err := s.repos.Chats.Create(ctx, chat)
	if err != nil {
		return fmt.Errorf("create demo group: %w", err)
	}
	s.log.Info().Str("chat", id).Int("members", len(members)).Msg("✅ Created demo group")
	return nil
}
