package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mbelenkov/microshop/internal/auth/models"
	"github.com/mbelenkov/microshop/internal/auth/repo"
	"github.com/mbelenkov/microshop/pkg/broker"
	"github.com/mbelenkov/microshop/pkg/hash"
	"github.com/mbelenkov/microshop/pkg/logging"
	"github.com/mbelenkov/microshop/pkg/tokens"
)

var ErrUsernameTaken = repo.ErrUsernameTaken

// ErrInvalidCredentials covers both unknown username and wrong password, so
// responses cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid username or password")

type AuthService struct {
	Repo      *repo.GormRepo
	Issuer    *tokens.Issuer
	Producer  *broker.Producer
	UserTopic string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user, err := s.Repo.CreateUser(ctx, username, pwHash)
	if err != nil {
		if errors.Is(err, repo.ErrUsernameTaken) {
			l.Warn("register rejected", "reason", "username taken", "username", username)
			return nil, ErrUsernameTaken
		}
		l.Error("register failed", "error", err)
		return nil, err
	}

	s.publish(ctx, "user.registered", user.ID.String(), map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login rejected", "reason", "unknown username")
			return nil, ErrInvalidCredentials
		}
		l.Error("login failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login rejected", "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	token, exp, err := s.Issuer.Issue(user.ID.String(), user.Username, user.Role)
	if err != nil {
		l.Error("login failed", "reason", "cannot sign token", "error", err)
		return nil, err
	}

	s.publish(ctx, "user.logged_in", user.ID.String(), map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
	})

	return &LoginResult{Token: token, ExpiresAt: exp}, nil
}

func (s *AuthService) DeleteTestUsers(ctx context.Context) error {
	return s.Repo.DeleteTestUsers(ctx)
}

func (s *AuthService) publish(ctx context.Context, eventType, key string, payload any) {
	if s.Producer == nil {
		return
	}
	event := broker.Event{Type: eventType, Payload: payload}
	if err := s.Producer.Publish(ctx, s.UserTopic, key, event); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", eventType, "error", err)
	}
}
