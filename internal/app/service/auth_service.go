package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"examtracker/internal/common"
	"examtracker/internal/common/security"
	"examtracker/internal/domain/model"
	"examtracker/internal/domain/repository"
	"examtracker/internal/platform/config"
)

type AuthService struct {
	userRepo repository.UserRepository
	log      *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, log *slog.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, log: log}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	fields := map[string]string{}
	if req.Username == "" {
		fields["username"] = "field is required"
	}
	if req.Password == "" {
		fields["password"] = "field is required"
	}
	if err := common.NewValidationError(fields); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Username:       req.Username,
		HashedPassword: hashedPassword,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo returns common.ErrConflict on a duplicate username
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login validates credentials and returns a signed bearer token. "No such
// user" and "wrong password" are indistinguishable to the caller; the actual
// cause stays in the debug log.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.log.DebugContext(ctx, "login failed", "username", username, "cause", "user not found")
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(password, user.HashedPassword) {
		s.log.DebugContext(ctx, "login failed", "username", username, "cause", "wrong password")
		return nil, common.ErrUnauthorized
	}

	token, err := security.GenerateToken(user.Username, config.AppConfig.JWTExp)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{AccessToken: token, TokenType: "bearer"}, nil
}
