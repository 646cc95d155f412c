// Package auth はユーザー登録・ログインとクレデンシャル発行を提供する。
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/masaki/inkwell/internal/model"
	"github.com/masaki/inkwell/internal/repository"
	"github.com/masaki/inkwell/internal/token"
)

// bcryptCost はパスワードハッシュのコストパラメータ。
const bcryptCost = 10

// Service は認証のユースケースを提供する。
type Service struct {
	users  repository.UserRepository
	issuer *token.Issuer
}

// NewService はServiceを生成する。
func NewService(users repository.UserRepository, issuer *token.Issuer) *Service {
	return &Service{
		users:  users,
		issuer: issuer,
	}
}

// Register は新規ユーザーを作成し、クレデンシャルを発行する。
// ユーザー名が既に使用されている場合はAPIError（DUPLICATE_USERNAME）を返す。
func (s *Service) Register(ctx context.Context, username, password string) (*model.User, string, error) {
	existing, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, "", model.NewDuplicateUsernameError(username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:             uuid.NewString(),
		Username:       username,
		HashedPassword: string(hashed),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	cred, err := s.issuer.Issue(model.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue credential: %w", err)
	}

	return user, cred, nil
}

// Login はユーザー名とパスワードを検証し、クレデンシャルを発行する。
// ユーザー不存在とパスワード不一致は区別せず、同一のAPIError（LOGIN_FAILED）を返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, "", model.NewLoginFailedError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, "", model.NewLoginFailedError()
	}

	cred, err := s.issuer.Issue(model.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue credential: %w", err)
	}

	return user, cred, nil
}
