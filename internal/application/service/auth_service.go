package service

import (
	"context"

	"github.com/badrakh/monshop-api/internal/domain/entity"
	"github.com/badrakh/monshop-api/internal/domain/repository"
	"github.com/badrakh/monshop-api/pkg/apperror"
	"github.com/badrakh/monshop-api/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthResult carries the issued tokens and the authenticated user
type AuthResult struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *entity.User `json:"user"`
}

// AuthService handles authentication
type AuthService struct {
	userRepo repository.UserRepository
	jwt      *utils.JWTManager
}

func NewAuthService(userRepo repository.UserRepository, jwt *utils.JWTManager) *AuthService {
	return &AuthService{userRepo: userRepo, jwt: jwt}
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issueTokens(user)
}

// RefreshToken exchanges a valid refresh token for a new token pair.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	userID, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	if user == nil {
		return nil, apperror.ErrInvalidToken
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *entity.User) (*AuthResult, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email, []string{user.Role})
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, apperror.ErrInternalServer
	}
	return &AuthResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
