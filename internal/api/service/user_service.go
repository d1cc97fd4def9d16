package service

//go:generate mockgen -source=user_service.go -destination=mocks/mock_user_service.go -package=mocks

import (
	"context"
	"errors"
	"fmt"

	"ctchen222/tictactoe-minimax/internal/api/models"
	"ctchen222/tictactoe-minimax/internal/api/repository"
	"ctchen222/tictactoe-minimax/internal/auth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) error
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	GuestLogin(ctx context.Context) (*models.LoginResponse, error)
}

type userService struct {
	userRepo repository.UserRepository
	issuer   *auth.Issuer
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository, issuer *auth.Issuer) UserService {
	return &userService{userRepo: userRepo, issuer: issuer}
}

// PlayerIDForUser returns the player ID of a registered user.
func PlayerIDForUser(id int64) string {
	return fmt.Sprintf("user-%d", id)
}

// Register creates an account. A concurrent registration of the same name
// surfaces as ErrUsernameTaken through the unique index.
func (s *userService) Register(ctx context.Context, req *models.RegisterRequest) error {
	existing, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	err = s.userRepo.CreateUser(ctx, &models.User{Username: req.Username}, req.Password)
	if errors.Is(err, repository.ErrUsernameExists) {
		return ErrUsernameTaken
	}
	return err
}

// Login checks the password and issues a token for the user's player ID.
func (s *userService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	playerID := PlayerIDForUser(user.ID)
	token, err := s.issuer.Issue(playerID, user.Username, false)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, PlayerID: playerID}, nil
}

// GuestLogin issues a token for a fresh guest player ID. Nothing is stored.
func (s *userService) GuestLogin(ctx context.Context) (*models.LoginResponse, error) {
	playerID := "guest-" + uuid.New().String()
	token, err := s.issuer.Issue(playerID, "", true)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{Token: token, PlayerID: playerID}, nil
}
