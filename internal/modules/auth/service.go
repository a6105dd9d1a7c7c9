package auth

import (
	"context"
	"errors"
	"strings"

	"schoolpay/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	users  userRepo
	tokens tokenIssuer
}

func NewService(users userRepo, tokens tokenIssuer) *Service {
	return &Service{users: users, tokens: tokens}
}

// Register creates a new API user. School users must name the school they
// belong to; that id becomes the tenant boundary for everything they do.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleSchool
	}
	if role == domain.RoleSchool && strings.TrimSpace(req.SchoolID) == "" {
		return nil, ErrSchoolIDRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         role,
		SchoolID:     strings.TrimSpace(req.SchoolID),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	res := toUserResponse(user)
	return &res, nil
}

// Login verifies credentials and issues a JWT carrying the user's role and
// school scope.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, string(user.Role), user.SchoolID)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	res := toUserResponse(user)
	return &res, nil
}
