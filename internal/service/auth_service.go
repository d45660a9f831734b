package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/config"
	"github.com/aleks2005vk/cheap-gasoline/internal/dto"
	"github.com/aleks2005vk/cheap-gasoline/internal/model"
	"github.com/aleks2005vk/cheap-gasoline/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const bcryptCost = 12

var validRoles = map[string]bool{
	model.RoleUser:       true,
	model.RoleModerator:  true,
	model.RoleAdmin:      true,
	model.RoleSuperadmin: true,
	model.RoleBanned:     true,
}

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error)
	Me(ctx context.Context, userID uint) (*dto.UserResponse, error)
	// EnsureUser creates the account or, if the email exists, resets its
	// password and role. Used by the seed tool.
	EnsureUser(ctx context.Context, email, password, name, role string) (*dto.UserResponse, bool, error)
}

type authService struct {
	repo  repository.UserRepository
	cfg   *config.Config
	audit AuditSink
	now   func() time.Time
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config, audit AuditSink) AuthService {
	if audit == nil {
		audit = LogAuditSink{}
	}
	return &authService{repo: repo, cfg: cfg, audit: audit, now: time.Now}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "User"
	}
	user := &model.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         model.RoleUser,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, AuditEntry{
		ActorID:  &user.ID,
		Action:   ActionUserRegistered,
		TargetID: targetID(user.ID),
		IP:       ClientIP(ctx),
		At:       s.now(),
	})
	return s.authResponse(user)
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, unauthorized("invalid credentials")
	}
	if user.Role == model.RoleBanned {
		return nil, forbidden("account is banned")
	}

	s.audit.Record(ctx, AuditEntry{ActorID: &user.ID, Action: ActionUserLogin, IP: ClientIP(ctx), At: s.now()})
	return s.authResponse(user)
}

func (s *authService) Me(ctx context.Context, userID uint) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user %d not found", userID)
		}
		return nil, err
	}
	resp := userToResponse(user)
	return &resp, nil
}

func (s *authService) EnsureUser(ctx context.Context, email, password, name, role string) (*dto.UserResponse, bool, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < 6 {
		return nil, false, invalid("email and a password of at least 6 characters are required")
	}
	if !validRoles[role] {
		return nil, false, invalid("unknown role %q", role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, false, err
	}

	user, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.PasswordHash = string(hash)
		user.Role = role
		if name != "" {
			user.Name = name
		}
		if err := s.repo.Update(ctx, user); err != nil {
			return nil, false, err
		}
		resp := userToResponse(user)
		return &resp, false, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if name == "" {
			name = "Admin"
		}
		user = &model.User{Email: email, Name: name, PasswordHash: string(hash), Role: role}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, false, err
		}
		resp := userToResponse(user)
		return &resp, true, nil
	default:
		return nil, false, err
	}
}

func (s *authService) authResponse(user *model.User) (*dto.AuthResponse, error) {
	ttl := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	token, err := s.generateToken(user, ttl)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(ttl.Seconds()),
		User:      userToResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, duration time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"role":    user.Role,
		"exp":     now.Add(duration).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func userToResponse(u *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:      u.ID,
		Email:   u.Email,
		Name:    u.Name,
		Role:    u.Role,
		IsAdmin: u.IsAdmin(),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
