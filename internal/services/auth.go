package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/internal/models"
	"github.com/codecraft-ai/codecraft/backend/internal/utils"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("user already exists with this email")
	ErrInvalidEmail       = errors.New("email must be a valid email address")
	ErrPasswordTooShort   = errors.New("password must be at least 3 characters long")
	ErrTokenRevoked       = errors.New("token has been revoked")
)

type AuthService struct {
	db          *gorm.DB
	jwtConfig   *config.JWTConfig
	revocations RevocationList
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, revocations RevocationList) *AuthService {
	return &AuthService{
		db:          db,
		jwtConfig:   jwtCfg,
		revocations: revocations,
	}
}

type CredentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expire_at"`
	User     *models.User `json:"user"`
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\n") &&
		strings.Contains(email[at+1:], ".")
}

// Register creates an account and signs the user in.
func (s *AuthService) Register(ctx context.Context, req *CredentialsRequest) (*LoginResult, error) {
	email := models.NormalizeEmail(req.Email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(req.Password) < 3 {
		return nil, ErrPasswordTooShort
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, Password: hash}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}

	LogInfo(AuditEntry{Module: "auth", Action: "register", Message: email + " registered", UserID: uintPtr(user.ID)})
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req *CredentialsRequest) (*LoginResult, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.WithContext(ctx).Model(&user).Update("last_login", now)

	return s.issue(&user)
}

func (s *AuthService) issue(user *models.User) (*LoginResult, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
		User:     user,
	}, nil
}

// Logout revokes token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := utils.ParseToken(token)
	if err != nil {
		// Already unusable.
		return nil
	}
	if err := s.revocations.Revoke(ctx, token, utils.TokenTTL(claims)); err != nil {
		return err
	}
	LogInfo(AuditEntry{Module: "auth", Action: "logout", Message: claims.Email + " logged out", UserID: uintPtr(claims.UserID)})
	return nil
}

// Verify parses token and rejects it if it was revoked. When the revocation
// list cannot be reached the token is accepted and the failure is logged.
func (s *AuthService) Verify(ctx context.Context, token string) (*utils.Claims, error) {
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revocations.IsRevoked(ctx, token)
	if err != nil {
		logger.Warn().Err(err).Uint("user_id", claims.UserID).Msg("[Auth] Revocation check unavailable, accepting token")
		return claims, nil
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// ListOtherUsers returns every account except excludeID, for the invite picker.
func (s *AuthService) ListOtherUsers(ctx context.Context, excludeID uint) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id <> ?", excludeID).Order("email ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
