package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/equipdesk/backend/pkg/logger"
	"gorm.io/gorm"
)

type AuthService struct {
	db       *gorm.DB
	issuer   *utils.TokenIssuer
	sessions *SessionStore
	syslog   *SystemLogService

	// dummyHash is compared against when the email is unknown so that both
	// failure paths cost one bcrypt verification.
	dummyHash string
}

func NewAuthService(db *gorm.DB, issuer *utils.TokenIssuer, sessions *SessionStore, syslog *SystemLogService) *AuthService {
	dummy, _ := utils.HashPassword("equipdesk-dummy-password")
	return &AuthService{
		db:        db,
		issuer:    issuer,
		sessions:  sessions,
		syslog:    syslog,
		dummyHash: dummy,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult carries a fresh token pair.
type LoginResult struct {
	User             *models.User
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

type MeResponse struct {
	ID             uint             `json:"id"`
	Email          string           `json:"email"`
	Role           string           `json:"role"`
	CreatedAt      time.Time        `json:"created_at"`
	ActiveSessions int              `json:"active_sessions"`
	Sessions       []SessionSummary `json:"sessions"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with the "user" role.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") || len(email) > 255 {
		return nil, fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if len(req.Password) > utils.MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, utils.MaxPasswordBytes)
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: email is already registered", ErrAlreadyExists)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash, Role: models.RoleUser}
	if err := db.Create(&user).Error; err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: email is already registered", ErrAlreadyExists)
		}
		return nil, err
	}

	if s.syslog != nil {
		s.syslog.Info(ctx, LogEntry{Module: "auth", Action: "register", Message: "user registered", UserID: &user.ID})
	}
	return &user, nil
}

// Login verifies credentials, revokes the user's previous sessions and opens a new one.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, client ClientInfo) (*LoginResult, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.CheckPassword(req.Password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		if s.syslog != nil {
			s.syslog.Warning(ctx, LogEntry{
				Module:    "auth",
				Action:    "login_failed",
				Message:   "wrong password",
				UserID:    &user.ID,
				IP:        client.IP,
				UserAgent: client.UserAgent,
			})
		}
		return nil, ErrInvalidCredentials
	}

	var session *IssuedSession
	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.sessions.revokeAll(tx, user.ID); err != nil {
			return err
		}
		var err error
		session, err = s.sessions.createSession(tx, user.ID, client)
		return err
	})
	if err != nil {
		return nil, err
	}

	access, accessExp, err := s.issuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:             &user,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token. See SessionStore.Rotate for the failure modes.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*LoginResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: refresh token is required", ErrInvalidInput)
	}

	res, err := s.sessions.Rotate(ctx, refreshToken, client)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:             res.User,
		AccessToken:      res.AccessToken,
		AccessExpiresAt:  res.AccessExpiresAt,
		RefreshToken:     res.Session.RefreshToken,
		RefreshExpiresAt: res.Session.ExpiresAt,
	}, nil
}

// Logout revokes all active sessions of the user. It succeeds when there are none.
func (s *AuthService) Logout(ctx context.Context, userID uint) error {
	n, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	logger.Debug().Uint("user_id", userID).Int64("revoked", n).Msg("user logged out")
	return nil
}

// Me returns the user's identity and active sessions.
func (s *AuthService) Me(ctx context.Context, userID uint) (*MeResponse, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.sessions.ListActiveSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &MeResponse{
		ID:             user.ID,
		Email:          user.Email,
		Role:           user.Role,
		CreatedAt:      user.CreatedAt,
		ActiveSessions: len(sessions),
		Sessions:       sessions,
	}, nil
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists creates the default admin user when no admin exists.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context, email, password string) error {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return fmt.Errorf("%w: admin email and password are required", ErrInvalidInput)
	}

	// An existing account with the admin email is promoted rather than duplicated.
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return db.Model(&existing).Update("role", models.RoleAdmin).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{Email: email, PasswordHash: hash, Role: models.RoleAdmin}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	logger.Info().Str("email", email).Msg("default admin user created")
	return nil
}
