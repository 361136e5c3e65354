package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/equipdesk/backend/internal/models"
	"github.com/equipdesk/backend/internal/utils"
	"github.com/equipdesk/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errRotationLost is returned inside the rotation transaction when the
// conditional revoke matched no row, i.e. another request consumed the token first.
var errRotationLost = errors.New("session already rotated")

// ClientInfo describes the client a session is issued to.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// IssuedSession is a freshly persisted refresh session and its token.
type IssuedSession struct {
	SessionID    string
	RefreshToken string
	ExpiresAt    time.Time
}

// RotateResult is the outcome of a successful refresh.
type RotateResult struct {
	User            *models.User
	AccessToken     string
	AccessExpiresAt time.Time
	Session         *IssuedSession
}

// SessionSummary is the caller-facing view of an active session.
type SessionSummary struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	CreatedByIP string    `json:"created_by_ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

// SessionStore persists, rotates and revokes refresh sessions.
type SessionStore struct {
	db     *gorm.DB
	issuer *utils.TokenIssuer
	syslog *SystemLogService
	now    func() time.Time

	// beforeRevoke runs inside the rotation transaction just before the
	// current session is conditionally revoked.
	beforeRevoke func(tx *gorm.DB, sessionID string)
}

func NewSessionStore(db *gorm.DB, issuer *utils.TokenIssuer, syslog *SystemLogService) *SessionStore {
	return &SessionStore{
		db:     db,
		issuer: issuer,
		syslog: syslog,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateSession mints a refresh token for userID and stores its session row.
func (s *SessionStore) CreateSession(ctx context.Context, userID uint, client ClientInfo) (*IssuedSession, error) {
	return s.createSession(s.db.WithContext(ctx), userID, client)
}

func (s *SessionStore) createSession(tx *gorm.DB, userID uint, client ClientInfo) (*IssuedSession, error) {
	sessionID := uuid.NewString()
	token, expiresAt, err := s.issuer.IssueRefreshToken(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	row := models.RefreshSession{
		ID:          sessionID,
		UserID:      userID,
		TokenHash:   hashRefreshToken(token),
		ExpiresAt:   expiresAt,
		CreatedByIP: client.IP,
		UserAgent:   truncate(client.UserAgent, 255),
		CreatedAt:   s.now(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}

	return &IssuedSession{SessionID: sessionID, RefreshToken: token, ExpiresAt: expiresAt}, nil
}

// Rotate exchanges a refresh token for a new access token and a new refresh token.
// A token that is unknown or already revoked is treated as stolen: every session of
// its user is deleted and ErrReuseDetected is returned.
func (s *SessionStore) Rotate(ctx context.Context, presented string, client ClientInfo) (*RotateResult, error) {
	claims, err := s.issuer.ParseRefreshToken(presented)
	if err != nil {
		return nil, ErrInvalidToken
	}

	db := s.db.WithContext(ctx)

	var current models.RefreshSession
	err = db.Where("token_hash = ?", hashRefreshToken(presented)).First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, s.reuseDetected(ctx, claims.UserID, client, "unknown refresh token")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup refresh session: %w", err)
	}
	if current.RevokedAt != nil {
		return nil, s.reuseDetected(ctx, current.UserID, client, "revoked refresh token presented")
	}
	now := s.now()
	if !current.IsActive(now) {
		return nil, ErrInvalidToken
	}

	var (
		user models.User
		next *IssuedSession
	)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, current.UserID).Error; err != nil {
			return err
		}

		if s.beforeRevoke != nil {
			s.beforeRevoke(tx, current.ID)
		}

		successorID := uuid.NewString()
		res := tx.Model(&models.RefreshSession{}).
			Where("id = ? AND revoked_at IS NULL", current.ID).
			Updates(map[string]interface{}{
				"revoked_at":        now,
				"replaced_by_token": successorID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errRotationLost
		}

		token, expiresAt, err := s.issuer.IssueRefreshToken(user.ID, successorID)
		if err != nil {
			return err
		}
		row := models.RefreshSession{
			ID:          successorID,
			UserID:      user.ID,
			TokenHash:   hashRefreshToken(token),
			ExpiresAt:   expiresAt,
			CreatedByIP: client.IP,
			UserAgent:   truncate(client.UserAgent, 255),
			CreatedAt:   now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		next = &IssuedSession{SessionID: successorID, RefreshToken: token, ExpiresAt: expiresAt}
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, errRotationLost):
		return nil, s.reuseDetected(ctx, current.UserID, client, "concurrent rotation of the same refresh token")
	default:
		logger.Error().Err(err).Uint("user_id", current.UserID).Msg("refresh rotation aborted")
		return nil, ErrInvalidToken
	}

	access, accessExp, err := s.issuer.IssueAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &RotateResult{
		User:            &user,
		AccessToken:     access,
		AccessExpiresAt: accessExp,
		Session:         next,
	}, nil
}

// reuseDetected deletes every session of userID and returns ErrReuseDetected.
func (s *SessionStore) reuseDetected(ctx context.Context, userID uint, client ClientInfo, reason string) error {
	purged, err := s.PurgeUser(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Uint("user_id", userID).Msg("failed to purge sessions after refresh token reuse")
	}
	logger.Warn().
		Uint("user_id", userID).
		Str("ip", client.IP).
		Int64("purged", purged).
		Str("reason", reason).
		Msg("refresh token reuse detected")
	if s.syslog != nil {
		s.syslog.Warning(ctx, LogEntry{
			Module:    "auth",
			Action:    "refresh_reuse",
			Message:   reason,
			UserID:    &userID,
			IP:        client.IP,
			UserAgent: client.UserAgent,
			Extra:     map[string]interface{}{"purged_sessions": purged},
		})
	}
	return ErrReuseDetected
}

// RevokeAllForUser revokes every active session of userID and returns how many
// were revoked.
func (s *SessionStore) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	return s.revokeAll(s.db.WithContext(ctx), userID)
}

func (s *SessionStore) revokeAll(tx *gorm.DB, userID uint) (int64, error) {
	now := s.now()
	res := tx.Model(&models.RefreshSession{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Update("revoked_at", now)
	return res.RowsAffected, res.Error
}

// PurgeUser deletes all session rows of userID.
func (s *SessionStore) PurgeUser(ctx context.Context, userID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshSession{})
	return res.RowsAffected, res.Error
}

// ListActiveSessions returns the user's unrevoked, unexpired sessions, newest first.
func (s *SessionStore) ListActiveSessions(ctx context.Context, userID uint) ([]SessionSummary, error) {
	var rows []models.RefreshSession
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, s.now()).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]SessionSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, SessionSummary{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt,
			ExpiresAt:   r.ExpiresAt,
			CreatedByIP: r.CreatedByIP,
			UserAgent:   r.UserAgent,
		})
	}
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
