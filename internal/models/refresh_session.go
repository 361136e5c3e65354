package models

import "time"

// RefreshSession mirrors one issued refresh token. The raw token is never stored;
// TokenHash is the SHA-256 hex digest of it. ReplacedByToken points at the
// session that superseded this one during rotation.
type RefreshSession struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	UserID          uint       `gorm:"index;not null" json:"user_id"`
	TokenHash       string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt       time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt       *time.Time `gorm:"index" json:"revoked_at,omitempty"`
	ReplacedByToken *string    `gorm:"size:36" json:"replaced_by_token,omitempty"`
	CreatedByIP     string     `gorm:"size:64" json:"created_by_ip,omitempty"`
	UserAgent       string     `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}

func (RefreshSession) TableName() string { return "refresh_sessions" }

// IsActive reports whether the session is neither revoked nor expired at now.
func (s *RefreshSession) IsActive(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
