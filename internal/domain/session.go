package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	AdminUserID = "admin"
	RoleAdmin   = "admin"

	// MaxSessionHours bounds any single session lifetime or extension.
	MaxSessionHours = 24 * 365
)

type Session struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	TokenHash      string    `json:"-" gorm:"uniqueIndex;not null"`
	UserID         string    `json:"userId" gorm:"not null;index"`
	ExpiresAt      time.Time `json:"expiresAt" gorm:"not null;index"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAccessedAt time.Time `json:"lastAccessedAt" gorm:"not null"`
	IPAddress      *string   `json:"ipAddress,omitempty"`
	UserAgent      *string   `json:"userAgent,omitempty" gorm:"type:varchar(500)"`
}

// ExpiredAt reports whether the session is dead at the given instant. A
// session whose expiry equals now is already expired.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// Principal is the identity bound to a live session.
type Principal struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}
