package repository

import (
	"context"
	"time"

	"github.com/dom/blog/internal/domain"
	"github.com/google/uuid"
)

type ArticleRepository interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Article, error)
	// SlugTaken reports whether an article other than excludeID holds slug.
	SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter domain.ArticleFilter) ([]*domain.Article, int64, error)
	Update(ctx context.Context, article *domain.Article) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error)
	Touch(ctx context.Context, id uuid.UUID, accessedAt time.Time) error
	// UpdateExpiry moves expires_at only while the session is still live at
	// now. It returns false when no live row matched.
	UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) (bool, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type Repositories struct {
	Article ArticleRepository
	Session SessionRepository
}
