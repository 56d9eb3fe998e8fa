package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dom/blog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeArticleRepo enforces the unique slug index like the real table does.
type fakeArticleRepo struct {
	mu       sync.Mutex
	articles map[uuid.UUID]domain.Article
	lookups  []string

	// beforeCreate runs ahead of every insert; tests use it to sneak in a
	// competing writer between the slug lookup and the write.
	beforeCreate func(r *fakeArticleRepo, a *domain.Article)
	listErr      error
	lastFilter   domain.ArticleFilter
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[uuid.UUID]domain.Article)}
}

func (r *fakeArticleRepo) insertLocked(a domain.Article) error {
	for _, existing := range r.articles {
		if existing.Slug == a.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	r.articles[a.ID] = a
	return nil
}

// seed stores an article directly, bypassing the service.
func (r *fakeArticleRepo) seed(slug string, published bool) domain.Article {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := domain.Article{
		ID:            uuid.New(),
		Title:         slug,
		Slug:          slug,
		Content:       "seeded",
		IsPublished:   published,
		PublishedDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := r.insertLocked(a); err != nil {
		panic(err)
	}
	return a
}

func (r *fakeArticleRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.articles)
}

func (r *fakeArticleRepo) Create(ctx context.Context, article *domain.Article) error {
	if r.beforeCreate != nil {
		r.beforeCreate(r, article)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(*article)
}

func (r *fakeArticleRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r *fakeArticleRepo) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.articles {
		if a.Slug == slug {
			return &a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeArticleRepo) SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, slug)
	for id, a := range r.articles {
		if excludeID != nil && id == *excludeID {
			continue
		}
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeArticleRepo) List(ctx context.Context, filter domain.ArticleFilter) ([]*domain.Article, int64, error) {
	if r.listErr != nil {
		return nil, 0, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter

	var matched []*domain.Article
	for _, a := range r.articles {
		if filter.Published != nil && a.IsPublished != *filter.Published {
			continue
		}
		if filter.Search != "" {
			q := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(a.Title), q) && !strings.Contains(strings.ToLower(a.Content), q) {
				continue
			}
		}
		a := a
		matched = append(matched, &a)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].PublishedDate.Equal(matched[j].PublishedDate) {
			return matched[i].PublishedDate.After(matched[j].PublishedDate)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(filter.Offset, len(matched))
	end := min(start+filter.Limit, len(matched))
	return matched[start:end], total, nil
}

func (r *fakeArticleRepo) Update(ctx context.Context, article *domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[article.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for id, a := range r.articles {
		if id != article.ID && a.Slug == article.Slug {
			return gorm.ErrDuplicatedKey
		}
	}
	r.articles[article.ID] = *article
	return nil
}

func (r *fakeArticleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.articles, id)
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]domain.Session

	deleteByUserErr error
	deleteExpiredFn func(now time.Time) (int64, error)
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]domain.Session)}
}

func (r *fakeSessionRepo) all() []domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == session.TokenHash {
			return gorm.ErrDuplicatedKey
		}
	}
	r.sessions[session.ID] = *session
	return nil
}

func (r *fakeSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TokenHash == tokenHash {
			return &s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id uuid.UUID, accessedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastAccessedAt = accessedAt
		r.sessions[id] = s
	}
	return nil
}

func (r *fakeSessionRepo) UpdateExpiry(ctx context.Context, id uuid.UUID, expiresAt, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.ExpiredAt(now) {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	s.LastAccessedAt = now
	r.sessions[id] = s
	return true, nil
}

func (r *fakeSessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.TokenHash == tokenHash {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if r.deleteByUserErr != nil {
		return r.deleteByUserErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *fakeSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if r.deleteExpiredFn != nil {
		return r.deleteExpiredFn(now)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.ExpiredAt(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
