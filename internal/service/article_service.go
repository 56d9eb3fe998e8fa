package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/logging"
	"github.com/dom/blog/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	maxSlugAttempts = 3
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrSlugConflict     = errors.New("article with similar title already exists")
	ErrNoFieldsToUpdate = errors.New("no valid fields provided for update")
)

type ArticleService struct {
	repo  repository.ArticleRepository
	slugs *SlugResolver
	now   func() time.Time
}

func NewArticleService(repo repository.ArticleRepository, slugs *SlugResolver) *ArticleService {
	return &ArticleService{
		repo:  repo,
		slugs: slugs,
		now:   time.Now,
	}
}

func (s *ArticleService) SetClock(now func() time.Time) {
	s.now = now
	s.slugs.SetClock(now)
}

func (s *ArticleService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

type CreateArticleInput struct {
	Title         string
	Content       string
	IsPublished   bool
	PublishedDate *time.Time
}

// UpdateArticleInput carries a partial update; nil fields stay untouched.
type UpdateArticleInput struct {
	Title              *string
	Content            *string
	IsPublished        *bool
	PublishedDate      *time.Time
	ResetPublishedDate bool
}

func (in UpdateArticleInput) empty() bool {
	return in.Title == nil && in.Content == nil && in.IsPublished == nil &&
		in.PublishedDate == nil && !in.ResetPublishedDate
}

type ListArticlesInput struct {
	Page int
	// Limit is clamped to 1..MaxPageSize; nil takes DefaultPageSize.
	Limit         *int
	Published     *bool
	Search        string
	IncludeDrafts bool
}

type ArticlePage struct {
	Articles    []*domain.Article
	Total       int64
	Page        int
	Limit       int
	TotalPages  int
	HasMore     bool
	HasPrevious bool
}

func (s *ArticleService) Create(ctx context.Context, input CreateArticleInput) (*domain.Article, error) {
	now := s.clock()

	title, err := cleanTitle(input.Title)
	if err != nil {
		return nil, err
	}
	content, err := cleanContent(input.Content)
	if err != nil {
		return nil, err
	}
	publishedDate := now
	if input.PublishedDate != nil {
		if publishedDate, err = checkPublishedDate(*input.PublishedDate, now); err != nil {
			return nil, err
		}
	}

	article := &domain.Article{
		ID:            uuid.New(),
		Title:         title,
		Content:       content,
		PublishedDate: publishedDate,
		IsPublished:   input.IsPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.writeWithSlug(ctx, article, func() error {
		return s.repo.Create(ctx, article)
	})
	if err != nil {
		return nil, err
	}

	return article, nil
}

// Update applies a partial update. The slug is only recomputed when the
// title actually changes, so content or publish edits keep existing links.
func (s *ArticleService) Update(ctx context.Context, idOrSlug string, input UpdateArticleInput) (*domain.Article, error) {
	if input.empty() {
		return nil, ErrNoFieldsToUpdate
	}

	now := s.clock()

	article, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	titleChanged := false
	if input.Title != nil {
		title, err := cleanTitle(*input.Title)
		if err != nil {
			return nil, err
		}
		if title != article.Title {
			article.Title = title
			titleChanged = true
		}
	}
	if input.Content != nil {
		content, err := cleanContent(*input.Content)
		if err != nil {
			return nil, err
		}
		article.Content = content
	}
	if input.IsPublished != nil {
		article.IsPublished = *input.IsPublished
	}
	if input.ResetPublishedDate {
		article.PublishedDate = now
	} else if input.PublishedDate != nil {
		if article.PublishedDate, err = checkPublishedDate(*input.PublishedDate, now); err != nil {
			return nil, err
		}
	}

	article.UpdatedAt = nextUpdatedAt(article.UpdatedAt, now)

	write := func() error {
		return s.repo.Update(ctx, article)
	}
	if titleChanged || article.Slug == "" {
		err = s.writeWithSlug(ctx, article, write)
	} else {
		err = translateWriteError(write())
	}
	if err != nil {
		return nil, err
	}

	return article, nil
}

// Get finds an article by id or slug. Drafts are hidden unless
// includeDrafts is set.
func (s *ArticleService) Get(ctx context.Context, idOrSlug string, includeDrafts bool) (*domain.Article, error) {
	article, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if !includeDrafts && !article.IsPublished {
		return nil, ErrArticleNotFound
	}
	return article, nil
}

func (s *ArticleService) List(ctx context.Context, input ListArticlesInput) (*ArticlePage, error) {
	limit := DefaultPageSize
	if input.Limit != nil {
		limit = min(max(*input.Limit, 1), MaxPageSize)
	}
	// Capped so the offset below cannot overflow
	page := min(max(input.Page, 1), math.MaxInt/limit)

	filter := domain.ArticleFilter{
		Published: visibleArticles(input.Published, input.IncludeDrafts),
		Search:    strings.TrimSpace(input.Search),
		Limit:     limit,
		Offset:    (page - 1) * limit,
	}

	articles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ArticlePage{
		Articles:    articles,
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasMore:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

// Delete removes an article and returns what was deleted.
func (s *ArticleService) Delete(ctx context.Context, idOrSlug string) (*domain.Article, error) {
	article, err := s.lookup(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Delete(ctx, article.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

// writeWithSlug resolves a slug and runs write. The unique index on slug is
// authoritative: a duplicate-key failure means another writer took the slug
// after the lookup, so the slug is resolved again a bounded number of times.
func (s *ArticleService) writeWithSlug(ctx context.Context, article *domain.Article, write func() error) error {
	for attempt := 1; ; attempt++ {
		slug, err := s.slugs.Resolve(ctx, article.Title, &article.ID)
		if err != nil {
			return err
		}
		article.Slug = slug

		err = write()
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return translateWriteError(err)
		}
		if attempt >= maxSlugAttempts {
			return ErrSlugConflict
		}

		logging.Warn("slug taken concurrently, retrying",
			logging.String("slug", slug),
			logging.Int("attempt", attempt),
		)
	}
}

// lookup treats a UUID as an id first and falls back to the slug, since a
// title can normalize to a UUID-shaped slug.
func (s *ArticleService) lookup(ctx context.Context, idOrSlug string) (*domain.Article, error) {
	key := strings.ToLower(strings.TrimSpace(idOrSlug))
	if key == "" {
		return nil, ErrArticleNotFound
	}

	if id, err := uuid.Parse(key); err == nil {
		article, err := s.repo.GetByID(ctx, id)
		if err == nil {
			return article, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	article, err := s.repo.GetBySlug(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrArticleNotFound
		}
		return nil, err
	}
	return article, nil
}

func translateWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrSlugConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrArticleNotFound
	default:
		return err
	}
}

// visibleArticles maps the requested publish filter onto what the caller may
// see: readers only ever get published articles.
func visibleArticles(requested *bool, includeDrafts bool) *bool {
	published := true
	switch {
	case requested != nil && *requested:
		return &published
	case requested != nil && includeDrafts:
		unpublished := false
		return &unpublished
	case !includeDrafts:
		return &published
	default:
		return nil
	}
}

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", domain.ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLength {
		return "", domain.ErrTitleTooLong
	}
	return title, nil
}

func cleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.ErrContentRequired
	}
	return content, nil
}

func checkPublishedDate(date, now time.Time) (time.Time, error) {
	date = date.UTC().Truncate(time.Microsecond)
	if date.After(now) {
		return time.Time{}, domain.ErrPublishedDateInFuture
	}
	return date, nil
}

// nextUpdatedAt keeps updated_at strictly increasing at the store's
// microsecond precision, even when the clock has not moved.
func nextUpdatedAt(previous, now time.Time) time.Time {
	previous = previous.UTC().Truncate(time.Microsecond)
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Microsecond)
}
