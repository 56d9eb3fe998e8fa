package service_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/logging"
	"github.com/dom/blog/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestArticleService(t *testing.T) (*service.ArticleService, *fakeArticleRepo, *fakeClock) {
	t.Helper()
	repo := newFakeArticleRepo()
	clock := newFakeClock()
	svc := service.NewArticleService(repo, service.NewSlugResolver(repo))
	svc.SetClock(clock.Now)
	return svc, repo, clock
}

func ptr[T any](v T) *T {
	return &v
}

func TestArticleService_Create(t *testing.T) {
	svc, _, clock := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{
		Title:   "  Hello, World!  ",
		Content: "\n# Heading\n\nBody\n",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, article.ID)
	assert.Equal(t, "Hello, World!", article.Title)
	assert.Equal(t, "hello-world", article.Slug)
	assert.Equal(t, "# Heading\n\nBody", article.Content)
	assert.False(t, article.IsPublished)
	assert.True(t, article.PublishedDate.Equal(clock.Now()))
	assert.True(t, article.CreatedAt.Equal(clock.Now()))
	assert.True(t, article.UpdatedAt.Equal(article.CreatedAt))
}

func TestArticleService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   service.CreateArticleInput
		offset  time.Duration
		wantErr error
	}{
		{
			name:    "empty title",
			input:   service.CreateArticleInput{Title: "", Content: "body"},
			wantErr: domain.ErrTitleRequired,
		},
		{
			name:    "whitespace title",
			input:   service.CreateArticleInput{Title: "   \t", Content: "body"},
			wantErr: domain.ErrTitleRequired,
		},
		{
			name:    "title too long",
			input:   service.CreateArticleInput{Title: strings.Repeat("a", 201), Content: "body"},
			wantErr: domain.ErrTitleTooLong,
		},
		{
			name:    "empty content",
			input:   service.CreateArticleInput{Title: "Title", Content: "  "},
			wantErr: domain.ErrContentRequired,
		},
		{
			name:    "future published date",
			input:   service.CreateArticleInput{Title: "Title", Content: "body"},
			offset:  time.Second,
			wantErr: domain.ErrPublishedDateInFuture,
		},
		{
			name:   "title of exactly 200 runes",
			input:  service.CreateArticleInput{Title: strings.Repeat("é", 200), Content: "body"},
			offset: 0,
		},
		{
			name:   "past published date",
			input:  service.CreateArticleInput{Title: "Title", Content: "body"},
			offset: -72 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, clock := newTestArticleService(t)
			if tt.offset != 0 {
				tt.input.PublishedDate = ptr(clock.Now().Add(tt.offset))
			}

			article, err := svc.Create(context.Background(), tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, repo.count())
				return
			}

			require.NoError(t, err)
			assert.Regexp(t, slugPattern, article.Slug)
			if tt.input.PublishedDate != nil {
				assert.True(t, article.PublishedDate.Equal(*tt.input.PublishedDate))
			}
		})
	}
}

func TestArticleService_SameTitleGetsSequentialSlugs(t *testing.T) {
	svc, _, _ := newTestArticleService(t)
	ctx := context.Background()

	var slugs []string
	for i := 0; i < 3; i++ {
		article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Same Title", Content: "body"})
		require.NoError(t, err)
		slugs = append(slugs, article.Slug)
	}

	assert.Equal(t, []string{"same-title", "same-title-1", "same-title-2"}, slugs)
}

func TestArticleService_SlugStableAcrossNonTitleEdits(t *testing.T) {
	svc, repo, clock := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Stable Title", Content: "v1"})
	require.NoError(t, err)

	repo.lookups = nil

	edits := []service.UpdateArticleInput{
		{Content: ptr("v2")},
		{IsPublished: ptr(true)},
		{PublishedDate: ptr(clock.Now().Add(-time.Hour))},
		{Title: ptr("  Stable Title  ")},
	}
	for _, edit := range edits {
		updated, err := svc.Update(ctx, article.ID.String(), edit)
		require.NoError(t, err)
		assert.Equal(t, "stable-title", updated.Slug)
	}

	assert.Empty(t, repo.lookups, "slug must not be re-derived without a title change")
}

func TestArticleService_TitleChangeRecomputesSlug(t *testing.T) {
	svc, _, _ := newTestArticleService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, service.CreateArticleInput{Title: "Taken", Content: "body"})
	require.NoError(t, err)
	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Original", Content: "body"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, article.Slug, service.UpdateArticleInput{Title: ptr("Renamed Post")})
	require.NoError(t, err)
	assert.Equal(t, "renamed-post", updated.Slug)

	updated, err = svc.Update(ctx, updated.ID.String(), service.UpdateArticleInput{Title: ptr("Taken")})
	require.NoError(t, err)
	assert.Equal(t, "taken-1", updated.Slug)

	got, err := svc.Get(ctx, "taken-1", true)
	require.NoError(t, err)
	assert.Equal(t, article.ID, got.ID)
}

func TestArticleService_UpdatedAtStrictlyIncreases(t *testing.T) {
	svc, _, clock := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Clock", Content: "body"})
	require.NoError(t, err)

	previous := article.UpdatedAt
	for i := 0; i < 3; i++ {
		// clock frozen: updates in the same instant still move forward
		updated, err := svc.Update(ctx, article.ID.String(), service.UpdateArticleInput{Content: ptr("edit")})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(previous))
		assert.True(t, updated.CreatedAt.Equal(article.CreatedAt))
		previous = updated.UpdatedAt
	}

	clock.Advance(time.Hour)
	updated, err := svc.Update(ctx, article.ID.String(), service.UpdateArticleInput{IsPublished: ptr(true)})
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.Equal(clock.Now()))
}

func TestArticleService_UpdateErrors(t *testing.T) {
	svc, _, clock := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Title", Content: "body"})
	require.NoError(t, err)

	tests := []struct {
		name     string
		idOrSlug string
		input    service.UpdateArticleInput
		wantErr  error
	}{
		{name: "no fields", idOrSlug: article.Slug, wantErr: service.ErrNoFieldsToUpdate},
		{name: "unknown id", idOrSlug: uuid.NewString(), input: service.UpdateArticleInput{Content: ptr("x")}, wantErr: service.ErrArticleNotFound},
		{name: "unknown slug", idOrSlug: "missing", input: service.UpdateArticleInput{Content: ptr("x")}, wantErr: service.ErrArticleNotFound},
		{name: "blank title", idOrSlug: article.Slug, input: service.UpdateArticleInput{Title: ptr(" ")}, wantErr: domain.ErrTitleRequired},
		{name: "blank content", idOrSlug: article.Slug, input: service.UpdateArticleInput{Content: ptr("")}, wantErr: domain.ErrContentRequired},
		{name: "future date", idOrSlug: article.Slug, input: service.UpdateArticleInput{PublishedDate: ptr(clock.Now().Add(time.Minute))}, wantErr: domain.ErrPublishedDateInFuture},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, tt.idOrSlug, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestArticleService_ResetPublishedDate(t *testing.T) {
	svc, _, clock := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{
		Title:         "Dated",
		Content:       "body",
		PublishedDate: ptr(clock.Now().Add(-30 * 24 * time.Hour)),
	})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	updated, err := svc.Update(ctx, article.Slug, service.UpdateArticleInput{ResetPublishedDate: true})
	require.NoError(t, err)
	assert.True(t, updated.PublishedDate.Equal(clock.Now()))
}

func TestArticleService_Get(t *testing.T) {
	svc, _, _ := newTestArticleService(t)
	ctx := context.Background()

	published, err := svc.Create(ctx, service.CreateArticleInput{Title: "Public Post", Content: "body", IsPublished: true})
	require.NoError(t, err)
	draft, err := svc.Create(ctx, service.CreateArticleInput{Title: "Draft Post", Content: "body"})
	require.NoError(t, err)

	tests := []struct {
		name          string
		key           string
		includeDrafts bool
		wantID        uuid.UUID
		wantErr       error
	}{
		{name: "by slug", key: "public-post", wantID: published.ID},
		{name: "by slug with case and spaces", key: "  Public-Post ", wantID: published.ID},
		{name: "by id", key: published.ID.String(), wantID: published.ID},
		{name: "draft hidden from readers", key: "draft-post", wantErr: service.ErrArticleNotFound},
		{name: "draft visible to admin", key: draft.ID.String(), includeDrafts: true, wantID: draft.ID},
		{name: "missing", key: "nope", wantErr: service.ErrArticleNotFound},
		{name: "blank", key: " ", wantErr: service.ErrArticleNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.key, tt.includeDrafts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestArticleService_GetUUIDShapedSlug(t *testing.T) {
	svc, _, _ := newTestArticleService(t)
	title := uuid.NewString()

	article, err := svc.Create(context.Background(), service.CreateArticleInput{Title: title, Content: "body", IsPublished: true})
	require.NoError(t, err)
	require.Equal(t, title, article.Slug)

	got, err := svc.Get(context.Background(), title, false)
	require.NoError(t, err)
	assert.Equal(t, article.ID, got.ID)
}

func TestArticleService_List(t *testing.T) {
	svc, _, clock := newTestArticleService(t)
	ctx := context.Background()

	for i, title := range []string{"Go Tips", "Rust Notes", "Go Generics", "Draft Idea"} {
		_, err := svc.Create(ctx, service.CreateArticleInput{
			Title:         title,
			Content:       "content about " + title,
			IsPublished:   title != "Draft Idea",
			PublishedDate: ptr(clock.Now().Add(-time.Duration(4-i) * time.Hour)),
		})
		require.NoError(t, err)
	}

	tests := []struct {
		name       string
		input      service.ListArticlesInput
		wantTitles []string
		wantTotal  int64
	}{
		{
			name:       "readers see published newest first",
			input:      service.ListArticlesInput{},
			wantTitles: []string{"Go Generics", "Rust Notes", "Go Tips"},
			wantTotal:  3,
		},
		{
			name:       "readers cannot ask for drafts",
			input:      service.ListArticlesInput{Published: ptr(false)},
			wantTitles: []string{"Go Generics", "Rust Notes", "Go Tips"},
			wantTotal:  3,
		},
		{
			name:       "admin sees everything",
			input:      service.ListArticlesInput{IncludeDrafts: true},
			wantTitles: []string{"Draft Idea", "Go Generics", "Rust Notes", "Go Tips"},
			wantTotal:  4,
		},
		{
			name:       "admin drafts only",
			input:      service.ListArticlesInput{IncludeDrafts: true, Published: ptr(false)},
			wantTitles: []string{"Draft Idea"},
			wantTotal:  1,
		},
		{
			name:       "search",
			input:      service.ListArticlesInput{Search: "  go "},
			wantTitles: []string{"Go Generics", "Go Tips"},
			wantTotal:  2,
		},
		{
			name:       "second page",
			input:      service.ListArticlesInput{Page: 2, Limit: ptr(2)},
			wantTitles: []string{"Go Tips"},
			wantTotal:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.input)
			require.NoError(t, err)

			var titles []string
			for _, a := range page.Articles {
				titles = append(titles, a.Title)
			}
			assert.Equal(t, tt.wantTitles, titles)
			assert.Equal(t, tt.wantTotal, page.Total)
		})
	}
}

func TestArticleService_ListPagination(t *testing.T) {
	svc, repo, _ := newTestArticleService(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, service.CreateArticleInput{Title: "Post", Content: "body", IsPublished: true})
		require.NoError(t, err)
	}

	tests := []struct {
		name                     string
		input                    service.ListArticlesInput
		wantPage, wantLimit      int
		wantTotalPages, wantSize int
		wantMore, wantPrevious   bool
	}{
		{name: "defaults", input: service.ListArticlesInput{}, wantPage: 1, wantLimit: 10, wantTotalPages: 3, wantSize: 10, wantMore: true},
		{name: "last page", input: service.ListArticlesInput{Page: 3}, wantPage: 3, wantLimit: 10, wantTotalPages: 3, wantSize: 5, wantPrevious: true},
		{name: "negative page", input: service.ListArticlesInput{Page: -4}, wantPage: 1, wantLimit: 10, wantTotalPages: 3, wantSize: 10, wantMore: true},
		{name: "explicit zero limit", input: service.ListArticlesInput{Limit: ptr(0)}, wantPage: 1, wantLimit: 1, wantTotalPages: 25, wantSize: 1, wantMore: true},
		{name: "limit clamped low", input: service.ListArticlesInput{Limit: ptr(-1)}, wantPage: 1, wantLimit: 1, wantTotalPages: 25, wantSize: 1, wantMore: true},
		{name: "limit clamped high", input: service.ListArticlesInput{Limit: ptr(1000)}, wantPage: 1, wantLimit: 100, wantTotalPages: 1, wantSize: 25},
		{name: "past the end", input: service.ListArticlesInput{Page: 9}, wantPage: 9, wantLimit: 10, wantTotalPages: 3, wantSize: 0, wantPrevious: true},
		{name: "huge page", input: service.ListArticlesInput{Page: math.MaxInt}, wantPage: math.MaxInt / 10, wantLimit: 10, wantTotalPages: 3, wantSize: 0, wantPrevious: true},
		{name: "huge page with one per page", input: service.ListArticlesInput{Page: math.MaxInt, Limit: ptr(1)}, wantPage: math.MaxInt, wantLimit: 1, wantTotalPages: 25, wantSize: 0, wantPrevious: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, tt.wantTotalPages, page.TotalPages)
			assert.Len(t, page.Articles, tt.wantSize)
			assert.Equal(t, tt.wantMore, page.HasMore)
			assert.Equal(t, tt.wantPrevious, page.HasPrevious)
			assert.Equal(t, int64(25), page.Total)
			assert.GreaterOrEqual(t, repo.lastFilter.Offset, 0)
		})
	}
}

func TestArticleService_ListError(t *testing.T) {
	svc, repo, _ := newTestArticleService(t)
	repo.listErr = errors.New("boom")

	_, err := svc.List(context.Background(), service.ListArticlesInput{})
	assert.ErrorIs(t, err, repo.listErr)
}

func TestArticleService_Delete(t *testing.T) {
	svc, repo, _ := newTestArticleService(t)
	ctx := context.Background()

	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Doomed", Content: "body"})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "doomed")
	require.NoError(t, err)
	assert.Equal(t, article.ID, deleted.ID)
	assert.Zero(t, repo.count())

	_, err = svc.Delete(ctx, article.ID.String())
	assert.ErrorIs(t, err, service.ErrArticleNotFound)
}

func TestArticleService_RetriesWhenSlugTakenConcurrently(t *testing.T) {
	svc, repo, _ := newTestArticleService(t)
	ctx := context.Background()

	core, logs := observer.New(zapcore.WarnLevel)
	logging.Set(zap.New(core))
	t.Cleanup(func() { logging.Set(zap.NewNop()) })

	raced := false
	repo.beforeCreate = func(r *fakeArticleRepo, a *domain.Article) {
		if !raced {
			raced = true
			r.seed(a.Slug, true)
		}
	}

	article, err := svc.Create(ctx, service.CreateArticleInput{Title: "Hot Topic", Content: "body"})
	require.NoError(t, err)
	assert.Equal(t, "hot-topic-1", article.Slug)
	assert.Equal(t, 2, repo.count())

	retries := logs.FilterMessage("slug taken concurrently, retrying").All()
	require.Len(t, retries, 1)
	assert.Equal(t, "hot-topic", retries[0].ContextMap()["slug"])
	assert.Equal(t, int64(1), retries[0].ContextMap()["attempt"])
}

func TestArticleService_SlugConflictAfterRetries(t *testing.T) {
	svc, repo, _ := newTestArticleService(t)

	// every attempt loses the race
	repo.beforeCreate = func(r *fakeArticleRepo, a *domain.Article) {
		r.seed(a.Slug, true)
	}

	_, err := svc.Create(context.Background(), service.CreateArticleInput{Title: "Contended", Content: "body"})
	assert.ErrorIs(t, err, service.ErrSlugConflict)
}
