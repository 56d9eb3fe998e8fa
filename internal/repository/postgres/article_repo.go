package postgres

import (
	"context"

	"github.com/dom/blog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type articleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *articleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *domain.Article) error {
	return r.db.WithContext(ctx).Create(article).Error
}

func (r *articleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	var article domain.Article
	err := r.db.WithContext(ctx).First(&article, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var article domain.Article
	err := r.db.WithContext(ctx).First(&article, "slug = ?", slug).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (r *articleRepository) SlugTaken(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&domain.Article{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var count int64
	if err := query.Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *articleRepository) List(ctx context.Context, filter domain.ArticleFilter) ([]*domain.Article, int64, error) {
	matching := func(db *gorm.DB) *gorm.DB {
		if filter.Published != nil {
			db = db.Where("is_published = ?", *filter.Published)
		}
		if filter.Search != "" {
			pattern := "%" + escapeLike(filter.Search) + "%"
			db = db.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
		}
		return db
	}

	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Article{}).Scopes(matching).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	var articles []*domain.Article
	err = r.db.WithContext(ctx).
		Scopes(matching).
		Order("published_date DESC").
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&articles).Error
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Update writes every mutable column, including zero values such as an
// unpublished flag, and keeps the caller's updated_at.
func (r *articleRepository) Update(ctx context.Context, article *domain.Article) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Article{}).
		Where("id = ?", article.ID).
		Updates(map[string]interface{}{
			"title":          article.Title,
			"slug":           article.Slug,
			"content":        article.Content,
			"published_date": article.PublishedDate,
			"is_published":   article.IsPublished,
			"updated_at":     article.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *articleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&domain.Article{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
