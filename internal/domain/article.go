package domain

import (
	"time"

	"github.com/google/uuid"
)

const MaxTitleLength = 200

type Article struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title         string    `json:"title" gorm:"type:varchar(200);not null"`
	Slug          string    `json:"slug" gorm:"uniqueIndex;not null"`
	Content       string    `json:"content" gorm:"type:text;not null"`
	PublishedDate time.Time `json:"publishedDate" gorm:"not null;index;index:idx_articles_listing,priority:2"`
	IsPublished   bool      `json:"isPublished" gorm:"not null;default:false;index;index:idx_articles_listing,priority:1"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ArticleFilter narrows an article listing. A nil Published means both
// published and draft articles.
type ArticleFilter struct {
	Published *bool
	Search    string
	Limit     int
	Offset    int
}
