package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/blog/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArticleBuilder creates test articles with a builder pattern
type ArticleBuilder struct {
	title         string
	slug          string
	content       string
	isPublished   bool
	publishedDate time.Time
}

// NewArticleBuilder creates a new ArticleBuilder with default values
func NewArticleBuilder() *ArticleBuilder {
	suffix := uuid.New().String()[:8]
	return &ArticleBuilder{
		title:         fmt.Sprintf("Test Article %s", suffix),
		slug:          fmt.Sprintf("test-article-%s", suffix),
		content:       "Some **markdown** content.",
		isPublished:   true,
		publishedDate: time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond),
	}
}

// WithTitle sets the title and the slug it normalizes to
func (b *ArticleBuilder) WithTitle(title, slug string) *ArticleBuilder {
	b.title = title
	b.slug = slug
	return b
}

// WithContent sets the content
func (b *ArticleBuilder) WithContent(content string) *ArticleBuilder {
	b.content = content
	return b
}

// Draft marks the article as unpublished
func (b *ArticleBuilder) Draft() *ArticleBuilder {
	b.isPublished = false
	return b
}

// PublishedAt sets the published date
func (b *ArticleBuilder) PublishedAt(date time.Time) *ArticleBuilder {
	b.publishedDate = date.UTC().Truncate(time.Microsecond)
	return b
}

// Build creates the article in the database, bypassing the service
func (b *ArticleBuilder) Build(t *testing.T, db *gorm.DB) *domain.Article {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	article := &domain.Article{
		ID:            uuid.New(),
		Title:         b.title,
		Slug:          b.slug,
		Content:       b.content,
		PublishedDate: b.publishedDate,
		IsPublished:   b.isPublished,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := db.Create(article).Error; err != nil {
		t.Fatalf("failed to create article: %v", err)
	}

	return article
}

// LoginAdmin logs in through the API and returns the session cookie
func LoginAdmin(t *testing.T, ts *TestServer) *http.Cookie {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": AdminUsername,
		"password": AdminPassword,
	})

	resp, err := http.Post(ts.APIURL("/auth/login"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}

	t.Fatal("login response did not set a session cookie")
	return nil
}

// CreateRequest creates an HTTP request with an optional JSON body and
// session cookie
func CreateRequest(t *testing.T, method, url string, body interface{}, cookie *http.Cookie) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	return req
}

// Do sends req with the default client
func Do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}
