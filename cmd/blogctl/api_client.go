package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"
)

// APIClient handles HTTP communication with the backend. The session
// cookie set by Login is kept in the jar and sent on every later call.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL string) *APIClient {
	jar, _ := cookiejar.New(nil)
	return &APIClient{
		baseURL: baseURL + "/api/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// Response types matching backend

type Article struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	IsPublished   bool      `json:"isPublished"`
	PublishedDate time.Time `json:"publishedDate"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type ArticleList struct {
	Articles   []Article `json:"articles"`
	Pagination struct {
		Total int64 `json:"total"`
	} `json:"pagination"`
}

type LoginResult struct {
	User struct {
		Name string `json:"name"`
	} `json:"user"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login opens an admin session
func (c *APIClient) Login(username, password string) (*LoginResult, error) {
	body := map[string]string{
		"username": username,
		"password": password,
	}

	var result LoginResult
	if err := c.do(c.httpClient, http.MethodPost, "/auth/login", body, http.StatusOK, &result); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &result, nil
}

// CreateArticle creates an article through the admin API
func (c *APIClient) CreateArticle(title, content string, published bool, publishedDate *time.Time) (*Article, error) {
	body := map[string]interface{}{
		"title":       title,
		"content":     content,
		"isPublished": published,
	}
	if publishedDate != nil {
		body["publishedDate"] = publishedDate.Format(time.RFC3339)
	}

	var article Article
	if err := c.do(c.httpClient, http.MethodPost, "/admin/articles", body, http.StatusCreated, &article); err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	return &article, nil
}

// GetArticle fetches one article through the admin API so drafts resolve too
func (c *APIClient) GetArticle(idOrSlug string) (*Article, error) {
	var article Article
	if err := c.do(c.httpClient, http.MethodGet, "/admin/articles/"+url.PathEscape(idOrSlug), nil, http.StatusOK, &article); err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &article, nil
}

// ListPublished returns the first page an anonymous reader would see
func (c *APIClient) ListPublished(limit int) (*ArticleList, error) {
	// No cookie jar: the admin session would reveal drafts
	anonymous := &http.Client{Timeout: c.httpClient.Timeout}

	var list ArticleList
	if err := c.do(anonymous, http.MethodGet, fmt.Sprintf("/articles?limit=%d", limit), nil, http.StatusOK, &list); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return &list, nil
}

func (c *APIClient) do(client *http.Client, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
