package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dom/blog/internal/api/middleware"
	"github.com/dom/blog/internal/api/response"
	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/service"
	"github.com/go-chi/chi/v5"
)

type ArticleHandler struct {
	articleService *service.ArticleService
}

func NewArticleHandler(articleService *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

type CreateArticleRequest struct {
	Title         string     `json:"title" validate:"required,max=200"`
	Content       string     `json:"content" validate:"required"`
	IsPublished   bool       `json:"isPublished"`
	PublishedDate *time.Time `json:"publishedDate"`
}

type UpdateArticleRequest struct {
	Title              *string    `json:"title" validate:"omitempty,max=200"`
	Content            *string    `json:"content"`
	IsPublished        *bool      `json:"isPublished"`
	PublishedDate      *time.Time `json:"publishedDate"`
	ResetPublishedDate bool       `json:"resetPublishedDate"`
}

type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasMore     bool  `json:"hasMore"`
	HasPrevious bool  `json:"hasPrevious"`
}

type ArticleListResponse struct {
	Articles   []*domain.Article `json:"articles"`
	Pagination Pagination        `json:"pagination"`
}

type DeleteArticleResponse struct {
	Success bool            `json:"success"`
	Article *domain.Article `json:"article"`
}

// List serves both the public listing and the admin one. Drafts are only
// reachable with an admin session.
func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	input, details := parseListQuery(r)
	if len(details) > 0 {
		response.Error(w, r, response.NewError(http.StatusBadRequest, "Invalid query parameters", details...))
		return
	}
	input.IncludeDrafts = middleware.IsAdmin(r.Context())

	page, err := h.articleService.List(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	articles := page.Articles
	if articles == nil {
		articles = []*domain.Article{}
	}

	response.JSON(w, r, http.StatusOK, ArticleListResponse{
		Articles: articles,
		Pagination: Pagination{
			Total:       page.Total,
			Page:        page.Page,
			Limit:       page.Limit,
			TotalPages:  page.TotalPages,
			HasMore:     page.HasMore,
			HasPrevious: page.HasPrevious,
		},
	})
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	article, err := h.articleService.Get(r.Context(), chi.URLParam(r, "idOrSlug"), middleware.IsAdmin(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, article)
}

func (h *ArticleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateArticleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.articleService.Create(r.Context(), service.CreateArticleInput{
		Title:         req.Title,
		Content:       req.Content,
		IsPublished:   req.IsPublished,
		PublishedDate: req.PublishedDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, article)
}

func (h *ArticleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateArticleRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.articleService.Update(r.Context(), chi.URLParam(r, "idOrSlug"), service.UpdateArticleInput{
		Title:              req.Title,
		Content:            req.Content,
		IsPublished:        req.IsPublished,
		PublishedDate:      req.PublishedDate,
		ResetPublishedDate: req.ResetPublishedDate,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, article)
}

func (h *ArticleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	article, err := h.articleService.Delete(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, DeleteArticleResponse{Success: true, Article: article})
}

func parseListQuery(r *http.Request) (service.ListArticlesInput, []string) {
	q := r.URL.Query()
	input := service.ListArticlesInput{Search: q.Get("search")}

	var details []string
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			details = append(details, "page must be an integer")
		}
		input.Page = page
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			details = append(details, "limit must be an integer")
		}
		input.Limit = &limit
	}
	if v := q.Get("published"); v != "" {
		published, err := strconv.ParseBool(v)
		if err != nil {
			details = append(details, "published must be true or false")
		}
		input.Published = &published
	}

	return input, details
}
