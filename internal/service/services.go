package service

import (
	"github.com/dom/blog/internal/config"
	"github.com/dom/blog/internal/repository"
)

type Services struct {
	Auth     *AuthService
	Sessions *SessionManager
	Articles *ArticleService
}

func NewServices(repos *repository.Repositories, cfg *config.Config) *Services {
	sessions := NewSessionManager(repos.Session, cfg.SessionLifetime())
	return &Services{
		Auth:     NewAuthService(sessions, cfg),
		Sessions: sessions,
		Articles: NewArticleService(repos.Article, NewSlugResolver(repos.Article)),
	}
}
