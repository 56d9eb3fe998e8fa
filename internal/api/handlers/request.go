package handlers

import (
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/dom/blog/internal/api/response"
	"github.com/dom/blog/internal/domain"
	"github.com/dom/blog/internal/logging"
	"github.com/dom/blog/internal/service"
	"github.com/dom/blog/internal/validator"
	"github.com/go-chi/render"
)

var validate = validator.New()

var errInvalidBody = errors.New("invalid request body")

// decodeJSON reads and validates a JSON body. An empty body is accepted
// when allowEmpty is set and leaves v at its zero value.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return errInvalidBody
		}
	}
	return validate.Struct(v)
}

// writeError maps service and validation errors onto HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, response.NewError(http.StatusBadRequest, "Validation failed", verr.Details...))
	case errors.Is(err, errInvalidBody):
		response.Error(w, r, response.NewError(http.StatusBadRequest, "Invalid request body"))
	case errors.Is(err, domain.ErrTitleRequired),
		errors.Is(err, domain.ErrTitleTooLong),
		errors.Is(err, domain.ErrContentRequired),
		errors.Is(err, domain.ErrPublishedDateInFuture):
		response.Error(w, r, response.NewError(http.StatusBadRequest, "Validation failed", err.Error()))
	case errors.Is(err, service.ErrNoFieldsToUpdate):
		response.Error(w, r, response.NewError(http.StatusBadRequest, err.Error()))
	case errors.Is(err, service.ErrArticleNotFound):
		response.Error(w, r, response.NewError(http.StatusNotFound, "Article not found"))
	case errors.Is(err, service.ErrSlugConflict):
		response.Error(w, r, response.NewError(http.StatusConflict, err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, response.NewError(http.StatusUnauthorized, "Invalid credentials"))
	case errors.Is(err, service.ErrNoSession):
		response.Error(w, r, response.ErrUnauthorized)
	default:
		logging.Error("request failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Err(err),
		)
		response.Error(w, r, response.ErrInternal)
	}
}

// clientIP strips the port RemoteAddr carries unless RealIP replaced it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
