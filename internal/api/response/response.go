package response

import (
	"net/http"

	"github.com/dom/blog/internal/logging"
	"github.com/go-chi/render"
)

// ErrResponse is the JSON body of every failed request.
type ErrResponse struct {
	HTTPStatusCode int      `json:"-"`
	Message        string   `json:"error"`
	Details        []string `json:"details,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func NewError(status int, message string, details ...string) *ErrResponse {
	return &ErrResponse{
		HTTPStatusCode: status,
		Message:        message,
		Details:        details,
	}
}

var (
	ErrUnauthorized = NewError(http.StatusUnauthorized, "Authentication required")
	ErrNotFound     = NewError(http.StatusNotFound, "Endpoint not found")
	ErrInternal     = NewError(http.StatusInternalServerError, "Internal server error")
)

// Error renders e. A failed render is only logged; headers are gone by then.
func Error(w http.ResponseWriter, r *http.Request, e *ErrResponse) {
	if err := render.Render(w, r, e); err != nil {
		logging.Error("failed to render error response", logging.Err(err))
	}
}

func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}
