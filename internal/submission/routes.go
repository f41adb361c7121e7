package submission

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/communitytime/allocation-api/internal/http/middleware"
)

// Mount adds the submission routes behind gate.
func Mount(r chi.Router, handler *Handler, gate middleware.Gate, submitLimit func(http.Handler) http.Handler) {
	handler.RegisterRoutes(r, gate, submitLimit)
}
