package directory

import (
	"github.com/go-chi/chi/v5"

	"github.com/communitytime/allocation-api/internal/http/middleware"
)

// Mount adds the directory routes behind gate.
func Mount(r chi.Router, handler *Handler, gate middleware.Gate) {
	handler.RegisterRoutes(r, gate)
}
