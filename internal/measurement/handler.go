// AngelaMos | 2026
// handler.go

package measurement

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/tailorbook/internal/core"
	"github.com/carterperez-dev/tailorbook/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/measurements", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/me", h.GetMe)
		r.Put("/me", h.PutMe)
		r.With(middleware.RequireStaff).Get("/{userID}", h.GetForUser)
	})
}

// GetMe answers with null data when the customer has not saved any yet.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.ForUser(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, m)
}

func (h *Handler) GetForUser(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.ForUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}
	core.OK(w, m)
}

func (h *Handler) PutMe(w http.ResponseWriter, r *http.Request) {
	var req UpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	m, inserted, err := h.service.Save(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "")
		case errors.Is(err, core.ErrNotFound):
			core.NotFound(w, "profile")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	if inserted {
		core.Created(w, m)
		return
	}
	core.OK(w, m)
}
