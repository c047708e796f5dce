// AngelaMos | 2026
// handler.go

package order

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
	r.Route("/orders", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.List)
		r.Get("/{orderID}", h.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireStaff)
			r.Post("/", h.Create)
			r.Patch("/{orderID}", h.UpdateStatus)
			r.Delete("/{orderID}", h.Delete)
		})
	})
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		core.JSONError(w, core.NewAppError(err, "Customer not found.", http.StatusNotFound, "CUSTOMER_NOT_FOUND"))
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "order")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "")
	default:
		core.InternalServerError(w, err)
	}
}

// List honours ?status= and ?select=basic. The basic form skips the
// customer join.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	orders, err := h.service.List(
		r.Context(),
		middleware.CallerFrom(r.Context()),
		q.Get("status"),
		q.Get("select") == "basic",
	)
	if err != nil {
		writeError(w, err)
		return
	}
	core.OK(w, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, err)
		return
	}
	core.OK(w, o)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.Create(r.Context(), middleware.CallerFrom(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	core.Created(w, o)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	o, err := h.service.UpdateStatus(
		r.Context(),
		middleware.CallerFrom(r.Context()),
		chi.URLParam(r, "orderID"),
		req.Status,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	core.OK(w, o)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.CallerFrom(r.Context()), chi.URLParam(r, "orderID")); err != nil {
		writeError(w, err)
		return
	}
	core.NoContent(w)
}
