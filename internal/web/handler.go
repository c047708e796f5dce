// AngelaMos | 2026
// handler.go

package web

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/carterperez-dev/tailorbook/internal/backend"
	"github.com/carterperez-dev/tailorbook/internal/catalog"
	"github.com/carterperez-dev/tailorbook/internal/config"
	"github.com/carterperez-dev/tailorbook/internal/forms"
	"github.com/carterperez-dev/tailorbook/internal/guard"
	"github.com/carterperez-dev/tailorbook/internal/notify"
	"github.com/carterperez-dev/tailorbook/internal/session"
)

const (
	keyBundle  = "bundle"
	keyRefresh = "refresh"
)

type Config struct {
	Client    *backend.Client
	Session   config.SessionConfig
	AuthLimit config.AuthLimitConfig
	Business  config.BusinessConfig
	Logger    *slog.Logger
}

type Handler struct {
	cfg     Config
	bundles *Registry
	store   *sessions.CookieStore
	tmpl    *Templates
	logger  *slog.Logger
}

func NewHandler(cfg Config) (*Handler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	keys := [][]byte{[]byte(cfg.Session.HashKey)}
	if cfg.Session.BlockKey != "" {
		keys = append(keys, []byte(cfg.Session.BlockKey))
	}
	store := sessions.NewCookieStore(keys...)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.Session.Secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = int(cfg.Session.MaxAge.Seconds())

	return &Handler{
		cfg:     cfg,
		bundles: NewRegistry(cfg.Client, cfg.Session.IdleTimeout, logger),
		store:   store,
		tmpl:    tmpl,
		logger:  logger,
	}, nil
}

func (h *Handler) Registry() *Registry { return h.bundles }

// RegisterRoutes mounts the browser routes. Everything below sits behind
// CSRF protection and the per-browser bundle.
func (h *Handler) RegisterRoutes(r chi.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	authLimit := httprate.Limit(
		h.cfg.AuthLimit.Requests,
		h.cfg.AuthLimit.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too many attempts. Please wait a minute and try again.", http.StatusTooManyRequests)
		}),
	)

	r.Group(func(r chi.Router) {
		if !h.cfg.Session.Secure {
			r.Use(plaintextHTTP)
		}
		r.Use(csrf.Protect(
			[]byte(h.cfg.Session.CSRFKey),
			csrf.Secure(h.cfg.Session.Secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.TrustedOrigins(h.cfg.Session.TrustedOrigins),
			csrf.ErrorHandler(http.HandlerFunc(h.csrfFailed)),
		))
		r.Use(h.withBundle)

		r.Get("/", h.Home)
		r.With(authLimit).Post("/contact", h.Contact)

		r.Get("/login", h.LoginPage)
		r.With(authLimit).Post("/login", h.Login)
		r.Get("/register", h.RegisterPage)
		r.With(authLimit).Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.Get("/auth/google", h.Google)
		r.Get("/auth/callback", h.Callback)
		r.Post("/notifications/{id}/dismiss", h.Dismiss)

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(guard.Customer, h.state))

			r.Get("/book", h.BookPage)
			r.Post("/book", h.Book)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/dashboard/live", h.CustomerLive)
			r.Post("/dashboard/measurements", h.SaveMeasurements)
			r.Post("/dashboard/appointments", h.BookFromDashboard)
		})

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(guard.Staff, h.state))

			r.Get("/admin", h.Admin)
			r.Get("/admin/live", h.AdminLive)
			r.Post("/admin/orders", h.CreateOrder)
			r.Post("/admin/orders/{orderID}/status", h.UpdateOrderStatus)
			r.Post("/admin/orders/{orderID}/delete", h.DeleteOrder)
			r.Post("/admin/appointments/{appointmentID}/status", h.UpdateAppointmentStatus)
		})
	})
}

// plaintextHTTP tells the CSRF check that this deployment is not behind
// TLS, so it skips the https-only referer comparison.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func (h *Handler) csrfFailed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "Your form expired. Please reload the page and try again.", http.StatusForbidden)
}

type bundleKey struct{}

func bundleFrom(r *http.Request) *Bundle {
	b, _ := r.Context().Value(bundleKey{}).(*Bundle)
	return b
}

func (h *Handler) state(r *http.Request) session.State {
	if b := bundleFrom(r); b != nil {
		return b.Session.Snapshot()
	}
	return session.State{}
}

// withBundle resolves the browser's bundle from its cookie, creating one
// on first visit.
func (h *Handler) withBundle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := h.store.Get(r, h.cfg.Session.CookieName)
		if err != nil {
			h.logger.Debug("discarding unreadable session cookie", "error", err)
		}

		id, _ := sess.Values[keyBundle].(string)
		refresh, _ := sess.Values[keyRefresh].(string)

		b := h.bundles.Open(r.Context(), id, refresh)
		r = r.WithContext(context.WithValue(r.Context(), bundleKey{}, b))
		h.persist(w, r, b)

		next.ServeHTTP(w, r)
	})
}

// persist writes the bundle id and current refresh token to the cookie
// when either changed. It must run before the response is written.
func (h *Handler) persist(w http.ResponseWriter, r *http.Request, b *Bundle) {
	sess, _ := h.store.Get(r, h.cfg.Session.CookieName) //nolint:errcheck // a fresh session is returned on error

	refresh := b.Session.RefreshToken()
	if sess.Values[keyBundle] == b.ID && sess.Values[keyRefresh] == refresh {
		return
	}

	sess.Values[keyBundle] = b.ID
	sess.Values[keyRefresh] = refresh
	if err := sess.Save(r, w); err != nil {
		h.logger.Error("save session cookie", "error", err)
	}
}

type page struct {
	Title    string
	Path     string
	Business config.BusinessConfig
	State    session.State
	Role     string
	CSRF     template.HTML
	Toasts   []notify.Entry
	Error    string
	Services []catalog.Service
	View     any
}

func (h *Handler) page(r *http.Request, b *Bundle, title string) page {
	s := b.Session.Snapshot()
	return page{
		Title:    title,
		Path:     r.URL.Path,
		Business: h.cfg.Business,
		State:    s,
		Role:     s.Role(),
		CSRF:     csrf.TemplateField(r),
		Toasts:   b.Notes.List(),
		Services: catalog.Services,
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.tmpl.Render(w, name, data); err != nil {
		h.logger.Error("render page", "page", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func postForm(r *http.Request) url.Values {
	if err := r.ParseForm(); err != nil {
		return url.Values{}
	}
	return r.PostForm
}

// localPath keeps redirects on this site.
func localPath(p, fallback string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return fallback
	}
	return p
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	b.Unmount()

	data := h.page(r, b, h.cfg.Business.Name)
	data.Error = b.ContactForm.Message()
	h.render(w, "home", data)
}

func (h *Handler) Contact(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	if !b.ContactForm.TryBegin() {
		redirect(w, r, "/#contact")
		return
	}

	f, err := forms.ParseContact(postForm(r))
	if err != nil {
		b.ContactForm.End(err)
		redirect(w, r, "/#contact")
		return
	}

	if err := b.Source().SendContactMessage(r.Context(), f.Payload()); err != nil {
		h.logger.Warn("send contact message", "error", err)
		b.Notes.Notify("Failed to send message. Please try again.", notify.Error)
	} else {
		b.Notes.Notify("Message sent! We'll get back to you soon.", notify.Success)
	}
	b.ContactForm.End(nil)
	redirect(w, r, "/#contact")
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	b.Unmount()

	data := h.page(r, b, "Sign in")
	data.Error = b.LoginForm.Message()
	h.render(w, "login", data)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	if !b.LoginForm.TryBegin() {
		redirect(w, r, "/login")
		return
	}

	f, err := forms.ParseLogin(postForm(r))
	if err != nil {
		b.LoginForm.End(err)
		redirect(w, r, "/login")
		return
	}

	s, err := b.Session.SignIn(r.Context(), f.Email, f.Password)
	b.LoginForm.End(err)
	if err != nil {
		redirect(w, r, "/login")
		return
	}

	h.persist(w, r, b)
	b.Notes.Notify("Welcome back!", notify.Success)
	redirect(w, r, session.HomeFor(s.Role()))
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	b.Unmount()

	data := h.page(r, b, "Create account")
	data.Error = b.RegisterForm.Message()
	h.render(w, "register", data)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	if !b.RegisterForm.TryBegin() {
		redirect(w, r, "/register")
		return
	}

	f, err := forms.ParseRegister(postForm(r))
	if err != nil {
		b.RegisterForm.End(err)
		redirect(w, r, "/register")
		return
	}

	err = b.Session.SignUp(r.Context(), f.Email, f.Password, f.Name, f.Phone)
	b.RegisterForm.End(err)
	if err != nil {
		redirect(w, r, "/register")
		return
	}

	h.persist(w, r, b)
	b.Notes.Notify("Account created successfully! Please sign in.", notify.Success)
	redirect(w, r, "/login")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	b.Unmount()
	b.Session.SignOut(r.Context())
	h.persist(w, r, b)
	redirect(w, r, "/")
}

func (h *Handler) callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || h.cfg.Session.Secure {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/auth/callback"
}

// Google sends the browser to the provider's consent screen.
func (h *Handler) Google(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)

	target, err := b.Session.SignInWithGoogle(r.Context(), h.callbackURL(r))
	if err != nil {
		b.LoginForm.End(err)
		redirect(w, r, "/login")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback finishes Google sign-in and lands on the dashboard.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	q := r.URL.Query()

	if msg := q.Get("error"); msg != "" {
		b.LoginForm.End(&forms.Error{Message: msg})
		redirect(w, r, "/login")
		return
	}

	s, err := b.Session.CompleteOAuth(r.Context(), q.Get("code"))
	if err != nil {
		b.LoginForm.End(err)
		redirect(w, r, "/login")
		return
	}

	h.persist(w, r, b)
	b.Notes.Notify("Welcome back!", notify.Success)
	redirect(w, r, session.HomeFor(s.Role()))
}

func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	if id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64); err == nil {
		b.Notes.Dismiss(id)
	}
	redirect(w, r, localPath(postForm(r).Get("return"), "/"))
}

type bookView struct {
	Selected string
}

func (h *Handler) BookPage(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	b.Unmount()

	data := h.page(r, b, "Book an appointment")
	data.Error = b.BookingForm.Message()
	data.View = bookView{Selected: r.URL.Query().Get("service")}
	h.render(w, "book", data)
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	b := bundleFrom(r)
	if !b.BookingForm.TryBegin() {
		redirect(w, r, "/book")
		return
	}

	f, err := forms.ParseBooking(postForm(r))
	if err != nil {
		b.BookingForm.End(nil)
		b.Notes.Notify(err.Error(), notify.Error)
		redirect(w, r, "/book")
		return
	}

	s := b.Session.Snapshot()
	_, err = b.Source().CreateAppointment(r.Context(), f.Appointment(s.Profile, userEmail(s)))
	b.BookingForm.End(nil)
	if err != nil {
		b.Notes.Notify("Failed to book appointment: "+err.Error(), notify.Error)
		redirect(w, r, "/book")
		return
	}

	b.Notes.Notify("Appointment booked successfully! We'll confirm soon.", notify.Success)
	redirect(w, r, "/dashboard")
}

func userEmail(s session.State) string {
	if s.User == nil {
		return ""
	}
	return s.User.Email
}
