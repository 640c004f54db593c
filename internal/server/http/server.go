// Package http exposes the account and contact services over a JSON HTTP
// API routed with chi.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrijs2005/contacts/internal/logging"
	"github.com/dmitrijs2005/contacts/internal/server/models"
)

type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	VerifyEmail(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, error)
	ResolveIdentity(ctx context.Context, token string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdateAvatar(ctx context.Context, user *models.User, image []byte) (*models.User, error)
}

type ContactService interface {
	Create(ctx context.Context, ownerID int64, c models.Contact) (*models.Contact, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	List(ctx context.Context, ownerID int64, filter models.ContactFilter, skip, limit int) (*models.ContactPage, error)
	UpcomingBirthdays(ctx context.Context, ownerID int64, days, skip, limit int) (*models.ContactPage, error)
	Update(ctx context.Context, ownerID, id int64, update models.ContactUpdate) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	Search(ctx context.Context, ownerID int64, query string, limit int) ([]models.Contact, error)
}

type Server struct {
	users          UserService
	contacts       ContactService
	logger         logging.Logger
	metrics        *metrics
	allowedOrigins []string
}

// NewServer wires the handlers. allowedOrigins feeds the CORS policy; "*"
// admits any origin.
func NewServer(users UserService, contacts ContactService, logger logging.Logger, allowedOrigins []string) *Server {
	return &Server{
		users:          users,
		contacts:       contacts,
		logger:         logger.With("module", "http_server"),
		metrics:        newMetrics(),
		allowedOrigins: allowedOrigins,
	}
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)
	r.Use(s.corsHandler())
	r.Use(s.metrics.middleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	r.Get("/healthcheck", s.handleHealthcheck)
	r.Method(http.MethodGet, "/metrics", s.metrics.handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Get("/verify-email", s.handleVerifyEmail)
		r.Post("/login", s.handleLogin)
		r.Post("/request-password-reset", s.handleRequestPasswordReset)
		r.Post("/reset-password", s.handleResetPassword)
		r.With(s.authMiddleware).Get("/me", s.handleMe)
	})

	r.With(s.authMiddleware).Post("/users/avatar", s.handleUpdateAvatar)

	r.Route("/contacts", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Post("/", s.handleCreateContact)
		r.Get("/", s.handleListContacts)
		r.Get("/birthdays", s.handleUpcomingBirthdays)
		r.Get("/birthdays/", s.handleUpcomingBirthdays)
		r.Get("/search", s.handleSearchContacts)
		r.Get("/{id}", s.handleGetContact)
		r.Patch("/{id}", s.handleUpdateContact)
		r.Delete("/{id}", s.handleDeleteContact)
	})

	return r
}

// recoverer turns a panic into the generic 500 body. middleware.Recoverer
// would answer with plain text.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error(r.Context(), "panic recovered", "panic", rec, "path", r.URL.Path)
				writeError(w, http.StatusInternalServerError, internalErrorDetail)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthcheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "The application is up and running!"})
}
