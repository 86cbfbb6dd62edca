package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/opsportal/backend-go/internal/handler/http/middleware"
	"github.com/opsportal/backend-go/internal/pkg/jwt"
)

type RouterConfig struct {
	FrontendURL string
	UploadsDir  string
	Env         string
}

func NewRouter(
	jwtService jwt.Service,
	authHandler AuthHandler,
	attendanceHandler AttendanceHandler,
	directoryHandler DirectoryHandler,
	eventsHandler EventsHandler,
	cfg RouterConfig,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "opsportal-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	// Selfie files saved by local storage.
	if cfg.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/refresh", authHandler.RefreshToken)
			r.Post("/logout", authHandler.Logout)
			r.Route("/oauth/callback", func(r chi.Router) {
				r.Get("/google", authHandler.OAuthCallbackGoogle)
			})

			r.Route("/login", func(r chi.Router) {
				r.Post("/", authHandler.Login)
				r.Route("/oauth", func(r chi.Router) {
					r.Get("/google", authHandler.LoginWithGoogle)
				})
			})
		})

		// EventSource authenticates via short-lived query token, so the
		// stream sits outside the Verifier group.
		r.Get("/events", eventsHandler.Stream)

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Post("/events/token", eventsHandler.Token)

			r.Route("/attendance", func(r chi.Router) {
				r.Post("/location", attendanceHandler.ReportLocation)
				r.Get("/status", attendanceHandler.Status)

				r.Route("/check-in", func(r chi.Router) {
					r.Post("/", attendanceHandler.BeginCheckIn)
					r.Post("/late-reason", attendanceHandler.SubmitLateReason)
					r.Post("/finalize", attendanceHandler.FinalizeCheckIn)
				})

				r.Route("/check-out", func(r chi.Router) {
					r.Post("/", attendanceHandler.BeginCheckOut)
					r.Post("/finalize", attendanceHandler.FinalizeCheckOut)
				})

				r.Delete("/flow", attendanceHandler.CancelFlow)

				r.Get("/my", attendanceHandler.GetMyAttendance)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Get("/", attendanceHandler.List)
					r.Get("/{id}", attendanceHandler.Get)
				})
			})

			r.Route("/directory", func(r chi.Router) {
				r.Get("/policy", directoryHandler.GetPolicy)

				r.Route("/shifts", func(r chi.Router) {
					r.Get("/", directoryHandler.ListShifts)
					r.Get("/{id}", directoryHandler.GetShift)

					// Admin only
					r.Group(func(r chi.Router) {
						r.Use(middleware.AdminOnly)
						r.Post("/", directoryHandler.CreateShift)
						r.Put("/{id}", directoryHandler.UpdateShift)
						r.Delete("/{id}", directoryHandler.DeleteShift)
					})
				})
			})
		})
	})
	return r
}
