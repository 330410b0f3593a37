package router

import (
	"net/http"

	_ "buddy-api/docs"
	"buddy-api/handler"
	"buddy-api/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// APIPrefix is where the auth routes are mounted a second time, next to /auth.
const APIPrefix = "/app-api/v1"

func NewRouter(authHandler *handler.AuthHandler, auth service.IAuthService, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(
		handler.RequestIDMiddleware,
		handler.LoggingMiddleware,
		middleware.Recoverer,
		handler.BodySizeLimitMiddleware,
	)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	authRoutes := func(r chi.Router) {
		r.Post("/register", handler.ErrorHandlingMiddleware(authHandler.Register))
		r.Post("/login", handler.ErrorHandlingMiddleware(authHandler.Login))
		r.With(handler.AuthMiddleware(auth)).Get("/session", handler.ErrorHandlingMiddleware(authHandler.Session))
		r.Post("/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
	}
	r.Route("/auth", authRoutes)
	r.Route(APIPrefix+"/auth", authRoutes)

	return r
}
