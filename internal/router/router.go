package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/analyticalinvestments/omega-api/internal/api/auth"
	"github.com/analyticalinvestments/omega-api/internal/api/billing"
	"github.com/analyticalinvestments/omega-api/internal/api/chat"
	"github.com/analyticalinvestments/omega-api/internal/api/course"
	"github.com/analyticalinvestments/omega-api/internal/api/market"
	"github.com/analyticalinvestments/omega-api/internal/api/portfolio"
)

// Config contains the handlers and middleware the router composes.
type Config struct {
	AuthHandler      *auth.AuthHandler
	CourseHandler    *course.CourseHandler
	ChatHandler      *chat.ChatHandler
	PortfolioHandler *portfolio.PortfolioHandler
	MarketHandler    *market.MarketHandler
	BillingHandler   *billing.BillingHandler

	Authenticate     func(http.Handler) http.Handler
	RequireOmegaPlan func(http.Handler) http.Handler
	AllowedOrigins   []string
}

// SetupRouter wires all API routes into three tiers: public, session, and
// session+OMEGA. Server-wide middleware (request ID, logging, recoverer)
// is applied before mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// Public routes: no session required.
		r.Group(func(r chi.Router) {
			// Credential endpoints are rate limited by client IP to slow
			// down password guessing.
			r.Group(func(r chi.Router) {
				r.Use(httprate.LimitByIP(10, 1*time.Minute))
				r.Post("/auth/register", cfg.AuthHandler.Register)
				r.Post("/auth/login", cfg.AuthHandler.Login)
			})

			r.Get("/auth/{provider}", cfg.AuthHandler.BeginOAuth)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)

			r.Get("/courses", cfg.CourseHandler.ListCourses)
			r.Get("/courses/{id}", cfg.CourseHandler.GetCourse)
			r.Get("/market-data", cfg.MarketHandler.ListQuotes)
			r.Get("/market-data/{symbol}", cfg.MarketHandler.GetQuote)
		})

		// Session routes: any authenticated user.
		r.Group(func(r chi.Router) {
			r.Use(cfg.Authenticate)

			r.Post("/auth/logout", cfg.AuthHandler.Logout)
			r.Get("/auth/me", cfg.AuthHandler.Me)

			r.Get("/portfolios", cfg.PortfolioHandler.ListPortfolios)
			r.Post("/portfolios", cfg.PortfolioHandler.CreatePortfolio)
			r.Put("/portfolios/{id}/holdings", cfg.PortfolioHandler.UpdateHoldings)

			r.Post("/get-or-create-subscription", cfg.BillingHandler.GetOrCreateSubscription)
			r.Post("/update-subscription-status", cfg.BillingHandler.UpdateSubscriptionStatus)

			// OMEGA routes: plan-gated on top of the session.
			r.Group(func(r chi.Router) {
				r.Use(cfg.RequireOmegaPlan)

				r.Post("/chat", cfg.ChatHandler.SendMessage)
				r.Get("/chat-sessions", cfg.ChatHandler.ListSessions)
				r.Post("/generate-report", cfg.ChatHandler.GenerateReport)
				r.Post("/courses", cfg.CourseHandler.CreateCourse)
				r.Post("/market-data", cfg.MarketHandler.UpsertQuote)
			})
		})
	})

	return r
}
