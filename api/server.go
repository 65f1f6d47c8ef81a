// Package api provides the HTTP layer: router setup, middleware, and the
// server lifecycle.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/tripflow/tripflow/api/handlers"
	"github.com/tripflow/tripflow/api/middleware"
	"github.com/tripflow/tripflow/pkg/agent"
	"github.com/tripflow/tripflow/pkg/auth"
	"github.com/tripflow/tripflow/pkg/config"
	"github.com/tripflow/tripflow/pkg/domain"
	"github.com/tripflow/tripflow/pkg/mapclient"
	"github.com/tripflow/tripflow/pkg/providers"
	"github.com/tripflow/tripflow/pkg/services"
	"github.com/tripflow/tripflow/pkg/store"
	"github.com/tripflow/tripflow/pkg/tools"
)

// Deps carries the collaborators the HTTP layer needs. Tests inject fakes
// here; production wiring comes from BuildDeps.
type Deps struct {
	Store     *store.Store
	Auth      *auth.Service
	LLM       domain.Generator
	Map       handlers.MapAPI
	Agents    *agent.Service
	ExpenseAI *services.ExpenseAI
	TripAI    *services.TripAI
}

// BuildDeps constructs the production dependency graph from the config.
func BuildDeps(cfg *config.Config) (*Deps, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	if err := st.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	authSvc, err := auth.NewService(cfg.Auth)
	if err != nil {
		return nil, err
	}

	llm, err := providers.NewOpenAIProvider(cfg.LLM)
	if err != nil {
		return nil, err
	}

	maps := mapclient.New(cfg.Map)

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry, st, maps)
	executor := tools.NewExecutor(registry)

	return &Deps{
		Store:     st,
		Auth:      authSvc,
		LLM:       llm,
		Map:       maps,
		Agents:    agent.NewService(llm, registry, executor),
		ExpenseAI: services.NewExpenseAI(st, llm),
		TripAI:    services.NewTripAI(st, llm),
	}, nil
}

// Close releases the dependencies that hold resources.
func (d *Deps) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}

// Server is the tripflow HTTP server.
type Server struct {
	config *config.Config
	deps   *Deps
	router *gin.Engine
	server *http.Server
}

// New assembles the server from a config and pre-built dependencies.
func New(cfg *config.Config, deps *Deps) *Server {
	s := &Server{
		config: cfg,
		deps:   deps,
	}
	s.setupRouter()

	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// Streaming chat responses can stay open well past a normal
		// request, so no write timeout.
		IdleTimeout: 120 * time.Second,
	}
	return s
}

// NewServer builds the server with production dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	deps, err := BuildDeps(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, deps), nil
}

// Router exposes the gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	s.router = gin.New()

	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORSForOrigins(s.config.Server.CORSOrigins))

	s.setupRoutes()
}

func (s *Server) setupRoutes() {
	authHandler := handlers.NewAuthHandler(s.deps.Store, s.deps.Auth)
	tripsHandler := handlers.NewTripsHandler(s.deps.Store)
	expensesHandler := handlers.NewExpensesHandler(s.deps.Store, s.deps.ExpenseAI)
	mapHandler := handlers.NewMapHandler(s.deps.Map)
	chatHandler := handlers.NewChatHandler(s.deps.Agents, s.deps.LLM)
	tripAIHandler := handlers.NewTripAIHandler(s.deps.TripAI)

	s.router.GET("/health", handlers.Health)

	v1 := s.router.Group("/api/v1")
	v1.Use(middleware.RateLimit(300, 50))

	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.GET("/me", s.deps.Auth.Middleware(), authHandler.Me)
	}

	trips := v1.Group("/trips", s.deps.Auth.Middleware())
	{
		trips.POST("", tripsHandler.Create)
		trips.GET("", tripsHandler.List)
		trips.GET("/stats/overview", tripsHandler.Overview)
		trips.GET("/:id", tripsHandler.Get)
		trips.PUT("/:id", tripsHandler.Update)
		trips.DELETE("/:id", tripsHandler.Delete)

		trips.POST("/:id/itineraries", tripsHandler.CreateItinerary)
		trips.GET("/:id/itineraries", tripsHandler.ListItineraries)

		trips.POST("/:id/expenses", tripsHandler.CreateExpense)
		trips.GET("/:id/expenses", tripsHandler.ListExpenses)
		trips.GET("/:id/expenses/stats", tripsHandler.ExpenseStats)

		trips.POST("/:id/budgets", tripsHandler.CreateBudget)
		trips.GET("/:id/budgets", tripsHandler.ListBudgets)

		trips.POST("/ai/chat", tripAIHandler.Chat)
		trips.POST("/ai/confirm", tripAIHandler.Confirm)
	}

	budgets := v1.Group("/budgets", s.deps.Auth.Middleware())
	{
		budgets.PUT("/:id", tripsHandler.UpdateBudget)
		budgets.DELETE("/:id", tripsHandler.DeleteBudget)
	}

	expenses := v1.Group("/expenses", s.deps.Auth.Middleware())
	{
		expenses.GET("", expensesHandler.List)
		expenses.GET("/:id", expensesHandler.Get)
		expenses.PUT("/:id", expensesHandler.Update)
		expenses.DELETE("/:id", expensesHandler.Delete)
		expenses.POST("/ai/query", expensesHandler.AIQuery)
	}

	maps := v1.Group("/map")
	{
		maps.GET("/health", mapHandler.Health)

		protected := maps.Group("", s.deps.Auth.Middleware())
		protected.POST("/poi/search", mapHandler.SearchPOI)
		protected.POST("/route", mapHandler.CalculateRoute)
		protected.POST("/geocode", mapHandler.Geocode)
	}

	chat := v1.Group("/chat")
	{
		chat.GET("/health", chatHandler.Health)

		protected := chat.Group("", s.deps.Auth.Middleware())
		protected.POST("/stream", chatHandler.Stream)
		protected.POST("/simple", chatHandler.Simple)
		protected.GET("/test", chatHandler.Test)
		protected.GET("/agents", chatHandler.Agents)
		protected.POST("/agents/:id/stream", chatHandler.AgentStream)
	}
}

// Run serves HTTP until the context is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[API] listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Printf("[API] shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
