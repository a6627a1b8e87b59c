package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"bank-cards/internal/auth"
	"bank-cards/internal/config"
	"bank-cards/internal/domain"
	"bank-cards/internal/handler"
	"bank-cards/internal/repository"
	"bank-cards/internal/service"
	"bank-cards/internal/vault"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	logger *slog.Logger
	port   string
}

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Store  domain.Store
	Cipher service.CardCipher
	Tokens *auth.TokenManager
	Hasher *auth.Hasher
	// Ping reports storage health for /health. Nil means always healthy.
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter wires services and handlers onto a router. Everything under
// /api except registration and login requires a bearer token.
func NewRouter(deps Dependencies) *mux.Router {
	logger := deps.Logger

	locks := service.NewCardLocks()
	cardService := service.NewCardService(deps.Store, deps.Cipher, locks, logger)
	transferService := service.NewTransferService(deps.Store, deps.Cipher, locks, logger)
	userService := service.NewUserService(deps.Store, deps.Hasher, deps.Tokens, logger)

	authHandler := handler.NewAuthHandler(userService)
	userHandler := handler.NewUserHandler(userService)
	cardHandler := handler.NewCardHandler(cardService)
	transferHandler := handler.NewTransferHandler(transferService)

	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/health", healthHandler(deps.Ping)).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	api.HandleFunc("/users/register", authHandler.Register).Methods("POST")

	protected := api.NewRoute().Subrouter()
	protected.Use(handler.Authenticator(deps.Tokens, logger))

	// User routes
	protected.HandleFunc("/users/me", userHandler.Me).Methods("GET")
	protected.HandleFunc("/users", userHandler.ListUsers).Methods("GET")
	protected.HandleFunc("/users/{id}", userHandler.DeleteUser).Methods("DELETE")

	// Card routes; /cards/all must precede /cards/{id}
	protected.HandleFunc("/cards", cardHandler.ListMyCards).Methods("GET")
	protected.HandleFunc("/cards", cardHandler.CreateCard).Methods("POST")
	protected.HandleFunc("/cards/all", cardHandler.ListAllCards).Methods("GET")
	protected.HandleFunc("/cards/{id}", cardHandler.GetCard).Methods("GET")
	protected.HandleFunc("/cards/{id}", cardHandler.DeleteCard).Methods("DELETE")
	protected.HandleFunc("/cards/{id}/block", cardHandler.BlockCard).Methods("POST")

	// Transfer routes
	protected.HandleFunc("/transfers", transferHandler.Transfer).Methods("POST")

	return router
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if ping != nil {
			if err := ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	cardVault, err := vault.New(cfg.CardEncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("card vault: %w", err)
	}

	if cfg.AutoMigrate {
		if err := repository.Migrate(cfg.GetDatabaseURL(), "up"); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Successfully connected to database")

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL())
	hasher := auth.NewHasher(cfg.BcryptCost)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		users := service.NewUserService(store, hasher, tokens, logger)
		if _, err := users.EnsureAdmin(context.Background(), cfg.AdminUsername, cfg.AdminPassword); err != nil {
			db.Close()
			return nil, fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	router := NewRouter(Dependencies{
		Store:  store,
		Cipher: cardVault,
		Tokens: tokens,
		Hasher: hasher,
		Ping:   db.PingContext,
		Logger: logger,
	})

	return &Server{
		router: router,
		db:     db,
		logger: logger,
	}, nil
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server, then closes the database.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.db != nil {
		s.db.Close()
	}
	return err
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger returns the process logger: JSON to stdout, or a discard logger
// when the server runs on an ephemeral port under test.
func NewLogger(cfg *config.Config) *slog.Logger {
	if cfg.ServerPort == "0" {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	server, err := NewServer(cfg, NewLogger(cfg))
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
