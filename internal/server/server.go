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
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"account-ledger/internal/allocator"
	"account-ledger/internal/auth"
	"account-ledger/internal/config"
	"account-ledger/internal/credential"
	"account-ledger/internal/domain"
	"account-ledger/internal/handler"
	"account-ledger/internal/repository"
	"account-ledger/internal/repository/memory"
	"account-ledger/internal/service"
	"account-ledger/migrations"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	store  domain.Store
	logger *slog.Logger
	port   string
}

// NewServer wires storage, services and routes from cfg.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}

	hasher, err := credential.New(cfg.PinHasher, cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	var (
		db    *sql.DB
		store domain.Store
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("Using in-memory store, data will not survive a restart")
		store = memory.NewStore(logger)
	default:
		db, err = openDatabase(cfg, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := repository.Migrate(context.Background(), db, migrations.FS, logger); err != nil {
				db.Close()
				return nil, err
			}
		}
		store = repository.NewStore(db, logger)
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)

	accountService := service.NewAccountService(store, hasher, allocator.New(policy.MaxAllocationAttempts, logger), policy, logger)
	transactionService := service.NewTransactionService(store, policy, logger)

	accountHandler := handler.NewAccountHandler(accountService, tokens)
	transactionHandler := handler.NewTransactionHandler(transactionService)

	router := mux.NewRouter()
	router.Use(recoverMiddleware(logger))
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/login", accountHandler.Login).Methods("POST")

	protected := router.PathPrefix("/accounts/{account_number}").Subrouter()
	protected.Use(handler.RequireSession(tokens))
	protected.HandleFunc("/balance", accountHandler.GetBalance).Methods("GET")
	protected.HandleFunc("/deposits", transactionHandler.Deposit).Methods("POST")
	protected.HandleFunc("/withdrawals", transactionHandler.Withdraw).Methods("POST")
	protected.HandleFunc("/transfers", transactionHandler.Transfer).Methods("POST")
	protected.HandleFunc("/transactions", transactionHandler.GetHistory).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := store.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router: router,
		db:     db,
		store:  store,
		logger: logger,
	}, nil
}

// openDatabase connects to Postgres, retrying while the database starts up.
func openDatabase(cfg *config.Config, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	attempts := cfg.DBConnectAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			break
		}
		if attempt >= attempts {
			db.Close()
			return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, err)
		}
		logger.Warn("Database not ready, retrying", "attempt", attempt, "error", err)
		time.Sleep(cfg.DBConnectInterval)
	}

	logger.Info("Successfully connected to database")
	return db, nil
}

func recoverMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic serving request", "panic", rec, "path", r.URL.Path, "stack", string(debug.Stack()))
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]map[string]string{
						"error": {"code": "internal_error", "message": "an unexpected error occurred"},
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
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
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
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

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Test environment
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
