package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"mybank-ledger/internal/config"
	"mybank-ledger/internal/domain"
	"mybank-ledger/internal/events"
	"mybank-ledger/internal/events/kafka"
	"mybank-ledger/internal/handler"
	"mybank-ledger/internal/repository"
	"mybank-ledger/internal/repository/memory"
	"mybank-ledger/internal/service"
	"mybank-ledger/internal/settlement"
)

// Server wires the store, settlement adapter and event publisher behind
// the HTTP routes.
type Server struct {
	router    *mux.Router
	server    *http.Server
	db        *sql.DB
	publisher events.Publisher
	logger    *slog.Logger
	port      string
}

func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	var (
		store domain.Store
		db    *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("connected to database")
		store = repository.NewStore(db, logger)
	} else {
		logger.Info("no DATABASE_URL configured, using in-memory store")
		store = memory.NewStore()
	}

	var adapter settlement.Adapter
	if cfg.SettlementBaseURL != "" {
		adapter = settlement.NewClient(settlement.ClientConfig{
			BaseURL:      cfg.SettlementBaseURL,
			TokenURL:     cfg.SettlementTokenURL,
			ClientID:     cfg.SettlementClientID,
			ClientSecret: cfg.SettlementClientSecret,
			ConsentID:    cfg.SettlementConsentID,
			Scope:        cfg.SettlementScope,
			ResourceEnv:  cfg.SettlementResourceEnv,
		})
	} else {
		logger.Info("no SETTLEMENT_BASE_URL configured, using local settlement")
		adapter = settlement.NewLocalBank()
	}

	var publisher events.Publisher
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		publisher = kafka.NewPublisher(brokers, cfg.TransferEventTopic)
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	ledgerService := service.NewLedgerService(store, logger)
	accountService := service.NewAccountService(store, cfg.BankCode, cfg.BankName, logger)
	transferService := service.NewTransferService(store, ledgerService, adapter, publisher, cfg.TransferEventTopic, logger)
	syncService := service.NewSyncService(store, adapter, logger)

	accountHandler := handler.NewAccountHandler(accountService)
	transferHandler := handler.NewTransferHandler(transferService, accountService)
	transactionHandler := handler.NewTransactionHandler(syncService, store)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.HandleFunc("/accounts", accountHandler.CreateAccount).Methods("POST")
	router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	router.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	router.HandleFunc("/accounts/{account_id}/sync-transactions", transactionHandler.SyncTransactions).Methods("POST")

	router.HandleFunc("/transfers", transferHandler.CreateTransfer).Methods("POST")
	router.HandleFunc("/transfers/{transfer_id}", transferHandler.GetTransfer).Methods("GET")
	router.HandleFunc("/transfers/{transfer_id}/send", transferHandler.ResendTransfer).Methods("POST")
	router.HandleFunc("/transfers/by-account/{account_id}", transferHandler.ListTransfersByAccount).Methods("GET")

	router.HandleFunc("/transactions/recent", transactionHandler.ListRecentTransactions).Methods("GET")
	router.HandleFunc("/transactions/by-account/{account_id}", transactionHandler.ListTransactionsByAccount).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.Ping(); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:    router,
		db:        db,
		publisher: publisher,
		logger:    logger,
	}, nil
}

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

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on the given port. Port "0" picks a free port; the actual
// port is returned for tests.
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

	s.logger.Info("starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("server failed", "error", err)
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server and closes its resources.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if closer, ok := s.publisher.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if s.db != nil {
		s.db.Close()
	}
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) GetPort() string {
	return s.port
}

func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer builds and starts a server from configuration.
func StartServer(cfg config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
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
