package server

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bitterfly/go-chaos/fabrica/config"
	"github.com/bitterfly/go-chaos/fabrica/game"
	"github.com/bitterfly/go-chaos/fabrica/portal"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	Mux      *mux.Router
	Server   *http.Server
	DB       *gorm.DB
	Token    Token
	Config   *config.Config
	Portal   *portal.Client
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
	Upgrader websocket.Upgrader

	newSlug func(name string) string
}

func New(db *gorm.DB, cfg *config.Config, logger *zap.SugaredLogger) *Server {
	s := &Server{
		DB:      db,
		Mux:     mux.NewRouter(),
		Token:   NewToken(cfg.TokenSecret),
		Config:  cfg,
		Portal:  portal.NewClient(cfg.Portal.URL, cfg.Portal.Path, time.Duration(cfg.Portal.Timeout)),
		Clock:   clock.New(),
		Logger:  logger,
		newSlug: game.NewSlug,
	}
	s.Upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Mux.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	s.Mux.HandleFunc("/api/layouts", s.handleLayouts).Methods("GET")
	s.Mux.HandleFunc("/api/games", s.handleKinds).Methods("GET")
	s.Mux.HandleFunc("/api/embed/{kind}/{slug}", s.handleEmbed)
	s.Mux.HandleFunc("/game/{kind}/{slug}", s.handleGamePage).Methods("GET")

	authRouter := s.Mux.NewRoute().Subrouter()
	authRouter.Use(s.authHandler)
	authRouter.HandleFunc("/api/{kind}", s.handleCreate).Methods("POST")
	authRouter.HandleFunc("/api/{kind}/{slug}", s.handleUpdate).Methods("PUT")
	authRouter.HandleFunc("/api/{kind}/{slug}", s.handleDelete).Methods("DELETE")

	s.Mux.HandleFunc("/api/{kind}", s.handleList).Methods("GET")
	s.Mux.HandleFunc("/api/{kind}/{slug}", s.handleGet).Methods("GET")
	s.Mux.Use(mux.CORSMethodMiddleware(s.Mux))
}

// Handler wraps the router with CORS and access logging.
func (s *Server) Handler() http.Handler {
	allowedOrigins := handlers.AllowedOrigins(s.Config.AllowedOrigins)
	allowedMethods := handlers.AllowedMethods([]string{"POST", "PUT", "DELETE", "OPTIONS", "GET"})
	allowedHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})

	return handlers.LoggingHandler(os.Stderr, handlers.CORS(
		allowedOrigins,
		allowedMethods,
		allowedHeaders)(s.Mux))
}

func (s *Server) Connect(address string) error {
	s.Server = &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Logger.Infof("Starting server on %s", address)
	if err := s.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("error connecting to server %s: %w", address, err)
	}
	return nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.Config.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
