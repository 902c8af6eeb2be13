package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dukerupert/toolshub/internal/backup"
	"github.com/dukerupert/toolshub/internal/handler"
	"github.com/dukerupert/toolshub/internal/middleware"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
	ws "github.com/dukerupert/toolshub/internal/websocket"
)

var (
	authLimit = middleware.Limit{Requests: 10, Window: time.Minute}
	rpcLimit  = middleware.Limit{Requests: 120, Window: time.Minute}
)

type Config struct {
	BaseURL            string
	PlatformFeePercent int64
	Processor          handler.Processor
	Mailer             handler.Mailer
	Sealer             store.Sealer
	Backup             backup.Config
}

type Server struct {
	hub           *ws.Hub
	authH         *handler.AuthHandler
	listingH      *handler.ListingHandler
	rentalH       *handler.RentalHandler
	connectH      *handler.ConnectHandler
	checkoutH     *handler.CheckoutHandler
	webhookH      *handler.WebhookHandler
	landingH      *handler.LandingHandler
	sessionStore  *store.SessionStore
	userStore     *store.UserStore
	checkoutStore *store.CheckoutStore
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	originHosts   []string
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	toolStore := store.NewToolStore(db)
	listingStore := store.NewListingStore(db)
	rentalStore := store.NewRentalStore(db, cfg.Sealer)
	checkoutStore := store.NewCheckoutStore(db)
	backupStore := store.NewBackupStore(db)

	var origins []string
	if u, err := url.Parse(cfg.BaseURL); err == nil && u.Host != "" {
		origins = append(origins, u.Host)
	}

	return &Server{
		hub:           hub,
		authH:         handler.NewAuthHandler(userStore, sessionStore, cfg.BaseURL, logger),
		listingH:      handler.NewListingHandler(listingStore, toolStore, userStore, hub, logger),
		rentalH:       handler.NewRentalHandler(rentalStore, hub, logger),
		connectH:      handler.NewConnectHandler(userStore, cfg.Processor, logger),
		checkoutH:     handler.NewCheckoutHandler(listingStore, userStore, checkoutStore, cfg.Processor, cfg.PlatformFeePercent, logger),
		webhookH:      handler.NewWebhookHandler(cfg.Processor, checkoutStore, rentalStore, listingStore, userStore, cfg.Mailer, hub, logger),
		landingH:      handler.NewLandingHandler(cfg.BaseURL, logger),
		sessionStore:  sessionStore,
		userStore:     userStore,
		checkoutStore: checkoutStore,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backup.NewManager(cfg.Backup, db, backupStore, logger),
		originHosts:   origins,
		logger:        logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// CheckoutStore returns the checkout store for expiry sweeps.
func (s *Server) CheckoutStore() *store.CheckoutStore {
	return s.checkoutStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /toolshub", s.landingH.Page)
	mux.HandleFunc("POST /webhooks/stripe", s.webhookH.HandleStripeWebhook)

	optional := middleware.OptionalAuth(s.sessionStore, s.userStore)
	mux.Handle("GET /toolshub/ws", optional(ws.HandleWebSocket(s.hub, s.originHosts, s.logger)))

	// Public RPC
	byIP := middleware.RateLimit(s.rateLimiter, middleware.ByIP, authLimit)
	mux.Handle("POST "+rpc.PathPrefix+rpc.Login, byIP(http.HandlerFunc(s.authH.Login)))
	mux.Handle("POST "+rpc.PathPrefix+rpc.Signup, byIP(http.HandlerFunc(s.authH.Signup)))

	// Authenticated RPC
	protected := http.NewServeMux()
	s.registerRPC(protected)
	requireAuth := middleware.RequireAuth(s.sessionStore, s.userStore)
	byUser := middleware.RateLimit(s.rateLimiter, middleware.ByUser, rpcLimit)
	mux.Handle(rpc.PathPrefix, requireAuth(byUser(protected)))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) registerRPC(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		rpc.Logout:                      s.authH.Logout,
		rpc.Me:                          s.authH.Me,
		rpc.GetRentListings:             s.listingH.GetRentListings,
		rpc.GetTools:                    s.listingH.GetTools,
		rpc.CreateRentListing:           s.listingH.CreateRentListing,
		rpc.ToggleListingActive:         s.listingH.ToggleListingActive,
		rpc.GetRentedTools:              s.rentalH.GetRentedTools,
		rpc.GetRentedOutTools:           s.rentalH.GetRentedOutTools,
		rpc.UpdateRentedToolCredentials: s.rentalH.UpdateRentedToolCredentials,
		rpc.GetUserStripeAccount:        s.connectH.GetUserStripeAccount,
		rpc.ValidateConnectAccount:      s.connectH.ValidateConnectAccount,
		rpc.CreateConnectAccount:        s.connectH.CreateConnectAccount,
		rpc.ProcessRentPayment:          s.checkoutH.ProcessRentPayment,
	}
	for name, h := range routes {
		mux.HandleFunc("POST "+rpc.PathPrefix+name, h)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
