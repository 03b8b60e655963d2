package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"DevAmp/config"
	"DevAmp/logger"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     sameOrigin,
}

// Server is the loopback UI bridge: JSON API, websocket hub and static UI.
type Server struct {
	cfg    *config.Config
	player Player
	hub    *Hub
	api    *APIHandler
	router *mux.Router
}

// New wires the routes for p. The hub must be running.
func New(cfg *config.Config, p Player, hub *Hub) *Server {
	s := &Server{
		cfg:    cfg,
		player: p,
		hub:    hub,
		api:    NewAPIHandler(p),
	}
	s.router = s.routes()
	return s
}

// SetSurface lets the UI size the visualizer frames it receives.
func (s *Server) SetSurface(sf Surface) {
	s.api.surface = sf
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(originMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.api.GetStateHandler).Methods(http.MethodGet)
	api.HandleFunc("/playlist", s.api.AddTracksHandler).Methods(http.MethodPost)
	api.HandleFunc("/playlist/{index:[0-9]+}/select", s.api.SelectTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/playlist/{index:[0-9]+}", s.api.RemoveTrackHandler).Methods(http.MethodDelete)
	api.HandleFunc("/transport/{action}", s.api.TransportHandler).Methods(http.MethodPost)
	api.HandleFunc("/volume", s.api.VolumeHandler).Methods(http.MethodPut)
	api.HandleFunc("/seek", s.api.SeekHandler).Methods(http.MethodPut)
	api.HandleFunc("/eq", s.api.EqHandler).Methods(http.MethodPut)
	api.HandleFunc("/keys", s.api.KeyHandler).Methods(http.MethodPost)
	api.HandleFunc("/visualizer/size", s.api.SurfaceSizeHandler).Methods(http.MethodPut)

	router.HandleFunc("/ws", s.ServeWS).Methods(http.MethodGet)

	// Frontend UI serving
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.cfg.WebAppDir)))
	return router
}

// sameOrigin accepts requests without an Origin header, such as the
// terminal or curl, and requests from pages served by this bridge.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// originMiddleware refuses requests made by pages from other origins. No
// CORS headers are sent, so browsers also block preflighted requests.
func originMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			logger.Warn("cross-origin request refused",
				logger.String("origin", r.Header.Get("Origin")),
				logger.String("path", r.URL.Path))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServeWS upgrades the request and attaches the connection to the hub. The
// client receives the current snapshot straight away.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	client := NewClient(s.hub, conn)
	if !s.hub.Register(client) {
		conn.Close()
		return
	}
	if err := client.SendMessage(MsgTypeState, s.player.Snapshot()); err != nil {
		logger.Warn("send initial state", logger.ErrorField(err))
	}

	go client.WritePump()
	go client.ReadPump(s.player)
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("UI bridge listening", logger.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down UI bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
