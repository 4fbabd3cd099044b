package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/techagentng/achat/config"
	"github.com/techagentng/achat/db"
	"github.com/techagentng/achat/mailingservices"
	"github.com/techagentng/achat/services"
	"go.uber.org/zap"
)

type Server struct {
	Config            *config.Config
	Logger            *zap.SugaredLogger
	Mail              *mailingservices.Mailgun
	AuthService       services.AuthService
	Identity          services.IdentityProvider
	ChatRepository    db.ChatRepository
	TimelineService   services.TimelineService
	ComposerService   services.ComposerService
	PresenceService   services.PresenceService
	AccountService    services.AccountService
	AttachmentService services.AttachmentService
	Hub               *Hub
}

// Start runs the websocket hub, the store subscription loop and the HTTP
// server, then blocks until a shutdown signal drains everything.
func (s *Server) Start() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.Hub == nil {
		s.Hub = NewHub(s.Logger)
	}
	go s.Hub.Run(ctx)
	go s.runSync(ctx)

	r := s.setupRouter()
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.Config.Port),
		Handler: r,
	}

	go func() {
		s.Logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	s.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.Logger.Errorf("server shutdown: %v", err)
	}
}
