package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/config"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/db/kvdb"
	"github.com/meghashyamc/bufsearch/db/resultdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/services/broadcast"
	"github.com/meghashyamc/bufsearch/services/search"
	"github.com/meghashyamc/bufsearch/services/session"
	"github.com/meghashyamc/bufsearch/validation"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	cfg        *config.Config
	router     *gin.Engine
	httpServer *http.Server
	kvdb       kvdb.DB
	buffers    bufferdb.DB
	results    resultdb.DB
	hub        *broadcast.Hub
	search     *search.Service
	sessions   *session.Service
	validator  *validation.Validator
	logger     logger.Logger
}

// Run serves the HTTP API until ctx is cancelled or an interrupt arrives.
func Run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	s := &server{
		cfg:    cfg,
		logger: logger.New(cfg.GetLogLevel()),
	}
	if err := s.setupDependencies(); err != nil {
		return err
	}
	defer s.kvdb.Close()

	s.restoreSession()
	s.setupRouter()
	s.setupHTTPServer()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.hub.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server failed", "err", err.Error())
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		return s.shutdown()
	})

	return group.Wait()
}

func (s *server) setupDependencies() error {
	var err error
	s.kvdb, err = kvdb.New(s.logger, s.cfg.GetKVDBPath())
	if err != nil {
		s.logger.Error("error creating kvDB", "err", err.Error())
		return err
	}
	s.validator, err = validation.New(s.logger)
	if err != nil {
		s.logger.Error("error creating validator", "err", err.Error())
		s.kvdb.Close()
		return err
	}

	s.buffers = bufferdb.New(s.logger)
	s.results = resultdb.New(s.logger)
	s.hub = broadcast.New(s.logger)
	s.search = search.New(s.logger, s.buffers, s.results, s.hub)
	s.sessions = session.New(s.logger, s.buffers, s.kvdb, s.cfg.GetMaxBufferSize())

	return nil
}

func (s *server) restoreSession() {
	if _, err := s.sessions.Restore(); err != nil {
		s.logger.Warn("starting with an empty session", "err", err.Error())
	}
}

func (s *server) setupRouter() {
	router := newRouter()

	router.Use(loggingMiddleware(s.logger))

	s.setupRoutes(router)

	s.router = router
}

func (s *server) setupHTTPServer() {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.GetPort()),
		Handler: s.router.Handler(),
	}
}

func (s *server) shutdown() error {
	s.logger.Info("starting to shut down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("error shutting down http server", "err", err)
		return err
	}
	s.logger.Info("shut down http server successfully")
	return nil
}
