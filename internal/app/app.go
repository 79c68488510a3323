package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/tinymines/internal/config"
	"github.com/vancomm/tinymines/internal/middleware"
	"github.com/vancomm/tinymines/internal/mines"
	"github.com/vancomm/tinymines/internal/session"
)

type App struct {
	log    *logrus.Logger
	config *config.Config
	router *http.ServeMux
	store  *session.Store
	jwt    *config.JWT
	ws     *config.WebSocket
}

func New(log *logrus.Logger, cfg *config.Config) (*App, error) {
	jwt, err := config.NewJWT(cfg.Jwt)
	if err != nil {
		return nil, err
	}

	app := &App{
		log:    log,
		config: cfg,
		router: http.NewServeMux(),
		store:  session.NewStore(mines.NewRand(), cfg.Session.TTL.Duration, cfg.Game.MaxCells),
		jwt:    jwt,
		ws:     config.NewWebSocket(),
	}
	app.loadRoutes()

	return app, nil
}

func (a *App) Handler() http.Handler {
	return middleware.Wrap(
		a.router,
		middleware.Auth(a.log, a.jwt),
		middleware.Logging(a.log),
		middleware.Cors(),
	)
}

// Start serves until ctx is done or the listener fails.
func (a *App) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:    a.config.Addr,
		Handler: a.Handler(),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	a.log.Infof("ready to serve @ %s", a.config.Addr)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return a.store.RunJanitor(gCtx, a.config.Session.SweepInterval.Duration)
	})

	return g.Wait()
}
