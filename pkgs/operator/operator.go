package operator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// request limits
const (
	generalLimit = 50000
	peerLimit    = 20000
	routeLimit   = 500
	timePeriod   = time.Minute
)

// Server structure for a node: http server, router and the ceremony switch
type Server struct {
	Logger     *zap.Logger  // logger
	HttpServer *http.Server // http server
	Router     chi.Router   // http router
	State      *Switch      // event loop owning the ceremonies
}

const ErrTooManyRouteRequests = `{"error": "too many requests to /route"}`

// New creates the Switch and registers the routes. gatherer may be nil to disable /metrics.
func New(opts *SwitchOpts, gatherer prometheus.Gatherer) (*Server, error) {
	swtch, err := NewSwitch(opts)
	if err != nil {
		return nil, err
	}
	s := &Server{
		Logger: opts.Logger,
		Router: chi.NewRouter(),
		State:  swtch,
	}
	RegisterRoutes(s, gatherer)
	return s, nil
}

// Start runs the ceremony loop and a http server at the specified port until ctx is done
func (s *Server) Start(ctx context.Context, port uint16) error {
	srv := &http.Server{Addr: fmt.Sprintf(":%v", port), Handler: s.Router, ReadHeaderTimeout: 10_000 * time.Millisecond}
	s.HttpServer = srv

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- s.State.Run(ctx)
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.Logger.Error("failed to shutdown http server", zap.Error(err))
		}
	}()

	s.Logger.Info("✅ Server is listening for incoming requests", zap.Uint16("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-loopErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
