package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/engine"
	"tradeengine/src/handler"
	"tradeengine/src/repository"
)

// Deps are the engine-side collaborators the HTTP surface exposes.
type Deps struct {
	Engine       *engine.Engine
	Orders       *repository.OrderRepository
	FailedTrades *repository.FailedTradeRepository
	ErrorLog     *repository.ErrorLogRepository
}

// Server is the operational HTTP surface: signal intake plus read access to
// the order ledger, the recovery queue and the error log.
type Server struct {
	srv *http.Server
}

func New(cfg *Config, deps Deps) *Server {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" error")
		}
	})

	r.Post("/signals", handler.SubmitSignalHandler(deps.Engine))

	r.Get("/orders", handler.LatestOrdersHandler(deps.Orders))
	r.Get("/orders/{orderID}", handler.GetOrderHandler(deps.Orders))
	r.Delete("/orders", handler.CancelAllOrdersHandler(deps.Engine))

	r.Get("/portfolio", handler.PortfolioHandler(deps.Engine))
	r.Delete("/positions", handler.LiquidateAllHandler(deps.Engine))
	r.Delete("/positions/{ticker}", handler.LiquidatePositionHandler(deps.Engine))

	r.Get("/failed-trades", handler.LatestFailedTradesHandler(deps.FailedTrades))
	r.Get("/error-log", handler.LatestErrorLogHandler(deps.ErrorLog))
	r.Get("/metrics/executions", handler.ListExecutionMetricsHandler(deps.Orders))

	return &Server{
		srv: &http.Server{
			Addr:    ":" + cfg.Port,
			Handler: r,
		},
	}
}

// Start serves in a background goroutine and returns immediately.
func (s *Server) Start() {
	go func() {
		logger.Infof("Listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
