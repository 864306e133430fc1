package engine

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tradeengine/src/broker"
	"tradeengine/src/database"
	execengine "tradeengine/src/engine"
	"tradeengine/src/repository"
	"tradeengine/src/risk"
	"tradeengine/src/server"
)

// Runner wires the execution engine, its HTTP surface and the optional
// trade-updates stream, and keeps them alive until SIGINT or SIGTERM.
type Runner struct{}

func (t *Runner) Start() error {
	config := GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	brokerConfig := broker.GetConfig()
	brokerClient := broker.NewAlpacaClient(brokerConfig)
	gate := risk.NewGate(risk.GetConfig())

	orders := repository.NewOrderRepository()
	failedTrades := repository.NewFailedTradeRepository()
	errorLog := repository.NewErrorLogRepository()

	eng := execengine.New(
		execengine.GetConfig(),
		brokerClient,
		gate,
		orders,
		failedTrades,
		errorLog,
	)

	if config.StreamEnabled {
		stream := broker.NewStream(brokerConfig)
		go func() {
			if err := stream.Run(ctx, eng.HandleStreamUpdate); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Trade-updates stream stopped")
			}
		}()
	}

	srv := server.New(server.GetConfig(), server.Deps{
		Engine:       eng,
		Orders:       orders,
		FailedTrades: failedTrades,
		ErrorLog:     errorLog,
	})
	srv.Start()

	<-ctx.Done()
	logrus.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	eng.Shutdown()

	return nil
}

// Liquidate sells one position, or all of them when ticker is empty, then
// shuts the engine down.
func (t *Runner) Liquidate(ticker string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	brokerClient := broker.NewAlpacaClient(broker.GetConfig())
	gate := risk.NewGate(risk.GetConfig())

	eng := execengine.New(
		execengine.GetConfig(),
		brokerClient,
		gate,
		repository.NewOrderRepository(),
		repository.NewFailedTradeRepository(),
		repository.NewErrorLogRepository(),
	)
	defer eng.Shutdown()

	if ticker != "" {
		order, err := eng.LiquidatePosition(ctx, ticker)
		if err != nil {
			return err
		}
		logrus.WithFields(map[string]interface{}{
			"ticker":   ticker,
			"order_id": order.OrderID,
		}).Info("Liquidation order submitted")
		return nil
	}

	results, err := eng.LiquidateAllPositions(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		if res.Err != nil {
			logrus.WithError(res.Err).
				WithField("ticker", res.Ticker).
				Error("Liquidation failed")
			continue
		}
		logrus.WithFields(map[string]interface{}{
			"ticker":   res.Ticker,
			"order_id": res.Order.OrderID,
		}).Info("Liquidation order submitted")
	}

	return nil
}
