package engine

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
	"tradeengine/src/signal"
)

// recoveryLoop periodically re-drives failed trades through the execution
// pipeline until they resolve or exhaust their retry budget.
func (e *Engine) recoveryLoop() {
	defer e.wg.Done()

	for {
		if sleepCtx(e.ctx, e.cfg.RecoveryInterval) != nil {
			return
		}
		e.recoverFailedTrades(e.ctx)
	}
}

// recoverFailedTrades processes every recoverable failed trade oldest first,
// pausing between records so a long backlog does not hammer the broker.
func (e *Engine) recoverFailedTrades(ctx context.Context) {
	records, err := e.failedTrades.ListRecoverable(ctx, e.cfg.MaxRetries)
	if err != nil {
		logger.WithError(err).Error("Failed to list recoverable trades")
		return
	}
	if len(records) == 0 {
		return
	}

	logger.WithField("count", len(records)).Info("Recovering failed trades")

	for i := range records {
		e.recoverOne(ctx, &records[i])

		if sleepCtx(ctx, e.cfg.RecoveryPause) != nil {
			return
		}
	}
}

func (e *Engine) recoverOne(ctx context.Context, rec *model.FailedTrade) {
	log := logger.WithFields(map[string]interface{}{
		"failed_trade_id": rec.ID,
		"attempt":         rec.RetryCount + 1,
	})
	log.Info("Retrying failed trade")

	sig, err := signal.Deserialize(rec.TradeSignal)
	if err != nil {
		// A payload that no longer deserializes can never succeed; retrying
		// it would burn budget forever.
		log.WithError(err).Error("Failed trade payload is invalid, abandoning")
		if mErr := e.failedTrades.MarkTerminal(ctx, rec.ID, model.FailedTradeStatusFailed); mErr != nil {
			log.WithError(mErr).Error("Failed to mark trade as failed")
		}
		e.logError("", model.ErrorTypeRecovery, "invalid failed-trade payload: "+err.Error(),
			map[string]interface{}{"failed_trade_id": rec.ID})
		return
	}

	if sleepCtx(ctx, e.cfg.retryDelay(rec.RetryCount)) != nil {
		return
	}

	if _, err := e.execute(ctx, sig); err != nil {
		if ctx.Err() != nil {
			return
		}

		if !recoverable(err) || rec.RetryCount+1 >= e.cfg.MaxRetries {
			log.WithError(err).Warn("Failed trade exhausted its retry budget")
			if mErr := e.failedTrades.MarkTerminal(ctx, rec.ID, model.FailedTradeStatusFailed); mErr != nil {
				log.WithError(mErr).Error("Failed to mark trade as failed")
			}
			return
		}

		log.WithError(err).Warn("Failed trade retry unsuccessful")
		if mErr := e.failedTrades.MarkRetry(ctx, rec.ID, err.Error()); mErr != nil {
			log.WithError(mErr).Error("Failed to record retry")
		}
		return
	}

	log.Info("Failed trade recovered")
	if mErr := e.failedTrades.MarkTerminal(ctx, rec.ID, model.FailedTradeStatusResolved); mErr != nil {
		log.WithError(mErr).Error("Failed to mark trade as resolved")
	}
}
