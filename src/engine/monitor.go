package engine

import (
	logger "github.com/sirupsen/logrus"

	"tradeengine/src/model"
)

// monitorOrder polls one submitted order until it reaches a terminal status
// or the poll budget runs out. Every poll result is written through the
// ledger, so partial fills are visible while the order is still working.
//
// A budget exhausted without resolution leaves the order in submitted and
// records a status_check_timeout entry; the active-order index keeps the
// entry so shutdown can attempt one final status fetch.
func (e *Engine) monitorOrder(orderID, clientID string) {
	defer e.monitors.Done()

	log := logger.WithFields(map[string]interface{}{
		"order_id": orderID,
	})

	for attempt := 0; attempt < e.cfg.PollBudget; attempt++ {
		info, err := e.broker.GetOrderStatus(e.ctx, orderID)
		if err != nil {
			if e.ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("Order status poll failed")
		} else {
			order := orderModel(info)
			updateErr := e.orders.Update(e.ctx, order)
			if updateErr != nil {
				// Keep the tracking entry: shutdown's final status pass, or
				// the next poll, gets another chance to persist it.
				log.WithError(updateErr).Error("Failed to persist order status")
			}

			if updateErr == nil && order.Status == model.OrderStatusFilled {
				log.WithFields(map[string]interface{}{
					"filled_qty": order.FilledQty,
					"avg_price":  order.ExecutionPrice,
				}).Info("Order filled")

				e.refreshDailyPnL(e.ctx)
				e.active.remove(clientID)
				return
			}

			if updateErr == nil && model.TerminalOrderStatus(order.Status) {
				log.WithField("status", order.Status).Info("Order reached terminal status")
				e.active.remove(clientID)
				return
			}
		}

		if sleepCtx(e.ctx, e.cfg.PollInterval) != nil {
			return
		}
	}

	log.Warn("Order status unresolved after poll budget")
	e.logError(orderID, model.ErrorTypeStatusTimeout,
		"order status unresolved after poll budget, order left submitted", nil)
}
