package engine

import (
	"errors"

	"tradeengine/src/model"
	"tradeengine/src/risk"
	"tradeengine/src/signal"
)

// classifyError maps a failure to its error_log type.
func classifyError(err error) string {
	var verr *signal.ValidationError
	if errors.As(err, &verr) {
		return model.ErrorTypeValidation
	}

	var mce *risk.MarketClosedError
	var rle *risk.RiskLimitExceededError
	var dle *risk.DailyLossLimitError
	if errors.As(err, &mce) || errors.As(err, &rle) || errors.As(err, &dle) {
		return model.ErrorTypeRiskRejection
	}

	return model.ErrorTypeTransport
}

// recoverable reports whether the recovery task should keep retrying a
// persisted failure. Malformed signals can never become valid; business
// rejections (market closed, risk caps, daily loss) are time-dependent and
// stay retryable on the recovery cadence, as do transport failures.
func recoverable(err error) bool {
	var verr *signal.ValidationError
	return !errors.As(err, &verr)
}
