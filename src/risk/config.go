package risk

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MaxPositionSizePct float64 `envconfig:"MAX_POSITION_SIZE_PCT" default:"0.1"`
	MaxOrderValue      float64 `envconfig:"MAX_ORDER_VALUE" default:"50000"`
	DailyLossLimitPct  float64 `envconfig:"DAILY_LOSS_LIMIT_PCT" default:"0.02"`
	// MarketTimezone is the exchange's local trading calendar.
	MarketTimezone string `envconfig:"MARKET_TIMEZONE" default:"America/New_York"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
