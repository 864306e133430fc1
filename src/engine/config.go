package engine

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// MaxRetries bounds both the inline placement retries and the number of
	// out-of-band recovery attempts per failed trade.
	MaxRetries  int             `envconfig:"MAX_RETRIES" default:"3"`
	RetryDelays []time.Duration `envconfig:"RETRY_DELAYS" default:"2s,5s,10s"`

	RecoveryInterval time.Duration `envconfig:"RECOVERY_INTERVAL" default:"5m"`
	// RecoveryPause bounds log and API pressure between recovered records.
	RecoveryPause time.Duration `envconfig:"RECOVERY_PAUSE" default:"1s"`

	PollInterval time.Duration `envconfig:"POLL_INTERVAL" default:"5s"`
	PollBudget   int           `envconfig:"POLL_BUDGET" default:"10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// retryDelay picks the backoff for the given zero-based attempt, clamping to
// the last configured delay.
func (c Config) retryDelay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return time.Second
	}
	if attempt >= len(c.RetryDelays) {
		attempt = len(c.RetryDelays) - 1
	}
	return c.RetryDelays[attempt]
}
