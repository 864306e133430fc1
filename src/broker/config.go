package broker

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL        string        `envconfig:"APCA_API_BASE_URL" default:"https://paper-api.alpaca.markets"`
	StreamURL      string        `envconfig:"APCA_STREAM_URL" default:"wss://paper-api.alpaca.markets/stream"`
	APIKeyID       string        `envconfig:"APCA_API_KEY_ID"`
	APISecretKey   string        `envconfig:"APCA_API_SECRET_KEY"`
	RequestTimeout time.Duration `envconfig:"BROKER_REQUEST_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
