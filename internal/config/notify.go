package config

import "github.com/caarlos0/env/v11"

type NotifyConfig struct {
	Workers          int     `env:"NOTIFY_WORKERS" envDefault:"2"`
	RetryMax         int     `env:"NOTIFY_RETRY_MAX" envDefault:"3"`
	RetryBaseMS      int     `env:"NOTIFY_RETRY_BASE_MS" envDefault:"500"`
	RatePerSec       float64 `env:"NOTIFY_RATE_PER_SEC" envDefault:"4"`
	TopicFlushMS     int     `env:"NOTIFY_TOPIC_FLUSH_MS" envDefault:"300000"`
	RequestTimeoutMS int     `env:"NOTIFY_REQUEST_TIMEOUT_MS" envDefault:"5000"`
	FailureThreshold int     `env:"NOTIFY_FAILURE_THRESHOLD" envDefault:"3"`
	CircuitOpenMS    int     `env:"NOTIFY_CIRCUIT_OPEN_MS" envDefault:"30000"`
	DispatchBuffer   int     `env:"NOTIFY_DISPATCH_BUFFER" envDefault:"512"`
}

func LoadNotify() (NotifyConfig, error) {
	var cfg NotifyConfig
	err := env.Parse(&cfg)
	return cfg, err
}
