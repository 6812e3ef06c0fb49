package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type BotConfig struct {
	DiscordBotToken   string `env:"DISCORD_BOT_TOKEN,required,notEmpty"`
	DiscordAPIBase    string `env:"DISCORD_API_BASE" envDefault:"https://discord.com/api/v10"`
	DiscordGatewayURL string `env:"DISCORD_GATEWAY_URL" envDefault:"wss://gateway.discord.gg/?v=10&encoding=json"`
	LocationsPath     string `env:"LOCATIONS_PATH,required,notEmpty"`

	RefreshIntervalMS int    `env:"REFRESH_INTERVAL_MS" envDefault:"60000"`
	FetchTimeoutMS    int    `env:"FETCH_TIMEOUT_MS" envDefault:"15000"`
	CabCapacity       int    `env:"CAB_CAPACITY" envDefault:"7"`
	SourceBaseURL     string `env:"SOURCE_BASE_URL" envDefault:"https://p.eagate.573.jp"`
}

func (c BotConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalMS <= 0 {
		return time.Minute
	}
	return time.Duration(c.RefreshIntervalMS) * time.Millisecond
}

func (c BotConfig) FetchTimeout() time.Duration {
	if c.FetchTimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	err := env.Parse(&cfg)
	return cfg, err
}
