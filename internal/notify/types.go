package notify

import (
	"time"

	"cabwatch/internal/config"
	"cabwatch/internal/notify/platforms"
)

const (
	TFTIChannel = "tfti"
	tftiReact   = "👀"
)

type Config struct {
	Token               string
	APIBase             string
	AlertChannel        string
	Workers             int
	RetryMax            int
	RetryBase           time.Duration
	RatePerSec          float64
	TopicFlushInterval  time.Duration
	RequestTimeout      time.Duration
	FailureThreshold    int
	CircuitOpenDuration time.Duration
	DispatchBuffer      int
}

func ConfigFrom(bot config.BotConfig, n config.NotifyConfig, alertChannel string) Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return Config{
		Token:               bot.DiscordBotToken,
		APIBase:             bot.DiscordAPIBase,
		AlertChannel:        alertChannel,
		Workers:             n.Workers,
		RetryMax:            n.RetryMax,
		RetryBase:           ms(n.RetryBaseMS),
		RatePerSec:          n.RatePerSec,
		TopicFlushInterval:  ms(n.TopicFlushMS),
		RequestTimeout:      ms(n.RequestTimeoutMS),
		FailureThreshold:    n.FailureThreshold,
		CircuitOpenDuration: ms(n.CircuitOpenMS),
		DispatchBuffer:      n.DispatchBuffer,
	}
}

type pushJob struct {
	Message platforms.Message
	Attempt int
}

func (j pushJob) key() string {
	return j.Message.ChannelID
}

func (j pushJob) isTopic() bool {
	return j.Message.Kind == platforms.KindTopic
}
