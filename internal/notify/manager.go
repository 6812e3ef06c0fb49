package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cabwatch/internal/notify/platforms"
	"cabwatch/internal/roster"

	"github.com/rs/zerolog/log"
)

// Manager delivers chat output through a bounded queue and a worker pool.
// All public methods are non-blocking; a full queue drops the message.
type Manager struct {
	cfg     Config
	adapter platforms.Adapter
	dir     *Directory
	aud     Audience
	now     func() time.Time

	dispatchCh chan pushJob
	done       chan struct{}

	flushMu        sync.Mutex
	mu             sync.Mutex
	started        bool
	topicByChannel map[string]*topicState
	breakerByKey   map[string]breakerState
}

func NewManager(cfg Config, dir *Directory, aud Audience) *Manager {
	if cfg.DispatchBuffer <= 0 {
		cfg.DispatchBuffer = 512
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.TopicFlushInterval <= 0 {
		cfg.TopicFlushInterval = 5 * time.Minute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CircuitOpenDuration <= 0 {
		cfg.CircuitOpenDuration = 30 * time.Second
	}
	client := platforms.NewHTTPClient(cfg.RequestTimeout, cfg.RatePerSec, platforms.BotHeaders(cfg.Token))
	return &Manager{
		cfg:            cfg,
		adapter:        platforms.NewDiscordAdapter(client, cfg.APIBase),
		dir:            dir,
		aud:            aud,
		now:            time.Now,
		dispatchCh:     make(chan pushJob, cfg.DispatchBuffer),
		done:           make(chan struct{}),
		topicByChannel: map[string]*topicState{},
		breakerByKey:   map[string]breakerState{},
	}
}

func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	for i := 0; i < m.cfg.Workers; i++ {
		go m.worker(ctx)
	}
	go m.flushTopicsLoop(ctx)
	go func() {
		<-ctx.Done()
		close(m.done)
	}()
	return nil
}

func (m *Manager) enqueue(job pushJob) bool {
	select {
	case <-m.done:
		return false
	case m.dispatchCh <- job:
		metricNotifyQueuedTotal.Add(1)
		metricNotifyQueueLen.Set(int64(len(m.dispatchCh)))
		return true
	default:
		return false
	}
}

func (m *Manager) post(channelID, content, react string) {
	job := pushJob{Message: platforms.Message{ChannelID: channelID, Content: content, React: react}}
	if !m.enqueue(job) {
		metricNotifyDroppedTotal.Add(1)
		log.Warn().Str("channel", channelID).Msg("notify queue full, message dropped")
	}
}

func (m *Manager) postToLocation(locationID, content string) {
	channels := m.dir.Named(locationID)
	if len(channels) == 0 {
		metricNotifyNoChannelTotal.Add(1)
		log.Error().Str("location", locationID).Msg("no channels for location")
		return
	}
	for _, ch := range channels {
		log.Info().Str("location", locationID).Str("guild", ch.GuildID).Str("channel", ch.ID).Msg("sending location message")
		m.post(ch.ID, content, "")
	}
}

func (m *Manager) NotifyArrival(loc *roster.Location, p roster.Player) {
	log.Info().Str("location", loc.ID).Str("code", p.Code).Str("name", p.Name).Msg("player arrived")
	m.postToLocation(loc.ID, ArrivalText(p, m.aud))
	m.spotted(loc.ID, p)
}

func (m *Manager) NotifyArrivals(loc *roster.Location, players []roster.Player) {
	for _, p := range players {
		log.Info().Str("location", loc.ID).Str("code", p.Code).Str("name", p.Name).Msg("player arrived")
	}
	if text := ArrivalsText(players, m.aud); text != "" {
		m.postToLocation(loc.ID, text)
	}
	for _, p := range players {
		m.spotted(loc.ID, p)
	}
}

// spotted alerts every tfti channel when a watched player shows up. The
// location is mentioned as a channel link when that guild has one.
func (m *Manager) spotted(locationID string, p roster.Player) {
	if !m.aud.IsWatched(p.Code) {
		return
	}
	for _, tfti := range m.dir.Named(TFTIChannel) {
		where := "#" + locationID
		if ch, ok := m.dir.InGuild(tfti.GuildID, locationID); ok {
			where = "<#" + ch.ID + ">"
		}
		log.Info().Str("location", locationID).Str("code", p.Code).Str("guild", tfti.GuildID).Msg("watched player spotted")
		m.post(tfti.ID, SpottedText(p, where), tftiReact)
	}
}

// NotifyDailySummary posts players, normally the ledger just rolled over,
// to every channel of the location.
func (m *Manager) NotifyDailySummary(loc *roster.Location, players []roster.Player) {
	channels := m.dir.Named(loc.ID)
	if len(channels) == 0 {
		metricNotifyNoChannelTotal.Add(1)
		log.Error().Str("location", loc.ID).Msg("no channels for location")
		return
	}
	for _, ch := range channels {
		m.ReportToChannel(ch.ID, loc, players)
	}
}

func (m *Manager) ReportToChannel(channelID string, loc *roster.Location, players []roster.Player) {
	for _, msg := range SummaryMessages(players, loc.Zone(), m.aud) {
		m.post(channelID, msg, "")
	}
}

// QueryStatus reads the location ledger; callers hold the registry lock.
func (m *Manager) QueryStatus(loc *roster.Location) string {
	return StatusText(loc.Ledger.Players(), loc.Zone(), m.now(), m.aud, true)
}

// QueryHere is the status line without names followed by the recent
// players listing. Callers hold the registry lock.
func (m *Manager) QueryHere(loc *roster.Location) string {
	players := loc.Ledger.Players()
	now := m.now()
	return StatusText(players, loc.Zone(), now, m.aud, false) + "\n" + HereText(players, loc.Zone(), now, m.aud)
}

func (m *Manager) SetChannelTopic(loc *roster.Location, status string) {
	channels := m.dir.Named(loc.ID)
	if len(channels) == 0 {
		log.Debug().Str("location", loc.ID).Msg("no channels for topic")
		return
	}
	for _, ch := range channels {
		m.queueTopic(ch.ID, status)
	}
}

func (m *Manager) Reply(channelID, text string) {
	m.post(channelID, text, "")
}

// Alert goes to the operator channels when one is configured. It is always
// logged.
func (m *Manager) Alert(text string) {
	log.Error().Str("alert", text).Msg("operator alert")
	if m.cfg.AlertChannel == "" {
		return
	}
	for _, ch := range m.dir.Named(m.cfg.AlertChannel) {
		m.post(ch.ID, fmt.Sprintf(":warning: %s", text), "")
	}
}
