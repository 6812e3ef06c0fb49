package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cabwatch/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	errReconnect      = errors.New("gateway_reconnect_requested")
	errInvalidSession = errors.New("gateway_invalid_session")
	errZombie         = errors.New("gateway_heartbeat_not_acked")
)

// Message is a chat message delivered to the bot.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	AuthorTag string
	Content   string
}

type Handler interface {
	HandleMessage(ctx context.Context, msg Message)
}

type HandlerFunc func(ctx context.Context, msg Message)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg Message) { f(ctx, msg) }

type Config struct {
	URL          string
	Token        string
	Intents      int
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Client keeps a gateway session open, feeds channel events into the
// directory and hands user messages to the handler.
type Client struct {
	cfg     Config
	dir     *notify.Directory
	handler Handler
	dialer  *websocket.Dialer

	writeMu sync.Mutex
	seq     atomic.Int64
	selfID  atomic.Value
	ready   chan struct{}
	once    sync.Once
}

func New(cfg Config, dir *notify.Directory, handler Handler) *Client {
	if cfg.Intents == 0 {
		cfg.Intents = DefaultIntents
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = time.Minute
	}
	c := &Client{
		cfg:     cfg,
		dir:     dir,
		handler: handler,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		ready:   make(chan struct{}),
	}
	c.selfID.Store("")
	c.seq.Store(-1)
	return c
}

// Ready is closed after the first READY event.
func (c *Client) Ready() <-chan struct{} {
	return c.ready
}

// Run reconnects with exponential backoff until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	backoff := c.cfg.ReconnectMin
	for {
		started := time.Now()
		err := c.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if time.Since(started) > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMin
		}
		log.Warn().Err(err).Dur("backoff", backoff).Msg("gateway disconnected")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > c.cfg.ReconnectMax {
			backoff = c.cfg.ReconnectMax
		}
	}
}

func (c *Client) serve(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	var first inbound
	if err := conn.ReadJSON(&first); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if first.Op != opHello {
		return fmt.Errorf("expected hello, got op %d", first.Op)
	}
	var hello helloData
	if err := json.Unmarshal(first.D, &hello); err != nil || hello.HeartbeatInterval <= 0 {
		return fmt.Errorf("bad hello payload")
	}

	c.seq.Store(-1)
	if err := c.write(conn, outbound{Op: opIdentify, D: identifyData{
		Token:   c.cfg.Token,
		Intents: c.cfg.Intents,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "cabwatch",
			Device:  "cabwatch",
		},
	}}); err != nil {
		return fmt.Errorf("identify: %w", err)
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var acked atomic.Bool
	acked.Store(true)
	hbErr := make(chan error, 1)
	go func() {
		hbErr <- c.heartbeat(connCtx, conn, time.Duration(hello.HeartbeatInterval)*time.Millisecond, &acked)
	}()
	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()

	for {
		var frame inbound
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case hb := <-hbErr:
				if hb != nil {
					return hb
				}
			default:
			}
			return fmt.Errorf("read gateway: %w", err)
		}
		if frame.S != nil {
			c.seq.Store(*frame.S)
		}
		switch frame.Op {
		case opDispatch:
			c.dispatch(ctx, frame.T, frame.D)
		case opHeartbeat:
			if err := c.write(conn, outbound{Op: opHeartbeat, D: c.lastSeq()}); err != nil {
				return err
			}
		case opHeartbeatACK:
			acked.Store(true)
		case opReconnect:
			return errReconnect
		case opInvalidSession:
			return errInvalidSession
		}
	}
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration, acked *atomic.Bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !acked.Swap(false) {
				_ = conn.Close()
				return errZombie
			}
			if err := c.write(conn, outbound{Op: opHeartbeat, D: c.lastSeq()}); err != nil {
				return err
			}
		}
	}
}

func (c *Client) lastSeq() any {
	if s := c.seq.Load(); s >= 0 {
		return s
	}
	return nil
}

func (c *Client) write(conn *websocket.Conn, frame outbound) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(frame)
}

func (c *Client) dispatch(ctx context.Context, event string, raw json.RawMessage) {
	switch event {
	case "READY":
		var d readyData
		if err := json.Unmarshal(raw, &d); err != nil {
			log.Warn().Err(err).Msg("bad READY payload")
			return
		}
		c.selfID.Store(d.User.ID)
		log.Info().Str("user", d.User.Tag()).Msg("gateway ready")
		c.once.Do(func() { close(c.ready) })
	case "GUILD_CREATE":
		var d guildData
		if err := json.Unmarshal(raw, &d); err != nil || d.Unavailable {
			return
		}
		for _, ch := range d.Channels {
			ch.GuildID = d.ID
			c.upsertChannel(ch)
		}
		log.Info().Str("guild", d.ID).Int("channels", len(d.Channels)).Msg("guild available")
	case "GUILD_DELETE":
		var d guildData
		if json.Unmarshal(raw, &d) == nil {
			c.dir.RemoveGuild(d.ID)
		}
	case "CHANNEL_CREATE", "CHANNEL_UPDATE":
		var d channelData
		if json.Unmarshal(raw, &d) == nil {
			c.upsertChannel(d)
		}
	case "CHANNEL_DELETE":
		var d channelData
		if json.Unmarshal(raw, &d) == nil {
			c.dir.Remove(d.ID)
		}
	case "MESSAGE_CREATE":
		var d messageData
		if err := json.Unmarshal(raw, &d); err != nil {
			return
		}
		if d.Author.Bot || d.Author.ID == c.selfID.Load().(string) || c.handler == nil {
			return
		}
		msg := Message{
			ID:        d.ID,
			ChannelID: d.ChannelID,
			GuildID:   d.GuildID,
			AuthorID:  d.Author.ID,
			AuthorTag: d.Author.Tag(),
			Content:   d.Content,
		}
		go c.handler.HandleMessage(ctx, msg)
	}
}

func (c *Client) upsertChannel(ch channelData) {
	if ch.Type != channelText && ch.Type != channelAnnouncement {
		return
	}
	c.dir.Upsert(notify.Channel{ID: ch.ID, GuildID: ch.GuildID, Name: ch.Name})
}
