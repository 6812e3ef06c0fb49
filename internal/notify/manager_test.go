package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cabwatch/internal/notify/platforms"
	"cabwatch/internal/roster"
)

type recordAdapter struct {
	mu   sync.Mutex
	sent []platforms.Message
	fail bool
}

func (a *recordAdapter) Name() string { return "record" }

func (a *recordAdapter) Send(_ context.Context, msg platforms.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sent = append(a.sent, msg)
	if a.fail {
		return errors.New("failed")
	}
	return nil
}

func (a *recordAdapter) Sent() []platforms.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]platforms.Message(nil), a.sent...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestManager(t *testing.T, cfg Config, aud Audience) (*Manager, *recordAdapter, *Directory) {
	t.Helper()
	dir := NewDirectory()
	dir.Upsert(Channel{ID: "c-sj-1", GuildID: "g1", Name: "sj"})
	dir.Upsert(Channel{ID: "c-sj-2", GuildID: "g2", Name: "sj"})
	dir.Upsert(Channel{ID: "c-tfti-1", GuildID: "g1", Name: TFTIChannel})
	dir.Upsert(Channel{ID: "c-tfti-3", GuildID: "g3", Name: TFTIChannel})
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	m := NewManager(cfg, dir, aud)
	adapter := &recordAdapter{}
	m.adapter = adapter
	m.now = func() time.Time { return now }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	return m, adapter, dir
}

func testLocation(t *testing.T) *roster.Location {
	t.Helper()
	loc, err := roster.NewLocation("sj", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	return loc
}

func TestNotifyArrivalFansOutToLocationAndWatchChannels(t *testing.T) {
	aud := audience{visible: map[string]bool{"1": true}, watched: map[string]bool{"1": true}}
	m, adapter, _ := newTestManager(t, Config{}, aud)

	m.NotifyArrival(testLocation(t), player("1", "AFRO", 0, 0))
	waitFor(t, "4 sends", func() bool { return len(adapter.Sent()) == 4 })

	byChannel := map[string]platforms.Message{}
	for _, msg := range adapter.Sent() {
		byChannel[msg.ChannelID] = msg
	}
	if byChannel["c-sj-1"].Content != "```+ AFRO     1```" || byChannel["c-sj-2"].Content == "" {
		t.Fatalf("unexpected location messages %+v", byChannel)
	}
	if got := byChannel["c-tfti-1"]; got.Content != "AFRO (1) was spotted at <#c-sj-1>!" || got.React == "" {
		t.Fatalf("unexpected tfti message in guild with location channel: %+v", got)
	}
	if got := byChannel["c-tfti-3"].Content; got != "AFRO (1) was spotted at #sj!" {
		t.Fatalf("unexpected tfti message in other guild: %q", got)
	}
}

func TestNotifyArrivalsSkipsHiddenBatch(t *testing.T) {
	m, adapter, _ := newTestManager(t, Config{}, audience{})
	m.NotifyArrivals(testLocation(t), []roster.Player{player("1", "A", 0, 0), player("2", "B", 0, 0)})
	m.Reply("c-reply", "done")
	waitFor(t, "reply", func() bool { return len(adapter.Sent()) == 1 })
	time.Sleep(20 * time.Millisecond)
	if got := adapter.Sent(); len(got) != 1 || got[0].ChannelID != "c-reply" {
		t.Fatalf("expected only the reply, got %+v", got)
	}
}

func TestTopicUpdatesAreCoalesced(t *testing.T) {
	m, adapter, _ := newTestManager(t, Config{TopicFlushInterval: time.Hour}, audience{})
	loc := testLocation(t)

	m.SetChannelTopic(loc, "first")
	m.SetChannelTopic(loc, "second")
	m.FlushTopics()
	waitFor(t, "2 topic sends", func() bool { return len(adapter.Sent()) == 2 })
	for _, msg := range adapter.Sent() {
		if msg.Kind != platforms.KindTopic || msg.Content != "second" {
			t.Fatalf("unexpected topic message %+v", msg)
		}
	}

	waitFor(t, "delivery bookkeeping", func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return !m.topicByChannel["c-sj-1"].inflight && !m.topicByChannel["c-sj-2"].inflight
	})
	m.SetChannelTopic(loc, "second")
	m.FlushTopics()
	time.Sleep(20 * time.Millisecond)
	if got := len(adapter.Sent()); got != 2 {
		t.Fatalf("unchanged topic must not be resent, got %d sends", got)
	}
}

func TestRetryStopsAtMaxAttempts(t *testing.T) {
	m, adapter, _ := newTestManager(t, Config{RetryMax: 1, RetryBase: 5 * time.Millisecond, FailureThreshold: 10}, audience{})
	adapter.fail = true

	m.Reply("c1", "x")
	waitFor(t, "retry", func() bool { return len(adapter.Sent()) == 2 })
	time.Sleep(60 * time.Millisecond)
	if got := len(adapter.Sent()); got != 2 {
		t.Fatalf("expected 2 calls (initial + 1 retry), got %d", got)
	}
}

func TestCircuitOpenSkipsSubsequentSends(t *testing.T) {
	m, adapter, _ := newTestManager(t, Config{
		RetryMax:            0,
		FailureThreshold:    1,
		CircuitOpenDuration: 500 * time.Millisecond,
	}, audience{})
	adapter.fail = true

	m.Reply("c1", "x")
	waitFor(t, "first send", func() bool { return len(adapter.Sent()) == 1 })
	time.Sleep(20 * time.Millisecond)
	m.Reply("c1", "y")
	time.Sleep(60 * time.Millisecond)
	if got := len(adapter.Sent()); got != 1 {
		t.Fatalf("expected 1 call due to circuit open, got %d", got)
	}
}

func TestAlertUsesOperatorChannel(t *testing.T) {
	m, adapter, dir := newTestManager(t, Config{AlertChannel: "ops"}, audience{})
	dir.Upsert(Channel{ID: "c-ops", GuildID: "g1", Name: "ops"})

	m.Alert("sj aborted")
	waitFor(t, "alert", func() bool { return len(adapter.Sent()) == 1 })
	if got := adapter.Sent()[0]; got.ChannelID != "c-ops" || got.Content != ":warning: sj aborted" {
		t.Fatalf("unexpected alert %+v", got)
	}
}

func TestDailySummaryPerChannel(t *testing.T) {
	m, adapter, _ := newTestManager(t, Config{}, audience{})
	loc := testLocation(t)
	m.NotifyDailySummary(loc, []roster.Player{player("1", "A", 2*time.Hour, time.Hour)})
	waitFor(t, "summary", func() bool { return len(adapter.Sent()) == 2 })
	for _, msg := range adapter.Sent() {
		if msg.Content != "1 player today:```********   06:00 PM - 07:00 PM   (1h 0m)```" {
			t.Fatalf("unexpected summary %q", msg.Content)
		}
	}
}

func TestDirectoryNamedOrdersByGuild(t *testing.T) {
	dir := NewDirectory()
	dir.Upsert(Channel{ID: "b", GuildID: "g2", Name: "sj"})
	dir.Upsert(Channel{ID: "a", GuildID: "g1", Name: "sj"})
	dir.Upsert(Channel{ID: "c", GuildID: "g1", Name: "other"})

	got := dir.Named("sj")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("Named() = %+v", got)
	}
	dir.RemoveGuild("g1")
	if _, ok := dir.Get("c"); ok || dir.Len() != 1 {
		t.Fatal("guild channels not removed")
	}
}
