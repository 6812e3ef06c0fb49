package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
)

type recorded struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

func recordingClient(t *testing.T, status int, respBody string) (*HTTPClient, func() []recorded) {
	t.Helper()
	var mu sync.Mutex
	var calls []recorded
	client := newTestHTTPClient(func(r *http.Request) (*http.Response, error) {
		rec := recorded{method: r.Method, path: r.URL.EscapedPath(), auth: r.Header.Get("Authorization")}
		if r.Body != nil {
			raw, _ := io.ReadAll(r.Body)
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &rec.body); err != nil {
					t.Errorf("decode body: %v", err)
				}
			}
		}
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()
		return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader([]byte(respBody))), Header: http.Header{"Retry-After": []string{"1.5"}}}, nil
	})
	return client, func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), calls...)
	}
}

func TestDiscordAdapterPostsMessage(t *testing.T) {
	client, calls := recordingClient(t, http.StatusOK, `{"id":"m1"}`)
	adapter := NewDiscordAdapter(client, "https://discord.example/api/v10/")

	if err := adapter.Send(context.Background(), Message{ChannelID: "c1", Content: "hello"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := calls()
	if len(got) != 1 {
		t.Fatalf("expected 1 call, got %d", len(got))
	}
	if got[0].method != http.MethodPost || got[0].path != "/api/v10/channels/c1/messages" {
		t.Fatalf("unexpected request %s %s", got[0].method, got[0].path)
	}
	if got[0].auth != "Bot tok" {
		t.Fatalf("unexpected auth header %q", got[0].auth)
	}
	if got[0].body["content"] != "hello" {
		t.Fatalf("unexpected content: %v", got[0].body["content"])
	}
}

func TestDiscordAdapterReactsToCreatedMessage(t *testing.T) {
	client, calls := recordingClient(t, http.StatusOK, `{"id":"m9"}`)
	adapter := NewDiscordAdapter(client, "https://discord.example/api/v10")

	if err := adapter.Send(context.Background(), Message{ChannelID: "c1", Content: "spotted", React: "👀"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := calls()
	if len(got) != 2 {
		t.Fatalf("expected post + reaction, got %d calls", len(got))
	}
	if got[1].method != http.MethodPut || got[1].path != "/api/v10/channels/c1/messages/m9/reactions/%F0%9F%91%80/@me" {
		t.Fatalf("unexpected reaction request %s %s", got[1].method, got[1].path)
	}
}

func TestDiscordAdapterSetsTopic(t *testing.T) {
	client, calls := recordingClient(t, http.StatusOK, `{}`)
	adapter := NewDiscordAdapter(client, "https://discord.example/api/v10")

	if err := adapter.Send(context.Background(), Message{Kind: KindTopic, ChannelID: "c2", Content: "3/5 players"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	got := calls()
	if len(got) != 1 || got[0].method != http.MethodPatch || got[0].path != "/api/v10/channels/c2" {
		t.Fatalf("unexpected calls %+v", got)
	}
	if got[0].body["topic"] != "3/5 players" {
		t.Fatalf("unexpected topic: %v", got[0].body["topic"])
	}
}

func TestDiscordAdapterRateLimitedError(t *testing.T) {
	client, _ := recordingClient(t, http.StatusTooManyRequests, `{"message":"slow down"}`)
	adapter := NewDiscordAdapter(client, "")

	err := adapter.Send(context.Background(), Message{ChannelID: "c1", Content: "x"})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Code != http.StatusTooManyRequests || statusErr.RetryAfter.Milliseconds() != 1500 {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestDiscordAdapterRequiresChannel(t *testing.T) {
	client, calls := recordingClient(t, http.StatusOK, `{}`)
	adapter := NewDiscordAdapter(client, "")
	if err := adapter.Send(context.Background(), Message{Content: "x"}); err == nil {
		t.Fatal("expected error for empty channel")
	}
	if len(calls()) != 0 {
		t.Fatal("no request expected")
	}
}
