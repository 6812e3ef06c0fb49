package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const DefaultDiscordAPIBase = "https://discord.com/api/v10"

// DiscordAdapter talks to the bot REST API. The bot token is carried by the
// client's default headers.
type DiscordAdapter struct {
	client *HTTPClient
	base   string
}

func NewDiscordAdapter(client *HTTPClient, apiBase string) *DiscordAdapter {
	apiBase = strings.TrimRight(strings.TrimSpace(apiBase), "/")
	if apiBase == "" {
		apiBase = DefaultDiscordAPIBase
	}
	return &DiscordAdapter{client: client, base: apiBase}
}

// BotHeaders returns the default headers for bot-authenticated requests.
func BotHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": "Bot " + token,
		"User-Agent":    "DiscordBot (cabwatch, 1.0)",
	}
}

func (a *DiscordAdapter) Name() string {
	return "discord"
}

func (a *DiscordAdapter) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ChannelID) == "" {
		return fmt.Errorf("discord send: missing channel id")
	}
	switch msg.Kind {
	case KindTopic:
		return a.client.PatchJSON(ctx, a.channelURL(msg.ChannelID), map[string]any{"topic": msg.Content})
	default:
		id, err := a.createMessage(ctx, msg.ChannelID, msg.Content)
		if err != nil {
			return err
		}
		if msg.React == "" || id == "" {
			return nil
		}
		return a.client.Put(ctx, a.channelURL(msg.ChannelID)+"/messages/"+id+"/reactions/"+url.PathEscape(msg.React)+"/@me")
	}
}

func (a *DiscordAdapter) createMessage(ctx context.Context, channelID, content string) (string, error) {
	_, body, err := a.client.PostJSONWithResponse(ctx, a.channelURL(channelID)+"/messages", map[string]any{
		"content":          content,
		"allowed_mentions": map[string]any{"parse": []string{}},
	})
	if err != nil {
		return "", err
	}
	var raw struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(body, &raw) == nil {
		return strings.TrimSpace(raw.ID), nil
	}
	return "", nil
}

func (a *DiscordAdapter) channelURL(channelID string) string {
	return a.base + "/channels/" + url.PathEscape(channelID)
}
