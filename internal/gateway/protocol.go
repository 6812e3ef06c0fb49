package gateway

import "encoding/json"

const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Intents requested on identify: guilds, guild messages, message content.
const DefaultIntents = 1<<0 | 1<<9 | 1<<15

const (
	channelText         = 0
	channelAnnouncement = 5
)

type inbound struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d"`
	S  *int64          `json:"s"`
	T  string          `json:"t"`
}

type outbound struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type helloData struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties identifyProperties `json:"properties"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type user struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Bot           bool   `json:"bot"`
}

// Tag is the legacy name#discriminator form, or the bare username for
// accounts on the new naming system.
func (u user) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

type readyData struct {
	SessionID string `json:"session_id"`
	User      user   `json:"user"`
}

type channelData struct {
	ID      string `json:"id"`
	GuildID string `json:"guild_id"`
	Name    string `json:"name"`
	Type    int    `json:"type"`
}

type guildData struct {
	ID          string        `json:"id"`
	Unavailable bool          `json:"unavailable"`
	Channels    []channelData `json:"channels"`
}

type messageData struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Content   string `json:"content"`
	Author    user   `json:"author"`
}
