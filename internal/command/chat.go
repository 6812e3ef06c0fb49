package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"cabwatch/internal/gateway"
	"cabwatch/internal/notify"
	"cabwatch/internal/roster"

	"github.com/rs/zerolog/log"
)

const topicHint = "Check the channel topic. (on mobile, swipe left from the right edge of your screen)"

// ChatHandler turns chat messages into Service calls. A channel belongs to
// the location whose id equals the channel name.
type ChatHandler struct {
	svc    *Service
	dir    *notify.Directory
	admins map[string]bool
}

func NewChatHandler(svc *Service, dir *notify.Directory, adminTags []string) *ChatHandler {
	admins := make(map[string]bool, len(adminTags))
	for _, tag := range adminTags {
		admins[tag] = true
	}
	return &ChatHandler{svc: svc, dir: dir, admins: admins}
}

func (h *ChatHandler) HandleMessage(ctx context.Context, msg gateway.Message) {
	cmd, ok := Parse(msg.Content)
	if !ok {
		return
	}
	isAdmin := h.admins[msg.AuthorTag]
	log.Info().Str("command", cmd.Name).Str("author", msg.AuthorTag).Bool("admin", isAdmin).Msg("command received")

	if !isAdmin {
		if cmd.Name == "whose" || cmd.Name == "here" {
			h.svc.notifier.Reply(msg.ChannelID, topicHint)
		}
		return
	}
	if cmd.Name == "yeet" {
		h.svc.ReportDaily()
		return
	}

	loc, ok := h.locationFor(msg.ChannelID)
	if !ok {
		log.Error().Str("channel", msg.ChannelID).Str("command", cmd.Name).Msg("no location for channel")
		return
	}
	reply := func(text string) { h.svc.notifier.Reply(msg.ChannelID, text) }

	switch cmd.Name {
	case "all":
		var players []roster.Player
		h.svc.reg.View(func() { players = loc.Ledger.Players() })
		h.svc.notifier.ReportToChannel(msg.ChannelID, loc, players)
	case "here":
		var text string
		h.svc.reg.View(func() { text = h.svc.notifier.QueryHere(loc) })
		reply(text)
	case "addcab":
		if _, err := h.svc.AddCab(ctx, loc.ID, cmd.Arg(0)); err != nil {
			reply(failure("add cab", err))
			return
		}
		reply("Added")
	case "removecab":
		index, err := strconv.Atoi(cmd.Arg(0))
		if err != nil {
			reply(failure("remove cab", ErrMissingArgument))
			return
		}
		if err := h.svc.RemoveCab(loc.ID, index); err != nil {
			reply(failure("remove cab", err))
			return
		}
		reply("Removed")
	case "addvisibleplayer":
		if err := h.svc.AddVisiblePlayer(cmd.Arg(0)); err != nil {
			reply(failure("add visible player", err))
			return
		}
		reply("Added")
	}
}

func (h *ChatHandler) locationFor(channelID string) (*roster.Location, bool) {
	ch, ok := h.dir.Get(channelID)
	if !ok {
		return nil, false
	}
	return h.svc.reg.Location(ch.Name)
}

func failure(what string, err error) string {
	switch {
	case errors.Is(err, roster.ErrCabIndex):
		return fmt.Sprintf("Failed to %s: no cab at that index", what)
	case errors.Is(err, ErrMissingArgument):
		return fmt.Sprintf("Failed to %s: missing argument", what)
	case errors.Is(err, ErrSeedFailed):
		return fmt.Sprintf("Failed to %s: could not read the cab, it will be seeded on the next cycle", what)
	}
	return fmt.Sprintf("Failed to %s", what)
}
