package notify

import (
	"fmt"
	"strings"
	"time"

	"cabwatch/internal/roster"
)

const (
	RecentCutoff  = 90 * time.Minute
	summaryChunk  = 48
	hiddenName    = "********"
	anonymousText = "A new player appeared!"
)

// Audience decides which players may be shown by name and which trigger
// cross-community alerts.
type Audience interface {
	IsVisible(code string) bool
	IsWatched(code string) bool
}

type span struct {
	hours, minutes, total int
}

func between(later, earlier time.Time) span {
	d := later.Sub(earlier)
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return span{hours: total / 60, minutes: total % 60, total: total}
}

func (s span) String() string {
	return fmt.Sprintf("%dh %dm", s.hours, s.minutes)
}

func clock(t time.Time, zone *time.Location) string {
	if zone == nil {
		zone = time.UTC
	}
	return t.In(zone).Format("03:04 PM")
}

func monospace(text string) string {
	if text == "" {
		text = " "
	}
	return "```" + text + "```"
}

func displayName(p roster.Player, aud Audience) string {
	if aud.IsVisible(p.Code) {
		return fmt.Sprintf("%-8s", p.Name)
	}
	return hiddenName
}

// ArrivalText renders a single arrival for the location channels.
func ArrivalText(p roster.Player, aud Audience) string {
	if aud.IsVisible(p.Code) {
		return monospace(fmt.Sprintf("+ %s     %s", p.Name, p.Code))
	}
	return anonymousText
}

// ArrivalsText combines the visible players of a batch. Empty when none of
// them is visible.
func ArrivalsText(players []roster.Player, aud Audience) string {
	lines := make([]string, 0, len(players))
	for _, p := range players {
		if aud.IsVisible(p.Code) {
			lines = append(lines, fmt.Sprintf("+ %s    %s", p.Name, p.Code))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return monospace(strings.Join(lines, "\n"))
}

func SpottedText(p roster.Player, where string) string {
	return fmt.Sprintf("%s (%s) was spotted at %s!", p.Name, p.Code, where)
}

// StatusText summarises a ledger for a channel topic.
func StatusText(players []roster.Player, zone *time.Location, now time.Time, aud Audience, includeList bool) string {
	nowText := clock(now, zone)
	if len(players) == 0 {
		return nowText + ": 0 players today."
	}

	active := 0
	named := make([]string, 0, len(players))
	for _, p := range players {
		since := between(now, p.LastSeen)
		if time.Duration(since.total)*time.Minute > RecentCutoff {
			continue
		}
		active++
		if aud.IsVisible(p.Code) {
			named = append(named, fmt.Sprintf("%s %dm", p.Name, since.total))
		}
	}

	if active == 0 {
		who := fmt.Sprintf("All %d players today have", len(players))
		if len(players) == 1 {
			who = "Today's only player has"
		}
		out := fmt.Sprintf("%s: %s left! :eyes:", nowText, who)
		last := players[0]
		if aud.IsVisible(last.Code) {
			out += fmt.Sprintf(" Last player seen: %s %s ago.", last.Name, between(now, last.LastSeen))
		}
		return out
	}

	s := "s"
	if active == 1 {
		s = ""
	}
	out := fmt.Sprintf("%s: %d/%d player%s in the last %d minutes. :eyes:", nowText, active, len(players), s, int(RecentCutoff/time.Minute))
	if includeList && len(named) > 0 {
		list := strings.Join(named, ", ")
		if others := active - len(named); others > 0 {
			if len(named) > 1 {
				list += ","
			}
			list += fmt.Sprintf(" and %d others", others)
		}
		out += " (" + list + ")"
	}
	return out
}

// HereText lists the players seen within the recent cutoff.
func HereText(players []roster.Player, zone *time.Location, now time.Time, aud Audience) string {
	lines := make([]string, 0, len(players))
	for _, p := range players {
		since := between(now, p.LastSeen)
		if time.Duration(since.total)*time.Minute > RecentCutoff {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s   %s   Seen %s ago", displayName(p, aud), clock(p.FirstSeen, zone), since))
	}
	return monospace(strings.Join(lines, "\n"))
}

// SummaryMessages renders the daily summary, 48 players per message.
func SummaryMessages(players []roster.Player, zone *time.Location, aud Audience) []string {
	s := "s"
	if len(players) == 1 {
		s = ""
	}
	header := fmt.Sprintf("%d player%s today:", len(players), s)
	if len(players) == 0 {
		return []string{"0 players today."}
	}

	lines := make([]string, 0, len(players))
	for _, p := range players {
		lines = append(lines, fmt.Sprintf("%s   %s - %s   (%s)",
			displayName(p, aud), clock(p.FirstSeen, zone), clock(p.LastSeen, zone), between(p.LastSeen, p.FirstSeen)))
	}

	out := make([]string, 0, len(lines)/summaryChunk+1)
	for start := 0; start < len(lines); start += summaryChunk {
		end := start + summaryChunk
		if end > len(lines) {
			end = len(lines)
		}
		msg := monospace(strings.Join(lines[start:end], "\n"))
		if start == 0 {
			msg = header + msg
		}
		out = append(out, msg)
	}
	return out
}
