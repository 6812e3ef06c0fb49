package notify

import (
	"sort"
	"sync"
)

type Channel struct {
	ID      string
	GuildID string
	Name    string
}

// Directory indexes the text channels the bot can see. Location channels
// are found by name, one per guild.
type Directory struct {
	mu   sync.RWMutex
	byID map[string]Channel
}

func NewDirectory() *Directory {
	return &Directory{byID: map[string]Channel{}}
}

func (d *Directory) Upsert(ch Channel) {
	if ch.ID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[ch.ID] = ch
}

func (d *Directory) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.byID, id)
}

// RemoveGuild drops every channel of a guild the bot left.
func (d *Directory) RemoveGuild(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, ch := range d.byID {
		if ch.GuildID == guildID {
			delete(d.byID, id)
		}
	}
}

func (d *Directory) Get(id string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.byID[id]
	return ch, ok
}

// Named returns every channel called name, ordered by guild then id.
func (d *Directory) Named(name string) []Channel {
	d.mu.RLock()
	out := make([]Channel, 0, 2)
	for _, ch := range d.byID {
		if ch.Name == name {
			out = append(out, ch)
		}
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].GuildID != out[j].GuildID {
			return out[i].GuildID < out[j].GuildID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (d *Directory) InGuild(guildID, name string) (Channel, bool) {
	for _, ch := range d.Named(name) {
		if ch.GuildID == guildID {
			return ch, true
		}
	}
	return Channel{}, false
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}
