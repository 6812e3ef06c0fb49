package roster

import "time"

// Ledger is the per-location history of distinct players seen since the
// last rollover, most recently seen first. Entries leave only via Reset.
type Ledger struct {
	players []Player
}

func (l *Ledger) Len() int {
	return len(l.players)
}

func (l *Ledger) Players() []Player {
	out := make([]Player, len(l.players))
	copy(out, l.players)
	return out
}

func (l *Ledger) Get(code string) (Player, bool) {
	if i := l.indexOf(code); i >= 0 {
		return l.players[i], true
	}
	return Player{}, false
}

// Touch records p as seen at now and moves it to the front. Known players
// keep their FirstSeen (and their name, when p is a ghost); the bool is
// true only for a player not yet in the ledger.
func (l *Ledger) Touch(p Player, now time.Time) (Player, bool) {
	p.LastSeen = now
	if i := l.indexOf(p.Code); i >= 0 {
		prev := l.players[i]
		p.FirstSeen = prev.FirstSeen
		if p.Name == "" {
			p.Name = prev.Name
		}
		l.players = append(l.players[:i], l.players[i+1:]...)
		l.pushFront(p)
		return p, false
	}
	p.FirstSeen = now
	l.pushFront(p)
	return p, true
}

// Reset clears the ledger and returns what it held.
func (l *Ledger) Reset() []Player {
	out := l.players
	l.players = nil
	return out
}

func (l *Ledger) indexOf(code string) int {
	for i, p := range l.players {
		if p.Code == code {
			return i
		}
	}
	return -1
}

func (l *Ledger) pushFront(p Player) {
	l.players = append(l.players, Player{})
	copy(l.players[1:], l.players[:len(l.players)-1])
	l.players[0] = p
}
