package roster

import "time"

// Entry is one row of a source snapshot, most recently active first.
type Entry struct {
	Name string
	Code string
}

type Player struct {
	Code       string
	Name       string
	LocationID string
	FirstSeen  time.Time
	LastSeen   time.Time
}

func NewPlayer(e Entry, locationID string, now time.Time) Player {
	return Player{
		Code:       e.Code,
		Name:       e.Name,
		LocationID: locationID,
		FirstSeen:  now,
		LastSeen:   now,
	}
}

// Ghost reports whether the source failed to resolve the display name.
func (p Player) Ghost() bool {
	return p.Name == ""
}

func (p Player) String() string {
	return p.Name + " " + p.Code
}

func codes(players []Player) []string {
	out := make([]string, 0, len(players))
	for _, p := range players {
		out = append(out, p.Code)
	}
	return out
}
