package roster

import "time"

const DefaultCapacity = 7

// Cab is one polled terminal. The roster is most-recent-first and never
// exceeds Capacity; len(roster)+pruneCredit <= Capacity holds across every
// mutation below.
type Cab struct {
	ID         string
	Credential string
	Capacity   int

	roster      []Player
	pruneCredit int
	seeded      bool
}

func NewCab(id, credential string, capacity int) *Cab {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cab{
		ID:         id,
		Credential: credential,
		Capacity:   capacity,
		roster:     make([]Player, 0, capacity+1),
	}
}

func (c *Cab) Roster() []Player {
	out := make([]Player, len(c.roster))
	copy(out, c.roster)
	return out
}

func (c *Cab) Codes() []string {
	return codes(c.roster)
}

func (c *Cab) Len() int {
	return len(c.roster)
}

func (c *Cab) PruneCredit() int {
	return c.pruneCredit
}

// Seeded reports whether the cab has taken its first snapshot. A seeded cab
// emptied by dedupe refills through the ledger, not by seeding again.
func (c *Cab) Seeded() bool {
	return c.seeded
}

func (c *Cab) Contains(code string) bool {
	return c.indexOf(code) >= 0
}

func (c *Cab) indexOf(code string) int {
	for i, p := range c.roster {
		if p.Code == code {
			return i
		}
	}
	return -1
}

// seed fills a never-seeded roster with the head of a snapshot.
func (c *Cab) seed(snapshot []Entry, locationID string, now time.Time) {
	c.roster = c.roster[:0]
	c.pruneCredit = 0
	c.seeded = true
	for _, e := range snapshot {
		if len(c.roster) >= c.Capacity {
			break
		}
		if e.Code == "" || c.indexOf(e.Code) >= 0 {
			continue
		}
		c.roster = append(c.roster, NewPlayer(e, locationID, now))
	}
}

// insertOrMove puts p at the front of the roster. It reports true when p
// was already resident, in which case nothing is evicted.
func (c *Cab) insertOrMove(p Player) bool {
	if i := c.indexOf(p.Code); i >= 0 {
		c.removeAt(i)
		c.pushFront(p)
		return true
	}
	c.pushFront(p)
	if c.pruneCredit > 0 {
		c.pruneCredit--
	}
	for len(c.roster) > c.Capacity {
		c.roster = c.roster[:len(c.roster)-1]
	}
	return false
}

// prune drops a stale occurrence of code and banks one credit for it.
func (c *Cab) prune(code string) (Player, bool) {
	i := c.indexOf(code)
	if i < 0 {
		return Player{}, false
	}
	p := c.roster[i]
	c.removeAt(i)
	c.pruneCredit++
	return p, true
}

func (c *Cab) pushFront(p Player) {
	c.roster = append(c.roster, Player{})
	copy(c.roster[1:], c.roster[:len(c.roster)-1])
	c.roster[0] = p
}

func (c *Cab) removeAt(i int) {
	c.roster = append(c.roster[:i], c.roster[i+1:]...)
}
