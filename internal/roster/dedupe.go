package roster

// CabPass is one cab's participation in a cycle's dedupe run.
type CabPass struct {
	LocationID string
	CabIndex   int
	Cab        *Cab
	Result     Result
}

// Prune records one stale occurrence removed by Dedupe.
type Prune struct {
	Player       Player
	FromLocation string
	FromCab      int
	ToLocation   string
	ToCab        int
}

type residence struct {
	pass int
	code string
}

// Dedupe removes stale copies of players who were genuinely inserted into
// one cab this cycle but are still resident in another. The removal plan is
// built from every pass before anything is mutated, so the order of passes
// does not matter. Each removal banks exactly one prune credit on the cab it
// was removed from.
func Dedupe(passes []CabPass) []Prune {
	refreshed := make(map[residence]struct{})
	for i, p := range passes {
		for _, code := range p.Result.Refreshed {
			refreshed[residence{i, code}] = struct{}{}
		}
	}

	type planned struct {
		residence
		to int
	}
	seen := make(map[residence]struct{})
	var plan []planned
	for to, p := range passes {
		for _, code := range p.Result.Inserted {
			for from, q := range passes {
				if from == to || q.Cab == p.Cab {
					continue
				}
				key := residence{from, code}
				if _, ok := refreshed[key]; ok {
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				if !q.Cab.Contains(code) {
					continue
				}
				seen[key] = struct{}{}
				plan = append(plan, planned{residence: key, to: to})
			}
		}
	}

	out := make([]Prune, 0, len(plan))
	for _, pl := range plan {
		from := passes[pl.pass]
		player, ok := from.Cab.prune(pl.code)
		if !ok {
			continue
		}
		to := passes[pl.to]
		out = append(out, Prune{
			Player:       player,
			FromLocation: from.LocationID,
			FromCab:      from.CabIndex,
			ToLocation:   to.LocationID,
			ToCab:        to.CabIndex,
		})
	}
	return out
}
