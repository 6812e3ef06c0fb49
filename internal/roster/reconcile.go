package roster

import "time"

// Outcome is what a snapshot says happened at the top of a cab's roster.
type Outcome int

const (
	// NoChange: the top two match the roster's top two.
	NoChange Outcome = iota
	// SingleShift: one new player pushed the previous leader to slot 1.
	SingleShift
	// DoubleChange: both visible slots are treated as incoming.
	DoubleChange
	// SingleSlot: only index 0 can be compared (short roster or snapshot).
	SingleSlot
	// Seed: the cab was never seeded and takes the snapshot head as is.
	Seed
	// Skip: nothing usable in the snapshot.
	Skip
)

func (o Outcome) String() string {
	switch o {
	case NoChange:
		return "no_change"
	case SingleShift:
		return "single_shift"
	case DoubleChange:
		return "double_change"
	case SingleSlot:
		return "single_slot"
	case Seed:
		return "seed"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Classify decides which mutation applies. Only the first two snapshot
// entries are consulted, first match wins. An empty roster classifies as
// Seed; Reconcile refills a cab that was already seeded instead.
func Classify(roster []Player, snapshot []Entry) Outcome {
	switch {
	case len(snapshot) == 0 || snapshot[0].Code == "":
		return Skip
	case len(roster) == 0:
		return Seed
	case len(snapshot) == 1 || len(roster) == 1 || snapshot[1].Code == "" || snapshot[0].Code == snapshot[1].Code:
		if snapshot[0].Code == roster[0].Code {
			return NoChange
		}
		return SingleSlot
	}
	n0, n1 := snapshot[0].Code, snapshot[1].Code
	o0, o1 := roster[0].Code, roster[1].Code
	if n0 == o0 && n1 == o1 {
		return NoChange
	}
	if n0 != o0 && o0 == n1 {
		return SingleShift
	}
	return DoubleChange
}

// Result is the effect of one Reconcile call.
type Result struct {
	Outcome Outcome
	// Inserted holds codes that were new to the cab. Dedupe prunes these
	// from other cabs.
	Inserted []string
	// Refreshed holds every code moved to the front this cycle.
	Refreshed []string
	// Arrivals are players not previously in the location's ledger, in
	// processing order.
	Arrivals []Player
}

func (r Result) Changed() bool {
	return len(r.Refreshed) > 0 || r.Outcome == Seed
}

// Reconcile applies a fresh snapshot to the cab and the location ledger.
func Reconcile(cab *Cab, ledger *Ledger, snapshot []Entry, locationID string, now time.Time) Result {
	res := Result{Outcome: classifyCab(cab, snapshot)}
	switch res.Outcome {
	case Seed:
		cab.seed(snapshot, locationID, now)
	case SingleShift, SingleSlot:
		res.admit(cab, ledger, NewPlayer(snapshot[0], locationID, now), now)
	case DoubleChange:
		// slot 1 first so slot 0 ends up in front
		res.admit(cab, ledger, NewPlayer(snapshot[1], locationID, now), now)
		res.admit(cab, ledger, NewPlayer(snapshot[0], locationID, now), now)
	}
	return res
}

func classifyCab(cab *Cab, snapshot []Entry) Outcome {
	o := Classify(cab.roster, snapshot)
	if o != Seed || !cab.seeded {
		return o
	}
	if len(snapshot) == 1 || snapshot[1].Code == "" || snapshot[1].Code == snapshot[0].Code {
		return SingleSlot
	}
	return DoubleChange
}

func (r *Result) admit(cab *Cab, ledger *Ledger, p Player, now time.Time) {
	merged, arrived := ledger.Touch(p, now)
	if moved := cab.insertOrMove(merged); !moved {
		r.Inserted = append(r.Inserted, merged.Code)
	}
	r.Refreshed = append(r.Refreshed, merged.Code)
	if arrived {
		r.Arrivals = append(r.Arrivals, merged)
	}
}
