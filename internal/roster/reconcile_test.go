package roster

import (
	"reflect"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func entries(codes ...string) []Entry {
	out := make([]Entry, 0, len(codes))
	for _, c := range codes {
		out = append(out, Entry{Name: "N" + c, Code: c})
	}
	return out
}

func seededCab(capacity int, codes ...string) *Cab {
	c := NewCab("cab", "cookie", capacity)
	c.seed(entries(codes...), "loc", t0)
	return c
}

func assertCodes(t *testing.T, label string, got []string, want ...string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s = %v, want %v", label, got, want)
	}
}

func TestClassify(t *testing.T) {
	abc := seededCab(7, "A", "B", "C").Roster()
	one := seededCab(7, "A").Roster()
	cases := []struct {
		name     string
		roster   []Player
		snapshot []Entry
		want     Outcome
	}{
		{"empty snapshot", abc, nil, Skip},
		{"blank code", abc, []Entry{{Name: "x"}}, Skip},
		{"empty roster", nil, entries("A", "B"), Seed},
		{"no change", abc, entries("A", "B"), NoChange},
		{"single shift", abc, entries("X", "A"), SingleShift},
		{"duplicate reappearance", abc, entries("C", "A"), SingleShift},
		{"double change", abc, entries("X", "Y"), DoubleChange},
		{"swap", abc, entries("B", "A"), SingleShift},
		{"second slot only", abc, entries("A", "X"), DoubleChange},
		{"short snapshot same", abc, entries("A"), NoChange},
		{"short snapshot new", abc, entries("X"), SingleSlot},
		{"short roster same", one, entries("A", "B"), NoChange},
		{"short roster new", one, entries("X", "A"), SingleSlot},
		{"repeated code", abc, entries("X", "X"), SingleSlot},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.roster, tc.snapshot); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReconcileNoChangeIsIdempotent(t *testing.T) {
	cab := seededCab(7, "A", "B", "C")
	var ledger Ledger
	ledger.Touch(NewPlayer(Entry{Name: "NA", Code: "A"}, "loc", t0), t0)

	for i := 0; i < 5; i++ {
		res := Reconcile(cab, &ledger, entries("A", "B", "Z"), "loc", t0.Add(time.Duration(i)*time.Minute))
		if res.Outcome != NoChange {
			t.Fatalf("outcome = %s, want no_change", res.Outcome)
		}
		if res.Changed() || len(res.Arrivals) != 0 {
			t.Fatalf("unexpected effects: %+v", res)
		}
	}
	assertCodes(t, "roster", cab.Codes(), "A", "B", "C")
	if p, _ := ledger.Get("A"); !p.LastSeen.Equal(t0) {
		t.Fatalf("ledger LastSeen changed: %v", p.LastSeen)
	}
	if ledger.Len() != 1 {
		t.Fatalf("ledger len = %d, want 1", ledger.Len())
	}
}

func TestReconcileSingleShiftEvictsAtCapacity(t *testing.T) {
	cab := seededCab(3, "A", "B", "C")
	var ledger Ledger
	res := Reconcile(cab, &ledger, entries("X", "A"), "loc", t0)

	if res.Outcome != SingleShift {
		t.Fatalf("outcome = %s, want single_shift", res.Outcome)
	}
	assertCodes(t, "roster", cab.Codes(), "X", "A", "B")
	assertCodes(t, "inserted", res.Inserted, "X")
	if len(res.Arrivals) != 1 || res.Arrivals[0].Code != "X" {
		t.Fatalf("arrivals = %+v, want X", res.Arrivals)
	}
}

func TestReconcileSingleShiftBelowCapacityKeepsTail(t *testing.T) {
	cab := seededCab(7, "A", "B", "C")
	var ledger Ledger
	ledger.Touch(NewPlayer(Entry{Name: "NX", Code: "X"}, "loc", t0), t0)

	res := Reconcile(cab, &ledger, entries("X", "A"), "loc", t0.Add(time.Minute))
	assertCodes(t, "roster", cab.Codes(), "X", "A", "B", "C")
	if len(res.Arrivals) != 0 {
		t.Fatalf("X already in ledger, got arrivals %+v", res.Arrivals)
	}
}

func TestReconcileDuplicateReappearance(t *testing.T) {
	cab := seededCab(3, "A", "B", "C")
	var ledger Ledger
	ledger.Touch(NewPlayer(Entry{Name: "NC", Code: "C"}, "loc", t0), t0)

	res := Reconcile(cab, &ledger, entries("C", "A"), "loc", t0.Add(time.Minute))
	assertCodes(t, "roster", cab.Codes(), "C", "A", "B")
	assertCodes(t, "inserted", res.Inserted)
	assertCodes(t, "refreshed", res.Refreshed, "C")
	if len(res.Arrivals) != 0 {
		t.Fatalf("unexpected arrivals %+v", res.Arrivals)
	}
	if cab.PruneCredit() != 0 {
		t.Fatalf("credit = %d, want 0", cab.PruneCredit())
	}
}

func TestReconcileDoubleChangeOrdersSlots(t *testing.T) {
	cab := seededCab(3, "A", "B", "C")
	var ledger Ledger
	res := Reconcile(cab, &ledger, entries("X", "Y"), "loc", t0)

	if res.Outcome != DoubleChange {
		t.Fatalf("outcome = %s, want double_change", res.Outcome)
	}
	assertCodes(t, "roster", cab.Codes(), "X", "Y", "A")
	assertCodes(t, "inserted", res.Inserted, "Y", "X")
	assertCodes(t, "arrivals", codes(res.Arrivals), "Y", "X")
	assertCodes(t, "ledger", codes(ledger.Players()), "X", "Y")
}

func TestReconcileDoubleChangeReordersResidents(t *testing.T) {
	cab := seededCab(3, "A", "B", "C")
	var ledger Ledger
	res := Reconcile(cab, &ledger, entries("B", "C"), "loc", t0)

	assertCodes(t, "roster", cab.Codes(), "B", "C", "A")
	assertCodes(t, "inserted", res.Inserted)
}

func TestReconcileSeedsEmptyCab(t *testing.T) {
	cab := NewCab("cab", "cookie", 3)
	var ledger Ledger
	res := Reconcile(cab, &ledger, entries("A", "A", "B", "C", "D"), "loc", t0)

	if res.Outcome != Seed {
		t.Fatalf("outcome = %s, want seed", res.Outcome)
	}
	assertCodes(t, "roster", cab.Codes(), "A", "B", "C")
	if ledger.Len() != 0 || len(res.Arrivals) != 0 {
		t.Fatalf("seed must not touch the ledger: len=%d arrivals=%d", ledger.Len(), len(res.Arrivals))
	}
}

func TestReconcileSingleSlotFallback(t *testing.T) {
	cab := seededCab(3, "A", "B")
	var ledger Ledger

	res := Reconcile(cab, &ledger, entries("A"), "loc", t0)
	if res.Outcome != NoChange {
		t.Fatalf("outcome = %s, want no_change", res.Outcome)
	}
	res = Reconcile(cab, &ledger, entries("X"), "loc", t0)
	if res.Outcome != SingleSlot {
		t.Fatalf("outcome = %s, want single_slot", res.Outcome)
	}
	assertCodes(t, "roster", cab.Codes(), "X", "A", "B")
}

func TestReconcilePruneCreditSuppressesOneEviction(t *testing.T) {
	cab := seededCab(3, "A", "B", "C")
	var ledger Ledger
	if _, ok := cab.prune("B"); !ok {
		t.Fatal("prune B failed")
	}

	Reconcile(cab, &ledger, entries("X", "A"), "loc", t0)
	assertCodes(t, "roster", cab.Codes(), "X", "A", "C")
	if cab.PruneCredit() != 0 {
		t.Fatalf("credit = %d, want 0", cab.PruneCredit())
	}

	Reconcile(cab, &ledger, entries("Y", "X"), "loc", t0)
	assertCodes(t, "roster", cab.Codes(), "Y", "X", "A")
}

func TestReconcileLedgerCarriesFirstSeen(t *testing.T) {
	cab := seededCab(2, "A", "B")
	var ledger Ledger
	t1 := t0.Add(30 * time.Minute)
	t2 := t0.Add(3 * time.Hour)

	Reconcile(cab, &ledger, entries("P", "A"), "loc", t0)
	Reconcile(cab, &ledger, entries("X", "Y"), "loc", t1)
	if cab.Contains("P") {
		t.Fatalf("P should have been evicted: %v", cab.Codes())
	}

	res := Reconcile(cab, &ledger, entries("P", "X"), "loc", t2)
	if len(res.Arrivals) != 0 {
		t.Fatalf("P returned the same day, got arrivals %+v", res.Arrivals)
	}
	p := cab.Roster()[0]
	if p.Code != "P" || !p.FirstSeen.Equal(t0) || !p.LastSeen.Equal(t2) {
		t.Fatalf("roster head = %+v, want P first=%v last=%v", p, t0, t2)
	}
	lp, _ := ledger.Get("P")
	if !lp.FirstSeen.Equal(t0) || !lp.LastSeen.Equal(t2) {
		t.Fatalf("ledger entry = %+v", lp)
	}
}

func TestLedgerKeepsNameForGhost(t *testing.T) {
	var ledger Ledger
	ledger.Touch(Player{Code: "1234", Name: "AFRO"}, t0)
	got, arrived := ledger.Touch(Player{Code: "1234"}, t0.Add(time.Minute))
	if arrived {
		t.Fatal("expected known player")
	}
	if got.Name != "AFRO" {
		t.Fatalf("name = %q, want AFRO", got.Name)
	}
}
