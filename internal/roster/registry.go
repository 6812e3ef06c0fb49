package roster

import (
	"fmt"
	"sync"
)

// Registry owns every Location and Cab for the process. Cab rosters and
// ledgers are read and written under Mutate/View; the visibility lists have
// their own lock so formatters can consult them from inside either.
type Registry struct {
	mu        sync.RWMutex
	locations []*Location
	byID      map[string]*Location

	listsMu sync.RWMutex
	visible map[string]struct{}
	watched map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byID:    map[string]*Location{},
		visible: map[string]struct{}{},
		watched: map[string]struct{}{},
	}
}

func (r *Registry) AddLocation(loc *Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[loc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateLocation, loc.ID)
	}
	r.locations = append(r.locations, loc)
	r.byID[loc.ID] = loc
	return nil
}

// Locations returns the configured locations in configuration order.
func (r *Registry) Locations() []*Location {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Location, len(r.locations))
	copy(out, r.locations)
	return out
}

func (r *Registry) Location(id string) (*Location, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.byID[id]
	return loc, ok
}

// Cabs returns a copy of the location's current cab list.
func (r *Registry) Cabs(loc *Location) []*Cab {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Cab, len(loc.Cabs))
	copy(out, loc.Cabs)
	return out
}

// AddCab appends cab to the location and returns its index.
func (r *Registry) AddCab(locationID string, cab *Cab) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.byID[locationID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}
	loc.Cabs = append(loc.Cabs, cab)
	return len(loc.Cabs) - 1, nil
}

func (r *Registry) RemoveCab(locationID string, index int) (*Cab, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.byID[locationID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocationNotFound, locationID)
	}
	if index < 0 || index >= len(loc.Cabs) {
		return nil, fmt.Errorf("%w: %d", ErrCabIndex, index)
	}
	cab := loc.Cabs[index]
	loc.Cabs = append(loc.Cabs[:index:index], loc.Cabs[index+1:]...)
	return cab, nil
}

// Mutate runs fn with exclusive access to rosters and ledgers.
func (r *Registry) Mutate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// View runs fn with shared access to rosters and ledgers.
func (r *Registry) View(fn func()) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn()
}

func (r *Registry) MarkVisible(codes ...string) {
	r.listsMu.Lock()
	defer r.listsMu.Unlock()
	for _, c := range codes {
		r.visible[c] = struct{}{}
	}
}

func (r *Registry) IsVisible(code string) bool {
	r.listsMu.RLock()
	defer r.listsMu.RUnlock()
	_, ok := r.visible[code]
	return ok
}

func (r *Registry) MarkWatched(codes ...string) {
	r.listsMu.Lock()
	defer r.listsMu.Unlock()
	for _, c := range codes {
		r.watched[c] = struct{}{}
	}
}

func (r *Registry) IsWatched(code string) bool {
	r.listsMu.RLock()
	defer r.listsMu.RUnlock()
	_, ok := r.watched[code]
	return ok
}
