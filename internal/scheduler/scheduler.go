package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"cabwatch/internal/roster"
	"cabwatch/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type Fetcher interface {
	Fetch(ctx context.Context, credential string) ([]roster.Entry, error)
}

type Notifier interface {
	NotifyArrival(loc *roster.Location, p roster.Player)
	NotifyArrivals(loc *roster.Location, players []roster.Player)
	NotifyDailySummary(loc *roster.Location, players []roster.Player)
	QueryStatus(loc *roster.Location) string
	SetChannelTopic(loc *roster.Location, status string)
	Alert(text string)
}

type Archiver interface {
	ArchiveDailySummary(ctx context.Context, locationID string, players []roster.Player, reportedAt time.Time) error
}

type Config struct {
	Interval time.Duration
}

// CycleReport summarises one polling cycle.
type CycleReport struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Aborted  []string
	Arrivals int
	Prunes   int
}

type Scheduler struct {
	cfg      Config
	reg      *roster.Registry
	fetcher  Fetcher
	notifier Notifier
	archiver Archiver
	now      func() time.Time

	mu   sync.Mutex
	last CycleReport
}

// New builds a scheduler. archiver may be nil.
func New(cfg Config, reg *roster.Registry, fetcher Fetcher, notifier Notifier, archiver Archiver) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &Scheduler{
		cfg:      cfg,
		reg:      reg,
		fetcher:  fetcher,
		notifier: notifier,
		archiver: archiver,
		now:      time.Now,
	}
}

func (s *Scheduler) LastCycle() CycleReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run polls until ctx is done. Each cycle starts Interval after the
// previous one started, or immediately when it overran.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		start := time.Now()
		s.safeCycle(ctx)
		wait := s.cfg.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("cycle panicked")
		}
	}()
	s.RunCycle(ctx)
}

type cabFetch struct {
	cab     *roster.Cab
	index   int
	entries []roster.Entry
}

type locationPass struct {
	passes   []roster.CabPass
	arrivals int
}

// RunCycle performs one full pass over every location.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	started := s.now()
	report := CycleReport{ID: store.NewIDAt(started), Started: started}
	logger := log.With().Str("cycle_id", report.ID).Logger()

	locs := s.reg.Locations()
	var (
		mu      sync.Mutex
		passes  []roster.CabPass
		aborted = map[string]bool{}
	)
	var g errgroup.Group
	for _, loc := range locs {
		g.Go(func() error {
			res, err := s.runLocation(ctx, loc, logger)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				aborted[loc.ID] = true
				report.Aborted = append(report.Aborted, loc.ID)
				return nil
			}
			passes = append(passes, res.passes...)
			report.Arrivals += res.arrivals
			return nil
		})
	}
	_ = g.Wait()

	var prunes []roster.Prune
	s.reg.Mutate(func() { prunes = roster.Dedupe(passes) })
	for _, p := range prunes {
		logger.Info().
			Str("code", p.Player.Code).
			Str("from_location", p.FromLocation).
			Int("from_cab", p.FromCab).
			Str("location", p.ToLocation).
			Int("cab", p.ToCab).
			Msg("pruned duplicate")
	}
	report.Prunes = len(prunes)

	for _, loc := range locs {
		if aborted[loc.ID] {
			continue
		}
		s.reg.View(func() {
			s.notifier.SetChannelTopic(loc, s.notifier.QueryStatus(loc))
		})
	}

	report.Duration = s.now().Sub(started)
	logger.Info().
		Int("locations", len(locs)).
		Int("aborted", len(report.Aborted)).
		Int("arrivals", report.Arrivals).
		Int("prunes", report.Prunes).
		Dur("duration", report.Duration).
		Msg("cycle complete")

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report
}

func (s *Scheduler) runLocation(ctx context.Context, loc *roster.Location, logger zerolog.Logger) (res locationPass, err error) {
	logger = logger.With().Str("location", loc.ID).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("location pass panicked")
			err = fmt.Errorf("location %s panicked: %v", loc.ID, r)
		}
	}()

	s.rollover(ctx, loc, logger)

	fetched, err := s.fetchWithRetry(ctx, loc, logger)
	if err != nil {
		logger.Error().Err(err).Msg("location aborted for this cycle")
		s.notifier.Alert(fmt.Sprintf("%s: roster fetch failed twice, skipping this cycle", loc.ID))
		return locationPass{}, err
	}

	type notice struct {
		batch    bool
		arrivals []roster.Player
	}
	var notices []notice
	now := s.now()
	s.reg.Mutate(func() {
		for _, f := range fetched {
			result := roster.Reconcile(f.cab, &loc.Ledger, f.entries, loc.ID, now)
			res.passes = append(res.passes, roster.CabPass{LocationID: loc.ID, CabIndex: f.index, Cab: f.cab, Result: result})
			res.arrivals += len(result.Arrivals)
			if result.Changed() {
				logger.Debug().Int("cab", f.index).Str("outcome", result.Outcome.String()).Strs("inserted", result.Inserted).Msg("cab reconciled")
			}
			if len(result.Arrivals) > 0 {
				notices = append(notices, notice{batch: result.Outcome == roster.DoubleChange, arrivals: result.Arrivals})
			}
		}
	})

	for _, n := range notices {
		if n.batch {
			s.notifier.NotifyArrivals(loc, n.arrivals)
			continue
		}
		for _, p := range n.arrivals {
			s.notifier.NotifyArrival(loc, p)
		}
	}
	return res, nil
}

// rollover emits, archives and clears the ledger once per UTC day during
// the location's reporting hour.
func (s *Scheduler) rollover(ctx context.Context, loc *roster.Location, logger zerolog.Logger) {
	now := s.now()
	var (
		due     bool
		players []roster.Player
	)
	s.reg.Mutate(func() {
		if loc.RolloverDue(now) {
			due = true
			players = loc.Rollover(now)
		}
	})
	if !due {
		return
	}
	logger.Info().Int("players", len(players)).Msg("daily rollover")
	s.notifier.NotifyDailySummary(loc, players)
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveDailySummary(ctx, loc.ID, players, now); err != nil {
		logger.Error().Err(err).Msg("archive daily summary failed")
	}
}

// fetchWithRetry fetches every cab of loc, retrying the whole set once.
func (s *Scheduler) fetchWithRetry(ctx context.Context, loc *roster.Location, logger zerolog.Logger) ([]cabFetch, error) {
	cabs := s.reg.Cabs(loc)
	fetched, err := s.fetchAll(ctx, loc, cabs)
	if err == nil {
		return fetched, nil
	}
	logger.Warn().Err(err).Msg("roster fetch failed, retrying")
	return s.fetchAll(ctx, loc, cabs)
}

func (s *Scheduler) fetchAll(ctx context.Context, loc *roster.Location, cabs []*roster.Cab) ([]cabFetch, error) {
	out := make([]cabFetch, len(cabs))
	g, gctx := errgroup.WithContext(ctx)
	for i, cab := range cabs {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("cab %d fetch panicked: %v", i, r)
				}
			}()
			entries, err := s.fetcher.Fetch(gctx, cab.Credential)
			if err != nil {
				return fmt.Errorf("cab %d: %w", i, err)
			}
			for _, e := range entries[:min(2, len(entries))] {
				if e.Name == "" {
					log.Warn().Str("location", loc.ID).Int("cab", i).Str("code", e.Code).Msg("ghost entry at top of roster")
				}
			}
			out[i] = cabFetch{cab: cab, index: i, entries: entries}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// InitialLoad seeds every cab from one fetch with one retry. Locations that
// fail are seeded by the first successful cycle instead.
func (s *Scheduler) InitialLoad(ctx context.Context) error {
	locs := s.reg.Locations()
	errs := make([]error, len(locs))
	var g errgroup.Group
	for i, loc := range locs {
		g.Go(func() error {
			logger := log.With().Str("location", loc.ID).Logger()
			fetched, err := s.fetchWithRetry(ctx, loc, logger)
			if err != nil {
				logger.Error().Err(err).Msg("initial load failed")
				errs[i] = fmt.Errorf("initial load %s: %w", loc.ID, err)
				return nil
			}
			now := s.now()
			s.reg.Mutate(func() {
				for _, f := range fetched {
					roster.Reconcile(f.cab, &loc.Ledger, f.entries, loc.ID, now)
				}
			})
			s.reg.View(func() {
				s.notifier.SetChannelTopic(loc, s.notifier.QueryStatus(loc))
			})
			logger.Info().Int("cabs", len(fetched)).Msg("initial load complete")
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
