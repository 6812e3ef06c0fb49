package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cabwatch/internal/roster"
	"cabwatch/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrMissingArgument = errors.New("missing_argument")
	ErrSeedFailed      = errors.New("cab_seed_failed")
)

type Fetcher interface {
	Fetch(ctx context.Context, credential string) ([]roster.Entry, error)
}

type Notifier interface {
	Reply(channelID, text string)
	ReportToChannel(channelID string, loc *roster.Location, players []roster.Player)
	NotifyDailySummary(loc *roster.Location, players []roster.Player)
	QueryStatus(loc *roster.Location) string
	QueryHere(loc *roster.Location) string
}

// Service holds the operator operations shared by chat commands and the
// admin HTTP API. Changes apply to the registry immediately; a cycle in
// flight may overwrite them.
type Service struct {
	reg      *roster.Registry
	fetcher  Fetcher
	notifier Notifier
	capacity int
	now      func() time.Time
}

func NewService(reg *roster.Registry, fetcher Fetcher, notifier Notifier, capacity int) *Service {
	return &Service{
		reg:      reg,
		fetcher:  fetcher,
		notifier: notifier,
		capacity: capacity,
		now:      time.Now,
	}
}

func (s *Service) Registry() *roster.Registry {
	return s.reg
}

// AddCab seeds a cab for credential from an immediate fetch and appends it.
// The cab is registered only once the fetch returns, so no cycle sees it
// half seeded. When the fetch fails the cab is still added unseeded and the
// next cycle seeds it.
func (s *Service) AddCab(ctx context.Context, locationID, credential string) (int, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return 0, ErrMissingArgument
	}
	loc, ok := s.reg.Location(locationID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", roster.ErrLocationNotFound, locationID)
	}
	cab := roster.NewCab(store.NewID(), credential, s.capacity)

	entries, fetchErr := s.fetcher.Fetch(ctx, credential)
	if fetchErr == nil {
		// cab is not registered yet, so this can only seed or skip
		s.reg.Mutate(func() {
			roster.Reconcile(cab, &loc.Ledger, entries, loc.ID, s.now())
		})
	}

	index, err := s.reg.AddCab(loc.ID, cab)
	if err != nil {
		return 0, err
	}
	if fetchErr != nil {
		log.Warn().Err(fetchErr).Str("location", loc.ID).Int("cab", index).Msg("seed fetch for new cab failed")
		return index, fmt.Errorf("%w: %v", ErrSeedFailed, fetchErr)
	}
	log.Info().Str("location", loc.ID).Int("cab", index).Str("cab_id", cab.ID).Int("players", cab.Len()).Msg("cab added")
	return index, nil
}

func (s *Service) RemoveCab(locationID string, index int) error {
	cab, err := s.reg.RemoveCab(locationID, index)
	if err != nil {
		return err
	}
	log.Info().Str("location", locationID).Int("cab", index).Str("cab_id", cab.ID).Msg("cab removed")
	return nil
}

func (s *Service) AddVisiblePlayer(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrMissingArgument
	}
	s.reg.MarkVisible(code)
	log.Info().Str("code", code).Msg("visible player added")
	return nil
}

// ReportDaily posts today's players for every location without clearing
// the ledgers, and returns how many locations were reported.
func (s *Service) ReportDaily() int {
	locs := s.reg.Locations()
	for _, loc := range locs {
		var players []roster.Player
		s.reg.View(func() { players = loc.Ledger.Players() })
		s.notifier.NotifyDailySummary(loc, players)
	}
	log.Info().Int("locations", len(locs)).Msg("daily report forced")
	return len(locs)
}

func (s *Service) Status(locationID string) (string, error) {
	loc, ok := s.reg.Location(locationID)
	if !ok {
		return "", fmt.Errorf("%w: %s", roster.ErrLocationNotFound, locationID)
	}
	var status string
	s.reg.View(func() { status = s.notifier.QueryStatus(loc) })
	return status, nil
}
