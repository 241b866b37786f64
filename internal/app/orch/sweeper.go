package orch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Presence/internal/core"
)

type SweeperConfig struct {
	Interval time.Duration
	Grace    time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval: time.Minute,
		Grace:    10 * time.Minute,
	}
}

// Sweeper closes rooms that have stayed vacant longer than the grace period.
type Sweeper struct {
	orch   *Orchestrator
	config SweeperConfig
	stop   chan struct{}
	wg     conc.WaitGroup
}

func NewSweeper(o *Orchestrator, config SweeperConfig) *Sweeper {
	def := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Grace < 0 {
		config.Grace = def.Grace
	}
	return &Sweeper{
		orch:   o,
		config: config,
		stop:   make(chan struct{}),
	}
}

func (s *Sweeper) Start() {
	s.wg.Go(s.run)
	log.Info().Str("module", "orch.sweeper").Dur("interval", s.config.Interval).Dur("grace", s.config.Grace).Msg("sweeper started")
}

func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
	log.Info().Str("module", "orch.sweeper").Msg("sweeper stopped")
}

func (s *Sweeper) run() {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Sweep closes every vacant room past its grace period and returns how
// many it closed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	now := s.orch.now()
	closed := 0
	for _, room := range s.orch.Rooms.All() {
		if !s.expired(room, now) {
			continue
		}
		err := s.orch.withRoom(room.ID(), func(r *core.Room) error {
			// re-checked under the lock; someone may have joined meanwhile
			if !s.expired(r, now) {
				return nil
			}
			s.orch.closeLocked(ctx, r)
			closed++
			return nil
		})
		if err != nil {
			log.Debug().Err(err).Str("module", "orch.sweeper").Str("project", string(room.ID())).Msg("room gone before sweep")
		}
	}
	if closed > 0 {
		log.Info().Str("module", "orch.sweeper").Int("closed", closed).Msg("vacant rooms closed")
	}
	return closed
}

func (s *Sweeper) expired(room *core.Room, now time.Time) bool {
	if room.State() != core.Vacant {
		return false
	}
	since, ok := room.VacantSince()
	return ok && now.Sub(since) >= s.config.Grace
}
