package agent

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/aika-bot/aika/pkg/affection"
	"github.com/aika-bot/aika/pkg/logger"
	"github.com/aika-bot/aika/pkg/memory"
	"github.com/aika-bot/aika/pkg/providers"
)

// Scheduler runs the background maintenance jobs on cron expressions:
// the nightly affection decay sweep and the memory consolidation pass.
type Scheduler struct {
	affection *affection.System
	memory    *memory.System
	provider  providers.LLMProvider

	decayCron       string
	consolidateCron string

	gron   *gronx.Gronx
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(affectionSys *affection.System, memorySys *memory.System, provider providers.LLMProvider, decayCron, consolidateCron string) *Scheduler {
	return &Scheduler{
		affection:       affectionSys,
		memory:          memorySys,
		provider:        provider,
		decayCron:       decayCron,
		consolidateCron: consolidateCron,
		gron:            gronx.New(),
	}
}

// Start launches the minute tick loop. Invalid expressions disable the
// corresponding job with a logged warning.
func (s *Scheduler) Start(parent context.Context) {
	if s.decayCron != "" && !s.gron.IsValid(s.decayCron) {
		logger.WarnCF("scheduler", "invalid decay cron expression, job disabled", map[string]interface{}{
			"expr": s.decayCron,
		})
		s.decayCron = ""
	}
	if s.consolidateCron != "" && !s.gron.IsValid(s.consolidateCron) {
		logger.WarnCF("scheduler", "invalid consolidation cron expression, job disabled", map[string]interface{}{
			"expr": s.consolidateCron,
		})
		s.consolidateCron = ""
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.tick(ctx, now)
			}
		}
	}()

	logger.InfoCF("scheduler", "background jobs started", map[string]interface{}{
		"decay_cron":       s.decayCron,
		"consolidate_cron": s.consolidateCron,
	})
}

// Stop cancels the loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	if s.due(s.decayCron, now) {
		s.RunDecay()
	}
	if s.due(s.consolidateCron, now) {
		s.RunConsolidation(ctx)
	}
}

func (s *Scheduler) due(expr string, now time.Time) bool {
	if expr == "" {
		return false
	}
	due, err := s.gron.IsDue(expr, now)
	if err != nil {
		logger.WarnCF("scheduler", "cron evaluation failed", map[string]interface{}{
			"expr":  expr,
			"error": err.Error(),
		})
		return false
	}
	return due
}

// RunDecay sweeps inactivity decay across every known user.
func (s *Scheduler) RunDecay() {
	s.affection.ApplyDecayAll()
	logger.InfoCF("scheduler", "decay sweep completed", map[string]interface{}{
		"users": len(s.affection.UserIDs()),
	})
}

// RunConsolidation summarizes accumulated facts for every known user.
func (s *Scheduler) RunConsolidation(ctx context.Context) {
	for _, userID := range s.affection.UserIDs() {
		if err := s.memory.Consolidate(ctx, userID, s.provider); err != nil {
			logger.WarnCF("scheduler", "consolidation failed", map[string]interface{}{
				"user_id": userID,
				"error":   err.Error(),
			})
		}
	}
	logger.InfoCF("scheduler", "consolidation pass completed", map[string]interface{}{
		"users": len(s.affection.UserIDs()),
	})
}
