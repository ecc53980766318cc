package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huyndq/adpilot/internal/config"
	"github.com/huyndq/adpilot/internal/engine"
	"github.com/huyndq/adpilot/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	lockRuleEvaluation = "rule_evaluation_cycle"
	lockRevert         = "revert_cycle"
	lockKeyGlobal      = "global"
)

// CycleScheduler drives the two engine cycles on their configured cadence.
// Every run, scheduled or API-triggered, goes through the lease lock, so
// overlapping invocations of the same cycle type never run concurrently.
type CycleScheduler struct {
	engine *engine.Engine
	locks  *SchedulerLockService
	cfg    *config.EngineConfig
	cron   *cron.Cron
}

func NewCycleScheduler(eng *engine.Engine, locks *SchedulerLockService, cfg *config.EngineConfig) *CycleScheduler {
	return &CycleScheduler{engine: eng, locks: locks, cfg: cfg}
}

func (s *CycleScheduler) Start() {
	s.cron = cron.New()

	evaluateEvery := s.cfg.EvaluateEveryMin
	if evaluateEvery <= 0 {
		evaluateEvery = 5
	}
	revertEvery := s.cfg.RevertEveryMin
	if revertEvery <= 0 {
		revertEvery = 1
	}

	s.cron.AddFunc(fmt.Sprintf("@every %dm", evaluateEvery), func() {
		if _, err := s.RunEvaluation(context.Background(), nil); err != nil {
			logger.Errorf("[Scheduler] rule evaluation cycle failed: %v", err)
		}
	})
	s.cron.AddFunc(fmt.Sprintf("@every %dm", revertEvery), func() {
		if _, err := s.RunRevert(context.Background()); err != nil {
			logger.Errorf("[Scheduler] revert cycle failed: %v", err)
		}
	})

	s.cron.Start()
	logger.Infof("[Scheduler] started: evaluate every %dm, revert every %dm", evaluateEvery, revertEvery)
}

func (s *CycleScheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// runHolder builds a lease holder ID unique to one invocation. A shared
// per-process holder would let a cron fire and a manual trigger both claim
// the same lease through the holder match, which is exactly the overlap the
// lease exists to prevent.
func (s *CycleScheduler) runHolder() string {
	return s.engine.Holder() + "-" + uuid.New().String()[:8]
}

// keepLeaseAlive renews the lease at half its TTL until the returned stop
// function is called, so a cycle running longer than one TTL is not taken
// over mid-run.
func (s *CycleScheduler) keepLeaseAlive(name, key, holder string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.LockTTL() / 2)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ok, err := s.locks.Renew(name, key, holder, s.cfg.LockTTL())
				if err != nil {
					logger.Errorf("[Scheduler] cannot renew %s/%s lease: %v", name, key, err)
					return
				}
				if !ok {
					logger.Warnf("[Scheduler] lost %s/%s lease mid-run", name, key)
					return
				}
			}
		}
	}()
	return func() { close(done) }
}

// RunEvaluation runs one rule evaluation cycle under the lease lock. A nil
// summary with nil error means another invocation holds the lock.
func (s *CycleScheduler) RunEvaluation(ctx context.Context, tenantID *uint) (*engine.CycleSummary, error) {
	key := lockKeyGlobal
	if tenantID != nil {
		key = fmt.Sprintf("tenant-%d", *tenantID)
	}

	holder := s.runHolder()
	acquired, err := s.locks.Acquire(lockRuleEvaluation, key, holder, s.cfg.LockTTL())
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Infof("[Scheduler] rule evaluation cycle already running for %s, skipping", key)
		return nil, nil
	}
	stop := s.keepLeaseAlive(lockRuleEvaluation, key, holder)
	defer s.locks.Release(lockRuleEvaluation, key, holder)
	defer stop()

	return s.engine.RunRuleEvaluationCycle(ctx, tenantID)
}

// RunRevert runs one revert cycle under the lease lock.
func (s *CycleScheduler) RunRevert(ctx context.Context) (*engine.RevertSummary, error) {
	holder := s.runHolder()
	acquired, err := s.locks.Acquire(lockRevert, lockKeyGlobal, holder, s.cfg.LockTTL())
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Infof("[Scheduler] revert cycle already running, skipping")
		return nil, nil
	}
	stop := s.keepLeaseAlive(lockRevert, lockKeyGlobal, holder)
	defer s.locks.Release(lockRevert, lockKeyGlobal, holder)
	defer stop()

	return s.engine.RunRevertCycle(ctx)
}

// ProcessCycleTask is the task queue processor for API-triggered runs.
func (s *CycleScheduler) ProcessCycleTask(ctx context.Context, task *CycleTask) error {
	switch task.Kind {
	case CycleKindEvaluate:
		_, err := s.RunEvaluation(ctx, task.TenantID)
		return err
	case CycleKindRevert:
		_, err := s.RunRevert(ctx)
		return err
	}
	return fmt.Errorf("unknown cycle kind %q", task.Kind)
}
