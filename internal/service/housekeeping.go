package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/scanloop"
)

// PurgeExpiredTempAssignments removes temp assignments past their TTL,
// across all tenants. Returns the number removed.
func (c *Core) PurgeExpiredTempAssignments() (int64, error) {
	cutoff := c.today().AddDays(-model.TempAssignmentTTLDays)
	return c.Store.TempAssignments.DeleteExpired(cutoff)
}

// PurgeStaleRoutes removes persisted routes older than retentionDays.
func (c *Core) PurgeStaleRoutes(retentionDays int) (int64, error) {
	cutoff := c.today().AddDays(-retentionDays)
	return c.Store.Routes.DeleteRoutesBefore(cutoff)
}

// Housekeeper owns the background maintenance work: a nightly cron purge of
// expired temp assignments and a jittered sweep of routes past retention.
type Housekeeper struct {
	core          *Core
	cron          *cron.Cron
	retentionDays int

	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	minInterval time.Duration
	jitterRange time.Duration
}

// NewHousekeeper validates the purge schedule and prepares the jobs.
func NewHousekeeper(core *Core, purgeSchedule string, retentionDays int) (*Housekeeper, error) {
	h := &Housekeeper{
		core:          core,
		cron:          cron.New(),
		retentionDays: retentionDays,
		stopCh:        make(chan struct{}),
		minInterval:   scanloop.DefaultMinInterval,
		jitterRange:   scanloop.DefaultJitterRange,
	}
	if _, err := h.cron.AddFunc(purgeSchedule, h.purgeTempAssignments); err != nil {
		return nil, fmt.Errorf("housekeeper: invalid purge schedule %q: %w", purgeSchedule, err)
	}
	return h, nil
}

// Start launches the cron scheduler and the retention sweeper.
func (h *Housekeeper) Start() {
	h.cron.Start()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		scanloop.Run(h.stopCh, h.minInterval, h.jitterRange, h.sweepStaleRoutes)
	}()
}

// Stop halts both jobs and waits for any in-flight run.
func (h *Housekeeper) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	ctx := h.cron.Stop()
	<-ctx.Done()
	h.wg.Wait()
}

func (h *Housekeeper) purgeTempAssignments() {
	n, err := h.core.PurgeExpiredTempAssignments()
	if err != nil {
		log.Printf("[housekeeper] temp assignment purge failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[housekeeper] purged %d expired temp assignments", n)
	}
}

func (h *Housekeeper) sweepStaleRoutes() {
	n, err := h.core.PurgeStaleRoutes(h.retentionDays)
	if err != nil {
		log.Printf("[housekeeper] stale route sweep failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("[housekeeper] removed %d routes past %d-day retention", n, h.retentionDays)
	}
}
