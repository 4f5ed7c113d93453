package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"agent-chess-league/services"

	"github.com/go-co-op/gocron/v2"
)

// MaintenanceWorker drives the recurring league upkeep: forfeit overdue
// games, then pair idle agents. The same pass also runs synchronously when
// an agent polls its status.
type MaintenanceWorker struct {
	Timeouts    *services.TimeoutService
	Matchmaking *services.MatchmakingService
	Interval    time.Duration

	mu    sync.Mutex
	sched gocron.Scheduler
}

func NewMaintenanceWorker(timeouts *services.TimeoutService, matchmaking *services.MatchmakingService, interval time.Duration) *MaintenanceWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MaintenanceWorker{
		Timeouts:    timeouts,
		Matchmaking: matchmaking,
		Interval:    interval,
	}
}

// RunSweep executes one maintenance pass. When the timer and a status
// request race, exactly one pass runs; the loser returns immediately. Both
// halves are idempotent, so a skipped pass only delays work to the next
// trigger.
func (w *MaintenanceWorker) RunSweep() {
	if !w.mu.TryLock() {
		return
	}
	defer w.mu.Unlock()

	if n, err := w.Timeouts.Sweep(); err != nil {
		log.Printf("[Maintenance] timeout sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("[Maintenance] forfeited %d game(s) on time", n)
	}

	if err := w.Matchmaking.AutoMatch(); err != nil {
		log.Printf("[Maintenance] auto-match failed: %v", err)
	}
}

// Start schedules the periodic sweep and shuts it down when ctx is
// cancelled.
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	if _, err := sched.NewJob(
		gocron.DurationJob(w.Interval),
		gocron.NewTask(w.RunSweep),
	); err != nil {
		return err
	}
	sched.Start()
	log.Printf("[Maintenance] sweeping every %s", w.Interval)

	go func() {
		<-ctx.Done()
		if err := w.sched.Shutdown(); err != nil {
			log.Printf("[Maintenance] scheduler shutdown: %v", err)
		}
		log.Println("[Maintenance] worker stopped")
	}()
	return nil
}
