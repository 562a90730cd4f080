// internal/app/system/workers/orphans.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/techradar/compass/internal/app/services/groupsvc"
	"github.com/techradar/compass/internal/app/system/metrics"
	"github.com/techradar/compass/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// OrphanFinder lists group names referenced by solutions with no group record.
type OrphanFinder interface {
	FindOrphans(ctx context.Context) ([]groupsvc.OrphanRef, error)
}

// OrphanReconciler is a background worker that reports solutions whose
// group no longer exists. Such references are left behind when a rename
// without transactions fails part way and cannot be rolled back.
type OrphanReconciler struct {
	finder   OrphanFinder
	log      *zap.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewOrphanReconciler creates the worker.
//
// Parameters:
//   - finder: usually the group service
//   - logger: zap logger for logging
//   - interval: how often to scan (e.g., 15 minutes)
func NewOrphanReconciler(finder OrphanFinder, logger *zap.Logger, interval time.Duration) *OrphanReconciler {
	return &OrphanReconciler{
		finder:   finder,
		log:      logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one scan immediately, then every interval.
func (w *OrphanReconciler) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("orphan reconciler started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *OrphanReconciler) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("orphan reconciler stopped")
}

func (w *OrphanReconciler) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Scan()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.Scan()
		}
	}
}

// Scan runs one reconciliation pass and returns the number of orphaned
// group names, or -1 if the scan failed.
func (w *OrphanReconciler) Scan() int {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Batch())
	defer cancel()

	orphans, err := w.finder.FindOrphans(ctx)
	if err != nil {
		w.log.Error("failed to scan for orphaned group references", zap.Error(err))
		return -1
	}

	metrics.OrphanedGroupRefs.Set(float64(len(orphans)))
	for _, o := range orphans {
		w.log.Warn("solutions reference a group that does not exist",
			zap.String("group", o.Name),
			zap.Int64("solutions", o.Solutions))
	}
	return len(orphans)
}
