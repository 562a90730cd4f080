package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/techradar/compass/internal/app/services/groupsvc"
	"github.com/techradar/compass/internal/app/system/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubFinder struct {
	orphans []groupsvc.OrphanRef
	err     error
	calls   atomic.Int32
}

func (s *stubFinder) FindOrphans(context.Context) ([]groupsvc.OrphanRef, error) {
	s.calls.Add(1)
	return s.orphans, s.err
}

func TestOrphanReconciler_Scan(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := &stubFinder{orphans: []groupsvc.OrphanRef{{Name: "Frontend", Solutions: 3}, {Name: "Ops", Solutions: 1}}}
	w := NewOrphanReconciler(f, zap.New(core), time.Hour)

	if n := w.Scan(); n != 2 {
		t.Fatalf("Scan = %d, want 2", n)
	}
	if got := testutil.ToFloat64(metrics.OrphanedGroupRefs); got != 2 {
		t.Errorf("gauge = %v, want 2", got)
	}
	warns := logs.FilterMessage("solutions reference a group that does not exist").All()
	if len(warns) != 2 {
		t.Fatalf("got %d warnings, want 2", len(warns))
	}
	if warns[0].ContextMap()["group"] != "Frontend" || warns[0].ContextMap()["solutions"] != int64(3) {
		t.Errorf("first warning fields = %v", warns[0].ContextMap())
	}

	f.orphans = nil
	if n := w.Scan(); n != 0 {
		t.Errorf("Scan = %d, want 0", n)
	}
	if got := testutil.ToFloat64(metrics.OrphanedGroupRefs); got != 0 {
		t.Errorf("gauge = %v after clean scan, want 0", got)
	}
}

func TestOrphanReconciler_ScanError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := NewOrphanReconciler(&stubFinder{err: errors.New("down")}, zap.New(core), time.Hour)
	if n := w.Scan(); n != -1 {
		t.Errorf("Scan = %d, want -1", n)
	}
	if logs.Len() != 1 {
		t.Errorf("got %d error logs, want 1", logs.Len())
	}
}

func TestOrphanReconciler_StartStop(t *testing.T) {
	f := &stubFinder{}
	w := NewOrphanReconciler(f, zap.NewNop(), time.Hour)
	w.Start()

	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	if f.calls.Load() != 1 {
		t.Errorf("scans = %d, want 1 immediate scan", f.calls.Load())
	}
}
