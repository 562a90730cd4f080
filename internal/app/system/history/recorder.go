// internal/app/system/history/recorder.go
package history

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/techradar/compass/internal/domain/models"
	"go.uber.org/zap"
)

// Destinations for history records.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off" // disabled
)

// ValidMode reports whether m is a known destination setting.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Sink persists history records (historystore.Store in production).
type Sink interface {
	Insert(ctx context.Context, rec models.HistoryRecord) error
}

// Recorder writes change records after a write has committed. Recording is
// best effort: failures are logged and never returned to the caller.
type Recorder struct {
	sink   Sink
	zapLog *zap.Logger
	mode   string
	now    func() time.Time
}

// New creates a Recorder. An unknown mode falls back to ModeAll.
func New(sink Sink, zapLog *zap.Logger, mode string) *Recorder {
	if !ValidMode(mode) {
		mode = ModeAll
	}
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Recorder{sink: sink, zapLog: zapLog, mode: mode, now: func() time.Time { return time.Now().UTC() }}
}

// Change describes one recorded mutation.
type Change struct {
	ObjectType string
	ObjectID   string
	ObjectName string
	ChangeType string
	Actor      string
	Fields     []models.ChangedField
	Summary    string
}

// RecordChange records c according to the configured mode.
// If the recorder is nil, this is a no-op (allows tests to use nil recorder).
func (r *Recorder) RecordChange(ctx context.Context, c Change) {
	if r == nil || r.mode == ModeOff {
		return
	}

	now := r.now()
	rec := models.HistoryRecord{
		ObjectType:    c.ObjectType,
		ObjectID:      c.ObjectID,
		ObjectName:    c.ObjectName,
		ChangeType:    c.ChangeType,
		ChangedFields: c.Fields,
		ChangeSummary: c.Summary,
		CreatedAt:     now,
		CreatedBy:     c.Actor,
		UpdatedAt:     now,
		UpdatedBy:     c.Actor,
	}
	if rec.ChangedFields == nil {
		rec.ChangedFields = []models.ChangedField{}
	}

	if r.mode == ModeAll || r.mode == ModeLog {
		r.logToZap(rec)
	}
	if (r.mode == ModeAll || r.mode == ModeDB) && r.sink != nil {
		if err := r.sink.Insert(ctx, rec); err != nil {
			r.zapLog.Error("failed to store history record",
				zap.Error(err),
				zap.String("object_type", rec.ObjectType),
				zap.String("object_id", rec.ObjectID),
				zap.String("change_type", rec.ChangeType),
			)
		}
	}
}

// logToZap logs the record with consistent structure.
func (r *Recorder) logToZap(rec models.HistoryRecord) {
	fields := []zap.Field{
		zap.Bool("history", true),
		zap.String("object_type", rec.ObjectType),
		zap.String("object_id", rec.ObjectID),
		zap.String("object_name", rec.ObjectName),
		zap.String("change_type", rec.ChangeType),
		zap.String("actor", rec.CreatedBy),
	}
	names := make([]string, 0, len(rec.ChangedFields))
	for _, f := range rec.ChangedFields {
		names = append(names, f.FieldName)
	}
	if len(names) > 0 {
		fields = append(fields, zap.Strings("changed_fields", names))
	}
	if rec.ChangeSummary != "" {
		fields = append(fields, zap.String("summary", rec.ChangeSummary))
	}
	r.zapLog.Info("history record", fields...)
}

// Diff lists the fields whose values differ between before and after,
// ordered by field name. Keys present on one side only are included.
func Diff(before, after map[string]any) []models.ChangedField {
	keys := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	out := []models.ChangedField{}
	for _, k := range names {
		o, n := before[k], after[k]
		if reflect.DeepEqual(o, n) {
			continue
		}
		out = append(out, models.ChangedField{FieldName: k, OldValue: o, NewValue: n})
	}
	return out
}

// Snapshot is the field set of a value used as Diff input.
func Snapshot(pairs ...any) map[string]any {
	if len(pairs)%2 != 0 {
		panic(fmt.Sprintf("history.Snapshot: odd argument count %d", len(pairs)))
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out[pairs[i].(string)] = pairs[i+1]
	}
	return out
}
