// Package groupsvc keeps groups and the solutions that reference them by
// name consistent: unique names, live usage counts, rename propagation and
// an in-use delete guard, with a cached listing in front.
package groupsvc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	groupstore "github.com/techradar/compass/internal/app/store/groups"
	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/inputval"
	"github.com/techradar/compass/internal/app/system/listcache"
	"github.com/techradar/compass/internal/app/system/metrics"
	"github.com/techradar/compass/internal/app/system/txn"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// GroupStore is the slice of groupstore.Store the service needs.
type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	FindByName(ctx context.Context, name string) (models.Group, bool, error)
	Insert(ctx context.Context, g models.Group) (models.Group, error)
	List(ctx context.Context, sort groupstore.Sort, skip, limit int64) ([]models.Group, error)
	Count(ctx context.Context) (int64, error)
	Names(ctx context.Context) ([]string, error)
	Update(ctx context.Context, id primitive.ObjectID, f groupstore.Fields) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
}

// SolutionStore is the slice of solutionstore.Store the service needs.
type SolutionStore interface {
	CountByGroups(ctx context.Context, names []string) (map[string]int64, error)
	GroupRefCounts(ctx context.Context) (map[string]int64, error)
	ExistsByGroup(ctx context.Context, name string) (bool, error)
	RenameGroup(ctx context.Context, old, new, actor string, at time.Time) (int64, error)
	UndoGroupRename(ctx context.Context, old, new, actor string, at time.Time) (int64, error)
}

// Input is the body of a create request.
type Input struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	Order       int    `json:"order"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Order       *int    `json:"order,omitempty"`
}

// OrphanRef is a group name that solutions reference but no group record has.
type OrphanRef struct {
	Name      string `json:"name"`
	Solutions int64  `json:"solutions"`
}

// Sortable fields for List. A leading "-" sorts descending.
var sortable = map[string]bool{"order": true, "name": true, "created_at": true, "updated_at": true}

// DefaultSort is the listing order when none is given.
const DefaultSort = "order"

// Options carries the optional collaborators.
type Options struct {
	Cache   listcache.Backend[[]models.Group] // default: in-memory, 1h TTL
	History *history.Recorder
	Log     *zap.Logger
	Now     func() time.Time
}

type Service struct {
	groups    GroupStore
	solutions SolutionStore
	tx        txn.Runner
	cache     *listcache.Cache[[]models.Group]
	hist      *history.Recorder
	log       *zap.Logger
	now       func() time.Time
}

func New(groups GroupStore, solutions SolutionStore, tx txn.Runner, opts Options) *Service {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Cache == nil {
		opts.Cache = listcache.NewMemory[[]models.Group](time.Hour, 256)
	}
	if tx == nil {
		tx = txn.Direct{}
	}
	hooks := listcache.Hooks{
		Hit:         metrics.GroupCacheHits.Inc,
		Miss:        metrics.GroupCacheMisses.Inc,
		Purge:       metrics.GroupCachePurges.Inc,
		PurgeFailed: metrics.GroupCachePurgeFailures.Inc,
	}
	return &Service{
		groups:    groups,
		solutions: solutions,
		tx:        tx,
		cache:     listcache.New(opts.Cache, hooks, opts.Log),
		hist:      opts.History,
		log:       opts.Log,
		now:       opts.Now,
	}
}

// stamp is the audit timestamp for one write, at Mongo's precision.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// ParseSort validates a sort expression such as "name" or "-created_at".
func ParseSort(expr string) (groupstore.Sort, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		expr = DefaultSort
	}
	field, desc := strings.TrimPrefix(expr, "-"), strings.HasPrefix(expr, "-")
	if !sortable[field] {
		return groupstore.Sort{}, apperr.Newf(apperr.ErrValidation, "Invalid sort field '%s'", field)
	}
	return groupstore.Sort{Field: field, Desc: desc}, nil
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, apperr.Newf(apperr.ErrNotFound, "Group not found")
	}
	return oid, nil
}

func cleanInput(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = inputval.PlainText(in.Description)
	if err := inputval.Validate(in).Err(); err != nil {
		return Input{}, err
	}
	return in, nil
}

// changes reports whether applying p to g would modify anything.
func (p Patch) changes(g models.Group) bool {
	return (p.Name != nil && *p.Name != g.Name) ||
		(p.Description != nil && *p.Description != g.Description) ||
		(p.Order != nil && *p.Order != g.Order)
}

func cleanPatch(p Patch) (Patch, error) {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return Patch{}, apperr.Newf(apperr.ErrValidation, "Group name cannot be empty")
		}
		p.Name = &n
	}
	if p.Description != nil {
		d := inputval.PlainText(*p.Description)
		p.Description = &d
	}
	if err := inputval.Validate(p).Err(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Create inserts a new group. The name must not already exist (exact,
// case-sensitive match).
func (s *Service) Create(ctx context.Context, in Input, actor string) (models.Group, error) {
	in, err := cleanInput(in)
	if err != nil {
		return models.Group{}, err
	}
	return s.create(ctx, in, actor)
}

func (s *Service) create(ctx context.Context, in Input, actor string) (models.Group, error) {
	if _, ok, err := s.groups.FindByName(ctx, in.Name); err != nil {
		return models.Group{}, fmt.Errorf("lookup group %q: %w", in.Name, err)
	} else if ok {
		return models.Group{}, apperr.Newf(apperr.ErrDuplicateName, "Group '%s' already exists", in.Name)
	}

	now := s.stamp()
	g, err := s.groups.Insert(ctx, models.Group{
		Name:        in.Name,
		Description: in.Description,
		Order:       in.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
		CreatedBy:   actor,
		UpdatedBy:   actor,
	})
	if err != nil {
		return models.Group{}, clientErr(err, in.Name)
	}
	s.cache.Invalidate(ctx)

	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectGroup,
		ObjectID:   g.ID.Hex(),
		ObjectName: g.Name,
		ChangeType: models.ChangeCreate,
		Actor:      actor,
		Fields:     history.Diff(nil, snapshot(g)),
	})

	// A new name can already be referenced by orphaned solutions.
	return s.decorateOne(ctx, g)
}

// List returns one page of groups with usage counts, served from the list
// cache when possible.
func (s *Service) List(ctx context.Context, skip, limit int64, sortExpr string) ([]models.Group, error) {
	srt, err := ParseSort(sortExpr)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d:%d:%s", skip, limit, sortKey(srt))
	page, err := s.cache.Fetch(ctx, key, func(ctx context.Context) ([]models.Group, error) {
		gs, err := s.groups.List(ctx, srt, skip, limit)
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		return s.decorate(ctx, gs)
	})
	if err != nil {
		return nil, err
	}
	// Callers may hold the slice after the next invalidation.
	return append([]models.Group(nil), page...), nil
}

func sortKey(s groupstore.Sort) string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// Count returns the total number of groups.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.groups.Count(ctx)
}

// Get returns one group with its usage count.
func (s *Service) Get(ctx context.Context, id string) (models.Group, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.Group{}, err
	}
	g, err := s.groups.GetByID(ctx, oid)
	if err != nil {
		return models.Group{}, clientErr(err, "")
	}
	return s.decorateOne(ctx, g)
}

// Update applies p. A name change is propagated to every solution that
// referenced the old name, inside one transaction when available.
func (s *Service) Update(ctx context.Context, id string, p Patch, actor string) (models.Group, error) {
	oid, err := parseID(id)
	if err != nil {
		return models.Group{}, err
	}
	p, err = cleanPatch(p)
	if err != nil {
		return models.Group{}, err
	}
	current, err := s.groups.GetByID(ctx, oid)
	if err != nil {
		return models.Group{}, clientErr(err, "")
	}

	if !p.changes(current) {
		return s.decorateOne(ctx, current)
	}

	renaming := p.Name != nil && *p.Name != current.Name
	if renaming {
		other, ok, err := s.groups.FindByName(ctx, *p.Name)
		if err != nil {
			return models.Group{}, fmt.Errorf("lookup group %q: %w", *p.Name, err)
		}
		if ok && other.ID != oid {
			return models.Group{}, apperr.Newf(apperr.ErrDuplicateName, "Group '%s' is already in use", *p.Name)
		}
	}

	at := s.stamp()
	fields := groupstore.Fields{
		Name:        p.Name,
		Description: p.Description,
		Order:       p.Order,
		UpdatedAt:   at,
		UpdatedBy:   actor,
	}

	if renaming {
		err = s.rename(ctx, oid, current.Name, *p.Name, fields, actor, at)
	} else {
		err = s.groups.Update(ctx, oid, fields)
	}
	// Invalidate even on failure: a partial write may have landed.
	s.cache.Invalidate(ctx)
	if err != nil {
		if p.Name != nil {
			return models.Group{}, clientErr(err, *p.Name)
		}
		return models.Group{}, clientErr(err, "")
	}

	updated, err := s.groups.GetByID(ctx, oid)
	if err != nil {
		return models.Group{}, err
	}
	if changed := history.Diff(snapshot(current), snapshot(updated)); len(changed) > 0 {
		summary := ""
		if renaming {
			summary = fmt.Sprintf("Renamed group '%s' to '%s'", current.Name, updated.Name)
		}
		s.hist.RecordChange(ctx, history.Change{
			ObjectType: models.ObjectGroup,
			ObjectID:   oid.Hex(),
			ObjectName: updated.Name,
			ChangeType: models.ChangeUpdate,
			Actor:      actor,
			Fields:     changed,
			Summary:    summary,
		})
	}
	return s.decorateOne(ctx, updated)
}

// rename moves solutions from old to new and then updates the group.
// Without a transaction, a failed group update is compensated by moving
// the solutions back; if that also fails the caller gets ErrConsistency.
func (s *Service) rename(ctx context.Context, id primitive.ObjectID, old, new string, f groupstore.Fields, actor string, at time.Time) error {
	var moved int64
	renamed := false
	transacted, err := s.tx.Run(ctx, func(ctx context.Context) error {
		n, err := s.solutions.RenameGroup(ctx, old, new, actor, at)
		if err != nil {
			return fmt.Errorf("rename solutions %q to %q: %w", old, new, err)
		}
		moved, renamed = n, true
		return s.groups.Update(ctx, id, f)
	})
	defer func() { metrics.ObserveRename(transacted, moved, err) }()

	if err == nil || transacted || !renamed {
		return err
	}

	// Ordered writes: solutions moved, group not updated.
	undoCtx := context.WithoutCancel(ctx)
	if _, uerr := s.solutions.UndoGroupRename(undoCtx, old, new, actor, at); uerr != nil {
		s.log.Error("group rename left solutions pointing at a name with no group",
			zap.String("group_id", id.Hex()),
			zap.String("old_name", old),
			zap.String("new_name", new),
			zap.Int64("solutions_moved", moved),
			zap.NamedError("update_error", err),
			zap.NamedError("rollback_error", uerr))
		err = fmt.Errorf("%w: renaming group %q to %q: group update failed (%v) and solutions could not be restored: %v",
			apperr.ErrConsistency, old, new, err, uerr)
		return err
	}
	s.log.Warn("group rename rolled back",
		zap.String("group_id", id.Hex()),
		zap.String("old_name", old),
		zap.String("new_name", new),
		zap.Error(err))
	return err
}

// Delete removes a group that no solution references.
func (s *Service) Delete(ctx context.Context, id string, actor string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	g, err := s.groups.GetByID(ctx, oid)
	if err != nil {
		return clientErr(err, "")
	}
	inUse, err := s.solutions.ExistsByGroup(ctx, g.Name)
	if err != nil {
		return fmt.Errorf("check group usage: %w", err)
	}
	if inUse {
		return apperr.Newf(apperr.ErrInUse, "Cannot delete group '%s' as it is being used by solutions", g.Name)
	}

	n, err := s.groups.Delete(ctx, oid)
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	if n == 0 {
		return apperr.Newf(apperr.ErrNotFound, "Group not found")
	}

	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectGroup,
		ObjectID:   oid.Hex(),
		ObjectName: g.Name,
		ChangeType: models.ChangeDelete,
		Actor:      actor,
		Fields:     history.Diff(snapshot(g), nil),
	})
	return nil
}

// GetOrCreate returns the group named name, creating it if needed.
func (s *Service) GetOrCreate(ctx context.Context, name, actor string) (models.Group, error) {
	name = strings.TrimSpace(name)
	if g, ok, err := s.groups.FindByName(ctx, name); err != nil {
		return models.Group{}, fmt.Errorf("lookup group %q: %w", name, err)
	} else if ok {
		return g, nil
	}

	in, err := cleanInput(Input{Name: name, Description: "Group for " + name})
	if err != nil {
		return models.Group{}, err
	}
	g, err := s.create(ctx, in, actor)
	if err == nil || !isDuplicate(err) {
		return g, err
	}
	// Lost a race with another creator.
	g, ok, ferr := s.groups.FindByName(ctx, name)
	if ferr != nil {
		return models.Group{}, ferr
	}
	if !ok {
		return models.Group{}, err
	}
	return g, nil
}

// Invalidate drops cached listings. Solution writes that change which group
// a solution belongs to call this so usage counts refresh.
func (s *Service) Invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx)
}

// FindOrphans lists group names referenced by solutions that have no group
// record, sorted by name.
func (s *Service) FindOrphans(ctx context.Context) ([]OrphanRef, error) {
	refs, err := s.solutions.GroupRefCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("count group references: %w", err)
	}
	names, err := s.groups.Names(ctx)
	if err != nil {
		return nil, fmt.Errorf("list group names: %w", err)
	}
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	out := []OrphanRef{}
	for name, n := range refs {
		if !known[name] {
			out = append(out, OrphanRef{Name: name, Solutions: n})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Service) decorate(ctx context.Context, gs []models.Group) ([]models.Group, error) {
	if len(gs) == 0 {
		return []models.Group{}, nil
	}
	names := make([]string, len(gs))
	for i, g := range gs {
		names[i] = g.Name
	}
	counts, err := s.solutions.CountByGroups(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("count group usage: %w", err)
	}
	out := make([]models.Group, len(gs))
	for i, g := range gs {
		g.UsageCount = counts[g.Name]
		out[i] = g
	}
	return out, nil
}

func (s *Service) decorateOne(ctx context.Context, g models.Group) (models.Group, error) {
	out, err := s.decorate(ctx, []models.Group{g})
	if err != nil {
		return models.Group{}, err
	}
	return out[0], nil
}

func snapshot(g models.Group) map[string]any {
	return history.Snapshot("name", g.Name, "description", g.Description, "order", g.Order)
}

// clientErr replaces store-level wording for not-found and duplicate-name
// errors with the messages clients see.
func clientErr(err error, name string) error {
	switch {
	case errors.Is(err, apperr.ErrConsistency):
		return err
	case errors.Is(err, apperr.ErrNotFound):
		return apperr.Newf(apperr.ErrNotFound, "Group not found")
	case errors.Is(err, apperr.ErrDuplicateName):
		return apperr.Newf(apperr.ErrDuplicateName, "Group '%s' already exists", name)
	}
	return err
}

func isDuplicate(err error) bool {
	return errors.Is(err, apperr.ErrDuplicateName)
}
