// Package categorysvc manages categories, which place solutions in radar
// quadrants. Solutions reference a category by name, so a rename is
// propagated the same way group renames are.
package categorysvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/inputval"
	"github.com/techradar/compass/internal/app/system/txn"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error)
	FindByName(ctx context.Context, name string) (models.Category, bool, error)
	List(ctx context.Context) ([]models.Category, error)
	Insert(ctx context.Context, c models.Category) (models.Category, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) error
}

type SolutionStore interface {
	RenameCategory(ctx context.Context, old, new, actor string, at time.Time) (int64, error)
	UndoCategoryRename(ctx context.Context, old, new, actor string, at time.Time) (int64, error)
}

type Input struct {
	Name          string `json:"name" validate:"required,max=100"`
	Description   string `json:"description" validate:"max=500"`
	RadarQuadrant *int   `json:"radar_quadrant" validate:"omitempty,gte=-1,lte=3"`
}

type Patch struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,max=100"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=500"`
	RadarQuadrant *int    `json:"radar_quadrant,omitempty" validate:"omitempty,gte=-1,lte=3"`
}

type Service struct {
	store     Store
	solutions SolutionStore
	tx        txn.Runner
	hist      *history.Recorder
	log       *zap.Logger
	now       func() time.Time
}

func New(store Store, solutions SolutionStore, tx txn.Runner, hist *history.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if tx == nil {
		tx = txn.Direct{}
	}
	return &Service{store: store, solutions: solutions, tx: tx, hist: hist, log: log, now: time.Now}
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// List returns every category sorted by name.
func (s *Service) List(ctx context.Context) ([]models.Category, error) {
	return s.store.List(ctx)
}

// Create adds a category. A missing radar_quadrant keeps it off the radar.
func (s *Service) Create(ctx context.Context, in Input, actor string) (models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = inputval.PlainText(in.Description)
	if err := inputval.Validate(in).Err(); err != nil {
		return models.Category{}, err
	}
	if _, ok, err := s.store.FindByName(ctx, in.Name); err != nil {
		return models.Category{}, fmt.Errorf("lookup category %q: %w", in.Name, err)
	} else if ok {
		return models.Category{}, apperr.Newf(apperr.ErrDuplicateName, "Category '%s' already exists", in.Name)
	}

	q := models.NoRadarQuadrant
	if in.RadarQuadrant != nil {
		q = *in.RadarQuadrant
	}
	now := s.stamp()
	c, err := s.store.Insert(ctx, models.Category{
		Name:          in.Name,
		Description:   in.Description,
		RadarQuadrant: q,
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     actor,
		UpdatedBy:     actor,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateName) {
			return models.Category{}, apperr.Newf(apperr.ErrDuplicateName, "Category '%s' already exists", in.Name)
		}
		return models.Category{}, err
	}
	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectCategory,
		ObjectID:   c.ID.Hex(),
		ObjectName: c.Name,
		ChangeType: models.ChangeCreate,
		Actor:      actor,
		Fields:     history.Diff(nil, snapshot(c)),
	})
	return c, nil
}

// Update applies p. A rename rewrites solutions.category for every
// solution in the category.
func (s *Service) Update(ctx context.Context, id string, p Patch, actor string) (models.Category, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return models.Category{}, apperr.Newf(apperr.ErrNotFound, "Category not found")
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return models.Category{}, apperr.Newf(apperr.ErrValidation, "Category name cannot be empty")
		}
		p.Name = &n
	}
	if p.Description != nil {
		d := inputval.PlainText(*p.Description)
		p.Description = &d
	}
	if err := inputval.Validate(p).Err(); err != nil {
		return models.Category{}, err
	}

	current, err := s.store.GetByID(ctx, oid)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Category{}, apperr.Newf(apperr.ErrNotFound, "Category not found")
		}
		return models.Category{}, err
	}

	set := bson.M{}
	if p.Name != nil && *p.Name != current.Name {
		set["name"] = *p.Name
	}
	if p.Description != nil && *p.Description != current.Description {
		set["description"] = *p.Description
	}
	if p.RadarQuadrant != nil && *p.RadarQuadrant != current.RadarQuadrant {
		set["radar_quadrant"] = *p.RadarQuadrant
	}
	if len(set) == 0 {
		return current, nil
	}

	_, renaming := set["name"]
	if renaming {
		if _, ok, err := s.store.FindByName(ctx, *p.Name); err != nil {
			return models.Category{}, fmt.Errorf("lookup category %q: %w", *p.Name, err)
		} else if ok {
			return models.Category{}, apperr.Newf(apperr.ErrDuplicateName, "Category '%s' is already in use", *p.Name)
		}
	}

	at := s.stamp()
	set["updated_at"] = at
	set["updated_by"] = actor

	if renaming {
		err = s.rename(ctx, oid, current.Name, *p.Name, set, actor, at)
	} else {
		err = s.store.Update(ctx, oid, set)
	}
	if err != nil {
		return models.Category{}, err
	}

	updated, err := s.store.GetByID(ctx, oid)
	if err != nil {
		return models.Category{}, err
	}
	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectCategory,
		ObjectID:   oid.Hex(),
		ObjectName: updated.Name,
		ChangeType: models.ChangeUpdate,
		Actor:      actor,
		Fields:     history.Diff(snapshot(current), snapshot(updated)),
	})
	return updated, nil
}

func (s *Service) rename(ctx context.Context, id primitive.ObjectID, old, new string, set bson.M, actor string, at time.Time) error {
	renamed := false
	transacted, err := s.tx.Run(ctx, func(ctx context.Context) error {
		if _, err := s.solutions.RenameCategory(ctx, old, new, actor, at); err != nil {
			return fmt.Errorf("rename solution categories %q to %q: %w", old, new, err)
		}
		renamed = true
		return s.store.Update(ctx, id, set)
	})
	if err == nil || transacted || !renamed {
		return err
	}
	if _, uerr := s.solutions.UndoCategoryRename(context.WithoutCancel(ctx), old, new, actor, at); uerr != nil {
		s.log.Error("category rename left solutions pointing at a missing category",
			zap.String("category_id", id.Hex()),
			zap.String("old_name", old),
			zap.String("new_name", new),
			zap.NamedError("update_error", err),
			zap.NamedError("rollback_error", uerr))
		return fmt.Errorf("%w: renaming category %q to %q: update failed (%v) and solutions could not be restored: %v",
			apperr.ErrConsistency, old, new, err, uerr)
	}
	return err
}

func snapshot(c models.Category) map[string]any {
	return history.Snapshot("name", c.Name, "description", c.Description, "radar_quadrant", c.RadarQuadrant)
}
