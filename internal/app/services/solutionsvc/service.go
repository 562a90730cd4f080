// Package solutionsvc manages catalog entries. Solutions reference their
// group by name, so every write that sets a group goes through the group
// service to make sure the group exists.
package solutionsvc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/techradar/compass/internal/app/system/apperr"
	"github.com/techradar/compass/internal/app/system/history"
	"github.com/techradar/compass/internal/app/system/inputval"
	"github.com/techradar/compass/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Store interface {
	Insert(ctx context.Context, sol models.Solution) (models.Solution, error)
	GetBySlug(ctx context.Context, slug string) (models.Solution, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset ...string) error
}

// Groups is what the service needs from groupsvc.Service.
type Groups interface {
	GetOrCreate(ctx context.Context, name, actor string) (models.Group, error)
	Invalidate(ctx context.Context)
}

// Input is the body of a create request.
type Input struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Description     string   `json:"description"`
	Brief           string   `json:"brief" validate:"max=200"`
	Group           string   `json:"group" validate:"max=100"`
	Category        string   `json:"category" validate:"max=100"`
	Department      string   `json:"department" validate:"max=200"`
	Team            string   `json:"team" validate:"max=200"`
	TeamEmail       string   `json:"team_email" validate:"omitempty,email"`
	Stage           string   `json:"stage" validate:"omitempty,oneof=DEVELOPING UAT PRODUCTION DEPRECATED RETIRED"`
	Tags            []string `json:"tags" validate:"max=50,dive,max=50"`
	RecommendStatus string   `json:"recommend_status" validate:"omitempty,recommendstatus"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name            *string   `json:"name,omitempty" validate:"omitempty,max=200"`
	Description     *string   `json:"description,omitempty"`
	Brief           *string   `json:"brief,omitempty" validate:"omitempty,max=200"`
	Group           *string   `json:"group,omitempty" validate:"omitempty,max=100"`
	Category        *string   `json:"category,omitempty" validate:"omitempty,max=100"`
	Department      *string   `json:"department,omitempty" validate:"omitempty,max=200"`
	Team            *string   `json:"team,omitempty" validate:"omitempty,max=200"`
	TeamEmail       *string   `json:"team_email,omitempty" validate:"omitempty,email"`
	Stage           *string   `json:"stage,omitempty" validate:"omitempty,oneof=DEVELOPING UAT PRODUCTION DEPRECATED RETIRED"`
	Tags            *[]string `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=50"`
	RecommendStatus *string   `json:"recommend_status,omitempty" validate:"omitempty,recommendstatus"`
	ReviewStatus    *string   `json:"review_status,omitempty" validate:"omitempty,reviewstatus"`

	// Why the recommend status changed. Stored with the history record.
	Justification string `json:"recommend_status_change_justification,omitempty" validate:"max=1000"`
}

type Service struct {
	store  Store
	groups Groups
	hist   *history.Recorder
	log    *zap.Logger
	now    func() time.Time
}

func New(store Store, groups Groups, hist *history.Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, groups: groups, hist: hist, log: log, now: time.Now}
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Slugify lowercases name and joins its letter and digit runs with "-".
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}

// uniqueSlug returns base, or base-2, base-3, ... whichever is free first.
func (s *Service) uniqueSlug(ctx context.Context, base string) (string, error) {
	slug := base
	for i := 2; ; i++ {
		taken, err := s.store.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", slug, err)
		}
		if !taken {
			return slug, nil
		}
		slug = base + "-" + strconv.Itoa(i)
	}
}

func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Create adds a solution in PENDING review. Group defaults to "Default"
// and is created on demand; recommend status defaults to ASSESS.
func (s *Service) Create(ctx context.Context, in Input, actor string) (models.Solution, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Brief = inputval.PlainText(in.Brief)
	in.Description = strings.TrimSpace(in.Description)
	in.Group = strings.TrimSpace(in.Group)
	in.Category = strings.TrimSpace(in.Category)
	in.TeamEmail = strings.TrimSpace(in.TeamEmail)
	in.Tags = trimTags(in.Tags)
	if err := inputval.Validate(in).Err(); err != nil {
		return models.Solution{}, err
	}
	if in.Group == "" {
		in.Group = models.DefaultGroupName
	}
	if in.RecommendStatus == "" {
		in.RecommendStatus = models.RecommendAssess
	}

	base := Slugify(in.Name)
	if base == "" {
		return models.Solution{}, apperr.Newf(apperr.ErrValidation, "Name must contain a letter or digit.")
	}
	slug, err := s.uniqueSlug(ctx, base)
	if err != nil {
		return models.Solution{}, err
	}

	if _, err := s.groups.GetOrCreate(ctx, in.Group, actor); err != nil {
		return models.Solution{}, fmt.Errorf("resolve group %q: %w", in.Group, err)
	}

	now := s.stamp()
	sol, err := s.store.Insert(ctx, models.Solution{
		Name:            in.Name,
		Slug:            slug,
		Group:           in.Group,
		Category:        in.Category,
		Description:     in.Description,
		Brief:           in.Brief,
		Department:      strings.TrimSpace(in.Department),
		Team:            strings.TrimSpace(in.Team),
		TeamEmail:       in.TeamEmail,
		Stage:           in.Stage,
		Tags:            in.Tags,
		RecommendStatus: in.RecommendStatus,
		ReviewStatus:    models.ReviewPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatedBy:       actor,
		UpdatedBy:       actor,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrDuplicateName) {
			return models.Solution{}, apperr.Newf(apperr.ErrDuplicateName, "Solution '%s' already exists", slug)
		}
		return models.Solution{}, err
	}
	s.groups.Invalidate(ctx)

	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectSolution,
		ObjectID:   sol.Slug,
		ObjectName: sol.Name,
		ChangeType: models.ChangeCreate,
		Actor:      actor,
		Fields:     history.Diff(nil, snapshot(sol)),
	})
	return sol, nil
}

// Get returns the solution with the given slug.
func (s *Service) Get(ctx context.Context, slug string) (models.Solution, error) {
	sol, err := s.store.GetBySlug(ctx, strings.TrimSpace(slug))
	if errors.Is(err, apperr.ErrNotFound) {
		return models.Solution{}, apperr.Newf(apperr.ErrNotFound, "Solution '%s' not found", slug)
	}
	return sol, err
}

// Update applies p to the solution with the given slug. The slug never
// changes. A new recommend status is stamped with the time of the change.
func (s *Service) Update(ctx context.Context, slug string, p Patch, actor string) (models.Solution, error) {
	clean(&p)
	if err := inputval.Validate(p).Err(); err != nil {
		return models.Solution{}, err
	}
	if p.Name != nil && *p.Name == "" {
		return models.Solution{}, apperr.Newf(apperr.ErrValidation, "Name cannot be empty.")
	}

	current, err := s.Get(ctx, slug)
	if err != nil {
		return models.Solution{}, err
	}

	at := s.stamp()
	set := bson.M{}
	str := func(field string, v *string, cur string) {
		if v != nil && *v != cur {
			set[field] = *v
		}
	}
	str("name", p.Name, current.Name)
	str("description", p.Description, current.Description)
	str("brief", p.Brief, current.Brief)
	str("category", p.Category, current.Category)
	str("department", p.Department, current.Department)
	str("team", p.Team, current.Team)
	str("team_email", p.TeamEmail, current.TeamEmail)
	str("stage", p.Stage, current.Stage)
	str("review_status", p.ReviewStatus, current.ReviewStatus)
	if p.Tags != nil && strings.Join(*p.Tags, "\x00") != strings.Join(current.Tags, "\x00") {
		set["tags"] = *p.Tags
	}

	groupChanged := false
	if p.Group != nil {
		g := *p.Group
		if g == "" {
			g = models.DefaultGroupName
		}
		if g != current.Group {
			if _, err := s.groups.GetOrCreate(ctx, g, actor); err != nil {
				return models.Solution{}, fmt.Errorf("resolve group %q: %w", g, err)
			}
			set["group"] = g
			groupChanged = true
		}
	}

	statusChanged := p.RecommendStatus != nil && *p.RecommendStatus != current.RecommendStatus
	if statusChanged {
		set["recommend_status"] = *p.RecommendStatus
		set["recommend_status_updated_at"] = at
	}

	if len(set) == 0 {
		return current, nil
	}
	set["updated_at"] = at
	set["updated_by"] = actor

	var unset []string
	if statusChanged && current.LegacyRecommendStatusUpdatedAt != nil {
		unset = append(unset, "recommen_status_updated_at")
	}
	if err := s.store.Update(ctx, current.ID, set, unset...); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return models.Solution{}, apperr.Newf(apperr.ErrNotFound, "Solution '%s' not found", slug)
		}
		return models.Solution{}, err
	}
	if groupChanged {
		s.groups.Invalidate(ctx)
	}

	updated, err := s.store.GetBySlug(ctx, current.Slug)
	if err != nil {
		return models.Solution{}, err
	}

	fields := history.Diff(snapshot(current), snapshot(updated))
	if statusChanged && p.Justification != "" {
		for i := range fields {
			if fields[i].FieldName == "recommend_status" {
				fields[i].StatusChangeJustification = p.Justification
			}
		}
	}
	s.hist.RecordChange(ctx, history.Change{
		ObjectType: models.ObjectSolution,
		ObjectID:   updated.Slug,
		ObjectName: updated.Name,
		ChangeType: models.ChangeUpdate,
		Actor:      actor,
		Fields:     fields,
	})
	return updated, nil
}

func clean(p *Patch) {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.Name = trim(p.Name)
	p.Description = trim(p.Description)
	if p.Brief != nil {
		b := inputval.PlainText(*p.Brief)
		p.Brief = &b
	}
	p.Group = trim(p.Group)
	p.Category = trim(p.Category)
	p.Department = trim(p.Department)
	p.Team = trim(p.Team)
	p.TeamEmail = trim(p.TeamEmail)
	p.Stage = trim(p.Stage)
	p.RecommendStatus = trim(p.RecommendStatus)
	p.ReviewStatus = trim(p.ReviewStatus)
	if p.Tags != nil {
		t := trimTags(*p.Tags)
		p.Tags = &t
	}
	p.Justification = strings.TrimSpace(p.Justification)
}

func snapshot(sol models.Solution) map[string]any {
	return history.Snapshot(
		"name", sol.Name,
		"description", sol.Description,
		"brief", sol.Brief,
		"group", sol.Group,
		"category", sol.Category,
		"department", sol.Department,
		"team", sol.Team,
		"team_email", sol.TeamEmail,
		"stage", sol.Stage,
		"tags", strings.Join(sol.Tags, ", "),
		"recommend_status", sol.RecommendStatus,
		"review_status", sol.ReviewStatus,
	)
}
